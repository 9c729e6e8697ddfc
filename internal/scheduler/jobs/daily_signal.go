package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/voltarget/internal/pipeline"
	"github.com/wonny/voltarget/pkg/logger"
)

// SignalRunner runs the strategy end to end
type SignalRunner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.Output, error)
}

// Notifier delivers a payload to a webhook
type Notifier interface {
	PostJSON(ctx context.Context, url string, data, dest any) error
}

// DailySignalJob recomputes the overlay after the close and publishes the latest weight
type DailySignalJob struct {
	runner   SignalRunner
	notifier Notifier
	webhook  string
	schedule string
	logger   *logger.Logger
}

// NewDailySignalJob creates a new daily signal job; notifier may be nil
func NewDailySignalJob(runner SignalRunner, notifier Notifier, webhook, schedule string, log *logger.Logger) *DailySignalJob {
	if log == nil {
		log = logger.Nop()
	}
	return &DailySignalJob{
		runner:   runner,
		notifier: notifier,
		webhook:  webhook,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DailySignalJob) Name() string {
	return "daily_signal"
}

// Schedule returns the cron schedule
func (j *DailySignalJob) Schedule() string {
	return j.schedule
}

// Run executes the job
func (j *DailySignalJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled signal computation")

	out, err := j.runner.Run(ctx, pipeline.RunOptions{Persist: true})
	if err != nil {
		return fmt.Errorf("run strategy: %w", err)
	}

	latest := out.Latest
	if latest == nil {
		return fmt.Errorf("run %d produced no signal", out.Run.ID)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":     latest.Date.Format("2006-01-02"),
		"weight":   fmt.Sprintf("%.4f", latest.Weight),
		"trend_ok": latest.TrendOK,
		"gate":     fmt.Sprintf("%.3f", latest.Gate),
		"run_id":   out.Run.ID,
	}).Info("Signal computed")

	if j.notifier == nil || j.webhook == "" {
		return nil
	}

	// 웹훅 실패는 재시도 대상
	if err := j.notifier.PostJSON(ctx, j.webhook, latest, nil); err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	j.logger.WithField("webhook", j.webhook).Debug("Signal delivered")

	return nil
}
