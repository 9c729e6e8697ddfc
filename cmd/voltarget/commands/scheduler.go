package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/voltarget/internal/marketdata"
	"github.com/wonny/voltarget/internal/scheduler"
	"github.com/wonny/voltarget/internal/scheduler/jobs"
	"github.com/wonny/voltarget/pkg/httputil"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `장 마감 후 시그널 재계산 스케줄러를 관리합니다.

등록되는 작업:
- data_import:  DATA_IMPORT_SCHEDULE (DB 설정 시, CSV → DB)
- daily_signal: SIGNAL_SCHEDULE (백테스트 + 저장 + 웹훅)

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/voltarget scheduler start
  go run ./cmd/voltarget scheduler run daily_signal`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerSource string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerSource, "source", sourceCSV, "시그널 데이터 소스 (csv|db)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== voltarget Scheduler ===")

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Printf("Running job: %s\n", jobName)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := sched.RunJob(ctx, jobName)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration.Round(time.Millisecond)))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(jobName); err == nil && !t.IsZero() {
			next = t.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  - %-14s %-18s next: %s\n", jobName, stats[jobName].Schedule, next)
	}
}

func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := loadApp()
	if err != nil {
		return nil, nil, err
	}

	if err := a.connect(context.Background(), schedulerSource == sourceDB); err != nil {
		return nil, nil, err
	}

	src, err := a.source(schedulerSource, zeroTime, zeroTime)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	runner, err := a.runner(src)
	if err != nil {
		a.Close()
		return nil, nil, err
	}

	sched := scheduler.New(a.log, scheduler.WithRetry(3, 5*time.Minute))

	if a.db != nil {
		csvSource, _ := a.source(sourceCSV, zeroTime, zeroTime)
		importJob := jobs.NewDataImportJob(csvSource, marketdata.NewRepository(a.db.Pool), a.seriesNames(), a.cfg.ImportSchedule, a.log)
		if err := sched.AddJob(importJob); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	notifier := httputil.New(a.log, 15*time.Second)
	signalJob := jobs.NewDailySignalJob(runner, notifier, a.cfg.SignalWebhook, a.cfg.SignalSchedule, a.log)
	if err := sched.AddJob(signalJob); err != nil {
		a.Close()
		return nil, nil, err
	}

	return a, sched, nil
}
