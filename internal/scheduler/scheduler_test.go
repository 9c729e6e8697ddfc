package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name     string
	schedule string
	failures int32
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 30 22 * * 1-5"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	err := s.AddJob(&countingJob{name: "a", schedule: "@daily"})
	assert.Error(t, err, "duplicate names are rejected")

	err = s.AddJob(&countingJob{name: "bad", schedule: "30 22 * * 1-5"})
	assert.Error(t, err, "five-field schedules need a seconds field")
	assert.NotContains(t, s.GetAllJobs(), "bad")
}

func TestNextRun(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}))

	// 시작 전에도 다음 실행 시각 계산
	next, err := s.NextRun("a")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
	assert.False(t, next.After(time.Now().Add(time.Hour)))

	_, err = s.NextRun("missing")
	assert.Error(t, err)
}

func TestRunJob_Retries(t *testing.T) {
	s := New(nil, WithRetry(2, time.Millisecond))
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), job.calls.Load())

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	require.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
}

func TestRunJob_FailsAfterRetries(t *testing.T) {
	s := New(nil, WithRetry(1, time.Millisecond))
	job := &countingJob{name: "broken", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transient", result.Error)
	assert.Equal(t, int32(2), job.calls.Load())

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	require.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)

	_, err = s.RunJob(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunJob_CanceledContextStopsRetrying(t *testing.T) {
	s := New(nil, WithRetry(5, time.Hour))
	job := &countingJob{name: "slow", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RunJob(ctx, "slow")
	require.Error(t, err)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}))
	s.Start()
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())
	_, ok := h.LastSuccess()
	assert.False(t, ok)

	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)

	last, ok := h.LastSuccess()
	require.True(t, ok)
	assert.True(t, last.Success)

	st := h.Stats("x", "@daily")
	assert.Equal(t, maxHistory, st.TotalRuns)
	assert.Equal(t, 50, st.FailureCount)
	require.NotNil(t, st.LastRun)
	require.NotNil(t, st.LastFailure, "the last recorded run failed")
	assert.Len(t, h.GetFailedResults(), 50)
}
