package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sas/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	err      error
	panics   bool
	runs     int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(context.Context) error {
	j.runs++
	if j.panics {
		panic("boom")
	}
	return j.err
}

func TestScheduler_AddRemove(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&stubJob{name: "b", schedule: "@every 1h"}))
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "0 30 18 * * 1-5"}))

	assert.Error(t, s.AddJob(&stubJob{name: "a", schedule: "@every 1h"}), "duplicate name")
	assert.Error(t, s.AddJob(&stubJob{name: "c", schedule: "not a cron"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("b"))
	assert.Equal(t, []string{"a"}, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("b"))
}

func TestScheduler_RunJob_NoRetry(t *testing.T) {
	s := New(logger.Nop())
	failing := &stubJob{name: "analysis_run", schedule: "@every 1h", err: errors.New("report failed")}
	require.NoError(t, s.AddJob(failing))

	result, err := s.RunJob("analysis_run")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "report failed", result.Error)
	assert.Equal(t, 1, failing.runs, "failed jobs are not retried")

	_, err = s.RunJob("missing")
	assert.Error(t, err)
}

func TestScheduler_RunJob_Panic(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&stubJob{name: "p", schedule: "@every 1h", panics: true}))

	result, err := s.RunJob("p")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
}

func TestScheduler_Stats(t *testing.T) {
	s := New(logger.Nop())
	job := &stubJob{name: "j", schedule: "@every 1h"}
	require.NoError(t, s.AddJob(job))

	_, _ = s.RunJob("j")
	job.err = errors.New("fail")
	_, _ = s.RunJob("j")

	stats := s.GetJobStats()["j"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.InDelta(t, 0.5, stats.SuccessRate, 0.0001)
	require.NotNil(t, stats.LastRun)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)

	history, err := s.GetJobHistory("j")
	require.NoError(t, err)
	assert.Len(t, history.Results, 2)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&stubJob{name: "j", schedule: "@every 1h"}))

	s.Start()
	next, err := s.NextRun("j")
	require.NoError(t, err)
	assert.False(t, next.IsZero())
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, h.SuccessRate())

	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{JobName: "j", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Equal(t, maxHistory/2, h.FailedCount())

	last, ok := h.Last()
	require.True(t, ok)
	assert.False(t, last.Success)
}
