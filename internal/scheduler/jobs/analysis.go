package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/task"
	"github.com/wonny/sas/pkg/logger"
)

// Submitter queues analysis runs (task.Runner)
type Submitter interface {
	Submit(ctx context.Context, req contracts.RunRequest, observer contracts.Observer) (string, error)
}

// AnalysisJob submits a scheduled analysis run and waits for its completion
type AnalysisJob struct {
	runner        Submitter
	analyzers     []string
	schedule      string
	outputPath    string
	lookbackYears int
	notify        contracts.Observer
	now           func() time.Time
	logger        *logger.Logger
}

// AnalysisJobConfig configures an AnalysisJob
type AnalysisJobConfig struct {
	Analyzers     []string
	Schedule      string // cron spec with seconds
	OutputPath    string
	LookbackYears int

	// Notify receives the completion in addition to the job itself (optional)
	Notify contracts.Observer
}

// NewAnalysisJob creates a new scheduled analysis job
func NewAnalysisJob(runner Submitter, cfg AnalysisJobConfig, log *logger.Logger) *AnalysisJob {
	return &AnalysisJob{
		runner:        runner,
		analyzers:     cfg.Analyzers,
		schedule:      cfg.Schedule,
		outputPath:    cfg.OutputPath,
		lookbackYears: cfg.LookbackYears,
		notify:        cfg.Notify,
		now:           time.Now,
		logger:        log,
	}
}

// Name returns the job name
func (j *AnalysisJob) Name() string {
	return "analysis_run"
}

// Schedule returns the cron schedule
func (j *AnalysisJob) Schedule() string {
	return j.schedule
}

// Request builds the run request for the current tick. Scheduled runs read
// and refresh the cache and never force a recompute.
func (j *AnalysisJob) Request() contracts.RunRequest {
	return contracts.RunRequest{
		Analyzers:  j.analyzers,
		TimeRange:  contracts.DefaultTimeRange(j.now(), j.lookbackYears),
		Options:    contracts.ToggleOptions(false, true),
		OutputPath: j.outputPath,
		Trigger:    contracts.TriggerSchedule,
	}
}

// Run submits the analysis and blocks until it completes
func (j *AnalysisJob) Run(ctx context.Context) error {
	done := task.NewChanObserver()

	var observer contracts.Observer = done
	if j.notify != nil {
		observer = task.MultiObserver{done, j.notify}
	}

	runID, err := j.runner.Submit(ctx, j.Request(), observer)
	if errors.Is(err, task.ErrRunInProgress) {
		j.logger.Warn("Skipping scheduled analysis: another run is in progress")
		return err
	}
	if err != nil {
		return fmt.Errorf("submit analysis: %w", err)
	}

	j.logger.WithField("run_id", runID).Info("Scheduled analysis submitted")

	completion, err := done.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait analysis %s: %w", runID, err)
	}
	if completion.Err != nil {
		return fmt.Errorf("analysis %s: %w", runID, completion.Err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  runID,
		"elapsed": completion.Elapsed.String(),
		"report":  completion.OutputPath,
	}).Info("Scheduled analysis finished")

	return nil
}
