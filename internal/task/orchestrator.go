package task

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sas/internal/aggregator"
	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/metrics"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/internal/resolver"
	"github.com/wonny/sas/pkg/logger"
)

// State is a step of one run
type State string

const (
	StateIdle                  State = "idle"
	StateSelecting             State = "selecting"
	StatePerAnalyzerResolution State = "per_analyzer_resolution"
	StateAggregated            State = "aggregated"
	StateReportGenerated       State = "report_generated"
	StateDone                  State = "done"
)

// ReportGenerator writes the aggregated result set to an output file
type ReportGenerator interface {
	Generate(ctx context.Context, results []contracts.AnalysisResult, path string) error
}

// RunResult describes a finished (or aborted) run
type RunResult struct {
	RunID       string                `json:"run_id"`
	States      []State               `json:"states"`
	Securities  int                   `json:"securities"`
	Resolutions []resolver.Resolution `json:"-"`
	Results     int                   `json:"results"`
	ByteSize    int                   `json:"byte_size"`
	OutputPath  string                `json:"output_path"`
	StartedAt   time.Time             `json:"started_at"`
	Elapsed     time.Duration         `json:"elapsed"`
}

// State returns the last state reached
func (r *RunResult) State() State {
	if len(r.States) == 0 {
		return StateIdle
	}
	return r.States[len(r.States)-1]
}

// Sources maps analyzer id to the source that satisfied it
func (r *RunResult) Sources() map[string]resolver.Source {
	out := make(map[string]resolver.Source, len(r.Resolutions))
	for _, res := range r.Resolutions {
		out[res.Analyzer] = res.Source
	}
	return out
}

// Orchestrator drives one run: select securities, resolve every analyzer in
// order, aggregate, then hand the set to the report generator.
// ⭐ SSOT: 분석 실행 흐름은 여기서만
type Orchestrator struct {
	securities contracts.SecuritySource
	resolver   *resolver.Resolver
	reporter   ReportGenerator
	metrics    *metrics.Recorder
	logger     *logger.Logger
}

// NewOrchestrator creates an orchestrator. securities may be nil when every
// request carries its own security list.
func NewOrchestrator(securities contracts.SecuritySource, res *resolver.Resolver, reporter ReportGenerator, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		securities: securities,
		resolver:   res,
		reporter:   reporter,
		logger:     log.WithComponent("task"),
	}
}

// WithMetrics attaches a metrics recorder
func (o *Orchestrator) WithMetrics(rec *metrics.Recorder) *Orchestrator {
	o.metrics = rec
	return o
}

// Run executes req. The only returned error is a report generation failure;
// per-analyzer failures are recorded in RunResult.Resolutions.
func (o *Orchestrator) Run(ctx context.Context, req contracts.RunRequest, tracker *progress.Tracker) (*RunResult, error) {
	start := time.Now()
	log := o.logger.WithRun(req.RunID)

	result := &RunResult{
		RunID:      req.RunID,
		States:     []State{StateIdle},
		OutputPath: req.OutputPath,
		StartedAt:  start,
	}
	defer func() {
		result.Elapsed = time.Since(start)
	}()

	log.WithFields(map[string]interface{}{
		"analyzers": req.Analyzers,
		"range":     req.TimeRange.String(),
		"options":   req.Options.String(),
		"output":    req.OutputPath,
	}).Info("Analysis run started")

	// ------------ Selecting ------------
	result.States = append(result.States, StateSelecting)
	securities := o.selectSecurities(ctx, log, req)
	result.Securities = len(securities)

	// ------ PerAnalyzerResolution ------
	result.States = append(result.States, StatePerAnalyzerResolution)
	agg := aggregator.New()
	analysisStart := time.Now()

	for _, analyzer := range req.Analyzers {
		res := o.resolver.Resolve(ctx, analyzer, securities, req.TimeRange, req.Options, tracker)
		result.Resolutions = append(result.Resolutions, res)

		if !res.Found() {
			continue
		}

		size := agg.Append(analyzer, res.Results)
		log.WithFields(map[string]interface{}{
			"analyzer": analyzer,
			"source":   res.Source,
			"results":  len(res.Results),
		}).Infof("Total result size = %.2f MB", aggregator.SizeMB(size))
	}

	log.WithElapsed(time.Since(analysisStart)).Info("All analysis finished")

	// ------------ Aggregated ------------
	result.States = append(result.States, StateAggregated)
	result.Results = agg.Len()
	result.ByteSize = agg.ByteSize()
	o.metrics.SetResultBytes(result.ByteSize)

	// ---------- ReportGenerated ----------
	if err := o.generateReport(ctx, agg.Results(), req.OutputPath); err != nil {
		log.WithError(err).Error("Report generation failed, run aborted")
		return result, fmt.Errorf("generate report: %w", err)
	}
	result.States = append(result.States, StateReportGenerated)

	result.States = append(result.States, StateDone)
	log.WithElapsed(time.Since(start)).WithField("results", result.Results).Info("Analysis run finished")

	return result, nil
}

// selectSecurities returns the request's own list or enumerates the universe.
// Enumeration failure degrades to an empty list.
func (o *Orchestrator) selectSecurities(ctx context.Context, log *logger.Logger, req contracts.RunRequest) []string {
	if len(req.Securities) > 0 {
		out := make([]string, len(req.Securities))
		copy(out, req.Securities)
		return out
	}

	if o.securities == nil {
		log.Warn("No security source configured, running with empty universe")
		return nil
	}

	start := time.Now()
	codes, err := o.securities.SecurityIdentities(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to enumerate securities, running with empty universe")
		return nil
	}
	if len(codes) == 0 {
		log.Warn("Security enumeration is empty")
	}

	log.WithElapsed(time.Since(start)).WithField("securities", len(codes)).Info("Select securities finished")
	return codes
}

func (o *Orchestrator) generateReport(ctx context.Context, results []contracts.AnalysisResult, path string) (err error) {
	if o.reporter == nil {
		return fmt.Errorf("no report generator configured")
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("report generator panicked: %v", p)
		}
	}()

	return o.reporter.Generate(ctx, results, path)
}
