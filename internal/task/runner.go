package task

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/metrics"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/pkg/logger"
)

var (
	// ErrRunInProgress is returned by Submit while another run is active
	ErrRunInProgress = errors.New("analysis run already in progress")
	// ErrRunnerClosed is returned by Submit after Close
	ErrRunnerClosed = errors.New("runner closed")
)

// Paths are the project locations a run uses
type Paths struct {
	Project string
	Debug   string
}

// Report resolves a relative report path against the project directory
func (p Paths) Report(path string) string {
	if path == "" || filepath.IsAbs(path) || p.Project == "" {
		return path
	}
	return filepath.Join(p.Project, path)
}

type job struct {
	ctx      context.Context
	req      contracts.RunRequest
	observer contracts.Observer
}

// LastRun is the outcome of the most recent finished run
type LastRun struct {
	Result     *RunResult
	Completion contracts.Completion
}

// Runner owns the single worker slot, the shared progress tracker and the
// busy lock. At most one run is active at a time.
// ⭐ SSOT: 실행 슬롯과 busy 상태는 여기서만
type Runner struct {
	orch    *Orchestrator
	tracker *progress.Tracker
	paths   Paths
	metrics *metrics.Recorder
	logger  *logger.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.Mutex
	busy   bool
	closed bool
	last   *LastRun
}

// NewRunner creates a runner and starts its worker
func NewRunner(orch *Orchestrator, paths Paths, log *logger.Logger) *Runner {
	r := &Runner{
		orch:    orch,
		tracker: progress.NewTracker(),
		paths:   paths,
		logger:  log.WithComponent("runner"),
		jobs:    make(chan job, 1),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// WithMetrics attaches a metrics recorder
func (r *Runner) WithMetrics(rec *metrics.Recorder) *Runner {
	r.metrics = rec
	return r
}

// Tracker returns the progress tracker observers poll
func (r *Runner) Tracker() *progress.Tracker {
	return r.tracker
}

// Paths returns the runner's project paths
func (r *Runner) Paths() Paths {
	return r.paths
}

// Busy reports whether a run is active
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Last returns the most recent finished run, or nil
func (r *Runner) Last() *LastRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Submit validates req and queues it. observer receives exactly one
// completion, after the busy lock has been released. The run does not
// inherit ctx cancellation.
func (r *Runner) Submit(ctx context.Context, req contracts.RunRequest, observer contracts.Observer) (string, error) {
	if err := req.Validate(ctx); err != nil {
		return "", err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	req.OutputPath = r.paths.Report(req.OutputPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", ErrRunnerClosed
	}
	if r.busy {
		return "", ErrRunInProgress
	}

	r.busy = true
	r.tracker.Reset()
	r.metrics.SetRunActive(true)

	// busy 가드 덕분에 버퍼 1 채널은 막히지 않는다
	r.jobs <- job{ctx: context.WithoutCancel(ctx), req: req, observer: observer}

	r.logger.WithRun(req.RunID).WithField("trigger", req.Trigger).Info("Run submitted")
	return req.RunID, nil
}

// WaitIdle blocks until no run is active or ctx is done
func (r *Runner) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !r.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops accepting runs and waits for the active one to finish
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Runner closed")
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for j := range r.jobs {
		r.execute(j)
	}
}

func (r *Runner) execute(j job) {
	var once sync.Once
	notify := func(done contracts.Completion) {
		once.Do(func() {
			if j.observer != nil {
				j.observer.RunCompleted(done)
			}
		})
	}

	start := time.Now()
	result, err := r.runSafely(j)
	elapsed := time.Since(start)

	done := contracts.Completion{
		RunID:      j.req.RunID,
		Elapsed:    elapsed,
		OutputPath: j.req.OutputPath,
		Err:        err,
	}
	if result != nil {
		done.Results = result.Results
	}

	log := r.logger.WithRun(j.req.RunID).WithElapsed(elapsed)
	if err != nil {
		log.WithError(err).Error("Run failed")
	} else {
		log.WithField("output", j.req.OutputPath).Info("Run completed")
	}

	r.metrics.RecordRun(err == nil, elapsed)
	r.metrics.SetRunActive(false)

	r.mu.Lock()
	r.busy = false
	r.last = &LastRun{Result: result, Completion: done}
	r.mu.Unlock()

	notify(done)
}

// runSafely converts a panic anywhere in the run into an error
func (r *Runner) runSafely(j job) (result *RunResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("run panicked")
			r.logger.WithRun(j.req.RunID).WithField("panic", p).Error("Run panicked")
		}
	}()

	return r.orch.Run(j.ctx, j.req, r.tracker)
}
