package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/metrics"
	"github.com/wonny/sas/pkg/logger"
)

// Source is where an analyzer's results came from
type Source string

const (
	SourceNone    Source = "none"
	SourceJSON    Source = "json"
	SourceCache   Source = "cache"
	SourceCompute Source = "compute"
)

// Step labels used for failures and timings
const (
	StepJSON       = "json"
	StepCacheLoad  = "cache_load"
	StepCompute    = "compute"
	StepCacheStore = "cache_store"
	StepDump       = "dump"
)

// Resolution is the outcome of resolving one analyzer
type Resolution struct {
	Analyzer     string
	Source       Source
	Results      []contracts.AnalysisResult
	Err          error // swallowed per-analyzer failure, nil on success or silent skip
	WriteErr     error // cache store or dump failure; results are kept
	Elapsed      time.Duration
	CacheWritten bool
	Dumped       bool
}

// Found reports whether the analyzer produced results
func (r Resolution) Found() bool {
	return r.Source != SourceNone && len(r.Results) > 0
}

// Resolver picks the result source for one analyzer:
// debug snapshot > cache > fresh compute > skip.
// ⭐ SSOT: 결과 소스 결정 정책은 여기서만
type Resolver struct {
	cache     contracts.ResultCache
	engine    contracts.Engine
	snapshots contracts.SnapshotStore
	metrics   *metrics.Recorder
	logger    *logger.Logger
}

// New creates a resolver. cache, engine or snapshots may be nil; a nil
// collaborator behaves as an always-missing source.
func New(cache contracts.ResultCache, engine contracts.Engine, snapshots contracts.SnapshotStore, log *logger.Logger) *Resolver {
	return &Resolver{
		cache:     cache,
		engine:    engine,
		snapshots: snapshots,
		logger:    log.WithComponent("resolver"),
	}
}

// WithMetrics attaches a metrics recorder
func (r *Resolver) WithMetrics(rec *metrics.Recorder) *Resolver {
	r.metrics = rec
	return r
}

// Resolve runs the source policy for analyzer. It never returns an error:
// failures are logged, recorded in Resolution.Err, and yield no results.
func (r *Resolver) Resolve(
	ctx context.Context,
	analyzer string,
	securities []string,
	tr contracts.TimeRange,
	opts contracts.Options,
	progress contracts.ProgressReporter,
) (res Resolution) {
	start := time.Now()
	log := r.logger.WithField("analyzer", analyzer)

	res = Resolution{Analyzer: analyzer, Source: SourceNone}
	defer func() {
		res.Elapsed = time.Since(start)
		r.metrics.RecordResolution(analyzer, string(res.Source))
	}()

	// 1. 디버그 스냅샷이 지정되면 다른 소스는 보지 않는다
	if opts.FromJSON {
		results, err := r.loadJSON(log, analyzer)
		if err != nil {
			res.Err = r.fail(log, analyzer, StepJSON, err)
			return res
		}
		if len(results) > 0 {
			res.Source, res.Results = SourceJSON, results
		}
	} else {
		// 2. 캐시
		if opts.FromCache {
			results, err := r.loadCache(ctx, log, analyzer, tr)
			if err != nil {
				res.Err = r.fail(log, analyzer, StepCacheLoad, err)
				return res
			}
			if len(results) > 0 {
				res.Source, res.Results = SourceCache, results
				if progress != nil {
					progress.SetProgress(analyzer, 1, 1)
					progress.FinishProgress(analyzer)
				}
			}
		}

		// 3. 새로 계산
		if res.Source == SourceNone && opts.Calc {
			results, err := r.compute(ctx, log, analyzer, securities, tr, progress)
			if err != nil {
				res.Err = r.fail(log, analyzer, StepCompute, err)
				return res
			}
			if len(results) > 0 {
				res.Source, res.Results = SourceCompute, results
			}
		}
	}

	// 4. 결과 없음: 조용히 건너뜀
	if res.Source == SourceNone {
		log.Debug("No result from any source, skipped")
		return res
	}

	// 5. 새로 계산한 결과만 캐시에 기록
	if res.Source == SourceCompute && opts.UpdateCache {
		if err := r.storeCache(ctx, log, analyzer, tr, res.Results); err != nil {
			res.WriteErr = r.fail(log, analyzer, StepCacheStore, err)
		} else {
			res.CacheWritten = true
		}
	}

	// 6. 소스와 무관하게 스냅샷 덤프
	if opts.DumpJSON {
		if err := r.dumpJSON(log, analyzer, res.Results); err != nil {
			res.WriteErr = r.fail(log, analyzer, StepDump, err)
		} else {
			res.Dumped = true
		}
	}

	return res
}

func (r *Resolver) loadJSON(log *logger.Logger, analyzer string) ([]contracts.AnalysisResult, error) {
	if r.snapshots == nil {
		return nil, nil
	}

	start := time.Now()
	results, err := r.snapshots.Load(analyzer)
	r.observe(StepJSON, start)
	if err != nil {
		return nil, err
	}

	log.WithElapsed(time.Since(start)).WithField("results", len(results)).Info("Load json finished")
	return results, nil
}

func (r *Resolver) loadCache(ctx context.Context, log *logger.Logger, analyzer string, tr contracts.TimeRange) ([]contracts.AnalysisResult, error) {
	if r.cache == nil {
		return nil, nil
	}

	start := time.Now()
	results, err := r.cache.Load(ctx, contracts.ResultCategory, analyzer, tr)
	r.observe(StepCacheLoad, start)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		log.Info("No cache data")
		return nil, nil
	}

	log.WithElapsed(time.Since(start)).WithField("results", len(results)).Info("Load cache finished")
	return results, nil
}

func (r *Resolver) compute(
	ctx context.Context,
	log *logger.Logger,
	analyzer string,
	securities []string,
	tr contracts.TimeRange,
	progress contracts.ProgressReporter,
) (results []contracts.AnalysisResult, err error) {
	if r.engine == nil {
		return nil, nil
	}

	// 분석기 패닉도 해당 분석기 하나의 실패로 취급
	defer func() {
		if p := recover(); p != nil {
			results, err = nil, fmt.Errorf("analyzer panicked: %v", p)
		}
	}()

	start := time.Now()
	results, err = r.engine.Compute(ctx, securities, analyzer, tr, progress)
	r.observe(StepCompute, start)
	if err != nil {
		return nil, err
	}

	log.WithElapsed(time.Since(start)).WithField("results", len(results)).Info("Execute analysis finished")
	return results, nil
}

func (r *Resolver) storeCache(ctx context.Context, log *logger.Logger, analyzer string, tr contracts.TimeRange, results []contracts.AnalysisResult) error {
	if r.cache == nil {
		return nil
	}

	start := time.Now()
	err := r.cache.Store(ctx, contracts.ResultCategory, analyzer, tr, results)
	r.observe(StepCacheStore, start)
	if err != nil {
		return err
	}

	log.WithElapsed(time.Since(start)).Info("Cache result finished")
	return nil
}

func (r *Resolver) dumpJSON(log *logger.Logger, analyzer string, results []contracts.AnalysisResult) error {
	if r.snapshots == nil {
		return nil
	}

	start := time.Now()
	err := r.snapshots.Save(analyzer, results)
	r.observe(StepDump, start)
	if err != nil {
		return err
	}

	log.WithElapsed(time.Since(start)).Info("Dump json finished")
	return nil
}

func (r *Resolver) fail(log *logger.Logger, analyzer, step string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", analyzer, step, err)
	log.WithError(err).WithField("step", step).Warn("Analyzer step failed, continuing")
	r.metrics.RecordFailure(analyzer, step)
	return wrapped
}

func (r *Resolver) observe(step string, start time.Time) {
	r.metrics.ObserveStep(step, time.Since(start))
}
