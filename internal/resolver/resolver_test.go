package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sas/internal/cache"
	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/metrics"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/internal/snapshot"
	"github.com/wonny/sas/pkg/logger"
)

var tr = contracts.TimeRange{
	Since: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
	Until: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
}

func resultsFor(analyzer, tag string, n int) []contracts.AnalysisResult {
	out := make([]contracts.AnalysisResult, n)
	for i := range out {
		out[i] = contracts.NewResult(analyzer, fmt.Sprintf("%06d", i), i%101, tag)
	}
	return out
}

// fakeEngine returns fixed results and drives progress one security at a time
type fakeEngine struct {
	results map[string][]contracts.AnalysisResult
	errs    map[string]error
	calls   map[string]int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		results: make(map[string][]contracts.AnalysisResult),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (e *fakeEngine) Compute(_ context.Context, securities []string, analyzer string, _ contracts.TimeRange, p contracts.ProgressReporter) ([]contracts.AnalysisResult, error) {
	e.calls[analyzer]++
	if err := e.errs[analyzer]; err != nil {
		return nil, err
	}
	for i := range securities {
		p.SetProgress(analyzer, i+1, len(securities))
	}
	p.FinishProgress(analyzer)
	return e.results[analyzer], nil
}

// mockCache is a testify mock for contracts.ResultCache
type mockCache struct {
	mock.Mock
}

func (m *mockCache) Load(ctx context.Context, category, analyzer string, tr contracts.TimeRange) ([]contracts.AnalysisResult, error) {
	args := m.Called(ctx, category, analyzer, tr)
	res, _ := args.Get(0).([]contracts.AnalysisResult)
	return res, args.Error(1)
}

func (m *mockCache) Store(ctx context.Context, category, analyzer string, tr contracts.TimeRange, results []contracts.AnalysisResult) error {
	args := m.Called(ctx, category, analyzer, tr, results)
	return args.Error(0)
}

// failingSnapshots fails every call
type failingSnapshots struct{ err error }

func (f failingSnapshots) Load(string) ([]contracts.AnalysisResult, error) { return nil, f.err }
func (f failingSnapshots) Save(string, []contracts.AnalysisResult) error  { return f.err }

func securities(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%06d", i)
	}
	return out
}

func TestResolve_PrecedenceAllCombinations(t *testing.T) {
	// every source holds data tagged with its origin
	for mask := 0; mask < 32; mask++ {
		opts := contracts.Options{
			Calc:        mask&1 != 0,
			FromCache:   mask&2 != 0,
			UpdateCache: mask&4 != 0,
			FromJSON:    mask&8 != 0,
			DumpJSON:    mask&16 != 0,
		}

		t.Run(opts.String(), func(t *testing.T) {
			ctx := context.Background()
			mem := cache.NewMemory()
			require.NoError(t, mem.Store(ctx, contracts.ResultCategory, "MACD", tr, resultsFor("MACD", "cache", 2)))

			snaps := snapshot.NewStore(t.TempDir())
			require.NoError(t, snaps.Save("MACD", resultsFor("MACD", "json", 3)))

			engine := newFakeEngine()
			engine.results["MACD"] = resultsFor("MACD", "compute", 4)

			r := New(mem, engine, snaps, logger.Nop())
			res := r.Resolve(ctx, "MACD", securities(4), tr, opts, progress.NewTracker())

			var want Source
			switch {
			case opts.FromJSON:
				want = SourceJSON
			case opts.FromCache:
				want = SourceCache
			case opts.Calc:
				want = SourceCompute
			default:
				want = SourceNone
			}

			assert.Equal(t, want, res.Source)
			assert.NoError(t, res.Err)
			if want == SourceNone {
				assert.Empty(t, res.Results)
			} else {
				assert.Equal(t, string(want), res.Results[0].Reason)
			}

			wantCalls := 0
			if want == SourceCompute {
				wantCalls = 1
			}
			assert.Equal(t, wantCalls, engine.calls["MACD"])

			// cache written only after a fresh compute
			assert.Equal(t, want == SourceCompute && opts.UpdateCache, res.CacheWritten)
			cached, err := mem.Load(ctx, contracts.ResultCategory, "MACD", tr)
			require.NoError(t, err)
			if res.CacheWritten {
				assert.Equal(t, "compute", cached[0].Reason)
			} else {
				assert.Equal(t, "cache", cached[0].Reason)
			}

			// dump for any found result
			assert.Equal(t, want != SourceNone && opts.DumpJSON, res.Dumped)
		})
	}
}

func TestResolve_UpdateCacheAloneDoesNothing(t *testing.T) {
	mc := &mockCache{}
	engine := newFakeEngine()
	engine.results["A"] = resultsFor("A", "compute", 1)

	r := New(mc, engine, nil, logger.Nop())
	res := r.Resolve(context.Background(), "A", securities(1), tr, contracts.Options{UpdateCache: true}, progress.NewTracker())

	assert.Equal(t, SourceNone, res.Source)
	assert.False(t, res.Found())
	assert.Zero(t, engine.calls["A"])
	mc.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mc.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_CacheThenFromCacheOnly(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	engine := newFakeEngine()
	engine.results["PE_RANK"] = resultsFor("PE_RANK", "compute", 5)
	r := New(mem, engine, nil, logger.Nop())

	first := r.Resolve(ctx, "PE_RANK", securities(5), tr, contracts.AutoOptions(), progress.NewTracker())
	require.Equal(t, SourceCompute, first.Source)
	require.True(t, first.CacheWritten)

	mc := &mockCache{}
	mc.On("Load", mock.Anything, contracts.ResultCategory, "PE_RANK", tr).Return(first.Results, nil).Once()
	r2 := New(mc, engine, nil, logger.Nop())

	second := r2.Resolve(ctx, "PE_RANK", securities(5), tr, contracts.Options{FromCache: true, UpdateCache: true}, progress.NewTracker())

	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, engine.calls["PE_RANK"])
	assert.False(t, second.CacheWritten)
	mc.AssertExpectations(t)
	mc.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_DumpThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	snaps := snapshot.NewStore(t.TempDir())
	engine := newFakeEngine()
	engine.results["RSI"] = resultsFor("RSI", "과매도", 7)
	r := New(nil, engine, snaps, logger.Nop())

	dumped := r.Resolve(ctx, "RSI", securities(7), tr, contracts.Options{Calc: true, DumpJSON: true}, progress.NewTracker())
	require.True(t, dumped.Dumped)

	loaded := r.Resolve(ctx, "RSI", securities(7), tr, contracts.Options{FromJSON: true}, progress.NewTracker())

	assert.Equal(t, SourceJSON, loaded.Source)
	assert.Equal(t, dumped.Results, loaded.Results)
}

func TestResolve_CacheHitProgressIsFinished(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	require.NoError(t, mem.Store(ctx, contracts.ResultCategory, "MACD", tr, resultsFor("MACD", "cache", 1)))

	tracker := progress.NewTracker()
	r := New(mem, newFakeEngine(), nil, logger.Nop())

	require.False(t, tracker.HasProgress("MACD"))
	r.Resolve(ctx, "MACD", securities(3), tr, contracts.AutoOptions(), tracker)

	assert.True(t, tracker.IsFinished("MACD"))
	assert.Equal(t, 1.0, tracker.ProgressRate("MACD"))
	assert.Equal(t, progress.Entry{Numerator: 1, Denominator: 1, Finished: true}, tracker.Snapshot()["MACD"])
}

func TestResolve_JSONLoadLeavesProgressUntouched(t *testing.T) {
	snaps := snapshot.NewStore(t.TempDir())
	require.NoError(t, snaps.Save("A", resultsFor("A", "json", 1)))

	tracker := progress.NewTracker()
	res := New(nil, nil, snaps, logger.Nop()).Resolve(context.Background(), "A", nil, tr, contracts.Options{FromJSON: true}, tracker)

	assert.Equal(t, SourceJSON, res.Source)
	assert.False(t, tracker.HasProgress("A"))
}

func TestResolve_EmptyCacheIsMiss(t *testing.T) {
	mc := &mockCache{}
	mc.On("Load", mock.Anything, contracts.ResultCategory, "A", tr).Return([]contracts.AnalysisResult{}, nil)
	mc.On("Store", mock.Anything, contracts.ResultCategory, "A", tr, mock.Anything).Return(nil)

	engine := newFakeEngine()
	engine.results["A"] = resultsFor("A", "compute", 2)

	res := New(mc, engine, nil, logger.Nop()).Resolve(context.Background(), "A", securities(2), tr, contracts.AutoOptions(), progress.NewTracker())

	assert.Equal(t, SourceCompute, res.Source)
	assert.True(t, res.CacheWritten)
	mc.AssertExpectations(t)
}

func TestResolve_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		setup     func(mc *mockCache, e *fakeEngine)
		opts      contracts.Options
		snapshots contracts.SnapshotStore
		wantStep  string
		wantCalls int
	}{
		{
			name: "cache read error yields no result",
			setup: func(mc *mockCache, e *fakeEngine) {
				mc.On("Load", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)
			},
			opts:      contracts.AutoOptions(),
			wantStep:  StepCacheLoad,
			wantCalls: 0,
		},
		{
			name: "compute error yields no result",
			setup: func(mc *mockCache, e *fakeEngine) {
				e.errs["A"] = boom
			},
			opts:      contracts.Options{Calc: true, UpdateCache: true},
			wantStep:  StepCompute,
			wantCalls: 1,
		},
		{
			name:      "json read error yields no result",
			setup:     func(mc *mockCache, e *fakeEngine) {},
			opts:      contracts.Options{FromJSON: true, Calc: true},
			snapshots: failingSnapshots{err: boom},
			wantStep:  StepJSON,
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := &mockCache{}
			engine := newFakeEngine()
			engine.results["A"] = resultsFor("A", "compute", 1)
			tt.setup(mc, engine)

			rec := metrics.New()
			r := New(mc, engine, tt.snapshots, logger.Nop()).WithMetrics(rec)
			res := r.Resolve(context.Background(), "A", securities(1), tr, tt.opts, progress.NewTracker())

			assert.Equal(t, SourceNone, res.Source)
			assert.Empty(t, res.Results)
			require.Error(t, res.Err)
			assert.ErrorIs(t, res.Err, boom)
			assert.Contains(t, res.Err.Error(), tt.wantStep)
			assert.Equal(t, tt.wantCalls, engine.calls["A"])
			mc.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestResolve_WriteFailuresKeepResult(t *testing.T) {
	boom := errors.New("disk full")
	mc := &mockCache{}
	mc.On("Store", mock.Anything, contracts.ResultCategory, "A", tr, mock.Anything).Return(boom)

	engine := newFakeEngine()
	engine.results["A"] = resultsFor("A", "compute", 2)

	opts := contracts.Options{Calc: true, UpdateCache: true, DumpJSON: true}
	res := New(mc, engine, failingSnapshots{err: boom}, logger.Nop()).
		Resolve(context.Background(), "A", securities(2), tr, opts, progress.NewTracker())

	assert.Equal(t, SourceCompute, res.Source)
	assert.Len(t, res.Results, 2)
	assert.NoError(t, res.Err)
	assert.ErrorIs(t, res.WriteErr, boom)
	assert.False(t, res.CacheWritten)
	assert.False(t, res.Dumped)
}

type panickingEngine struct{}

func (panickingEngine) Compute(context.Context, []string, string, contracts.TimeRange, contracts.ProgressReporter) ([]contracts.AnalysisResult, error) {
	panic("index out of range")
}

func TestResolve_EnginePanicIsSwallowed(t *testing.T) {
	res := New(nil, panickingEngine{}, nil, logger.Nop()).
		Resolve(context.Background(), "A", securities(1), tr, contracts.Options{Calc: true}, progress.NewTracker())

	assert.Equal(t, SourceNone, res.Source)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "panicked")
}

func TestResolve_NilCollaboratorsSkip(t *testing.T) {
	res := New(nil, nil, nil, logger.Nop()).
		Resolve(context.Background(), "A", nil, tr, contracts.Options{Calc: true, FromCache: true, UpdateCache: true, DumpJSON: true}, progress.NewTracker())

	assert.Equal(t, SourceNone, res.Source)
	assert.NoError(t, res.Err)
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
}
