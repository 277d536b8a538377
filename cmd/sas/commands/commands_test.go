package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sas/internal/cache"
	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/pkg/config"
)

var testAnalysis = config.AnalysisConfig{
	ReportPath:    "analysis_report.xlsx",
	LookbackYears: 5,
}

func TestAnalyzeFlags_Request(t *testing.T) {
	now := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	defaults := []string{"MACD", "FLOW"}

	t.Run("defaults", func(t *testing.T) {
		req, err := analyzeFlags{mask: -1}.request(testAnalysis, defaults, now)
		require.NoError(t, err)

		assert.Equal(t, defaults, req.Analyzers)
		assert.Equal(t, "analysis_report.xlsx", req.OutputPath)
		assert.Equal(t, contracts.AutoOptions(), req.Options)
		assert.Equal(t, contracts.DefaultTimeRange(now, 5), req.TimeRange)
		assert.Equal(t, contracts.TriggerManual, req.Trigger)
		assert.Empty(t, req.Securities)
	})

	t.Run("toggles", func(t *testing.T) {
		f := analyzeFlags{
			analyzers:     []string{" macd", "", "rsi "},
			forceCalc:     true,
			noCacheResult: true,
			dumpJSON:      true,
			mask:          -1,
		}
		req, err := f.request(testAnalysis, defaults, now)
		require.NoError(t, err)

		assert.Equal(t, []string{"MACD", "RSI"}, req.Analyzers)
		assert.Equal(t, contracts.Options{Calc: true, DumpJSON: true}, req.Options)
	})

	t.Run("mask overrides toggles", func(t *testing.T) {
		req, err := analyzeFlags{forceCalc: true, mask: 1024 | 2048}.request(testAnalysis, defaults, now)
		require.NoError(t, err)
		assert.Equal(t, contracts.Options{FromJSON: true, DumpJSON: true}, req.Options)
	})

	t.Run("explicit empty output is kept for validation", func(t *testing.T) {
		req, err := analyzeFlags{output: "", outputChanged: true, mask: -1}.request(testAnalysis, defaults, now)
		require.NoError(t, err)
		assert.Empty(t, req.OutputPath)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := analyzeFlags{since: "2024/01/01", mask: -1}.request(testAnalysis, defaults, now)
		assert.ErrorIs(t, err, contracts.ErrInvalidRequest)
	})
}

func TestProgressLine(t *testing.T) {
	tracker := progress.NewTracker()
	tracker.SetProgress("MACD", 1, 4)
	tracker.SetProgress("FLOW", 2, 2)

	assert.Equal(t, "MACD 25.00% | FLOW 100.00% | RSI -", progressLine(tracker, []string{"MACD", "FLOW", "RSI"}))
}

type brokenLister struct{ contracts.ResultCache }

func (brokenLister) Analyzers(string) ([]string, error) { return nil, errors.New("disk gone") }

func TestPrintCachedAnalyzers(t *testing.T) {
	m := cache.NewMemory()
	require.NoError(t, m.Store(context.Background(), contracts.ResultCategory, "MACD", contracts.TimeRange{}, nil))

	assert.NoError(t, printCachedAnalyzers(m))
	assert.NoError(t, printCachedAnalyzers(cache.NewMemory()))

	// 목록을 지원하지 않는 백엔드는 안내만 출력
	var plain struct{ contracts.ResultCache }
	assert.NoError(t, printCachedAnalyzers(plain))

	assert.ErrorContains(t, printCachedAnalyzers(brokenLister{}), "disk gone")
}
