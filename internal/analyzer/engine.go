package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/pkg/logger"
)

// Engine runs registered analyzers over securities using market data
// ⭐ SSOT: contracts.Engine 구현
type Engine struct {
	registry *Registry
	data     contracts.MarketData
	logger   *logger.Logger
	logEvery time.Duration
}

// NewEngine creates a new analysis engine
func NewEngine(registry *Registry, data contracts.MarketData, log *logger.Logger) *Engine {
	return &Engine{
		registry: registry,
		data:     data,
		logger:   log.WithComponent("analyzer"),
		logEvery: 5 * time.Second,
	}
}

// DefaultRegistry returns a registry with all built-in analyzers
func DefaultRegistry() *Registry {
	return NewRegistry(
		Momentum{},
		MACD{},
		RSI{},
		PERank{},
		Quality{},
		Flow{},
	)
}

// Registry returns the engine's analyzer registry
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Compute implements contracts.Engine. Per-security data errors are logged
// and skipped; only an unknown analyzer or context cancellation fail the call.
func (e *Engine) Compute(
	ctx context.Context,
	securities []string,
	analyzerID string,
	tr contracts.TimeRange,
	progress contracts.ProgressReporter,
) ([]contracts.AnalysisResult, error) {
	a, err := e.registry.Get(analyzerID)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithField("analyzer", analyzerID)
	total := len(securities)
	if progress != nil {
		progress.SetProgress(analyzerID, 0, total)
	}

	// 진행 로그는 일정 간격으로만
	sometimes := rate.Sometimes{First: 1, Interval: e.logEvery}
	results := make([]contracts.AnalysisResult, 0, total)
	skipped := 0

	for i, code := range securities {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("compute %s: %w", analyzerID, err)
		}

		in, err := e.load(ctx, code, tr, a.Needs())
		if err != nil {
			log.WithError(err).WithField("code", code).Warn("Failed to load market data")
			skipped++
		} else if r, ok := a.Analyze(ctx, in); ok {
			results = append(results, r)
		} else {
			skipped++
		}

		if progress != nil {
			progress.SetProgress(analyzerID, i+1, total)
		}
		sometimes.Do(func() {
			log.WithFields(map[string]interface{}{
				"done":  i + 1,
				"total": total,
			}).Debug("Analysis progress")
		})
	}

	if progress != nil {
		progress.FinishProgress(analyzerID)
	}

	log.WithFields(map[string]interface{}{
		"results": len(results),
		"skipped": skipped,
	}).Info("Analysis completed")

	return results, nil
}

// load reads the market data an analyzer needs for one security
func (e *Engine) load(ctx context.Context, code string, tr contracts.TimeRange, needs Needs) (Input, error) {
	in := Input{Code: code}

	if needs.Prices {
		if e.data.Prices == nil {
			return in, fmt.Errorf("price repository not configured")
		}
		prices, err := e.data.Prices.GetByCodeAndDateRange(ctx, code, tr.Since, tr.Until)
		if err != nil {
			return in, fmt.Errorf("get prices: %w", err)
		}
		in.Prices = make([]PricePoint, 0, len(prices))
		for _, p := range prices {
			in.Prices = append(in.Prices, PricePoint{Date: p.Date, Price: p.Close, Volume: p.Volume})
		}
		sortNewestFirst(in.Prices)
	}

	if needs.Flows {
		if e.data.Flows == nil {
			return in, fmt.Errorf("investor flow repository not configured")
		}
		flows, err := e.data.Flows.GetByCodeAndDateRange(ctx, code, tr.Since, tr.Until)
		if err != nil {
			return in, fmt.Errorf("get investor flow: %w", err)
		}
		in.Flows = make([]FlowPoint, 0, len(flows))
		for _, f := range flows {
			in.Flows = append(in.Flows, FlowPoint{
				Date:          f.Date,
				ForeignNet:    f.ForeignNet,
				InstNet:       f.InstitutionNet,
				IndividualNet: f.IndividualNet,
			})
		}
		sort.SliceStable(in.Flows, func(i, j int) bool {
			return in.Flows[i].Date.After(in.Flows[j].Date)
		})
	}

	if needs.Financials {
		if e.data.Financials == nil {
			return in, fmt.Errorf("financial repository not configured")
		}
		fin, err := e.data.Financials.GetLatestByCode(ctx, code, tr.Until)
		if err != nil {
			return in, fmt.Errorf("get financials: %w", err)
		}
		in.Financial = fin
	}

	return in, nil
}
