package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/pkg/logger"
)

type fakePrices struct {
	byCode map[string][]*contracts.Price
	err    map[string]error
}

func (f *fakePrices) GetByCodeAndDateRange(_ context.Context, code string, _, _ time.Time) ([]*contracts.Price, error) {
	if err := f.err[code]; err != nil {
		return nil, err
	}
	return f.byCode[code], nil
}

type fakeFinancials struct {
	byCode map[string]*contracts.Financial
}

func (f *fakeFinancials) GetLatestByCode(_ context.Context, code string, _ time.Time) (*contracts.Financial, error) {
	return f.byCode[code], nil
}

// ascending prices, the order the repository returns them in
func risingPrices(code string, n int) []*contracts.Price {
	out := make([]*contracts.Price, n)
	for i := 0; i < n; i++ {
		out[i] = &contracts.Price{
			Code:   code,
			Date:   baseDate.AddDate(0, 0, -(n - 1 - i)),
			Close:  int64(10000 + i*100),
			Volume: 1000,
		}
	}
	return out
}

func testRange() contracts.TimeRange {
	return contracts.TimeRange{Since: baseDate.AddDate(-1, 0, 0), Until: baseDate}
}

func TestEngine_Compute(t *testing.T) {
	prices := &fakePrices{
		byCode: map[string][]*contracts.Price{
			"005930": risingPrices("005930", 80),
			"000660": risingPrices("000660", 80),
			"035720": risingPrices("035720", 10), // too short
		},
		err: map[string]error{"999999": errors.New("connection reset")},
	}
	engine := NewEngine(DefaultRegistry(), contracts.MarketData{Prices: prices}, logger.Nop())
	tracker := progress.NewTracker()

	results, err := engine.Compute(context.Background(),
		[]string{"005930", "999999", "000660", "035720"}, IDMomentum, testRange(), tracker)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "005930", results[0].Securities)
	assert.Equal(t, "000660", results[1].Securities)
	for _, r := range results {
		assert.Equal(t, IDMomentum, r.Analyzer)
		assert.Greater(t, r.Score, 50, "rising prices should score above neutral")
	}

	assert.True(t, tracker.IsFinished(IDMomentum))
	assert.Equal(t, 1.0, tracker.ProgressRate(IDMomentum))
}

func TestEngine_Compute_Financials(t *testing.T) {
	fins := &fakeFinancials{byCode: map[string]*contracts.Financial{
		"A": {Code: "A", PER: 8, PBR: 0.8, PSR: 1},
		"B": {Code: "B", PER: -1},
	}}
	engine := NewEngine(DefaultRegistry(), contracts.MarketData{Financials: fins}, logger.Nop())

	results, err := engine.Compute(context.Background(), []string{"A", "B", "C"}, IDPERank, testRange(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].IsVeto())
	assert.True(t, results[1].IsVeto())
}

func TestEngine_Compute_UnknownAnalyzer(t *testing.T) {
	engine := NewEngine(DefaultRegistry(), contracts.MarketData{}, logger.Nop())

	_, err := engine.Compute(context.Background(), []string{"A"}, "NOPE", testRange(), nil)
	assert.ErrorIs(t, err, ErrUnknownAnalyzer)
}

func TestEngine_Compute_MissingRepository(t *testing.T) {
	engine := NewEngine(DefaultRegistry(), contracts.MarketData{}, logger.Nop())

	// every security fails to load: no results, no error
	results, err := engine.Compute(context.Background(), []string{"A", "B"}, IDFlow, testRange(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_Compute_Cancelled(t *testing.T) {
	prices := &fakePrices{byCode: map[string][]*contracts.Price{"A": risingPrices("A", 80)}}
	engine := NewEngine(DefaultRegistry(), contracts.MarketData{Prices: prices}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Compute(ctx, []string{"A"}, IDMomentum, testRange(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_ImplementsContract(t *testing.T) {
	var _ contracts.Engine = (*Engine)(nil)
}
