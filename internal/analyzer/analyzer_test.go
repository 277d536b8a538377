package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sas/internal/contracts"
)

var baseDate = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

// series builds newest-first price points from a generator of day offsets
func series(n int, price func(i int) int64, volume func(i int) int64) []PricePoint {
	out := make([]PricePoint, n)
	for i := 0; i < n; i++ {
		out[i] = PricePoint{
			Date:   baseDate.AddDate(0, 0, -i),
			Price:  price(i),
			Volume: volume(i),
		}
	}
	return out
}

func flat(v int64) func(int) int64 { return func(int) int64 { return v } }

func TestToScore(t *testing.T) {
	tests := []struct {
		signal float64
		want   int
	}{
		{-1, 0},
		{0, 50},
		{1, 100},
		{0.5, 75},
		{-2, 0},
		{2, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, toScore(tt.signal), "signal %v", tt.signal)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{IDMomentum, IDMACD, IDRSI, IDPERank, IDQuality, IDFlow}, r.IDs())

	a, err := r.Get(IDMACD)
	require.NoError(t, err)
	assert.Equal(t, IDMACD, a.ID())

	_, err = r.Get("NOPE")
	assert.ErrorIs(t, err, ErrUnknownAnalyzer)

	// re-register keeps order
	r.Register(MACD{})
	assert.Len(t, r.IDs(), 6)
}

func TestMomentum(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient data", func(t *testing.T) {
		_, ok := Momentum{}.Analyze(ctx, Input{Code: "005930", Prices: series(30, flat(100), flat(10))})
		assert.False(t, ok)
	})

	t.Run("uptrend scores high", func(t *testing.T) {
		// newest first: price falls as i grows
		prices := series(80, func(i int) int64 { return int64(20000 - i*100) }, flat(1000))
		r, ok := Momentum{}.Analyze(ctx, Input{Code: "005930", Prices: prices})
		require.True(t, ok)
		assert.Equal(t, IDMomentum, r.Analyzer)
		assert.Equal(t, "005930", r.Securities)
		assert.Greater(t, r.Score, 50)
	})

	t.Run("downtrend scores low", func(t *testing.T) {
		prices := series(80, func(i int) int64 { return int64(10000 + i*100) }, flat(1000))
		r, ok := Momentum{}.Analyze(ctx, Input{Code: "005930", Prices: prices})
		require.True(t, ok)
		assert.Less(t, r.Score, 50)
	})
}

func TestRelativeStrength(t *testing.T) {
	t.Run("all gains", func(t *testing.T) {
		prices := series(20, func(i int) int64 { return int64(1000 - i*10) }, flat(1))
		assert.Equal(t, 100.0, relativeStrength(prices, 14))
	})

	t.Run("flat is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, relativeStrength(series(20, flat(1000), flat(1)), 14))
	})

	t.Run("all losses", func(t *testing.T) {
		prices := series(20, func(i int) int64 { return int64(1000 + i*10) }, flat(1))
		assert.InDelta(t, 0.0, relativeStrength(prices, 14), 0.0001)
	})
}

func TestRSI(t *testing.T) {
	ctx := context.Background()

	// overbought
	up := series(20, func(i int) int64 { return int64(1000 - i*10) }, flat(1))
	r, ok := RSI{}.Analyze(ctx, Input{Code: "A", Prices: up})
	require.True(t, ok)
	assert.Less(t, r.Score, 50)
	assert.Contains(t, r.Reason, "RSI(14)")

	// oversold
	down := series(20, func(i int) int64 { return int64(1000 + i*10) }, flat(1))
	r, ok = RSI{}.Analyze(ctx, Input{Code: "A", Prices: down})
	require.True(t, ok)
	assert.Greater(t, r.Score, 50)
}

func TestMACD(t *testing.T) {
	ctx := context.Background()

	_, ok := MACD{}.Analyze(ctx, Input{Code: "A", Prices: series(20, flat(100), flat(1))})
	assert.False(t, ok)

	up := series(60, func(i int) int64 { return int64(20000 - i*100) }, flat(1))
	r, ok := MACD{}.Analyze(ctx, Input{Code: "A", Prices: up})
	require.True(t, ok)
	assert.Greater(t, r.Score, 50)
	assert.Contains(t, r.Reason, "above")

	r, ok = MACD{}.Analyze(ctx, Input{Code: "A", Prices: series(60, flat(1000), flat(1))})
	require.True(t, ok)
	assert.Equal(t, 50, r.Score)
}

func TestEMA(t *testing.T) {
	assert.InDelta(t, 1000.0, ema(series(40, flat(1000), flat(1)), 12), 0.0001)
	assert.Equal(t, 0.0, ema(series(5, flat(1000), flat(1)), 12))
}

func TestPERank(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		fin      *contracts.Financial
		ok       bool
		veto     bool
		minScore int
		maxScore int
	}{
		{name: "no financials", fin: nil, ok: false},
		{name: "loss making is vetoed", fin: &contracts.Financial{PER: -3}, ok: true, veto: true, maxScore: 0},
		{name: "cheap", fin: &contracts.Financial{PER: 5, PBR: 0.5, PSR: 0.5}, ok: true, minScore: 70, maxScore: 100},
		{name: "expensive", fin: &contracts.Financial{PER: 40, PBR: 5, PSR: 8}, ok: true, minScore: 0, maxScore: 30},
		{name: "at benchmark", fin: &contracts.Financial{PER: 15, PBR: 1.5, PSR: 2}, ok: true, minScore: 50, maxScore: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := PERank{}.Analyze(ctx, Input{Code: "A", Financial: tt.fin})
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.veto, r.IsVeto())
			assert.GreaterOrEqual(t, r.Score, tt.minScore)
			assert.LessOrEqual(t, r.Score, tt.maxScore)
		})
	}
}

func TestQuality(t *testing.T) {
	ctx := context.Background()

	r, ok := Quality{}.Analyze(ctx, Input{Code: "A", Financial: &contracts.Financial{ROE: 5, DebtRatio: 450}})
	require.True(t, ok)
	assert.True(t, r.IsVeto())
	assert.Equal(t, contracts.ScoreFail, r.Score)

	good, ok := Quality{}.Analyze(ctx, Input{Code: "A", Financial: &contracts.Financial{ROE: 25, DebtRatio: 30}})
	require.True(t, ok)
	weak, ok := Quality{}.Analyze(ctx, Input{Code: "A", Financial: &contracts.Financial{ROE: 2, DebtRatio: 200}})
	require.True(t, ok)
	assert.Greater(t, good.Score, weak.Score)
	assert.False(t, good.IsVeto())
}

func TestFlow(t *testing.T) {
	ctx := context.Background()

	mk := func(n int, foreign, inst int64) []FlowPoint {
		out := make([]FlowPoint, n)
		for i := range out {
			out[i] = FlowPoint{Date: baseDate.AddDate(0, 0, -i), ForeignNet: foreign, InstNet: inst}
		}
		return out
	}

	_, ok := Flow{}.Analyze(ctx, Input{Code: "A", Flows: mk(10, 1, 1)})
	assert.False(t, ok)

	buy, ok := Flow{}.Analyze(ctx, Input{Code: "A", Flows: mk(25, 500_000_000, 300_000_000)})
	require.True(t, ok)
	assert.Greater(t, buy.Score, 50)
	assert.Contains(t, buy.Reason, "streak 25")

	sell, ok := Flow{}.Analyze(ctx, Input{Code: "A", Flows: mk(25, -500_000_000, -300_000_000)})
	require.True(t, ok)
	assert.Less(t, sell.Score, 50)
	assert.Contains(t, sell.Reason, "streak -25")
}

func TestNetStreak(t *testing.T) {
	flows := []FlowPoint{{ForeignNet: 3}, {ForeignNet: 1}, {ForeignNet: -2}, {ForeignNet: 5}}
	assert.Equal(t, 2, netStreak(flows, foreignNet))
	assert.Equal(t, 0, netStreak([]FlowPoint{{ForeignNet: 0}}, foreignNet))
	assert.Equal(t, 0, netStreak(nil, foreignNet))
}
