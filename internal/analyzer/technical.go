package analyzer

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/sas/internal/contracts"
)

// MACD scores the EMA12-EMA26 spread relative to price plus the MA20 position
// ⭐ SSOT: MACD 분석은 여기서만
type MACD struct{}

// ID implements Analyzer
func (MACD) ID() string { return IDMACD }

// Needs implements Analyzer
func (MACD) Needs() Needs { return Needs{Prices: true} }

// Analyze implements Analyzer
func (MACD) Analyze(_ context.Context, in Input) (contracts.AnalysisResult, bool) {
	if len(in.Prices) < 35 {
		return contracts.AnalysisResult{}, false
	}

	price := float64(in.Prices[0].Price)
	if price <= 0 {
		return contracts.AnalysisResult{}, false
	}

	macd := ema(in.Prices, 12) - ema(in.Prices, 26)
	cross := ma20Cross(in.Prices)

	// 가격 대비 비율로 정규화 (종목 가격대와 무관하게)
	macdSignal := math.Tanh(macd / price * 20)
	signal := clampUnit(macdSignal*0.7 + float64(cross)*0.3)

	reason := fmt.Sprintf("MACD %.1f (%.2f%% of price), MA20 %s", macd, macd/price*100, crossLabel(cross))
	return contracts.NewResult(IDMACD, in.Code, toScore(signal), reason), true
}

// RSI scores 14-day Relative Strength Index: oversold high, overbought low
// ⭐ SSOT: RSI 분석은 여기서만
type RSI struct{}

// ID implements Analyzer
func (RSI) ID() string { return IDRSI }

// Needs implements Analyzer
func (RSI) Needs() Needs { return Needs{Prices: true} }

// Analyze implements Analyzer
func (RSI) Analyze(_ context.Context, in Input) (contracts.AnalysisResult, bool) {
	if len(in.Prices) < 15 {
		return contracts.AnalysisResult{}, false
	}

	rsi := relativeStrength(in.Prices, 14)

	// RSI < 30: oversold (positive), RSI > 70: overbought (negative)
	var signal float64
	switch {
	case rsi < 30:
		signal = 0.5 + (30-rsi)/60
	case rsi > 70:
		signal = -0.5 - (rsi-70)/60
	default:
		signal = (50 - rsi) / 40
	}

	reason := fmt.Sprintf("RSI(14) %.1f", rsi)
	return contracts.NewResult(IDRSI, in.Code, toScore(clampUnit(signal)), reason), true
}

// relativeStrength calculates RSI over period, prices newest first
func relativeStrength(prices []PricePoint, period int) float64 {
	if len(prices) < period+1 {
		return 50.0 // Neutral
	}

	var gains, losses float64
	for i := 0; i < period; i++ {
		change := float64(prices[i].Price - prices[i+1].Price)
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50.0
		}
		return 100.0
	}

	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - (100 / (1 + rs))
}

// ema calculates the exponential moving average, seeded with the oldest SMA
func ema(prices []PricePoint, period int) float64 {
	if len(prices) < period {
		return 0.0
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += float64(prices[len(prices)-period+i].Price)
	}
	value := sum / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for i := len(prices) - period - 1; i >= 0; i-- {
		value = float64(prices[i].Price)*multiplier + value*(1-multiplier)
	}

	return value
}

// ma20Cross returns 1 above MA20 by 2%, -1 below by 2%, else 0
func ma20Cross(prices []PricePoint) int {
	if len(prices) < 20 {
		return 0
	}

	var sum int64
	for i := 0; i < 20; i++ {
		sum += prices[i].Price
	}
	ma20 := float64(sum) / 20.0
	if ma20 == 0 {
		return 0
	}

	diff := (float64(prices[0].Price) - ma20) / ma20
	switch {
	case diff > 0.02:
		return 1
	case diff < -0.02:
		return -1
	default:
		return 0
	}
}

func crossLabel(cross int) string {
	switch cross {
	case 1:
		return "above"
	case -1:
		return "below"
	default:
		return "neutral"
	}
}
