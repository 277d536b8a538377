package analyzer

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/sas/internal/contracts"
)

// Momentum scores 1M/3M returns and volume growth
// ⭐ SSOT: 모멘텀 분석은 여기서만
type Momentum struct{}

// ID implements Analyzer
func (Momentum) ID() string { return IDMomentum }

// Needs implements Analyzer
func (Momentum) Needs() Needs { return Needs{Prices: true} }

// Analyze implements Analyzer
func (m Momentum) Analyze(_ context.Context, in Input) (contracts.AnalysisResult, bool) {
	// ~3 months (60 trading days) + 1
	if len(in.Prices) < 61 {
		return contracts.AnalysisResult{}, false
	}

	return1M := periodReturn(in.Prices, 20)
	return3M := periodReturn(in.Prices, 60)
	volumeRate := volumeGrowth(in.Prices, 20)

	// Return1M: 40%, Return3M: 40%, VolumeRate: 20%
	signal := math.Tanh((return1M*0.4 + return3M*0.4 + volumeRate*0.2) * 2)

	reason := fmt.Sprintf("1M %.1f%%, 3M %.1f%%, volume %+.1f%%", return1M*100, return3M*100, volumeRate*100)
	return contracts.NewResult(IDMomentum, in.Code, toScore(signal), reason), true
}

// periodReturn calculates price return over days
func periodReturn(prices []PricePoint, days int) float64 {
	if len(prices) < days+1 {
		return 0.0
	}

	current := prices[0].Price
	past := prices[days].Price
	if current == 0 || past == 0 {
		return 0.0
	}

	return (float64(current) - float64(past)) / float64(past)
}

// volumeGrowth compares average volume of the recent and the previous window
func volumeGrowth(prices []PricePoint, days int) float64 {
	if len(prices) < days*2 {
		return 0.0
	}

	recent := averageVolume(prices[:days])
	past := averageVolume(prices[days : days*2])
	if past == 0 {
		return 0.0
	}

	return (recent - past) / past
}

func averageVolume(prices []PricePoint) float64 {
	if len(prices) == 0 {
		return 0.0
	}

	var sum int64
	for _, p := range prices {
		sum += p.Volume
	}
	return float64(sum) / float64(len(prices))
}
