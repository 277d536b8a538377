package analyzer

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/sas/internal/contracts"
)

// PERank scores valuation from PER/PBR/PSR. Loss-making companies (PER <= 0)
// get a one-vote veto.
// ⭐ SSOT: 밸류에이션 분석은 여기서만
type PERank struct{}

// ID implements Analyzer
func (PERank) ID() string { return IDPERank }

// Needs implements Analyzer
func (PERank) Needs() Needs { return Needs{Financials: true} }

// Analyze implements Analyzer
func (PERank) Analyze(_ context.Context, in Input) (contracts.AnalysisResult, bool) {
	f := in.Financial
	if f == nil {
		return contracts.AnalysisResult{}, false
	}

	if f.PER <= 0 {
		r := contracts.NewResult(IDPERank, in.Code, contracts.ScoreFail, fmt.Sprintf("적자 기업 (PER %.1f)", f.PER))
		r.Weight = contracts.WeightOneVoteVeto
		return r, true
	}

	perScore := ratioScore(f.PER, 15.0)
	pbrScore := ratioScore(f.PBR, 1.5)
	psrScore := ratioScore(f.PSR, 2.0)

	// PER: 50%, PBR: 30%, PSR: 20%
	signal := math.Tanh((perScore*0.5 + pbrScore*0.3 + psrScore*0.2) * 1.5)

	reason := fmt.Sprintf("PER %.1f, PBR %.2f, PSR %.2f", f.PER, f.PBR, f.PSR)
	return contracts.NewResult(IDPERank, in.Code, toScore(signal), reason), true
}

// ratioScore rewards ratios below the benchmark; non-positive ratios are neutral
func ratioScore(value, benchmark float64) float64 {
	if value <= 0 {
		return 0.0
	}
	return clampUnit((benchmark - value) / benchmark)
}
