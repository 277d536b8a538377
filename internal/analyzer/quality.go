package analyzer

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/sas/internal/contracts"
)

// MaxDebtRatio above which QUALITY vetoes a security (%)
const MaxDebtRatio = 300.0

// Quality scores ROE and debt ratio
// ⭐ SSOT: 퀄리티 분석은 여기서만
type Quality struct{}

// ID implements Analyzer
func (Quality) ID() string { return IDQuality }

// Needs implements Analyzer
func (Quality) Needs() Needs { return Needs{Financials: true} }

// Analyze implements Analyzer
func (Quality) Analyze(_ context.Context, in Input) (contracts.AnalysisResult, bool) {
	f := in.Financial
	if f == nil {
		return contracts.AnalysisResult{}, false
	}

	if f.DebtRatio > MaxDebtRatio {
		r := contracts.NewResult(IDQuality, in.Code, contracts.ScoreFail, fmt.Sprintf("부채비율 과다 (%.0f%%)", f.DebtRatio))
		r.Weight = contracts.WeightOneVoteVeto
		return r, true
	}

	// ROE 10% 중립, 25% 이상 만점
	roeScore := clampUnit((f.ROE - 10.0) / 15.0)

	var debtScore float64
	if f.DebtRatio > 0 {
		debtScore = clampUnit((100.0 - f.DebtRatio) / 100.0)
	}

	// ROE: 60%, DebtRatio: 40%
	signal := math.Tanh((roeScore*0.6 + debtScore*0.4) * 1.5)

	reason := fmt.Sprintf("ROE %.1f%%, debt %.0f%%", f.ROE, f.DebtRatio)
	return contracts.NewResult(IDQuality, in.Code, toScore(signal), reason), true
}
