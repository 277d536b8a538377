package analyzer

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/sas/internal/contracts"
)

// Flow scores foreign and institutional net buying
// ⭐ SSOT: 수급 분석은 여기서만
type Flow struct{}

// ID implements Analyzer
func (Flow) ID() string { return IDFlow }

// Needs implements Analyzer
func (Flow) Needs() Needs { return Needs{Flows: true} }

// Analyze implements Analyzer
func (Flow) Analyze(_ context.Context, in Input) (contracts.AnalysisResult, bool) {
	if len(in.Flows) < 20 {
		return contracts.AnalysisResult{}, false
	}

	foreign5D := sumNet(in.Flows[:5], foreignNet)
	foreign20D := sumNet(in.Flows[:20], foreignNet)
	inst5D := sumNet(in.Flows[:5], instNet)
	inst20D := sumNet(in.Flows[:20], instNet)

	// 5D: 10억, 20D: 50억 기준 정규화
	foreignSignal := math.Tanh(float64(foreign5D)/1e9)*0.7 + math.Tanh(float64(foreign20D)/5e9)*0.3
	instSignal := math.Tanh(float64(inst5D)/1e9)*0.7 + math.Tanh(float64(inst20D)/5e9)*0.3

	// Foreign: 60%, Institution: 40%
	signal := clampUnit(foreignSignal*0.6 + instSignal*0.4)

	reason := fmt.Sprintf("foreign 5D %d (streak %d), inst 5D %d (streak %d)",
		foreign5D, netStreak(in.Flows, foreignNet), inst5D, netStreak(in.Flows, instNet))
	return contracts.NewResult(IDFlow, in.Code, toScore(signal), reason), true
}

func foreignNet(f FlowPoint) int64 { return f.ForeignNet }
func instNet(f FlowPoint) int64    { return f.InstNet }

func sumNet(flows []FlowPoint, pick func(FlowPoint) int64) int64 {
	var sum int64
	for _, f := range flows {
		sum += pick(f)
	}
	return sum
}

// netStreak counts consecutive buying (+) or selling (-) days from the latest
func netStreak(flows []FlowPoint, pick func(FlowPoint) int64) int {
	if len(flows) == 0 {
		return 0
	}

	first := pick(flows[0])
	if first == 0 {
		return 0
	}

	streak := 0
	for _, f := range flows {
		v := pick(f)
		if (first > 0 && v > 0) || (first < 0 && v < 0) {
			streak++
			continue
		}
		break
	}

	if first < 0 {
		return -streak
	}
	return streak
}
