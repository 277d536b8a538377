package contracts

import "unsafe"

// Score bounds for AnalysisResult.Score
const (
	ScoreMin = 0
	ScoreMax = 100

	ScoreFail = ScoreMin
	ScorePass = ScoreMax
)

// Weight values for AnalysisResult.Weight
const (
	WeightNormal = 1
	// WeightOneVoteVeto 가 붙은 결과가 실패(ScoreFail)이면 종합 점수는 0
	WeightOneVoteVeto = 999999
)

// ResultCategory is the cache category under which analyzer results are stored
// ⭐ SSOT: 캐시 카테고리 문자열은 여기서만 정의
const ResultCategory = "Result.Analyzer"

// AnalysisResult is the verdict of one analyzer on one security
// ⭐ SSOT: 분석 결과 레코드 (캐시, 스냅샷, 리포트 공통)
type AnalysisResult struct {
	Analyzer   string `json:"method"`
	Securities string `json:"securities"`
	Score      int    `json:"score"`
	Reason     string `json:"reason"`
	Weight     int    `json:"weight"`
}

// NewResult builds a result with normal weight and the score clamped to [ScoreMin, ScoreMax]
func NewResult(analyzer, securities string, score int, reason string) AnalysisResult {
	return AnalysisResult{
		Analyzer:   analyzer,
		Securities: securities,
		Score:      ClampScore(score),
		Reason:     reason,
		Weight:     WeightNormal,
	}
}

// ClampScore keeps a score inside [ScoreMin, ScoreMax]
func ClampScore(score int) int {
	if score < ScoreMin {
		return ScoreMin
	}
	if score > ScoreMax {
		return ScoreMax
	}
	return score
}

// Passed reports whether the result is not a failing verdict
func (r AnalysisResult) Passed() bool {
	return r.Score > ScoreFail
}

// IsVeto reports whether this result carries one-vote-veto weight
func (r AnalysisResult) IsVeto() bool {
	return r.Weight >= WeightOneVoteVeto
}

// RoughSize returns an approximate in-memory size of the result in bytes
func (r AnalysisResult) RoughSize() int {
	return int(unsafe.Sizeof(r)) + len(r.Analyzer) + len(r.Securities) + len(r.Reason)
}

// RoughSizeOf sums RoughSize over a result list
func RoughSizeOf(results []AnalysisResult) int {
	total := 0
	for _, r := range results {
		total += r.RoughSize()
	}
	return total
}
