package contracts

import "context"

// Security is one entry of the security universe
type Security struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market,omitempty"`
}

// SecuritySource enumerates the security universe
// ⭐ SSOT: 종목 목록 조회 인터페이스
type SecuritySource interface {
	SecurityIdentities(ctx context.Context) ([]string, error)
	SecurityList(ctx context.Context) ([]Security, error)
}

// ResultCache persists analyzer results keyed by (category, analyzer, time range).
// An empty Load result is a miss.
// ⭐ SSOT: 분석 결과 캐시 인터페이스
type ResultCache interface {
	Load(ctx context.Context, category, analyzer string, tr TimeRange) ([]AnalysisResult, error)
	Store(ctx context.Context, category, analyzer string, tr TimeRange, results []AnalysisResult) error
}

// ProgressReporter is the write side of the progress tracker
type ProgressReporter interface {
	SetProgress(key string, numerator, denominator int)
	FinishProgress(key string)
}

// Engine runs one analyzer over a set of securities
// ⭐ SSOT: 분석 엔진 인터페이스
type Engine interface {
	Compute(ctx context.Context, securities []string, analyzer string, tr TimeRange, progress ProgressReporter) ([]AnalysisResult, error)
}

// SnapshotStore reads and writes per-analyzer debug snapshots
type SnapshotStore interface {
	Load(analyzer string) ([]AnalysisResult, error)
	Save(analyzer string, results []AnalysisResult) error
}

// Observer receives exactly one completion per submitted run
type Observer interface {
	RunCompleted(c Completion)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(c Completion)

// RunCompleted implements Observer
func (f ObserverFunc) RunCompleted(c Completion) {
	f(c)
}
