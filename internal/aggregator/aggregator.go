package aggregator

import (
	"sync"
	"unsafe"

	"github.com/wonny/sas/internal/contracts"
)

// Segment is the slice of the aggregated set contributed by one analyzer
type Segment struct {
	Analyzer string
	Offset   int
	Length   int
}

// Aggregator accumulates per-analyzer result lists in processing order.
// Append-only for the lifetime of one run.
// ⭐ SSOT: 실행 단위 결과 집계
type Aggregator struct {
	mu       sync.RWMutex
	results  []contracts.AnalysisResult
	segments []Segment
	byteSize int
}

// New creates an empty aggregator
func New() *Aggregator {
	return &Aggregator{}
}

// Append adds the results of one analyzer and returns the running byte-size estimate
func (a *Aggregator) Append(analyzer string, results []contracts.AnalysisResult) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.segments = append(a.segments, Segment{
		Analyzer: analyzer,
		Offset:   len(a.results),
		Length:   len(results),
	})
	a.results = append(a.results, results...)
	a.byteSize += contracts.RoughSizeOf(results)

	return a.sizeLocked()
}

// Results returns a copy of the aggregated set
func (a *Aggregator) Results() []contracts.AnalysisResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]contracts.AnalysisResult, len(a.results))
	copy(out, a.results)
	return out
}

// Segments returns per-analyzer segments in append order
func (a *Aggregator) Segments() []Segment {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Segment, len(a.segments))
	copy(out, a.segments)
	return out
}

// Len returns the number of aggregated results
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.results)
}

// ByteSize returns the approximate memory footprint in bytes
func (a *Aggregator) ByteSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.sizeLocked()
}

// SizeMB converts a byte count to megabytes for logging
func SizeMB(bytes int) float64 {
	return float64(bytes) / 1024 / 1024
}

func (a *Aggregator) sizeLocked() int {
	return int(unsafe.Sizeof(a.results)) + a.byteSize
}
