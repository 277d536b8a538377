package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/sas/internal/contracts"
)

// ErrUnknownAnalyzer is returned by the engine for ids not in the registry
var ErrUnknownAnalyzer = errors.New("unknown analyzer")

// Analyzer ids
const (
	IDMomentum = "MOMENTUM"
	IDMACD     = "MACD"
	IDRSI      = "RSI"
	IDPERank   = "PE_RANK"
	IDQuality  = "QUALITY"
	IDFlow     = "FLOW"
)

// PricePoint represents a price data point
type PricePoint struct {
	Date   time.Time
	Price  int64
	Volume int64
}

// FlowPoint is one day of investor net buying
type FlowPoint struct {
	Date          time.Time
	ForeignNet    int64
	InstNet       int64
	IndividualNet int64
}

// Needs declares which market data an analyzer reads
type Needs struct {
	Prices     bool
	Flows      bool
	Financials bool
}

// Input is the market data of one security, newest first
type Input struct {
	Code      string
	Prices    []PricePoint
	Flows     []FlowPoint
	Financial *contracts.Financial
}

// Analyzer scores one security
// ⭐ SSOT: 개별 분석기 인터페이스
type Analyzer interface {
	ID() string
	Needs() Needs
	// Analyze returns false when there is not enough data for a verdict
	Analyze(ctx context.Context, in Input) (contracts.AnalysisResult, bool)
}

// Registry holds analyzers in registration order
type Registry struct {
	order []string
	byID  map[string]Analyzer
}

// NewRegistry creates a registry with the given analyzers
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{byID: make(map[string]Analyzer)}
	for _, a := range analyzers {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an analyzer
func (r *Registry) Register(a Analyzer) {
	if _, exists := r.byID[a.ID()]; !exists {
		r.order = append(r.order, a.ID())
	}
	r.byID[a.ID()] = a
}

// Get looks up an analyzer by id
func (r *Registry) Get(id string) (Analyzer, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAnalyzer, id)
	}
	return a, nil
}

// IDs returns analyzer ids in registration order
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// toScore maps a signal in [-1, 1] onto [ScoreMin, ScoreMax]
func toScore(signal float64) int {
	if math.IsNaN(signal) {
		return contracts.ScoreMin + (contracts.ScoreMax-contracts.ScoreMin)/2
	}
	return contracts.ClampScore(int(math.Round((signal + 1) * 50)))
}

func clampUnit(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// sortNewestFirst orders price points by date descending
func sortNewestFirst(points []PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.After(points[j].Date)
	})
}
