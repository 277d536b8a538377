package report

import (
	"math"

	"github.com/wonny/sas/internal/contracts"
)

// Row is one security across all analyzers
type Row struct {
	Securities string
	Cells      map[string]contracts.AnalysisResult // analyzer id -> result
}

// Table is the securities x analyzers view of an aggregated result set
// ⭐ SSOT: 결과 목록 → 리포트 표 변환
type Table struct {
	Analyzers []string // first-seen order
	Rows      []Row    // first-seen order
}

// ToTable pivots results into a table. Later duplicates of the same
// (security, analyzer) pair overwrite earlier ones.
func ToTable(results []contracts.AnalysisResult) *Table {
	t := &Table{}
	seenAnalyzer := make(map[string]bool)
	rowIndex := make(map[string]int)

	for _, r := range results {
		if !seenAnalyzer[r.Analyzer] {
			seenAnalyzer[r.Analyzer] = true
			t.Analyzers = append(t.Analyzers, r.Analyzer)
		}

		idx, ok := rowIndex[r.Securities]
		if !ok {
			idx = len(t.Rows)
			rowIndex[r.Securities] = idx
			t.Rows = append(t.Rows, Row{
				Securities: r.Securities,
				Cells:      make(map[string]contracts.AnalysisResult),
			})
		}
		t.Rows[idx].Cells[r.Analyzer] = r
	}

	return t
}

// Total is the row's overall score: 0 when any one-vote-veto result failed,
// otherwise the mean of the normal-weight scores (veto scores when there are
// no others). Returns -1 for a row without cells.
func (r Row) Total() int {
	var sum, n, vetoSum, vetoN int
	for _, c := range r.Cells {
		if c.IsVeto() {
			if !c.Passed() {
				return contracts.ScoreFail
			}
			vetoSum += c.Score
			vetoN++
			continue
		}
		sum += c.Score
		n++
	}

	switch {
	case n > 0:
		return int(math.Round(float64(sum) / float64(n)))
	case vetoN > 0:
		return int(math.Round(float64(vetoSum) / float64(vetoN)))
	default:
		return -1
	}
}

// Names holds the lookup tables rendered alongside the table
type Names struct {
	Securities map[string]string // security id -> display name
	Analyzers  map[string]string // analyzer id -> display name
}

// Security returns the display name of a security, empty when unknown
func (n Names) Security(code string) string {
	return n.Securities[code]
}

// Analyzer returns the display name of an analyzer, falling back to its id
func (n Names) Analyzer(id string) string {
	if name, ok := n.Analyzers[id]; ok && name != "" {
		return name
	}
	return id
}
