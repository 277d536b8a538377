package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sas/internal/contracts"
)

func results(analyzer string, codes ...string) []contracts.AnalysisResult {
	out := make([]contracts.AnalysisResult, 0, len(codes))
	for i, c := range codes {
		out = append(out, contracts.NewResult(analyzer, c, 10*i, "r"))
	}
	return out
}

func TestAggregator_PreservesOrder(t *testing.T) {
	agg := New()

	agg.Append("A", results("A", "001", "002"))
	agg.Append("B", nil)
	agg.Append("C", results("C", "001"))

	got := agg.Results()
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].Analyzer)
	assert.Equal(t, "A", got[1].Analyzer)
	assert.Equal(t, "C", got[2].Analyzer)

	assert.Equal(t, []Segment{
		{Analyzer: "A", Offset: 0, Length: 2},
		{Analyzer: "B", Offset: 2, Length: 0},
		{Analyzer: "C", Offset: 2, Length: 1},
	}, agg.Segments())
	assert.Equal(t, 3, agg.Len())
}

func TestAggregator_AppendOnly(t *testing.T) {
	agg := New()
	agg.Append("A", results("A", "001"))

	snapshot := agg.Results()
	snapshot[0].Score = 99

	assert.NotEqual(t, 99, agg.Results()[0].Score)
}

func TestAggregator_ByteSize(t *testing.T) {
	agg := New()
	empty := agg.ByteSize()
	assert.Greater(t, empty, 0)

	a := results("A", "001", "002")
	size := agg.Append("A", a)

	assert.Equal(t, empty+contracts.RoughSizeOf(a), size)
	assert.Equal(t, size, agg.ByteSize())
}

func TestSizeMB(t *testing.T) {
	assert.InDelta(t, 1.0, SizeMB(1024*1024), 1e-9)
	assert.InDelta(t, 0.5, SizeMB(512*1024), 1e-9)
}
