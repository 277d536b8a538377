package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Rate(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  float64
	}{
		{"zero denominator", Entry{Numerator: 3, Denominator: 0}, 0},
		{"half", Entry{Numerator: 5, Denominator: 10}, 0.5},
		{"over", Entry{Numerator: 12, Denominator: 10}, 1},
		{"negative", Entry{Numerator: -1, Denominator: 10}, 0},
		{"finished", Entry{Numerator: 0, Denominator: 0, Finished: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.entry.Rate(), 1e-9)
		})
	}
}

func TestTracker_NotStarted(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.HasProgress("MACD"))
	assert.Equal(t, 0.0, tr.ProgressRate("MACD"))
	assert.Equal(t, "", tr.Percent("MACD"))
}

func TestTracker_SetAndFinish(t *testing.T) {
	tr := NewTracker()

	tr.SetProgress("MACD", 1, 4)
	assert.True(t, tr.HasProgress("MACD"))
	assert.InDelta(t, 0.25, tr.ProgressRate("MACD"), 1e-9)
	assert.Equal(t, "25.00%", tr.Percent("MACD"))
	assert.False(t, tr.IsFinished("MACD"))

	tr.FinishProgress("MACD")
	assert.Equal(t, 1.0, tr.ProgressRate("MACD"))
	assert.True(t, tr.IsFinished("MACD"))
	assert.Equal(t, "100.00%", tr.Percent("MACD"))
}

func TestTracker_FinishedNeverDecreases(t *testing.T) {
	tr := NewTracker()

	tr.FinishProgress("PE_RANK")
	tr.SetProgress("PE_RANK", 0, 100)

	assert.Equal(t, 1.0, tr.ProgressRate("PE_RANK"))
	assert.True(t, tr.IsFinished("PE_RANK"))
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	tr.SetProgress("A", 1, 2)
	tr.FinishProgress("B")

	tr.Reset()

	assert.False(t, tr.HasProgress("A"))
	assert.False(t, tr.HasProgress("B"))
	assert.Empty(t, tr.Snapshot())
}

func TestTracker_Snapshot(t *testing.T) {
	tr := NewTracker()
	tr.SetProgress("A", 1, 2)

	snap := tr.Snapshot()
	snap["A"] = Entry{Finished: true}

	assert.False(t, tr.IsFinished("A"))
	assert.Equal(t, Entry{Numerator: 1, Denominator: 2}, tr.Snapshot()["A"])
}

func TestTracker_ConcurrentReaders(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			tr.SetProgress("A", i, 1000)
		}
		tr.FinishProgress("A")
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0.0
			for i := 0; i < 1000; i++ {
				rate := tr.ProgressRate("A")
				assert.GreaterOrEqual(t, rate, last)
				last = rate
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1.0, tr.ProgressRate("A"))
}
