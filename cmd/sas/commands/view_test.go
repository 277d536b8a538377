package commands

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/internal/task"
)

func TestProgressModel(t *testing.T) {
	tracker := progress.NewTracker()
	tracker.SetProgress("MACD", 1, 4)
	tracker.SetProgress("FLOW", 3, 3)
	tracker.FinishProgress("FLOW")

	m := newProgressModel(task.NewChanObserver(), tracker, []string{"MACD", "FLOW", "RSI"}, time.Second)

	view := m.View()
	assert.Contains(t, view, "Analyzing")
	assert.Contains(t, view, "25.00%")
	assert.Contains(t, view, "100.00%")
	assert.NotContains(t, view, "cannot be cancelled")

	t.Run("interrupt only warns", func(t *testing.T) {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.Nil(t, cmd)
		assert.True(t, m.interrupted)
		assert.Contains(t, m.View(), "cannot be cancelled")
	})

	t.Run("poll reschedules", func(t *testing.T) {
		_, cmd := m.Update(pollMsg(time.Now()))
		assert.NotNil(t, cmd)
	})

	t.Run("completion quits", func(t *testing.T) {
		_, cmd := m.Update(completedMsg{completion: contracts.Completion{RunID: "run-1", OutputPath: "report.xlsx"}})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())

		require.NotNil(t, m.completion)
		assert.Equal(t, "run-1", m.completion.RunID)
		assert.Contains(t, m.View(), "Analysis finished")
		assert.NotContains(t, m.View(), "cannot be cancelled")

		_, cmd = m.Update(pollMsg(time.Now()))
		assert.Nil(t, cmd)
	})
}

func TestProgressModel_WaitCompletion(t *testing.T) {
	done := task.NewChanObserver()
	m := newProgressModel(done, progress.NewTracker(), nil, time.Second)

	done.RunCompleted(contracts.Completion{RunID: "run-2"})
	msg := m.waitCompletion()

	require.IsType(t, completedMsg{}, msg)
	assert.Equal(t, "run-2", msg.(completedMsg).completion.RunID)
}
