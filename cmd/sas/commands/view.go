package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/internal/task"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	idStyle      = lipgloss.NewStyle().Width(10)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const barWidth = 30

type pollMsg time.Time

type completedMsg struct {
	completion contracts.Completion
}

// progressModel renders per-analyzer progress until the run completes.
// Ctrl+C only shows a notice: a run cannot be cancelled.
type progressModel struct {
	spinner     spinner.Model
	tracker     *progress.Tracker
	analyzers   []string
	done        task.ChanObserver
	interval    time.Duration
	started     time.Time
	now         func() time.Time
	interrupted bool
	completion  *contracts.Completion
}

func newProgressModel(done task.ChanObserver, tracker *progress.Tracker, analyzers []string, interval time.Duration) *progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &progressModel{
		spinner:   s,
		tracker:   tracker,
		analyzers: analyzers,
		done:      done,
		interval:  interval,
		started:   time.Now(),
		now:       time.Now,
	}
}

func (m *progressModel) poll() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func (m *progressModel) waitCompletion() tea.Msg {
	return completedMsg{completion: <-m.done}
}

// Init implements tea.Model
func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll(), m.waitCompletion)
}

// Update implements tea.Model
func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.interrupted = true
		}
		return m, nil

	case pollMsg:
		if m.completion != nil {
			return m, nil
		}
		return m, m.poll()

	case completedMsg:
		c := msg.completion
		m.completion = &c
		return m, tea.Quit

	case spinner.TickMsg:
		if m.completion != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m *progressModel) View() string {
	var b strings.Builder

	elapsed := m.now().Sub(m.started).Round(time.Second)
	if m.completion != nil {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Analysis finished (%s)", elapsed)))
	} else {
		b.WriteString(m.spinner.View() + " " + titleStyle.Render(fmt.Sprintf("Analyzing... (%s)", elapsed)))
	}
	b.WriteString("\n\n")

	for _, id := range m.analyzers {
		b.WriteString("  " + idStyle.Render(id) + " " + m.analyzerLine(id) + "\n")
	}

	if m.interrupted && m.completion == nil {
		b.WriteString("\n" + warnStyle.Render("Analysis is running and cannot be cancelled; waiting for it to finish") + "\n")
	}

	return b.String()
}

func (m *progressModel) analyzerLine(id string) string {
	pct := m.tracker.Percent(id)
	if pct == "" {
		return pendingStyle.Render("-")
	}

	rate := m.tracker.ProgressRate(id)
	filled := int(rate * float64(barWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	if m.tracker.IsFinished(id) {
		return doneStyle.Render(bar + " " + pct)
	}
	return bar + " " + pct
}

// runProgressView drives the terminal view and returns the completion
func runProgressView(done task.ChanObserver, tracker *progress.Tracker, analyzers []string, interval time.Duration) (contracts.Completion, error) {
	m := newProgressModel(done, tracker, analyzers, interval)

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return contracts.Completion{}, fmt.Errorf("progress view: %w", err)
	}

	pm, ok := final.(*progressModel)
	if !ok || pm.completion == nil {
		return contracts.Completion{}, fmt.Errorf("progress view exited before completion")
	}
	return *pm.completion, nil
}
