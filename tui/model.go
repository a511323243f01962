// Package tui provides the Bubble Tea terminal UI for deadcam, displaying
// live probe progress and a styled summary of the verdicts.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/deadcam/pipeline"
	"github.com/lukemcguire/deadcam/probe"
	"github.com/lukemcguire/deadcam/urlutil"
)

// RunFunc executes the batch, sending progress events on the channel the
// Model listens to.
type RunFunc func(ctx context.Context) (pipeline.Summary, error)

// Model is the Bubble Tea model for the batch TUI.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	run        RunFunc
	spinner    spinner.Model
	bar        progress.Model
	progressCh <-chan probe.Event
	output     string

	total      int
	checked    int
	live       int
	current    string
	cancelling bool
	done       bool
	summary    *pipeline.Summary
	err        error
	width      int
}

// NewModel creates a TUI model that runs a batch of total records and
// listens for its progress events. output is the path shown in the summary.
func NewModel(ctx context.Context, cancel context.CancelFunc, run RunFunc, progressCh <-chan probe.Event, total int, output string) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		run:        run,
		spinner:    spin,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		progressCh: progressCh,
		output:     output,
		total:      total,
	}
}

// Init starts the spinner, the batch, and the progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(), waitForProgress(m.progressCh))
}

// startRun returns a tea.Cmd that runs the batch and sends DoneMsg.
func (m Model) startRun() tea.Cmd {
	return func() tea.Msg {
		summary, err := m.run(m.ctx)
		if err != nil {
			err = fmt.Errorf("run batch: %w", err)
		}
		return DoneMsg{Summary: &summary, Err: err}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Keep running until the batch has reaped its workers.
			if !m.cancelling && m.cancel != nil {
				m.cancelling = true
				m.cancel()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 4; w > 0 && w < 60 {
			m.bar.Width = w
		}

	case ProgressMsg:
		m.checked = msg.Checked
		m.live = msg.Live
		m.current = msg.URL
		return m, waitForProgress(m.progressCh)

	case DoneMsg:
		m.done = true
		m.summary = msg.Summary
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.done && m.summary != nil {
		return RenderSummary(m.summary, m.output)
	}

	status := "Checking"
	if m.cancelling {
		status = "Cancelling"
	}
	percent := 0.0
	if m.total > 0 {
		percent = float64(m.checked) / float64(m.total)
	}
	return fmt.Sprintf("%s %s... %d/%d checked, %d alive\n%s\n%s\n",
		m.spinner.View(), status, m.checked, m.total, m.live,
		m.bar.ViewAs(percent),
		dimStyle.Render("  "+urlutil.Redact(m.current)))
}

// Summary returns the batch summary, nil until the batch has finished.
func (m Model) Summary() *pipeline.Summary {
	return m.summary
}

// Err returns the error the batch finished with.
func (m Model) Err() error {
	return m.err
}
