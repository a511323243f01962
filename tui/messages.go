package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/deadcam/pipeline"
	"github.com/lukemcguire/deadcam/probe"
	"github.com/lukemcguire/deadcam/result"
)

// ProgressMsg reports progress after a single verdict.
type ProgressMsg struct {
	Checked int
	Live    int
	URL     string
	Reason  result.Reason
}

// DoneMsg signals the batch has completed.
type DoneMsg struct {
	Summary *pipeline.Summary
	Err     error
}

// waitForProgress returns a tea.Cmd that reads one event from the progress
// channel. A closed channel yields nil so the final DoneMsg comes from
// startRun alone.
func waitForProgress(ch <-chan probe.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return ProgressMsg{
			Checked: evt.Checked,
			Live:    evt.Live,
			URL:     evt.URL,
			Reason:  evt.Reason,
		}
	}
}
