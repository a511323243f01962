package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/deadcam/pipeline"
	"github.com/lukemcguire/deadcam/result"
	"github.com/lukemcguire/deadcam/urlutil"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	successStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	reasonStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle         = lipgloss.NewStyle().Faint(true)
	urlStyle         = lipgloss.NewStyle()
	statusErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// maxRowsPerReason caps each reason table; large batches fail thousands of
// URLs the same way.
const maxRowsPerReason = 15

// RenderSummary produces a Lip Gloss styled summary of a finished batch.
func RenderSummary(summary *pipeline.Summary, output string) string {
	if summary == nil {
		return errorStyle.Render("No results available.")
	}

	var builder strings.Builder

	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"Loaded %d records: %d excluded, %d duplicates, %d checked in %s",
		summary.Loaded, summary.Excluded, summary.Duplicates, summary.Checked,
		summary.Duration.Round(1_000_000), // round to ms
	)))
	builder.WriteString("\n\n")

	// Group dead verdicts by reason
	grouped := make(map[result.Reason][]result.Verdict)
	for _, v := range summary.Verdicts {
		if !v.Alive {
			grouped[v.Reason] = append(grouped[v.Reason], v)
		}
	}

	for _, reason := range result.AllReasons {
		verdicts := grouped[reason]
		if len(verdicts) == 0 {
			continue
		}

		builder.WriteString(reasonStyle.Render(fmt.Sprintf("## %s (%d)", result.FormatReason(reason), len(verdicts))))
		builder.WriteString("\n")

		shown := verdicts
		if len(shown) > maxRowsPerReason {
			shown = shown[:maxRowsPerReason]
		}
		rows := make([][]string, 0, len(shown))
		for _, v := range shown {
			detail := v.Detail
			if v.StatusCode != 0 && detail == "" {
				detail = fmt.Sprintf("%d", v.StatusCode)
			}
			rows = append(rows, []string{urlutil.Redact(v.Record.URL), string(v.Record.StreamType), detail})
		}

		reasonTable := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("URL", "Type", "Detail").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 2 { // Detail column
					return statusErrorStyle
				}
				return urlStyle
			}).
			Rows(rows...)

		builder.WriteString(reasonTable.Render())
		builder.WriteString("\n")
		if hidden := len(verdicts) - len(shown); hidden > 0 {
			builder.WriteString(dimStyle.Render(fmt.Sprintf("  ... and %d more", hidden)))
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	if !summary.Written {
		builder.WriteString(errorStyle.Render("No active links found. Output file will not be created."))
		builder.WriteString("\n")
		return builder.String()
	}

	builder.WriteString(successStyle.Render(fmt.Sprintf("Found %d active and unique links.", summary.Alive)))
	builder.WriteString("\n")
	builder.WriteString(titleStyle.Render(fmt.Sprintf("Saved verified links to '%s'.", output)))
	builder.WriteString("\n")

	return builder.String()
}
