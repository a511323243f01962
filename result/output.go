package result

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// StatusColumn is the column stamped onto every verified row.
const StatusColumn = "Status"

// StatusVerified is the status label written for alive records.
const StatusVerified = "Verified Active"

// WriteVerifiedCSV writes the records behind verdicts as CSV with every field
// quoted. The output keeps the input header and adds a Status column, or
// overwrites it when the input already had one.
func WriteVerifiedCSV(w io.Writer, header []string, verdicts []Verdict, status string) error {
	statusCol := -1
	for i, h := range header {
		if h == StatusColumn {
			statusCol = i
			break
		}
	}
	outHeader := header
	if statusCol < 0 {
		outHeader = append(append([]string(nil), header...), StatusColumn)
		statusCol = len(header)
	}

	bw := bufio.NewWriter(w)
	if err := writeQuotedRow(bw, outHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, v := range verdicts {
		row := make([]string, len(outHeader))
		copy(row, v.Record.Fields)
		row[statusCol] = status
		if err := writeQuotedRow(bw, row); err != nil {
			return fmt.Errorf("write csv record for %s: %w", v.Record.URL, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// writeQuotedRow writes one CSV row with every field wrapped in double quotes.
// encoding/csv only quotes fields that need it, so rows are encoded here.
func writeQuotedRow(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// ReportEntry is the JSON form of a verdict.
type ReportEntry struct {
	URL        string    `json:"url"`
	Category   string    `json:"category,omitempty"`
	StreamType string    `json:"stream_type"`
	Strategy   string    `json:"strategy"`
	Alive      bool      `json:"alive"`
	Reason     Reason    `json:"reason"`
	StatusCode int       `json:"status_code,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CheckedAt  time.Time `json:"checked_at"`
}

// NewReportEntry converts a verdict to its report form.
func NewReportEntry(v Verdict) ReportEntry {
	return ReportEntry{
		URL:        v.Record.URL,
		Category:   v.Record.Category,
		StreamType: string(v.Record.StreamType),
		Strategy:   string(v.Strategy),
		Alive:      v.Alive,
		Reason:     v.Reason,
		StatusCode: v.StatusCode,
		Detail:     v.Detail,
		DurationMS: v.Duration.Milliseconds(),
		CheckedAt:  v.CheckedAt,
	}
}

// WriteJSON writes every verdict, alive or not, as a formatted JSON array.
func WriteJSON(w io.Writer, verdicts []Verdict) error {
	entries := make([]ReportEntry, 0, len(verdicts))
	for _, v := range verdicts {
		entries = append(entries, NewReportEntry(v))
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}
