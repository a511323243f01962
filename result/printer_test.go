package result

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintIntake(t *testing.T) {
	var buf bytes.Buffer
	PrintIntake(&buf, "webcam_links.csv", BatchStats{Loaded: 10, Excluded: 2, Duplicates: 3, Checked: 5})

	want := "Loaded 10 records from 'webcam_links.csv'.\n" +
		"Excluded 2 placeholder records.\n" +
		"Removed 3 duplicate records. 5 unique URLs to check.\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrintOutcome_NoActiveLinks(t *testing.T) {
	var buf bytes.Buffer
	verdicts := sampleVerdicts()[1:]
	PrintOutcome(&buf, "out.csv", BatchStats{Checked: 1}, verdicts, false)

	got := buf.String()
	if !strings.Contains(got, "Timeouts:") {
		t.Error("missing reason breakdown")
	}
	if !strings.Contains(got, "No active links found. Output file will not be created.") {
		t.Error("missing no-active message")
	}
	if strings.Contains(got, "Saved verified links") {
		t.Error("unexpected save message when nothing was written")
	}
}

func TestPrintOutcome_Written(t *testing.T) {
	var buf bytes.Buffer
	PrintOutcome(&buf, "out.csv", BatchStats{Checked: 2, Alive: 1}, sampleVerdicts(), true)

	got := buf.String()
	if !strings.Contains(got, "Found 1 active and unique links.") {
		t.Error("missing found summary")
	}
	if !strings.Contains(got, "Saved verified links to 'out.csv'.") {
		t.Error("missing save message")
	}
}
