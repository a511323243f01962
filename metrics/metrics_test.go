package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lukemcguire/deadcam/link"
	"github.com/lukemcguire/deadcam/result"
)

func sampleBatch() (result.BatchStats, []result.Verdict) {
	stats := result.BatchStats{Loaded: 6, Excluded: 1, Duplicates: 2, Checked: 3, Alive: 1, Duration: 4 * time.Second}
	verdicts := []result.Verdict{
		{Alive: true, Reason: result.ReasonOK, Strategy: link.StrategyHTTP, Duration: 200 * time.Millisecond},
		{Reason: result.ReasonTimeout, Strategy: link.StrategyStream, Duration: 10 * time.Second},
		{Reason: result.ReasonTimeout, Strategy: link.StrategyStream, Duration: 10 * time.Second},
	}
	return stats, verdicts
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	stats, verdicts := sampleBatch()
	m.ObserveBatch(stats, verdicts, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "deadcam.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)

	wantLines := []string{
		`deadcam_verdicts_total{reason="OK",strategy="http"} 1`,
		`deadcam_verdicts_total{reason="TIMEOUT",strategy="stream"} 2`,
		`deadcam_batch_records{stage="loaded"} 6`,
		`deadcam_batch_records{stage="duplicates"} 2`,
		`deadcam_batch_records{stage="alive"} 1`,
		`deadcam_batch_duration_seconds 4`,
		`deadcam_last_run_timestamp_seconds 1.7e+09`,
		`deadcam_probe_duration_seconds_count{strategy="stream"} 2`,
	}
	for _, line := range wantLines {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("textfile missing %q\n%s", line, out)
		}
	}
}

func TestWriteTextfile_BadPath(t *testing.T) {
	m := New()
	path := filepath.Join(t.TempDir(), "missing", "deadcam.prom")
	if err := m.WriteTextfile(path); err == nil {
		t.Error("WriteTextfile() should fail for a missing directory")
	}
}

func TestRegistry_Gathers(t *testing.T) {
	m := New()
	m.ObserveVerdict(result.Verdict{Reason: result.ReasonCrashed, Strategy: link.StrategyStream, Duration: time.Second})

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{"deadcam_verdicts_total", "deadcam_probe_duration_seconds", "deadcam_batch_duration_seconds"} {
		if !names[name] {
			t.Errorf("Gather() missing %s", name)
		}
	}
}
