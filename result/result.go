// Package result holds probe verdicts, their reason taxonomy, and the writers
// that turn verdicts into CSV, JSON and plain-text output.
package result

import (
	"time"

	"github.com/lukemcguire/deadcam/link"
)

// Verdict is the outcome of probing one record. It is created exactly once
// per unique URL in a run.
type Verdict struct {
	Record     link.Record   // The probed record, unchanged
	Alive      bool          // Whether the endpoint is confirmed reachable
	Reason     Reason        // Outcome classification
	Strategy   link.Strategy // Probe strategy that produced the verdict
	StatusCode int           // Final HTTP status (0 for stream probes or transport errors)
	Detail     string        // Error text or worker diagnostics, empty on success
	Duration   time.Duration // Wall-clock time spent probing
	CheckedAt  time.Time     // When the probe started
}

// BatchStats contains aggregate statistics for a batch run.
type BatchStats struct {
	Loaded     int           // Records read from the input
	Excluded   int           // Records dropped for a placeholder category
	Duplicates int           // Records dropped as duplicate URLs
	Checked    int           // Records probed
	Alive      int           // Verdicts with Alive set
	Duration   time.Duration // Total time taken for the batch
}

// Counts tallies verdicts by reason.
func Counts(verdicts []Verdict) map[Reason]int {
	counts := make(map[Reason]int, len(AllReasons))
	for _, v := range verdicts {
		counts[v.Reason]++
	}
	return counts
}

// AliveOnly returns the verdicts with Alive set, preserving order.
func AliveOnly(verdicts []Verdict) []Verdict {
	alive := make([]Verdict, 0, len(verdicts))
	for _, v := range verdicts {
		if v.Alive {
			alive = append(alive, v)
		}
	}
	return alive
}
