// Package pipeline turns a loaded link table into a verified output: it drops
// placeholder and duplicate records, probes what remains, and hands the alive
// subset to a Sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lukemcguire/deadcam/link"
	"github.com/lukemcguire/deadcam/result"
)

// ExcludedCategories are placeholder categories that are never probed.
// Matching is exact and case-sensitive.
var ExcludedCategories = []string{"Template", "Security"}

// Runner probes a batch of records and returns one verdict per record in
// input order.
type Runner interface {
	RunBatch(ctx context.Context, records []link.Record) []result.Verdict
}

// Sink receives the alive verdicts of a run. It is not called when nothing
// is alive.
type Sink interface {
	Write(header []string, alive []result.Verdict) error
}

// Batch is a table reduced to the unique, non-placeholder records to probe.
type Batch struct {
	Header  []string
	Records []link.Record
	Stats   result.BatchStats
}

// Summary describes a finished run.
type Summary struct {
	result.BatchStats
	Verdicts []result.Verdict // Every verdict, in batch order
	Written  bool             // Whether the sink received output
}

// Prepare excludes placeholder categories and removes duplicate URLs,
// keeping the first occurrence of each. URLs are compared byte for byte.
func Prepare(table *link.Table) Batch {
	batch := Batch{
		Header:  table.Header,
		Records: make([]link.Record, 0, len(table.Records)),
	}
	batch.Stats.Loaded = len(table.Records)

	seen := make(map[string]struct{}, len(table.Records))
	for _, rec := range table.Records {
		if isExcluded(rec.Category) {
			batch.Stats.Excluded++
			continue
		}
		if _, dup := seen[rec.URL]; dup {
			batch.Stats.Duplicates++
			continue
		}
		seen[rec.URL] = struct{}{}
		batch.Records = append(batch.Records, rec)
	}
	batch.Stats.Checked = len(batch.Records)
	return batch
}

func isExcluded(category string) bool {
	for _, c := range ExcludedCategories {
		if category == c {
			return true
		}
	}
	return false
}

// Execute probes a prepared batch and writes the alive records to sink.
// An empty alive set is not an error: the sink is skipped and Written is
// false.
func Execute(ctx context.Context, batch Batch, runner Runner, sink Sink) (Summary, error) {
	start := time.Now()
	verdicts := runner.RunBatch(ctx, batch.Records)

	summary := Summary{BatchStats: batch.Stats, Verdicts: verdicts}
	alive := result.AliveOnly(verdicts)
	summary.Alive = len(alive)
	summary.Duration = time.Since(start)

	if len(alive) == 0 {
		return summary, nil
	}
	if err := sink.Write(batch.Header, alive); err != nil {
		return summary, fmt.Errorf("write verified links: %w", err)
	}
	summary.Written = true
	return summary, nil
}

// FileSink writes verified records as CSV to Path, replacing any existing
// file.
type FileSink struct {
	Path string
}

// Write implements Sink.
func (s FileSink) Write(header []string, alive []result.Verdict) (err error) {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close output: %w", closeErr))
		}
	}()

	return result.WriteVerifiedCSV(f, header, alive, result.StatusVerified)
}
