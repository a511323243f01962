// Package probe checks camera and stream URLs for liveness. HTTP image
// endpoints get a single HEAD request; streams are opened in an isolated
// worker process that is killed when it overruns its deadline. The
// Orchestrator fans a batch of records out to both with bounded parallelism.
package probe

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/deadcam/link"
	"github.com/lukemcguire/deadcam/result"
	"github.com/lukemcguire/deadcam/urlutil"
)

// Prober performs a single bounded liveness check for one record.
type Prober interface {
	Probe(ctx context.Context, rec link.Record, timeout time.Duration) result.Verdict
}

// Config holds orchestrator configuration.
type Config struct {
	Timeout     time.Duration // Per-record probe budget (default 10s)
	Concurrency int           // Number of probes in flight at once (default 8)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		Concurrency: 8,
	}
}

// job is one record waiting for a probe, tagged with its input position.
type job struct {
	index  int
	record link.Record
}

// jobResult pairs a verdict with the position of the record it belongs to.
type jobResult struct {
	index   int
	verdict result.Verdict
}

// Orchestrator routes records to the HTTP or stream prober and collects one
// verdict per record.
type Orchestrator struct {
	cfg        Config
	http       Prober
	stream     Prober
	progressCh chan<- Event
	logger     *zap.Logger
}

// New creates an Orchestrator. The progressCh parameter is optional; pass nil
// to disable progress events. A non-nil channel must be drained by the caller.
func New(cfg Config, httpProber, streamProber Prober, progressCh chan<- Event, logger *zap.Logger) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:        cfg,
		http:       httpProber,
		stream:     streamProber,
		progressCh: progressCh,
		logger:     logger,
	}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// RunBatch probes every record and returns their verdicts in input order.
// Exactly one verdict is produced per record; a probe outcome is never an
// error. Records still queued when ctx is cancelled get a TIMEOUT verdict
// without being probed.
func (o *Orchestrator) RunBatch(ctx context.Context, records []link.Record) []result.Verdict {
	verdicts := make([]result.Verdict, len(records))
	if len(records) == 0 {
		return verdicts
	}

	workers := min(o.cfg.Concurrency, len(records))
	jobs := make(chan job)
	results := make(chan jobResult, workers)

	var group errgroup.Group

	// Feeder: unbuffered jobs channel means at most `workers` probes run.
	group.Go(func() error {
		defer close(jobs)
		for i, rec := range records {
			jobs <- job{index: i, record: rec}
		}
		return nil
	})

	for range workers {
		group.Go(func() error {
			for j := range jobs {
				results <- jobResult{index: j.index, verdict: o.probe(ctx, j.record)}
			}
			return nil
		})
	}

	// Close results channel once the feeder and every worker are done
	go func() {
		_ = group.Wait()
		close(results)
	}()

	// Coordinator: place each verdict at its record's position.
	var checked, alive int
	for res := range results {
		verdicts[res.index] = res.verdict
		checked++
		if res.verdict.Alive {
			alive++
		}

		if o.progressCh != nil {
			o.progressCh <- Event{
				URL:     res.verdict.Record.URL,
				Alive:   res.verdict.Alive,
				Reason:  res.verdict.Reason,
				Checked: checked,
				Live:    alive,
				Total:   len(records),
			}
		}
	}

	return verdicts
}

// probe runs the strategy-appropriate prober for rec.
func (o *Orchestrator) probe(ctx context.Context, rec link.Record) result.Verdict {
	strategy := Classify(rec.StreamType)

	if ctx.Err() != nil {
		return result.Verdict{
			Record:    rec,
			Reason:    result.ReasonTimeout,
			Strategy:  strategy,
			Detail:    "batch cancelled",
			CheckedAt: time.Now(),
		}
	}

	prober := o.stream
	if strategy == link.StrategyHTTP {
		prober = o.http
	}

	v := prober.Probe(ctx, rec, o.cfg.Timeout)
	// The verdict always belongs to the record that was submitted.
	v.Record = rec
	v.Strategy = strategy

	o.logger.Debug("probe finished",
		zap.String("url", urlutil.Redact(rec.URL)),
		zap.String("strategy", string(strategy)),
		zap.Bool("alive", v.Alive),
		zap.String("reason", string(v.Reason)),
		zap.Duration("duration", v.Duration),
	)
	return v
}
