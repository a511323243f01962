package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lukemcguire/deadcam/config"
	"github.com/lukemcguire/deadcam/metrics"
	"github.com/lukemcguire/deadcam/pipeline"
	"github.com/lukemcguire/deadcam/result"
	"github.com/lukemcguire/deadcam/store"
)

// writeArtifacts writes the optional JSON report, metrics textfile and run
// history. Every configured artifact is attempted; failures are joined. A
// comparison with the previous recorded run is printed to w.
func writeArtifacts(ctx context.Context, w io.Writer, cfg *config.Config, summary pipeline.Summary, finished time.Time, log *zap.Logger) error {
	var errs []error

	if cfg.Report != "" {
		if err := writeReport(cfg.Report, summary.Verdicts); err != nil {
			errs = append(errs, err)
		} else {
			log.Info("report written", zap.String("path", cfg.Report))
		}
	}

	if cfg.MetricsFile != "" {
		m := metrics.New()
		m.ObserveBatch(summary.BatchStats, summary.Verdicts, finished)
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		} else {
			log.Info("metrics written", zap.String("path", cfg.MetricsFile))
		}
	}

	if cfg.HistoryDB != "" {
		if err := recordHistory(ctx, w, cfg.HistoryDB, cfg.Input, summary, finished, log); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func writeReport(path string, verdicts []result.Verdict) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close report: %w", closeErr))
		}
	}()
	if err := result.WriteJSON(f, verdicts); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// recordHistory stores the run, reports how it compares with the previous
// one, and logs the per-reason counts read back from the database.
func recordHistory(ctx context.Context, w io.Writer, path, input string, summary pipeline.Summary, finished time.Time, log *zap.Logger) error {
	// The batch context may already be cancelled; the history of a
	// cancelled run is still worth keeping.
	ctx = context.WithoutCancel(ctx)

	s, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close()

	previous, err := s.ListRuns(ctx, 1)
	if err != nil {
		return err
	}

	runID, err := s.RecordRun(ctx, input, summary.BatchStats, summary.Verdicts, finished)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if len(previous) > 0 {
		prev := previous[0]
		fmt.Fprintf(w, "Previous run on %s: %d of %d alive.\n",
			prev.FinishedAt.Local().Format(time.DateTime), prev.Stats.Alive, prev.Stats.Checked)
	}

	counts, err := s.ReasonCounts(ctx, runID)
	if err != nil {
		return err
	}
	fields := []zap.Field{zap.String("path", path), zap.String("run_id", runID)}
	for _, reason := range result.AllReasons {
		if n := counts[reason]; n > 0 {
			fields = append(fields, zap.Int(string(reason), n))
		}
	}
	log.Info("run recorded", fields...)
	return nil
}
