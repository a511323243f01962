// Package main provides the deadcam CLI entrypoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lukemcguire/deadcam/config"
	"github.com/lukemcguire/deadcam/link"
	"github.com/lukemcguire/deadcam/logger"
	"github.com/lukemcguire/deadcam/pipeline"
	"github.com/lukemcguire/deadcam/probe"
	"github.com/lukemcguire/deadcam/result"
	"github.com/lukemcguire/deadcam/tui"
)

func main() {
	// Stream probes re-execute this binary as an isolated worker.
	if len(os.Args) > 1 && os.Args[1] == probe.WorkerCommand {
		os.Exit(probe.RunWorker(context.Background(), os.Args[2:], os.Stdout, os.Stderr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one batch and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 1
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}

	plain := cfg.Plain || !isTerminal(stdout)

	log := zap.NewNop()
	if plain || cfg.LogFile != "" {
		log, err = logger.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	defer func() { _ = log.Sync() }()

	table, err := link.LoadCSV(cfg.Input)
	if errors.Is(err, link.ErrInputNotFound) {
		fmt.Fprintf(stderr, "Error: Input file not found at '%s'\n", cfg.Input)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if _, err := exec.LookPath(cfg.FFprobe); err != nil {
		log.Warn("ffprobe not found, stream probes will report crashed workers",
			zap.String("ffprobe", cfg.FFprobe), zap.Error(err))
		if !plain {
			fmt.Fprintf(stderr, "Warning: ffprobe not found at '%s'; stream checks will fail.\n", cfg.FFprobe)
		}
	}

	workerCmd, err := probe.SelfCommand(cfg.FFprobe, cfg.UserAgent)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	progressCh := make(chan probe.Event, 100)
	orch := probe.New(
		cfg.ProbeConfig(),
		probe.NewHTTPProbe(cfg.UserAgent, nil, log),
		probe.NewStreamProbe(workerCmd, log),
		progressCh,
		log,
	)

	batch := pipeline.Prepare(table)
	log.Info("batch prepared",
		zap.String("input", cfg.Input),
		zap.Int("loaded", batch.Stats.Loaded),
		zap.Int("excluded", batch.Stats.Excluded),
		zap.Int("duplicates", batch.Stats.Duplicates),
		zap.Int("checking", batch.Stats.Checked),
		zap.Duration("timeout", orch.Config().Timeout),
		zap.Int("concurrency", orch.Config().Concurrency),
	)

	runBatch := func(ctx context.Context) (pipeline.Summary, error) {
		defer close(progressCh)
		return pipeline.Execute(ctx, batch, orch, pipeline.FileSink{Path: cfg.Output})
	}

	var summary pipeline.Summary
	if plain {
		result.PrintIntake(stdout, cfg.Input, batch.Stats)

		progressDone := make(chan struct{})
		go func() {
			defer close(progressDone)
			printProgress(stdout, progressCh)
		}()
		summary, err = runBatch(ctx)
		<-progressDone
	} else {
		summary, err = runTUI(ctx, runBatch, progressCh, batch.Stats.Checked, cfg.Output)
	}
	finished := time.Now()

	if err != nil {
		log.Error("batch failed", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if plain {
		result.PrintOutcome(stdout, cfg.Output, summary.BatchStats, summary.Verdicts, summary.Written)
	}

	log.Info("batch finished",
		zap.Int("checked", summary.Checked),
		zap.Int("alive", summary.Alive),
		zap.Bool("written", summary.Written),
		zap.Duration("duration", summary.Duration),
	)

	if err := writeArtifacts(ctx, stdout, cfg, summary, finished, log); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runTUI drives the batch under the Bubble Tea UI and returns its summary.
func runTUI(ctx context.Context, runBatch tui.RunFunc, progressCh <-chan probe.Event, total int, output string) (pipeline.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewModel(ctx, cancel, runBatch, progressCh, total, output)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("run tui: %w", err)
	}

	final := finalModel.(tui.Model)
	if final.Err() != nil {
		return pipeline.Summary{}, final.Err()
	}
	if final.Summary() == nil {
		return pipeline.Summary{}, errors.New("batch did not finish")
	}
	return *final.Summary(), nil
}

// printProgress writes throttled progress lines until events is closed.
func printProgress(w io.Writer, events <-chan probe.Event) {
	every := rate.Sometimes{First: 1, Interval: 2 * time.Second}
	for ev := range events {
		if ev.Checked == ev.Total {
			fmt.Fprintf(w, "Checked %d/%d URLs, %d alive.\n", ev.Checked, ev.Total, ev.Live)
			continue
		}
		every.Do(func() {
			fmt.Fprintf(w, "Checked %d/%d URLs, %d alive so far.\n", ev.Checked, ev.Total, ev.Live)
		})
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
