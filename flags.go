package main

import (
	"errors"
	"flag"
	"io"

	"github.com/lukemcguire/deadcam/config"
)

// cliFlags holds command-line values. Only flags given explicitly override
// the loaded configuration.
type cliFlags struct {
	fs         *flag.FlagSet
	configPath string

	input       string
	output      string
	timeout     float64
	concurrency int
	report      string
	metricsFile string
	historyDB   string
	logLevel    string
	logFile     string
	ffprobe     string
	userAgent   string
	plain       bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	defaults := config.Default()
	f := &cliFlags{fs: flag.NewFlagSet("deadcam", flag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(stderr)

	fs.StringVar(&f.input, "input", defaults.Input, "input CSV of camera links")
	fs.StringVar(&f.input, "i", defaults.Input, "shorthand for --input")
	fs.StringVar(&f.output, "output", defaults.Output, "output CSV of verified links")
	fs.StringVar(&f.output, "o", defaults.Output, "shorthand for --output")
	fs.Float64Var(&f.timeout, "timeout", defaults.Timeout.Seconds(), "per-URL timeout in seconds")
	fs.Float64Var(&f.timeout, "t", defaults.Timeout.Seconds(), "shorthand for --timeout")
	fs.IntVar(&f.concurrency, "concurrency", defaults.Concurrency, "number of URLs checked at once")
	fs.IntVar(&f.concurrency, "c", defaults.Concurrency, "shorthand for --concurrency")

	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.report, "report", "", "write a JSON report of every verdict to this path")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fs.StringVar(&f.historyDB, "history-db", "", "record the run in this sqlite database")
	fs.StringVar(&f.logLevel, "log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&f.logFile, "log-file", "", "write logs to this file instead of stderr")
	fs.StringVar(&f.ffprobe, "ffprobe", defaults.FFprobe, "path to the ffprobe binary")
	fs.StringVar(&f.userAgent, "user-agent", defaults.UserAgent, "User-Agent sent to camera hosts")
	fs.BoolVar(&f.plain, "plain", false, "print plain progress instead of the interactive display")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, errors.New("unexpected arguments")
	}
	return f, nil
}

// apply copies explicitly set flags onto cfg.
func (f *cliFlags) apply(cfg *config.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "input", "i":
			cfg.Input = f.input
		case "output", "o":
			cfg.Output = f.output
		case "timeout", "t":
			cfg.Timeout = config.Seconds(f.timeout)
		case "concurrency", "c":
			cfg.Concurrency = f.concurrency
		case "report":
			cfg.Report = f.report
		case "metrics-file":
			cfg.MetricsFile = f.metricsFile
		case "history-db":
			cfg.HistoryDB = f.historyDB
		case "log-level":
			cfg.LogLevel = f.logLevel
		case "log-file":
			cfg.LogFile = f.logFile
		case "ffprobe":
			cfg.FFprobe = f.ffprobe
		case "user-agent":
			cfg.UserAgent = f.userAgent
		case "plain":
			cfg.Plain = f.plain
		}
	})
}
