// Package config loads deadcam settings from defaults, an optional .env
// file, an optional YAML file and DEADCAM_* environment variables, in that
// order of increasing precedence. Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/lukemcguire/deadcam/probe"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DEADCAM"

// Config holds all deadcam configuration.
//
// Defaults come from Default rather than struct tags so that a value set in
// the YAML file is not replaced by an envconfig default.
type Config struct {
	Input       string        `yaml:"input" envconfig:"INPUT"`
	Output      string        `yaml:"output" envconfig:"OUTPUT"`
	Report      string        `yaml:"report" envconfig:"REPORT"`             // JSON report of every verdict
	MetricsFile string        `yaml:"metrics_file" envconfig:"METRICS_FILE"` // Prometheus textfile
	HistoryDB   string        `yaml:"history_db" envconfig:"HISTORY_DB"`     // sqlite run history
	Timeout     Duration      `yaml:"timeout" envconfig:"TIMEOUT"` // Seconds, or a Go duration like "1m"
	Concurrency int           `yaml:"concurrency" envconfig:"CONCURRENCY"`
	UserAgent   string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	FFprobe     string        `yaml:"ffprobe" envconfig:"FFPROBE"`
	LogLevel    string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFile     string        `yaml:"log_file" envconfig:"LOG_FILE"`
	Plain       bool          `yaml:"plain" envconfig:"PLAIN"`
}

// Default returns the built-in configuration.
func Default() *Config {
	probeDefaults := probe.DefaultConfig()
	return &Config{
		Input:       "webcam_links.csv",
		Output:      "verified_webcam_links.csv",
		Timeout:     Duration{probeDefaults.Timeout},
		Concurrency: probeDefaults.Concurrency,
		UserAgent:   probe.DefaultUserAgent,
		FFprobe:     "ffprobe",
		LogLevel:    "info",
	}
}

// Load builds a Config from defaults, the first existing env file (".env"
// when none are given), the YAML file at configPath when non-empty, and the
// environment. Missing env files are ignored; a missing YAML file is not.
func Load(configPath string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("input path is required")
	}
	if c.Output == "" {
		return errors.New("output path is required")
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	return nil
}

// ProbeConfig returns the orchestrator settings.
func (c *Config) ProbeConfig() probe.Config {
	return probe.Config{Timeout: c.Timeout.Duration, Concurrency: c.Concurrency}
}
