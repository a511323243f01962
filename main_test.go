package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lukemcguire/deadcam/config"
)

func TestParseFlags_ShortAndLongAliases(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"short", []string{"-i", "in.csv", "-o", "out.csv", "-t", "2.5", "-c", "3"}},
		{"long", []string{"--input", "in.csv", "--output", "out.csv", "--timeout", "2.5", "--concurrency", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFlags(tt.args, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("parseFlags() error: %v", err)
			}
			cfg := config.Default()
			f.apply(cfg)

			if cfg.Input != "in.csv" || cfg.Output != "out.csv" {
				t.Errorf("input/output = %q/%q", cfg.Input, cfg.Output)
			}
			if cfg.Timeout.Duration != 2500*time.Millisecond {
				t.Errorf("Timeout = %v, want 2.5s", cfg.Timeout)
			}
			if cfg.Concurrency != 3 {
				t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
			}
		})
	}
}

func TestApply_OnlyExplicitFlagsOverride(t *testing.T) {
	f, err := parseFlags([]string{"--report", "r.json"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags() error: %v", err)
	}
	cfg := config.Default()
	cfg.Input = "from-yaml.csv"
	cfg.Concurrency = 32
	f.apply(cfg)

	if cfg.Input != "from-yaml.csv" || cfg.Concurrency != 32 {
		t.Errorf("unset flags overrode config: input %q, concurrency %d", cfg.Input, cfg.Concurrency)
	}
	if cfg.Report != "r.json" {
		t.Errorf("Report = %q, want r.json", cfg.Report)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	if _, err := parseFlags([]string{"--bogus"}, &bytes.Buffer{}); err == nil {
		t.Error("parseFlags() should fail for an unknown flag")
	}
	if _, err := parseFlags([]string{"extra.csv"}, &bytes.Buffer{}); err == nil {
		t.Error("parseFlags() should fail for positional arguments")
	}
}

func TestRun_InputNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.csv")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--plain", "-i", missing}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	want := fmt.Sprintf("Error: Input file not found at '%s'", missing)
	if !strings.Contains(stderr.String(), want) {
		t.Errorf("stderr = %q, want %q", stderr.String(), want)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"--plain", "-c", "0"}, &stdout, &stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "concurrency") {
		t.Errorf("stderr = %q, want concurrency error", stderr.String())
	}
}

func writeCSV(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "webcam_links.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestRun_NoActiveLinks(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "URL,Category,Stream Type\nhttp://x/1.jpg,Template,JPEG\nhttp://x/2.jpg,Security,JPEG\n")
	output := filepath.Join(dir, "verified.csv")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--plain", "--log-level", "error", "-i", input, "-o", output}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, want 0; stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "No active links found. Output file will not be created.") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("output file exists (err=%v), want it not created", err)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/live.jpg" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	input := writeCSV(t, dir, strings.Join([]string{
		"URL,Category,Stream Type",
		server.URL + "/live.jpg,Traffic,JPEG",
		server.URL + "/gone.jpg,Traffic,jpg",
		server.URL + "/live.jpg,Weather,JPEG",
		server.URL + "/tpl.jpg,Template,JPEG",
	}, "\n") + "\n")
	output := filepath.Join(dir, "verified.csv")
	report := filepath.Join(dir, "report.json")
	metricsFile := filepath.Join(dir, "deadcam.prom")
	historyDB := filepath.Join(dir, "history.db")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--plain", "--log-level", "error",
		"-i", input, "-o", output, "-t", "5",
		"--report", report, "--metrics-file", metricsFile, "--history-db", historyDB,
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, want 0; stderr: %s", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{
		fmt.Sprintf("Loaded 4 records from '%s'.", input),
		"Excluded 1 placeholder records.",
		"Removed 1 duplicate records. 2 unique URLs to check.",
		"Found 1 active and unique links.",
		fmt.Sprintf("Saved verified links to '%s'.", output),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	wantCSV := `"URL","Category","Stream Type","Status"` + "\n" +
		`"` + server.URL + `/live.jpg","Traffic","JPEG","Verified Active"` + "\n"
	if string(data) != wantCSV {
		t.Errorf("output =\n%s\nwant\n%s", data, wantCSV)
	}

	reportData, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(reportData, &entries); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("report has %d entries, want 2", len(entries))
	}

	for _, path := range []string{metricsFile, historyDB} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	}
}

func TestRun_HistoryComparesWithPreviousRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/live.jpg" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	input := writeCSV(t, dir, "URL,Category,Stream Type\n"+
		server.URL+"/live.jpg,Traffic,JPEG\n"+
		server.URL+"/gone.jpg,Traffic,JPEG\n")
	args := []string{
		"--plain", "--log-level", "error",
		"-i", input, "-o", filepath.Join(dir, "verified.csv"),
		"--history-db", filepath.Join(dir, "history.db"),
	}

	var first, second, stderr bytes.Buffer
	if code := run(context.Background(), args, &first, &stderr); code != 0 {
		t.Fatalf("first run() = %d; stderr: %s", code, stderr.String())
	}
	if strings.Contains(first.String(), "Previous run") {
		t.Errorf("first run reported a previous run:\n%s", first.String())
	}

	if code := run(context.Background(), args, &second, &stderr); code != 0 {
		t.Fatalf("second run() = %d; stderr: %s", code, stderr.String())
	}
	if !strings.Contains(second.String(), "Previous run on ") || !strings.Contains(second.String(), ": 1 of 2 alive.") {
		t.Errorf("second run stdout missing the previous run line:\n%s", second.String())
	}
}
