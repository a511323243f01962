package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type fakeGrabber struct {
	alive bool
	err   error
	url   string
}

func (g *fakeGrabber) Grab(_ context.Context, url string) (bool, error) {
	g.url = url
	return g.alive, g.err
}

func TestServeWorker(t *testing.T) {
	tests := []struct {
		name       string
		grabber    *fakeGrabber
		wantCode   int
		wantReport *Report
	}{
		{
			name:       "packet read",
			grabber:    &fakeGrabber{alive: true},
			wantCode:   exitReported,
			wantReport: &Report{Alive: true},
		},
		{
			name:       "stream error",
			grabber:    &fakeGrabber{err: errors.New("open stream: Connection refused")},
			wantCode:   exitReported,
			wantReport: &Report{Error: "open stream: Connection refused"},
		},
		{
			name:       "alive with error is not alive",
			grabber:    &fakeGrabber{alive: true, err: errors.New("partial read")},
			wantCode:   exitReported,
			wantReport: &Report{Error: "partial read"},
		},
		{
			name:     "missing ffprobe",
			grabber:  &fakeGrabber{err: fmt.Errorf("ffprobe not found: %w", exec.ErrNotFound)},
			wantCode: exitNoProbe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := serveWorker(context.Background(), tt.grabber, "rtsp://cam/live", &stdout, &stderr)

			if code != tt.wantCode {
				t.Errorf("serveWorker() = %d, want %d", code, tt.wantCode)
			}
			if tt.grabber.url != "rtsp://cam/live" {
				t.Errorf("grabber got url %q", tt.grabber.url)
			}

			if tt.wantReport == nil {
				if stdout.Len() != 0 {
					t.Errorf("stdout = %q, want no report", stdout.String())
				}
				if stderr.Len() == 0 {
					t.Error("expected a diagnostic on stderr")
				}
				return
			}

			if strings.Count(stdout.String(), "\n") != 1 {
				t.Errorf("stdout = %q, want exactly one line", stdout.String())
			}
			var got Report
			if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
				t.Fatalf("report is not JSON: %v", err)
			}
			if got != *tt.wantReport {
				t.Errorf("report = %+v, want %+v", got, *tt.wantReport)
			}
		})
	}
}

func TestRunWorker_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no url", nil},
		{"two urls", []string{"--", "rtsp://a", "rtsp://b"}},
		{"unknown flag", []string{"-bogus", "rtsp://a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := RunWorker(context.Background(), tt.args, &stdout, &stderr); code != exitUsage {
				t.Errorf("RunWorker() = %d, want %d", code, exitUsage)
			}
			if stdout.Len() != 0 {
				t.Errorf("stdout = %q, want empty", stdout.String())
			}
		})
	}
}

func TestRunWorker_MissingFFprobe(t *testing.T) {
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "ffprobe")

	code := RunWorker(context.Background(), []string{"-ffprobe", missing, "--", "rtsp://cam/live"}, &stdout, &stderr)
	if code != exitNoProbe {
		t.Errorf("RunWorker() = %d, want %d", code, exitNoProbe)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want no report", stdout.String())
	}
	if !strings.Contains(stderr.String(), "ffprobe not found") {
		t.Errorf("stderr = %q, want not-found message", stderr.String())
	}
}

func TestFFprobeGrabber_Args(t *testing.T) {
	g := &FFprobeGrabber{UserAgent: "TestAgent/1.0"}
	tail := []string{"-show_packets", "-read_intervals", "%+#1", "-of", "json"}

	tests := []struct {
		url    string
		middle []string
	}{
		{"rtsp://cam/live", []string{"-rtsp_transport", "tcp"}},
		{"RTSP://cam/live", []string{"-rtsp_transport", "tcp"}},
		{"https://cam/live.m3u8", []string{"-user_agent", "TestAgent/1.0"}},
		{"http://cam/mjpg/video.mjpg", []string{"-user_agent", "TestAgent/1.0"}},
		{"rtmp://cam/live", nil},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			want := append([]string{"-v", "error"}, tt.middle...)
			want = append(want, tail...)
			want = append(want, "-i", tt.url)
			if got := g.Args(tt.url); !reflect.DeepEqual(got, want) {
				t.Errorf("Args(%q) = %v, want %v", tt.url, got, want)
			}
		})
	}
}

func TestFFprobeGrabber_ArgsDashURL(t *testing.T) {
	g := &FFprobeGrabber{}
	args := g.Args("-report")
	if n := len(args); n < 2 || args[n-2] != "-i" || args[n-1] != "-report" {
		t.Errorf("Args(%q) = %v, want the URL passed through -i", "-report", args)
	}
}

func TestFFprobeGrabber_ArgsWithoutUserAgent(t *testing.T) {
	g := &FFprobeGrabber{}
	for _, arg := range g.Args("http://cam/live.m3u8") {
		if arg == "-user_agent" {
			t.Fatal("Args() sent -user_agent with an empty user agent")
		}
	}
}

func TestFFprobeGrabber_NotFound(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"absolute path", filepath.Join(t.TempDir(), "ffprobe")},
		{"not in PATH", "deadcam-no-such-ffprobe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &FFprobeGrabber{Path: tt.path}
			alive, err := g.Grab(context.Background(), "rtsp://cam/live")
			if alive {
				t.Error("Grab() alive = true, want false")
			}
			if !errors.Is(err, exec.ErrNotFound) {
				t.Errorf("Grab() error = %v, want exec.ErrNotFound", err)
			}
		})
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"single", "single"},
		{"  first\nsecond\n", "first"},
		{"\n\nrtsp://cam: Connection refused\nmore", "rtsp://cam: Connection refused"},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
