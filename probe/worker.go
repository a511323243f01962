package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/lukemcguire/deadcam/urlutil"
)

// WorkerCommand is the hidden sub-command that puts the binary in worker mode.
const WorkerCommand = "__probe-worker"

// Exit codes of the worker process. Only exitReported comes with a report.
const (
	exitReported = 0
	exitWrite    = 1
	exitUsage    = 2
	exitNoProbe  = 3
)

// Report is the single result line a worker writes to stdout.
type Report struct {
	Alive bool   `json:"alive"`           // Stream opened and a packet was read
	Error string `json:"error,omitempty"` // Why the stream could not be read
}

// FrameGrabber opens a stream and tries to read one frame or sample from it.
// Implementations may block indefinitely; they only ever run inside a worker.
type FrameGrabber interface {
	Grab(ctx context.Context, url string) (bool, error)
}

// RunWorker is the worker-mode entry point. args are the arguments following
// WorkerCommand. It returns the process exit code.
func RunWorker(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(WorkerCommand, flag.ContinueOnError)
	flags.SetOutput(stderr)
	ffprobePath := flags.String("ffprobe", "ffprobe", "path to the ffprobe binary")
	userAgent := flags.String("user-agent", "", "user agent for http(s) streams")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() != 1 {
		_, _ = fmt.Fprintf(stderr, "usage: %s [flags] <url>\n", WorkerCommand)
		return exitUsage
	}

	grabber := &FFprobeGrabber{Path: *ffprobePath, UserAgent: *userAgent}
	return serveWorker(ctx, grabber, flags.Arg(0), stdout, stderr)
}

// serveWorker runs one grab and writes its report.
func serveWorker(ctx context.Context, grabber FrameGrabber, url string, stdout, stderr io.Writer) int {
	alive, err := grabber.Grab(ctx, url)
	if errors.Is(err, exec.ErrNotFound) {
		// Not a property of the stream: exit without a report.
		_, _ = fmt.Fprintln(stderr, err)
		return exitNoProbe
	}

	rep := Report{Alive: alive && err == nil}
	if err != nil {
		rep.Error = err.Error()
	}
	if encErr := json.NewEncoder(stdout).Encode(rep); encErr != nil {
		_, _ = fmt.Fprintf(stderr, "write report: %v\n", encErr)
		return exitWrite
	}
	return exitReported
}

// FFprobeGrabber reads a single packet from a stream with ffprobe.
type FFprobeGrabber struct {
	Path      string // ffprobe binary, looked up in PATH when not absolute
	UserAgent string // sent for http(s) streams when set
}

// Args returns the ffprobe arguments used to read one packet from url. The
// URL goes through -i so a value starting with "-" is never read as an option.
func (g *FFprobeGrabber) Args(url string) []string {
	args := []string{"-v", "error"}
	switch {
	case urlutil.Scheme(url) == "rtsp" || urlutil.Scheme(url) == "rtsps":
		args = append(args, "-rtsp_transport", "tcp")
	case urlutil.IsHTTPScheme(url) && g.UserAgent != "":
		args = append(args, "-user_agent", g.UserAgent)
	}
	return append(args,
		"-show_packets",
		"-read_intervals", "%+#1",
		"-of", "json",
		"-i", url,
	)
}

// Grab reports whether url opened and yielded at least one packet.
func (g *FFprobeGrabber) Grab(ctx context.Context, url string) (bool, error) {
	path := g.Path
	if path == "" {
		path = "ffprobe"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, g.Args(url)...)
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("ffprobe not found at %q: %w", path, exec.ErrNotFound)
		}
		if msg := firstLine(stderr.String()); msg != "" {
			return false, fmt.Errorf("open stream: %s", msg)
		}
		return false, fmt.Errorf("open stream: %w", err)
	}

	var parsed struct {
		Packets []json.RawMessage `json:"packets"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return false, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Packets) == 0 {
		return false, errors.New("stream opened but no packet was read")
	}
	return true, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
