package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lukemcguire/deadcam/link"
	"github.com/lukemcguire/deadcam/result"
	"github.com/lukemcguire/deadcam/urlutil"
)

const (
	// maxWorkerStderr bounds the worker diagnostics kept for a verdict.
	maxWorkerStderr = 4 << 10

	// workerWaitDelay bounds how long Wait blocks on I/O held open by
	// descendants that escaped the worker's process group.
	workerWaitDelay = time.Second
)

// CommandFunc builds the command for an isolated worker that probes url.
// The returned command must not have been started.
type CommandFunc func(url string) *exec.Cmd

// SelfCommand returns a CommandFunc that re-executes the running binary in
// worker mode.
func SelfCommand(ffprobePath, userAgent string) (CommandFunc, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return func(url string) *exec.Cmd {
		return exec.Command(exe, WorkerCommand, "-ffprobe", ffprobePath, "-user-agent", userAgent, "--", url)
	}, nil
}

// StreamProbe checks video and streaming endpoints. The open-and-read attempt
// runs in a separate worker process so a stalled stream library can be killed
// without affecting the caller.
type StreamProbe struct {
	command CommandFunc
	logger  *zap.Logger

	// afterReap is called with the worker command once it has been waited on.
	afterReap func(cmd *exec.Cmd)
}

// NewStreamProbe creates a StreamProbe that spawns workers with command.
func NewStreamProbe(command CommandFunc, logger *zap.Logger) *StreamProbe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamProbe{command: command, logger: logger}
}

// workerOutcome is what the stdout reader hands back to Probe.
type workerOutcome struct {
	report Report
	err    error
}

// Probe spawns one worker for rec and waits up to timeout for its report.
// The worker's process group is killed and reaped on every return path.
func (p *StreamProbe) Probe(ctx context.Context, rec link.Record, timeout time.Duration) (v result.Verdict) {
	v = result.Verdict{Record: rec, Strategy: link.StrategyStream, CheckedAt: time.Now()}
	defer func() { v.Duration = time.Since(v.CheckedAt) }()

	cmd := p.command(rec.URL)
	isolate(cmd)
	cmd.WaitDelay = workerWaitDelay
	stderr := &limitedBuffer{max: maxWorkerStderr}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		v.Reason = result.ReasonCrashed
		v.Detail = fmt.Sprintf("create worker pipe: %v", err)
		return
	}
	if err := cmd.Start(); err != nil {
		v.Reason = result.ReasonCrashed
		v.Detail = fmt.Sprintf("start worker: %v", err)
		return
	}
	// Worker stderr is only complete once Wait has returned, so the crash
	// detail is filled in after the reap.
	var crashErr error
	defer func() {
		if crashErr != nil {
			v.Detail = joinDetail(crashErr.Error(), stderr.String())
		}
	}()
	defer p.reap(cmd, rec.URL)

	outcomes := make(chan workerOutcome, 1)
	go func() {
		outcomes <- readReport(stdout)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-outcomes:
		if out.err != nil {
			v.Reason = result.ReasonCrashed
			crashErr = out.err
			return
		}
		v.Alive = out.report.Alive
		v.Reason = result.ReasonOK
		if !v.Alive {
			v.Reason = result.ReasonEmpty
			v.Detail = out.report.Error
		}
	case <-timer.C:
		v.Reason = result.ReasonTimeout
		v.Detail = fmt.Sprintf("worker killed after %s", timeout)
	case <-ctx.Done():
		v.Reason = result.ReasonTimeout
		v.Detail = "batch cancelled"
	}
	return
}

// reap kills whatever is left of the worker's process group and waits for
// the worker so no zombie or descendant outlives the probe.
func (p *StreamProbe) reap(cmd *exec.Cmd, url string) {
	if err := killGroup(cmd); err != nil {
		p.logger.Warn("kill worker", zap.String("url", urlutil.Redact(url)), zap.Int("pid", cmd.Process.Pid), zap.Error(err))
	}
	// Wait reports the kill signal as an error; only the reap matters here.
	if err := cmd.Wait(); err != nil && !isExitError(err) {
		p.logger.Debug("wait worker", zap.String("url", urlutil.Redact(url)), zap.Error(err))
	}
	if p.afterReap != nil {
		p.afterReap(cmd)
	}
}

// readReport decodes the single JSON report a worker writes to stdout.
func readReport(r io.Reader) workerOutcome {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		if errors.Is(err, io.EOF) {
			return workerOutcome{err: errors.New("worker exited without a result")}
		}
		return workerOutcome{err: fmt.Errorf("decode worker result: %w", err)}
	}
	return workerOutcome{report: rep}
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay)
}

func joinDetail(msg, stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return msg
	}
	return msg + ": " + stderr
}

// limitedBuffer keeps the first max bytes written to it and drops the rest.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
