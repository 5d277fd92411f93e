package rollout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/openclaw/clawtrace/rollout/trace"
)

// DefaultLocalTimeout bounds one CLI invocation. CLI runs are interactive
// turns, much shorter than gateway rollouts.
const DefaultLocalTimeout = 120 * time.Second

// LocalAgent runs turns by invoking the openclaw CLI as a subprocess.
// Like the gateway client it resolves every failure to sentinel text, so
// callers treat both backends identically.
type LocalAgent struct {
	bin         string
	workDir     string
	sessionFile string
	timeout     time.Duration
}

// NewLocalAgent creates a CLI-backed agent. Empty bin falls back to
// "openclaw" on PATH; workDir and sessionFile may be empty.
func NewLocalAgent(bin, workDir, sessionFile string, timeout time.Duration) *LocalAgent {
	if bin == "" {
		bin = "openclaw"
	}
	if timeout <= 0 {
		timeout = DefaultLocalTimeout
	}
	return &LocalAgent{bin: bin, workDir: workDir, sessionFile: sessionFile, timeout: timeout}
}

// Send implements Agent. The CLI returns plain text only, so the response
// never carries a run id or structured messages.
func (a *LocalAgent) Send(ctx context.Context, input trace.TaskInput) *Response {
	return &Response{OK: true, Text: a.Run(ctx, input.Message)}
}

// Run invokes the CLI with one message and returns its output. A non-zero
// exit returns stderr (falling back to stdout); timeouts and a missing
// binary return bracketed sentinels.
func (a *LocalAgent) Run(ctx context.Context, message string) string {
	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	args := []string{"agent", "--message", message}
	if a.sessionFile != "" {
		args = append(args, "--session-file", a.sessionFile)
	}
	cmd := exec.CommandContext(runCtx, a.bin, args...)
	cmd.Dir = a.workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return "[OpenClaw run timed out]"
	}
	switch {
	case err == nil:
		return stdout.String()
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Sprintf("[OpenClaw not found: %s. Set OPENCLAW_BIN or ensure openclaw is on PATH.]", a.bin)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if out := stderr.String(); out != "" {
				return out
			}
			return stdout.String()
		}
		return fmt.Sprintf("[OpenClaw error: %v]", err)
	}
}
