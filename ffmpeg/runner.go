package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a subprocess exceeds its deadline and is killed.
var ErrTimeout = errors.New("subprocess timed out")

// Result captures the outcome of a finished subprocess.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Elapsed  time.Duration
}

// Runner executes an external command and captures its output.
//
// Implementations must return a non-nil *ExitError when the process exits
// with a non-zero status, and an error wrapping ErrTimeout when the deadline
// expires.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExitError reports a non-zero exit status together with the captured stderr.
type ExitError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.ExitCode, tail(e.Stderr, 2048))
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds every invocation; zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewExecRunner creates an ExecRunner with the given per-invocation timeout.
func NewExecRunner(timeout time.Duration, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{Timeout: timeout, Logger: logger}
}

// Run starts name with args and blocks until it exits, the timeout expires
// or ctx is cancelled. On expiry the process is killed; any partial output
// it wrote is left on disk.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	r.Logger.Debug("exec", "cmd", name, "args", strings.Join(args, " "))

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Elapsed:  time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w: %s killed after %s", ErrTimeout, name, r.Timeout)
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s interrupted: %w", name, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{
			Name:     name,
			Args:     args,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}

	return res, fmt.Errorf("failed to start %s: %w", name, err)
}

// CommandLine renders name and args as a single shell-like string for logs and dry runs.
func CommandLine(name string, args []string) string {
	return name + " " + strings.Join(args, " ")
}

// tail keeps the last n bytes of s; ffmpeg puts the useful error at the end.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
