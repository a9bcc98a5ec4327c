// Package command runs host processes for the operations the Docker SDK does
// not cover (stack deploy, git clone, engine install).
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// =============================================================================
// Types
// =============================================================================

// Cmd describes one process invocation.
type Cmd struct {
	Name  string
	Args  []string
	Env   []string // appended to the current process environment
	Dir   string
	Stdin io.Reader
}

// String returns the command line without the environment.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns stdout and stderr joined, trimmed.
func (r Result) Output() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner runs host processes.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
	LookPath(name string) (string, error)
}

// =============================================================================
// Errors
// =============================================================================

// ErrNonZeroExit matches errors of processes that ran but exited non-zero.
var ErrNonZeroExit = errors.New("command exited non-zero")

// Error wraps a failed process run with its command line and output.
type Error struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit %d: %s", e.Command, e.ExitCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Command, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports non-zero exits as ErrNonZeroExit.
func (e *Error) Is(target error) bool {
	return target == ErrNonZeroExit && e.ExitCode > 0
}

// =============================================================================
// Exec Runner
// =============================================================================

// ExecRunner runs processes with os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger.With("component", "command")}
}

// Run starts the process, waits for it and captures its output.
// A non-zero exit returns both the Result and an *Error.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command", "command", c.String(), "dir", c.Dir)
	err := cmd.Run()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return res, &Error{
		Command:  c.String(),
		ExitCode: res.ExitCode,
		Stderr:   res.Stderr,
		Err:      err,
	}
}

// LookPath searches PATH for an executable.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
