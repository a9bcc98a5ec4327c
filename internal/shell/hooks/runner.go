// Package hooks runs one-time commands inside application containers after
// their stack deploys.
package hooks

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/artpar/swarmup/internal/shell/docker"
	"github.com/artpar/swarmup/internal/shell/wait"
)

// Locator finds a running container by name pattern.
type Locator interface {
	Locate(ctx context.Context, pattern string) (wait.Handle, error)
}

// Executor runs commands inside containers.
type Executor interface {
	Exec(ctx context.Context, containerID string, spec docker.ExecSpec) (docker.ExecResult, error)
}

// Hook is a command run in the container matching Pattern.
type Hook struct {
	Name    string
	Pattern string
	Cmd     []string
	Env     []string
}

// MigrationHook returns the migration of the support application.
func MigrationHook() Hook {
	return Hook{
		Name:    "migrate " + stack.StackSupport,
		Pattern: stack.MigrationContainer,
		Cmd:     stack.MigrationCommand(),
	}
}

// Runner executes hooks. Hooks are best-effort and never abort a run.
type Runner struct {
	locator  Locator
	executor Executor
	retrier  *wait.Retrier
	logger   *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(locator Locator, executor Executor, retrier *wait.Retrier, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		locator:  locator,
		executor: executor,
		retrier:  retrier,
		logger:   logger.With("component", "hooks"),
	}
}

// Run locates the hook container and runs the command with retries. A
// container that never appears is a warning.
func (r *Runner) Run(ctx context.Context, h Hook) []stack.StepResult {
	handle, err := r.locator.Locate(ctx, h.Pattern)
	if err != nil {
		r.logger.Warn("hook container not found, skipping", "hook", h.Name, "pattern", h.Pattern, "error", err)
		return []stack.StepResult{stack.NewStep("locate "+h.Name, stack.PolicyBestEffort, 1, err, false)}
	}

	r.logger.Info("running hook", "hook", h.Name, "container", handle.Name, "command", strings.Join(h.Cmd, " "))
	attempts, err := r.retrier.Do(ctx, h.Name, func(ctx context.Context) error {
		_, err := r.executor.Exec(ctx, handle.ID, docker.ExecSpec{Cmd: h.Cmd, Env: h.Env})
		if errors.Is(err, docker.ErrContainerNotFound) {
			return wait.Permanent(err)
		}
		return err
	})

	step := stack.NewStep(h.Name, stack.PolicyBestEffort, attempts, err, errors.Is(err, wait.ErrExhausted))
	if err != nil {
		r.logger.Warn("hook failed, continuing", "hook", h.Name, "attempts", attempts, "error", err)
	} else {
		r.logger.Info("hook completed", "hook", h.Name, "attempts", attempts)
	}
	return []stack.StepResult{step}
}
