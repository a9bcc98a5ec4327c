// Package database creates the logical databases required by the application
// stacks inside the running database container.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/artpar/swarmup/internal/shell/docker"
	"github.com/artpar/swarmup/internal/shell/wait"
	"github.com/lib/pq"
)

// Locator finds a running container by name pattern.
type Locator interface {
	Locate(ctx context.Context, pattern string) (wait.Handle, error)
}

// Executor runs commands inside containers.
type Executor interface {
	Exec(ctx context.Context, containerID string, spec docker.ExecSpec) (docker.ExecResult, error)
}

// Provisioner issues one CREATE DATABASE per required database.
type Provisioner struct {
	locator  Locator
	executor Executor
	retrier  *wait.Retrier
	user     string
	password string
	logger   *slog.Logger
}

// NewProvisioner creates a Provisioner authenticating as user.
func NewProvisioner(locator Locator, executor Executor, retrier *wait.Retrier, user, password string, logger *slog.Logger) *Provisioner {
	if user == "" {
		user = "postgres"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		locator:  locator,
		executor: executor,
		retrier:  retrier,
		user:     user,
		password: password,
		logger:   logger.With("component", "database"),
	}
}

// CreateStatement returns the statement creating database name.
func CreateStatement(name string) string {
	return "CREATE DATABASE " + pq.QuoteIdentifier(name)
}

// alreadyExists reports whether psql output says the database exists.
func alreadyExists(res docker.ExecResult) bool {
	return strings.Contains(res.Stderr, "already exists") || strings.Contains(res.Stdout, "already exists")
}

// Provision locates the database container and creates each database.
// It never aborts a run: a missing container yields one best-effort
// failure, and each database gets its own best-effort step.
func (p *Provisioner) Provision(ctx context.Context, pattern string, databases []string) []stack.StepResult {
	handle, err := p.locator.Locate(ctx, pattern)
	if err != nil {
		p.logger.Warn("database container not found, skipping database creation", "pattern", pattern, "error", err)
		return []stack.StepResult{stack.NewStep("locate database container", stack.PolicyBestEffort, 1, err, false)}
	}

	steps := make([]stack.StepResult, 0, len(databases))
	for _, name := range databases {
		attempts, err := p.create(ctx, handle, name)
		step := stack.NewStep("create database "+name, stack.PolicyBestEffort, attempts, err, errors.Is(err, wait.ErrExhausted))
		if err != nil {
			p.logger.Warn("database creation failed, continuing", "database", name, "attempts", attempts, "error", err)
		}
		steps = append(steps, step)
	}
	return steps
}

func (p *Provisioner) create(ctx context.Context, handle wait.Handle, name string) (int, error) {
	spec := docker.ExecSpec{
		Cmd: []string{"psql", "-U", p.user, "-v", "ON_ERROR_STOP=1", "-c", CreateStatement(name)},
	}
	if p.password != "" {
		spec.Env = []string{"PGPASSWORD=" + p.password}
	}

	var existed bool
	attempts, err := p.retrier.Do(ctx, "create database "+name, func(ctx context.Context) error {
		res, err := p.executor.Exec(ctx, handle.ID, spec)
		if err == nil {
			return nil
		}
		if alreadyExists(res) {
			existed = true
			return nil
		}
		if errors.Is(err, docker.ErrContainerNotFound) {
			return wait.Permanent(fmt.Errorf("container %s disappeared: %w", handle.Name, err))
		}
		return err
	})
	if err != nil {
		return attempts, err
	}

	if existed {
		p.logger.Debug("database exists", "database", name)
	} else {
		p.logger.Info("database created", "database", name)
	}
	return attempts, nil
}
