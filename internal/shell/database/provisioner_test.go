package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/artpar/swarmup/internal/shell/docker"
	"github.com/artpar/swarmup/internal/shell/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
// =============================================================================

type mockLocator struct {
	handle wait.Handle
	err    error
}

func (m *mockLocator) Locate(context.Context, string) (wait.Handle, error) {
	return m.handle, m.err
}

// mockPostgres tracks created databases and fails the first bootFailures execs.
type mockPostgres struct {
	created      map[string]bool
	execs        []docker.ExecSpec
	bootFailures int
}

func (m *mockPostgres) Exec(_ context.Context, _ string, spec docker.ExecSpec) (docker.ExecResult, error) {
	m.execs = append(m.execs, spec)
	if len(m.execs) <= m.bootFailures {
		return docker.ExecResult{Stderr: "psql: the database system is starting up", ExitCode: 2}, docker.ErrExecFailed
	}
	stmt := spec.Cmd[len(spec.Cmd)-1]
	if m.created[stmt] {
		return docker.ExecResult{Stderr: "ERROR:  database already exists", ExitCode: 1}, docker.ErrExecFailed
	}
	m.created[stmt] = true
	return docker.ExecResult{Stdout: "CREATE DATABASE"}, nil
}

func newTestProvisioner(loc Locator, exec Executor) *Provisioner {
	retrier := wait.NewRetrier(wait.RetryConfig{Attempts: 5, Interval: time.Millisecond}, nil)
	return NewProvisioner(loc, exec, retrier, "", "secret", nil)
}

// =============================================================================
// Provisioner Tests
// =============================================================================

func TestCreateStatement(t *testing.T) {
	assert.Equal(t, `CREATE DATABASE "chatwoot"`, CreateStatement("chatwoot"))
	assert.Equal(t, `CREATE DATABASE "we""ird"`, CreateStatement(`we"ird`))
}

func TestProvision_CreatesEachDatabase(t *testing.T) {
	pg := &mockPostgres{created: map[string]bool{}}
	p := newTestProvisioner(&mockLocator{handle: wait.Handle{ID: "c1", Name: "postgres_postgres.1"}}, pg)

	steps := p.Provision(context.Background(), stack.DatabaseContainer, stack.Databases())

	require.Len(t, steps, 3)
	assert.Equal(t, stack.OutcomeSucceeded, stack.Aggregate(steps))
	assert.Len(t, pg.created, 3)
	assert.Equal(t, []string{"psql", "-U", "postgres", "-v", "ON_ERROR_STOP=1", "-c", `CREATE DATABASE "chatwoot"`}, pg.execs[0].Cmd)
	assert.Equal(t, []string{"PGPASSWORD=secret"}, pg.execs[0].Env)
}

func TestProvision_AlreadyExistsIsSuccess(t *testing.T) {
	pg := &mockPostgres{created: map[string]bool{}}
	p := newTestProvisioner(&mockLocator{handle: wait.Handle{ID: "c1"}}, pg)

	_ = p.Provision(context.Background(), "x", stack.Databases())
	steps := p.Provision(context.Background(), "x", stack.Databases())

	assert.Equal(t, stack.OutcomeSucceeded, stack.Aggregate(steps))
	for _, s := range steps {
		assert.Equal(t, 1, s.Attempts)
	}
}

func TestProvision_RetriesWhileServerBoots(t *testing.T) {
	pg := &mockPostgres{created: map[string]bool{}, bootFailures: 3}
	p := newTestProvisioner(&mockLocator{handle: wait.Handle{ID: "c1"}}, pg)

	steps := p.Provision(context.Background(), "x", []string{"n8n"})

	require.Len(t, steps, 1)
	assert.Equal(t, stack.OutcomeSucceeded, steps[0].Outcome)
	assert.Equal(t, 4, steps[0].Attempts)
}

func TestProvision_ExhaustionIsBestEffort(t *testing.T) {
	pg := &mockPostgres{created: map[string]bool{}, bootFailures: 1000}
	p := newTestProvisioner(&mockLocator{handle: wait.Handle{ID: "c1"}}, pg)

	steps := p.Provision(context.Background(), "x", []string{"chatwoot", "n8n"})

	require.Len(t, steps, 2)
	for _, s := range steps {
		assert.Equal(t, stack.OutcomeBestEffortFailure, s.Outcome)
		assert.Equal(t, 5, s.Attempts)
		assert.ErrorIs(t, s.Err, wait.ErrExhausted)
	}
}

func TestProvision_NoContainerSkips(t *testing.T) {
	pg := &mockPostgres{created: map[string]bool{}}
	p := newTestProvisioner(&mockLocator{err: wait.ErrNotFound}, pg)

	steps := p.Provision(context.Background(), stack.DatabaseContainer, stack.Databases())

	require.Len(t, steps, 1)
	assert.Equal(t, stack.OutcomeBestEffortFailure, steps[0].Outcome)
	assert.False(t, steps[0].Outcome.Aborts())
	assert.Empty(t, pg.execs)
}

type vanishingExecutor struct{ calls int }

func (v *vanishingExecutor) Exec(context.Context, string, docker.ExecSpec) (docker.ExecResult, error) {
	v.calls++
	return docker.ExecResult{}, docker.NewDockerError("Exec", "container", "c1", "container not found", docker.ErrContainerNotFound)
}

func TestProvision_ContainerGoneStopsRetrying(t *testing.T) {
	exec := &vanishingExecutor{}
	p := newTestProvisioner(&mockLocator{handle: wait.Handle{ID: "c1"}}, exec)

	steps := p.Provision(context.Background(), "x", []string{"n8n"})

	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, stack.OutcomeBestEffortFailure, steps[0].Outcome)
	assert.True(t, errors.Is(steps[0].Err, docker.ErrContainerNotFound))
}
