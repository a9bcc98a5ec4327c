package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/swarmup/internal/shell/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	calls  []command.Cmd
	result command.Result
	err    error
}

func (f *mockRunner) Run(_ context.Context, c command.Cmd) (command.Result, error) {
	f.calls = append(f.calls, c)
	return f.result, f.err
}

func (f *mockRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

// =============================================================================
// Stack Deployer Tests
// =============================================================================

func TestDeployArgs(t *testing.T) {
	args := DeployArgs("postgres", "/tmp/stacks/postgres/postgres.yaml")

	assert.Equal(t, []string{
		"stack", "deploy", "--detach=true", "--with-registry-auth",
		"--compose-file", "/tmp/stacks/postgres/postgres.yaml", "postgres",
	}, args)
}

func TestStackDeployer_Deploy(t *testing.T) {
	runner := &mockRunner{}
	d := NewStackDeployer(runner, nil)

	err := d.Deploy(context.Background(), "redis", "/m/redis.yaml", []string{"DOMAIN=example.com"})

	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "docker", runner.calls[0].Name)
	assert.Equal(t, []string{"DOMAIN=example.com"}, runner.calls[0].Env)
	assert.Equal(t, "redis", runner.calls[0].Args[len(runner.calls[0].Args)-1])
}

func TestStackDeployer_DeployFailure(t *testing.T) {
	runner := &mockRunner{
		result: command.Result{Stderr: "service minio: invalid mount config", ExitCode: 1},
		err:    errors.New("exit status 1"),
	}
	d := NewStackDeployer(runner, nil)

	err := d.Deploy(context.Background(), "minio", "/m/minio.yaml", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStackDeployFailed)
	assert.Contains(t, err.Error(), "invalid mount config")
	assert.Contains(t, err.Error(), "minio")
}
