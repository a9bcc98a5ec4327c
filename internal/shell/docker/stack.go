package docker

import (
	"context"
	"log/slog"

	"github.com/artpar/swarmup/internal/shell/command"
)

// =============================================================================
// Stack Deployer
// =============================================================================

// The SDK has no stack API, so stacks are applied through the docker CLI.

// StackDeployer applies manifests as swarm stacks.
type StackDeployer struct {
	runner command.Runner
	binary string
	logger *slog.Logger
}

// NewStackDeployer creates a StackDeployer using the docker binary on PATH.
func NewStackDeployer(runner command.Runner, logger *slog.Logger) *StackDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StackDeployer{
		runner: runner,
		binary: "docker",
		logger: logger.With("component", "stack_deployer"),
	}
}

// DeployArgs returns the CLI arguments that deploy manifest as stack name.
func DeployArgs(name, manifest string) []string {
	return []string{
		"stack", "deploy",
		"--detach=true",
		"--with-registry-auth",
		"--compose-file", manifest,
		name,
	}
}

// Deploy creates or updates the stack. env holds the substitution values the
// manifest references; swarm reconciles unchanged services as no-ops.
func (s *StackDeployer) Deploy(ctx context.Context, name, manifest string, env []string) error {
	s.logger.Info("deploying stack", "stack", name, "manifest", manifest)

	res, err := s.runner.Run(ctx, command.Cmd{
		Name: s.binary,
		Args: DeployArgs(name, manifest),
		Env:  env,
	})
	if err != nil {
		msg := res.Output()
		if msg == "" {
			msg = err.Error()
		}
		return NewDockerError("Deploy", "stack", name, msg, ErrStackDeployFailed)
	}

	s.logger.Debug("stack deployed", "stack", name, "output", res.Output())
	return nil
}
