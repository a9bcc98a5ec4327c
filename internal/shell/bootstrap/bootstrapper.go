// Package bootstrap prepares the host before any stack is deployed: container
// engine, swarm mode, shared networks, volumes and the proxy certificate store.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/artpar/swarmup/internal/shell/command"
	"github.com/artpar/swarmup/internal/shell/docker"
	"github.com/artpar/swarmup/internal/shell/wait"
)

// Runtime is the part of docker.Runtime the bootstrapper uses.
type Runtime interface {
	Ping(ctx context.Context) error
	SwarmActive(ctx context.Context) (bool, error)
	InitSwarm(ctx context.Context, advertiseAddr string) error
	CreateNetwork(ctx context.Context, spec docker.NetworkSpec) (string, error)
	CreateVolume(ctx context.Context, spec docker.VolumeSpec) (string, error)
	VolumeMountpoint(ctx context.Context, name string) (string, error)
}

// Config lists the shared resources to ensure.
type Config struct {
	Networks      []string
	Volumes       []string
	CertStore     stack.CertStore
	InstallScript string
}

// DefaultConfig returns the resources of the standard topology.
func DefaultConfig() Config {
	return Config{
		Networks:      stack.Networks(),
		Volumes:       stack.Volumes(),
		CertStore:     stack.ProxyCertStore(),
		InstallScript: DefaultInstallScript,
	}
}

// Bootstrapper ensures host resources exist. Every step succeeds whether or
// not the resource was already present.
type Bootstrapper struct {
	runtime Runtime
	runner  command.Runner
	retrier *wait.Retrier
	address AddressFunc
	config  Config
	logger  *slog.Logger
}

// NewBootstrapper creates a Bootstrapper. A nil address func uses PrimaryAddress.
func NewBootstrapper(runtime Runtime, runner command.Runner, retrier *wait.Retrier, address AddressFunc, config Config, logger *slog.Logger) *Bootstrapper {
	if address == nil {
		address = PrimaryAddress
	}
	if config.InstallScript == "" {
		config.InstallScript = DefaultInstallScript
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{
		runtime: runtime,
		runner:  runner,
		retrier: retrier,
		address: address,
		config:  config,
		logger:  logger.With("component", "bootstrap"),
	}
}

// Run ensures every resource and returns one step per resource. The error is
// non-nil when a step aborts the run; later steps are then not attempted.
func (b *Bootstrapper) Run(ctx context.Context) ([]stack.StepResult, error) {
	var steps []stack.StepResult

	strict := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{"engine", b.ensureEngine},
		{"daemon", b.ensureDaemon},
		{"swarm", b.ensureSwarm},
	}
	for _, s := range strict {
		attempts, err := s.fn(ctx)
		step := stack.NewStep(s.name, stack.PolicyStrict, attempts, err, errors.Is(err, wait.ErrExhausted))
		steps = append(steps, step)
		if step.Outcome.Aborts() {
			b.logger.Error("bootstrap step failed", "step", s.name, "error", err)
			return steps, err
		}
	}

	for _, name := range b.config.Networks {
		steps = append(steps, b.bestEffort("network:"+name, b.ensureNetwork(ctx, name)))
	}
	for _, name := range b.config.Volumes {
		steps = append(steps, b.bestEffort("volume:"+name, b.ensureVolume(ctx, name)))
	}
	if b.config.CertStore.Volume != "" {
		steps = append(steps, b.bestEffort("cert-store", b.ensureCertStore(ctx)))
	}

	return steps, nil
}

func (b *Bootstrapper) bestEffort(name string, err error) stack.StepResult {
	step := stack.NewStep(name, stack.PolicyBestEffort, 1, err, false)
	if err != nil {
		b.logger.Warn("bootstrap step failed, continuing", "step", name, "error", err)
	}
	return step
}

// =============================================================================
// Strict Steps
// =============================================================================

func (b *Bootstrapper) ensureEngine(ctx context.Context) (int, error) {
	if engineInstalled(b.runner) {
		b.logger.Debug("container engine present")
		return 1, nil
	}

	b.logger.Info("installing container engine", "script", b.config.InstallScript)
	attempts, err := b.retrier.Do(ctx, "install engine", func(ctx context.Context) error {
		return installEngine(ctx, b.runner, b.config.InstallScript)
	})
	if err != nil {
		return attempts, err
	}
	if !engineInstalled(b.runner) {
		return attempts, errors.New("engine installer finished but docker is not on PATH")
	}
	return attempts, nil
}

func (b *Bootstrapper) ensureDaemon(ctx context.Context) (int, error) {
	return b.retrier.Do(ctx, "reach docker daemon", b.runtime.Ping)
}

func (b *Bootstrapper) ensureSwarm(ctx context.Context) (int, error) {
	active, err := b.runtime.SwarmActive(ctx)
	if err != nil {
		return 1, err
	}
	if active {
		b.logger.Debug("swarm already active")
		return 1, nil
	}

	addr, err := b.address()
	if err != nil {
		return 1, fmt.Errorf("determine advertise address: %w", err)
	}
	b.logger.Info("initializing swarm", "advertise_addr", addr)
	return 1, b.runtime.InitSwarm(ctx, addr)
}

// =============================================================================
// Best-Effort Steps
// =============================================================================

func (b *Bootstrapper) ensureNetwork(ctx context.Context, name string) error {
	_, err := b.runtime.CreateNetwork(ctx, docker.NetworkSpec{
		Name:       name,
		Driver:     "overlay",
		Attachable: true,
		Labels:     map[string]string{docker.LabelManaged: "true"},
	})
	if errors.Is(err, docker.ErrNetworkAlreadyExists) {
		b.logger.Debug("network exists", "network", name)
		return nil
	}
	if err == nil {
		b.logger.Info("network created", "network", name)
	}
	return err
}

func (b *Bootstrapper) ensureVolume(ctx context.Context, name string) error {
	_, err := b.runtime.CreateVolume(ctx, docker.VolumeSpec{
		Name:   name,
		Labels: map[string]string{docker.LabelManaged: "true"},
	})
	return err
}

// ensureCertStore creates the certificate file if missing and enforces its
// mode. Existing content is kept.
func (b *Bootstrapper) ensureCertStore(ctx context.Context) error {
	cs := b.config.CertStore
	mount, err := b.runtime.VolumeMountpoint(ctx, cs.Volume)
	if err != nil {
		return err
	}

	path := filepath.Join(mount, cs.File)
	mode := os.FileMode(cs.Mode)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}
