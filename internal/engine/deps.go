package engine

import (
	"context"
	"time"

	"github.com/artpar/swarmup/internal/core/compose"
	"github.com/artpar/swarmup/internal/core/envfile"
	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/artpar/swarmup/internal/shell/hooks"
	"github.com/artpar/swarmup/internal/shell/manifests"
	"github.com/artpar/swarmup/internal/shell/objectstore"
	"github.com/artpar/swarmup/internal/shell/store"
	"github.com/artpar/swarmup/internal/shell/wait"
)

// =============================================================================
// Collaborators
// =============================================================================

// Bootstrapper prepares the host.
type Bootstrapper interface {
	Run(ctx context.Context) ([]stack.StepResult, error)
}

// Fetcher retrieves the manifest tree.
type Fetcher interface {
	Fetch(ctx context.Context, src manifests.Source, dir string) (int, error)
}

// Loader resolves and parses manifests inside the fetched tree.
type Loader interface {
	Path(manifest string) string
	Load(ctx context.Context, manifest string, env map[string]string) (*compose.Manifest, error)
}

// Environment is the substitution file.
type Environment interface {
	Path() string
	Previous() (map[string]string, error)
	WriteBase(entries []envfile.Entry) error
	Append(entries ...envfile.Entry) error
	Environ() []string
	Values() map[string]string
}

// Deployer applies a manifest as a named stack.
type Deployer interface {
	Deploy(ctx context.Context, name, manifest string, env []string) error
}

// Prober polls a readiness endpoint.
type Prober interface {
	Probe(ctx context.Context, check stack.ReadinessCheck) bool
}

// DatabaseProvisioner creates logical databases.
type DatabaseProvisioner interface {
	Provision(ctx context.Context, pattern string, databases []string) []stack.StepResult
}

// StorageConfigurator ensures object-storage resources.
type StorageConfigurator interface {
	Configure(ctx context.Context, req objectstore.Request) []stack.StepResult
}

// HookRunner runs in-container commands.
type HookRunner interface {
	Run(ctx context.Context, h hooks.Hook) []stack.StepResult
}

// Recorder journals runs. store.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, run *store.Run) error
	RecordStage(ctx context.Context, runID string, position int, result stack.StageResult) error
	FinishRun(ctx context.Context, runID string, outcome stack.Outcome, errMsg string, finishedAt time.Time) error
}

// Deps holds the collaborators of a Sequencer.
type Deps struct {
	Bootstrapper Bootstrapper
	Fetcher      Fetcher
	Loader       Loader
	Environment  Environment
	Deployer     Deployer
	Prober       Prober
	Databases    DatabaseProvisioner
	Storage      StorageConfigurator
	Hooks        HookRunner
	Recorder     Recorder       // nil disables the journal
	Sleep        wait.SleepFunc // nil uses wait.Sleep
}
