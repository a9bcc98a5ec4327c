package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/artpar/swarmup/internal/engine"
	"github.com/artpar/swarmup/internal/shell/bootstrap"
	"github.com/artpar/swarmup/internal/shell/command"
	"github.com/artpar/swarmup/internal/shell/database"
	"github.com/artpar/swarmup/internal/shell/docker"
	"github.com/artpar/swarmup/internal/shell/environment"
	"github.com/artpar/swarmup/internal/shell/hooks"
	"github.com/artpar/swarmup/internal/shell/manifests"
	"github.com/artpar/swarmup/internal/shell/objectstore"
	"github.com/artpar/swarmup/internal/shell/store"
	"github.com/artpar/swarmup/internal/shell/wait"
	"github.com/google/uuid"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess      = 0
	ExitConfigError  = 1
	ExitJournalError = 2
	ExitDockerError  = 3
	ExitDeployError  = 4
)

// AppError carries the exit code of a failed command.
type AppError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *AppError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// =============================================================================
// App
// =============================================================================

// App wires the components of one deployment run.
type App struct {
	config    *Config
	runID     string
	docker    *docker.DockerClient
	journal   store.Store
	sequencer *engine.Sequencer
	logger    *slog.Logger
}

// NewApp creates the runtime client, the optional journal and the sequencer.
func NewApp(cfg *Config, logger *slog.Logger) (*App, error) {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	d, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		return nil, &AppError{Op: "NewApp", Err: err, ExitCode: ExitDockerError}
	}

	var journal store.Store
	if cfg.Journal.DSN != "" {
		s, err := newJournal(cfg.Journal.DSN)
		if err != nil {
			// The journal is informational; a broken one never blocks a run.
			logger.Warn("run journal unavailable", "dsn", cfg.Journal.DSN, "error", err)
		} else {
			journal = s
		}
	}

	runner := command.NewExecRunner(logger)
	retrier := wait.NewRetrier(wait.RetryConfig{
		Attempts: cfg.Retry.Attempts,
		Interval: cfg.Retry.Interval,
	}, logger)
	locator := wait.NewLocator(d, wait.LocatorConfig{
		Attempts: cfg.Wait.LocateAttempts,
		Interval: cfg.Wait.LocateInterval,
	}, logger)

	deps := engine.Deps{
		Bootstrapper: bootstrap.NewBootstrapper(d, runner, retrier, nil, bootstrap.DefaultConfig(), logger),
		Fetcher:      manifests.NewFetcher(runner, retrier, logger),
		Loader:       manifests.NewLoader(cfg.Manifests.Dir),
		Environment:  environment.NewMaterializer(cfg.Env.File, logger),
		Deployer:     docker.NewStackDeployer(runner, logger),
		Prober: wait.NewProber(wait.ProberConfig{
			VerifyTLS:      cfg.Wait.VerifyTLS,
			RequestTimeout: cfg.Wait.ProbeTimeout,
		}, logger),
		Databases: database.NewProvisioner(locator, d, retrier, cfg.Database.User, cfg.MasterPassword, logger),
		Storage: objectstore.NewConfigurator(
			objectstore.NewContainerConnector(locator, d, stack.StorageContainer, cfg.Storage.RootUser, cfg.MasterPassword, logger),
			retrier, logger),
		Hooks: hooks.NewRunner(locator, d, retrier, logger),
	}
	if journal != nil {
		deps.Recorder = journal
	}

	settings := engine.Settings{
		Domain:          cfg.Domain,
		AdminEmail:      cfg.AdminEmail,
		MasterPassword:  cfg.MasterPassword,
		Source:          manifests.Source{URL: cfg.Manifests.URL, Version: cfg.Manifests.Version},
		ManifestDir:     cfg.Manifests.Dir,
		StorageRootUser: cfg.Storage.RootUser,
		Bucket:          cfg.Storage.Bucket,
		AccessKey:       cfg.Storage.AccessKey,
		SecretKey:       cfg.Storage.SecretKey,
		ProbeInterval:   cfg.Wait.ProbeInterval,
		ProbeAttempts:   cfg.Wait.ProbeAttempts,
	}

	return &App{
		config:    cfg,
		runID:     runID,
		docker:    d,
		journal:   journal,
		sequencer: engine.NewSequencer(deps, settings, runID, logger),
		logger:    logger,
	}, nil
}

// Deploy runs the sequencer and maps an aborted run to an exit code.
func (a *App) Deploy(ctx context.Context) (*engine.Report, error) {
	report, err := a.sequencer.Run(ctx)
	if err == nil {
		return report, nil
	}

	code := ExitDeployError
	var runErr *engine.RunError
	if errors.As(err, &runErr) && runErr.Stage == engine.StageBootstrap {
		code = ExitDockerError
	}
	return report, &AppError{Op: "Deploy", Err: err, ExitCode: code}
}

// Close releases the runtime client and the journal.
func (a *App) Close() error {
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	errs = append(errs, a.docker.Close())
	return errors.Join(errs...)
}

// openJournal opens the journal for read-only commands.
func openJournal(cfg *Config) (store.Store, error) {
	if cfg.Journal.DSN == "" {
		return nil, &AppError{Op: "openJournal", Err: errors.New("journal is disabled"), ExitCode: ExitConfigError}
	}
	s, err := newJournal(cfg.Journal.DSN)
	if err != nil {
		return nil, &AppError{Op: "openJournal", Err: err, ExitCode: ExitJournalError}
	}
	return s, nil
}

func newJournal(dsn string) (*store.SQLiteStore, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, err
		}
	}
	return store.NewSQLiteStore(dsn)
}
