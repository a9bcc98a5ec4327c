// Package engine sequences a full deployment: host bootstrap, manifest fetch,
// environment materialization and the ordered stack stages with their
// post-deploy actions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/artpar/swarmup/internal/core/compose"
	"github.com/artpar/swarmup/internal/core/credentials"
	"github.com/artpar/swarmup/internal/core/envfile"
	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/artpar/swarmup/internal/shell/hooks"
	"github.com/artpar/swarmup/internal/shell/objectstore"
	"github.com/artpar/swarmup/internal/shell/store"
	"github.com/artpar/swarmup/internal/shell/wait"
)

// ErrNotReady is reported when a readiness probe never succeeds.
var ErrNotReady = errors.New("service not ready")

// runState is the mutable state threaded through the stages of one run.
type runState struct {
	bucket    string
	accessKey credentials.Credential
	secretKey credentials.Credential
}

// Sequencer applies the topology in order.
type Sequencer struct {
	deps     Deps
	settings Settings
	topology []stack.Definition
	bus      *Bus
	runID    string
	random   io.Reader
	now      func() time.Time
	logger   *slog.Logger
}

// NewSequencer creates a Sequencer for the standard topology.
func NewSequencer(deps Deps, settings Settings, runID string, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Sleep == nil {
		deps.Sleep = wait.Sleep
	}
	logger = logger.With("component", "sequencer", "run_id", runID)

	s := &Sequencer{
		deps:     deps,
		settings: settings.withDefaults(),
		topology: stack.Topology(),
		runID:    runID,
		now:      time.Now,
		logger:   logger,
	}
	s.bus = NewBus(logger)
	s.bus.Register(stack.ActionCreateDatabases, s.createDatabases)
	s.bus.Register(stack.ActionPersistStorageCredentials, s.persistStorageCredentials)
	s.bus.Register(stack.ActionConfigureStorage, s.configureStorage)
	s.bus.Register(stack.ActionMigrate, s.migrate)
	return s
}

// WithTopology replaces the stack definitions. Used by tests.
func (s *Sequencer) WithTopology(defs []stack.Definition) *Sequencer {
	s.topology = defs
	return s
}

// Run executes the whole deployment. The report is always returned; the
// error is a *RunError when a stage aborted the run.
func (s *Sequencer) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     s.runID,
		Domain:    s.settings.Domain,
		StartedAt: s.now().UTC(),
	}
	s.logger.Info("run started",
		"domain", s.settings.Domain,
		"manifest_source", s.settings.Source.URL,
		"manifest_version", s.settings.Source.Version,
		"stages", len(s.topology),
	)
	s.journalStart(ctx, report)

	err := s.run(ctx, report)

	report.FinishedAt = s.now().UTC()
	report.Outcome = runOutcome(report.Stages)
	if err == nil {
		report.URLs = stack.ServiceURLs(s.settings.Domain)
	}
	s.journalFinish(ctx, report, err)

	if err != nil {
		s.logger.Error("run aborted", "error", err, "duration", report.FinishedAt.Sub(report.StartedAt))
		return report, err
	}
	s.logger.Info("run finished",
		"outcome", report.Outcome,
		"warnings", len(report.Warnings()),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

func (s *Sequencer) run(ctx context.Context, report *Report) error {
	record := func(res stack.StageResult) error {
		report.Stages = append(report.Stages, res)
		s.journalStage(ctx, len(report.Stages)-1, res)
		if res.Outcome.Aborts() {
			return newRunError(s.runID, res)
		}
		if res.Outcome == stack.OutcomeBestEffortFailure {
			s.logger.Warn("stage completed with warnings", "stage", res.Stage, "error", res.Err)
		} else {
			s.logger.Info("stage completed", "stage", res.Stage)
		}
		return nil
	}

	if err := record(s.validate()); err != nil {
		return err
	}
	if err := record(s.bootstrap(ctx)); err != nil {
		return err
	}
	if err := record(s.fetch(ctx)); err != nil {
		return err
	}

	state := &runState{bucket: s.settings.Bucket}
	envResult := s.materialize(state)
	if err := record(envResult); err != nil {
		return err
	}
	report.Credentials = append(report.Credentials, state.accessKey, state.secretKey)

	for _, def := range s.topology {
		if err := record(s.stage(ctx, def, state)); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Preparation Stages
// =============================================================================

func (s *Sequencer) validate() stack.StageResult {
	err := stack.ValidateOrder(s.topology)
	return stack.NewStageResult(StageValidate, []stack.StepResult{
		stack.NewStep("dependency order", stack.PolicyStrict, 1, err, false),
	})
}

func (s *Sequencer) bootstrap(ctx context.Context) stack.StageResult {
	steps, err := s.deps.Bootstrapper.Run(ctx)
	res := stack.NewStageResult(StageBootstrap, steps)
	if err != nil && !res.Outcome.Aborts() {
		// A bootstrap error always aborts, whatever its steps say.
		res = stack.NewStageResult(StageBootstrap, append(steps, stack.NewStep("bootstrap", stack.PolicyStrict, 1, err, false)))
	}
	return res
}

func (s *Sequencer) fetch(ctx context.Context) stack.StageResult {
	attempts, err := s.deps.Fetcher.Fetch(ctx, s.settings.Source, s.settings.ManifestDir)
	return stack.NewStageResult(StageFetch, []stack.StepResult{
		stack.NewStep("clone manifests", stack.PolicyStrict, attempts, err, errors.Is(err, wait.ErrExhausted)),
	})
}

// materialize resolves credentials and writes the base substitution file.
func (s *Sequencer) materialize(state *runState) stack.StageResult {
	var steps []stack.StepResult

	previous, err := s.deps.Environment.Previous()
	steps = append(steps, stack.NewStep("read previous environment", stack.PolicyBestEffort, 1, err, false))
	if err != nil {
		previous = map[string]string{}
	}

	state.accessKey, err = credentials.Resolve(s.random, envfile.KeyStorageAccessKey, s.settings.AccessKey, previous[envfile.KeyStorageAccessKey], credentials.ClassAccess)
	if err == nil {
		state.secretKey, err = credentials.Resolve(s.random, envfile.KeyStorageSecretKey, s.settings.SecretKey, previous[envfile.KeyStorageSecretKey], credentials.ClassSecret)
	}
	steps = append(steps, stack.NewStep("resolve storage credentials", stack.PolicyStrict, 1, err, false))
	if err != nil {
		return stack.NewStageResult(StageEnvironment, steps)
	}
	s.logger.Info("storage credentials resolved",
		"access_key", state.accessKey.String(),
		"secret_key", state.secretKey.String(),
	)

	hash := previous[envfile.KeyPortainerAdminHash]
	if hash == "" || !credentials.MatchesHash(hash, s.settings.MasterPassword) {
		hash, err = credentials.HashForCompose(s.settings.MasterPassword)
	}
	steps = append(steps, stack.NewStep("hash admin credential", stack.PolicyStrict, 1, err, false))
	if err != nil {
		return stack.NewStageResult(StageEnvironment, steps)
	}

	base := envfile.Base(envfile.BaseParams{
		Domain:          s.settings.Domain,
		AdminEmail:      s.settings.AdminEmail,
		MasterPassword:  s.settings.MasterPassword,
		AdminHash:       hash,
		StorageRootUser: s.settings.StorageRootUser,
	})
	if state.accessKey.Reused || state.secretKey.Reused {
		// Credentials persisted by an earlier run must survive this rewrite,
		// even when the run aborts before the storage stage appends them.
		base = append(base, envfile.Storage(state.bucket, state.accessKey.Value, state.secretKey.Value)...)
	}
	err = s.deps.Environment.WriteBase(base)
	steps = append(steps, stack.NewStep("write base environment", stack.PolicyStrict, 1, err, false))
	return stack.NewStageResult(StageEnvironment, steps)
}

// =============================================================================
// Stack Stages
// =============================================================================

func (s *Sequencer) stage(ctx context.Context, def stack.Definition, state *runState) stack.StageResult {
	logger := s.logger.With("stage", def.Name)
	var steps []stack.StepResult
	done := func() stack.StageResult { return stack.NewStageResult(def.Name, steps) }

	if err := ctx.Err(); err != nil {
		steps = append(steps, stack.NewStep("start", stack.PolicyStrict, 0, err, false))
		return done()
	}

	values := s.deps.Environment.Values()
	manifest, err := s.deps.Loader.Load(ctx, def.Manifest, values)
	steps = append(steps, stack.NewStep("load manifest", stack.PolicyStrict, 1, err, false))
	if err != nil {
		return done()
	}
	if missing := compose.MissingVariables(manifest, values); len(missing) > 0 {
		logger.Warn("manifest references unset variables", "variables", missing)
	}
	if unknown := compose.UnknownExternals(manifest, stack.Networks(), stack.Volumes()); len(unknown) > 0 {
		logger.Warn("manifest references resources not created by bootstrap", "resources", unknown)
	}

	logger.Info("deploying stack", "manifest", def.Manifest, "services", manifest.Services)
	err = s.deps.Deployer.Deploy(ctx, def.Name, s.deps.Loader.Path(def.Manifest), s.deps.Environment.Environ())
	steps = append(steps, stack.NewStep("deploy", stack.PolicyStrict, 1, err, false))
	if err != nil {
		return done()
	}

	switch {
	case def.Probe != nil:
		check := stack.NewReadinessCheck(*def.Probe, s.settings.Domain, s.settings.ProbeInterval, s.settings.ProbeAttempts)
		var probeErr error
		attempts := 1
		if !s.deps.Prober.Probe(ctx, check) {
			probeErr = fmt.Errorf("%w: %s", ErrNotReady, check.URL)
			attempts = check.Attempts
			logger.Warn("stack not ready, continuing", "url", check.URL, "attempts", check.Attempts)
		}
		steps = append(steps, stack.NewStep("readiness", stack.PolicyBestEffort, attempts, probeErr, probeErr != nil))
	case def.Settle > 0:
		logger.Debug("settling", "duration", def.Settle)
		err := s.deps.Sleep(ctx, def.Settle)
		steps = append(steps, stack.NewStep("settle", stack.PolicyStrict, 1, err, false))
		if err != nil {
			return done()
		}
	}

	for _, action := range def.Actions {
		steps = append(steps, s.bus.Dispatch(ctx, action, state)...)
		if stack.Aggregate(steps).Aborts() {
			break
		}
	}
	return done()
}

// =============================================================================
// Post-Deploy Actions
// =============================================================================

func (s *Sequencer) createDatabases(ctx context.Context, _ *runState) []stack.StepResult {
	return s.deps.Databases.Provision(ctx, stack.DatabaseContainer, stack.Databases())
}

func (s *Sequencer) persistStorageCredentials(_ context.Context, state *runState) []stack.StepResult {
	err := s.deps.Environment.Append(envfile.Storage(state.bucket, state.accessKey.Value, state.secretKey.Value)...)
	return []stack.StepResult{
		stack.NewStep("persist storage credentials", stack.ActionPersistStorageCredentials.Policy(), 1, err, false),
	}
}

func (s *Sequencer) configureStorage(ctx context.Context, state *runState) []stack.StepResult {
	return s.deps.Storage.Configure(ctx, objectstore.Request{
		Bucket:    state.bucket,
		AccessKey: state.accessKey.Value,
		SecretKey: state.secretKey.Value,
	})
}

func (s *Sequencer) migrate(ctx context.Context, _ *runState) []stack.StepResult {
	return s.deps.Hooks.Run(ctx, hooks.MigrationHook())
}

// =============================================================================
// Journal
// =============================================================================

func (s *Sequencer) journalStart(ctx context.Context, report *Report) {
	if s.deps.Recorder == nil {
		return
	}
	err := s.deps.Recorder.StartRun(ctx, &store.Run{
		ID:              report.RunID,
		Domain:          report.Domain,
		ManifestURL:     s.settings.Source.URL,
		ManifestVersion: s.settings.Source.Version,
		StartedAt:       report.StartedAt,
	})
	if err != nil {
		s.logger.Warn("failed to journal run start", "error", err)
	}
}

func (s *Sequencer) journalStage(ctx context.Context, position int, res stack.StageResult) {
	if s.deps.Recorder == nil {
		return
	}
	if err := s.deps.Recorder.RecordStage(ctx, s.runID, position, res); err != nil {
		s.logger.Warn("failed to journal stage", "stage", res.Stage, "error", err)
	}
}

func (s *Sequencer) journalFinish(ctx context.Context, report *Report, runErr error) {
	if s.deps.Recorder == nil {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	// The run context may already be cancelled; the outcome is still recorded.
	ctx = context.WithoutCancel(ctx)
	if err := s.deps.Recorder.FinishRun(ctx, s.runID, report.Outcome, msg, report.FinishedAt); err != nil {
		s.logger.Warn("failed to journal run finish", "error", err)
	}
}

// runOutcome is the most severe stage outcome.
func runOutcome(stages []stack.StageResult) stack.Outcome {
	steps := make([]stack.StepResult, 0, len(stages))
	for _, st := range stages {
		steps = append(steps, stack.StepResult{Outcome: st.Outcome})
	}
	return stack.Aggregate(steps)
}
