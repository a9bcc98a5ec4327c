package objectstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/artpar/swarmup/internal/shell/wait"
)

// Request describes the storage resources to ensure.
type Request struct {
	Bucket    string
	AccessKey string
	SecretKey string
}

// Configurator ensures the bucket, policy and user exist.
type Configurator struct {
	connector Connector
	retrier   *wait.Retrier
	logger    *slog.Logger
}

// NewConfigurator creates a Configurator.
func NewConfigurator(connector Connector, retrier *wait.Retrier, logger *slog.Logger) *Configurator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Configurator{
		connector: connector,
		retrier:   retrier,
		logger:    logger.With("component", "objectstore"),
	}
}

// Configure runs every sub-step, each retried on its own. A failing sub-step
// does not prevent the next ones from being attempted. All steps are
// best-effort.
func (c *Configurator) Configure(ctx context.Context, req Request) []stack.StepResult {
	admin, err := c.connector.Connect(ctx)
	if err != nil {
		c.logger.Warn("storage container not found, skipping storage configuration", "error", err)
		return []stack.StepResult{stack.NewStep("locate storage container", stack.PolicyBestEffort, 1, err, false)}
	}

	policy := PolicyName(req.Bucket)
	subSteps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"create bucket", func(ctx context.Context) error { return admin.CreateBucket(ctx, req.Bucket) }},
		{"put policy", func(ctx context.Context) error { return admin.PutPolicy(ctx, policy, BucketPolicy(req.Bucket)) }},
		{"add user", func(ctx context.Context) error { return admin.AddUser(ctx, req.AccessKey, req.SecretKey) }},
		{"attach policy", func(ctx context.Context) error { return admin.AttachPolicy(ctx, policy, req.AccessKey) }},
	}

	steps := make([]stack.StepResult, 0, len(subSteps))
	for _, s := range subSteps {
		attempts, err := c.retrier.Do(ctx, s.name, s.fn)
		step := stack.NewStep(s.name, stack.PolicyBestEffort, attempts, err, errors.Is(err, wait.ErrExhausted))
		if err != nil {
			c.logger.Warn("storage step failed, continuing", "step", s.name, "attempts", attempts, "error", err)
		} else {
			c.logger.Info("storage step done", "step", s.name, "bucket", req.Bucket)
		}
		steps = append(steps, step)
	}
	return steps
}
