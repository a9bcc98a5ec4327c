package store

import (
	"context"
	"time"

	"github.com/artpar/swarmup/internal/core/stack"
)

// =============================================================================
// Journal Types
// =============================================================================

// Run is one recorded deployment run.
type Run struct {
	ID              string
	Domain          string
	ManifestURL     string
	ManifestVersion string
	Outcome         stack.Outcome // empty while the run is in progress
	Error           string
	StartedAt       time.Time
	FinishedAt      *time.Time
}

// Finished reports whether the run has completed.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// StepRecord is the persisted form of a stack.StepResult.
type StepRecord struct {
	Name     string        `json:"name"`
	Outcome  stack.Outcome `json:"outcome"`
	Attempts int           `json:"attempts"`
	Message  string        `json:"message,omitempty"`
}

// StageRecord is the persisted form of a stack.StageResult.
type StageRecord struct {
	RunID      string
	Position   int
	Stage      string
	Outcome    stack.Outcome
	Error      string
	Steps      []StepRecord
	RecordedAt time.Time
}

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface of the run journal.
type Store interface {
	// Run operations
	StartRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id string, outcome stack.Outcome, errMsg string, finishedAt time.Time) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Stage operations
	RecordStage(ctx context.Context, runID string, position int, result stack.StageResult) error
	ListStages(ctx context.Context, runID string) ([]StageRecord, error)

	Close() error
}
