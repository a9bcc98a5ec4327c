package engine

import (
	"fmt"
	"time"

	"github.com/artpar/swarmup/internal/core/credentials"
	"github.com/artpar/swarmup/internal/core/stack"
)

// Stage names that are not stacks.
const (
	StageValidate    = "validate"
	StageBootstrap   = "bootstrap"
	StageFetch       = "fetch"
	StageEnvironment = "environment"
)

// Report is the result of one run.
type Report struct {
	RunID      string
	Domain     string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    stack.Outcome
	Stages     []stack.StageResult

	// Credentials are the resolved storage credentials. Their String method
	// never prints the value.
	Credentials []credentials.Credential

	// URLs is the operator summary, set only when the run did not abort.
	URLs []stack.ServiceURL
}

// Warnings returns the failed best-effort steps of every stage.
func (r *Report) Warnings() []stack.StepResult {
	var out []stack.StepResult
	for _, st := range r.Stages {
		for _, s := range st.Steps {
			if s.Outcome == stack.OutcomeBestEffortFailure {
				s.Name = st.Stage + ": " + s.Name
				out = append(out, s)
			}
		}
	}
	return out
}

// Stage returns the result of the named stage.
func (r *Report) Stage(name string) (stack.StageResult, bool) {
	for _, st := range r.Stages {
		if st.Stage == name {
			return st, true
		}
	}
	return stack.StageResult{}, false
}

// RunError is returned when a stage aborts the run.
type RunError struct {
	RunID   string
	Stage   string
	Step    string
	Outcome stack.Outcome
	Err     error
}

func (e *RunError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Step, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// newRunError builds a RunError from an aborting stage result.
func newRunError(runID string, res stack.StageResult) *RunError {
	e := &RunError{RunID: runID, Stage: res.Stage, Outcome: res.Outcome, Err: res.Err}
	for _, s := range res.Steps {
		if s.Outcome == res.Outcome {
			e.Step = s.Name
			break
		}
	}
	return e
}
