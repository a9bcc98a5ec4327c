package stack

// =============================================================================
// Step and Stage Outcomes (Pure Functions)
// =============================================================================

// Policy determines whether a failing step aborts the run.
type Policy int

const (
	// PolicyStrict failures abort the run.
	PolicyStrict Policy = iota
	// PolicyBestEffort failures are logged and the run continues.
	PolicyBestEffort
)

// String returns the policy name.
func (p Policy) String() string {
	if p == PolicyBestEffort {
		return "best-effort"
	}
	return "strict"
}

// Outcome is the result class of a step or a stage.
type Outcome string

const (
	OutcomeSucceeded         Outcome = "succeeded"
	OutcomeRetryableFailure  Outcome = "retryable-failure"
	OutcomeBestEffortFailure Outcome = "best-effort-failure"
	OutcomeFatal             Outcome = "fatal"
)

// Aborts reports whether the outcome stops the run.
// A retryable failure only reaches a stage once its retry budget is spent.
func (o Outcome) Aborts() bool {
	return o == OutcomeFatal || o == OutcomeRetryableFailure
}

// StepResult records one side effect performed by a stage.
type StepResult struct {
	Name     string
	Outcome  Outcome
	Attempts int
	Message  string
	Err      error
}

// Failed reports whether the step did not succeed.
func (r StepResult) Failed() bool {
	return r.Outcome != OutcomeSucceeded
}

// StageResult aggregates the steps of one stage.
type StageResult struct {
	Stage   string
	Outcome Outcome
	Steps   []StepResult
	Err     error
}

// Classify maps a step error to an outcome under a policy.
//
//   - nil error: succeeded
//   - best-effort policy: best-effort failure, whatever the cause
//   - strict policy with an exhausted retry budget: retryable failure
//   - strict policy otherwise: fatal
func Classify(policy Policy, err error, exhausted bool) Outcome {
	if err == nil {
		return OutcomeSucceeded
	}
	if policy == PolicyBestEffort {
		return OutcomeBestEffortFailure
	}
	if exhausted {
		return OutcomeRetryableFailure
	}
	return OutcomeFatal
}

// NewStep builds a StepResult by classifying err under policy.
func NewStep(name string, policy Policy, attempts int, err error, exhausted bool) StepResult {
	r := StepResult{
		Name:     name,
		Outcome:  Classify(policy, err, exhausted),
		Attempts: attempts,
		Err:      err,
	}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

// Aggregate determines a stage outcome from its steps.
// The most severe step outcome wins: fatal, then retryable, then best-effort.
func Aggregate(steps []StepResult) Outcome {
	var retryable, bestEffort bool
	for _, s := range steps {
		switch s.Outcome {
		case OutcomeFatal:
			return OutcomeFatal
		case OutcomeRetryableFailure:
			retryable = true
		case OutcomeBestEffortFailure:
			bestEffort = true
		}
	}
	if retryable {
		return OutcomeRetryableFailure
	}
	if bestEffort {
		return OutcomeBestEffortFailure
	}
	return OutcomeSucceeded
}

// FirstError returns the error of the most severe failing step, or nil.
func FirstError(steps []StepResult) error {
	want := Aggregate(steps)
	if want == OutcomeSucceeded {
		return nil
	}
	for _, s := range steps {
		if s.Outcome == want {
			return s.Err
		}
	}
	return nil
}

// NewStageResult aggregates steps into a StageResult.
func NewStageResult(stage string, steps []StepResult) StageResult {
	return StageResult{
		Stage:   stage,
		Outcome: Aggregate(steps),
		Steps:   steps,
		Err:     FirstError(steps),
	}
}
