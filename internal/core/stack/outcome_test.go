package stack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Classify Tests
// =============================================================================

func TestClassify(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		policy    Policy
		err       error
		exhausted bool
		want      Outcome
	}{
		{"strict success", PolicyStrict, nil, false, OutcomeSucceeded},
		{"best-effort success", PolicyBestEffort, nil, false, OutcomeSucceeded},
		{"strict failure", PolicyStrict, boom, false, OutcomeFatal},
		{"strict exhausted", PolicyStrict, boom, true, OutcomeRetryableFailure},
		{"best-effort failure", PolicyBestEffort, boom, false, OutcomeBestEffortFailure},
		{"best-effort exhausted", PolicyBestEffort, boom, true, OutcomeBestEffortFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.policy, tt.err, tt.exhausted))
		})
	}
}

func TestOutcome_Aborts(t *testing.T) {
	assert.False(t, OutcomeSucceeded.Aborts())
	assert.False(t, OutcomeBestEffortFailure.Aborts())
	assert.True(t, OutcomeRetryableFailure.Aborts())
	assert.True(t, OutcomeFatal.Aborts())
}

// =============================================================================
// Aggregate Tests
// =============================================================================

func TestAggregate_Empty(t *testing.T) {
	assert.Equal(t, OutcomeSucceeded, Aggregate(nil))
}

func TestAggregate_MostSevereWins(t *testing.T) {
	ok := StepResult{Name: "a", Outcome: OutcomeSucceeded}
	soft := StepResult{Name: "b", Outcome: OutcomeBestEffortFailure}
	retry := StepResult{Name: "c", Outcome: OutcomeRetryableFailure}
	fatal := StepResult{Name: "d", Outcome: OutcomeFatal}

	assert.Equal(t, OutcomeSucceeded, Aggregate([]StepResult{ok, ok}))
	assert.Equal(t, OutcomeBestEffortFailure, Aggregate([]StepResult{ok, soft}))
	assert.Equal(t, OutcomeRetryableFailure, Aggregate([]StepResult{soft, retry}))
	assert.Equal(t, OutcomeFatal, Aggregate([]StepResult{retry, fatal, soft}))
}

func TestNewStageResult_CarriesMostSevereError(t *testing.T) {
	softErr := errors.New("bucket unreachable")
	fatalErr := errors.New("deploy failed")

	res := NewStageResult("minio", []StepResult{
		NewStep("configure", PolicyBestEffort, 10, softErr, true),
		NewStep("deploy", PolicyStrict, 1, fatalErr, false),
	})

	assert.Equal(t, "minio", res.Stage)
	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.Equal(t, fatalErr, res.Err)
}

func TestNewStep_Message(t *testing.T) {
	step := NewStep("clone", PolicyStrict, 10, errors.New("timeout"), true)

	assert.Equal(t, "timeout", step.Message)
	assert.Equal(t, 10, step.Attempts)
	assert.True(t, step.Failed())

	ok := NewStep("clone", PolicyStrict, 1, nil, false)
	assert.Empty(t, ok.Message)
	assert.False(t, ok.Failed())
}
