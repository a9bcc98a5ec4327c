package wait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// =============================================================================
// Errors
// =============================================================================

// ErrExhausted matches errors returned once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// ExhaustedError carries the attempt count and the last error of an operation.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Is reports the error as ErrExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns it after the
// current attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// =============================================================================
// Retrier
// =============================================================================

// RetryConfig configures a Retrier.
type RetryConfig struct {
	// Attempts is the total number of tries, including the first.
	// Default: 10.
	Attempts int

	// Interval is the fixed delay between attempts.
	// Default: 3 seconds.
	Interval time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 10,
		Interval: 3 * time.Second,
	}
}

// Retrier runs operations until they succeed or the attempt budget is spent.
type Retrier struct {
	config RetryConfig
	logger *slog.Logger
}

// NewRetrier creates a Retrier. Zero fields take their defaults.
func NewRetrier(config RetryConfig, logger *slog.Logger) *Retrier {
	defaults := DefaultRetryConfig()
	if config.Attempts <= 0 {
		config.Attempts = defaults.Attempts
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		config: config,
		logger: logger.With("component", "retrier"),
	}
}

// Attempts returns the attempt budget.
func (r *Retrier) Attempts() int {
	return r.config.Attempts
}

// Do invokes fn up to the attempt budget, sleeping Interval between tries.
// It returns the number of attempts made and:
//   - nil on the first success
//   - the unwrapped error of a Permanent failure
//   - the context error if ctx ends while waiting
//   - an *ExhaustedError after the last failed attempt
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) (int, error) {
	backoff := retry.WithMaxRetries(uint64(r.config.Attempts-1), retry.NewConstant(r.config.Interval))

	attempts := 0
	var last error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if IsPermanent(err) {
			return err
		}
		r.logger.Debug("attempt failed",
			"op", op,
			"attempt", attempts,
			"max_attempts", r.config.Attempts,
			"error", err,
		)
		return retry.RetryableError(err)
	})

	switch {
	case err == nil:
		return attempts, nil
	case IsPermanent(err):
		return attempts, errors.Unwrap(err)
	case ctx.Err() != nil:
		return attempts, ctx.Err()
	}
	if last == nil {
		last = err
	}
	return attempts, &ExhaustedError{Op: op, Attempts: attempts, Err: last}
}
