package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy holds configuration for retry logic
type Policy struct {
	MaxAttempts  int           // Maximum number of attempts (including the first)
	InitialDelay time.Duration // Delay before the second attempt
	Multiplier   float64       // Multiplier applied to the delay after each failure
	MaxDelay     time.Duration // Upper bound on the delay; 0 means uncapped
}

// DefaultPolicy returns the default retry policy: five attempts with
// exponential backoff starting at one second and doubling, uncapped.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
	}
}

// ExhaustedError is returned when every attempt has failed. It carries the
// error from the last attempt; errors.Is and errors.As reach through it.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Invoke executes op, retrying on failure with exponential backoff until it
// succeeds or the policy's attempts are exhausted. A successful attempt
// returns immediately with no further delay. The delay applies only between
// attempts, never after the last one; waiting respects ctx cancellation.
// Earlier failures are logged at debug level and otherwise discarded.
func Invoke[T any](ctx context.Context, policy Policy, op func() (T, error)) (T, error) {
	var zero T

	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = 1 * time.Second
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = 2.0
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Don't sleep after the last attempt
		if attempt == policy.MaxAttempts {
			break
		}

		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Dur("delay", delay).
			Msg("Attempt failed, retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return zero, &ExhaustedError{Attempts: policy.MaxAttempts, Err: lastErr}
}

// Do is Invoke for operations that produce no result.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	_, err := Invoke(ctx, policy, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
