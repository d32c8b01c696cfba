// Package retry wraps fallible generation calls with classified, bounded,
// exponentially backed-off retries. Transient failures are retried with
// jittered backoff; quota and fatal failures short-circuit immediately so the
// fallback path engages without burning the retry budget.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/panelforge/internal/generate"
)

// Policy bounds the retry behavior for one operation.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// total attempt count is MaxRetries+1.
	MaxRetries int

	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// Jitter scales each delay by a random factor in [0.5, 1.0) to avoid a
	// thundering herd against the rate limiter.
	Jitter bool

	// sleep is injectable for deterministic tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the backoff the generation vendors were tuned
// against: 3 retries, 1s initial delay, 30s cap, jittered.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       true,
	}
}

// Do runs op until it succeeds, a non-retryable failure occurs, or the retry
// budget is exhausted. It returns the operation's value, the number of
// attempts made (always >= 1), and the terminal error if any.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	var zero T
	sleep := policy.sleep
	if sleep == nil {
		sleep = realSleep
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return zero, attempt + 1, generate.NewError(generate.ClassDeadline, lastErr)
		}

		val, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info().Int("attempt", attempt+1).Msg("Operation succeeded after retry")
			}
			return val, attempt + 1, nil
		}
		lastErr = err

		class := generate.ClassOf(err)
		if !class.Retryable() {
			log.Warn().
				Err(err).
				Str("class", string(class)).
				Int("attempt", attempt+1).
				Msg("Non-retryable error, aborting")
			return zero, attempt + 1, err
		}

		if attempt >= policy.MaxRetries {
			log.Error().
				Err(err).
				Int("attempts", attempt+1).
				Msg("Retry budget exhausted")
			return zero, attempt + 1, err
		}

		delay := policy.delayFor(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("Transient error, retrying")

		if err := sleep(ctx, delay); err != nil {
			return zero, attempt + 1, generate.NewError(generate.ClassDeadline, lastErr)
		}
	}
}

// delayFor computes the backoff before retrying after the given zero-based
// attempt: min(initial * 2^attempt, max), optionally jittered.
func (p Policy) delayFor(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter && delay > 0 {
		delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
	}
	return delay
}

// realSleep waits for d or context cancellation.
func realSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
