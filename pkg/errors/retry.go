package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// Defaults for idempotent tracker reads such as duplicate lookups.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 10 * time.Second
	DefaultJitter     = 0.4 // delays vary by ±20%
)

// RetryConfig controls Retry and RetryWithResult.
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Delay before the first retry, doubled each time
	MaxDelay   time.Duration // Cap for any single delay
	Jitter     float64       // 0 disables jitter
}

// DefaultRetryConfig returns a RetryConfig with the package defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Jitter:     DefaultJitter,
	}
}

// Backoff returns the wait before retry number attempt (zero based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := c.BaseDelay
	for i := 0; i < attempt && d < c.MaxDelay; i++ {
		d *= 2
	}
	d = min(d, c.MaxDelay)

	if c.Jitter > 0 {
		d = time.Duration(float64(d) * (1 - c.Jitter/2 + c.Jitter*rand.Float64()))
	}
	return d
}

// waitFor prefers a server-supplied delay, still capped by MaxDelay.
func (c RetryConfig) waitFor(attempt int, err error) time.Duration {
	var ra RetryAfterError
	if As(err, &ra) && ra.RetryAfter() > 0 {
		return min(ra.RetryAfter(), c.MaxDelay)
	}
	return c.Backoff(attempt)
}

// RetryAfterError lets a failure dictate the wait before the next attempt,
// e.g. from a Retry-After header.
type RetryAfterError interface {
	error
	RetryAfter() time.Duration
}

// Retry calls fn until it succeeds or fails permanently.
// Only use it for idempotent calls; issue creation is never retried.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult calls fn until it succeeds, returns an error IsRetryable
// rejects, exhausts cfg.MaxRetries, or ctx is done.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, Wrap(err, "context done before first attempt")
	}

	for attempt := 0; ; attempt++ {
		result, err := fn()
		switch {
		case err == nil:
			return result, nil
		case !IsRetryable(err):
			return result, err
		case attempt == cfg.MaxRetries:
			return result, Wrapf(err, "failed after %d retries", cfg.MaxRetries)
		}

		timer := time.NewTimer(cfg.waitFor(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, Wrapf(err, "context done during backoff (attempt %d/%d)", attempt+1, cfg.MaxRetries)
		case <-timer.C:
		}
	}
}
