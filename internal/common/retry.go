package common

import (
	"context"
	"errors"
	"time"
)

// RetryableFunc defines a function that can be retried.
// It should return an error if the operation failed and needs to be retried.
type RetryableFunc func() error

// BackoffFunc computes the delay before the next attempt. It receives the
// attempt number that just failed (starting at 1) and the error it failed
// with, so callers can pick a longer delay for rate-limit style failures.
type BackoffFunc func(attempt int, err error) time.Duration

// Config holds the configuration for retry behavior.
type Config struct {
	maxAttempts int
	backoff     BackoffFunc
}

// Option is a functional option for configuring retry behavior.
type Option func(*Config)

// WithMaxAttempts sets the total number of attempts (first try included).
// Default is 3 attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the backoff function used between attempts.
// Default is LinearBackoff(2 * time.Second).
func WithBackoff(fn BackoffFunc) Option {
	return func(c *Config) {
		if fn != nil {
			c.backoff = fn
		}
	}
}

// LinearBackoff returns a backoff function that waits base × attempt:
// base after the first failure, 2×base after the second, and so on.
func LinearBackoff(base time.Duration) BackoffFunc {
	return func(attempt int, _ error) time.Duration {
		return base * time.Duration(attempt)
	}
}

func defaultConfig() *Config {
	return &Config{
		maxAttempts: 3,
		backoff:     LinearBackoff(2 * time.Second),
	}
}

// permanentError wraps an error that must not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks an error as non-retryable: Do returns it immediately,
// unwrapped, without consuming the remaining attempts. Used for HTTP 404
// where retrying cannot change the outcome.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do executes the provided function with bounded retry.
// It respects context cancellation and will stop retrying if the context is
// cancelled while waiting out a backoff delay.
//
// The function will:
// - Execute immediately on the first attempt
// - Retry on failure, sleeping backoff(attempt, err) between attempts
// - Return nil if any attempt succeeds
// - Return immediately on an error wrapped with Permanent
// - Return the last error once all attempts are spent
//
// Example usage:
//
//	err := common.Do(ctx, func() error {
//	    return someAPICall()
//	},
//	    common.WithMaxAttempts(3),
//	    common.WithBackoff(common.LinearBackoff(2*time.Second)),
//	)
func Do(ctx context.Context, fn RetryableFunc, opts ...Option) error {
	if fn == nil {
		return errors.New("retry: function cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == cfg.maxAttempts {
			break
		}

		// Sleep with context cancellation support
		timer := time.NewTimer(cfg.backoff(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
