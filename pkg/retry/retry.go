package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	clog "github.com/xrsl/reachout/pkg/log"
)

// Config holds retry configuration
type Config struct {
	Op          string        // Operation name used in log lines
	MaxRetries  int           // Maximum number of retry attempts
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
	Multiplier  float64       // Multiplier for exponential backoff
	JitterRatio float64       // Jitter ratio (0-1) to add randomness
}

// DefaultConfig returns the backoff used for language-model calls
func DefaultConfig() Config {
	return Config{
		Op:          "llm",
		MaxRetries:  3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		JitterRatio: 0.1,
	}
}

// RetryableError wraps an error that should trigger a retry
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}

// Retryable wraps an error to indicate it should be retried
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// retry budget is spent. The returned error is never a *RetryableError.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			clog.Debug("non-retryable error", "op", cfg.Op, "error", err)
			return zero, err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		delay := cfg.calculateDelay(attempt)

		clog.Debug("retrying after error",
			"op", cfg.Op,
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	var retryable *RetryableError
	if errors.As(lastErr, &retryable) {
		return zero, retryable.Err
	}
	return zero, lastErr
}

// calculateDelay computes the delay for a given attempt with jitter
func (c Config) calculateDelay(attempt int) time.Duration {
	// baseDelay * multiplier^attempt
	delay := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt))

	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.JitterRatio > 0 {
		jitter := delay * c.JitterRatio * (rand.Float64()*2 - 1) // -jitter to +jitter
		delay += jitter
	}

	return time.Duration(delay)
}
