package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
)

var (
	// ErrRateLimit indicates that the API rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retry executes an operation returning a value with exponential backoff.
// Errors wrapped in a non-retryable RetryableError stop immediately.
func Retry[T any](ctx context.Context, operation func() (T, error), opts service.RetryOptions) (T, error) {
	opts = opts.WithDefaults()
	delay := opts.InitialDelay

	var zero T
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		value, err := operation()
		if err == nil {
			return value, nil
		}

		var retryableErr *RetryableError
		if errors.As(err, &retryableErr) && !retryableErr.Retryable {
			return zero, err
		}

		if errors.Is(err, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		if attempt == opts.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err)
		}

		slog.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * opts.Multiplier)
			if delay > opts.MaxDelay {
				delay = opts.MaxDelay
			}
		}
	}

	return zero, ErrMaxRetries
}
