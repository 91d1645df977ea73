// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Pipeline failure taxonomy. None of these abort a batch.
	ErrExternalService = errors.New("external service failure")
	ErrExtraction      = errors.New("extraction failed")
	ErrMalformedInput  = errors.New("malformed input")
	ErrStorage         = errors.New("storage failure")

	// Regex synthesis errors.
	ErrRegexCooldown = errors.New("regex generation in cooldown")
	ErrRegexInvalid  = errors.New("generated regex failed validation")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ExternalError wraps a failure from the embedding, LLM or telemetry services.
func ExternalError(service string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExternalService, service, err)
}

// StorageError wraps a pattern persistence failure.
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
