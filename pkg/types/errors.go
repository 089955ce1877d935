package types

import (
	"errors"
	"time"
)

// RetryableError wraps an error with an explicit retryability verdict.
// The network layer produces these so the retry engine and the connectivity
// classifier do not have to guess from error strings.
type RetryableError struct {
	// Err is the underlying error
	Err error

	// Retryable indicates whether the error is worth retrying
	Retryable bool

	// RetryAfter is an optional server-suggested retry delay
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries an explicit retryable verdict.
// Errors without a RetryableError in their chain default to retryable;
// bounding attempts is the retry policy's job, not the error's.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return err != nil
}

// GetRetryDelay returns the server-suggested retry delay, if any
func GetRetryDelay(err error) time.Duration {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.RetryAfter
	}
	return 0
}
