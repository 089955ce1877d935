package retry

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted matches ExhaustedError values via errors.Is.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ExhaustedError is returned when Do is called for an operation whose
// attempt budget is already spent. It marks a caller error: the decision to
// stop retrying was made on an earlier call, and calling again does not
// grant a fresh budget. Use Reset to start over deliberately.
type ExhaustedError struct {
	OperationID string
	MaxAttempts int
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted for operation %q (max attempts: %d)", e.OperationID, e.MaxAttempts)
}

// Is reports whether target is ErrRetriesExhausted
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}
