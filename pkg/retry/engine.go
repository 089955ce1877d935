package retry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jzx17/resilience/pkg/types"
)

// Func is the operation type executed under retry.
type Func[T any] func(ctx context.Context) (T, error)

// Observer receives retry lifecycle events for metrics and diagnostics.
// Observers are informational only; the engine never reads them back.
type Observer interface {
	// OnRetryScheduled fires after a failed attempt when a retry has been
	// scheduled. failures is the number of attempts spent so far.
	OnRetryScheduled(operationID string, failures int, delay time.Duration)

	// OnSuccess fires when the operation succeeds. attempts counts the
	// successful attempt too.
	OnSuccess(operationID string, attempts int)

	// OnGiveUp fires when the budget is spent or the error is marked
	// non-retryable, with the final error.
	OnGiveUp(operationID string, attempts int, err error)
}

// retryState tracks per-operation attempt bookkeeping. Owned exclusively by
// the Engine and never handed out.
type retryState struct {
	attempts     int
	nextEligible time.Time
}

// Engine executes operations under a retry policy, tracking attempt counts
// per operation identifier. All methods are safe for concurrent use;
// operations with distinct identifiers back off independently.
type Engine struct {
	mu       sync.Mutex
	states   map[string]*retryState
	clock    types.Clock
	logger   *slog.Logger
	observer Observer
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the clock used for backoff timing
func WithClock(clock types.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver sets the retry event observer
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// NewEngine creates a retry engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		states: make(map[string]*retryState),
		clock:  types.NewRealClock(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Do executes fn under the given policy, retrying failed attempts with
// exponential backoff until fn succeeds or the attempt budget is spent.
//
// When the budget is used up inside this call, the original error from the
// final attempt is returned, not a wrapper, and the tracked state is
// cleared. A Do call that finds the tracked attempt count already at the
// cap (possible when concurrent calls share an operationID) fails
// immediately with an ExhaustedError without running fn.
//
// Waits respect ctx; cancellation during a backoff wait returns ctx.Err()
// without consuming an attempt.
func Do[T any](ctx context.Context, e *Engine, operationID string, p Policy, fn Func[T]) (T, error) {
	var zero T

	if err := p.Validate(); err != nil {
		return zero, err
	}

	e.mu.Lock()
	if st, ok := e.states[operationID]; ok && st.attempts >= p.MaxAttempts {
		e.mu.Unlock()
		return zero, &ExhaustedError{OperationID: operationID, MaxAttempts: p.MaxAttempts}
	}
	e.mu.Unlock()

	for {
		// suspend until the recorded eligibility time, off-lock
		e.mu.Lock()
		var wait time.Duration
		if st, ok := e.states[operationID]; ok && !st.nextEligible.IsZero() {
			if until := st.nextEligible.Sub(e.clock.Now()); until > 0 {
				wait = until
			}
		}
		e.mu.Unlock()

		if wait > 0 {
			timer := e.clock.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C():
			}
		}

		result, err := fn(ctx)
		if err == nil {
			attempts := e.clearState(operationID) + 1
			if e.observer != nil {
				e.observer.OnSuccess(operationID, attempts)
			}
			return result, nil
		}

		failures := e.recordFailure(operationID)

		if failures >= p.MaxAttempts || !types.IsRetryable(err) {
			e.clearState(operationID)
			e.logger.Error("giving up on operation",
				"operation_id", operationID,
				"attempts", failures,
				"error", err)
			if e.observer != nil {
				e.observer.OnGiveUp(operationID, failures, err)
			}
			// propagate the original error: it carries the diagnostics
			return zero, err
		}

		delay := nextDelay(p, failures)
		e.scheduleRetry(operationID, delay)

		e.logger.Warn("operation failed, retry scheduled",
			"operation_id", operationID,
			"attempt", failures,
			"max_attempts", p.MaxAttempts,
			"delay", delay,
			"error", err)
		if e.observer != nil {
			e.observer.OnRetryScheduled(operationID, failures, delay)
		}
	}
}

// Info describes the retry state of one operation, for display purposes.
type Info struct {
	Attempts    int
	NextRetryAt time.Time
}

// GetInfo returns the current attempt count and next retry time for an
// operation. The second return is false when no state is tracked.
func (e *Engine) GetInfo(operationID string) (Info, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[operationID]
	if !ok {
		return Info{}, false
	}
	return Info{Attempts: st.attempts, NextRetryAt: st.nextEligible}, true
}

// Reset clears the tracked state for one operation. The next Do call for it
// starts from a full budget.
func (e *Engine) Reset(operationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, operationID)
}

// ResetAll clears all tracked retry state.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = make(map[string]*retryState)
}

// recordFailure increments the failure count for an operation, creating the
// state lazily, and returns the new count.
func (e *Engine) recordFailure(operationID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[operationID]
	if !ok {
		st = &retryState{}
		e.states[operationID] = st
	}
	st.attempts++
	return st.attempts
}

// scheduleRetry records when the operation becomes eligible to run again.
func (e *Engine) scheduleRetry(operationID string, delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.states[operationID]; ok {
		st.nextEligible = e.clock.Now().Add(delay)
	}
}

// clearState removes the tracked state and returns the failure count it held.
func (e *Engine) clearState(operationID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[operationID]
	if !ok {
		return 0
	}
	delete(e.states, operationID)
	return st.attempts
}
