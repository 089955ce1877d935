// Package retry provides a budgeted retry engine with exponential backoff and jitter.
//
// Key features:
//
// 1. Immutable Policy values:
//   - MaxAttempts bounds the total attempt budget (first try included)
//   - BaseDelay/MaxDelay/BackoffFactor shape the exponential backoff curve
//   - Jitter adds up to 10% random spread to avoid synchronized retries
//
// 2. Per-operation bookkeeping:
//   - Attempt counts and next-eligible times are tracked per operation id
//   - Operations with distinct ids back off independently and concurrently
//   - State is cleared on success, on budget exhaustion, and on Reset
//
// 3. Observability:
//   - Every scheduled retry is logged with operation id, attempt and delay
//   - An optional Observer receives scheduled/success/give-up events
//
// Basic usage:
//
//	engine := retry.NewEngine()
//	policy := retry.Policy{
//		MaxAttempts:   3,
//		BaseDelay:     time.Second,
//		MaxDelay:      10 * time.Second,
//		BackoffFactor: 2.0,
//		Jitter:        true,
//	}
//
//	result, err := retry.Do(ctx, engine, "sync-profile", policy, func(ctx context.Context) (string, error) {
//		return client.SyncProfile(ctx)
//	})
//
// Errors wrapped in types.RetryableError with Retryable=false short-circuit
// the budget: they are returned immediately and the operation state is
// cleared. Plain errors are treated as retryable.
//
// Waits go through an injectable Clock, so backoff timing can be tested with
// a mock clock without real sleeps.
package retry
