package retry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// jitterFraction bounds the random perturbation added to a computed delay.
const jitterFraction = 0.1

// Policy is an immutable retry configuration. One Policy value may be shared
// by any number of concurrent operations.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first try
	MaxAttempts int

	// BaseDelay is the delay before the second attempt
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay after each failure
	BackoffFactor float64

	// Jitter adds a uniform random value in [0, 0.1*delay] to each delay
	Jitter bool
}

// DefaultPolicy returns the policy used when callers have no specific needs.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   5,
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("retry: base delay must be > 0, got %v", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("retry: max delay %v must be >= base delay %v", p.MaxDelay, p.BaseDelay)
	}
	if p.BackoffFactor < 1 {
		return fmt.Errorf("retry: backoff factor must be >= 1, got %v", p.BackoffFactor)
	}
	return nil
}

// BackoffDelay computes the deterministic backoff delay after the given
// number of failures (failures >= 1), without jitter:
// min(BaseDelay * BackoffFactor^(failures-1), MaxDelay).
func BackoffDelay(p Policy, failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(failures-1)))
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return delay
}

// nextDelay computes the delay to wait after the given number of failures,
// applying jitter when the policy asks for it.
func nextDelay(p Policy, failures int) time.Duration {
	delay := BackoffDelay(p, failures)
	if p.Jitter && delay > 0 {
		delay += time.Duration(rand.Int63n(int64(jitterFraction*float64(delay)) + 1))
	}
	return delay
}
