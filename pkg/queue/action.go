// Package queue provides the durable offline action queue: user actions that
// cannot complete while disconnected are stored here and replayed, in
// priority order, once connectivity returns.
package queue

import (
	"encoding/json"
	"time"
)

const (
	// DefaultPriority is the priority used by callers with no specific needs.
	// Lower values replay first.
	DefaultPriority = 3

	// MaxActionRetries is the per-action replay budget. An action whose
	// executor fails this many times is dropped. This is a deliberate,
	// bounded data-loss policy: long-offline clients may lose very old
	// queued actions rather than retry them forever.
	MaxActionRetries = 3

	// StorageKey is the store key the queue persists under.
	StorageKey = "offline_action_queue"
)

// Action is one deferred operation. The queue never interprets Type or
// Payload; the executor supplied to Process turns them into the real side
// effect.
type Action struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
	Priority   int             `json:"priority"`
}

// persistedQueue is the private on-disk document. Its only contract is that
// it survives a restart and round-trips exactly.
type persistedQueue struct {
	Version int      `json:"version"`
	Actions []Action `json:"actions"`
}

const persistVersion = 1
