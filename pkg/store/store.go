// Package store provides the durable local key-value stores used for
// persisting the offline action queue and connectivity timestamps.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a small durable key-value store. Implementations must make Set
// atomic per key: a reader never observes a partially written value.
type Store interface {
	// Get returns the value for key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the value for key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
