package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jzx17/resilience/pkg/store"
	"github.com/jzx17/resilience/pkg/types"
)

// ConnectivitySignal reports whether the client is currently online.
// connectivity.Monitor satisfies it.
type ConnectivitySignal interface {
	Online() bool
}

// Executor turns a stored action into its real side effect. The queue knows
// nothing about action semantics; it only schedules, retries and evicts.
type Executor func(ctx context.Context, action Action) error

// ReplayOutcome describes how one replay attempt resolved.
type ReplayOutcome string

const (
	// OutcomeSuccess means the executor succeeded and the action was removed
	OutcomeSuccess ReplayOutcome = "success"
	// OutcomeRetried means the executor failed and the action stays queued
	OutcomeRetried ReplayOutcome = "retried"
	// OutcomeDropped means the action hit the retry ceiling and was evicted
	OutcomeDropped ReplayOutcome = "dropped"
)

// Observer receives queue lifecycle events for metrics. Informational only.
type Observer interface {
	OnEnqueued(action Action)
	OnReplayed(action Action, outcome ReplayOutcome)
	OnDepthChanged(depth int)
}

// Subscriber receives a snapshot of the queued actions after every change.
type Subscriber func(actions []Action)

// Queue is a durable, priority-ordered list of deferred actions. Every
// mutation is persisted to the configured store, so the queue survives a
// process restart. All methods are safe for concurrent use.
type Queue struct {
	mu          sync.Mutex
	actions     []Action
	subscribers map[int]Subscriber
	nextSubID   int

	store      store.Store
	signal     ConnectivitySignal
	storageKey string
	clock      types.Clock
	logger     *slog.Logger
	observer   Observer
	onDrop     func(action Action)
	newID      func() string
}

// QueueOption configures a Queue
type QueueOption func(*Queue)

// WithClock sets the clock used for enqueue timestamps
func WithClock(clock types.Clock) QueueOption {
	return func(q *Queue) {
		q.clock = clock
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithStorageKey overrides the store key the queue persists under
func WithStorageKey(key string) QueueOption {
	return func(q *Queue) {
		q.storageKey = key
	}
}

// WithObserver sets the queue event observer
func WithObserver(observer Observer) QueueOption {
	return func(q *Queue) {
		q.observer = observer
	}
}

// WithDropHandler sets a callback invoked with each action dropped at the
// retry ceiling, so callers can surface the loss instead of only logging it.
func WithDropHandler(fn func(action Action)) QueueOption {
	return func(q *Queue) {
		q.onDrop = fn
	}
}

// WithIDGenerator overrides the action id generator
func WithIDGenerator(fn func() string) QueueOption {
	return func(q *Queue) {
		q.newID = fn
	}
}

// New creates a queue backed by s, restoring any previously persisted
// actions. A corrupt or unreadable persisted state is not fatal: the queue
// starts empty and logs a warning.
func New(s store.Store, signal ConnectivitySignal, opts ...QueueOption) *Queue {
	q := &Queue{
		subscribers: make(map[int]Subscriber),
		store:       s,
		signal:      signal,
		storageKey:  StorageKey,
		clock:       types.NewRealClock(),
		logger:      slog.Default(),
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.restore()
	return q
}

// restore loads the persisted queue, failing open to empty.
func (q *Queue) restore() {
	raw, err := q.store.Get(context.Background(), q.storageKey)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		q.logger.Warn("failed to read persisted queue, starting empty", "error", err)
		return
	}

	var doc persistedQueue
	if err := json.Unmarshal(raw, &doc); err != nil {
		q.logger.Warn("persisted queue is corrupt, starting empty", "error", err)
		return
	}

	q.actions = doc.Actions
	q.sortLocked()
	q.logger.Info("restored offline action queue", "actions", len(q.actions))
}

// Enqueue defers an action for later replay and returns its id. Lower
// priority values replay first; use DefaultPriority when in doubt.
func (q *Queue) Enqueue(ctx context.Context, actionType string, payload json.RawMessage, priority int) (string, error) {
	if actionType == "" {
		return "", fmt.Errorf("queue: action type must not be empty")
	}

	action := Action{
		ID:         q.newID(),
		Type:       actionType,
		Payload:    payload,
		EnqueuedAt: q.clock.Now().UTC(),
		Priority:   priority,
	}

	q.mu.Lock()
	q.actions = append(q.actions, action)
	q.sortLocked()
	persistErr := q.persistLocked(ctx)
	snapshot := q.snapshotLocked()
	subscribers := q.subscribersLocked()
	q.mu.Unlock()

	q.logger.Info("action queued for later",
		"id", action.ID,
		"type", action.Type,
		"priority", action.Priority)

	if q.observer != nil {
		q.observer.OnEnqueued(action)
		q.observer.OnDepthChanged(len(snapshot))
	}
	q.publish(subscribers, snapshot)

	if persistErr != nil {
		return action.ID, fmt.Errorf("queue: persist after enqueue: %w", persistErr)
	}
	return action.ID, nil
}

// Remove cancels a not-yet-replayed action by id. Returns whether an action
// was removed.
func (q *Queue) Remove(ctx context.Context, id string) bool {
	q.mu.Lock()
	kept := q.actions[:0]
	removed := false
	for _, action := range q.actions {
		if action.ID == id {
			removed = true
			continue
		}
		kept = append(kept, action)
	}
	q.actions = kept
	var snapshot []Action
	var subscribers []Subscriber
	if removed {
		if err := q.persistLocked(ctx); err != nil {
			q.logger.Warn("failed to persist queue after removal", "id", id, "error", err)
		}
		snapshot = q.snapshotLocked()
		subscribers = q.subscribersLocked()
	}
	q.mu.Unlock()

	if !removed {
		return false
	}

	if q.observer != nil {
		q.observer.OnDepthChanged(len(snapshot))
	}
	q.publish(subscribers, snapshot)
	return true
}

// Process replays the queued actions in priority order through exec. It is a
// no-op while the connectivity signal reports offline.
//
// Each entry resolves to exactly one outcome before the next is touched:
// removed on success, kept with an incremented retry count on failure, or
// dropped once the count reaches MaxActionRetries. Subscribers are notified
// once after the whole pass, not per entry.
func (q *Queue) Process(ctx context.Context, exec Executor) error {
	if !q.signal.Online() {
		q.logger.Debug("skipping queue replay while offline")
		return nil
	}

	q.mu.Lock()
	pending := q.snapshotLocked()
	q.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	q.logger.Info("replaying offline actions", "count", len(pending))

	changed := false
	for _, action := range pending {
		if err := ctx.Err(); err != nil {
			break
		}

		// the action may have been cancelled since the snapshot
		if !q.contains(action.ID) {
			continue
		}

		err := exec(ctx, action)
		if err == nil {
			q.deleteByID(ctx, action.ID)
			changed = true
			q.logger.Info("queued action replayed", "id", action.ID, "type", action.Type)
			if q.observer != nil {
				q.observer.OnReplayed(action, OutcomeSuccess)
			}
			continue
		}

		retries, dropped := q.recordFailure(ctx, action.ID)
		changed = true
		if dropped {
			action.RetryCount = retries
			q.logger.Warn("dropping queued action after repeated failures",
				"id", action.ID,
				"type", action.Type,
				"retries", retries,
				"error", err)
			if q.observer != nil {
				q.observer.OnReplayed(action, OutcomeDropped)
			}
			if q.onDrop != nil {
				q.onDrop(action)
			}
		} else {
			q.logger.Warn("queued action replay failed, will retry",
				"id", action.ID,
				"type", action.Type,
				"retries", retries,
				"error", err)
			if q.observer != nil {
				q.observer.OnReplayed(action, OutcomeRetried)
			}
		}
	}

	if changed {
		q.mu.Lock()
		snapshot := q.snapshotLocked()
		subscribers := q.subscribersLocked()
		q.mu.Unlock()

		if q.observer != nil {
			q.observer.OnDepthChanged(len(snapshot))
		}
		q.publish(subscribers, snapshot)
	}

	return ctx.Err()
}

// Actions returns a snapshot of the queued actions in replay order.
func (q *Queue) Actions() []Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Len returns the number of queued actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Subscribe registers a subscriber for queue changes and returns its
// unsubscribe function. Subscribers always receive a fresh snapshot.
func (q *Queue) Subscribe(sub Subscriber) func() {
	q.mu.Lock()
	id := q.nextSubID
	q.nextSubID++
	q.subscribers[id] = sub
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subscribers, id)
		q.mu.Unlock()
	}
}

// contains reports whether an action with the id is still queued.
func (q *Queue) contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, action := range q.actions {
		if action.ID == id {
			return true
		}
	}
	return false
}

// deleteByID removes an action and persists, without notifying.
func (q *Queue) deleteByID(ctx context.Context, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.actions[:0]
	for _, action := range q.actions {
		if action.ID != id {
			kept = append(kept, action)
		}
	}
	q.actions = kept
	if err := q.persistLocked(ctx); err != nil {
		q.logger.Warn("failed to persist queue", "error", err)
	}
}

// recordFailure increments an action's retry count, evicting it when the
// count reaches MaxActionRetries. Returns the new count and whether the
// action was dropped.
func (q *Queue) recordFailure(ctx context.Context, id string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.actions {
		if q.actions[i].ID != id {
			continue
		}
		q.actions[i].RetryCount++
		retries := q.actions[i].RetryCount
		dropped := retries >= MaxActionRetries
		if dropped {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
		}
		if err := q.persistLocked(ctx); err != nil {
			q.logger.Warn("failed to persist queue", "error", err)
		}
		return retries, dropped
	}
	return 0, false
}

// sortLocked re-sorts the queue into replay order: priority ascending,
// enqueue time ascending. Stable, so equal entries keep insertion order.
// Callers must hold mu.
func (q *Queue) sortLocked() {
	sort.SliceStable(q.actions, func(i, j int) bool {
		if q.actions[i].Priority != q.actions[j].Priority {
			return q.actions[i].Priority < q.actions[j].Priority
		}
		return q.actions[i].EnqueuedAt.Before(q.actions[j].EnqueuedAt)
	})
}

// persistLocked serializes the whole queue to the store. Callers must hold mu.
func (q *Queue) persistLocked(ctx context.Context) error {
	doc := persistedQueue{Version: persistVersion, Actions: q.actions}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return q.store.Set(ctx, q.storageKey, raw)
}

// snapshotLocked copies the action list. Callers must hold mu.
func (q *Queue) snapshotLocked() []Action {
	snapshot := make([]Action, len(q.actions))
	copy(snapshot, q.actions)
	return snapshot
}

// subscribersLocked copies the subscriber list. Callers must hold mu.
func (q *Queue) subscribersLocked() []Subscriber {
	subscribers := make([]Subscriber, 0, len(q.subscribers))
	for _, sub := range q.subscribers {
		subscribers = append(subscribers, sub)
	}
	return subscribers
}

// publish delivers the snapshot to each subscriber, isolating panics.
func (q *Queue) publish(subscribers []Subscriber, snapshot []Action) {
	for _, sub := range subscribers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					q.logger.Error("queue subscriber panicked", "panic", r)
				}
			}()
			actions := make([]Action, len(snapshot))
			copy(actions, snapshot)
			sub(actions)
		}()
	}
}
