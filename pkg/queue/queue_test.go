package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/resilience/pkg/store"
)

type fakeSignal struct {
	online bool
}

func (f *fakeSignal) Online() bool {
	return f.online
}

func testQueue(t *testing.T, s store.Store, online bool, opts ...QueueOption) (*Queue, *fakeSignal) {
	t.Helper()
	signal := &fakeSignal{online: online}
	opts = append([]QueueOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return New(s, signal, opts...), signal
}

func TestEnqueue(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), true)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "send-message", json.RawMessage(`{"text":"hi"}`), DefaultPriority)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	actions := q.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, id, actions[0].ID)
	assert.Equal(t, "send-message", actions[0].Type)
	assert.Equal(t, DefaultPriority, actions[0].Priority)
	assert.Zero(t, actions[0].RetryCount)
	assert.False(t, actions[0].EnqueuedAt.IsZero())

	_, err = q.Enqueue(ctx, "", nil, DefaultPriority)
	require.Error(t, err, "empty action type must be rejected")
}

func TestReplayOrder(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), true)
	ctx := context.Background()

	for _, priority := range []int{5, 1, 3} {
		_, err := q.Enqueue(ctx, "noop", nil, priority)
		require.NoError(t, err)
	}

	var order []int
	err := q.Process(ctx, func(ctx context.Context, action Action) error {
		order = append(order, action.Priority)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 5}, order, "replay runs in ascending priority order")
	assert.Zero(t, q.Len(), "successful replay empties the queue")
}

func TestReplayOrder_PriorityTieIsFIFO(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), true)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "noop", nil, 2)
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "noop", nil, 2)
	require.NoError(t, err)

	var order []string
	require.NoError(t, q.Process(ctx, func(ctx context.Context, action Action) error {
		order = append(order, action.ID)
		return nil
	}))

	assert.Equal(t, []string{first, second}, order)
}

func TestProcess_OfflineIsNoOp(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), false)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "send-message", nil, DefaultPriority)
	require.NoError(t, err)

	notified := 0
	q.Subscribe(func(actions []Action) {
		notified++
	})

	require.NoError(t, q.Process(ctx, func(ctx context.Context, action Action) error {
		t.Fatal("executor must not run while offline")
		return nil
	}))

	assert.Equal(t, 1, q.Len(), "offline replay must not change state")
	assert.Zero(t, notified, "offline replay must not notify")
}

func TestProcess_DropsAfterRetryCeiling(t *testing.T) {
	var dropped []Action
	q, _ := testQueue(t, store.NewMemory(), true, WithDropHandler(func(action Action) {
		dropped = append(dropped, action)
	}))
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "doomed", nil, DefaultPriority)
	require.NoError(t, err)

	invocations := 0
	failing := func(ctx context.Context, action Action) error {
		invocations++
		return errors.New("not today")
	}

	// 4 passes: the 4th must find an empty queue
	for pass := 0; pass < 4; pass++ {
		require.NoError(t, q.Process(ctx, failing))
	}

	assert.Equal(t, MaxActionRetries, invocations, "a doomed action is never invoked past the ceiling")
	assert.Zero(t, q.Len())
	require.Len(t, dropped, 1)
	assert.Equal(t, "doomed", dropped[0].Type)
	assert.Equal(t, MaxActionRetries, dropped[0].RetryCount)
}

func TestProcess_FailureIncrementsRetryCount(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), true)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "flaky", nil, DefaultPriority)
	require.NoError(t, err)

	require.NoError(t, q.Process(ctx, func(ctx context.Context, action Action) error {
		return errors.New("transient")
	}))

	actions := q.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, id, actions[0].ID)
	assert.Equal(t, 1, actions[0].RetryCount)
}

func TestProcess_SingleNotificationPerPass(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, "noop", nil, DefaultPriority)
		require.NoError(t, err)
	}

	notifications := 0
	q.Subscribe(func(actions []Action) {
		notifications++
	})

	require.NoError(t, q.Process(ctx, func(ctx context.Context, action Action) error {
		return nil
	}))

	assert.Equal(t, 1, notifications, "one notification per pass, not per entry")
}

func TestRemove(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), true)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "send-message", nil, DefaultPriority)
	require.NoError(t, err)

	assert.True(t, q.Remove(ctx, id))
	assert.False(t, q.Remove(ctx, id), "second removal reports absence")
	assert.Zero(t, q.Len())

	require.NoError(t, q.Process(ctx, func(ctx context.Context, action Action) error {
		t.Fatal("removed action must not replay")
		return nil
	}))
}

func TestPersistence_RoundTrip(t *testing.T) {
	s := store.NewMemory()
	q1, _ := testQueue(t, s, true)
	ctx := context.Background()

	_, err := q1.Enqueue(ctx, "send-message", json.RawMessage(`{"text":"hello"}`), 2)
	require.NoError(t, err)
	_, err = q1.Enqueue(ctx, "export-transcript", json.RawMessage(`{"session":"s1"}`), 5)
	require.NoError(t, err)
	_, err = q1.Enqueue(ctx, "sync-settings", nil, 1)
	require.NoError(t, err)

	// a fresh queue over the same store sees the identical ordered list
	q2, _ := testQueue(t, s, true)
	assert.Equal(t, q1.Actions(), q2.Actions(), "restored queue must match, timestamps included")
}

func TestPersistence_SurvivesReplayProgress(t *testing.T) {
	s := store.NewMemory()
	q1, _ := testQueue(t, s, true)
	ctx := context.Background()

	_, err := q1.Enqueue(ctx, "flaky", nil, DefaultPriority)
	require.NoError(t, err)
	require.NoError(t, q1.Process(ctx, func(ctx context.Context, action Action) error {
		return errors.New("transient")
	}))

	q2, _ := testQueue(t, s, true)
	actions := q2.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, 1, actions[0].RetryCount, "retry progress persists across restarts")
}

func TestRestore_CorruptStateFailsOpen(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, StorageKey, []byte(`{"version":1,"actions":[{`)))

	q, _ := testQueue(t, s, true)
	assert.Zero(t, q.Len(), "corrupt persisted state loads as an empty queue")

	// the queue keeps working after the failed restore
	_, err := q.Enqueue(ctx, "send-message", nil, DefaultPriority)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Len())
}

func TestProcess_EndToEnd(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), true)
	ctx := context.Background()

	idA, err := q.Enqueue(ctx, "action-a", nil, 3)
	require.NoError(t, err)
	idB, err := q.Enqueue(ctx, "action-b", nil, 1)
	require.NoError(t, err)

	var executed []string
	failuresForA := 0
	retryCountSeenOnSuccess := -1
	exec := func(ctx context.Context, action Action) error {
		executed = append(executed, action.ID)
		if action.ID == idA && failuresForA < 2 {
			failuresForA++
			return errors.New("transient")
		}
		if action.ID == idA {
			retryCountSeenOnSuccess = action.RetryCount
		}
		return nil
	}

	// pass 1: B succeeds, A fails once
	require.NoError(t, q.Process(ctx, exec))
	// pass 2: A fails again
	require.NoError(t, q.Process(ctx, exec))
	// pass 3: A succeeds
	require.NoError(t, q.Process(ctx, exec))

	assert.Equal(t, []string{idB, idA, idA, idA}, executed, "B replays before A")
	assert.Equal(t, 2, retryCountSeenOnSuccess, "A retried twice before succeeding")
	assert.Zero(t, q.Len())
}

func TestSubscribe_PanicIsolation(t *testing.T) {
	q, _ := testQueue(t, store.NewMemory(), true)
	ctx := context.Background()

	healthy := 0
	q.Subscribe(func(actions []Action) {
		panic("faulty subscriber")
	})
	q.Subscribe(func(actions []Action) {
		healthy++
	})

	_, err := q.Enqueue(ctx, "noop", nil, DefaultPriority)
	require.NoError(t, err)
	assert.Equal(t, 1, healthy)
}

type countingObserver struct {
	enqueued int
	outcomes map[ReplayOutcome]int
	depth    int
}

func (c *countingObserver) OnEnqueued(action Action) {
	c.enqueued++
}

func (c *countingObserver) OnReplayed(action Action, outcome ReplayOutcome) {
	if c.outcomes == nil {
		c.outcomes = make(map[ReplayOutcome]int)
	}
	c.outcomes[outcome]++
}

func (c *countingObserver) OnDepthChanged(depth int) {
	c.depth = depth
}

func TestObserverEvents(t *testing.T) {
	obs := &countingObserver{}
	q, _ := testQueue(t, store.NewMemory(), true, WithObserver(obs))
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "ok", nil, 1)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "fails", nil, 2)
	require.NoError(t, err)

	require.NoError(t, q.Process(ctx, func(ctx context.Context, action Action) error {
		if action.Type == "fails" {
			return errors.New("transient")
		}
		return nil
	}))

	assert.Equal(t, 2, obs.enqueued)
	assert.Equal(t, 1, obs.outcomes[OutcomeSuccess])
	assert.Equal(t, 1, obs.outcomes[OutcomeRetried])
	assert.Equal(t, 1, obs.depth)
}
