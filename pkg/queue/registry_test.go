package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/resilience/pkg/store"
)

func TestHandlerRegistry(t *testing.T) {
	ctx := context.Background()
	registry := NewHandlerRegistry()

	t.Run("UnknownType", func(t *testing.T) {
		err := registry.Execute(ctx, Action{ID: "a1", Type: "unknown"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no handler registered")
	})

	t.Run("RoutesByType", func(t *testing.T) {
		var gotPayload string
		registry.Register("send-message", func(ctx context.Context, action Action) error {
			gotPayload = string(action.Payload)
			return nil
		})
		registry.Register("export-transcript", func(ctx context.Context, action Action) error {
			return errors.New("export backend down")
		})

		err := registry.Execute(ctx, Action{
			Type:    "send-message",
			Payload: json.RawMessage(`{"text":"hi"}`),
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"text":"hi"}`, gotPayload)

		err = registry.Execute(ctx, Action{Type: "export-transcript"})
		require.Error(t, err)
	})
}

func TestHandlerRegistry_AsQueueExecutor(t *testing.T) {
	ctx := context.Background()
	q, _ := testQueue(t, store.NewMemory(), true)

	registry := NewHandlerRegistry()
	var sent []string
	registry.Register("send-message", func(ctx context.Context, action Action) error {
		sent = append(sent, string(action.Payload))
		return nil
	})

	_, err := q.Enqueue(ctx, "send-message", json.RawMessage(`{"text":"queued while offline"}`), DefaultPriority)
	require.NoError(t, err)

	require.NoError(t, q.Process(ctx, registry.Execute))
	require.Len(t, sent, 1)
	assert.Zero(t, q.Len())
}
