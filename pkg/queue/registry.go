package queue

import (
	"context"
	"fmt"
	"sync"
)

// Handler executes one action type's payload.
type Handler func(ctx context.Context, action Action) error

// HandlerRegistry routes actions to handlers by action type. It is the
// recommended Executor for Process: the queue stays payload-agnostic while
// the set of replayable types remains closed and explicit.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register binds a handler to an action type, replacing any previous one.
func (r *HandlerRegistry) Register(actionType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[actionType] = handler
}

// Execute dispatches the action to its registered handler. Unknown types
// fail, which counts against the action's replay budget and eventually
// evicts actions nobody can handle.
func (r *HandlerRegistry) Execute(ctx context.Context, action Action) error {
	r.mu.RLock()
	handler, ok := r.handlers[action.Type]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("queue: no handler registered for action type %q", action.Type)
	}
	return handler(ctx, action)
}
