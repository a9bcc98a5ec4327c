package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/artpar/swarmup/internal/core/stack"
)

// ActionHandler performs one post-deploy action of a stage.
type ActionHandler func(ctx context.Context, run *runState) []stack.StepResult

// Bus dispatches post-deploy actions to registered handlers.
type Bus struct {
	handlers map[stack.ActionKind]ActionHandler
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewBus creates an empty action bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[stack.ActionKind]ActionHandler),
		logger:   logger,
	}
}

// Register registers a handler for an action kind.
func (b *Bus) Register(kind stack.ActionKind, handler ActionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = handler
}

// Has reports whether a handler is registered for kind.
func (b *Bus) Has(kind stack.ActionKind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.handlers[kind]
	return ok
}

// Dispatch runs the handler of kind and logs its failed steps.
func (b *Bus) Dispatch(ctx context.Context, kind stack.ActionKind, run *runState) []stack.StepResult {
	b.mu.RLock()
	handler, ok := b.handlers[kind]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("no handler registered for action", "action", kind)
		return nil // Don't fail, just log
	}

	b.logger.Debug("dispatching action", "action", kind)
	steps := handler(ctx, run)
	for _, s := range steps {
		if s.Failed() {
			b.logger.Warn("action step failed",
				"action", kind,
				"step", s.Name,
				"outcome", s.Outcome,
				"attempts", s.Attempts,
				"error", s.Message,
			)
		}
	}
	return steps
}
