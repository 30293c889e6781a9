package engine

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

// ActionFunc is a business action behind one step id. It receives the
// workflow context accumulated by earlier steps and returns an output
// payload or an error. Actions live outside the orchestrator; the
// engine only knows them as named, retryable units of work.
type ActionFunc func(ctx context.Context, wfCtx models.Context) (interface{}, error)

// Executor dispatches step ids to registered actions. New steps are
// added by registration, not by modifying a central dispatcher.
type Executor struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
}

func NewExecutor() *Executor {
	return &Executor{actions: make(map[string]ActionFunc)}
}

// Register binds an action to a step id, replacing any previous binding.
func (e *Executor) Register(stepID string, fn ActionFunc) error {
	if stepID == "" {
		return errors.New("empty step id")
	}
	if fn == nil {
		return errors.Errorf("nil action for step '%s'", stepID)
	}
	e.mu.Lock()
	e.actions[stepID] = fn
	e.mu.Unlock()
	return nil
}

// Registered reports whether a step id has an action bound.
func (e *Executor) Registered(stepID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.actions[stepID]
	return ok
}

// Execute runs the action for a step id. A panicking action is captured
// and returned as a failure; errors never propagate raw past this point,
// so the engine's failure path stays the single place retry decisions
// are made.
func (e *Executor) Execute(ctx context.Context, stepID string, wfCtx models.Context) (output interface{}, err error) {
	e.mu.RLock()
	fn, ok := e.actions[stepID]
	e.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownStep, "step '%s'", stepID)
	}
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = errors.Errorf("action for step '%s' panicked: %v", stepID, r)
		}
	}()
	return fn(ctx, wfCtx)
}
