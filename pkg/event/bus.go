// Package event bridges the orchestrator to an event bus: workflow and
// step lifecycle events going out, externally confirmed step completions
// coming in. Delivery is at least once; consumers of the inbound side
// (the engine) are idempotent against duplicates.
package event

import (
	"context"
	"sync"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

// Bus is the transport contract for the event bridge.
type Bus interface {
	Publish(ctx context.Context, ev models.Event) error
	Subscribe(fn func(models.Event))
	SubscribeCompletions(fn func(models.Completion))
	Close() error
}

// MemoryBus dispatches synchronously to in-process subscribers. It is
// the default bus for single-process deployments and tests.
type MemoryBus struct {
	mu          sync.RWMutex
	handlers    []func(models.Event)
	completions []func(models.Completion)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(ctx context.Context, ev models.Event) error {
	b.mu.RLock()
	handlers := append([]func(models.Event){}, b.handlers...)
	b.mu.RUnlock()
	for _, fn := range handlers {
		dispatch(func() { fn(ev) })
	}
	return nil
}

func (b *MemoryBus) Subscribe(fn func(models.Event)) {
	b.mu.Lock()
	b.handlers = append(b.handlers, fn)
	b.mu.Unlock()
}

func (b *MemoryBus) SubscribeCompletions(fn func(models.Completion)) {
	b.mu.Lock()
	b.completions = append(b.completions, fn)
	b.mu.Unlock()
}

// SignalCompletion delivers an external step settlement to subscribers.
// Collaborator services (or tests) call this to resume a parked workflow.
func (b *MemoryBus) SignalCompletion(c models.Completion) {
	b.mu.RLock()
	handlers := append([]func(models.Completion){}, b.completions...)
	b.mu.RUnlock()
	for _, fn := range handlers {
		dispatch(func() { fn(c) })
	}
}

func (b *MemoryBus) Close() error {
	return nil
}

// dispatch shields the caller from a panicking handler.
func dispatch(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
