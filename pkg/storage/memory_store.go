package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

// memoryStore implements Store with in-memory storage and lazy TTL
// expiry. It is the default store for tests and single-process use.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	state     *models.WorkflowState
	expiresAt time.Time // zero means no expiry
}

func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

// cloneState round-trips through JSON so that callers never share
// mutable step slices or context maps with the stored record.
func cloneState(state *models.WorkflowState) (*models.WorkflowState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, errors.Wrap(err, "marshal workflow state")
	}
	var out models.WorkflowState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshal workflow state")
	}
	return &out, nil
}

func (m *memoryStore) SaveState(ctx context.Context, state *models.WorkflowState, ttl time.Duration) error {
	cp, err := cloneState(state)
	if err != nil {
		return err
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[state.WorkflowID] = memoryEntry{state: cp, expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) GetState(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	m.mu.RLock()
	entry, ok := m.entries[workflowID]
	m.mu.RUnlock()
	if !ok || entry.expired() {
		return nil, ErrNotFound
	}
	return cloneState(entry.state)
}

func (m *memoryStore) Exists(ctx context.Context, workflowID string) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[workflowID]
	m.mu.RUnlock()
	return ok && !entry.expired(), nil
}

func (m *memoryStore) ListStates(ctx context.Context) ([]*models.WorkflowState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make([]*models.WorkflowState, 0, len(m.entries))
	for _, entry := range m.entries {
		if entry.expired() {
			continue
		}
		cp, err := cloneState(entry.state)
		if err != nil {
			return nil, err
		}
		states = append(states, cp)
	}
	return states, nil
}

func (m *memoryStore) DeleteState(ctx context.Context, workflowID string) error {
	m.mu.Lock()
	delete(m.entries, workflowID)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}

func (e memoryEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}
