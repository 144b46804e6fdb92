package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory execution store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	execs  map[string]Execution
	closed bool
}

// NewMemoryStore creates a new in-memory execution store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		execs: make(map[string]Execution),
	}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, exec Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.execs[exec.ID] = exec
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Execution{}, ErrStoreClosed
	}
	exec, ok := m.execs[id]
	if !ok {
		return Execution{}, ErrNotFound
	}
	return exec, nil
}

// SetStatus implements Store.
func (m *MemoryStore) SetStatus(_ context.Context, id string, status Status, result map[string]any, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	exec, ok := m.execs[id]
	if !ok {
		return ErrNotFound
	}

	exec.Status = status
	if result != nil {
		exec.Result = result
	}
	if errMsg != "" {
		exec.Error = errMsg
	}
	if status.Terminal() {
		now := time.Now().UTC()
		exec.CompletedAt = &now
		if status == StatusCompleted {
			exec.Progress = 1.0
		}
	}
	m.execs[id] = exec
	return nil
}

// SetProgress implements Store.
func (m *MemoryStore) SetProgress(_ context.Context, id string, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	exec, ok := m.execs[id]
	if !ok {
		return ErrNotFound
	}
	exec.Progress = progress
	m.execs[id] = exec
	return nil
}

// ListByWorkflow implements Store.
func (m *MemoryStore) ListByWorkflow(_ context.Context, workflowID string) ([]Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := []Execution{}
	for _, exec := range m.execs {
		if exec.WorkflowID == workflowID {
			out = append(out, exec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
