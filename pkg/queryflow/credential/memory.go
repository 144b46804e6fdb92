package credential

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory credential store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]string // user id -> key name -> ciphertext
	closed bool
}

// NewMemoryStore creates a new in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]string),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, userID, keyName string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrStoreClosed
	}
	ciphertext, ok := m.data[userID][keyName]
	if !ok {
		return "", ErrNotFound
	}
	return ciphertext, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, userID, keyName, ciphertext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.data[userID] == nil {
		m.data[userID] = make(map[string]string)
	}
	m.data[userID][keyName] = ciphertext
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, userID, keyName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data[userID], keyName)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
