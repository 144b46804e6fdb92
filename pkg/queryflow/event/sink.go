package event

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Sink durably logs execution events, one record per event.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Append writes a single event. Called once per event,
	// immediately after construction.
	Append(ctx context.Context, evt Event) error

	// List returns all events for an execution in emission order.
	// Returns an empty slice (not an error) for unknown executions.
	List(ctx context.Context, executionID string) ([]Event, error)

	// Close releases any resources.
	Close() error
}

// ErrSinkClosed indicates the sink has been closed.
var ErrSinkClosed = errors.New("event sink closed")

// MemorySink is an in-memory event log for testing.
// Data is lost when the process exits.
type MemorySink struct {
	mu     sync.RWMutex
	events map[string][]Event // execution id -> ordered events
	closed bool
}

// NewMemorySink creates a new in-memory event log.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		events: make(map[string][]Event),
	}
}

// Append implements Sink.
func (m *MemorySink) Append(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSinkClosed
	}
	m.events[evt.ExecutionID] = append(m.events[evt.ExecutionID], evt)
	return nil
}

// List implements Sink.
func (m *MemorySink) List(_ context.Context, executionID string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrSinkClosed
	}

	stored := m.events[executionID]
	out := make([]Event, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Close implements Sink.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
