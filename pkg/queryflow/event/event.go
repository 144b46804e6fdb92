// Package event defines execution events and the channel that fans
// them out to live subscribers while durably logging every one.
//
// The durable log is the at-least-once source of truth; live delivery
// is at-most-once per subscriber. A consumer that needs guaranteed
// history must replay the log, not rely on the live stream.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type enumerates execution event types.
type Type string

// The event vocabulary emitted by the engine.
const (
	ExecutionStarted   Type = "execution_started"
	NodeStarted        Type = "node_started"
	NodeCompleted      Type = "node_completed"
	NodeError          Type = "node_error"
	ExecutionCompleted Type = "execution_completed"
	ExecutionError     Type = "execution_error"
	ExecutionCancelled Type = "execution_cancelled"
)

// Event is an immutable fact about one moment in an execution's life.
// The full ordered sequence of events for an execution is its audit
// trail. Modify nothing after construction; derive a new event instead.
type Event struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id,omitempty"`
	Type        Type           `json:"type"`
	Message     string         `json:"message"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
	// Progress is a fraction in [0,1]. A nil pointer means the event
	// carries no progress information, which is distinct from 0.
	Progress *float64 `json:"progress,omitempty"`
}

// New creates an event with a fresh id and UTC timestamp.
func New(executionID string, t Type, message string) Event {
	return Event{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Type:        t,
		Message:     message,
		Timestamp:   time.Now().UTC(),
	}
}

// WithNode returns a copy of the event attributed to a node.
func (e Event) WithNode(nodeID string) Event {
	e.NodeID = nodeID
	return e
}

// WithData returns a copy of the event carrying a structured payload.
func (e Event) WithData(data map[string]any) Event {
	e.Data = data
	return e
}

// WithProgress returns a copy of the event carrying a progress fraction.
func (e Event) WithProgress(p float64) Event {
	e.Progress = &p
	return e
}
