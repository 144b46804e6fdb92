// Package store persists execution records so the engine's effects
// survive process restarts.
package store

import (
	"context"
	"errors"
	"time"
)

// Status is the execution state machine:
// pending -> running -> {completed | failed | cancelled}.
// Terminal states are final.
type Status string

// Execution statuses.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no transition leaves this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Execution is one run of a workflow graph against one input query.
// The record for a given id is written only by that execution's run
// loop (or its canceller, serialized through the done handshake), so
// last-writer-wins is safe without extra locking.
type Execution struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	UserID      string         `json:"user_id"`
	Status      Status         `json:"status"`
	InputQuery  string         `json:"input_query"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Progress    float64        `json:"progress"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Store persists execution records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new execution record.
	Create(ctx context.Context, exec Execution) error

	// Get retrieves an execution by id.
	// Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Execution, error)

	// SetStatus transitions an execution. Result and errMsg may be
	// empty; CompletedAt is stamped when the status is terminal.
	SetStatus(ctx context.Context, id string, status Status, result map[string]any, errMsg string) error

	// SetProgress records the current progress fraction in [0,1].
	SetProgress(ctx context.Context, id string, progress float64) error

	// ListByWorkflow returns all executions for a workflow,
	// newest first.
	ListByWorkflow(ctx context.Context, workflowID string) ([]Execution, error)

	// Close releases any resources.
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the execution id doesn't exist.
	ErrNotFound = errors.New("execution not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("execution store closed")
)
