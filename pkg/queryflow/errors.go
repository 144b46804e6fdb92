package queryflow

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for planning and execution.
var (
	// ErrMissingEntryNode indicates the graph has no query-input node.
	// Plan treats this as a precondition violation, not a validation result.
	ErrMissingEntryNode = errors.New("no query-input entry node")

	// ErrUnknownNodeKind indicates a node's type has no registered handler.
	ErrUnknownNodeKind = errors.New("unknown node kind")

	// ErrExecutionNotFound indicates the execution id is not in the
	// engine's live registry.
	ErrExecutionNotFound = errors.New("execution not found")
)

// ValidationError carries the full validation result when Execute is
// asked to run a structurally invalid graph.
type ValidationError struct {
	Result ValidationResult
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid workflow: " + strings.Join(e.Result.Errors, "; ")
}

// NodeError wraps a node handler failure with node context.
// A single node failure is fatal to the run; the offending node id is
// always named.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Kind is the node's type.
	Kind NodeKind
	// Err is the underlying error from the handler.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures a recovered panic from a node handler.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}
