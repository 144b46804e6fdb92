// Package observability provides structured logging, metrics, and
// tracing helpers for the execution engine.
//
// Logging uses slog from the standard library; metrics and tracing use
// OpenTelemetry. Metrics and tracing are opt-in with no-op
// implementations when disabled.
package observability

import "log/slog"

// EnrichLogger returns a logger carrying execution context fields.
func EnrichLogger(logger *slog.Logger, executionID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("execution_id", executionID),
		slog.String("node_id", nodeID),
	)
}

// LogExecutionStart logs the start of a workflow execution.
func LogExecutionStart(logger *slog.Logger, executionID, workflowID string, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("execution starting",
		slog.String("execution_id", executionID),
		slog.String("workflow_id", workflowID),
		slog.Int("planned_nodes", nodeCount),
	)
}

// LogExecutionComplete logs successful execution completion.
func LogExecutionComplete(logger *slog.Logger, executionID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("execution completed",
		slog.String("execution_id", executionID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogExecutionError logs execution failure.
func LogExecutionError(logger *slog.Logger, executionID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("execution failed",
		slog.String("execution_id", executionID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogExecutionCancelled logs an externally requested cancellation.
func LogExecutionCancelled(logger *slog.Logger, executionID string) {
	if logger == nil {
		return
	}
	logger.Info("execution cancelled",
		slog.String("execution_id", executionID),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID, nodeKind string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
		slog.String("node_kind", nodeKind),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node failure.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogDegraded logs a capability degradation: a diminished but
// non-fatal outcome such as a missing credential or an embedding
// failure with fallback.
func LogDegraded(logger *slog.Logger, nodeID, capability, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("capability degraded",
		slog.String("node_id", nodeID),
		slog.String("capability", capability),
		slog.String("reason", reason),
	)
}
