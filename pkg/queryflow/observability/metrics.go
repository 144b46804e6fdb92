package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution with its duration
	// and error status.
	RecordNodeExecution(ctx context.Context, nodeKind string, duration time.Duration, err error)

	// RecordExecution records a completed workflow execution.
	RecordExecution(ctx context.Context, status string, duration time.Duration)

	// RecordEvent records an emitted execution event.
	RecordEvent(ctx context.Context, eventType string)

	// RecordDegradation records a capability degradation.
	RecordDegradation(ctx context.Context, capability string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	executions     metric.Int64Counter
	execLatency    metric.Float64Histogram
	events         metric.Int64Counter
	degradations   metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("queryflow")

	nodeExecutions, err := meter.Int64Counter("queryflow.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("queryflow.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("queryflow.node.errors",
		metric.WithDescription("Number of node execution errors"),
	)
	if err != nil {
		return nil, err
	}

	executions, err := meter.Int64Counter("queryflow.execution.runs",
		metric.WithDescription("Number of workflow executions by terminal status"),
	)
	if err != nil {
		return nil, err
	}

	execLatency, err := meter.Float64Histogram("queryflow.execution.latency_ms",
		metric.WithDescription("Execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	events, err := meter.Int64Counter("queryflow.events.emitted",
		metric.WithDescription("Number of execution events emitted"),
	)
	if err != nil {
		return nil, err
	}

	degradations, err := meter.Int64Counter("queryflow.capability.degradations",
		metric.WithDescription("Number of capability degradations"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		nodeExecutions: nodeExecutions,
		nodeLatency:    nodeLatency,
		nodeErrors:     nodeErrors,
		executions:     executions,
		execLatency:    execLatency,
		events:         events,
		degradations:   degradations,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordNodeExecution records a node execution.
func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeKind string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("node_kind", nodeKind),
	}

	m.nodeExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.nodeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordExecution records a completed workflow execution.
func (m *otelMetrics) RecordExecution(ctx context.Context, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}
	m.executions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.execLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordEvent records an emitted execution event.
func (m *otelMetrics) RecordEvent(ctx context.Context, eventType string) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordDegradation records a capability degradation.
func (m *otelMetrics) RecordDegradation(ctx context.Context, capability string) {
	m.degradations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capability),
	))
}
