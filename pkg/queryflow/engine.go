package queryflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/queryflow/pkg/queryflow/credential"
	"github.com/randalmurphal/queryflow/pkg/queryflow/event"
	"github.com/randalmurphal/queryflow/pkg/queryflow/knowledge"
	"github.com/randalmurphal/queryflow/pkg/queryflow/observability"
	"github.com/randalmurphal/queryflow/pkg/queryflow/provider"
	"github.com/randalmurphal/queryflow/pkg/queryflow/store"
)

// HandlerFunc executes a single node. It receives the node definition
// and the shared execution state, and returns the node's result value.
// A returned error aborts the execution; the engine wraps it in a
// NodeError before surfacing it.
type HandlerFunc func(ctx context.Context, node Node, state *State) (any, error)

// Engine validates, plans, and executes workflow graphs. Executions run
// asynchronously: Execute returns an execution ID immediately and the
// run proceeds in its own goroutine, reporting progress through the
// event channel and the execution store.
//
// An Engine is safe for concurrent use. Each execution owns its own
// State; nothing is shared between concurrent runs except the stores,
// which serialize internally.
type Engine struct {
	store     store.Store
	channel   *event.Channel
	creds     *credential.Resolver
	retriever knowledge.Retriever

	llms      map[string]provider.Client
	embedders map[string]provider.Embedder
	searchers map[string]provider.Searcher

	handlers      map[NodeKind]HandlerFunc
	extraHandlers map[NodeKind]HandlerFunc

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	tracing bool

	mu     sync.Mutex
	active map[string]*runHandle
}

// runHandle tracks one in-flight execution. The run goroutine closes
// done when it exits. Whoever wins the settled CAS owns the terminal
// status write: the run loop on completion or failure, the canceller
// on cancellation. The loser writes no status and emits no terminal
// event, so a terminal state is written exactly once.
type runHandle struct {
	cancel  context.CancelFunc
	done    chan struct{}
	settled atomic.Bool
}

// New creates an Engine with the given options. Without options the
// engine uses in-memory stores, a sink-less event channel, and no
// provider clients, which is enough for tests and dry runs.
func New(opts ...Option) *Engine {
	e := &Engine{
		llms:          make(map[string]provider.Client),
		embedders:     make(map[string]provider.Embedder),
		searchers:     make(map[string]provider.Searcher),
		extraHandlers: make(map[NodeKind]HandlerFunc),
		logger:        slog.Default(),
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
		active:        make(map[string]*runHandle),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = store.NewMemoryStore()
	}
	if e.channel == nil {
		e.channel = event.NewChannel(event.WithLogger(e.logger))
	}
	if e.creds == nil {
		e.creds = credential.NewResolver(credential.NewMemoryStore(), credential.NopCipher{},
			credential.WithLogger(e.logger))
	}
	if e.retriever == nil {
		e.retriever = knowledge.NewMemoryStore()
	}
	e.handlers = map[NodeKind]HandlerFunc{
		KindQueryInput:    e.runQueryInput,
		KindKnowledgeBase: e.runKnowledgeBase,
		KindWebSearch:     e.runWebSearch,
		KindLLMEngine:     e.runLLMEngine,
		KindOutput:        e.runOutput,
	}
	for kind, handler := range e.extraHandlers {
		e.handlers[kind] = handler
	}
	return e
}

// Channel returns the engine's event channel, for subscribing to live
// events or replaying persisted ones.
func (e *Engine) Channel() *event.Channel { return e.channel }

// Execute validates g and starts an asynchronous execution of it
// against query on behalf of userID. It returns the new execution's ID
// once the pending record is persisted; the run itself happens in a
// background goroutine. If validation fails it returns a
// *ValidationError and nothing is persisted.
func (e *Engine) Execute(ctx context.Context, g Graph, query, userID string) (string, error) {
	if result := Validate(g); !result.Valid {
		return "", &ValidationError{Result: result}
	}

	executionID := uuid.NewString()
	exec := store.Execution{
		ID:         executionID,
		WorkflowID: g.WorkflowID,
		UserID:     userID,
		Status:     store.StatusPending,
		InputQuery: query,
		StartedAt:  time.Now().UTC(),
	}
	if err := e.store.Create(ctx, exec); err != nil {
		return "", fmt.Errorf("create execution record: %w", err)
	}

	// The run outlives the caller's context; only Cancel stops it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handle := &runHandle{cancel: cancel, done: make(chan struct{})}
	e.mu.Lock()
	e.active[executionID] = handle
	e.mu.Unlock()

	go e.run(runCtx, handle, g, executionID, query, userID)
	return executionID, nil
}

// Status returns the stored execution record. Unknown ids surface as
// ErrExecutionNotFound.
func (e *Engine) Status(ctx context.Context, executionID string) (store.Execution, error) {
	exec, err := e.store.Get(ctx, executionID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Execution{}, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	return exec, err
}

// Cancel stops a running execution. It returns false without side
// effects when the execution is unknown, already finished or writing
// its terminal status, or being cancelled by another caller. On
// success it waits for the run goroutine to stop, persists the
// cancelled status, and emits the single execution_cancelled event.
func (e *Engine) Cancel(ctx context.Context, executionID string) bool {
	e.mu.Lock()
	handle, ok := e.active[executionID]
	e.mu.Unlock()
	if !ok {
		return false
	}
	if !handle.settled.CompareAndSwap(false, true) {
		return false
	}
	handle.cancel()
	<-handle.done

	if err := e.store.SetStatus(ctx, executionID, store.StatusCancelled, nil, ""); err != nil {
		e.logger.Error("persist cancelled status", "execution_id", executionID, "error", err)
	}
	e.emit(ctx, event.New(executionID, event.ExecutionCancelled, "Workflow execution was cancelled"))
	observability.LogExecutionCancelled(e.logger, executionID)
	return true
}

// ActiveCount reports the number of in-flight executions.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

func (e *Engine) run(ctx context.Context, handle *runHandle, g Graph, executionID, query, userID string) {
	start := time.Now()
	defer close(handle.done)
	defer e.unregister(executionID)

	logger := observability.EnrichLogger(e.logger, executionID, "")
	observability.LogExecutionStart(logger, executionID, g.WorkflowID, len(g.Nodes))

	var span trace.Span
	if e.tracing {
		ctx, span = e.spans.StartExecutionSpan(ctx, g.WorkflowID, executionID)
	}

	result, runErr := e.runNodes(ctx, handle, g, executionID, query, userID, logger)

	if e.tracing {
		e.spans.EndSpanWithError(span, runErr)
	}
	duration := time.Since(start)

	switch {
	case !handle.settled.CompareAndSwap(false, true):
		// A canceller won the settled CAS and writes the terminal
		// status and event.
		e.metrics.RecordExecution(ctx, string(store.StatusCancelled), duration)
	case runErr != nil:
		var nodeErr *NodeError
		lastNode := ""
		if errors.As(runErr, &nodeErr) {
			lastNode = nodeErr.NodeID
		}
		observability.LogExecutionError(logger, executionID, runErr, float64(duration.Milliseconds()), lastNode)
		e.emit(ctx, event.New(executionID, event.ExecutionError, "Execution failed: "+runErr.Error()).
			WithData(map[string]any{"error": runErr.Error()}))
		e.setStatus(ctx, executionID, store.StatusFailed, nil, runErr.Error(), logger)
		e.metrics.RecordExecution(ctx, string(store.StatusFailed), duration)
	default:
		observability.LogExecutionComplete(logger, executionID, float64(duration.Milliseconds()), len(g.Nodes))
		e.setStatus(ctx, executionID, store.StatusCompleted, result, "", logger)
		e.metrics.RecordExecution(ctx, string(store.StatusCompleted), duration)
	}
}

// runNodes drives the planned node sequence. It returns the final
// result map on success; on failure the caller emits execution_error
// and persists the failed status.
func (e *Engine) runNodes(ctx context.Context, handle *runHandle, g Graph, executionID, query, userID string, logger *slog.Logger) (map[string]any, error) {
	e.emit(ctx, event.New(executionID, event.ExecutionStarted, "Workflow execution started").
		WithProgress(0.0))
	e.setStatus(ctx, executionID, store.StatusRunning, nil, "", logger)

	order, err := Plan(g)
	if err != nil {
		return nil, err
	}

	state := newState(query, userID, g.WorkflowID)
	total := len(order)

	for i, nodeID := range order {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		node, _ := g.Node(nodeID)
		progress := float64(i+1) / float64(total) * 0.9

		e.emit(ctx, event.New(executionID, event.NodeStarted, fmt.Sprintf("Executing %s node", node.Kind)).
			WithNode(nodeID).
			WithProgress(progress).
			WithData(map[string]any{"node_kind": string(node.Kind), "node_config": node.Config}))
		observability.LogNodeStart(logger, nodeID, string(node.Kind))

		nodeCtx := ctx
		var span trace.Span
		if e.tracing {
			nodeCtx, span = e.spans.StartNodeSpan(ctx, nodeID, string(node.Kind))
		}
		nodeStart := time.Now()
		result, nodeErr := e.executeNode(nodeCtx, node, state)
		nodeDuration := time.Since(nodeStart)
		if e.tracing {
			e.spans.EndSpanWithError(span, nodeErr)
		}
		e.metrics.RecordNodeExecution(ctx, string(node.Kind), nodeDuration, nodeErr)

		if nodeErr != nil {
			if handle.settled.Load() || ctx.Err() != nil {
				return nil, ctx.Err()
			}
			observability.LogNodeError(logger, nodeID, nodeErr)
			e.emit(ctx, event.New(executionID, event.NodeError, nodeErr.Error()).
				WithNode(nodeID).
				WithData(map[string]any{"error": nodeErr.Error()}))
			return nil, nodeErr
		}

		state.SetNodeResult(nodeID, result)
		observability.LogNodeComplete(logger, nodeID, float64(nodeDuration.Milliseconds()))
		e.emit(ctx, event.New(executionID, event.NodeCompleted, fmt.Sprintf("Completed %s node", node.Kind)).
			WithNode(nodeID).
			WithProgress(progress).
			WithData(map[string]any{"result": result}))
		if err := e.store.SetProgress(ctx, executionID, progress); err != nil {
			logger.Warn("persist progress", "error", err)
		}
	}

	if handle.settled.Load() || ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result := map[string]any{
		"query":   state.Query(),
		"output":  state.FinalOutput(),
		"format":  state.Format(),
		"context": state.Snapshot(),
	}
	e.emit(ctx, event.New(executionID, event.ExecutionCompleted, "Workflow execution completed").
		WithProgress(1.0).
		WithData(map[string]any{"final_context": state.Snapshot()}))
	return result, nil
}

// executeNode dispatches one node to its handler, converting panics
// and handler errors into typed node errors.
func (e *Engine) executeNode(ctx context.Context, node Node, state *State) (result any, err error) {
	handler, ok := e.handlers[node.Kind]
	if !ok {
		return nil, &NodeError{NodeID: node.ID, Kind: node.Kind,
			Err: fmt.Errorf("%w: %q", ErrUnknownNodeKind, node.Kind)}
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{NodeID: node.ID, Value: r, Stack: string(debug.Stack())}
		}
	}()
	result, err = handler(ctx, node, state)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Kind: node.Kind, Err: err}
	}
	return result, nil
}

// emit records the event metric and fans the event out. Emission never
// fails the execution; delivery problems are handled inside the channel.
func (e *Engine) emit(ctx context.Context, evt event.Event) {
	e.metrics.RecordEvent(ctx, string(evt.Type))
	e.channel.Emit(ctx, evt)
}

func (e *Engine) setStatus(ctx context.Context, executionID string, status store.Status, result map[string]any, errMsg string, logger *slog.Logger) {
	if err := e.store.SetStatus(ctx, executionID, status, result, errMsg); err != nil {
		logger.Error("persist status", "status", string(status), "error", err)
	}
}

func (e *Engine) unregister(executionID string) {
	e.mu.Lock()
	delete(e.active, executionID)
	e.mu.Unlock()
}
