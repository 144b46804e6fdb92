package queryflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/queryflow/pkg/queryflow/event"
	"github.com/randalmurphal/queryflow/pkg/queryflow/knowledge"
	"github.com/randalmurphal/queryflow/pkg/queryflow/provider"
	"github.com/randalmurphal/queryflow/pkg/queryflow/store"
)

// newTestEngine wires an engine around a memory event sink so tests
// can replay the full event history after the run.
func newTestEngine(opts ...Option) (*Engine, *event.Channel) {
	channel := event.NewChannel(event.WithSink(event.NewMemorySink()))
	opts = append([]Option{WithChannel(channel)}, opts...)
	return New(opts...), channel
}

func eventTypes(events []event.Event) []event.Type {
	types := make([]event.Type, len(events))
	for i, evt := range events {
		types[i] = evt.Type
	}
	return types
}

// TestExecute_HappyPath tests the full event sequence and persisted
// record for a minimal successful run.
func TestExecute_HappyPath(t *testing.T) {
	mock := provider.NewMockClient("canned answer")
	engine, channel := newTestEngine(WithLLMProvider(provider.OpenAI, mock))

	g := linearGraph(map[string]any{"model": "gpt-4", "apiKey": "sk-test"})
	executionID, err := engine.Execute(context.Background(), g, "what is Go?", "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, executionID)

	exec := waitTerminal(t, engine, executionID)

	assert.Equal(t, store.StatusCompleted, exec.Status)
	assert.Equal(t, "what is Go?", exec.InputQuery)
	assert.Equal(t, "user-1", exec.UserID)
	assert.Equal(t, 1.0, exec.Progress)
	require.NotNil(t, exec.CompletedAt)
	require.NotNil(t, exec.Result)
	assert.Equal(t, "canned answer", exec.Result["output"])
	assert.Equal(t, "text", exec.Result["format"])

	events, err := channel.Replay(context.Background(), executionID)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{
		event.ExecutionStarted,
		event.NodeStarted, event.NodeCompleted,
		event.NodeStarted, event.NodeCompleted,
		event.NodeStarted, event.NodeCompleted,
		event.ExecutionCompleted,
	}, eventTypes(events))

	require.NotNil(t, events[0].Progress)
	assert.Equal(t, 0.0, *events[0].Progress)
	last := events[len(events)-1]
	require.NotNil(t, last.Progress)
	assert.Equal(t, 1.0, *last.Progress)

	// Node progress scales to 90% of the run: (i+1)/n * 0.9.
	wantProgress := []float64{0.3, 0.6, 0.9}
	i := 0
	for _, evt := range events {
		if evt.Type != event.NodeCompleted {
			continue
		}
		require.NotNil(t, evt.Progress)
		assert.InDelta(t, wantProgress[i], *evt.Progress, 1e-9)
		i++
	}

	// node_started carries the node's kind and config snapshot.
	for _, evt := range events {
		if evt.Type != event.NodeStarted || evt.NodeID != "llm" {
			continue
		}
		require.NotNil(t, evt.Data)
		assert.Equal(t, string(KindLLMEngine), evt.Data["node_kind"])
		cfg, ok := evt.Data["node_config"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "gpt-4", cfg["model"])
	}
}

// TestExecute_InvalidGraph tests that validation failures surface as
// *ValidationError and nothing runs or persists.
func TestExecute_InvalidGraph(t *testing.T) {
	engine, _ := newTestEngine()

	g := Graph{
		WorkflowID: "wf-bad",
		Nodes:      []Node{{ID: "in", Kind: KindQueryInput}},
	}
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")

	require.Error(t, err)
	assert.Empty(t, executionID)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Result.Errors)
	assert.Equal(t, 0, engine.ActiveCount())
}

// TestExecute_NodeFailure tests that a provider error fails the run
// with node_error and execution_error events and no completion.
func TestExecute_NodeFailure(t *testing.T) {
	mock := provider.NewMockClient("").WithError(errors.New("rate limited"))
	engine, channel := newTestEngine(WithLLMProvider(provider.OpenAI, mock))

	g := linearGraph(map[string]any{"model": "gpt-4", "apiKey": "sk-test"})
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)

	assert.Equal(t, store.StatusFailed, exec.Status)
	assert.Contains(t, exec.Error, "node llm")
	assert.Contains(t, exec.Error, "rate limited")
	assert.Nil(t, exec.Result)

	events, err := channel.Replay(context.Background(), executionID)
	require.NoError(t, err)
	types := eventTypes(events)
	assert.Contains(t, types, event.NodeError)
	assert.Equal(t, event.ExecutionError, types[len(types)-1])
	assert.NotContains(t, types, event.ExecutionCompleted)
}

// TestExecute_UnknownModel tests that a model with no routing rule is
// a hard node error.
func TestExecute_UnknownModel(t *testing.T) {
	engine, _ := newTestEngine()

	g := linearGraph(map[string]any{"model": "mystery-9000"})
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)

	assert.Equal(t, store.StatusFailed, exec.Status)
	assert.Contains(t, exec.Error, "mystery-9000")
}

// TestExecute_MissingCredential tests the placeholder-response
// degradation: the run completes with explanatory output.
func TestExecute_MissingCredential(t *testing.T) {
	mock := provider.NewMockClient("should not be called")
	engine, _ := newTestEngine(WithLLMProvider(provider.OpenAI, mock))

	g := linearGraph(map[string]any{"model": "gpt-4"}) // no apiKey anywhere
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)

	assert.Equal(t, store.StatusCompleted, exec.Status)
	require.NotNil(t, exec.Result)
	output, _ := exec.Result["output"].(string)
	assert.Contains(t, output, "no openai API key is configured")
	assert.Empty(t, mock.Calls())
}

// TestExecute_KnowledgeDegradation tests the fallback to unfiltered
// retrieval when no embedder is configured, and that retrieved text
// reaches the model's system prompt.
func TestExecute_KnowledgeDegradation(t *testing.T) {
	docs := knowledge.NewMemoryStore()
	require.NoError(t, docs.Add(context.Background(), knowledge.Chunk{
		ID: "c1", WorkflowID: "wf-rag", Text: "Go was designed at Google.",
	}, nil))

	mock := provider.NewMockClient("answer")
	engine, _ := newTestEngine(
		WithLLMProvider(provider.OpenAI, mock),
		WithRetriever(docs),
	)

	g := ragGraph(
		map[string]any{"documents": []any{"c1"}},
		map[string]any{"webSearchEnabled": false},
		map[string]any{"model": "gpt-4", "apiKey": "sk-test"},
	)
	executionID, err := engine.Execute(context.Background(), g, "who made Go?", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)
	assert.Equal(t, store.StatusCompleted, exec.Status)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].SystemPrompt, "Document context")
	assert.Contains(t, calls[0].SystemPrompt, "Go was designed at Google.")
	assert.Equal(t, "who made Go?", calls[0].Messages[0].Content)
}

// TestExecute_EmptyKnowledgeBase tests that a knowledge-base node with
// no stored documents contributes no knowledge context and the run
// still completes.
func TestExecute_EmptyKnowledgeBase(t *testing.T) {
	mock := provider.NewMockClient("answer")
	engine, _ := newTestEngine(WithLLMProvider(provider.OpenAI, mock))

	g := ragGraph(
		nil,
		map[string]any{"webSearchEnabled": false},
		map[string]any{"model": "gpt-4", "apiKey": "sk-test"},
	)
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)
	assert.Equal(t, store.StatusCompleted, exec.Status)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].SystemPrompt, "Document context")
}

// TestExecute_WebSearchResultsReachPrompt tests search hits flowing
// into the model call.
func TestExecute_WebSearchResultsReachPrompt(t *testing.T) {
	searcher := provider.NewMockSearcher(provider.SearchResult{
		Title: "Go homepage", URL: "https://go.dev", Snippet: "The Go programming language.",
	})
	mock := provider.NewMockClient("answer")
	engine, _ := newTestEngine(
		WithLLMProvider(provider.OpenAI, mock),
		WithSearchProvider(provider.Brave, searcher),
	)

	g := ragGraph(
		nil,
		map[string]any{"provider": "brave", "apiKey": "brave-key"},
		map[string]any{"model": "gpt-4", "apiKey": "sk-test"},
	)
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)
	assert.Equal(t, store.StatusCompleted, exec.Status)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].SystemPrompt, "Web search results")
	assert.Contains(t, calls[0].SystemPrompt, "Go homepage")
	assert.Contains(t, calls[0].SystemPrompt, "https://go.dev")
}

// TestExecute_WebSearchFailureDegrades tests empty-result degradation
// on provider errors.
func TestExecute_WebSearchFailureDegrades(t *testing.T) {
	searcher := provider.NewMockSearcher().WithError(errors.New("quota exceeded"))
	mock := provider.NewMockClient("answer")
	engine, _ := newTestEngine(
		WithLLMProvider(provider.OpenAI, mock),
		WithSearchProvider(provider.Brave, searcher),
	)

	g := ragGraph(
		nil,
		map[string]any{"provider": "brave", "apiKey": "brave-key"},
		map[string]any{"model": "gpt-4", "apiKey": "sk-test"},
	)
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)

	assert.Equal(t, store.StatusCompleted, exec.Status)
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].SystemPrompt, "Web search results")
}

// TestExecute_PanicRecovered tests that a panicking handler fails the
// run instead of crashing the process.
func TestExecute_PanicRecovered(t *testing.T) {
	engine, _ := newTestEngine(
		WithHandler(KindLLMEngine, func(context.Context, Node, *State) (any, error) {
			panic("boom")
		}),
	)

	g := linearGraph(map[string]any{"model": "gpt-4"})
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)

	assert.Equal(t, store.StatusFailed, exec.Status)
	assert.Contains(t, exec.Error, "panicked")
	assert.Contains(t, exec.Error, "boom")
}

// TestCancel_UnknownExecution tests the no-op contract.
func TestCancel_UnknownExecution(t *testing.T) {
	engine, _ := newTestEngine()

	assert.False(t, engine.Cancel(context.Background(), "nope"))
}

// TestCancel_RunningExecution tests that cancelling a blocked run
// persists the cancelled status and emits exactly one
// execution_cancelled event with no completion afterwards.
func TestCancel_RunningExecution(t *testing.T) {
	started := make(chan struct{})
	engine, channel := newTestEngine(
		WithHandler(KindLLMEngine, func(ctx context.Context, _ Node, _ *State) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	)

	g := linearGraph(map[string]any{"model": "gpt-4"})
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)
	<-started

	require.True(t, engine.Cancel(context.Background(), executionID))

	exec, err := engine.Status(context.Background(), executionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, exec.Status)
	assert.Equal(t, 0, engine.ActiveCount())

	events, err := channel.Replay(context.Background(), executionID)
	require.NoError(t, err)
	types := eventTypes(events)
	cancelledCount := 0
	for _, typ := range types {
		if typ == event.ExecutionCancelled {
			cancelledCount++
		}
	}
	assert.Equal(t, 1, cancelledCount)
	assert.Equal(t, event.ExecutionCancelled, types[len(types)-1])
	assert.NotContains(t, types, event.ExecutionCompleted)
	assert.NotContains(t, types, event.ExecutionError)

	// A second cancel is a no-op: the execution already finished.
	assert.False(t, engine.Cancel(context.Background(), executionID))
}

// stallingStore blocks the completed status write until released so
// tests can race Cancel against a run writing its terminal status.
type stallingStore struct {
	store.Store
	stalled chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingStore) SetStatus(ctx context.Context, id string, status store.Status, result map[string]any, errMsg string) error {
	if status == store.StatusCompleted {
		s.once.Do(func() { close(s.stalled) })
		<-s.release
	}
	return s.Store.SetStatus(ctx, id, status, result, errMsg)
}

// TestCancel_FinishingExecution tests that a cancel arriving while the
// run persists its completed status is a no-op: the execution stays
// completed and no execution_cancelled event follows the completion.
func TestCancel_FinishingExecution(t *testing.T) {
	st := &stallingStore{
		Store:   store.NewMemoryStore(),
		stalled: make(chan struct{}),
		release: make(chan struct{}),
	}
	mock := provider.NewMockClient("answer")
	engine, channel := newTestEngine(
		WithStore(st),
		WithLLMProvider(provider.OpenAI, mock),
	)

	g := linearGraph(map[string]any{"model": "gpt-4", "apiKey": "sk-test"})
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	select {
	case <-st.stalled:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached the completed status write")
	}
	assert.False(t, engine.Cancel(context.Background(), executionID))
	close(st.release)

	exec := waitTerminal(t, engine, executionID)
	assert.Equal(t, store.StatusCompleted, exec.Status)
	assert.Equal(t, 1.0, exec.Progress)

	events, err := channel.Replay(context.Background(), executionID)
	require.NoError(t, err)
	types := eventTypes(events)
	assert.Equal(t, event.ExecutionCompleted, types[len(types)-1])
	assert.NotContains(t, types, event.ExecutionCancelled)
}

// TestExecute_ConcurrentIsolation tests that parallel executions keep
// separate state and records.
func TestExecute_ConcurrentIsolation(t *testing.T) {
	mock := provider.NewMockClient("answer")
	engine, _ := newTestEngine(WithLLMProvider(provider.OpenAI, mock))

	g := linearGraph(map[string]any{"model": "gpt-4", "apiKey": "sk-test"})

	ids := make([]string, 4)
	for i := range ids {
		id, err := engine.Execute(context.Background(), g, fmt.Sprintf("query %d", i), "user-1")
		require.NoError(t, err)
		ids[i] = id
	}

	for i, id := range ids {
		exec := waitTerminal(t, engine, id)
		assert.Equal(t, store.StatusCompleted, exec.Status)
		assert.Equal(t, fmt.Sprintf("query %d", i), exec.InputQuery)
		assert.Equal(t, fmt.Sprintf("query %d", i), exec.Result["query"])
	}
	assert.Equal(t, 0, engine.ActiveCount())
}

// TestExecute_DefaultModelRouting tests that the default model routes
// to OpenAI when the node omits one.
func TestExecute_DefaultModelRouting(t *testing.T) {
	mock := provider.NewMockClient("answer")
	engine, _ := newTestEngine(WithLLMProvider(provider.OpenAI, mock))

	g := linearGraph(map[string]any{"apiKey": "sk-test"})
	executionID, err := engine.Execute(context.Background(), g, "q", "user-1")
	require.NoError(t, err)

	exec := waitTerminal(t, engine, executionID)

	assert.Equal(t, store.StatusCompleted, exec.Status)
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "gpt-3.5-turbo", calls[0].Model)
}
