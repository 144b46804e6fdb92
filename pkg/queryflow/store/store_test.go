package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecution(id, workflowID string, startedAt time.Time) Execution {
	return Execution{
		ID:         id,
		WorkflowID: workflowID,
		UserID:     "user-1",
		Status:     StatusPending,
		InputQuery: "what is Go?",
		StartedAt:  startedAt,
	}
}

// storeUnderTest runs the shared Store contract against an implementation.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.Create(ctx, newExecution("exec-1", "wf-1", base)))

	got, err := s.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "what is Go?", got.InputQuery)
	assert.Equal(t, 0.0, got.Progress)
	assert.Nil(t, got.CompletedAt)

	_, err = s.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)

	// Transition to running, then track progress.
	require.NoError(t, s.SetStatus(ctx, "exec-1", StatusRunning, nil, ""))
	require.NoError(t, s.SetProgress(ctx, "exec-1", 0.6))

	got, err = s.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.InDelta(t, 0.6, got.Progress, 1e-9)
	assert.Nil(t, got.CompletedAt)

	// Completion stamps the timestamp, pins progress, and keeps the result.
	result := map[string]any{"output": "an answer", "format": "text"}
	require.NoError(t, s.SetStatus(ctx, "exec-1", StatusCompleted, result, ""))

	got, err = s.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 1.0, got.Progress)
	assert.Equal(t, "an answer", got.Result["output"])
	require.NotNil(t, got.CompletedAt)

	// Failure path on a second execution.
	require.NoError(t, s.Create(ctx, newExecution("exec-2", "wf-1", base.Add(time.Second))))
	require.NoError(t, s.SetStatus(ctx, "exec-2", StatusFailed, nil, "node llm: boom"))

	got, err = s.Get(ctx, "exec-2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "node llm: boom", got.Error)
	assert.Nil(t, got.Result)
	require.NotNil(t, got.CompletedAt)

	// Unknown ids surface ErrNotFound on every mutation.
	assert.ErrorIs(t, s.SetStatus(ctx, "absent", StatusRunning, nil, ""), ErrNotFound)
	assert.ErrorIs(t, s.SetProgress(ctx, "absent", 0.5), ErrNotFound)

	// Listing is scoped to the workflow and newest first.
	require.NoError(t, s.Create(ctx, newExecution("exec-3", "wf-2", base.Add(2*time.Second))))

	execs, err := s.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, execs, 2)
	assert.Equal(t, "exec-2", execs[0].ID)
	assert.Equal(t, "exec-1", execs[1].ID)

	empty, err := s.ListByWorkflow(ctx, "absent")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestMemoryStore_Contract tests the in-memory store.
func TestMemoryStore_Contract(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	storeUnderTest(t, s)
}

// TestSQLiteStore_Contract tests the durable store against a real file.
func TestSQLiteStore_Contract(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "executions.db"))
	require.NoError(t, err)
	defer s.Close()

	storeUnderTest(t, s)
}

// TestSQLiteStore_SurvivesReopen tests persistence across instances.
func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executions.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, newExecution("exec-1", "wf-1", time.Now().UTC())))
	require.NoError(t, s.SetStatus(ctx, "exec-1", StatusCompleted, map[string]any{"output": "hi"}, ""))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "hi", got.Result["output"])
}

// TestStore_Closed tests post-Close behavior for both implementations.
func TestStore_Closed(t *testing.T) {
	mem := NewMemoryStore()
	require.NoError(t, mem.Close())

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "executions.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.Close())
	require.NoError(t, sqlite.Close(), "double close is a no-op")

	for _, s := range []Store{mem, sqlite} {
		assert.ErrorIs(t, s.Create(context.Background(), newExecution("x", "wf", time.Now())), ErrStoreClosed)
		_, err := s.Get(context.Background(), "x")
		assert.ErrorIs(t, err, ErrStoreClosed)
	}
}

// TestStatus_Terminal tests the state machine's terminal set.
func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
