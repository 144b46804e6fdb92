package queryflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestState_Seeding tests the initial scratchpad contents.
func TestState_Seeding(t *testing.T) {
	s := newState("what is Go?", "user-1", "wf-1")

	assert.Equal(t, "what is Go?", s.Query())
	assert.Equal(t, "what is Go?", s.WorkingText(), "working text starts as the query")
	assert.Equal(t, "user-1", s.UserID())
	assert.Equal(t, "wf-1", s.WorkflowID())
	assert.Empty(t, s.Knowledge())
	assert.Empty(t, s.SearchResults())
}

// TestState_WorkingText tests that responses replace, not append.
func TestState_WorkingText(t *testing.T) {
	s := newState("q", "u", "wf")

	s.SetWorkingText("first answer")
	s.SetWorkingText("second answer")

	assert.Equal(t, "second answer", s.WorkingText())
	assert.Equal(t, "q", s.Query(), "query stays verbatim")
}

// TestState_AppendKnowledge tests accumulation across multiple nodes.
func TestState_AppendKnowledge(t *testing.T) {
	s := newState("q", "u", "wf")

	s.AppendKnowledge([]string{"a", "b"})
	s.AppendKnowledge(nil)
	s.AppendKnowledge([]string{"c"})

	assert.Equal(t, []string{"a", "b", "c"}, s.Knowledge())
}

// TestState_AppendSearchResults tests block accumulation.
func TestState_AppendSearchResults(t *testing.T) {
	s := newState("q", "u", "wf")

	s.AppendSearchResults("block one")
	s.AppendSearchResults("")
	s.AppendSearchResults("block two")

	assert.Equal(t, "block one\nblock two", s.SearchResults())
}

// TestState_FinalOutputFallback tests that the working text serves as
// the final output until an output node records one.
func TestState_FinalOutputFallback(t *testing.T) {
	s := newState("q", "u", "wf")
	s.SetWorkingText("answer")

	assert.Equal(t, "answer", s.FinalOutput())
	assert.Empty(t, s.Format())

	s.SetFinal("answer", "markdown")

	assert.Equal(t, "answer", s.FinalOutput())
	assert.Equal(t, "markdown", s.Format())
}

// TestState_NodeResults tests per-node output storage.
func TestState_NodeResults(t *testing.T) {
	s := newState("q", "u", "wf")

	s.SetNodeResult("kb", []string{"snippet"})

	v, ok := s.NodeResult("kb")
	assert.True(t, ok)
	assert.Equal(t, []string{"snippet"}, v)

	_, ok = s.NodeResult("missing")
	assert.False(t, ok)
}

// TestState_SnapshotIsCopy tests that mutating a snapshot does not
// touch the live state.
func TestState_SnapshotIsCopy(t *testing.T) {
	s := newState("q", "u", "wf")

	snap := s.Snapshot()
	snap["user_query"] = "tampered"

	assert.Equal(t, "q", s.Query())
	assert.Equal(t, "q", snap["working_output"])
}
