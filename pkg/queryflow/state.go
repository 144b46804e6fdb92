package queryflow

// Reserved context keys. Node outputs land under "node_<id>_output".
const (
	keyUserQuery     = "user_query"
	keyWorkingOutput = "working_output"
	keyKnowledge     = "knowledge_context"
	keySearchResults = "search_results"
	keyFinalOutput   = "final_output"
	keyOutputFormat  = "output_format"
)

// State is the mutable key-value scratchpad threaded through one
// execution's node sequence. It exists only for the lifetime of that
// execution and is owned exclusively by its run goroutine, so no
// locking is needed. Only the final projection is ever persisted.
type State struct {
	userID     string
	workflowID string
	values     map[string]any
}

// newState seeds the scratchpad with the original query. The working
// output starts as the query itself; llm-engine nodes replace it.
func newState(query, userID, workflowID string) *State {
	return &State{
		userID:     userID,
		workflowID: workflowID,
		values: map[string]any{
			keyUserQuery:     query,
			keyWorkingOutput: query,
		},
	}
}

// UserID returns the identity the execution runs as.
func (s *State) UserID() string { return s.userID }

// WorkflowID returns the owning workflow scope.
func (s *State) WorkflowID() string { return s.workflowID }

// Query returns the original user query verbatim.
func (s *State) Query() string {
	q, _ := s.values[keyUserQuery].(string)
	return q
}

// WorkingText returns the current working output: the query until an
// llm-engine node produces a response, the latest response after.
func (s *State) WorkingText() string {
	w, _ := s.values[keyWorkingOutput].(string)
	return w
}

// SetWorkingText replaces the working output.
func (s *State) SetWorkingText(text string) {
	s.values[keyWorkingOutput] = text
}

// Set stores an arbitrary value under a logical key.
func (s *State) Set(key string, value any) {
	s.values[key] = value
}

// Get returns the value for a logical key and whether it exists.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// AppendKnowledge accumulates retrieved document snippets.
func (s *State) AppendKnowledge(snippets []string) {
	if len(snippets) == 0 {
		return
	}
	existing, _ := s.values[keyKnowledge].([]string)
	s.values[keyKnowledge] = append(existing, snippets...)
}

// Knowledge returns all accumulated document snippets.
func (s *State) Knowledge() []string {
	k, _ := s.values[keyKnowledge].([]string)
	return k
}

// AppendSearchResults accumulates a formatted web-search block.
func (s *State) AppendSearchResults(block string) {
	if block == "" {
		return
	}
	existing, _ := s.values[keySearchResults].(string)
	if existing != "" {
		block = existing + "\n" + block
	}
	s.values[keySearchResults] = block
}

// SearchResults returns the accumulated web-search block.
func (s *State) SearchResults() string {
	b, _ := s.values[keySearchResults].(string)
	return b
}

// SetNodeResult stores a node's output under a key derived from its id.
func (s *State) SetNodeResult(nodeID string, result any) {
	s.values["node_"+nodeID+"_output"] = result
}

// NodeResult returns a node's stored output.
func (s *State) NodeResult(nodeID string) (any, bool) {
	v, ok := s.values["node_"+nodeID+"_output"]
	return v, ok
}

// SetFinal records the execution's final result and its format tag.
// The format is metadata for the consumer, not an enforced contract.
func (s *State) SetFinal(output, format string) {
	s.values[keyFinalOutput] = output
	s.values[keyOutputFormat] = format
}

// FinalOutput returns the recorded final output, falling back to the
// working text when no output node ran.
func (s *State) FinalOutput() string {
	if out, ok := s.values[keyFinalOutput].(string); ok {
		return out
	}
	return s.WorkingText()
}

// Format returns the recorded output format tag.
func (s *State) Format() string {
	f, _ := s.values[keyOutputFormat].(string)
	return f
}

// Snapshot returns a shallow copy of all context values. Used for the
// terminal event payload and the persisted result projection.
func (s *State) Snapshot() map[string]any {
	snap := make(map[string]any, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}
	return snap
}
