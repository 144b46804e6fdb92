package provider

import (
	"context"
	"sync"
)

// MockClient is a canned-response Client for tests and examples.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	next      int
	err       error
	calls     []CompletionRequest
}

// NewMockClient creates a mock that always returns the given content.
func NewMockClient(content string) *MockClient {
	return &MockClient{responses: []string{content}}
}

// WithResponses sets a sequence of responses, cycled across calls.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.next = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if m.err != nil {
		return CompletionResponse{}, m.err
	}

	content := ""
	if len(m.responses) > 0 {
		content = m.responses[m.next%len(m.responses)]
		m.next++
	}
	return CompletionResponse{
		Content:      content,
		Model:        req.Model,
		FinishReason: "stop",
	}, nil
}

// Calls returns every request the mock received, in order.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockEmbedder is a canned-vector Embedder for tests.
type MockEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	calls  []EmbeddingRequest
}

// NewMockEmbedder creates a mock that always returns the given vector.
func NewMockEmbedder(vector []float32) *MockEmbedder {
	return &MockEmbedder{vector: vector}
}

// WithError makes every call fail with err.
func (m *MockEmbedder) WithError(err error) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Embed implements Embedder.
func (m *MockEmbedder) Embed(_ context.Context, req EmbeddingRequest) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float32, len(m.vector))
	copy(out, m.vector)
	return out, nil
}

// MockSearcher is a canned-result Searcher for tests.
type MockSearcher struct {
	mu      sync.Mutex
	results []SearchResult
	err     error
	calls   []SearchRequest
}

// NewMockSearcher creates a mock that always returns the given results.
func NewMockSearcher(results ...SearchResult) *MockSearcher {
	return &MockSearcher{results: results}
}

// WithError makes every call fail with err.
func (m *MockSearcher) WithError(err error) *MockSearcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Search implements Searcher.
func (m *MockSearcher) Search(_ context.Context, req SearchRequest) ([]SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]SearchResult, len(m.results))
	copy(out, m.results)
	return out, nil
}
