package knowledge

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory vector store using cosine similarity.
// Suitable for tests, examples, and small single-process deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]storedChunk // workflow id -> ingestion-ordered chunks
	closed bool
}

type storedChunk struct {
	chunk     Chunk
	embedding []float32
}

// NewMemoryStore creates a new in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks: make(map[string][]storedChunk),
	}
}

// Add ingests a chunk with its embedding. A nil embedding is allowed;
// such chunks only surface through All.
func (m *MemoryStore) Add(_ context.Context, chunk Chunk, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	stored := make([]float32, len(embedding))
	copy(stored, embedding)
	m.chunks[chunk.WorkflowID] = append(m.chunks[chunk.WorkflowID], storedChunk{
		chunk:     chunk,
		embedding: stored,
	})
	return nil
}

// Query implements Retriever.
func (m *MemoryStore) Query(_ context.Context, workflowID string, embedding []float32, limit int) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = 3
	}

	scored := []Chunk{}
	for _, sc := range m.chunks[workflowID] {
		if len(sc.embedding) == 0 {
			continue
		}
		c := sc.chunk
		c.Score = cosineSimilarity(embedding, sc.embedding)
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// All implements Retriever.
func (m *MemoryStore) All(_ context.Context, workflowID string) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	stored := m.chunks[workflowID]
	out := make([]Chunk, 0, len(stored))
	for _, sc := range stored {
		out = append(out, sc.chunk)
	}
	return out, nil
}

// Close releases the store. Subsequent calls return ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
