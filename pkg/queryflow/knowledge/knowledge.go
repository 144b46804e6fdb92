// Package knowledge abstracts the nearest-neighbor store used for
// retrieval-augmented generation. The engine only sees the Retriever
// interface; the concrete vector index lives behind it.
package knowledge

import (
	"context"
	"errors"
)

// Chunk is one previously-ingested piece of document text, scoped to
// the workflow whose documents it came from.
type Chunk struct {
	ID         string            `json:"id"`
	WorkflowID string            `json:"workflow_id"`
	DocumentID string            `json:"document_id,omitempty"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	// Score is the similarity to the query embedding, set only on
	// results of Query. Higher is more relevant.
	Score float64 `json:"score,omitempty"`
}

// Retriever finds relevant chunks for a workflow scope.
// Implementations must be safe for concurrent use.
type Retriever interface {
	// Query returns up to limit chunks most similar to the embedding,
	// most relevant first, restricted to the workflow scope.
	Query(ctx context.Context, workflowID string, embedding []float32, limit int) ([]Chunk, error)

	// All returns every chunk stored for the workflow scope, in
	// ingestion order. This is the unfiltered fallback when no query
	// embedding is available.
	All(ctx context.Context, workflowID string) ([]Chunk, error)
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("knowledge store closed")
