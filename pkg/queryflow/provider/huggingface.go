package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co/pipeline/feature-extraction"

// HuggingFaceEmbedder produces embeddings via the Hugging Face
// inference API's feature-extraction pipeline.
type HuggingFaceEmbedder struct {
	// BaseURL overrides the API endpoint. Empty uses the default.
	BaseURL string
	// HTTPClient overrides the HTTP client. Nil uses a 60s-timeout default.
	HTTPClient *http.Client
}

// Embed implements Embedder.
func (e *HuggingFaceEmbedder) Embed(ctx context.Context, req EmbeddingRequest) ([]float32, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	base := e.BaseURL
	if base == "" {
		base = defaultHuggingFaceBaseURL
	}

	payload, err := json.Marshal(map[string]any{
		"inputs": req.Input,
		"options": map[string]any{
			"wait_for_model": true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/"+req.Model, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	client := e.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("huggingface embedding: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface embedding: status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	// Sentence-level models return a flat vector; token-level models
	// return one vector per token. Accept both, mean-pooling the latter.
	var flat []float32
	if err := json.Unmarshal(data, &flat); err == nil {
		if len(flat) == 0 {
			return nil, ErrEmptyResponse
		}
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("huggingface embedding: unexpected response shape: %w", err)
	}
	if len(nested) == 0 || len(nested[0]) == 0 {
		return nil, ErrEmptyResponse
	}

	pooled := make([]float32, len(nested[0]))
	for _, vec := range nested {
		for i, v := range vec {
			if i < len(pooled) {
				pooled[i] += v
			}
		}
	}
	for i := range pooled {
		pooled[i] /= float32(len(nested))
	}
	return pooled, nil
}
