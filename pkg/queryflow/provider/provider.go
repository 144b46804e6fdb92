// Package provider abstracts third-party LLM, embedding, and web
// search APIs behind uniform call shapes. Each adapter takes the
// resolved credential per request, so one adapter instance serves
// every user.
package provider

import (
	"context"
	"errors"
)

// Role identifies a chat message sender.
type Role string

// Standard message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest configures an LLM completion call.
type CompletionRequest struct {
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
	Temperature  float64   `json:"temperature,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`

	// APIKey is the resolved credential for this call. Never logged.
	APIKey string `json:"-"`
}

// CompletionResponse is the normalized output of a completion call.
type CompletionResponse struct {
	Content      string     `json:"content"`
	Model        string     `json:"model"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        TokenUsage `json:"usage"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client completes chat requests against one provider.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// EmbeddingRequest configures an embedding call.
type EmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`

	// APIKey is the resolved credential for this call. Never logged.
	APIKey string `json:"-"`
}

// Embedder produces an embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, req EmbeddingRequest) ([]float32, error)
}

// SearchRequest configures a web search call.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`

	// APIKey is the resolved credential for this call. Never logged.
	APIKey string `json:"-"`
}

// SearchResult is one normalized web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher performs web search against one provider.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

// Sentinel errors shared by adapters.
var (
	// ErrMissingAPIKey indicates a call was attempted without a credential.
	ErrMissingAPIKey = errors.New("api key not provided")

	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("provider returned empty response")
)
