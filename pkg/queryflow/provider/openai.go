package provider

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient completes chat requests against the OpenAI API.
// The zero value is ready to use; the credential arrives per request.
type OpenAIClient struct {
	// BaseURL overrides the API endpoint. Empty uses the default.
	// Useful for tests and OpenAI-compatible gateways.
	BaseURL string
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if req.APIKey == "" {
		return CompletionResponse{}, ErrMissingAPIKey
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.client(req.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, ErrEmptyResponse
	}

	return CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAIClient) client(apiKey string) *openai.Client {
	if c.BaseURL == "" {
		return openai.NewClient(apiKey)
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.BaseURL
	return openai.NewClientWithConfig(cfg)
}

// OpenAIEmbedder produces embeddings via the OpenAI API.
type OpenAIEmbedder struct {
	// BaseURL overrides the API endpoint. Empty uses the default.
	BaseURL string
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, req EmbeddingRequest) ([]float32, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := (&OpenAIClient{BaseURL: e.BaseURL}).client(req.APIKey)
	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{req.Input},
		Model: openai.EmbeddingModel(req.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Data[0].Embedding, nil
}
