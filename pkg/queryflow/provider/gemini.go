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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient completes chat requests against the Google Gemini API.
// The zero value is ready to use; the credential arrives per request.
type GeminiClient struct {
	// BaseURL overrides the API endpoint. Empty uses the default.
	BaseURL string
	// HTTPClient overrides the HTTP client. Nil uses a 60s-timeout default.
	HTTPClient *http.Client
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerateRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenCfg   `json:"generationConfig,omitempty"`
}

type geminiGenCfg struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Complete implements Client.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if req.APIKey == "" {
		return CompletionResponse{}, ErrMissingAPIKey
	}

	body := geminiGenerateRequest{}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}
	for _, m := range req.Messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		body.GenerationConfig = &geminiGenCfg{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL(), req.Model, req.APIKey)
	var out geminiGenerateResponse
	if err := c.post(ctx, url, body, &out); err != nil {
		return CompletionResponse{}, fmt.Errorf("gemini completion: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return CompletionResponse{}, ErrEmptyResponse
	}

	return CompletionResponse{
		Content:      out.Candidates[0].Content.Parts[0].Text,
		Model:        req.Model,
		FinishReason: out.Candidates[0].FinishReason,
		Usage: TokenUsage{
			PromptTokens:     out.UsageMetadata.PromptTokenCount,
			CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      out.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

func (c *GeminiClient) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultGeminiBaseURL
}

func (c *GeminiClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (c *GeminiClient) post(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return json.Unmarshal(data, out)
}

// GeminiEmbedder produces embeddings via the Gemini embedContent API.
type GeminiEmbedder struct {
	// BaseURL overrides the API endpoint. Empty uses the default.
	BaseURL string
	// HTTPClient overrides the HTTP client. Nil uses a 60s-timeout default.
	HTTPClient *http.Client
}

type geminiEmbedRequest struct {
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, req EmbeddingRequest) ([]float32, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := &GeminiClient{BaseURL: e.BaseURL, HTTPClient: e.HTTPClient}
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", client.baseURL(), req.Model, req.APIKey)

	body := geminiEmbedRequest{
		Content: geminiContent{Parts: []geminiPart{{Text: req.Input}}},
	}
	var out geminiEmbedResponse
	if err := client.post(ctx, url, body, &out); err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if len(out.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return out.Embedding.Values, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
