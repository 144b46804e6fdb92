package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBraveBaseURL = "https://api.search.brave.com/res/v1"

// BraveSearcher performs web search via the Brave Search API.
type BraveSearcher struct {
	// BaseURL overrides the API endpoint. Empty uses the default.
	BaseURL string
	// HTTPClient overrides the HTTP client. Nil uses a 30s-timeout default.
	HTTPClient *http.Client
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Snippet     string `json:"snippet"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements Searcher.
func (s *BraveSearcher) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	base := s.BaseURL
	if base == "" {
		base = defaultBraveBaseURL
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(limit))
	params.Set("search_lang", "en")
	params.Set("country", "US")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/web/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", req.APIKey)

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search: status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var out braveResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]SearchResult, 0, len(out.Web.Results))
	for _, r := range out.Web.Results {
		snippet := r.Snippet
		if snippet == "" {
			snippet = r.Description
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: snippet,
		})
	}
	return results, nil
}
