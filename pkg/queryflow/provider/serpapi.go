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

const defaultSerpAPIBaseURL = "https://serpapi.com"

// SerpAPISearcher performs web search via SerpAPI's Google engine.
type SerpAPISearcher struct {
	// BaseURL overrides the API endpoint. Empty uses the default.
	BaseURL string
	// HTTPClient overrides the HTTP client. Nil uses a 30s-timeout default.
	HTTPClient *http.Client
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search implements Searcher.
func (s *SerpAPISearcher) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	base := s.BaseURL
	if base == "" {
		base = defaultSerpAPIBaseURL
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("api_key", req.APIKey)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(limit))
	params.Set("gl", "us")
	params.Set("hl", "en")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("serpapi search: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi search: status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var out serpAPIResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]SearchResult, 0, len(out.OrganicResults))
	for _, r := range out.OrganicResults {
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
		})
	}
	return results, nil
}
