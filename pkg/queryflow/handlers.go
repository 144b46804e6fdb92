package queryflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/queryflow/pkg/queryflow/config"
	"github.com/randalmurphal/queryflow/pkg/queryflow/knowledge"
	"github.com/randalmurphal/queryflow/pkg/queryflow/observability"
	"github.com/randalmurphal/queryflow/pkg/queryflow/provider"
)

const (
	defaultLLMModel       = "gpt-3.5-turbo"
	defaultEmbeddingModel = "embedding-001"
	defaultTemperature    = 0.7
	defaultMaxTokens      = 1000
	defaultSearchLimit    = 5
	defaultRetrieveLimit  = 3

	defaultSystemPrompt = "You are a helpful assistant. Answer the user's question using the provided context when it is relevant."
)

// runQueryInput seeds the execution with the user's query. The query
// is already in state when the run starts; the node exists so graphs
// have an explicit entry point, and its result echoes the query.
func (e *Engine) runQueryInput(_ context.Context, _ Node, state *State) (any, error) {
	return state.Query(), nil
}

// runKnowledgeBase retrieves workflow documents relevant to the query
// and appends them to the shared knowledge context. Retrieval needs an
// embedding of the query; when no embedder, credential, or similarity
// result is available the handler degrades to returning every chunk
// stored for the workflow rather than failing the execution.
func (e *Engine) runKnowledgeBase(ctx context.Context, node Node, state *State) (any, error) {
	cfg := config.New(node.Config)
	limit := cfg.Int("numResults", defaultRetrieveLimit)
	model := cfg.String("embeddingModel", defaultEmbeddingModel)

	chunks, reason := e.retrieveSimilar(ctx, cfg, model, limit, state)
	if reason != "" {
		observability.LogDegraded(e.logger, node.ID, "knowledge_retrieval", reason)
		e.metrics.RecordDegradation(ctx, "knowledge_retrieval")
		all, err := e.retriever.All(ctx, state.WorkflowID())
		if err != nil {
			return nil, fmt.Errorf("knowledge fallback: %w", err)
		}
		chunks = all
	}

	snippets := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		snippets = append(snippets, chunk.Text)
	}
	state.AppendKnowledge(snippets)
	return snippets, nil
}

// retrieveSimilar attempts embedding-based retrieval. It returns a
// non-empty reason when the caller should fall back to unfiltered
// retrieval.
func (e *Engine) retrieveSimilar(ctx context.Context, cfg config.Config, model string, limit int, state *State) ([]knowledge.Chunk, string) {
	providerName, ok := provider.ForModel(model)
	if !ok {
		return nil, fmt.Sprintf("no provider for embedding model %q", model)
	}
	embedder, ok := e.embedders[providerName]
	if !ok {
		return nil, fmt.Sprintf("no %s embedder configured", providerName)
	}
	apiKey, ok := e.creds.ResolveChain(ctx, cfg.String("apiKey", ""), providerName, state.UserID())
	if !ok {
		return nil, fmt.Sprintf("no %s credential available", providerName)
	}

	embedding, err := embedder.Embed(ctx, provider.EmbeddingRequest{
		Model:  model,
		Input:  state.Query(),
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Sprintf("embed query: %v", err)
	}
	chunks, err := e.retriever.Query(ctx, state.WorkflowID(), embedding, limit)
	if err != nil {
		return nil, fmt.Sprintf("similarity query: %v", err)
	}
	return chunks, ""
}

// runWebSearch queries a web search provider and appends a formatted
// result block to the shared context. Search is best-effort: a missing
// provider, missing credential, or provider error yields empty results
// and the execution carries on.
func (e *Engine) runWebSearch(ctx context.Context, node Node, state *State) (any, error) {
	cfg := config.New(node.Config)
	if !cfg.Bool("webSearchEnabled", true) {
		return []provider.SearchResult{}, nil
	}

	providerName := cfg.String("provider", provider.Brave)
	degrade := func(reason string) (any, error) {
		observability.LogDegraded(e.logger, node.ID, "web_search", reason)
		e.metrics.RecordDegradation(ctx, "web_search")
		return []provider.SearchResult{}, nil
	}

	searcher, ok := e.searchers[providerName]
	if !ok {
		return degrade(fmt.Sprintf("no %s searcher configured", providerName))
	}
	apiKey, ok := e.creds.ResolveChain(ctx, cfg.String("apiKey", ""), providerName, state.UserID())
	if !ok {
		return degrade(fmt.Sprintf("no %s credential available", providerName))
	}

	results, err := searcher.Search(ctx, provider.SearchRequest{
		Query:  state.Query(),
		Limit:  cfg.Int("numResults", defaultSearchLimit),
		APIKey: apiKey,
	})
	if err != nil {
		return degrade(fmt.Sprintf("search failed: %v", err))
	}
	if len(results) > 0 {
		state.AppendSearchResults(formatSearchResults(results))
	}
	return results, nil
}

// runLLMEngine sends the query plus accumulated context to the model
// routed from the node's configuration. A model no routing rule covers
// is a hard error; a missing credential is not, producing an
// explanatory placeholder response instead so the workflow still
// completes end to end.
func (e *Engine) runLLMEngine(ctx context.Context, node Node, state *State) (any, error) {
	cfg := config.New(node.Config)
	model := cfg.String("model", defaultLLMModel)

	providerName, ok := provider.ForModel(model)
	if !ok {
		return nil, fmt.Errorf("no provider recognizes model %q", model)
	}
	client, ok := e.llms[providerName]
	if !ok {
		return nil, fmt.Errorf("no %s client configured", providerName)
	}

	apiKey, ok := e.creds.ResolveChain(ctx, cfg.String("apiKey", ""), providerName, state.UserID())
	if !ok {
		observability.LogDegraded(e.logger, node.ID, "llm_completion", fmt.Sprintf("no %s credential available", providerName))
		e.metrics.RecordDegradation(ctx, "llm_completion")
		text := fmt.Sprintf("LLM response not available: no %s API key is configured. Add one in your credential settings to enable model responses.", providerName)
		state.SetWorkingText(text)
		return text, nil
	}

	resp, err := client.Complete(ctx, provider.CompletionRequest{
		Model:        model,
		SystemPrompt: buildSystemPrompt(cfg.String("systemPrompt", defaultSystemPrompt), state),
		Messages:     []provider.Message{{Role: provider.RoleUser, Content: state.Query()}},
		Temperature:  cfg.Float64("temperature", defaultTemperature),
		MaxTokens:    cfg.Int("maxTokens", defaultMaxTokens),
		APIKey:       apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("complete with %s: %w", providerName, err)
	}

	state.SetWorkingText(resp.Content)
	return resp.Content, nil
}

// runOutput captures the working text as the execution's final output
// in the configured format.
func (e *Engine) runOutput(_ context.Context, node Node, state *State) (any, error) {
	cfg := config.New(node.Config)
	format := cfg.String("format", "text")
	output := state.WorkingText()
	state.SetFinal(output, format)
	return map[string]any{"output": output, "format": format}, nil
}

// buildSystemPrompt combines the node's instructions with the
// accumulated retrieval context. Document and search content is fenced
// off so the model can tell reference material apart from instructions.
func buildSystemPrompt(base string, state *State) string {
	var b strings.Builder
	b.WriteString(base)

	if snippets := state.Knowledge(); len(snippets) > 0 {
		b.WriteString("\n\n=== Document context ===\n")
		for _, snippet := range snippets {
			b.WriteString("- ")
			b.WriteString(snippet)
			b.WriteString("\n")
		}
		b.WriteString("=== End document context ===")
	}
	if search := state.SearchResults(); search != "" {
		b.WriteString("\n\n=== Web search results ===\n")
		b.WriteString(search)
		b.WriteString("\n=== End web search results ===")
	}
	return b.String()
}

// formatSearchResults renders hits as a numbered plain-text block.
func formatSearchResults(results []provider.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n   %s", i+1, r.Title, r.URL, r.Snippet)
	}
	return b.String()
}
