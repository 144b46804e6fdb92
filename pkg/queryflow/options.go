package queryflow

import (
	"log/slog"

	"github.com/randalmurphal/queryflow/pkg/queryflow/credential"
	"github.com/randalmurphal/queryflow/pkg/queryflow/event"
	"github.com/randalmurphal/queryflow/pkg/queryflow/knowledge"
	"github.com/randalmurphal/queryflow/pkg/queryflow/observability"
	"github.com/randalmurphal/queryflow/pkg/queryflow/provider"
	"github.com/randalmurphal/queryflow/pkg/queryflow/store"
)

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the execution store.
// Default: an in-memory store.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithChannel sets the event channel.
// Default: a channel with no durable sink.
func WithChannel(c *event.Channel) Option {
	return func(e *Engine) { e.channel = c }
}

// WithCredentials sets the credential resolver.
// Default: a resolver over an empty in-memory store.
func WithCredentials(r *credential.Resolver) Option {
	return func(e *Engine) { e.creds = r }
}

// WithRetriever sets the knowledge retriever.
// Default: an empty in-memory store.
func WithRetriever(r knowledge.Retriever) Option {
	return func(e *Engine) { e.retriever = r }
}

// WithLLMProvider registers a completion client under a provider name
// (e.g. provider.OpenAI). Model names route to providers through
// provider.ForModel.
func WithLLMProvider(name string, client provider.Client) Option {
	return func(e *Engine) { e.llms[name] = client }
}

// WithEmbeddingProvider registers an embedder under a provider name.
func WithEmbeddingProvider(name string, embedder provider.Embedder) Option {
	return func(e *Engine) { e.embedders[name] = embedder }
}

// WithSearchProvider registers a web searcher under a provider name
// (e.g. provider.Brave).
func WithSearchProvider(name string, searcher provider.Searcher) Option {
	return func(e *Engine) { e.searchers[name] = searcher }
}

// WithHandler registers a node handler for a kind, replacing the
// built-in one if present. Adding a new kind means adding a handler;
// the dispatch core never changes.
func WithHandler(kind NodeKind, handler HandlerFunc) Option {
	return func(e *Engine) { e.extraHandlers[kind] = handler }
}

// WithLogger sets the logger.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics enables OpenTelemetry metrics.
// Default: disabled (no-op recorder).
func WithMetrics(enabled bool) Option {
	return func(e *Engine) {
		if enabled {
			e.metrics = observability.NewMetricsRecorder()
		} else {
			e.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry tracing.
// Default: disabled.
func WithTracing(enabled bool) Option {
	return func(e *Engine) {
		e.tracing = enabled
		if enabled {
			e.spans = observability.NewSpanManager()
		} else {
			e.spans = observability.NoopSpanManager{}
		}
	}
}
