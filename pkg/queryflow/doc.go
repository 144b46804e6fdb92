/*
Package queryflow executes user-designed query workflows.

# Overview

queryflow is a Go library for validating, planning, and executing
directed graphs of typed nodes against a user query. A workflow wires
a query-input node through optional knowledge-base and web-search
nodes into an llm-engine node and finally an output node; the engine
runs the nodes in dependency order, accumulating retrieved context
before the model call and capturing the answer at the end.

Executions are asynchronous. Execute returns an execution ID
immediately; progress flows out through an event channel and a
persistent execution store, and a running execution can be cancelled
at any point.

# Basic Usage

Build a graph, create an engine, and execute:

	g := queryflow.Graph{
	    WorkflowID: "wf-1",
	    Nodes: []queryflow.Node{
	        {ID: "in", Kind: queryflow.KindQueryInput},
	        {ID: "llm", Kind: queryflow.KindLLMEngine, Config: map[string]any{"model": "gpt-4"}},
	        {ID: "out", Kind: queryflow.KindOutput},
	    },
	    Edges: []queryflow.Edge{
	        {Source: "in", Target: "llm"},
	        {Source: "llm", Target: "out"},
	    },
	}

	engine := queryflow.New(
	    queryflow.WithLLMProvider(provider.OpenAI, &provider.OpenAIClient{}),
	)

	executionID, err := engine.Execute(ctx, g, "What is Go?", "user-1")
	if err != nil {
	    log.Fatal(err)
	}

Validation failures surface as *ValidationError before anything runs:

	var vErr *queryflow.ValidationError
	if errors.As(err, &vErr) {
	    for _, msg := range vErr.Result.Errors {
	        log.Println(msg)
	    }
	}

# Events

Subscribe to live events or replay persisted ones:

	cancel := engine.Channel().Subscribe(executionID, event.SubscriberFunc(
	    func(ctx context.Context, evt event.Event) error {
	        fmt.Println(evt.Type, evt.Message)
	        return nil
	    }))
	defer cancel()

Every execution emits execution_started first and exactly one of
execution_completed, execution_error, or execution_cancelled last,
with node_started/node_completed/node_error pairs in between. Events
carry progress: 0.0 at start, 1.0 at completion, and a fraction of
0.9 while nodes run.

With a durable sink the event log survives restarts:

	sink, err := event.NewSQLiteSink("./events.db")
	channel := event.NewChannel(event.WithSink(sink))
	engine := queryflow.New(queryflow.WithChannel(channel))

	history, err := engine.Channel().Replay(ctx, executionID)

# Credentials

Provider API keys resolve per node: an apiKey in the node's config
wins, then the executing user's stored credential for the routed
provider, then none. Missing credentials degrade rather than fail:
retrieval falls back to unfiltered documents, search returns no
results, and the llm-engine answers with a placeholder explaining
what to configure.

	creds := credential.NewResolver(store, cipher)
	creds.Put(ctx, "user-1", credential.KeyOpenAI, "sk-...")
	engine := queryflow.New(queryflow.WithCredentials(creds))

# Cancellation

Cancel stops a running execution and emits execution_cancelled:

	if engine.Cancel(ctx, executionID) {
	    // status is now "cancelled"
	}

Cancel returns false for unknown or already-finished executions.

# Observability

Enable structured logging, metrics, and tracing:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	engine := queryflow.New(
	    queryflow.WithLogger(logger),
	    queryflow.WithMetrics(true),
	    queryflow.WithTracing(true),
	)

Logs carry execution_id and node_id fields. OpenTelemetry metrics:
queryflow.node.executions, queryflow.node.latency_ms,
queryflow.execution.runs, queryflow.capability.degradations, etc.
Tracing: queryflow.execution > queryflow.node.{id} spans.

# Thread Safety

  - Engine IS safe for concurrent use; executions are isolated
  - State belongs to one execution and is never shared
  - Store, Sink, and credential Store implementations are safe for
    concurrent use

# Subpackages

  - config: typed access to node configuration maps
  - credential: encrypted credential storage and resolution
  - event: event types, fan-out channel, durable sinks
  - knowledge: document chunk storage and similarity retrieval
  - observability: logging, metrics, and tracing helpers
  - provider: LLM, embedding, and web search adapters
  - store: execution record persistence
*/
package queryflow
