package queryflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/queryflow/pkg/queryflow/store"
)

// linearGraph builds the minimal valid workflow:
// query-input -> llm-engine -> output.
func linearGraph(llmConfig map[string]any) Graph {
	return Graph{
		WorkflowID: "wf-test",
		Nodes: []Node{
			{ID: "in", Kind: KindQueryInput},
			{ID: "llm", Kind: KindLLMEngine, Config: llmConfig},
			{ID: "out", Kind: KindOutput},
		},
		Edges: []Edge{
			{Source: "in", Target: "llm"},
			{Source: "llm", Target: "out"},
		},
	}
}

// ragGraph adds knowledge-base and web-search stages ahead of the
// llm-engine node.
func ragGraph(kbConfig, wsConfig, llmConfig map[string]any) Graph {
	return Graph{
		WorkflowID: "wf-rag",
		Nodes: []Node{
			{ID: "in", Kind: KindQueryInput},
			{ID: "kb", Kind: KindKnowledgeBase, Config: kbConfig},
			{ID: "ws", Kind: KindWebSearch, Config: wsConfig},
			{ID: "llm", Kind: KindLLMEngine, Config: llmConfig},
			{ID: "out", Kind: KindOutput},
		},
		Edges: []Edge{
			{Source: "in", Target: "kb"},
			{Source: "kb", Target: "ws"},
			{Source: "ws", Target: "llm"},
			{Source: "llm", Target: "out"},
		},
	}
}

// waitTerminal polls the execution store until the execution reaches a
// terminal status.
func waitTerminal(t *testing.T, e *Engine, executionID string) store.Execution {
	t.Helper()
	var exec store.Execution
	require.Eventually(t, func() bool {
		var err error
		exec, err = e.Status(context.Background(), executionID)
		return err == nil && exec.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond, "execution %s never finished", executionID)
	return exec
}
