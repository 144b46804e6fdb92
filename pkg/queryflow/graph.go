package queryflow

// NodeKind identifies the type of work a node performs.
// The set of kinds is closed: adding a kind means adding a Handler for it.
type NodeKind string

// The supported node kinds.
const (
	KindQueryInput    NodeKind = "query-input"
	KindKnowledgeBase NodeKind = "knowledge-base"
	KindWebSearch     NodeKind = "web-search"
	KindLLMEngine     NodeKind = "llm-engine"
	KindOutput        NodeKind = "output"
)

// Position is the node's canvas placement. Display only; the engine
// never reads it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one typed unit of work in a workflow graph.
//
// Config is a free-form mapping whose recognized keys depend on Kind
// (model, temperature, maxTokens, systemPrompt, apiKey, embeddingModel,
// provider, webSearchEnabled, numResults, format). Read it through
// config.New for typed access with defaults.
type Node struct {
	ID       string         `json:"id"`
	Kind     NodeKind       `json:"type"`
	Config   map[string]any `json:"config,omitempty"`
	Position Position       `json:"position"`
}

// Edge is a directed data-flow relation from Source to Target.
// Handles name the connection points on either end; the engine ignores them.
type Edge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Graph is an immutable snapshot of a workflow graph taken for one
// execution. The owning workflow entity lives outside this package;
// WorkflowID scopes knowledge retrieval to that workflow's documents.
//
// Graph is safe to share between executions: the engine only reads it.
type Graph struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
}

// Node returns the node with the given ID and whether it exists.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// FirstOfKind returns the first declared node of the given kind.
func (g Graph) FirstOfKind(kind NodeKind) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind == kind {
			return n, true
		}
	}
	return Node{}, false
}

// HasKind reports whether any node of the given kind exists.
func (g Graph) HasKind(kind NodeKind) bool {
	_, ok := g.FirstOfKind(kind)
	return ok
}

// successors builds the outgoing adjacency list. Targets keep edge
// declaration order so traversal stays deterministic.
func (g Graph) successors() map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	return adj
}

// reachable reports whether a directed path exists from one node to
// another. Depth-first with a visited set, so cyclic graphs terminate.
func (g Graph) reachable(from, to string) bool {
	if from == to {
		return true
	}
	adj := g.successors()
	visited := make(map[string]bool, len(g.Nodes))
	stack := []string{from}
	visited[from] = true

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[current] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
