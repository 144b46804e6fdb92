package queryflow

import "fmt"

// ValidationResult reports structural problems with a graph.
// Errors block execution; warnings do not.
type ValidationResult struct {
	Valid    bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// requiredPaths are the ordered node-kind pairs that must be connected
// by a directed path for the graph to execute.
var requiredPaths = [][2]NodeKind{
	{KindQueryInput, KindLLMEngine},
	{KindLLMEngine, KindOutput},
}

// Validate checks a graph for the presence of required node kinds and
// the required connectivity between them. It never panics on malformed
// input; every problem comes back as an error or warning string.
//
// Errors: missing query-input, llm-engine, or output node; a missing
// directed path for one of the required pairs. Warnings: an llm-engine
// node with no model selected; a knowledge-base node with no document
// source configured; a cycle reachable from the entry node.
func Validate(g Graph) ValidationResult {
	res := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	for _, kind := range []NodeKind{KindQueryInput, KindLLMEngine, KindOutput} {
		if !g.HasKind(kind) {
			res.Errors = append(res.Errors, fmt.Sprintf("workflow must contain a %s node", kind))
		}
	}

	// Connectivity only makes sense once both endpoints exist.
	for _, pair := range requiredPaths {
		from, okFrom := g.FirstOfKind(pair[0])
		to, okTo := g.FirstOfKind(pair[1])
		if !okFrom || !okTo {
			continue
		}
		if !g.reachable(from.ID, to.ID) {
			res.Errors = append(res.Errors, fmt.Sprintf("no path connects %s to %s", pair[0], pair[1]))
		}
	}

	for _, n := range g.Nodes {
		switch n.Kind {
		case KindLLMEngine:
			if stringConfig(n.Config, "model") == "" {
				res.Warnings = append(res.Warnings, fmt.Sprintf("llm-engine node %s has no model selected", n.ID))
			}
		case KindKnowledgeBase:
			if !hasAnyConfig(n.Config, "documents", "sources", "workflowId") {
				res.Warnings = append(res.Warnings, fmt.Sprintf("knowledge-base node %s has no document source configured", n.ID))
			}
		}
	}

	if entry, ok := g.FirstOfKind(KindQueryInput); ok && g.hasCycleFrom(entry.ID) {
		res.Warnings = append(res.Warnings, "graph contains a cycle; revisited nodes execute once")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// hasCycleFrom detects a cycle among nodes reachable from start using
// the standard white/grey/black coloring.
func (g Graph) hasCycleFrom(start string) bool {
	adj := g.successors()
	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.Nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		for _, next := range adj[id] {
			switch color[next] {
			case grey:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	return visit(start)
}

// stringConfig reads a string key from a raw config map without
// pulling in the config package (validation must not fail on shape).
func stringConfig(cfg map[string]any, key string) string {
	if cfg == nil {
		return ""
	}
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return ""
}

func hasAnyConfig(cfg map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := cfg[key]; ok {
			return true
		}
	}
	return false
}
