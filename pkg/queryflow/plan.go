package queryflow

// Plan converts a graph into the deterministic node order the engine
// executes. The traversal is a depth-first post-order seeded at the
// query-input node, reversed so that every producer runs before the
// consumers its edges point at.
//
// Plan assumes validation already ran: a graph with no query-input node
// is a precondition violation and returns ErrMissingEntryNode rather
// than a validation result.
//
// Cycles are tolerated: a visited set guarantees no node id appears
// twice, so traversal always terminates. Nodes unreachable from the
// entry node are not planned.
func Plan(g Graph) ([]string, error) {
	entry, ok := g.FirstOfKind(KindQueryInput)
	if !ok {
		return nil, ErrMissingEntryNode
	}

	adj := g.successors()
	visited := make(map[string]bool, len(g.Nodes))
	postorder := make([]string, 0, len(g.Nodes))

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		for _, next := range adj[id] {
			if _, exists := g.Node(next); !exists {
				// Dangling edge target; skip it.
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}
		postorder = append(postorder, id)
	}
	visit(entry.ID)

	order := make([]string, len(postorder))
	for i, id := range postorder {
		order[len(postorder)-1-i] = id
	}
	return order, nil
}
