package engine

// Three-color DFS over dependency edges. Gray marks the current DFS path;
// an edge into a gray node is a back edge, i.e. a cycle. Runs once before
// any dispatch, so a positive result means zero node bodies ran.

type dfsColor int

const (
	colorWhite dfsColor = iota
	colorGray
	colorBlack
)

// detectCycle reports whether the graph has a cycle and, when it does, one
// offending path (recipe names, in dependency order) for the error message.
func (g *graph) detectCycle() (bool, []string) {
	colors := make([]dfsColor, len(g.nodes))

	type dfsFrame struct {
		idx  int
		next int
	}

	for start := range g.nodes {
		if colors[start] != colorWhite {
			continue
		}
		stack := []dfsFrame{{idx: start}}
		colors[start] = colorGray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			n := g.nodes[top.idx]
			if top.next < len(n.deps) {
				dep := n.deps[top.next]
				top.next++
				switch colors[dep] {
				case colorWhite:
					colors[dep] = colorGray
					stack = append(stack, dfsFrame{idx: dep})
				case colorGray:
					// Back edge: slice out the cycle from the DFS path.
					var path []string
					seen := false
					for _, f := range stack {
						if f.idx == dep {
							seen = true
						}
						if seen {
							path = append(path, g.nodes[f.idx].recipe.Name)
						}
					}
					path = append(path, g.nodes[dep].recipe.Name)
					return true, path
				}
				continue
			}
			colors[top.idx] = colorBlack
			stack = stack[:len(stack)-1]
		}
	}
	return false, nil
}
