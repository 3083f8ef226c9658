// File: internal/engine/graph.go
// Brief: Recipe graph construction and parallelism stats.

package engine

import (
	"sort"

	"github.com/example/jake/internal/recipe"
)

type nodeState int

const (
	statePending nodeState = iota
	stateReady
	stateRunning
	stateCompleted
	stateFailed
)

func (s nodeState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateReady:
		return "ready"
	case stateRunning:
		return "running"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// node is one recipe's scheduling record. State and inDegree are mutated
// only while holding the scheduler lock.
type node struct {
	recipe     *recipe.Recipe
	deps       []int
	dependents []int
	inDegree   int
	state      nodeState
}

// graph is an arena-indexed node table over the reachable closure of a target.
type graph struct {
	nodes []*node
	index map[string]int
}

// buildGraph resolves target and its transitive dependencies into graph
// nodes, deduplicating by name so diamond dependencies run once. Any name
// missing from the set fails the whole build; no partial graph is returned.
func buildGraph(set *recipe.Set, target string) (*graph, error) {
	g := &graph{index: map[string]int{}}

	// Iterative worklist instead of call-stack recursion: cycles in the
	// input must not overflow the stack, and cycle detection is a separate
	// pass so construction stays total on malformed input.
	add := func(name string) (int, error) {
		if idx, ok := g.index[name]; ok {
			return idx, nil
		}
		r, ok := set.Lookup(name)
		if !ok {
			return 0, notFoundErr(name)
		}
		idx := len(g.nodes)
		g.nodes = append(g.nodes, &node{recipe: r})
		g.index[name] = idx
		return idx, nil
	}

	rootIdx, err := add(target)
	if err != nil {
		return nil, err
	}
	work := []int{rootIdx}
	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]
		n := g.nodes[idx]
		if n.deps != nil {
			continue
		}
		n.deps = make([]int, 0, len(n.recipe.Deps))
		for _, depName := range n.recipe.Deps {
			known := true
			if _, ok := g.index[depName]; !ok {
				known = false
			}
			depIdx, err := add(depName)
			if err != nil {
				return nil, err
			}
			n.deps = append(n.deps, depIdx)
			g.nodes[depIdx].dependents = append(g.nodes[depIdx].dependents, idx)
			if !known {
				work = append(work, depIdx)
			}
		}
	}

	for _, n := range g.nodes {
		n.inDegree = len(n.deps)
		if n.inDegree == 0 {
			n.state = stateReady
		}
	}
	return g, nil
}

// readyIndices returns the current zero-in-degree nodes, name-sorted for the
// deterministic sequential path.
func (g *graph) readyIndices() []int {
	var out []int
	for i, n := range g.nodes {
		if n.state == stateReady {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return g.nodes[out[i]].recipe.Name < g.nodes[out[j]].recipe.Name
	})
	return out
}

// Stats describe the graph's parallelism shape.
type Stats struct {
	Nodes              int
	MaxParallel        int
	CriticalPathLength int
}

// stats computes Kahn waves over a scratch copy of in-degrees: the widest
// wave bounds useful parallelism, the wave count is the critical path length.
func (g *graph) stats() Stats {
	s := Stats{Nodes: len(g.nodes)}
	inDeg := make([]int, len(g.nodes))
	var wave []int
	for i, n := range g.nodes {
		inDeg[i] = len(n.deps)
		if inDeg[i] == 0 {
			wave = append(wave, i)
		}
	}
	for len(wave) > 0 {
		s.CriticalPathLength++
		if len(wave) > s.MaxParallel {
			s.MaxParallel = len(wave)
		}
		var next []int
		for _, idx := range wave {
			for _, depIdx := range g.nodes[idx].dependents {
				inDeg[depIdx]--
				if inDeg[depIdx] == 0 {
					next = append(next, depIdx)
				}
			}
		}
		wave = next
	}
	return s
}

// Edges returns dependency edges as recipe name pairs, sorted, for reporting.
func (g *graph) edges() [][2]string {
	var out [][2]string
	for _, n := range g.nodes {
		for _, depIdx := range n.deps {
			out = append(out, [2]string{n.recipe.Name, g.nodes[depIdx].recipe.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
