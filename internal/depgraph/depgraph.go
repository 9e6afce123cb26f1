// Package depgraph implements the Dependency Graph (spec.md §4.E): a
// directed graph of `former`-edges between entities, topologically sorted
// by Kahn's algorithm with deterministic tie-breaking.
package depgraph

import (
	"container/heap"
	"fmt"
	"sort"

	"typedown/internal/diag"
)

// CycleError reports that the graph is not a DAG; Cycle is the offending
// path of ids, matching spec.md §4.E's `details.cycle` contract.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %v", e.Cycle)
}

// Graph is a directed graph over entity ids.
type Graph struct {
	nodes map[string]struct{}
	edges map[string][]string // from -> [to]
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]struct{}), edges: make(map[string][]string)}
}

// AddNode ensures id participates in the graph even if it has no edges —
// an entity with no `former` field still needs a slot in the topological
// order.
func (g *Graph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// AddEdge records a `former`-edge from -> to (from "comes after" to in
// resolution order: to must be resolved before from).
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.edges[from] = append(g.edges[from], to)
}

// idHeap is a min-heap of node ids, used so Kahn's algorithm always picks
// the lexicographically smallest ready node — the deterministic tie-break
// spec.md §5 requires.
type idHeap []string

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(string)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// TopologicalSort computes a dependency-respecting order: every `to` in a
// `from -> to` edge appears before `from`. Ties among simultaneously-ready
// nodes are broken by ascending id string. Returns a CycleError (wrapped so
// errors.As(&CycleError{}) works) if the graph is not a DAG.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for n := range g.nodes {
		inDegree[n] = 0
	}
	// An edge from -> to means "from" depends on "to" being resolved
	// first, so in Kahn's algorithm we track how many unresolved
	// dependencies each node still has: inDegree counts outgoing
	// dependency edges remaining.
	for from, tos := range g.edges {
		inDegree[from] += len(tos)
		_ = tos
	}

	// reverse adjacency: to -> [from, from, ...], used to decrement
	// dependents' counts once `to` is emitted.
	dependents := make(map[string][]string)
	for from, tos := range g.edges {
		for _, to := range tos {
			dependents[to] = append(dependents[to], from)
		}
	}

	ready := &idHeap{}
	for n, deg := range inDegree {
		if deg == 0 {
			heap.Push(ready, n)
		}
	}
	heap.Init(ready)

	order := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(string)
		order = append(order, n)
		for _, dependent := range dependents[n] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, &CycleError{Cycle: remainingCycle(g, inDegree)}
	}
	return order, nil
}

// remainingCycle traces one concrete cycle path through the nodes still
// holding a positive in-degree after Kahn's algorithm stalls. It walks
// the stalled subgraph via DFS, starting from the lexicographically
// smallest stalled node for determinism, and returns the path from the
// first repeated node back to itself (e.g. ["A", "B", "A"]).
func remainingCycle(g *Graph, inDegree map[string]int) []string {
	stuck := make(map[string]bool, len(inDegree))
	for n, deg := range inDegree {
		if deg > 0 {
			stuck[n] = true
		}
	}
	if len(stuck) == 0 {
		return nil
	}

	starts := make([]string, 0, len(stuck))
	for n := range stuck {
		starts = append(starts, n)
	}
	sort.Strings(starts)

	visited := make(map[string]bool, len(stuck))
	onStack := make(map[string]int, len(stuck))
	var path []string

	var dfs func(n string) []string
	dfs = func(n string) []string {
		visited[n] = true
		onStack[n] = len(path)
		path = append(path, n)

		edges := append([]string(nil), g.edges[n]...)
		sort.Strings(edges)
		for _, to := range edges {
			if !stuck[to] {
				continue
			}
			if idx, onPath := onStack[to]; onPath {
				cyc := append([]string(nil), path[idx:]...)
				return append(cyc, to)
			}
			if !visited[to] {
				if found := dfs(to); found != nil {
					return found
				}
			}
		}

		delete(onStack, n)
		path = path[:len(path)-1]
		return nil
	}

	for _, start := range starts {
		if visited[start] {
			continue
		}
		if cyc := dfs(start); cyc != nil {
			return cyc
		}
	}

	// Every stalled node should lie on some cycle; this is an
	// unreachable fallback kept only so the function always returns
	// something diagnosable.
	return starts
}

// Diagnostic builds the E0342 diagnostic for a CycleError.
func Diagnostic(err *CycleError) diag.Diagnostic {
	return diag.New(diag.EDependencyCycle, diag.LevelError,
		fmt.Sprintf("dependency cycle detected: %v", err.Cycle), nil,
		map[string]interface{}{"cycle": err.Cycle})
}
