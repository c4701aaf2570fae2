// Package graph provides pure dependency analysis over service topologies.
//
// The graph is rebuilt per decision from the aggregate's relationships. Nodes
// are service ids; an edge source -> target means source depends on target.
// All operations are deterministic: ties are broken by service id ascending.
package graph

import (
	"errors"
	"sort"
)

// ErrCycle indicates the graph contains a cycle where a DAG was required.
var ErrCycle = errors.New("dependency graph contains a cycle")

// Edge is a directed dependency between two services.
type Edge struct {
	Source string
	Target string
}

// Graph is an adjacency-list view of service dependencies. Service ids are
// interned into dense indices so traversal state lives in flat slices.
type Graph struct {
	ids      []string
	index    map[string]int
	adjacent [][]int
}

// Build constructs a graph from service ids and dependency edges. Edge
// endpoints that are not in ids are added as nodes, so callers may pass only
// the edges when every service participates in at least one relationship.
// Duplicate edges collapse to one.
func Build(serviceIDs []string, edges []Edge) *Graph {
	g := &Graph{index: make(map[string]int, len(serviceIDs))}
	for _, id := range serviceIDs {
		g.intern(id)
	}
	seen := make(map[[2]int]bool, len(edges))
	for _, edge := range edges {
		if edge.Source == "" || edge.Target == "" {
			continue
		}
		from := g.intern(edge.Source)
		to := g.intern(edge.Target)
		key := [2]int{from, to}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.adjacent[from] = append(g.adjacent[from], to)
	}
	return g
}

func (g *Graph) intern(id string) int {
	if at, ok := g.index[id]; ok {
		return at
	}
	at := len(g.ids)
	g.index[id] = at
	g.ids = append(g.ids, id)
	g.adjacent = append(g.adjacent, nil)
	return at
}

// Len returns the number of services in the graph.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.ids)
}

// WouldCreateCycle reports whether adding the edge source -> target would
// close a cycle. The check is a DFS reachability walk from target looking for
// source, O(V+E) with no allocation beyond the visited set.
func (g *Graph) WouldCreateCycle(source, target string) bool {
	if g == nil {
		return false
	}
	if source == target {
		return true
	}
	from, ok := g.index[target]
	if !ok {
		return false
	}
	to, ok := g.index[source]
	if !ok {
		return false
	}

	visited := make([]bool, len(g.ids))
	stack := []int{from}
	for len(stack) > 0 {
		at := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if at == to {
			return true
		}
		if visited[at] {
			continue
		}
		visited[at] = true
		for _, next := range g.adjacent[at] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}

// MaxDepth returns the longest dependency path length in edges. The graph
// must be acyclic; ErrCycle is returned otherwise.
func (g *Graph) MaxDepth() (int, error) {
	if g == nil || len(g.ids) == 0 {
		return 0, nil
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make([]int8, len(g.ids))
	depth := make([]int, len(g.ids))

	var walk func(at int) error
	walk = func(at int) error {
		state[at] = inStack
		best := 0
		for _, next := range g.adjacent[at] {
			switch state[next] {
			case inStack:
				return ErrCycle
			case unvisited:
				if err := walk(next); err != nil {
					return err
				}
			}
			if d := depth[next] + 1; d > best {
				best = d
			}
		}
		depth[at] = best
		state[at] = done
		return nil
	}

	max := 0
	for at := range g.ids {
		if state[at] == unvisited {
			if err := walk(at); err != nil {
				return 0, err
			}
		}
		if depth[at] > max {
			max = depth[at]
		}
	}
	return max, nil
}

// DepthOf returns the longest dependency path starting at the given service.
// Returns 0 for unknown services and ErrCycle for cyclic graphs.
func (g *Graph) DepthOf(serviceID string) (int, error) {
	if g == nil {
		return 0, nil
	}
	at, ok := g.index[serviceID]
	if !ok {
		return 0, nil
	}
	if _, err := g.MaxDepth(); err != nil {
		return 0, err
	}

	// Recompute from the requested node; the graph is small per aggregate.
	memo := make(map[int]int, len(g.ids))
	var walk func(at int) int
	walk = func(at int) int {
		if d, ok := memo[at]; ok {
			return d
		}
		best := 0
		for _, next := range g.adjacent[at] {
			if d := walk(next) + 1; d > best {
				best = d
			}
		}
		memo[at] = best
		return best
	}
	return walk(at), nil
}

// TopologicalOrder returns service ids in dependency order so that every
// service appears after the services it depends on. Ready services are
// released in id-ascending order, which makes the result deterministic.
// Returns ErrCycle when the graph is not a DAG.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if g == nil || len(g.ids) == 0 {
		return nil, nil
	}

	// Kahn's algorithm over reversed edges: a service is ready once all of
	// its dependencies are placed.
	dependents := make([][]int, len(g.ids))
	pending := make([]int, len(g.ids))
	for from, targets := range g.adjacent {
		pending[from] = len(targets)
		for _, to := range targets {
			dependents[to] = append(dependents[to], from)
		}
	}

	ready := make([]int, 0, len(g.ids))
	for at, count := range pending {
		if count == 0 {
			ready = append(ready, at)
		}
	}

	order := make([]string, 0, len(g.ids))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return g.ids[ready[i]] < g.ids[ready[j]] })
		at := ready[0]
		ready = ready[1:]
		order = append(order, g.ids[at])
		for _, dependent := range dependents[at] {
			pending[dependent]--
			if pending[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	if len(order) != len(g.ids) {
		return nil, ErrCycle
	}
	return order, nil
}

// Dependencies returns the ids a service directly depends on, id-ascending.
func (g *Graph) Dependencies(serviceID string) []string {
	if g == nil {
		return nil
	}
	at, ok := g.index[serviceID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.adjacent[at]))
	for _, next := range g.adjacent[at] {
		out = append(out, g.ids[next])
	}
	sort.Strings(out)
	return out
}

// Dependents returns the ids of services that directly depend on the given
// service, id-ascending.
func (g *Graph) Dependents(serviceID string) []string {
	if g == nil {
		return nil
	}
	to, ok := g.index[serviceID]
	if !ok {
		return nil
	}
	var out []string
	for from, targets := range g.adjacent {
		for _, target := range targets {
			if target == to {
				out = append(out, g.ids[from])
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
