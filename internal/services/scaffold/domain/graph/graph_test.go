package graph

import (
	"errors"
	"reflect"
	"testing"
)

func chain(ids ...string) []Edge {
	edges := make([]Edge, 0, len(ids)-1)
	for i := 0; i+1 < len(ids); i++ {
		edges = append(edges, Edge{Source: ids[i], Target: ids[i+1]})
	}
	return edges
}

func TestWouldCreateCycleDirect(t *testing.T) {
	g := Build(nil, []Edge{{Source: "a", Target: "b"}})
	if !g.WouldCreateCycle("b", "a") {
		t.Fatal("expected b->a to close a cycle with existing a->b")
	}
	if g.WouldCreateCycle("a", "c") {
		t.Fatal("expected a->c to be acyclic")
	}
}

func TestWouldCreateCycleTransitive(t *testing.T) {
	g := Build(nil, chain("a", "b", "c", "d"))
	if !g.WouldCreateCycle("d", "a") {
		t.Fatal("expected d->a to close a transitive cycle")
	}
	if !g.WouldCreateCycle("c", "b") {
		t.Fatal("expected c->b to close a cycle")
	}
	if g.WouldCreateCycle("a", "d") {
		t.Fatal("a->d only shortens an existing path")
	}
}

func TestWouldCreateCycleSelfReference(t *testing.T) {
	g := Build([]string{"a"}, nil)
	if !g.WouldCreateCycle("a", "a") {
		t.Fatal("expected self reference to count as a cycle")
	}
}

func TestMaxDepthChain(t *testing.T) {
	g := Build(nil, chain("a", "b", "c", "d", "e", "f"))
	depth, err := g.MaxDepth()
	if err != nil {
		t.Fatalf("max depth: %v", err)
	}
	if depth != 5 {
		t.Fatalf("expected depth 5 for six-service chain, got %d", depth)
	}
}

func TestMaxDepthDiamond(t *testing.T) {
	g := Build(nil, []Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
		{Source: "b", Target: "d"},
		{Source: "c", Target: "d"},
	})
	depth, err := g.MaxDepth()
	if err != nil {
		t.Fatalf("max depth: %v", err)
	}
	if depth != 2 {
		t.Fatalf("expected depth 2, got %d", depth)
	}
}

func TestMaxDepthDetectsCycle(t *testing.T) {
	g := Build(nil, []Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
		{Source: "c", Target: "a"},
	})
	if _, err := g.MaxDepth(); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestDepthOf(t *testing.T) {
	g := Build(nil, chain("a", "b", "c"))
	depth, err := g.DepthOf("a")
	if err != nil {
		t.Fatalf("depth of: %v", err)
	}
	if depth != 2 {
		t.Fatalf("expected depth 2 from a, got %d", depth)
	}
	depth, err = g.DepthOf("c")
	if err != nil {
		t.Fatalf("depth of: %v", err)
	}
	if depth != 0 {
		t.Fatalf("expected depth 0 from leaf, got %d", depth)
	}
}

func TestTopologicalOrderDeterministicTieBreak(t *testing.T) {
	// b and c both depend on d and are both ready at the same moment.
	g := Build([]string{"c", "b", "d", "a"}, []Edge{
		{Source: "b", Target: "d"},
		{Source: "c", Target: "d"},
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
	})
	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("topological order: %v", err)
	}
	want := []string{"d", "b", "c", "a"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
}

func TestTopologicalOrderCycle(t *testing.T) {
	g := Build(nil, []Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "a"},
	})
	if _, err := g.TopologicalOrder(); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestDuplicateEdgesCollapse(t *testing.T) {
	g := Build(nil, []Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "b"},
	})
	if got := g.Dependencies("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("expected single dependency, got %v", got)
	}
}

func TestDependents(t *testing.T) {
	g := Build(nil, []Edge{
		{Source: "a", Target: "c"},
		{Source: "b", Target: "c"},
	})
	if got := g.Dependents("c"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", got)
	}
	if got := g.Dependents("a"); got != nil {
		t.Fatalf("expected no dependents, got %v", got)
	}
}

func TestEmptyGraph(t *testing.T) {
	g := Build(nil, nil)
	depth, err := g.MaxDepth()
	if err != nil || depth != 0 {
		t.Fatalf("expected empty graph depth 0, got %d err %v", depth, err)
	}
	order, err := g.TopologicalOrder()
	if err != nil || order != nil {
		t.Fatalf("expected empty order, got %v err %v", order, err)
	}
}
