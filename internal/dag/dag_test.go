// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_SingleNode(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A"}) {
		t.Errorf("expected [A], got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// C requires B, B requires A; inserted in reverse.
	g.AddNode("C", "B")
	g.AddNode("B", "A")
	g.AddNode("A")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"A", "B", "C"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_ReadyWithinSamePass(t *testing.T) {
	t.Parallel()
	g := New()
	// B becomes ready as soon as A is appended earlier in the same pass.
	g.AddNode("A")
	g.AddNode("B", "A")
	g.AddNode("C")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A", "B", "C"}) {
		t.Errorf("expected [A B C], got %v", order)
	}
}

func TestTopologicalSort_TiesFollowInsertionOrder(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("zeta")
	g.AddNode("alpha")
	g.AddNode("mid", "zeta", "alpha")
	g.AddNode("beta")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"zeta", "alpha", "mid", "beta"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("D", "B", "C")
	g.AddNode("B", "A")
	g.AddNode("C", "A")
	g.AddNode("A")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order[0] != "A" {
		t.Errorf("expected A first, got %v", order)
	}
	if order[len(order)-1] != "D" {
		t.Errorf("expected D last, got %v", order)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes, got %d: %v", len(order), order)
	}
}

func TestTopologicalSort_UnknownRequirementsAreSatisfied(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("B", "A", "external")
	g.AddNode("A", "also-external")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", order)
	}
}

func TestTopologicalSort_SimpleCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A", "B")
	g.AddNode("B", "A")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected unresolvable error, got nil")
	}
	if !errors.Is(err, ErrUnresolvable) {
		t.Errorf("expected errors.Is(err, ErrUnresolvable), got %v", err)
	}
	var unresolvable *UnresolvableError
	if !errors.As(err, &unresolvable) {
		t.Fatalf("expected *UnresolvableError, got %T: %v", err, err)
	}
	if !slices.Equal(unresolvable.Remaining, []string{"A", "B"}) {
		t.Errorf("expected remaining [A B], got %v", unresolvable.Remaining)
	}
	if !slices.Equal(unresolvable.Requires["A"], []string{"B"}) {
		t.Errorf("expected A -> [B], got %v", unresolvable.Requires["A"])
	}
}

func TestTopologicalSort_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A", "A")

	_, err := g.TopologicalSort()
	var unresolvable *UnresolvableError
	if !errors.As(err, &unresolvable) {
		t.Fatalf("expected *UnresolvableError, got %T: %v", err, err)
	}
}

func TestTopologicalSort_CycleReportsOnlyStuckNodes(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("root")
	g.AddNode("A", "root", "C")
	g.AddNode("B", "A")
	g.AddNode("C", "B")
	g.AddNode("leaf", "root")

	_, err := g.TopologicalSort()
	var unresolvable *UnresolvableError
	if !errors.As(err, &unresolvable) {
		t.Fatalf("expected *UnresolvableError, got %T: %v", err, err)
	}
	if !slices.Equal(unresolvable.Remaining, []string{"A", "B", "C"}) {
		t.Errorf("expected remaining [A B C], got %v", unresolvable.Remaining)
	}
	if _, ok := unresolvable.Requires["root"]; ok {
		t.Errorf("resolved node root must not be reported: %v", unresolvable.Requires)
	}
}

func TestAddNode_UnionsRequirements(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A", "x")
	g.AddNode("B")
	g.AddNode("A", "y", "x")

	if g.Len() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.Len())
	}
	if !slices.Equal(g.Nodes(), []string{"A", "B"}) {
		t.Errorf("expected first position kept, got %v", g.Nodes())
	}
	if !slices.Equal(g.Requires("A"), []string{"x", "y"}) {
		t.Errorf("expected [x y], got %v", g.Requires("A"))
	}
	if g.Requires("missing") != nil {
		t.Errorf("expected nil requirements for unknown node")
	}
}

func TestUnresolvableError_Message(t *testing.T) {
	t.Parallel()
	err := &UnresolvableError{
		Remaining: []string{"A", "B"},
		Requires:  map[string][]string{"A": {"B"}, "B": {"A", "x"}},
	}
	expected := "dependency order could not be resolved:\n  A -> [B]\n  B -> [A, x]"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
