// SPDX-License-Identifier: MPL-2.0

// Package dag provides dependency ordering for named nodes. It is used to order
// bundle descriptors by their "load after" constraints and to order plugins by
// their package dependencies.
//
// The sort is a breadth-wave topological sort: every pass appends all nodes
// whose known requirements are already ordered. Requirements that name nodes
// outside the graph are treated as satisfied.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnresolvable is the sentinel error wrapped by UnresolvableError.
var ErrUnresolvable = errors.New("dependency order could not be resolved")

type (
	// UnresolvableError indicates that the remaining nodes require each other
	// in a way no order can satisfy (a cycle, possibly a self-edge).
	UnresolvableError struct {
		// Remaining lists the nodes that could not be ordered, in graph order.
		Remaining []string
		// Requires maps each remaining node to its requirements.
		Requires map[string][]string
	}

	// Graph is an insertion-ordered set of nodes with requirements.
	// Requirements are "must come before" relationships: if A requires B and
	// B is a node of the graph, B is ordered before A.
	Graph struct {
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// requires maps each node to its deduplicated requirements.
		requires map[string][]string
	}
)

func (e *UnresolvableError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrUnresolvable.Error())
	sb.WriteString(":")
	for _, name := range e.Remaining {
		fmt.Fprintf(&sb, "\n  %s -> [%s]", name, strings.Join(e.Requires[name], ", "))
	}
	return sb.String()
}

// Unwrap returns ErrUnresolvable for errors.Is() compatibility.
func (e *UnresolvableError) Unwrap() error { return ErrUnresolvable }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		requires: make(map[string][]string),
	}
}

// AddNode adds a node with its requirements. Adding an existing node keeps its
// original position and unions the new requirements into the existing ones.
func (g *Graph) AddNode(name string, requires ...string) {
	existing, ok := g.requires[name]
	if !ok {
		g.nodes = append(g.nodes, name)
		existing = []string{}
	}
	for _, r := range requires {
		if !slices.Contains(existing, r) {
			existing = append(existing, r)
		}
	}
	g.requires[name] = existing
}

// Nodes returns the node names in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Requires returns the requirements of a node, or nil if it is unknown.
func (g *Graph) Requires(name string) []string {
	return slices.Clone(g.requires[name])
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// TopologicalSort returns every node exactly once such that each node comes
// after all of its requirements that are themselves nodes of the graph.
// Ties are broken by insertion order. Returns UnresolvableError if a pass over
// the remaining nodes makes no progress.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	available := make(map[string]bool, len(g.nodes))
	for _, node := range g.nodes {
		available[node] = true
	}

	ordered := make([]string, 0, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))
	remaining := slices.Clone(g.nodes)

	for len(remaining) > 0 {
		next := remaining[:0:0]
		for _, node := range remaining {
			if g.ready(node, available, done) {
				ordered = append(ordered, node)
				done[node] = true
				continue
			}
			next = append(next, node)
		}

		if len(next) == len(remaining) {
			unresolved := make(map[string][]string, len(next))
			for _, node := range next {
				unresolved[node] = slices.Clone(g.requires[node])
			}
			return nil, &UnresolvableError{Remaining: next, Requires: unresolved}
		}
		remaining = next
	}

	return ordered, nil
}

// ready reports whether every known requirement of node is already ordered.
func (g *Graph) ready(node string, available, done map[string]bool) bool {
	for _, r := range g.requires[node] {
		if available[r] && !done[r] {
			return false
		}
	}
	return true
}
