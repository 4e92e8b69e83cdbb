// Package dag provides a dependency-graph view over a compiled graph:
// cycle detection, deterministic topological ordering, and execution levels
// for downstream consumers that schedule actions.
package dag

import (
	"fmt"
	"sort"

	"github.com/db-magnus/dataform/pkg/core"
)

// Node is one action in the dependency graph.
type Node struct {
	// ID is the action name.
	ID string
	// Action is the underlying compiled action. Placeholder nodes created
	// for dependencies the graph never defines carry a synthetic
	// declaration action.
	Action *core.Action
}

// Graph is a directed acyclic dependency graph of compiled actions. Edges
// point from a dependency to its dependents.
type Graph struct {
	nodes    map[string]*Node
	children map[string][]string
	parents  map[string][]string
}

// FromGraph builds the dependency graph of a compiled graph. References to
// actions the graph does not define become declaration placeholders, so a
// graph that depends on pre-existing warehouse tables still sorts cleanly.
func FromGraph(g *core.CompiledGraph) (*Graph, error) {
	d := &Graph{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}

	for _, a := range g.Actions {
		if _, dup := d.nodes[a.Name]; dup {
			return nil, fmt.Errorf("duplicate action name %q", a.Name)
		}
		d.add(a.Name, a)
	}
	for _, a := range g.Actions {
		for _, dep := range a.Dependencies {
			if dep == a.Name {
				return nil, fmt.Errorf("action %q depends on itself", a.Name)
			}
			if _, ok := d.nodes[dep]; !ok {
				d.add(dep, &core.Action{Name: dep, Type: core.ActionDeclaration})
			}
			d.link(dep, a.Name)
		}
	}
	return d, nil
}

func (g *Graph) add(id string, a *core.Action) {
	if _, ok := g.nodes[id]; ok {
		g.nodes[id].Action = a
		return
	}
	g.nodes[id] = &Node{ID: id, Action: a}
	g.children[id] = nil
	g.parents[id] = nil
}

func (g *Graph) link(parentID, childID string) {
	for _, c := range g.children[parentID] {
		if c == childID {
			return
		}
	}
	g.children[parentID] = append(g.children[parentID], childID)
	g.parents[childID] = append(g.parents[childID], parentID)
}

// Parents returns the dependencies of a node.
func (g *Graph) Parents(id string) []string { return g.parents[id] }

// Children returns the dependents of a node.
func (g *Graph) Children(id string) []string { return g.children[id] }

// NodeCount returns the number of nodes, placeholders included.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of dependency edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, c := range g.children {
		n += len(c)
	}
	return n
}

// HasCycle reports whether the graph contains a dependency cycle, along
// with one offending path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	cameFrom := make(map[string]string)

	var cycle []string
	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, child := range g.children[id] {
			if !visited[child] {
				cameFrom[child] = id
				if visit(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for cur := id; cur != child; cur = cameFrom[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] {
			if visit(id) {
				return true, cycle
			}
		}
	}
	return false, nil
}

// TopologicalSort returns the nodes with every dependency before its
// dependents, deterministically. It fails if the graph has a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if cyclic, path := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("dependency cycle detected: %v", path)
	}

	visited := make(map[string]bool)
	var ordered []*Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parent := range g.parents[id] {
			visit(parent)
		}
		ordered = append(ordered, g.nodes[id])
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return ordered, nil
}

// ExecutionLevels groups node IDs by execution level: level 0 has no
// dependencies, and every node at level N waits only on levels below N.
func (g *Graph) ExecutionLevels() ([][]string, error) {
	if cyclic, path := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("dependency cycle detected: %v", path)
	}

	level := make(map[string]int)
	var levelOf func(id string) int
	levelOf = func(id string) int {
		if l, ok := level[id]; ok {
			return l
		}
		l := 0
		for _, parent := range g.parents[id] {
			if pl := levelOf(parent) + 1; pl > l {
				l = pl
			}
		}
		level[id] = l
		return l
	}

	max := 0
	for id := range g.nodes {
		if l := levelOf(id); l > max {
			max = l
		}
	}

	levels := make([][]string, max+1)
	for id, l := range level {
		levels[l] = append(levels[l], id)
	}
	for _, ids := range levels {
		sort.Strings(ids)
	}
	return levels, nil
}

// Roots returns the IDs of nodes with no dependencies.
func (g *Graph) Roots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns the IDs of nodes with no dependents.
func (g *Graph) Leaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.children[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
