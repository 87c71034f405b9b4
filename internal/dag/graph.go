package dag

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/specialistvlad/superbuild/internal/config"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// Declare registers a subproject as a node. Names must be unique.
func (g *Graph) Declare(sp *config.Subproject) error {
	if sp == nil || sp.Name == "" {
		return &DeclarationError{Reason: "subproject name is empty"}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.frozen {
		return &DeclarationError{Subproject: sp.Name, Reason: "graph is already finalized"}
	}
	if _, ok := g.nodes[sp.Name]; ok {
		return &DeclarationError{Subproject: sp.Name, Reason: "declared more than once"}
	}

	n := &node{index: len(g.order), sp: sp}
	g.nodes[sp.Name] = n
	g.order = append(g.order, n)
	return nil
}

// AddEdge records that `to` depends on `from`. Adding a Build edge where a
// Runtime edge already exists upgrades it; re-adding an edge is a no-op.
func (g *Graph) AddEdge(from, to string, kind EdgeKind) error {
	if kind != Build && kind != Runtime {
		return &DeclarationError{Subproject: to, Reason: fmt.Sprintf("unknown edge kind %d", kind)}
	}
	if from == to {
		return &CycleError{Path: []string{from, to}}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.addEdgeLocked(from, to, kind)
}

func (g *Graph) addEdgeLocked(from, to string, kind EdgeKind) error {
	if g.frozen {
		return &DeclarationError{Subproject: to, Reason: "graph is already finalized"}
	}
	fromNode, ok := g.nodes[from]
	if !ok {
		return &DeclarationError{Subproject: to, Reason: fmt.Sprintf("depends on undeclared subproject %q", from)}
	}
	toNode, ok := g.nodes[to]
	if !ok {
		return &DeclarationError{Subproject: to, Reason: "subproject is not declared"}
	}

	if i, existing := toNode.depKind(from); i >= 0 {
		if existing == Runtime && kind == Build {
			toNode.deps[i].Kind = Build
			for j := range fromNode.dependents {
				if fromNode.dependents[j].Name == to {
					fromNode.dependents[j].Kind = Build
				}
			}
		}
		return nil
	}

	toNode.deps = append(toNode.deps, Edge{Name: from, Kind: kind})
	fromNode.dependents = append(fromNode.dependents, Edge{Name: to, Kind: kind})
	return nil
}

// AddDeclaredEdges wires every build_deps and runtime_deps entry of every
// declared subproject. A toolchain that names a declared subproject is an
// implicit build dependency.
func (g *Graph) AddDeclaredEdges() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for _, n := range g.order {
		name := n.sp.Name
		if tc := n.sp.Toolchain; tc != "" {
			if _, ok := g.nodes[tc]; ok {
				if tc == name {
					return &CycleError{Path: []string{name, name}}
				}
				if err := g.addEdgeLocked(tc, name, Build); err != nil {
					return err
				}
			}
		}
		for _, dep := range n.sp.BuildDeps {
			if dep == name {
				return &CycleError{Path: []string{name, name}}
			}
			if err := g.addEdgeLocked(dep, name, Build); err != nil {
				return err
			}
		}
		for _, dep := range n.sp.RuntimeDeps {
			if dep == name {
				return &CycleError{Path: []string{name, name}}
			}
			if err := g.addEdgeLocked(dep, name, Runtime); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finalize validates the graph and freezes it into a Plan. Cycles over
// either edge kind are rejected with a CycleError naming the full path.
func (g *Graph) Finalize() (*Plan, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.detectCyclesLocked(); err != nil {
		return nil, err
	}

	sorted, err := g.sortLocked()
	if err != nil {
		return nil, err
	}

	g.frozen = true
	plan := &Plan{byName: make(map[string]*Node, len(g.order))}
	for _, n := range sorted {
		pn := &Node{
			Subproject: n.sp,
			Index:      n.index,
			Deps:       slices.Clone(n.deps),
			Dependents: slices.Clone(n.dependents),
		}
		slices.SortStableFunc(pn.Dependents, func(a, b Edge) int {
			return g.nodes[a.Name].index - g.nodes[b.Name].index
		})
		plan.nodes = append(plan.nodes, pn)
		plan.byName[n.sp.Name] = pn
	}
	return plan, nil
}

// sortLocked orders an acyclic graph with gonum's stabilized topological
// sort. The sort runs over the reversed graph (dependent to dependency) with
// nodes and successors visited by declaration index, and the result is
// reversed: each subproject lands right after the dependencies it pulls in,
// and independent subprojects keep their declaration order.
func (g *Graph) sortLocked() ([]*node, error) {
	dg := simple.NewDirectedGraph()
	for _, n := range g.order {
		dg.AddNode(simple.Node(n.index))
	}
	for _, n := range g.order {
		for _, d := range n.deps {
			dg.SetEdge(dg.NewEdge(simple.Node(n.index), simple.Node(g.nodes[d.Name].index)))
		}
	}

	sorted, err := topo.SortStabilized(dg, byDeclaration)
	if err != nil {
		return nil, fmt.Errorf("failed to order subprojects: %w", err)
	}
	out := make([]*node, len(sorted))
	for i, gn := range sorted {
		out[len(sorted)-1-i] = g.order[gn.ID()]
	}
	return out, nil
}

func byDeclaration(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) int { return cmp.Compare(a.ID(), b.ID()) })
}

// detectCyclesLocked finds strongly connected components with gonum and
// reports a path through the one holding the earliest-declared node.
func (g *Graph) detectCyclesLocked() error {
	dg := simple.NewDirectedGraph()
	for _, n := range g.order {
		dg.AddNode(simple.Node(n.index))
	}
	for _, n := range g.order {
		for _, e := range n.dependents {
			dg.SetEdge(dg.NewEdge(simple.Node(n.index), simple.Node(g.nodes[e.Name].index)))
		}
	}

	var cyclic map[int]bool
	start := -1
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		minIdx := -1
		members := make(map[int]bool, len(scc))
		for _, gn := range scc {
			idx := int(gn.ID())
			members[idx] = true
			if minIdx < 0 || idx < minIdx {
				minIdx = idx
			}
		}
		if start < 0 || minIdx < start {
			start, cyclic = minIdx, members
		}
	}
	if start < 0 {
		return nil
	}
	return &CycleError{Path: g.cyclePathLocked(g.order[start], cyclic)}
}

// cyclePathLocked walks dependents inside one component until it returns
// to the start node.
func (g *Graph) cyclePathLocked(start *node, members map[int]bool) []string {
	visited := make(map[int]bool)
	var path []string

	var walk func(n *node) bool
	walk = func(n *node) bool {
		visited[n.index] = true
		path = append(path, n.sp.Name)
		for _, e := range n.dependents {
			next := g.nodes[e.Name]
			if !members[next.index] {
				continue
			}
			if next == start {
				path = append(path, start.sp.Name)
				return true
			}
			if !visited[next.index] && walk(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	walk(start)
	return path
}
