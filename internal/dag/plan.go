package dag

import (
	"slices"

	"github.com/specialistvlad/superbuild/internal/config"
)

// Node is a frozen vertex of a Plan.
type Node struct {
	Subproject *config.Subproject
	// Index is the declaration index.
	Index int
	// Deps are in declared order; Dependents in declaration order.
	Deps       []Edge
	Dependents []Edge
}

// Name is the subproject name.
func (n *Node) Name() string { return n.Subproject.Name }

// Plan is an immutable, topologically ordered dependency graph.
type Plan struct {
	nodes  []*Node
	byName map[string]*Node
}

// Len returns the number of nodes.
func (p *Plan) Len() int { return len(p.nodes) }

// Nodes returns the nodes in topological order.
func (p *Plan) Nodes() []*Node { return slices.Clone(p.nodes) }

// Node returns the node for a subproject name.
func (p *Plan) Node(name string) (*Node, bool) {
	n, ok := p.byName[name]
	return n, ok
}

// Order returns subproject names in topological order.
func (p *Plan) Order() []string {
	var names []string
	for _, n := range p.nodes {
		names = append(names, n.Name())
	}
	return names
}

// RuntimeClosure returns the given subprojects plus every subproject
// reachable from them over Runtime edges, in topological order.
func (p *Plan) RuntimeClosure(names ...string) ([]string, error) {
	return p.closure(names, func(e Edge) bool { return e.Kind == Runtime })
}

// DependencyClosure returns the given subprojects plus all of their
// transitive dependencies, in topological order.
func (p *Plan) DependencyClosure(names ...string) ([]string, error) {
	return p.closure(names, func(Edge) bool { return true })
}

func (p *Plan) closure(names []string, follow func(Edge) bool) ([]string, error) {
	seen := make(map[string]bool)
	var walk func(name string)
	walk = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		for _, e := range p.byName[name].Deps {
			if follow(e) {
				walk(e.Name)
			}
		}
	}
	for _, name := range names {
		if _, ok := p.byName[name]; !ok {
			return nil, &DeclarationError{Subproject: name, Reason: "subproject is not declared"}
		}
		walk(name)
	}

	var out []string
	for _, n := range p.nodes {
		if seen[n.Name()] {
			out = append(out, n.Name())
		}
	}
	return out, nil
}

// Restrict returns a plan holding only the named subprojects and their
// transitive dependencies.
func (p *Plan) Restrict(names ...string) (*Plan, error) {
	keep, err := p.DependencyClosure(names...)
	if err != nil {
		return nil, err
	}
	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		kept[name] = true
	}

	out := &Plan{byName: make(map[string]*Node, len(keep))}
	for _, n := range p.nodes {
		if !kept[n.Name()] {
			continue
		}
		cp := *n
		cp.Dependents = slices.DeleteFunc(slices.Clone(n.Dependents), func(e Edge) bool {
			return !kept[e.Name]
		})
		out.nodes = append(out.nodes, &cp)
		out.byName[cp.Name()] = &cp
	}
	return out, nil
}
