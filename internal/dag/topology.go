package dag

import "slices"

// Levels returns the build level of every node: 0 for nodes without
// dependencies, otherwise one more than the deepest dependency. Both edge
// kinds count.
func (p *Plan) Levels() map[string]int {
	levels := make(map[string]int, len(p.nodes))
	for _, n := range p.nodes {
		level := 0
		for _, dep := range n.Deps {
			if l := levels[dep.Name] + 1; l > level {
				level = l
			}
		}
		levels[n.Name()] = level
	}
	return levels
}

// CriticalChain returns the longest dependency chain by node count, from
// root to leaf. Ties go to the earliest-declared subproject.
func (p *Plan) CriticalChain() []string {
	if len(p.nodes) == 0 {
		return nil
	}
	length := make(map[string]int, len(p.nodes))
	prev := make(map[string]string, len(p.nodes))

	var best *Node
	for _, n := range p.nodes {
		length[n.Name()] = 1
		var via *Node
		for _, dep := range n.Deps {
			d := p.byName[dep.Name]
			l := length[d.Name()] + 1
			if l > length[n.Name()] || (l == length[n.Name()] && via != nil && d.Index < via.Index) {
				length[n.Name()] = l
				via = d
			}
		}
		if via != nil {
			prev[n.Name()] = via.Name()
		}
		if best == nil || length[n.Name()] > length[best.Name()] ||
			(length[n.Name()] == length[best.Name()] && n.Index < best.Index) {
			best = n
		}
	}

	chain := []string{best.Name()}
	for name := best.Name(); prev[name] != ""; {
		name = prev[name]
		chain = append(chain, name)
	}
	slices.Reverse(chain)
	return chain
}
