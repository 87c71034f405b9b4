package dag

import (
	"sync"

	"github.com/specialistvlad/superbuild/internal/config"
)

// EdgeKind distinguishes build-time from runtime dependencies.
type EdgeKind int

const (
	// Runtime edges gate packaging only.
	Runtime EdgeKind = iota + 1
	// Build edges gate configuration of the dependent.
	Build
)

func (k EdgeKind) String() string {
	switch k {
	case Build:
		return "build"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Edge is one dependency of a node, seen from the dependent side, or one
// dependent, seen from the dependency side.
type Edge struct {
	Name string
	Kind EdgeKind
}

// Graph is a collection of declared subprojects and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	// order keeps declaration order; a node's index is its position here.
	order  []*node
	frozen bool
}

type node struct {
	index int
	sp    *config.Subproject
	// deps are kept in the order the edges were added.
	deps       []Edge
	dependents []Edge
}

func (n *node) depKind(name string) (int, EdgeKind) {
	for i, e := range n.deps {
		if e.Name == name {
			return i, e.Kind
		}
	}
	return -1, 0
}
