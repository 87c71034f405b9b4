package app

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
)

// Graph prints the topological order with each subproject's level and
// dependencies, followed by the critical chain.
func (a *App) Graph() error {
	if err := a.requireLoaded(); err != nil {
		return err
	}
	levels := a.plan.Levels()

	t := tabby.NewCustom(tabwriter.NewWriter(a.outW, 0, 0, 2, ' ', 0))
	t.AddHeader("SUBPROJECT", "LEVEL", "BUILD DEPS", "RUNTIME DEPS", "BACKGROUND")
	for _, n := range a.plan.Nodes() {
		sp := n.Subproject
		t.AddLine(n.Name(), levels[n.Name()], joinOrDash(sp.BuildDeps), joinOrDash(sp.RuntimeDeps), sp.Background)
	}
	t.Print()

	chain := a.plan.CriticalChain()
	fmt.Fprintf(a.outW, "\ncritical chain (%d): %s\n", len(chain), strings.Join(chain, " -> "))
	return nil
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
