package scheduler

import (
	"maps"
	"path/filepath"
	"slices"

	"github.com/specialistvlad/superbuild/internal/config"
	"github.com/specialistvlad/superbuild/internal/dag"
)

// ResolvedInterface is the directory set a subproject builds against: its
// own exported directories followed by everything its dependencies export.
// All paths are absolute or relative to the working directory, never to a
// stage dir.
type ResolvedInterface struct {
	LinkDirs         []string
	InstallRPathDirs []string
	ProgramDirs      []string
	PkgConfigDirs    []string
	// PrefixDirs are the stage dirs of the subproject's dependencies.
	PrefixDirs []string
	// Provides maps a package name to its config file.
	Provides map[string]string
	// ProvideOrder lists Provides keys in resolution order.
	ProvideOrder []string
}

// ResolveInterfaces computes the resolved interface of every node of the
// plan for one target. Deps are merged in declared order and duplicates are
// dropped, keeping the first occurrence. For provides the first provider of
// a package wins.
func ResolveInterfaces(plan *dag.Plan, layout config.Layout, target string) map[string]*ResolvedInterface {
	out := make(map[string]*ResolvedInterface, plan.Len())
	for _, n := range plan.Nodes() {
		sp := n.Subproject
		stage := layout.StageDir(target, sp)
		ri := &ResolvedInterface{Provides: make(map[string]string)}

		ri.LinkDirs = underDir(stage, sp.Interface.LinkDirs)
		ri.InstallRPathDirs = underDir(stage, sp.Interface.InstallRPathDirs)
		ri.ProgramDirs = underDir(stage, sp.Interface.ProgramDirs)
		ri.PkgConfigDirs = underDir(stage, sp.Interface.PkgConfigDirs)
		for _, pkg := range slices.Sorted(maps.Keys(sp.Provides)) {
			ri.addProvide(pkg, resolveUnder(stage, sp.Provides[pkg]))
		}

		for _, dep := range n.Deps {
			d := out[dep.Name]
			depNode, _ := plan.Node(dep.Name)
			ri.PrefixDirs = append(ri.PrefixDirs, layout.StageDir(target, depNode.Subproject))
			ri.PrefixDirs = append(ri.PrefixDirs, d.PrefixDirs...)
			ri.LinkDirs = append(ri.LinkDirs, d.LinkDirs...)
			ri.InstallRPathDirs = append(ri.InstallRPathDirs, d.InstallRPathDirs...)
			ri.ProgramDirs = append(ri.ProgramDirs, d.ProgramDirs...)
			ri.PkgConfigDirs = append(ri.PkgConfigDirs, d.PkgConfigDirs...)
			for _, pkg := range d.ProvideOrder {
				ri.addProvide(pkg, d.Provides[pkg])
			}
		}

		ri.LinkDirs = dedupe(ri.LinkDirs)
		ri.InstallRPathDirs = dedupe(ri.InstallRPathDirs)
		ri.ProgramDirs = dedupe(ri.ProgramDirs)
		ri.PkgConfigDirs = dedupe(ri.PkgConfigDirs)
		ri.PrefixDirs = dedupe(ri.PrefixDirs)
		out[sp.Name] = ri
	}
	return out
}

func (ri *ResolvedInterface) addProvide(pkg, path string) {
	if _, ok := ri.Provides[pkg]; ok {
		return
	}
	ri.Provides[pkg] = path
	ri.ProvideOrder = append(ri.ProvideOrder, pkg)
}

func underDir(dir string, rel []string) []string {
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		out = append(out, resolveUnder(dir, r))
	}
	return out
}

func resolveUnder(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
