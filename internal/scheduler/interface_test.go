package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/specialistvlad/superbuild/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestResolveInterfaces(t *testing.T) {
	plan := buildPlan(t,
		&config.Subproject{
			Name:      "llvm",
			Interface: config.Interface{ProgramDirs: []string{"bin"}, LinkDirs: []string{"lib"}},
			Provides:  map[string]string{"LLVM": "lib/cmake/llvm/LLVMConfig.cmake"},
		},
		&config.Subproject{
			Name:      "comgr",
			BuildDeps: []string{"llvm"},
			Interface: config.Interface{LinkDirs: []string{"lib", "/usr/lib"}},
			Provides: map[string]string{
				"amd_comgr": "lib/cmake/amd_comgr/amd_comgr-config.cmake",
				"LLVM":      "shadowed.cmake",
			},
		},
		&config.Subproject{
			Name:        "hip",
			BuildDeps:   []string{"comgr"},
			RuntimeDeps: []string{"llvm"},
			Interface:   config.Interface{PkgConfigDirs: []string{"lib/pkgconfig"}, LinkDirs: []string{"/usr/lib"}},
		},
	)
	layout := config.Layout{SourceRoot: "/src", BuildRoot: "/b"}
	stage := func(name string) string { return filepath.Join("/b", "gfx90a", "stage", name) }

	got := ResolveInterfaces(plan, layout, "gfx90a")

	llvm := got["llvm"]
	assert.Equal(t, []string{stage("llvm") + "/bin"}, llvm.ProgramDirs)
	assert.Empty(t, llvm.PrefixDirs)

	comgr := got["comgr"]
	assert.Equal(t, []string{stage("comgr") + "/lib", "/usr/lib", stage("llvm") + "/lib"}, comgr.LinkDirs)
	assert.Equal(t, "shadowed.cmake", filepath.Base(comgr.Provides["LLVM"]), "own provides win")

	hip := got["hip"]
	assert.Equal(t, []string{
		"/usr/lib",
		stage("comgr") + "/lib",
		stage("llvm") + "/lib",
	}, hip.LinkDirs, "own entries first, then deps in declared order, deduplicated")
	assert.Equal(t, []string{stage("hip") + "/lib/pkgconfig"}, hip.PkgConfigDirs)
	assert.Equal(t, []string{stage("llvm") + "/bin"}, hip.ProgramDirs)
	assert.Equal(t, []string{stage("comgr"), stage("llvm")}, hip.PrefixDirs)
	assert.Equal(t, stage("comgr")+"/lib/cmake/amd_comgr/amd_comgr-config.cmake", hip.Provides["amd_comgr"])
	assert.Equal(t, stage("comgr")+"/shadowed.cmake", hip.Provides["LLVM"])
	assert.Equal(t, []string{"LLVM", "amd_comgr"}, hip.ProvideOrder)
}
