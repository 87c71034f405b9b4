package packager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/superbuild/internal/archive"
	"github.com/specialistvlad/superbuild/internal/config"
	"github.com/specialistvlad/superbuild/internal/dag"
	"github.com/specialistvlad/superbuild/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateMap map[string]scheduler.State

func (m stateMap) State(name string) (scheduler.State, bool) {
	st, ok := m[name]
	return st, ok
}

func allComplete(names ...string) StateLookup {
	m := stateMap{}
	for _, n := range names {
		m[n] = scheduler.Complete
	}
	return func(string) (scheduler.StateSource, error) { return m, nil }
}

type fixture struct {
	layout config.Layout
	plan   *dag.Plan
	out    string
}

func newFixture(t *testing.T, decls ...*config.Subproject) *fixture {
	t.Helper()
	root := t.TempDir()
	plan, err := dag.BuildPlan(context.Background(), &config.Model{Subprojects: decls})
	require.NoError(t, err)
	return &fixture{
		layout: config.Layout{SourceRoot: filepath.Join(root, "src"), BuildRoot: filepath.Join(root, "build")},
		plan:   plan,
		out:    filepath.Join(root, "dist"),
	}
}

func (f *fixture) install(t *testing.T, target, subproject string, files ...string) {
	t.Helper()
	node, ok := f.plan.Node(subproject)
	require.True(t, ok)
	stage := f.layout.StageDir(target, node.Subproject)
	for _, rel := range files {
		p := filepath.Join(stage, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(subproject+":"+rel), 0o644))
	}
}

func coreArtifact() *config.Artifact {
	return &config.Artifact{
		Name:        "core",
		Subprojects: []string{"zlib", "hip"},
		Components: []*config.ComponentRule{
			{Name: "run"},
			{Name: "lib"},
			{Name: "dev", Exclude: []string{"include/internal/**"}, ForceInclude: []string{"include/internal/public.h"}},
		},
	}
}

func TestPackage(t *testing.T) {
	f := newFixture(t,
		&config.Subproject{Name: "zlib"},
		&config.Subproject{Name: "hip", BuildDeps: []string{"zlib"}},
	)
	f.install(t, "gfx942", "zlib", "lib/libz.so", "include/zlib.h", "share/man/man3/zlib.3")
	f.install(t, "gfx942", "hip", "lib/libamdhip64.so", "bin/hipcc",
		"include/hip/hip.h", "include/internal/private.h", "include/internal/public.h")

	p := New(f.plan, f.layout)
	res, err := p.Package(context.Background(), coreArtifact(), Request{
		Targets: []string{"gfx942"},
		OutDir:  f.out,
		Format:  archive.FormatGzip,
		Hash:    archive.HashSHA256,
		States:  allComplete("zlib", "hip"),
	})
	require.NoError(t, err)
	require.Len(t, res.Outputs, 3)

	byComp := map[string]Output{}
	for _, o := range res.Outputs {
		assert.Equal(t, "gfx942", o.Target)
		byComp[o.Component] = o
	}
	assert.Equal(t, []string{"include/hip/hip.h", "include/internal/public.h", "include/zlib.h"}, byComp["dev"].Files)
	assert.Equal(t, []string{"lib/libamdhip64.so", "lib/libz.so"}, byComp["lib"].Files)
	assert.Equal(t, []string{"bin/hipcc"}, byComp["run"].Files)

	dev := byComp["dev"]
	assert.Equal(t, filepath.Join(f.out, "core_dev_gfx942"), dev.Dir)
	manifest, err := ReadManifest(filepath.Join(dev.Dir, ManifestName))
	require.NoError(t, err)
	assert.Equal(t, dev.Files, manifest)
	content, err := os.ReadFile(filepath.Join(dev.Dir, "include", "zlib.h"))
	require.NoError(t, err)
	assert.Equal(t, "zlib:include/zlib.h", string(content))
	assert.NoFileExists(t, filepath.Join(dev.Dir, "include", "internal", "private.h"))

	assert.Equal(t, filepath.Join(f.out, "core_dev_gfx942.tar.gz"), dev.Archive)
	assert.FileExists(t, dev.Archive)
	assert.Equal(t, dev.Archive+".sha256sum", dev.Digest)
	assert.FileExists(t, dev.Digest)
}

func TestPackage_RequestedComponentsAndTargets(t *testing.T) {
	f := newFixture(t, &config.Subproject{Name: "zlib"}, &config.Subproject{Name: "hip"})
	for _, target := range []string{"gfx942", "gfx1100"} {
		f.install(t, target, "zlib", "lib/libz.so")
		f.install(t, target, "hip", "lib/libamdhip64.so", "bin/hipcc")
	}

	res, err := New(f.plan, f.layout).Package(context.Background(), coreArtifact(), Request{
		Targets:    []string{"gfx942", "gfx1100"},
		Components: []string{"lib"},
		OutDir:     f.out,
		States:     allComplete("zlib", "hip"),
		Jobs:       1,
	})
	require.NoError(t, err)
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, "gfx1100", res.Outputs[0].Target)
	assert.Equal(t, "gfx942", res.Outputs[1].Target)
	assert.Empty(t, res.Outputs[0].Archive)
	assert.NoDirExists(t, filepath.Join(f.out, "core_run_gfx942"))

	_, err = New(f.plan, f.layout).Package(context.Background(), coreArtifact(), Request{
		Targets:    []string{"gfx942"},
		Components: []string{"bogus"},
		OutDir:     f.out,
		States:     allComplete("zlib", "hip"),
	})
	assert.ErrorContains(t, err, `no component "bogus"`)
}

func TestPackage_TargetNeutral(t *testing.T) {
	f := newFixture(t, &config.Subproject{Name: "docs"})
	f.install(t, "gfx942", "docs", "share/doc/rocm/index.html")

	a := &config.Artifact{
		Name:          "docs",
		TargetNeutral: true,
		Subprojects:   []string{"docs"},
		Components:    []*config.ComponentRule{{Name: "doc"}},
	}
	res, err := New(f.plan, f.layout).Package(context.Background(), a, Request{
		Targets: []string{"gfx942", "gfx1100"},
		OutDir:  f.out,
		States:  allComplete("docs"),
	})
	require.NoError(t, err)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, config.GenericTarget, res.Outputs[0].Target)
	assert.Equal(t, filepath.Join(f.out, "docs_doc_generic"), res.Outputs[0].Dir)
	assert.Equal(t, []string{"share/doc/rocm/index.html"}, res.Outputs[0].Files)
}

func TestPackage_NotReady(t *testing.T) {
	f := newFixture(t,
		&config.Subproject{Name: "rocr"},
		&config.Subproject{Name: "zlib"},
		&config.Subproject{Name: "hip", RuntimeDeps: []string{"rocr"}},
	)
	f.install(t, "gfx942", "hip", "lib/libamdhip64.so")

	testCases := []struct {
		name    string
		states  stateMap
		wantSub string
		wantSt  scheduler.State
	}{
		{"runtime dependency failed", stateMap{"zlib": scheduler.Complete, "hip": scheduler.Complete, "rocr": scheduler.Failed}, "rocr", scheduler.Failed},
		{"artifact subproject skipped", stateMap{"zlib": scheduler.Complete, "hip": scheduler.Skipped, "rocr": scheduler.Complete}, "hip", scheduler.Skipped},
		{"never built", stateMap{"hip": scheduler.Complete, "rocr": scheduler.Complete}, "zlib", scheduler.Declared},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(f.plan, f.layout).Package(context.Background(), coreArtifact(), Request{
				Targets: []string{"gfx942"},
				OutDir:  f.out,
				States:  func(string) (scheduler.StateSource, error) { return tc.states, nil },
			})
			var notReady *DependencyNotReadyError
			require.ErrorAs(t, err, &notReady)
			assert.Equal(t, tc.wantSub, notReady.Subproject)
			assert.Equal(t, tc.wantSt, notReady.State)
			assert.NoDirExists(t, f.out)
		})
	}
}

func TestPackage_Conflict(t *testing.T) {
	f := newFixture(t, &config.Subproject{Name: "zlib"}, &config.Subproject{Name: "hip"})
	f.install(t, "gfx942", "zlib", "lib/libz.so", "include/common.h")
	f.install(t, "gfx942", "hip", "include/common.h")

	_, err := New(f.plan, f.layout).Package(context.Background(), coreArtifact(), Request{
		Targets: []string{"gfx942"},
		OutDir:  f.out,
		States:  allComplete("zlib", "hip"),
	})
	var conflict *PackagingConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "dev", conflict.Component)
	assert.Equal(t, "include/common.h", conflict.Path)
	assert.Equal(t, [2]string{"zlib", "hip"}, conflict.Subprojects)
	assert.NoDirExists(t, f.out, "nothing is written on conflict")
}

func TestPackage_Idempotent(t *testing.T) {
	f := newFixture(t, &config.Subproject{Name: "zlib"}, &config.Subproject{Name: "hip"})
	f.install(t, "gfx942", "zlib", "lib/libz.so", "include/zlib.h")
	f.install(t, "gfx942", "hip", "lib/libamdhip64.so", "bin/hipcc")

	run := func() *Result {
		res, err := New(f.plan, f.layout).Package(context.Background(), coreArtifact(), Request{
			Targets: []string{"gfx942"},
			OutDir:  f.out,
			Format:  archive.FormatXz,
			Hash:    archive.HashBLAKE3,
			States:  allComplete("zlib", "hip"),
		})
		require.NoError(t, err)
		return res
	}

	first := run()
	firstArchive, err := os.ReadFile(first.Outputs[0].Archive)
	require.NoError(t, err)
	second := run()
	secondArchive, err := os.ReadFile(second.Outputs[0].Archive)
	require.NoError(t, err)

	require.Len(t, second.Outputs, len(first.Outputs))
	for i := range first.Outputs {
		assert.Equal(t, first.Outputs[i].Files, second.Outputs[i].Files)
	}
	assert.Equal(t, firstArchive, secondArchive)
}

type fakeAwaiter stateMap

func (f fakeAwaiter) Await(ctx context.Context, name string) (scheduler.State, error) {
	return f[name], ctx.Err()
}

func TestWaitReady(t *testing.T) {
	f := newFixture(t,
		&config.Subproject{Name: "A", Background: true},
		&config.Subproject{Name: "C", RuntimeDeps: []string{"A"}},
	)
	a := &config.Artifact{Name: "c", Subprojects: []string{"C"}}
	p := New(f.plan, f.layout)

	require.NoError(t, p.WaitReady(context.Background(), a, "gfx942", fakeAwaiter{"A": scheduler.Complete, "C": scheduler.Complete}))

	err := p.WaitReady(context.Background(), a, "gfx942", fakeAwaiter{"A": scheduler.Failed, "C": scheduler.Complete})
	var notReady *DependencyNotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, "A", notReady.Subproject)

	inputs, err := p.Inputs(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, inputs)
}
