package system

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/superbuild/internal/app"
	"github.com/specialistvlad/superbuild/internal/packager"
	"github.com/specialistvlad/superbuild/internal/testutil"
)

const decls = `
superbuild {
  targets = ["gfx942", "gfx1100"]
}

subproject "sysdeps" {}

subproject "blas" {
  build_deps = ["sysdeps"]
}

artifact "blas" {
  subprojects = ["sysdeps", "blas"]
  component "lib" {}
  component "dev" {
    exclude       = ["include/detail/**"]
    force_include = ["include/detail/export.h"]
  }
  component "test" {}
}

artifact "headers" {
  target_neutral = true
  subprojects    = ["blas"]
  component "dev" {}
}
`

func builder() *testutil.FakeBuilder {
	return &testutil.FakeBuilder{Files: map[string][]string{
		"sysdeps": {"lib/libz.so.1", "include/zlib.h"},
		"blas": {
			"lib/libblas.so", "include/blas.h", "include/detail/impl.h",
			"include/detail/export.h", "bin/blas-test", "test/blas-test",
		},
	}}
}

func paths(res *packager.Result) map[string][]string {
	out := map[string][]string{}
	for _, o := range res.Outputs {
		out[o.Component+"@"+o.Target] = o.Files
	}
	return out
}

// Packaging the same states twice yields identical per-component path sets.
func TestPackaging_Deterministic(t *testing.T) {
	a, ws := setupApp(t, decls, builder(), 4)
	ctx := context.Background()
	for _, target := range []string{"gfx942", "gfx1100"} {
		_, err := a.Build(ctx, app.BuildOptions{Target: target})
		require.NoError(t, err)
	}

	opts := app.PackageOptions{
		Artifact: "blas",
		Targets:  []string{"gfx942", "gfx1100"},
		OutDir:   ws.Path("dist"),
		Archive:  "xz",
	}
	first, err := a.Package(ctx, opts)
	require.NoError(t, err)
	firstArchive, err := os.ReadFile(first.Outputs[0].Archive)
	require.NoError(t, err)

	second, err := a.Package(ctx, opts)
	require.NoError(t, err)
	secondArchive, err := os.ReadFile(second.Outputs[0].Archive)
	require.NoError(t, err)

	assert.Equal(t, paths(first), paths(second))
	assert.Equal(t, firstArchive, secondArchive, "archives are byte for byte reproducible")

	got := paths(first)
	assert.Equal(t, []string{"include/blas.h", "include/detail/export.h", "include/zlib.h"}, got["dev@gfx942"])
	assert.Equal(t, []string{"lib/libblas.so", "lib/libz.so.1"}, got["lib@gfx1100"])
	assert.Equal(t, []string{"test/blas-test"}, got["test@gfx942"])
}

// A target-neutral artifact is packaged once, under the generic name.
func TestPackaging_TargetNeutral(t *testing.T) {
	a, ws := setupApp(t, decls, builder(), 2)
	ctx := context.Background()
	_, err := a.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)

	res, err := a.Package(ctx, app.PackageOptions{Artifact: "headers", OutDir: ws.Path("dist"), Archive: "none"})
	require.NoError(t, err)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "generic", res.Outputs[0].Target)
	assert.DirExists(t, ws.Path("dist", "headers_dev_generic"))
}
