package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/superbuild/internal/app"
	"github.com/specialistvlad/superbuild/internal/packager"
	"github.com/specialistvlad/superbuild/internal/scheduler"
	"github.com/specialistvlad/superbuild/internal/testutil"
)

const decls = `
superbuild {
  targets = ["gfx942"]
}

subproject "compiler" {}

subproject "runtime" {
  build_deps = ["compiler"]
}

subproject "tools" {
  runtime_deps = ["compiler"]
}

subproject "unrelated" {}

artifact "tools" {
  subprojects = ["tools"]
  component "run" {}
}

artifact "unrelated" {
  subprojects = ["unrelated"]
  component "run" {}
}
`

// A failed subproject skips every transitive dependent, the rest of the
// graph still builds, and no artifact is produced for skipped inputs.
func TestErrorHandling_FailureSkipsDependents(t *testing.T) {
	fb := &testutil.FakeBuilder{
		Fail:  map[string]bool{"compiler": true},
		Files: map[string][]string{"unrelated": {"bin/unrelated"}, "tools": {"bin/tool"}},
	}
	a, ws := setupApp(t, decls, fb, 1)
	ctx := context.Background()

	res, err := a.Build(ctx, app.BuildOptions{})
	require.Error(t, err)
	var failure *scheduler.BuildFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "compiler", failure.Subproject)

	assert.Equal(t, []string{"compiler"}, res.Names(scheduler.Failed))
	assert.ElementsMatch(t, []string{"runtime", "tools"}, res.Names(scheduler.Skipped))
	assert.Equal(t, []string{"unrelated"}, res.Names(scheduler.Complete))
	testutil.AssertNotBuilt(t, fb, "runtime")
	testutil.AssertNotBuilt(t, fb, "tools")

	out := ws.Path("dist")
	_, err = a.Package(ctx, app.PackageOptions{Artifact: "tools", OutDir: out, Archive: "none"})
	var notReady *packager.DependencyNotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.NoDirExists(t, ws.Path("dist", "tools_run_gfx942"))

	_, err = a.Package(ctx, app.PackageOptions{Artifact: "unrelated", OutDir: out, Archive: "none"})
	require.NoError(t, err)
	assert.DirExists(t, ws.Path("dist", "unrelated_run_gfx942"))
}

// Cancelling the run skips everything that has not started.
func TestErrorHandling_CancellationSkipsUnstarted(t *testing.T) {
	hold := make(chan struct{})
	fb := &testutil.FakeBuilder{Hold: map[string]chan struct{}{"compiler": hold}}
	a, _ := setupApp(t, decls, fb, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan *scheduler.Result, 1)
	go func() {
		res, _ := a.Build(ctx, app.BuildOptions{Only: []string{"runtime"}})
		done <- res
	}()

	require.Eventually(t, func() bool {
		_, ok := fb.Record("compiler")
		return ok
	}, 5*time.Second, 5*time.Millisecond)
	cancel()

	res := <-done
	require.NotNil(t, res)
	st, ok := res.State("runtime")
	require.True(t, ok)
	assert.Equal(t, scheduler.Skipped, st)
	testutil.AssertNotBuilt(t, fb, "runtime")
}
