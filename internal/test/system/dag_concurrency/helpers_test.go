package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/superbuild/internal/app"
	"github.com/specialistvlad/superbuild/internal/hcl"
	"github.com/specialistvlad/superbuild/internal/scheduler"
	"github.com/specialistvlad/superbuild/internal/testutil"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// setupApp writes the declarations into a fresh workspace and returns a
// loaded app whose builds are served by fb.
func setupApp(t *testing.T, decls string, fb *testutil.FakeBuilder, jobs int) (*app.App, *testutil.Workspace) {
	t.Helper()
	ws := testutil.NewWorkspace(t, map[string]string{"main.hcl": decls})
	cfg, err := app.NewConfig(app.Config{
		Paths:     []string{ws.Root},
		LogLevel:  "debug",
		LogFormat: "text",
		Jobs:      jobs,
		NoColor:   true,
	})
	require.NoError(t, err)

	logs := &testutil.SafeBuffer{}
	a := app.NewApp(logs, logs, cfg)
	a.NewBuilder = func(trace.Recorder) scheduler.Builder { return fb }
	require.NoError(t, a.Load(context.Background(), hcl.NewLoader()))
	return a, ws
}
