package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/scheduler"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// BuildOptions configures one `build` run.
type BuildOptions struct {
	Target string
	// Only restricts the run to these subprojects and their dependencies.
	Only []string
	// TracePath overrides the default trace file of the target.
	TracePath string
}

// Build runs the scheduler over the plan and persists the resulting
// states. The result is returned even when some subprojects failed.
func (a *App) Build(ctx context.Context, opts BuildOptions) (*scheduler.Result, error) {
	if err := a.requireLoaded(); err != nil {
		return nil, err
	}
	target, err := a.target(opts.Target)
	if err != nil {
		return nil, err
	}
	ctx, logger := ctxlog.With(a.Context(ctx), "target", target)

	plan := a.plan
	if len(opts.Only) > 0 {
		if plan, err = plan.Restrict(opts.Only...); err != nil {
			return nil, err
		}
	}

	tracePath := opts.TracePath
	if tracePath == "" {
		tracePath = a.layout.TraceFile(target)
	}
	rec, err := trace.CreateFile(tracePath)
	if err != nil {
		return nil, err
	}
	defer rec.Close()

	logger.Info("🚀 Starting build.", "subprojects", plan.Len(), "jobs", a.config.Jobs, "trace", tracePath)
	res, err := scheduler.Run(ctx, plan, scheduler.Options{
		JobLimit:     a.config.Jobs,
		Target:       target,
		Layout:       a.layout,
		Builder:      a.NewBuilder(rec),
		StateFile:    a.layout.StateFile(target),
		OnTransition: a.status.transition,
	})
	if res == nil {
		return nil, fmt.Errorf("build failed to run: %w", err)
	}

	complete := len(res.Names(scheduler.Complete))
	failed := len(res.Names(scheduler.Failed))
	skipped := len(res.Names(scheduler.Skipped))
	logger.Info("🏁 Build finished.", "complete", complete, "failed", failed, "skipped", skipped)
	return res, err
}
