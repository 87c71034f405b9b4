package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/procrun"
	"github.com/specialistvlad/superbuild/internal/scheduler"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// Command builds subprojects by running their phase commands.
type Command struct {
	Runner *procrun.Runner
	// Recorder receives one sample per process. Nil disables tracing.
	Recorder trace.Recorder
	// BaseEnv is the inherited environment; nil means os.Environ().
	BaseEnv []string
	// Output, if set, additionally receives every phase's output.
	Output io.Writer
}

var _ scheduler.Builder = (*Command)(nil)

// New returns a Command recording to rec.
func New(rec trace.Recorder) *Command {
	return &Command{Runner: &procrun.Runner{}, Recorder: rec}
}

// Build implements scheduler.Builder.
func (c *Command) Build(ctx context.Context, job *scheduler.Job) error {
	logger := ctxlog.FromContext(ctx)
	sp := job.Subproject

	for _, dir := range []string{job.BinaryDir, job.StageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("subproject %q: %w", sp.Name, err)
		}
	}

	var out io.Writer = io.Discard
	if job.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(job.LogFile), 0o755); err != nil {
			return fmt.Errorf("subproject %q: %w", sp.Name, err)
		}
		f, err := os.OpenFile(job.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("subproject %q: failed to open log: %w", sp.Name, err)
		}
		defer f.Close()
		out = f
	}
	if c.Output != nil {
		out = io.MultiWriter(out, c.Output)
	}

	base := c.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	env := Environment(base, job)
	runner := c.Runner
	if runner == nil {
		runner = &procrun.Runner{}
	}

	for _, phase := range Phases(job) {
		logger.Debug("Running phase.", "phase", phase.Name, "cmd", phase.Args)
		res, err := runner.Run(ctx, procrun.Spec{
			Args:       phase.Args,
			Dir:        job.BinaryDir,
			Env:        env,
			Output:     out,
			Subproject: sp.Name,
			Component:  sp.Component,
			Phase:      phase.Name,
		})
		if res != nil {
			c.record(ctx, res.Sample)
		}
		if err != nil {
			failure := &scheduler.BuildFailure{Subproject: sp.Name, Phase: phase.Name, ExitCode: -1, Err: err}
			if res != nil {
				failure.ExitCode = res.Sample.ExitCode
				failure.Output = res.Tail
			}
			return failure
		}
		if code := res.Sample.ExitCode; code != 0 {
			return &scheduler.BuildFailure{
				Subproject: sp.Name,
				Phase:      phase.Name,
				ExitCode:   code,
				Output:     res.Tail,
			}
		}
	}
	return nil
}

func (c *Command) record(ctx context.Context, s trace.Sample) {
	if c.Recorder == nil {
		return
	}
	if s.Component == "" {
		s.Component = s.Subproject
	}
	if err := c.Recorder.Record(s); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record resource sample.", "error", err)
	}
}
