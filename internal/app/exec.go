package app

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/procrun"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// ExecOptions configures the compiler-launcher mode.
type ExecOptions struct {
	Args []string
	// Component labels the sample; empty means guessed from Args.
	Component string
	// TracePath receives the sample; empty disables recording.
	TracePath string
}

// UnknownComponent labels samples whose component cannot be determined.
const UnknownComponent = "unknown"

// Exec runs a single command and returns its exit code. Tracing problems
// are logged and never change the outcome.
func (a *App) Exec(ctx context.Context, opts ExecOptions) (int, error) {
	if len(opts.Args) > 0 && opts.Args[0] == "--" {
		opts.Args = opts.Args[1:]
	}
	if len(opts.Args) == 0 {
		return 2, errors.Join(ErrUsage, errors.New("exec: no command given"))
	}
	ctx = a.Context(ctx)
	logger := ctxlog.FromContext(ctx)

	component := opts.Component
	if component == "" {
		component = trace.GuessComponent(opts.Args...)
	}
	if component == "" {
		component = UnknownComponent
	}

	runner := &procrun.Runner{SampleInterval: 100 * time.Millisecond}
	res, err := runner.Run(ctx, procrun.Spec{
		Args:      opts.Args,
		Env:       os.Environ(),
		Output:    a.outW,
		Stderr:    a.errW,
		Component: component,
		Phase:     trace.PhaseCompile,
	})
	if res == nil {
		return 127, err
	}

	if opts.TracePath != "" {
		if recErr := appendSamples(opts.TracePath, res.Sample); recErr != nil {
			logger.Warn("Failed to record sample.", "trace", opts.TracePath, "error", recErr)
		}
	}
	if err != nil {
		return res.Sample.ExitCode, err
	}
	return res.Sample.ExitCode, nil
}

func appendSamples(path string, samples ...trace.Sample) error {
	rec, err := trace.OpenFile(path)
	if err != nil {
		return err
	}
	for _, s := range samples {
		if err := rec.Record(s); err != nil {
			rec.Close()
			return err
		}
	}
	return rec.Close()
}
