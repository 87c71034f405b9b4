package app

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/observability"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// ReportOptions configures one `report` run.
type ReportOptions struct {
	// TracePath defaults to the trace of the configured target, which
	// requires loaded declarations.
	TracePath string
	Target    string
	BinWidth  time.Duration
	Format    string

	// BaselinePath enables the regression gate.
	BaselinePath string
	// Threshold, when set, overrides the baseline's threshold_drop. Zero
	// fails the gate on any drop.
	Threshold *float64
	// WriteBaseline, if set, stores the current figures as a new baseline.
	WriteBaseline string
}

// Report renders the concurrency report of a trace and, when a baseline is
// given, returns a *observability.RegressionDetected on a drop.
func (a *App) Report(ctx context.Context, opts ReportOptions) (*observability.Report, error) {
	format, err := observability.ParseFormat(opts.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if opts.Threshold != nil && (*opts.Threshold < 0 || *opts.Threshold >= 1) {
		return nil, fmt.Errorf("%w: threshold %g must be in [0, 1)", ErrUsage, *opts.Threshold)
	}
	if opts.BinWidth <= 0 {
		opts.BinWidth = 10 * time.Second
	}

	path := opts.TracePath
	if path == "" {
		if err := a.requireLoaded(); err != nil {
			return nil, err
		}
		target, err := a.target(opts.Target)
		if err != nil {
			return nil, err
		}
		path = a.layout.TraceFile(target)
	}
	logger := ctxlog.FromContext(a.Context(ctx))

	samples, err := trace.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rep, err := observability.Analyze(samples, opts.BinWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	logger.Debug("Trace analyzed.", "trace", path, "samples", rep.Samples, "components", len(rep.Components))
	if err := observability.Render(a.outW, rep, format); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	if opts.WriteBaseline != "" {
		var threshold float64
		if opts.Threshold != nil {
			threshold = *opts.Threshold
		}
		b := observability.BaselineFromReport(rep, threshold)
		if err := observability.WriteBaseline(opts.WriteBaseline, b); err != nil {
			return rep, err
		}
		logger.Info("Baseline written.", "path", opts.WriteBaseline)
	}

	if opts.BaselinePath == "" {
		return rep, nil
	}
	baseline, err := observability.LoadBaseline(opts.BaselinePath)
	if err != nil {
		return rep, err
	}
	threshold := observability.Threshold(opts.Threshold, baseline)
	if err := observability.CheckRegression(rep.AvgConcurrency, float64(rep.PeakConcurrency), *baseline, threshold); err != nil {
		return rep, err
	}
	logger.Info("No concurrency regression.", "avg", rep.AvgConcurrency, "peak", rep.PeakConcurrency, "threshold", threshold)
	return rep, nil
}
