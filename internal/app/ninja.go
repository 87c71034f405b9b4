package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// ImportOptions configures `import-ninja`.
type ImportOptions struct {
	LogPath   string
	TracePath string
	// Component is used for entries whose label cannot be guessed.
	Component string
	// Base is the build start; zero means the log's modification time
	// minus the last entry's end offset.
	Base time.Time
}

// ImportNinja appends the entries of a `.ninja_log` to a trace file and
// returns the number of samples written.
func (a *App) ImportNinja(ctx context.Context, opts ImportOptions) (int, error) {
	if opts.TracePath == "" {
		return 0, fmt.Errorf("%w: import-ninja needs a trace file", ErrUsage)
	}
	f, err := os.Open(opts.LogPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open ninja log: %w", err)
	}
	defer f.Close()

	component := opts.Component
	if component == "" {
		component = UnknownComponent
	}
	epoch := time.Unix(0, 0).UTC()
	samples, err := trace.ImportNinjaLog(f, epoch, component)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opts.LogPath, err)
	}

	base := opts.Base
	if base.IsZero() {
		info, err := f.Stat()
		if err != nil {
			return 0, err
		}
		var last time.Duration
		for _, s := range samples {
			last = max(last, s.End.Sub(epoch))
		}
		base = info.ModTime().Add(-last)
	}
	shift := base.Sub(epoch)
	for i := range samples {
		samples[i].Start = samples[i].Start.Add(shift)
		samples[i].End = samples[i].End.Add(shift)
	}

	if err := appendSamples(opts.TracePath, samples...); err != nil {
		return 0, err
	}
	ctxlog.FromContext(a.Context(ctx)).Info("Ninja log imported.", "log", opts.LogPath, "samples", len(samples), "trace", opts.TracePath)
	return len(samples), nil
}
