package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gookit/color"
	"golang.org/x/term"

	"github.com/specialistvlad/superbuild/internal/builder"
	"github.com/specialistvlad/superbuild/internal/config"
	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/dag"
	"github.com/specialistvlad/superbuild/internal/scheduler"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
	status *statusPrinter

	model  *config.Model
	plan   *dag.Plan
	layout config.Layout

	// NewBuilder creates the builder used by Build. Tests replace it.
	NewBuilder func(rec trace.Recorder) scheduler.Builder
}

// NewApp is the constructor for the main application. Command output goes
// to outW; logs and status lines go to errW.
func NewApp(outW, errW io.Writer, cfg *Config) *App {
	if cfg.NoColor {
		color.Disable()
	}
	return &App{
		outW:   outW,
		errW:   errW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, errW),
		config: cfg,
		status: &statusPrinter{w: errW},
		NewBuilder: func(rec trace.Recorder) scheduler.Builder {
			return builder.New(rec)
		},
	}
}

// Context returns ctx carrying the application's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Load reads the declarations and builds the dependency plan. Cycles and
// declaration errors surface here, before anything runs.
func (a *App) Load(ctx context.Context, loader config.Loader) error {
	ctx = a.Context(ctx)
	model, err := loader.Load(ctx, a.config.Paths...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeclarations, err)
	}
	plan, err := dag.BuildPlan(ctx, model)
	if err != nil {
		return err
	}
	a.model = model
	a.plan = plan
	a.layout = config.NewLayout(model.Settings)
	a.logger.Debug("Declarations loaded.", "subprojects", plan.Len(), "artifacts", len(model.Artifacts))
	return nil
}

// Model returns the loaded declarations. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Plan returns the dependency plan. This is primarily for testing.
func (a *App) Plan() *dag.Plan {
	return a.plan
}

func (a *App) requireLoaded() error {
	if a.plan == nil {
		return fmt.Errorf("%w: declarations not loaded", ErrDeclarations)
	}
	return nil
}

// target resolves the requested target against the declared ones. An
// empty request selects the first declared target.
func (a *App) target(requested string) (string, error) {
	settings := a.model.Settings
	if requested == "" {
		if settings == nil || len(settings.Targets) == 0 {
			return "", fmt.Errorf("%w: no target given and none declared", ErrUsage)
		}
		return settings.Targets[0], nil
	}
	if !settings.HasTarget(requested) {
		return "", fmt.Errorf("%w: target %q is not declared", ErrUsage, requested)
	}
	return requested, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
