package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/specialistvlad/superbuild/internal/archive"
	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/packager"
	"github.com/specialistvlad/superbuild/internal/scheduler"
)

// PackageOptions configures one `package` run.
type PackageOptions struct {
	Artifact string
	// Targets defaults to the configured target.
	Targets    []string
	Components []string
	// OutDir defaults to <build root>/artifacts.
	OutDir  string
	Archive string
	Hash    string
}

// Package stages the requested components of an artifact, reading
// subproject readiness from the persisted build state of each target.
func (a *App) Package(ctx context.Context, opts PackageOptions) (*packager.Result, error) {
	if err := a.requireLoaded(); err != nil {
		return nil, err
	}
	artifact, ok := a.model.Artifact(opts.Artifact)
	if !ok {
		return nil, fmt.Errorf("%w: artifact %q is not declared", ErrUsage, opts.Artifact)
	}
	format, err := archive.ParseFormat(opts.Archive)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	hash, err := archive.ParseHash(opts.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	targets := opts.Targets
	if len(targets) == 0 {
		targets = []string{""}
	}
	for i, t := range targets {
		if targets[i], err = a.target(t); err != nil {
			return nil, err
		}
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Join(a.layout.BuildRoot, "artifacts")
	}

	ctx, logger := ctxlog.With(a.Context(ctx), "artifact", artifact.Name)
	req := packager.Request{
		Targets:    targets,
		Components: opts.Components,
		OutDir:     outDir,
		Format:     format,
		Hash:       hash,
		States:     a.loadStates,
		Jobs:       a.config.Jobs,
	}
	if isTerminal(a.errW) {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(a.errW),
			progressbar.OptionSetDescription("packaging "+artifact.Name),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		req.Progress = bar
	}

	logger.Info("Packaging artifact.", "targets", strings.Join(targets, ","), "out_dir", outDir)
	res, err := packager.New(a.plan, a.layout).Package(ctx, artifact, req)
	if err != nil {
		return nil, err
	}
	for _, out := range res.Outputs {
		where := out.Dir
		if out.Archive != "" {
			where = out.Archive
		}
		a.status.printf("%s %s (%d files)\n", greenMark(), where, len(out.Files))
	}
	return res, nil
}

func (a *App) loadStates(target string) (scheduler.StateSource, error) {
	f, err := scheduler.LoadState(a.layout.StateFile(target))
	if err != nil {
		return nil, err
	}
	return f, nil
}
