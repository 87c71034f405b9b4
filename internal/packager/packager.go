package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/specialistvlad/superbuild/internal/archive"
	"github.com/specialistvlad/superbuild/internal/config"
	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/dag"
	"github.com/specialistvlad/superbuild/internal/fileset"
	"github.com/specialistvlad/superbuild/internal/fsutil"
	"github.com/specialistvlad/superbuild/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// ManifestName is the file listing an output directory's contents.
const ManifestName = "artifact_manifest.txt"

const defaultScanCacheSize = 64

// StateLookup returns the subproject states of one target.
type StateLookup func(target string) (scheduler.StateSource, error)

// Progress receives staging progress; *progressbar.ProgressBar satisfies it.
type Progress interface {
	ChangeMax(max int)
	Add(n int) error
}

// Request selects what to package.
type Request struct {
	Targets []string
	// Components restricts the outputs; empty means every component.
	Components []string
	OutDir     string
	Format     archive.Format
	Hash       archive.HashAlgo
	States     StateLookup
	Progress   Progress
	// Jobs bounds the targets packaged concurrently; 0 means unbounded.
	Jobs int
}

// Output describes one staged component directory.
type Output struct {
	Component string
	Target    string
	Dir       string
	Files     []string
	Archive   string
	Digest    string
}

// Result lists the outputs of one artifact.
type Result struct {
	Artifact string
	Outputs  []Output
}

// Packager packages artifacts of one plan.
type Packager struct {
	plan   *dag.Plan
	layout config.Layout
	// scans caches install-tree listings by stage dir.
	scans *lru.Cache[string, []string]
}

// New returns a packager for the plan.
func New(plan *dag.Plan, layout config.Layout) *Packager {
	cache, err := lru.New[string, []string](defaultScanCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	return &Packager{plan: plan, layout: layout, scans: cache}
}

// Inputs returns the subprojects that must be complete before the artifact
// can be packaged: its own subprojects and their runtime closure.
func (p *Packager) Inputs(a *config.Artifact) ([]string, error) {
	return p.plan.RuntimeClosure(a.Subprojects...)
}

// CheckReady returns a *DependencyNotReadyError naming the first input that
// is not complete.
func (p *Packager) CheckReady(a *config.Artifact, target string, states scheduler.StateSource) error {
	inputs, err := p.Inputs(a)
	if err != nil {
		return err
	}
	for _, name := range inputs {
		st, ok := states.State(name)
		if !ok {
			st = scheduler.Declared
		}
		if st != scheduler.Complete {
			return &DependencyNotReadyError{Artifact: a.Name, Target: target, Subproject: name, State: st}
		}
	}
	return nil
}

// Awaiter exposes subproject futures; *scheduler.Scheduler implements it.
type Awaiter interface {
	Await(ctx context.Context, name string) (scheduler.State, error)
}

// WaitReady blocks until every input of the artifact is terminal and then
// reports readiness like CheckReady.
func (p *Packager) WaitReady(ctx context.Context, a *config.Artifact, target string, aw Awaiter) error {
	inputs, err := p.Inputs(a)
	if err != nil {
		return err
	}
	for _, name := range inputs {
		st, err := aw.Await(ctx, name)
		if err != nil {
			return err
		}
		if st != scheduler.Complete {
			return &DependencyNotReadyError{Artifact: a.Name, Target: target, Subproject: name, State: st}
		}
	}
	return nil
}

// targetPlan is the classification of one target before anything is
// written.
type targetPlan struct {
	name string
	// sources maps component -> relative path -> absolute source path.
	sources map[string]map[string]string
}

// Package stages (and optionally archives) the requested components of the
// artifact. Nothing is written if any target is not ready or has a
// conflict.
func (p *Packager) Package(ctx context.Context, a *config.Artifact, req Request) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("artifact", a.Name)

	components, err := requestedComponents(a, req.Components)
	if err != nil {
		return nil, err
	}
	rules := make([]fileset.Rule, 0, len(a.Components))
	for _, c := range a.Components {
		rules = append(rules, fileset.Rule{
			Component:    c.Name,
			Include:      c.Include,
			Exclude:      c.Exclude,
			ForceInclude: c.ForceInclude,
		})
	}
	classifier, err := fileset.NewClassifier(rules)
	if err != nil {
		return nil, fmt.Errorf("artifact %q: %w", a.Name, err)
	}
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("artifact %q: no target requested", a.Name)
	}
	if req.States == nil {
		return nil, errors.New("packager: no state lookup")
	}

	// Target-neutral artifacts are read from the first target's tree.
	type job struct{ source, name string }
	var jobs []job
	if a.TargetNeutral {
		jobs = []job{{source: req.Targets[0], name: config.GenericTarget}}
	} else {
		for _, t := range req.Targets {
			jobs = append(jobs, job{source: t, name: t})
		}
	}

	plans := make([]*targetPlan, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if req.Jobs > 0 {
		g.SetLimit(req.Jobs)
	}
	for i, j := range jobs {
		g.Go(func() error {
			states, err := req.States(j.source)
			if err != nil {
				return err
			}
			if err := p.CheckReady(a, j.source, states); err != nil {
				return err
			}
			tp, err := p.classify(gctx, a, classifier, j.source, components)
			if err != nil {
				return err
			}
			tp.name = j.name
			plans[i] = tp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if req.Progress != nil {
		total := 0
		for _, tp := range plans {
			for _, files := range tp.sources {
				total += len(files)
			}
		}
		req.Progress.ChangeMax(total)
	}

	var (
		mu  sync.Mutex
		res = &Result{Artifact: a.Name}
	)
	g, gctx = errgroup.WithContext(ctx)
	if req.Jobs > 0 {
		g.SetLimit(req.Jobs)
	}
	for _, tp := range plans {
		for _, comp := range components {
			g.Go(func() error {
				out, err := p.stage(gctx, a.Name, comp, tp, req)
				if err != nil {
					return err
				}
				logger.Info("Component staged.", "component", comp, "target", tp.name, "files", len(out.Files))
				mu.Lock()
				res.Outputs = append(res.Outputs, *out)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(res.Outputs, func(x, y Output) int {
		if c := strings.Compare(x.Target, y.Target); c != 0 {
			return c
		}
		return strings.Compare(x.Component, y.Component)
	})
	return res, nil
}

func requestedComponents(a *config.Artifact, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return a.ComponentNames(), nil
	}
	seen := make(map[string]bool, len(requested))
	var out []string
	for _, name := range requested {
		if _, ok := a.Component(name); !ok {
			return nil, fmt.Errorf("artifact %q has no component %q (have %s)",
				a.Name, name, strings.Join(a.ComponentNames(), ", "))
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// classify partitions the install trees of the artifact's subprojects for
// one target and detects conflicts.
func (p *Packager) classify(ctx context.Context, a *config.Artifact, c *fileset.Classifier, target string, components []string) (*targetPlan, error) {
	wanted := make(map[string]bool, len(components))
	for _, comp := range components {
		wanted[comp] = true
	}
	tp := &targetPlan{sources: make(map[string]map[string]string, len(components))}
	owner := make(map[string]map[string]string, len(components))
	for _, comp := range components {
		tp.sources[comp] = make(map[string]string)
		owner[comp] = make(map[string]string)
	}

	for _, name := range a.Subprojects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node, ok := p.plan.Node(name)
		if !ok {
			return nil, &dag.DeclarationError{Subproject: name, Reason: fmt.Sprintf("referenced by artifact %q but not declared", a.Name)}
		}
		stage := p.layout.StageDir(target, node.Subproject)
		files, err := p.scan(stage)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			for _, claim := range c.Classify(rel) {
				if !wanted[claim.Component] {
					continue
				}
				if prev, dup := owner[claim.Component][rel]; dup && prev != name {
					return nil, &PackagingConflictError{
						Artifact:    a.Name,
						Component:   claim.Component,
						Path:        rel,
						Subprojects: [2]string{prev, name},
					}
				}
				owner[claim.Component][rel] = name
				tp.sources[claim.Component][rel] = filepath.Join(stage, filepath.FromSlash(rel))
			}
		}
	}
	return tp, nil
}

func (p *Packager) scan(stage string) ([]string, error) {
	if files, ok := p.scans.Get(stage); ok {
		return files, nil
	}
	files, err := fsutil.ScanTree(stage)
	if err != nil {
		return nil, err
	}
	p.scans.Add(stage, files)
	return files, nil
}

// Invalidate drops cached install-tree listings.
func (p *Packager) Invalidate() {
	p.scans.Purge()
}

// OutputName is the base name of a component's directory and archive.
func OutputName(artifact, component, target string) string {
	return fmt.Sprintf("%s_%s_%s", artifact, component, target)
}

func (p *Packager) stage(ctx context.Context, artifactName, comp string, tp *targetPlan, req Request) (*Output, error) {
	base := OutputName(artifactName, comp, tp.name)
	dir := filepath.Join(req.OutDir, base)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	sources := tp.sources[comp]
	files := make([]string, 0, len(sources))
	for rel := range sources {
		files = append(files, rel)
	}
	slices.Sort(files)

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := fsutil.CopyEntry(sources[rel], filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", rel, err)
		}
		if req.Progress != nil {
			_ = req.Progress.Add(1)
		}
	}
	if err := writeManifest(filepath.Join(dir, ManifestName), files); err != nil {
		return nil, err
	}

	out := &Output{Component: comp, Target: tp.name, Dir: dir, Files: files}
	if req.Format == "" || req.Format == archive.FormatNone {
		return out, nil
	}
	out.Archive = filepath.Join(req.OutDir, base+req.Format.Extension())
	entries := append(slices.Clone(files), ManifestName)
	if err := archive.Create(ctx, out.Archive, dir, entries, req.Format); err != nil {
		return nil, err
	}
	digest, _, err := archive.WriteDigest(out.Archive, req.Hash)
	if err != nil {
		return nil, err
	}
	out.Digest = digest
	return out, nil
}
