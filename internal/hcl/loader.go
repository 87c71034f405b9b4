package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/superbuild/internal/config"
	"github.com/specialistvlad/superbuild/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Env is exposed to expressions as the `env` map. Nil means the
	// process environment.
	Env map[string]string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

type parsedFile struct {
	path string
	root fileRoot
}

// Load parses every .hcl file under the given paths. The settings block is
// evaluated first so its roots are available to every other block.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	files := make([]parsedFile, 0, len(hclFiles))
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		files = append(files, parsedFile{path: file, root: root})
	}

	vars := newVariables(l.env())
	settings, err := l.loadSettings(files, vars)
	if err != nil {
		return nil, err
	}
	vars.sourceRoot = settings.SourceRoot
	vars.buildRoot = settings.BuildRoot

	model := &config.Model{Settings: settings}
	seenArtifacts := make(map[string]string)
	for _, f := range files {
		for _, block := range f.root.Subprojects {
			sp, err := translateSubproject(block, vars)
			if err != nil {
				return nil, fmt.Errorf("subproject %q in %s: %w", block.Name, f.path, err)
			}
			model.Subprojects = append(model.Subprojects, sp)
		}
		for _, block := range f.root.Artifacts {
			if prev, ok := seenArtifacts[block.Name]; ok {
				return nil, fmt.Errorf("artifact %q in %s: already declared in %s", block.Name, f.path, prev)
			}
			seenArtifacts[block.Name] = f.path
			a, err := translateArtifact(block, vars)
			if err != nil {
				return nil, fmt.Errorf("artifact %q in %s: %w", block.Name, f.path, err)
			}
			model.Artifacts = append(model.Artifacts, a)
		}
	}

	logger.Debug("HCL loading complete.",
		"subprojects", len(model.Subprojects),
		"artifacts", len(model.Artifacts),
		"targets", settings.Targets,
	)
	return model, nil
}

// loadSettings decodes the single optional `superbuild` block. Relative
// roots are resolved against the directory of the file declaring them.
func (l *Loader) loadSettings(files []parsedFile, vars *variables) (*config.Settings, error) {
	var (
		found    *rawBlock
		foundIn  string
		baseDir  = filepath.Dir(files[0].path)
		settings = &config.Settings{}
	)
	for _, f := range files {
		for _, block := range f.root.Settings {
			if found != nil {
				return nil, fmt.Errorf("duplicate superbuild block in %s (first declared in %s)", f.path, foundIn)
			}
			found, foundIn = block, f.path
			baseDir = filepath.Dir(f.path)
		}
	}
	if found != nil {
		var s settingsSchema
		if diags := gohcl.DecodeBody(found.Body, vars.evalContext(""), &s); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode superbuild block in %s: %w", foundIn, diags)
		}
		settings.SourceRoot = s.SourceRoot
		settings.BuildRoot = s.BuildRoot
		settings.Targets = s.Targets
	}
	if settings.SourceRoot == "" {
		settings.SourceRoot = "."
	}
	if settings.BuildRoot == "" {
		settings.BuildRoot = "build"
	}
	settings.SourceRoot = resolveAgainst(baseDir, settings.SourceRoot)
	settings.BuildRoot = resolveAgainst(baseDir, settings.BuildRoot)
	return settings, nil
}

func (l *Loader) env() map[string]string {
	if l.Env != nil {
		return l.Env
	}
	return environ()
}

func resolveAgainst(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // A configured path that doesn't exist is skipped.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return allFiles, nil
}
