package config

import (
	"path/filepath"
	"slices"
)

// GenericTarget is the target name used for target-neutral artifacts.
const GenericTarget = "generic"

// Model is the unified, format-agnostic representation of every declaration
// found in the loaded configuration.
type Model struct {
	Settings *Settings
	// Subprojects are kept in declaration order; that order is what makes
	// graph ordering reproducible.
	Subprojects []*Subproject
	Artifacts   []*Artifact
}

// Settings holds the global `superbuild` block.
type Settings struct {
	SourceRoot string
	BuildRoot  string
	Targets    []string
}

// Subproject is one independently-buildable native component.
type Subproject struct {
	Name      string
	SourceDir string
	// BinaryDir and StageDir are relative to the per-target build root
	// unless they are absolute.
	BinaryDir string
	StageDir  string
	Toolchain string
	// Component is the owning component label used in resource samples.
	Component string

	CMakeArgs []string
	Env       map[string]string

	// Configure, Build and Install are argv lists run in that order. When
	// all three are empty the CMake defaults apply; otherwise an empty list
	// skips the phase.
	Configure []string
	Build     []string
	Install   []string

	BuildDeps   []string
	RuntimeDeps []string

	Interface Interface
	// Provides maps a package name to the config file path, relative to the
	// subproject's stage dir, that dependents use to locate it.
	Provides map[string]string

	Background bool
}

// Interface lists the directories a subproject exports to its dependents.
// Entries are relative to the subproject's stage dir.
type Interface struct {
	LinkDirs         []string
	InstallRPathDirs []string
	ProgramDirs      []string
	PkgConfigDirs    []string
}

// Artifact is an artifact descriptor: a named bundle assembled from one or
// more subprojects' install trees.
type Artifact struct {
	Name          string
	TargetNeutral bool
	Subprojects   []string
	// Components are in declaration order.
	Components []*ComponentRule
}

// ComponentRule carries the glob lists of one artifact component.
type ComponentRule struct {
	Name         string
	Include      []string
	Exclude      []string
	ForceInclude []string
}

// Subproject returns the declared subproject with the given name.
func (m *Model) Subproject(name string) (*Subproject, bool) {
	for _, sp := range m.Subprojects {
		if sp.Name == name {
			return sp, true
		}
	}
	return nil, false
}

// Artifact returns the artifact descriptor with the given name.
func (m *Model) Artifact(name string) (*Artifact, bool) {
	for _, a := range m.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Component returns the rule for the named component.
func (a *Artifact) Component(name string) (*ComponentRule, bool) {
	for _, c := range a.Components {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ComponentNames returns the names of the artifact's components in
// declaration order.
func (a *Artifact) ComponentNames() []string {
	names := make([]string, 0, len(a.Components))
	for _, c := range a.Components {
		names = append(names, c.Name)
	}
	return names
}

// Layout maps subprojects onto the per-target build tree.
type Layout struct {
	SourceRoot string
	BuildRoot  string
}

// NewLayout returns the layout described by the settings block.
func NewLayout(s *Settings) Layout {
	if s == nil {
		return Layout{SourceRoot: ".", BuildRoot: "build"}
	}
	return Layout{SourceRoot: s.SourceRoot, BuildRoot: s.BuildRoot}
}

// TargetRoot is the build root for a single target.
func (l Layout) TargetRoot(target string) string {
	return filepath.Join(l.BuildRoot, target)
}

// SourceDir resolves the subproject's external source dir.
func (l Layout) SourceDir(sp *Subproject) string {
	dir := sp.SourceDir
	if dir == "" {
		dir = sp.Name
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(l.SourceRoot, dir)
}

// BinaryDir resolves the subproject's binary dir for a target.
func (l Layout) BinaryDir(target string, sp *Subproject) string {
	return l.underTarget(target, sp.BinaryDir, filepath.Join("build", sp.Name))
}

// StageDir resolves the subproject's install tree for a target.
func (l Layout) StageDir(target string, sp *Subproject) string {
	return l.underTarget(target, sp.StageDir, filepath.Join("stage", sp.Name))
}

// StateFile is where the scheduler persists subproject states for a target.
func (l Layout) StateFile(target string) string {
	return filepath.Join(l.TargetRoot(target), "build-state.json")
}

// TraceFile is the default execution trace location for a target.
func (l Layout) TraceFile(target string) string {
	return filepath.Join(l.TargetRoot(target), "logs", "trace.jsonl")
}

func (l Layout) underTarget(target, dir, fallback string) string {
	if dir == "" {
		dir = fallback
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(l.TargetRoot(target), dir)
}

// HasTarget reports whether the target is declared in the settings. An
// empty target list accepts any target.
func (s *Settings) HasTarget(target string) bool {
	if s == nil || len(s.Targets) == 0 {
		return true
	}
	return slices.Contains(s.Targets, target)
}
