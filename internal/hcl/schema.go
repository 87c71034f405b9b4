package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top-level blocks of any file. Block bodies are kept
// raw so they can be evaluated once the settings variables are known.
type fileRoot struct {
	Settings    []*rawBlock     `hcl:"superbuild,block"`
	Subprojects []*labeledBlock `hcl:"subproject,block"`
	Artifacts   []*labeledBlock `hcl:"artifact,block"`
	Remain      hcl.Body        `hcl:",remain"`
}

type rawBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type labeledBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type settingsSchema struct {
	SourceRoot string   `hcl:"source_root,optional"`
	BuildRoot  string   `hcl:"build_root,optional"`
	Targets    []string `hcl:"targets,optional"`
}

type subprojectSchema struct {
	SourceDir string `hcl:"source_dir,optional"`
	BinaryDir string `hcl:"binary_dir,optional"`
	StageDir  string `hcl:"stage_dir,optional"`
	Toolchain string `hcl:"toolchain,optional"`
	Component string `hcl:"component,optional"`
	Background bool  `hcl:"background,optional"`

	CMakeArgs []string          `hcl:"cmake_args,optional"`
	Env       map[string]string `hcl:"env,optional"`

	Configure []string `hcl:"configure,optional"`
	Build     []string `hcl:"build,optional"`
	Install   []string `hcl:"install,optional"`

	BuildDeps   []string `hcl:"build_deps,optional"`
	RuntimeDeps []string `hcl:"runtime_deps,optional"`

	InterfaceLinkDirs         []string          `hcl:"interface_link_dirs,optional"`
	InterfaceInstallRPathDirs []string          `hcl:"interface_install_rpath_dirs,optional"`
	InterfaceProgramDirs      []string          `hcl:"interface_program_dirs,optional"`
	InterfacePkgConfigDirs    []string          `hcl:"interface_pkgconfig_dirs,optional"`
	Provides                  map[string]string `hcl:"provides,optional"`
}

type artifactSchema struct {
	TargetNeutral bool               `hcl:"target_neutral,optional"`
	Subprojects   []string           `hcl:"subprojects"`
	Components    []*componentSchema `hcl:"component,block"`
}

type componentSchema struct {
	Name         string   `hcl:"name,label"`
	Include      []string `hcl:"include,optional"`
	Exclude      []string `hcl:"exclude,optional"`
	ForceInclude []string `hcl:"force_include,optional"`
}
