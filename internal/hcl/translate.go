package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/superbuild/internal/config"
)

func translateSubproject(block *labeledBlock, vars *variables) (*config.Subproject, error) {
	var s subprojectSchema
	if diags := gohcl.DecodeBody(block.Body, vars.evalContext(block.Name), &s); diags.HasErrors() {
		return nil, diags
	}

	sp := &config.Subproject{
		Name:        block.Name,
		SourceDir:   s.SourceDir,
		BinaryDir:   s.BinaryDir,
		StageDir:    s.StageDir,
		Toolchain:   s.Toolchain,
		Component:   s.Component,
		CMakeArgs:   s.CMakeArgs,
		Env:         s.Env,
		Configure:   s.Configure,
		Build:       s.Build,
		Install:     s.Install,
		BuildDeps:   s.BuildDeps,
		RuntimeDeps: s.RuntimeDeps,
		Interface: config.Interface{
			LinkDirs:         s.InterfaceLinkDirs,
			InstallRPathDirs: s.InterfaceInstallRPathDirs,
			ProgramDirs:      s.InterfaceProgramDirs,
			PkgConfigDirs:    s.InterfacePkgConfigDirs,
		},
		Provides:   s.Provides,
		Background: s.Background,
	}
	if sp.Component == "" {
		sp.Component = sp.Name
	}
	return sp, nil
}

func translateArtifact(block *labeledBlock, vars *variables) (*config.Artifact, error) {
	var s artifactSchema
	if diags := gohcl.DecodeBody(block.Body, vars.evalContext(block.Name), &s); diags.HasErrors() {
		return nil, diags
	}
	if len(s.Subprojects) == 0 {
		return nil, fmt.Errorf("subprojects must not be empty")
	}

	a := &config.Artifact{
		Name:          block.Name,
		TargetNeutral: s.TargetNeutral,
		Subprojects:   s.Subprojects,
	}
	seen := make(map[string]struct{}, len(s.Components))
	for _, c := range s.Components {
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("component %q declared twice", c.Name)
		}
		seen[c.Name] = struct{}{}
		a.Components = append(a.Components, &config.ComponentRule{
			Name:         c.Name,
			Include:      c.Include,
			Exclude:      c.Exclude,
			ForceInclude: c.ForceInclude,
		})
	}
	return a, nil
}
