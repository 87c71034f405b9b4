package builder

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/superbuild/internal/scheduler"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// Phase is one command of a subproject build.
type Phase struct {
	Name string
	Args []string
}

// Phases returns the commands to run for the job, in order.
func Phases(job *scheduler.Job) []Phase {
	sp := job.Subproject
	if len(sp.Configure) == 0 && len(sp.Build) == 0 && len(sp.Install) == 0 {
		return cmakePhases(job)
	}

	var phases []Phase
	for _, p := range []Phase{
		{Name: trace.PhaseConfigure, Args: sp.Configure},
		{Name: trace.PhaseBuild, Args: sp.Build},
		{Name: trace.PhaseInstall, Args: sp.Install},
	} {
		if len(p.Args) > 0 {
			phases = append(phases, p)
		}
	}
	return phases
}

func cmakePhases(job *scheduler.Job) []Phase {
	configure := []string{
		"cmake",
		"-S", job.SourceDir,
		"-B", job.BinaryDir,
		"-DCMAKE_INSTALL_PREFIX=" + job.StageDir,
	}
	if ri := job.Interface; ri != nil {
		if len(ri.PrefixDirs) > 0 {
			configure = append(configure, "-DCMAKE_PREFIX_PATH="+joinList(ri.PrefixDirs, ";"))
		}
		if len(ri.InstallRPathDirs) > 0 {
			configure = append(configure, "-DCMAKE_INSTALL_RPATH="+joinList(ri.InstallRPathDirs, ";"))
		}
		for _, pkg := range ri.ProvideOrder {
			configure = append(configure, fmt.Sprintf("-D%s_DIR=%s", pkg, configDir(ri.Provides[pkg])))
		}
	}
	configure = append(configure, slices.Clone(job.Subproject.CMakeArgs)...)

	return []Phase{
		{Name: trace.PhaseConfigure, Args: configure},
		{Name: trace.PhaseBuild, Args: []string{"cmake", "--build", job.BinaryDir}},
		{Name: trace.PhaseInstall, Args: []string{"cmake", "--install", job.BinaryDir}},
	}
}
