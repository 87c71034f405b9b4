package builder

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/specialistvlad/superbuild/internal/scheduler"
)

// Environment builds the process environment of a job: base, overridden by
// the interface-derived variables, overridden by the subproject's own env.
// Path lists are prepended to any inherited value. The result is sorted by
// key.
func Environment(base []string, job *scheduler.Job) []string {
	env := make(map[string]string, len(base)+8)
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	sep := string(os.PathListSeparator)
	prepend := func(key string, dirs []string) {
		if len(dirs) == 0 {
			return
		}
		val := joinList(dirs, sep)
		if old := env[key]; old != "" {
			val += sep + old
		}
		env[key] = val
	}

	if ri := job.Interface; ri != nil {
		prepend("PATH", ri.ProgramDirs)
		prepend("PKG_CONFIG_PATH", ri.PkgConfigDirs)
		prepend("CMAKE_PREFIX_PATH", ri.PrefixDirs)
		prepend("LIBRARY_PATH", ri.LinkDirs)
		if len(ri.LinkDirs) > 0 {
			env["SUPERBUILD_LINK_DIRS"] = joinList(ri.LinkDirs, sep)
		}
		if len(ri.InstallRPathDirs) > 0 {
			env["SUPERBUILD_INSTALL_RPATH_DIRS"] = joinList(ri.InstallRPathDirs, sep)
		}
		for _, pkg := range ri.ProvideOrder {
			env[pkg+"_DIR"] = configDir(ri.Provides[pkg])
		}
	}

	env["SUPERBUILD_SUBPROJECT"] = job.Subproject.Name
	env["SUPERBUILD_TARGET"] = job.Target
	env["SUPERBUILD_STAGE_DIR"] = job.StageDir
	env["SUPERBUILD_BINARY_DIR"] = job.BinaryDir
	maps.Copy(env, job.Subproject.Env)

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

func joinList(dirs []string, sep string) string {
	return strings.Join(dirs, sep)
}

// configDir is the directory holding a package config file; that is what
// `<Package>_DIR` expects.
func configDir(configFile string) string {
	if filepath.Ext(configFile) == "" {
		return configFile
	}
	return filepath.Dir(configFile)
}
