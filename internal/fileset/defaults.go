package fileset

import "slices"

// Canonical component kinds, in evaluation order.
const (
	KindDbg  = "dbg"
	KindDev  = "dev"
	KindDoc  = "doc"
	KindLib  = "lib"
	KindRun  = "run"
	KindTest = "test"
)

// CanonicalOrder is the order in which canonical components are offered a
// path. Custom components follow in declaration order.
var CanonicalOrder = []string{KindDbg, KindDev, KindDoc, KindLib, KindRun, KindTest}

var defaultPatterns = map[string][]string{
	KindDbg: {
		"**/*.debug",
		"**/.debug/**",
		"**/*.dbg",
		"**/*.pdb",
		"**/*.sym",
	},
	KindDev: {
		"include/**",
		"lib/cmake/**",
		"lib64/cmake/**",
		"share/cmake/**",
		"lib/pkgconfig/**",
		"lib64/pkgconfig/**",
		"share/pkgconfig/**",
		"lib/**/*.a",
		"lib64/**/*.a",
		"lib/**/*.lib",
	},
	KindDoc: {
		"share/doc/**",
		"share/man/**",
		"share/info/**",
	},
	KindLib: {
		"lib/**/*.so",
		"lib/**/*.so.*",
		"lib64/**/*.so",
		"lib64/**/*.so.*",
		"lib/**/*.dylib",
		"bin/*.dll",
	},
	KindRun: {
		"bin/**",
		"libexec/**",
		"sbin/**",
	},
	KindTest: {
		"test/**",
		"tests/**",
		"share/*/test/**",
		"share/*/tests/**",
	},
}

// IsCanonical reports whether kind is one of the canonical component kinds.
func IsCanonical(kind string) bool {
	return slices.Contains(CanonicalOrder, kind)
}

// DefaultPatterns returns the default membership of a component kind.
// Custom kinds have none.
func DefaultPatterns(kind string) []string {
	return defaultPatterns[kind]
}
