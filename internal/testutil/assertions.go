package testutil

import (
	"io/fs"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertBuiltBefore checks that the build of first ended before the build
// of second started.
func AssertBuiltBefore(t *testing.T, b *FakeBuilder, first, second string) {
	t.Helper()
	a, ok := b.Record(first)
	require.True(t, ok, "subproject %q was never built", first)
	c, ok := b.Record(second)
	require.True(t, ok, "subproject %q was never built", second)
	require.False(t, c.Start.Before(a.End),
		"expected %q to finish (%v) before %q started (%v)", first, a.End, second, c.Start)
}

// AssertNotBuilt checks that a subproject's build never started.
func AssertNotBuilt(t *testing.T, b *FakeBuilder, name string) {
	t.Helper()
	_, ok := b.Record(name)
	require.False(t, ok, "subproject %q should not have been built", name)
}

// ListFiles returns the sorted slash-separated relative paths of regular
// files below dir.
func ListFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	slices.Sort(out)
	return out
}
