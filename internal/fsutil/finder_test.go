package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanTree(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"lib/libz.so.1", "include/zlib.h", "share/doc/zlib/README"} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0o644))
	}
	require.NoError(t, os.Symlink("libz.so.1", filepath.Join(root, "lib", "libz.so")))
	require.NoError(t, os.Symlink("share", filepath.Join(root, "data")))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	files, err := ScanTree(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"data",
		"include/zlib.h",
		"lib/libz.so",
		"lib/libz.so.1",
		"share/doc/zlib/README",
	}, files)

	t.Run("missing root", func(t *testing.T) {
		files, err := ScanTree(filepath.Join(root, "nope"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestCopyEntry(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "tool"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.Symlink("tool", filepath.Join(src, "alias")))

	require.NoError(t, CopyEntry(filepath.Join(src, "tool"), filepath.Join(dst, "bin", "tool")))
	require.NoError(t, CopyEntry(filepath.Join(src, "alias"), filepath.Join(dst, "bin", "alias")))
	// Copying again overwrites.
	require.NoError(t, CopyEntry(filepath.Join(src, "alias"), filepath.Join(dst, "bin", "alias")))

	info, err := os.Stat(filepath.Join(dst, "bin", "tool"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	target, err := os.Readlink(filepath.Join(dst, "bin", "alias"))
	require.NoError(t, err)
	assert.Equal(t, "tool", target)
}
