package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Workspace is a temporary directory holding declarations and, below
// BuildRoot, the per-target build trees.
type Workspace struct {
	Root string
}

// NewWorkspace writes files (relative path to content) into a fresh
// temporary directory.
func NewWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	w := &Workspace{Root: t.TempDir()}
	for name, content := range files {
		w.WriteFile(t, name, content)
	}
	return w
}

// WriteFile creates a file below the workspace root.
func (w *Workspace) WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(w.Root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Root}, elem...)...)
}

// StageDir is the default install tree of a subproject, for declarations
// that keep build_root at its default.
func (w *Workspace) StageDir(target, subproject string) string {
	return w.Path("build", target, "stage", subproject)
}

// Install populates a subproject's default install tree with empty files.
func (w *Workspace) Install(t *testing.T, target, subproject string, files ...string) {
	t.Helper()
	InstallFiles(t, w.StageDir(target, subproject), files...)
}

// InstallFiles creates empty files below dir.
func InstallFiles(t *testing.T, dir string, files ...string) {
	t.Helper()
	require.NoError(t, installFiles(dir, files))
}
