package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/superbuild/internal/cli"
)

func TestRun_Help(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"--help"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "superbuild")
	assert.Contains(t, out.String(), "package")
}

func TestRun_DeclarationErrorExitsWithUsageCode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.hcl"), []byte(`subproject "a" {`), 0o600))

	errOut := &bytes.Buffer{}
	err := run(context.Background(), &bytes.Buffer{}, errOut, []string{"--config", dir, "graph"})
	require.Error(t, err)
	assert.Equal(t, cli.ExitUsage, exitCode(err, errOut))
	assert.Contains(t, errOut.String(), "main.hcl")
}

func TestExitCode(t *testing.T) {
	buf := &bytes.Buffer{}
	assert.Equal(t, 0, exitCode(nil, buf))
	assert.Equal(t, 5, exitCode(&cli.ExitError{Code: 5, Message: "conflict"}, buf))
	assert.Equal(t, 1, exitCode(errors.New("boom"), buf))
	assert.Equal(t, "conflict\nboom\n", buf.String())
}
