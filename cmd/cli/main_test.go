package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/layerstage/internal/cli"
	"github.com/specialistvlad/layerstage/internal/testutil"
)

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return cli.ExitOK
	}
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "expected *cli.ExitError, got %T: %v", err, err)
	return exitErr.Code
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	assert.Equal(t, cli.ExitInvalid, exitCode(t, err))
	assert.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_InvalidManifest(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{"layer.hcl": "layer {\n  staging_root = \n"})
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"verify", filepath.Join(dir, "layer.hcl")})

	assert.Equal(t, cli.ExitInvalid, exitCode(t, err))
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestRun_EmptyLayerPasses(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := testutil.WriteTree(t, map[string]string{"layer.hcl": testutil.LayerHCL(t, root)})
	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"verify", "--env-file", "", "-o", "json", dir})

	assert.Equal(t, cli.ExitOK, exitCode(t, err))
	assert.Contains(t, out.String(), `"ok": true`)
}

func TestRun_StagingRootMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "absent")
	dir := testutil.WriteTree(t, map[string]string{"layer.hcl": testutil.LayerHCL(t, missing)})
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"verify", "--env-file", "", dir})

	assert.Equal(t, cli.ExitInvalid, exitCode(t, err))
}

func TestRun_CancelledRunFails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := testutil.WriteTree(t, map[string]string{
		"layer.hcl": testutil.LayerHCL(t, root, `dependency "numpy" {}`, `platform { tag = "cp312-x86_64-linux" }`),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, &bytes.Buffer{}, &bytes.Buffer{}, []string{"verify", "--env-file", "", dir})
	assert.Equal(t, cli.ExitFailed, exitCode(t, err))
}
