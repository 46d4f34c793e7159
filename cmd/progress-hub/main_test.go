package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCompleteAndReset_SQLite(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "progress.db"))
	t.Setenv("LOG_LEVEL", "error")

	out, err := runCmd(t, "complete", "challenge-dictation-wizard")
	require.NoError(t, err)
	assert.Equal(t, "challenge-1 completed (score 150, 1 challenges)\n", out)

	out, err = runCmd(t, "complete", "challenge-1")
	require.NoError(t, err)
	assert.Equal(t, "challenge-1 already completed (score 150, 1 challenges)\n", out)

	_, err = runCmd(t, "reset")
	assert.Error(t, err)

	out, err = runCmd(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "progress reset\n", out)

	out, err = runCmd(t, "complete", "challenge-1")
	require.NoError(t, err)
	assert.Equal(t, "challenge-1 completed (score 150, 1 challenges)\n", out)
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "floppy")

	_, err := runCmd(t, "complete", "challenge-1")
	assert.Error(t, err)
}
