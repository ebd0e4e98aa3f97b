package extract

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
}

func TestRunCapturesStdout(t *testing.T) {
	skipOnWindows(t)
	script := writeScript(t, `echo "out $1"; echo "noise" >&2`)

	out, err := NewExecRunner(false, nil).Run(script, "LIST")
	require.NoError(t, err)
	assert.Equal(t, "out LIST\n", out)
}

func TestRunNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	script := writeScript(t, `echo partial; exit 3`)

	out, err := NewExecRunner(false, nil).Run(script)
	require.NoError(t, err)
	assert.Equal(t, "partial\n", out)

	_, err = NewExecRunner(true, nil).Run(script)
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, script, execErr.Command)
}

func TestRunMissingBinary(t *testing.T) {
	_, err := NewExecRunner(false, nil).Run(filepath.Join(t.TempDir(), "missing"))
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestCheckExecutable(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	exe := writeScript(t, "true")
	assert.NoError(t, CheckExecutable(exe))

	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0644))

	for _, path := range []string{plain, dir, filepath.Join(dir, "missing")} {
		err := CheckExecutable(path)
		var execErr *ExecutionError
		assert.ErrorAs(t, err, &execErr, path)
	}
}

func TestCommandExists(t *testing.T) {
	skipOnWindows(t)
	assert.True(t, CommandExists("sh"))
	assert.False(t, CommandExists("definitely_does_not_exist_command_12345"))
}
