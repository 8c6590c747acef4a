package migrate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// baseEnv returns a minimal valid build environment for migration tests.
func baseEnv() []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"FLASK_APP=run.py",
		"FLASK_CONFIG=prod",
	}
}

// writeStub creates a fake flask executable that records its arguments
// and environment, then exits with the given code.
func writeStub(t *testing.T, dir string, exitCode int) (binPath, argsFile string) {
	t.Helper()

	argsFile = filepath.Join(dir, "flask.args")
	binPath = filepath.Join(dir, "flask")

	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"env >> " + argsFile + ".env\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(binPath, []byte(script), 0755))
	return binPath, argsFile
}

// newTestRunner builds a Runner pointed at a stub with captured output.
func newTestRunner(bin string) *Runner {
	r := NewRunner(bin, model.ProfileVarConfig)
	r.Stdout = &bytes.Buffer{}
	r.Stderr = &bytes.Buffer{}
	return r
}

// TestUpgrade verifies the exact migration invocation and that the
// assembled environment reaches the child process.
func TestUpgrade(t *testing.T) {
	dir := t.TempDir()
	bin, argsFile := writeStub(t, dir, 0)

	r := newTestRunner(bin)
	require.NoError(t, r.Upgrade(context.Background(), dir, baseEnv()))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "db upgrade", strings.TrimSpace(string(args)))

	childEnv, err := os.ReadFile(argsFile + ".env")
	require.NoError(t, err)
	assert.Contains(t, string(childEnv), "FLASK_APP=run.py")
	assert.Contains(t, string(childEnv), "FLASK_CONFIG=prod")
}

// TestUpgrade_RequiresEnvVariables checks that a missing FLASK_APP or
// profile variable is rejected before the tool is ever invoked.
func TestUpgrade_RequiresEnvVariables(t *testing.T) {
	dir := t.TempDir()
	bin, argsFile := writeStub(t, dir, 0)

	tests := []struct {
		name string
		env  []string
	}{
		{"missing FLASK_APP", []string{"PATH=" + os.Getenv("PATH"), "FLASK_CONFIG=prod"}},
		{"missing profile variable", []string{"PATH=" + os.Getenv("PATH"), "FLASK_APP=run.py"}},
		{"empty environment", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(bin)
			err := r.Upgrade(context.Background(), dir, tt.env)
			require.Error(t, err)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitEnvError, cliErr.Code)

			// The tool must never have started.
			_, statErr := os.Stat(argsFile)
			assert.True(t, os.IsNotExist(statErr), "flask should not have been invoked")
		})
	}
}

// TestUpgrade_ProfileVariableVariant verifies the FLASK_ENV configuration.
func TestUpgrade_ProfileVariableVariant(t *testing.T) {
	dir := t.TempDir()
	bin, _ := writeStub(t, dir, 0)

	r := newTestRunner(bin)
	r.ProfileVariable = model.ProfileVarEnv

	env := []string{"PATH=" + os.Getenv("PATH"), "FLASK_APP=run.py", "FLASK_ENV=production"}
	require.NoError(t, r.Upgrade(context.Background(), dir, env))

	// FLASK_CONFIG alone no longer satisfies the requirement.
	err := r.Upgrade(context.Background(), dir, baseEnv())
	require.Error(t, err)
}

// TestUpgrade_PropagatesExitCode verifies a failed migration surfaces the
// tool's own exit status.
func TestUpgrade_PropagatesExitCode(t *testing.T) {
	dir := t.TempDir()
	bin, _ := writeStub(t, dir, 3)

	r := newTestRunner(bin)
	err := r.Upgrade(context.Background(), dir, baseEnv())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitCode(3), cliErr.Code)
	assert.Contains(t, cliErr.Message, "db upgrade failed")
}

// TestUpgrade_Timeout verifies that a configured timeout kills a hung
// migration and reports the deadline rather than an opaque tool failure.
func TestUpgrade_Timeout(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "flask")
	script := "#!/bin/sh\nsleep 10\n"
	require.NoError(t, os.WriteFile(binPath, []byte(script), 0755))

	r := newTestRunner(binPath)
	r.Timeout = 100 * time.Millisecond

	start := time.Now()
	err := r.Upgrade(context.Background(), dir, baseEnv())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "timeout should fire well before the sleep ends")
	assert.Contains(t, err.Error(), "deadline")
}

// TestResolve covers found and missing migration binaries.
func TestResolve(t *testing.T) {
	dir := t.TempDir()
	bin, _ := writeStub(t, dir, 0)

	resolved, err := newTestRunner(bin).Resolve()
	require.NoError(t, err)
	assert.Equal(t, bin, resolved)

	_, err = newTestRunner("definitely-not-a-real-flask-binary").Resolve()
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitToolNotFound, cliErr.Code)
}
