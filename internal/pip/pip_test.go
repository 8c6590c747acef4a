package pip

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// writeStub creates a fake executable in dir that records its arguments
// to an args file and exits with the given code. Tests point Installer.Bin
// at the returned path, so no real pip is needed.
func writeStub(t *testing.T, dir, name string, exitCode int) (binPath, argsFile string) {
	t.Helper()

	argsFile = filepath.Join(dir, name+".args")
	binPath = filepath.Join(dir, name)

	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"env >> " + argsFile + ".env\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(binPath, []byte(script), 0755))
	return binPath, argsFile
}

// readRecordedArgs returns the arguments the stub was invoked with.
func readRecordedArgs(t *testing.T, argsFile string) string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

// TestSelfUpgrade verifies the exact installer invocation for the pip
// self-upgrade step.
func TestSelfUpgrade(t *testing.T) {
	dir := t.TempDir()
	bin, argsFile := writeStub(t, dir, "pip", 0)

	inst := NewInstaller(bin)
	inst.Stdout = &bytes.Buffer{}
	inst.Stderr = &bytes.Buffer{}

	err := inst.SelfUpgrade(context.Background(), dir, []string{"PATH=" + os.Getenv("PATH")})
	require.NoError(t, err)
	assert.Equal(t, "install --upgrade pip", readRecordedArgs(t, argsFile))
}

// TestInstall verifies the dependency installation invocation.
func TestInstall(t *testing.T) {
	dir := t.TempDir()
	bin, argsFile := writeStub(t, dir, "pip", 0)

	inst := NewInstaller(bin)
	inst.Stdout = &bytes.Buffer{}
	inst.Stderr = &bytes.Buffer{}

	err := inst.Install(context.Background(), dir, []string{"PATH=" + os.Getenv("PATH")}, "requirements.txt")
	require.NoError(t, err)
	assert.Equal(t, "install -r requirements.txt", readRecordedArgs(t, argsFile))
}

// TestInstall_EnvPassedToChild checks that the assembled environment
// reaches the child process.
func TestInstall_EnvPassedToChild(t *testing.T) {
	dir := t.TempDir()
	bin, argsFile := writeStub(t, dir, "pip", 0)

	inst := NewInstaller(bin)
	inst.Stdout = &bytes.Buffer{}
	inst.Stderr = &bytes.Buffer{}

	env := []string{"PATH=" + os.Getenv("PATH"), "PIP_INDEX_URL=https://mirror.example/simple"}
	require.NoError(t, inst.Install(context.Background(), dir, env, "requirements.txt"))

	recorded, err := os.ReadFile(argsFile + ".env")
	require.NoError(t, err)
	assert.Contains(t, string(recorded), "PIP_INDEX_URL=https://mirror.example/simple")
}

// TestRun_PropagatesExitCode verifies that a failing tool's own exit code
// surfaces in the CLIError, not a generic category.
func TestRun_PropagatesExitCode(t *testing.T) {
	dir := t.TempDir()
	bin, _ := writeStub(t, dir, "pip", 7)

	inst := NewInstaller(bin)
	inst.Stdout = &bytes.Buffer{}
	inst.Stderr = &bytes.Buffer{}

	err := inst.Install(context.Background(), dir, []string{"PATH=" + os.Getenv("PATH")}, "requirements.txt")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitCode(7), cliErr.Code)
	assert.Contains(t, cliErr.Message, "install -r requirements.txt failed")
}

// TestRun_MissingBinary verifies the not-started failure path.
func TestRun_MissingBinary(t *testing.T) {
	inst := NewInstaller(filepath.Join(t.TempDir(), "no-such-pip"))
	inst.Stdout = &bytes.Buffer{}
	inst.Stderr = &bytes.Buffer{}

	err := inst.SelfUpgrade(context.Background(), t.TempDir(), nil)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitToolNotFound, cliErr.Code)
}

// TestResolve covers both the found and missing cases.
func TestResolve(t *testing.T) {
	dir := t.TempDir()
	bin, _ := writeStub(t, dir, "pip", 0)

	t.Run("found by path", func(t *testing.T) {
		resolved, err := NewInstaller(bin).Resolve()
		require.NoError(t, err)
		assert.Equal(t, bin, resolved)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewInstaller("definitely-not-a-real-pip-binary").Resolve()
		require.Error(t, err)

		var cliErr *model.CLIError
		require.True(t, errors.As(err, &cliErr))
		assert.Equal(t, model.ExitToolNotFound, cliErr.Code)
	})
}
