package pip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// Installer invokes the package installer CLI. The binary name is
// configurable so projects can target pip3, a virtualenv pip, or an
// absolute path; tests point it at stub executables.
type Installer struct {
	// Bin is the installer binary name or path.
	Bin string

	// Stdout and Stderr receive the tool's output streams. They default
	// to the process's own streams so install progress appears in the
	// build log as it happens.
	Stdout io.Writer
	Stderr io.Writer
}

// NewInstaller creates an Installer for the given binary, streaming tool
// output to the process's stdout/stderr.
func NewInstaller(bin string) *Installer {
	return &Installer{
		Bin:    bin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Resolve checks that the installer binary can be found on PATH (or at
// its configured path), returning the resolved location.
//
// Returns a model.CLIError with ExitToolNotFound if the binary is missing.
func (i *Installer) Resolve() (string, error) {
	path, err := exec.LookPath(i.Bin)
	if err != nil {
		return "", model.WrapCLIError(model.ExitToolNotFound,
			fmt.Sprintf("package installer %q not found on PATH", i.Bin), err)
	}
	return path, nil
}

// SelfUpgrade upgrades the installer to its latest release
// (`pip install --upgrade pip`). Run first so dependency resolution uses
// current resolver behavior rather than whatever the build image shipped.
func (i *Installer) SelfUpgrade(ctx context.Context, dir string, env []string) error {
	return i.run(ctx, dir, env, "install", "--upgrade", "pip")
}

// Install installs the dependencies declared in the requirements manifest
// (`pip install -r <file>`). The requirements path is resolved by pip
// relative to dir.
func (i *Installer) Install(ctx context.Context, dir string, env []string, requirementsFile string) error {
	return i.run(ctx, dir, env, "install", "-r", requirementsFile)
}

// run executes the installer with the given arguments in the specified
// directory with the specified environment.
//
// On a non-zero exit the tool's own exit code is propagated inside a
// model.CLIError; when the tool could not be started at all (not found,
// not executable) the error carries ExitToolNotFound.
func (i *Installer) run(ctx context.Context, dir string, env []string, args ...string) error {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, i.Bin, args...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = i.Stdout
	cmd.Stderr = i.Stderr
	// After cancellation, don't wait forever for output pipes held open
	// by the tool's own child processes.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("%s %s failed", i.Bin, strings.Join(args, " "))

		// A started-but-failed tool carries its exit status; that status
		// is the build's exit status per fail-fast propagation.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return model.WrapCLIError(model.ExitCode(exitErr.ExitCode()), message, err)
		}

		// The tool never ran (missing binary, permission problem).
		return model.WrapCLIError(model.ExitToolNotFound, message, err)
	}

	return nil
}
