package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mmr-tortoise/renderbuild/internal/buildenv"
	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// Runner invokes the Flask migration CLI. The binary name is configurable
// for virtualenv installs and test stubs.
type Runner struct {
	// Bin is the migration CLI binary name or path.
	Bin string

	// ProfileVariable is the environment variable carrying the active
	// configuration profile (FLASK_CONFIG or FLASK_ENV). Upgrade
	// requires it to be present in the child environment.
	ProfileVariable string

	// Timeout bounds a single migration run. Zero means no bound; the
	// hosting platform enforces its own overall build timeout.
	Timeout time.Duration

	// Stdout and Stderr receive the tool's output streams. They default
	// to the process's own streams so migration output appears in the
	// build log as it happens.
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner creates a Runner for the given binary and profile variable,
// streaming tool output to the process's stdout/stderr.
func NewRunner(bin, profileVariable string) *Runner {
	return &Runner{
		Bin:             bin,
		ProfileVariable: profileVariable,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	}
}

// Resolve checks that the migration CLI binary can be found on PATH (or
// at its configured path), returning the resolved location.
//
// Returns a model.CLIError with ExitToolNotFound if the binary is missing.
func (r *Runner) Resolve() (string, error) {
	path, err := exec.LookPath(r.Bin)
	if err != nil {
		return "", model.WrapCLIError(model.ExitToolNotFound,
			fmt.Sprintf("migration CLI %q not found on PATH", r.Bin), err)
	}
	return path, nil
}

// Upgrade applies pending schema changes (`flask db upgrade`) in dir with
// the given environment.
//
// The environment must already carry FLASK_APP and the profile variable;
// the migration CLI cannot locate the application or its configuration
// without them, so their absence is rejected here (ExitEnvError) instead
// of surfacing as an opaque tool failure.
func (r *Runner) Upgrade(ctx context.Context, dir string, env []string) error {
	for _, required := range []string{model.AppVar, r.ProfileVariable} {
		if _, ok := buildenv.Lookup(env, required); !ok {
			return model.NewCLIError(model.ExitEnvError,
				fmt.Sprintf("required variable %s is not set in the build environment", required))
		}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	return r.run(ctx, dir, env, "db", "upgrade")
}

// run executes the migration CLI with the given arguments, propagating
// the tool's exit code on failure.
func (r *Runner) run(ctx context.Context, dir string, env []string, args ...string) error {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, r.Bin, args...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	// After cancellation, don't wait forever for output pipes held open
	// by the tool's own child processes.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("%s %s failed", r.Bin, strings.Join(args, " "))

		// Distinguish a timeout/cancellation from the tool's own failure
		// so the build log names the actual cause.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("%s: %v", message, ctxErr), err)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return model.WrapCLIError(model.ExitCode(exitErr.ExitCode()), message, err)
		}

		return model.WrapCLIError(model.ExitToolNotFound, message, err)
	}

	return nil
}
