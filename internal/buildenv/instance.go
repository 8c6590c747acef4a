package buildenv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// EnsureInstanceDir creates the configured instance directory if it does
// not already exist, returning its resolved absolute-or-project-relative
// path. An existing directory is not an error: the operation is
// idempotent, matching `mkdir -p`. An empty instanceDir means the project
// does not use one; the call is a no-op returning "".
//
// The directory holds the application's file-backed storage (a SQLite
// database for projects that use one), which the migration command
// expects to be writable.
func EnsureInstanceDir(projectDir, instanceDir string) (string, error) {
	if instanceDir == "" {
		return "", nil
	}

	path := instanceDir
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectDir, instanceDir)
	}

	// MkdirAll succeeds if the directory already exists and creates any
	// missing parents. It fails if the path exists as a regular file,
	// which is exactly the failure we want surfaced.
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", model.WrapCLIError(model.ExitInstanceDirError,
			fmt.Sprintf("failed to create instance directory %s", path), err)
	}

	return path, nil
}
