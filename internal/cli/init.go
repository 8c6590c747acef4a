// Package cli — init.go implements the "renderbuild init" command.
//
// The init command writes a starter manifest into the project directory
// so users begin from a documented template instead of a blank file.
// Every value in the template matches the built-in defaults, so the
// freshly written manifest changes nothing until edited.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// starterManifest is the template written by init. Comments document
// each setting inline; the values are the defaults.
const starterManifest = `# renderbuild manifest
# Every setting is optional; the values below are the defaults.

app:
  # Application entry point, exported as FLASK_APP.
  module: run.py
  # Configuration profile, exported via profileVariable.
  profile: prod
  # FLASK_CONFIG or FLASK_ENV, whichever the app's config loader reads.
  profileVariable: FLASK_CONFIG

python:
  pip: pip
  upgradePip: true
  requirements: requirements.txt

migrate:
  flask: flask
  skip: false
  # Bound the migration run, e.g. "5m". Empty means no bound.
  timeout: ""

# Directory created before migration (for file-backed storage such as a
# SQLite database). Leave unset if the app does not need one.
# instanceDir: instance

# Extra variables for the build environment. The platform's own
# environment always takes precedence.
# env:
#   PIP_INDEX_URL: https://mirror.example/simple

# Dotenv files loaded into the build environment.
# envFiles:
#   - .env
`

// initFlags holds the flag values for the init command.
type initFlags struct {
	dir   string // --dir: project directory (default: cwd)
	force bool   // --force: overwrite an existing manifest
}

// NewInitCommand creates the "init" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter manifest (renderbuild.yaml)",
		Long: `Write a commented starter manifest into the project directory. The
generated values match the built-in defaults, so the new manifest is a
documentation starting point, not a behavior change.

Refuses to overwrite an existing renderbuild.yaml unless --force is given.

Examples:
  renderbuild init
  renderbuild init --dir ./backend --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(flags)
		},
	}

	cmd.Flags().StringVar(&flags.dir, "dir", "", "Project directory (default: current directory)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite an existing manifest")

	return cmd
}

// runInit writes the starter manifest, guarding against overwrites.
func runInit(flags *initFlags) error {
	projectDir, err := resolveProjectDir(flags.dir)
	if err != nil {
		return err
	}

	path := filepath.Join(projectDir, "renderbuild.yaml")

	if _, statErr := os.Stat(path); statErr == nil && !flags.force {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%s already exists (use --force to overwrite)", path))
	}

	if writeErr := os.WriteFile(path, []byte(starterManifest), 0644); writeErr != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write %s", path), writeErr)
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}
