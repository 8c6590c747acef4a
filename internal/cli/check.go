// Package cli — check.go implements the "renderbuild check" command.
//
// The check command is a preflight for the build phase: it verifies the
// manifest parses, the requirements file exists, and the external tools
// (pip, flask) are resolvable: everything that can be validated without
// touching the network or the database. A failing check exits non-zero
// so CI can gate on it.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/renderbuild/internal/config"
	"github.com/mmr-tortoise/renderbuild/internal/migrate"
	"github.com/mmr-tortoise/renderbuild/internal/model"
	"github.com/mmr-tortoise/renderbuild/internal/pip"
)

// checkFlags holds the flag values for the check command.
type checkFlags struct {
	configPath string // --config: explicit manifest path
	dir        string // --dir: project directory (default: cwd)
}

// checkResult records the outcome of a single preflight check.
type checkResult struct {
	// Name identifies the check (e.g., "manifest", "pip").
	Name string `json:"name"`

	// OK reports whether the check passed.
	OK bool `json:"ok"`

	// Detail is a short human-readable note: the resolved path for a
	// passing check, the failure reason otherwise.
	Detail string `json:"detail,omitempty"`

	// code is the exit code this failure maps to. Unexported: it is
	// orchestration state, not output.
	code model.ExitCode
}

// NewCheckCommand creates the "check" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCheckCommand() *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Preflight the build phase without running it",
		Long: `Verify that a build would be able to start: the manifest parses and
validates, the requirements file exists, and the pip and flask binaries
resolve on PATH. No tool is executed and nothing is modified.

Examples:
  renderbuild check
  renderbuild check --dir ./backend --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "Manifest path (default: discover in project directory)")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Project directory (default: current directory)")

	return cmd
}

// runCheck performs the preflight checks and reports the results.
// All checks run even after a failure so the user sees the complete
// picture in one invocation; the exit code reflects the first failure.
func runCheck(flags *checkFlags) error {
	projectDir, err := resolveProjectDir(flags.dir)
	if err != nil {
		return err
	}

	var results []checkResult

	// Check 1: manifest. An absent manifest passes (defaults apply);
	// a present-but-invalid manifest fails.
	cfg, manifestPath, cfgErr := config.LoadOrDefault(projectDir, flags.configPath)
	switch {
	case cfgErr != nil:
		results = append(results, checkResult{
			Name:   "manifest",
			OK:     false,
			Detail: cfgErr.Error(),
			code:   model.ExitConfigError,
		})
		// Without a configuration the remaining checks have nothing to
		// check against; report what we have.
		printCheckResults(results)
		return model.NewCLIError(model.ExitConfigError, "preflight failed: manifest")
	case manifestPath != "":
		results = append(results, checkResult{Name: "manifest", OK: true, Detail: manifestPath})
	default:
		results = append(results, checkResult{Name: "manifest", OK: true, Detail: "none (defaults)"})
	}

	// Check 2: requirements file.
	reqPath := cfg.Python.Requirements
	if !filepath.IsAbs(reqPath) {
		reqPath = filepath.Join(projectDir, reqPath)
	}
	if _, statErr := os.Stat(reqPath); statErr != nil {
		results = append(results, checkResult{
			Name:   "requirements",
			OK:     false,
			Detail: fmt.Sprintf("not found: %s", reqPath),
			code:   model.ExitConfigError,
		})
	} else {
		results = append(results, checkResult{Name: "requirements", OK: true, Detail: reqPath})
	}

	// Check 3: package installer binary.
	if path, resolveErr := pip.NewInstaller(cfg.Python.Pip).Resolve(); resolveErr != nil {
		results = append(results, checkResult{
			Name:   "pip",
			OK:     false,
			Detail: resolveErr.Error(),
			code:   model.ExitToolNotFound,
		})
	} else {
		results = append(results, checkResult{Name: "pip", OK: true, Detail: path})
	}

	// Check 4: migration CLI binary, unless migration is disabled.
	if cfg.Migrate.Skip {
		results = append(results, checkResult{Name: "flask", OK: true, Detail: "skipped (migrate.skip)"})
	} else if path, resolveErr := migrate.NewRunner(cfg.Migrate.Flask, cfg.App.ProfileVariable).Resolve(); resolveErr != nil {
		results = append(results, checkResult{
			Name:   "flask",
			OK:     false,
			Detail: resolveErr.Error(),
			code:   model.ExitToolNotFound,
		})
	} else {
		results = append(results, checkResult{Name: "flask", OK: true, Detail: path})
	}

	printCheckResults(results)

	if failed := firstFailedCheck(results); failed != nil {
		return model.NewCLIError(failed.code, fmt.Sprintf("preflight failed: %s", failed.Name))
	}
	return nil
}

// firstFailedCheck returns the first failing result, or nil if all passed.
func firstFailedCheck(results []checkResult) *checkResult {
	for i := range results {
		if !results[i].OK {
			return &results[i]
		}
	}
	return nil
}

// printCheckResults outputs the check results in text or JSON format,
// depending on the global --json flag.
func printCheckResults(results []checkResult) {
	if IsJSONOutput() {
		type resultJSON struct {
			Checks []checkResult `json:"checks"`
			OK     bool          `json:"ok"`
		}
		out := resultJSON{Checks: results, OK: firstFailedCheck(results) == nil}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println(formatCheckText(results))
}

// formatCheckText renders the human-readable check table.
//
// Example:
//
//	ok    manifest      /app/renderbuild.yaml
//	ok    requirements  /app/requirements.txt
//	FAIL  flask         migration CLI "flask" not found on PATH
func formatCheckText(results []checkResult) string {
	var b strings.Builder
	for _, r := range results {
		verdict := "ok  "
		if !r.OK {
			verdict = "FAIL"
		}
		fmt.Fprintf(&b, "%s  %-13s %s\n", verdict, r.Name, r.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}
