// Package cli — run.go implements the "renderbuild run" command.
//
// The run command is the build phase itself: the hosting platform invokes
// it once per deployment, before starting the application server.
//
// Orchestration steps:
//  1. Resolve the project directory and load the manifest (or defaults)
//  2. Assemble the child environment (dotenv files, manifest env,
//     process env, forced FLASK_APP + profile variable)
//  3. Build the step sequence from the resolved configuration
//  4. Execute the sequence fail-fast
//  5. Output the build report (text or JSON)
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/renderbuild/internal/buildenv"
	"github.com/mmr-tortoise/renderbuild/internal/config"
	"github.com/mmr-tortoise/renderbuild/internal/migrate"
	"github.com/mmr-tortoise/renderbuild/internal/model"
	"github.com/mmr-tortoise/renderbuild/internal/pip"
	"github.com/mmr-tortoise/renderbuild/internal/runner"
)

// roundTo is the precision used when rendering durations in summaries.
// Sub-tenth-of-a-second noise adds nothing to a build log.
const roundTo = 100 * time.Millisecond

// runFlags holds the flag values for the run command.
// These are bound to cobra flags in NewRunCommand.
type runFlags struct {
	configPath   string // --config: explicit manifest path
	dir          string // --dir: project directory (default: cwd)
	skipMigrate  bool   // --skip-migrate: leave the database untouched
	noUpgradePip bool   // --no-upgrade-pip: keep the image's pip version
}

// NewRunCommand creates the "run" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the build phase (install dependencies, migrate)",
		Long: `Execute the full build-phase sequence for the project:

  1. Upgrade pip
  2. Install dependencies from the requirements manifest
  3. Ensure the instance directory exists (when configured)
  4. Apply pending database migrations (flask db upgrade)

The sequence is fail-fast: the first failing step aborts the build and
its exit code becomes the process exit code, so the platform never
deploys against a partially provisioned environment.

Examples:
  renderbuild run
  renderbuild run --dir ./backend
  renderbuild run --skip-migrate
  renderbuild run --json`,

		// No positional arguments; everything comes from flags and the manifest.
		Args: cobra.NoArgs,

		// RunE is used instead of Run so we can return errors. Cobra will
		// pass them to the Execute error handler in root.go.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Manifest path (default: discover in project directory)")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Project directory (default: current directory)")
	cmd.Flags().BoolVar(&flags.skipMigrate, "skip-migrate", false, "Skip the database migration step")
	cmd.Flags().BoolVar(&flags.noUpgradePip, "no-upgrade-pip", false, "Skip the pip self-upgrade step")

	return cmd
}

// runRun is the main orchestration function for the run command.
func runRun(ctx context.Context, flags *runFlags) error {
	// Step 1: Resolve the project directory and configuration.
	projectDir, err := resolveProjectDir(flags.dir)
	if err != nil {
		return err
	}
	VerboseLog("Project directory: %s", projectDir)

	cfg, manifestPath, err := config.LoadOrDefault(projectDir, flags.configPath)
	if err != nil {
		return err
	}
	if manifestPath != "" {
		VerboseLog("Manifest: %s", manifestPath)
	} else {
		VerboseLog("No manifest found, using defaults")
	}

	// Flag overrides apply on top of the manifest.
	if flags.skipMigrate {
		cfg.Migrate.Skip = true
	}
	if flags.noUpgradePip {
		disabled := false
		cfg.Python.UpgradePip = &disabled
	}

	// Step 2: Assemble the child environment up front so a broken dotenv
	// file fails the build before any tool runs.
	env, err := buildenv.Assemble(projectDir, cfg)
	if err != nil {
		return err
	}
	VerboseLog("Assembled %d environment variables", len(env))

	// Step 3: Construct the tool wrappers and the step sequence.
	// In JSON mode, stdout is reserved for the report, so tool output
	// streams to stderr instead.
	toolOut := io.Writer(os.Stdout)
	if IsJSONOutput() {
		toolOut = os.Stderr
	}

	installer := pip.NewInstaller(cfg.Python.Pip)
	installer.Stdout = toolOut

	migrator := migrate.NewRunner(cfg.Migrate.Flask, cfg.App.ProfileVariable)
	migrator.Stdout = toolOut
	if timeout, timeoutErr := cfg.MigrateTimeout(); timeoutErr == nil {
		migrator.Timeout = timeout
	}

	steps := buildSequence(projectDir, cfg, env, installer, migrator)

	// Step 4: Execute fail-fast, bracketing each step with a banner.
	eng := runner.New(steps)
	eng.OnStepStart = func(step runner.Step) {
		fmt.Fprintf(bannerWriter(), "==> %s\n", step.Name)
	}

	report, runErr := eng.Run(ctx)

	// Step 5: Output the report. In JSON mode the report is printed even
	// for a failed build; the error object still goes to stderr with the
	// proper exit code via root.go.
	printRunReport(report)

	return runErr
}

// buildSequence translates the resolved configuration into the ordered
// step list. Step order is fixed; configuration only enables or disables
// individual steps.
func buildSequence(projectDir string, cfg *config.Config, env []string, installer *pip.Installer, migrator *migrate.Runner) []runner.Step {
	var steps []runner.Step

	if cfg.UpgradePipEnabled() {
		steps = append(steps, runner.Step{
			ID:   model.StepUpgradePip,
			Name: "Upgrading pip",
			Run: func(ctx context.Context) error {
				return installer.SelfUpgrade(ctx, projectDir, env)
			},
		})
	}

	steps = append(steps, runner.Step{
		ID:   model.StepInstall,
		Name: fmt.Sprintf("Installing dependencies from %s", cfg.Python.Requirements),
		Run: func(ctx context.Context) error {
			return installer.Install(ctx, projectDir, env, cfg.Python.Requirements)
		},
	})

	if cfg.InstanceDir != "" {
		steps = append(steps, runner.Step{
			ID:   model.StepInstanceDir,
			Name: fmt.Sprintf("Ensuring instance directory %s", cfg.InstanceDir),
			Run: func(ctx context.Context) error {
				_, err := buildenv.EnsureInstanceDir(projectDir, cfg.InstanceDir)
				return err
			},
		})
	}

	if !cfg.Migrate.Skip {
		steps = append(steps, runner.Step{
			ID:   model.StepMigrate,
			Name: "Applying database migrations",
			Run: func(ctx context.Context) error {
				return migrator.Upgrade(ctx, projectDir, env)
			},
		})
	}

	return steps
}

// resolveProjectDir turns the --dir flag (or the working directory) into
// an absolute path, verifying it exists and is a directory.
func resolveProjectDir(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
		}
		return cwd, nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to resolve project directory %s", dir), err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("project directory not found: %s", abs), err)
	}
	if !info.IsDir() {
		return "", model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("project path is not a directory: %s", abs))
	}

	return abs, nil
}

// bannerWriter returns the stream step banners are written to: stdout for
// human output, stderr when stdout is reserved for JSON.
func bannerWriter() io.Writer {
	if IsJSONOutput() {
		return os.Stderr
	}
	return os.Stdout
}

// printRunReport outputs the build report in text or JSON format,
// depending on the global --json flag.
func printRunReport(report *model.BuildReport) {
	if IsJSONOutput() {
		// MarshalIndent produces human-readable JSON with 2-space indentation.
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println(formatRunSummary(report))
}

// formatRunSummary renders the human-readable end-of-build summary.
//
// Example:
//
//	Build abc123 succeeded in 42s
//	  upgrade-pip   succeeded  (3.1s)
//	  install-deps  succeeded  (38.2s)
//	  migrate       succeeded  (0.7s)
func formatRunSummary(report *model.BuildReport) string {
	verdict := "succeeded"
	if !report.Succeeded {
		verdict = "failed"
	}

	out := fmt.Sprintf("Build %s %s in %s\n", report.BuildID, verdict, report.Duration.Round(roundTo))

	for _, step := range report.Steps {
		line := fmt.Sprintf("  %-14s %-9s", step.ID, step.Status)
		if step.Status != model.StatusSkipped {
			line += fmt.Sprintf("  (%s)", step.Duration.Round(roundTo))
		}
		if step.Error != "" {
			line += fmt.Sprintf("  %s", step.Error)
		}
		out += line + "\n"
	}

	return out
}
