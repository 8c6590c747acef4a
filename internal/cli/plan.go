// Package cli — plan.go implements the "renderbuild plan" command.
//
// The plan command resolves the configuration and prints the step
// sequence a build would execute, without invoking any tool. It exists
// so a user editing the manifest can confirm what the platform's build
// pipeline will do before pushing.
package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/renderbuild/internal/config"
	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// planFlags holds the flag values for the plan command.
type planFlags struct {
	configPath string // --config: explicit manifest path
	dir        string // --dir: project directory (default: cwd)
}

// stepPlan describes one step of the would-be build.
type stepPlan struct {
	ID   model.StepID `json:"id"`
	Name string       `json:"name"`
}

// buildPlan is the full resolved plan: the step sequence plus the
// environment variables the orchestrator itself will set. Variable
// values from dotenv files and the manifest are withheld (they may be
// secrets); only the two forced variables show their values.
type buildPlan struct {
	Manifest           string            `json:"manifest,omitempty"`
	Steps              []stepPlan        `json:"steps"`
	ForcedEnv          map[string]string `json:"forcedEnv"`
	ConfiguredEnvNames []string          `json:"configuredEnvNames"`
}

// NewPlanCommand creates the "plan" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewPlanCommand() *cobra.Command {
	flags := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the build steps without executing them",
		Long: `Resolve the manifest (or defaults) and print the ordered step list a
build would execute, together with the environment variables the
orchestrator sets. Nothing is installed, created, or migrated.

Examples:
  renderbuild plan
  renderbuild plan --dir ./backend --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "Manifest path (default: discover in project directory)")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Project directory (default: current directory)")

	return cmd
}

// runPlan resolves the configuration and prints the plan.
func runPlan(flags *planFlags) error {
	projectDir, err := resolveProjectDir(flags.dir)
	if err != nil {
		return err
	}

	cfg, manifestPath, err := config.LoadOrDefault(projectDir, flags.configPath)
	if err != nil {
		return err
	}

	plan := resolvePlan(cfg, manifestPath)
	printPlan(plan)
	return nil
}

// resolvePlan translates a resolved configuration into the plan
// description. The step list here must mirror buildSequence in run.go:
// same steps, same order, same enable/disable rules.
func resolvePlan(cfg *config.Config, manifestPath string) *buildPlan {
	plan := &buildPlan{
		Manifest: manifestPath,
		ForcedEnv: map[string]string{
			model.AppVar:            cfg.App.Module,
			cfg.App.ProfileVariable: cfg.App.Profile,
		},
	}

	if cfg.UpgradePipEnabled() {
		plan.Steps = append(plan.Steps, stepPlan{
			ID:   model.StepUpgradePip,
			Name: "Upgrading pip",
		})
	}

	plan.Steps = append(plan.Steps, stepPlan{
		ID:   model.StepInstall,
		Name: fmt.Sprintf("Installing dependencies from %s", cfg.Python.Requirements),
	})

	if cfg.InstanceDir != "" {
		plan.Steps = append(plan.Steps, stepPlan{
			ID:   model.StepInstanceDir,
			Name: fmt.Sprintf("Ensuring instance directory %s", cfg.InstanceDir),
		})
	}

	if !cfg.Migrate.Skip {
		plan.Steps = append(plan.Steps, stepPlan{
			ID:   model.StepMigrate,
			Name: "Applying database migrations",
		})
	}

	// Configured variable names, without values. Sorted for stable output.
	names := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		names = append(names, k)
	}
	sort.Strings(names)
	plan.ConfiguredEnvNames = names

	return plan
}

// printPlan outputs the plan in text or JSON format, depending on the
// global --json flag.
func printPlan(plan *buildPlan) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(plan, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println(formatPlanText(plan))
}

// formatPlanText renders the human-readable plan.
func formatPlanText(plan *buildPlan) string {
	var b strings.Builder

	if plan.Manifest != "" {
		fmt.Fprintf(&b, "Manifest: %s\n", plan.Manifest)
	} else {
		b.WriteString("Manifest: none (defaults)\n")
	}

	b.WriteString("Steps:\n")
	for i, step := range plan.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step.Name)
	}

	b.WriteString("Environment:\n")
	// Forced variables are printed with values; they identify the app
	// entry point and profile, neither of which is sensitive.
	forcedKeys := make([]string, 0, len(plan.ForcedEnv))
	for k := range plan.ForcedEnv {
		forcedKeys = append(forcedKeys, k)
	}
	sort.Strings(forcedKeys)
	for _, k := range forcedKeys {
		fmt.Fprintf(&b, "  %s=%s\n", k, plan.ForcedEnv[k])
	}
	for _, name := range plan.ConfiguredEnvNames {
		fmt.Fprintf(&b, "  %s=<from manifest>\n", name)
	}

	return strings.TrimRight(b.String(), "\n")
}
