package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// Default values applied by ApplyDefaults. They reproduce the conventional
// Flask build phase so that a project with no manifest builds correctly.
const (
	// DefaultAppModule is the application entry point exported as FLASK_APP.
	DefaultAppModule = "run.py"

	// DefaultProfile is the configuration profile exported via the profile
	// variable. The build phase targets production deployments.
	DefaultProfile = "prod"

	// DefaultPipBin is the package installer binary name.
	DefaultPipBin = "pip"

	// DefaultFlaskBin is the migration CLI binary name.
	DefaultFlaskBin = "flask"

	// DefaultRequirements is the dependency manifest file name.
	DefaultRequirements = "requirements.txt"
)

// AppConfig identifies the Flask application and configuration profile the
// migration CLI should load.
type AppConfig struct {
	// Module is the application entry point, exported as FLASK_APP.
	Module string `yaml:"module" json:"module"`

	// Profile is the configuration profile name, exported via
	// ProfileVariable (e.g., "prod", "dev", "test").
	Profile string `yaml:"profile" json:"profile"`

	// ProfileVariable is the environment variable name carrying the
	// profile. Must be FLASK_CONFIG (application factory convention)
	// or FLASK_ENV (framework legacy switch).
	ProfileVariable string `yaml:"profileVariable" json:"profileVariable"`
}

// PythonConfig controls the dependency installation steps.
type PythonConfig struct {
	// Pip is the package installer binary name or path.
	Pip string `yaml:"pip" json:"pip"`

	// UpgradePip controls whether pip upgrades itself before installing
	// dependencies. Enabled by default; a nil pointer means "unset" so
	// ApplyDefaults can distinguish false from absent.
	UpgradePip *bool `yaml:"upgradePip" json:"upgradePip"`

	// Requirements is the dependency manifest file, relative to the
	// project directory.
	Requirements string `yaml:"requirements" json:"requirements"`
}

// MigrateConfig controls the database migration step.
type MigrateConfig struct {
	// Flask is the migration CLI binary name or path.
	Flask string `yaml:"flask" json:"flask"`

	// Skip disables the migration step entirely.
	Skip bool `yaml:"skip" json:"skip"`

	// Timeout bounds the migration command's run time, as a Go duration
	// string (e.g., "5m"). Empty or "0" means no timeout; the hosting
	// platform enforces its own overall build timeout.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// Config is the parsed build manifest. Zero value + ApplyDefaults yields
// a fully usable configuration.
type Config struct {
	App     AppConfig     `yaml:"app" json:"app"`
	Python  PythonConfig  `yaml:"python" json:"python"`
	Migrate MigrateConfig `yaml:"migrate" json:"migrate"`

	// InstanceDir is an optional directory (relative to the project
	// directory unless absolute) created before migration. Unset means
	// no directory step; creation is idempotent when set. Flask's
	// SQLite-backed storage expects an instance/ directory to exist.
	InstanceDir string `yaml:"instanceDir" json:"instanceDir"`

	// Env holds additional variables for the child environment. Entries
	// here override dotenv file values but never the process environment.
	Env map[string]string `yaml:"env" json:"env"`

	// EnvFiles lists dotenv files (relative to the project directory
	// unless absolute) loaded into the child environment. A listed file
	// that does not exist is an error; an empty list is fine.
	EnvFiles []string `yaml:"envFiles" json:"envFiles"`
}

// ApplyDefaults fills unset fields with the conventional Flask build-phase
// values. Called by Load; exposed so callers constructing a Config in code
// (e.g., tests, the plan command with no manifest) get the same behavior.
func (c *Config) ApplyDefaults() {
	if c.App.Module == "" {
		c.App.Module = DefaultAppModule
	}
	if c.App.Profile == "" {
		c.App.Profile = DefaultProfile
	}
	if c.App.ProfileVariable == "" {
		c.App.ProfileVariable = model.ProfileVarConfig
	}
	if c.Python.Pip == "" {
		c.Python.Pip = DefaultPipBin
	}
	if c.Python.UpgradePip == nil {
		enabled := true
		c.Python.UpgradePip = &enabled
	}
	if c.Python.Requirements == "" {
		c.Python.Requirements = DefaultRequirements
	}
	if c.Migrate.Flask == "" {
		c.Migrate.Flask = DefaultFlaskBin
	}
}

// UpgradePipEnabled reports whether the pip self-upgrade step should run.
// Safe to call before ApplyDefaults (nil means the default, true).
func (c *Config) UpgradePipEnabled() bool {
	if c.Python.UpgradePip == nil {
		return true
	}
	return *c.Python.UpgradePip
}

// MigrateTimeout parses the configured migration timeout. Returns zero for
// an empty or "0" setting. Validate has already checked parseability, so
// callers that validated first can ignore the error.
func (c *Config) MigrateTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.Migrate.Timeout)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid migrate timeout %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid migrate timeout %q: must not be negative", raw)
	}
	return d, nil
}

// manifestNames are the candidate manifest file names in priority order.
// YAML variants take precedence over JSON variants.
var manifestNames = []string{
	"renderbuild.yaml",
	"renderbuild.yml",
	"renderbuild.jsonc",
	"renderbuild.json",
}

// Find locates the build manifest in the given project directory.
// Returns the path of the first candidate that exists, or "" (with a nil
// error) when no manifest is present. An absent manifest is not an error
// because every setting has a default.
func Find(projectDir string) string {
	for _, name := range manifestNames {
		path := filepath.Join(projectDir, name)
		// os.Stat checks existence without reading contents.
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads, parses, defaults, and validates the manifest at the given
// path. The format is chosen by file extension: .yaml/.yml use YAML,
// anything else is treated as JSONC (comments and trailing commas are
// stripped before standard JSON parsing).
//
// Returns a model.CLIError with ExitConfigError on read, parse, or
// validation failure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("manifest not found: %s", path),
				err,
			)
		}
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read manifest %s", path), err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to parse manifest %s", path), err)
		}
	default:
		// Strip JSONC comments (// and /* */) and trailing commas before
		// parsing, matching the commented-JSON config convention.
		cleanJSON := jsonc.ToJSON(data)
		if err := json.Unmarshal(cleanJSON, &cfg); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to parse manifest %s", path), err)
		}
	}

	cfg.ApplyDefaults()

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("invalid manifest %s", path), JoinValidationErrors(errs))
	}

	return &cfg, nil
}

// LoadOrDefault resolves the effective configuration for a project
// directory: an explicit manifest path if given, otherwise the discovered
// manifest, otherwise pure defaults.
func LoadOrDefault(projectDir, explicitPath string) (*Config, string, error) {
	path := explicitPath
	if path == "" {
		path = Find(projectDir)
	}
	if path == "" {
		cfg := &Config{}
		cfg.ApplyDefaults()
		return cfg, "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
