package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// writeManifest is a test helper that writes manifest content into a temp
// project directory and returns the file path.
func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestApplyDefaults verifies that a zero-value Config is filled with the
// conventional Flask build-phase defaults.
func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "run.py", cfg.App.Module)
	assert.Equal(t, "prod", cfg.App.Profile)
	assert.Equal(t, model.ProfileVarConfig, cfg.App.ProfileVariable)
	assert.Equal(t, "pip", cfg.Python.Pip)
	assert.Equal(t, "requirements.txt", cfg.Python.Requirements)
	assert.Equal(t, "flask", cfg.Migrate.Flask)
	assert.True(t, cfg.UpgradePipEnabled())
	assert.False(t, cfg.Migrate.Skip)
	assert.Empty(t, cfg.InstanceDir)
}

// TestApplyDefaults_PreservesExplicitValues checks that user-provided
// values survive defaulting, including an explicit upgradePip: false.
func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	disabled := false
	cfg := &Config{
		App:    AppConfig{Module: "wsgi.py", Profile: "staging", ProfileVariable: model.ProfileVarEnv},
		Python: PythonConfig{Pip: "pip3", UpgradePip: &disabled},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "wsgi.py", cfg.App.Module)
	assert.Equal(t, "staging", cfg.App.Profile)
	assert.Equal(t, model.ProfileVarEnv, cfg.App.ProfileVariable)
	assert.Equal(t, "pip3", cfg.Python.Pip)
	assert.False(t, cfg.UpgradePipEnabled())
}

// TestFind verifies manifest discovery priority: YAML variants win over
// JSON variants, and an empty string is returned when nothing exists.
func TestFind(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))

	jsonPath := writeManifest(t, dir, "renderbuild.json", `{}`)
	assert.Equal(t, jsonPath, Find(dir))

	yamlPath := writeManifest(t, dir, "renderbuild.yaml", `app: {profile: dev}`)
	assert.Equal(t, yamlPath, Find(dir), "yaml should take precedence over json")
}

// TestLoad_YAML verifies parsing of a full YAML manifest.
func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "renderbuild.yaml", `
app:
  module: wsgi.py
  profile: production
  profileVariable: FLASK_ENV
python:
  pip: pip3
  upgradePip: false
  requirements: requirements/prod.txt
migrate:
  flask: flask
  timeout: 5m
instanceDir: instance
env:
  PORT: "5000"
envFiles:
  - .env
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wsgi.py", cfg.App.Module)
	assert.Equal(t, "production", cfg.App.Profile)
	assert.Equal(t, model.ProfileVarEnv, cfg.App.ProfileVariable)
	assert.Equal(t, "pip3", cfg.Python.Pip)
	assert.False(t, cfg.UpgradePipEnabled())
	assert.Equal(t, "requirements/prod.txt", cfg.Python.Requirements)
	assert.Equal(t, "instance", cfg.InstanceDir)
	assert.Equal(t, map[string]string{"PORT": "5000"}, cfg.Env)
	assert.Equal(t, []string{".env"}, cfg.EnvFiles)

	timeout, err := cfg.MigrateTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, timeout)
}

// TestLoad_JSONC verifies that JSON manifests may contain comments and
// trailing commas, and parse to the same configuration as YAML.
func TestLoad_JSONC(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "renderbuild.jsonc", `{
  // production build configuration
  "app": {
    "module": "run.py",
    "profile": "prod",
  },
  "instanceDir": "instance", /* SQLite lives here */
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run.py", cfg.App.Module)
	assert.Equal(t, "prod", cfg.App.Profile)
	assert.Equal(t, "instance", cfg.InstanceDir)
	// Unspecified fields still receive defaults.
	assert.Equal(t, "pip", cfg.Python.Pip)
}

// TestLoad_Errors verifies that read, parse, and validation failures all
// surface as CLIError with ExitConfigError.
func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		requireConfigError(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeManifest(t, dir, "bad.yaml", "app: [unclosed")
		_, err := Load(path)
		requireConfigError(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeManifest(t, dir, "bad.json", `{"app": }`)
		_, err := Load(path)
		requireConfigError(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeManifest(t, dir, "invalid.yaml", `
app:
  profileVariable: FLASK_PROFILE
migrate:
  timeout: soon
`)
		_, err := Load(path)
		requireConfigError(t, err)
		// Both problems must be reported, not just the first.
		assert.Contains(t, err.Error(), "app.profileVariable")
		assert.Contains(t, err.Error(), "migrate.timeout")
	})
}

// requireConfigError asserts that err is a CLIError carrying ExitConfigError.
func requireConfigError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected CLIError, got %T", err)
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
}

// TestValidate_AggregatesErrors checks that validation reports every
// problem in a single pass.
func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &Config{
		App:     AppConfig{Module: "", Profile: "prod", ProfileVariable: "NOPE"},
		Python:  PythonConfig{Pip: "pip", Requirements: "requirements.txt"},
		Migrate: MigrateConfig{Flask: "flask", Timeout: "-3s"},
		Env:     map[string]string{"BAD=KEY": "v"},
	}

	errs := Validate(cfg)
	require.Len(t, errs, 4)

	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Contains(t, fields, "app.profileVariable")
	assert.Contains(t, fields, "app.module")
	assert.Contains(t, fields, "migrate.timeout")
	assert.Contains(t, fields, "env")
}

// TestMigrateTimeout covers the empty, zero, valid, and invalid cases.
func TestMigrateTimeout(t *testing.T) {
	cfg := &Config{}
	d, err := cfg.MigrateTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)

	cfg.Migrate.Timeout = "0"
	d, err = cfg.MigrateTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)

	cfg.Migrate.Timeout = "90s"
	d, err = cfg.MigrateTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	cfg.Migrate.Timeout = "whenever"
	_, err = cfg.MigrateTimeout()
	assert.Error(t, err)
}

// TestLoadOrDefault verifies the three resolution paths: explicit path,
// discovered manifest, and pure defaults.
func TestLoadOrDefault(t *testing.T) {
	t.Run("no manifest", func(t *testing.T) {
		dir := t.TempDir()
		cfg, path, err := LoadOrDefault(dir, "")
		require.NoError(t, err)
		assert.Empty(t, path)
		assert.Equal(t, "run.py", cfg.App.Module)
	})

	t.Run("discovered manifest", func(t *testing.T) {
		dir := t.TempDir()
		written := writeManifest(t, dir, "renderbuild.yaml", `app: {profile: staging}`)
		cfg, path, err := LoadOrDefault(dir, "")
		require.NoError(t, err)
		assert.Equal(t, written, path)
		assert.Equal(t, "staging", cfg.App.Profile)
	})

	t.Run("explicit path wins over discovery", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "renderbuild.yaml", `app: {profile: staging}`)
		explicit := writeManifest(t, dir, "other.yaml", `app: {profile: qa}`)
		cfg, path, err := LoadOrDefault(dir, explicit)
		require.NoError(t, err)
		assert.Equal(t, explicit, path)
		assert.Equal(t, "qa", cfg.App.Profile)
	})
}
