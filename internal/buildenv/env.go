package buildenv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mmr-tortoise/renderbuild/internal/config"
	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// Assemble builds the complete child-process environment for a project.
//
// Layering order (low to high precedence):
//  1. dotenv files from cfg.EnvFiles, in list order (later files override
//     earlier ones)
//  2. manifest env entries (cfg.Env)
//  3. the current process environment
//
// Finally FLASK_APP and the configured profile variable are forced from
// the manifest, overriding all layers. The result is a sorted KEY=VALUE
// slice suitable for exec.Cmd.Env.
//
// A listed dotenv file that does not exist or cannot be parsed is an
// error (CLIError with ExitEnvError): a manifest that names a file
// expects it to be there.
func Assemble(projectDir string, cfg *config.Config) ([]string, error) {
	merged := make(map[string]string)

	// Layer 1: dotenv files.
	for _, f := range cfg.EnvFiles {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectDir, f)
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitEnvError,
				fmt.Sprintf("failed to load env file %s", path), err)
		}
		for k, v := range vars {
			merged[k] = v
		}
	}

	// Layer 2: manifest env entries.
	for k, v := range cfg.Env {
		merged[k] = v
	}

	// Layer 3: process environment. The platform's variables
	// (DATABASE_URL among them) override everything configured.
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		merged[k] = v
	}

	// The two variables the migration CLI depends on are always taken
	// from the manifest, regardless of what any layer carried.
	merged[model.AppVar] = cfg.App.Module
	merged[cfg.App.ProfileVariable] = cfg.App.Profile

	return flatten(merged), nil
}

// flatten converts an environment map to a sorted KEY=VALUE slice.
// Sorting keeps output deterministic for logging and tests.
func flatten(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Lookup finds the value of a variable in a KEY=VALUE slice.
// Later entries shadow earlier ones, matching exec.Cmd.Env semantics.
func Lookup(env []string, key string) (string, bool) {
	prefix := key + "="
	value, found := "", false
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			value, found = kv[len(prefix):], true
		}
	}
	return value, found
}
