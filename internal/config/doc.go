// Package config loads and validates the renderbuild build manifest.
//
// The manifest is optional: a project with no manifest gets the defaults,
// which reproduce the conventional Flask build phase (upgrade pip, install
// requirements.txt, run flask db upgrade as the "prod" profile). When
// present, the manifest is discovered in the project directory as
// renderbuild.yaml, renderbuild.yml, renderbuild.jsonc, or renderbuild.json
// (first hit wins).
//
// YAML manifests are parsed with gopkg.in/yaml.v3. JSON manifests may
// contain comments and trailing commas, so this package uses
// github.com/tidwall/jsonc to strip them before parsing with the standard
// encoding/json library.
package config
