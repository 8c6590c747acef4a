// validate.go provides validation for the parsed build manifest.
//
// Validation collects every problem rather than stopping at the first,
// so a user fixing a manifest sees the complete list in one pass.
package config

import (
	"fmt"
	"strings"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// ValidationError represents a specific validation failure in the manifest.
type ValidationError struct {
	// Field is the manifest field path that failed validation
	// (e.g., "app.profileVariable").
	Field string

	// Message describes what is wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation error: %s: %s", e.Field, e.Message)
}

// Validate checks a defaulted Config for problems. It returns a list of
// validation errors (empty list = valid configuration).
//
// Checks performed:
//   - app.profileVariable is one of the names the config loader understands
//   - app.module, app.profile, python.pip, python.requirements, and
//     migrate.flask are non-empty (callers bypassing ApplyDefaults)
//   - migrate.timeout parses as a non-negative Go duration
//   - env keys are non-empty and contain no "=" (would corrupt the
//     KEY=VALUE entries handed to the child process)
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if err := model.ValidateProfileVariable(cfg.App.ProfileVariable); err != nil {
		errs = append(errs, ValidationError{
			Field:   "app.profileVariable",
			Message: err.Error(),
		})
	}

	// Required non-empty fields. ApplyDefaults fills all of these, so a
	// failure here means the caller constructed the Config by hand.
	required := []struct {
		field string
		value string
	}{
		{"app.module", cfg.App.Module},
		{"app.profile", cfg.App.Profile},
		{"python.pip", cfg.Python.Pip},
		{"python.requirements", cfg.Python.Requirements},
		{"migrate.flask", cfg.Migrate.Flask},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, ValidationError{
				Field:   r.field,
				Message: "must not be empty",
			})
		}
	}

	if _, err := cfg.MigrateTimeout(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "migrate.timeout",
			Message: err.Error(),
		})
	}

	for key := range cfg.Env {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, ValidationError{
				Field:   "env",
				Message: "variable names must not be empty",
			})
			continue
		}
		if strings.Contains(key, "=") {
			errs = append(errs, ValidationError{
				Field:   "env",
				Message: fmt.Sprintf("variable name %q must not contain '='", key),
			})
		}
	}

	for i, f := range cfg.EnvFiles {
		if strings.TrimSpace(f) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("envFiles[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errs
}

// JoinValidationErrors flattens a list of validation errors into a single
// error suitable for wrapping in a CLIError.
func JoinValidationErrors(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, len(errs))
	for i := range errs {
		parts[i] = fmt.Sprintf("%s: %s", errs[i].Field, errs[i].Message)
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}
