// types.go defines the domain types for the renderbuild CLI.
//
// The central entity is the BuildReport: an ordered record of the steps a
// build-phase run executed (or skipped), reconstructed into JSON for machine
// consumption when --json is set. Step execution is strictly sequential and
// fail-fast, so the report's step order always matches execution order.
package model

import (
	"fmt"
	"strings"
	"time"
)

// StepStatus represents the lifecycle state of a single build step.
// The state transitions are:
//
//	Pending → Running → Succeeded
//	Pending → Running → Failed
//	Pending → Skipped (a preceding step failed; this one never started)
type StepStatus string

const (
	// StatusPending indicates the step has not started yet.
	StatusPending StepStatus = "pending"

	// StatusRunning indicates the step is currently executing.
	StatusRunning StepStatus = "running"

	// StatusSucceeded indicates the step's command exited with status 0.
	StatusSucceeded StepStatus = "succeeded"

	// StatusFailed indicates the step's command exited non-zero, or the
	// step could not be started at all (e.g., binary not found).
	StatusFailed StepStatus = "failed"

	// StatusSkipped indicates the step was never attempted because an
	// earlier step failed. Fail-fast semantics guarantee that no step
	// after a failure transitions out of this state.
	StatusSkipped StepStatus = "skipped"
)

// String returns the string representation of StepStatus.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (s StepStatus) String() string {
	return string(s)
}

// IsValid checks whether the StepStatus value is one of the
// predefined valid states.
func (s StepStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a final state that a step
// cannot transition out of.
func (s StepStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// ParseStepStatus converts a string to a StepStatus.
// Returns an error if the string does not match any valid status.
func ParseStepStatus(s string) (StepStatus, error) {
	status := StepStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid step status: %q (valid: pending, running, succeeded, failed, skipped)", s)
	}
	return status, nil
}

// StepID identifies one of the fixed build-phase steps. The orchestrator
// only ever runs these steps, in this order; configuration can disable
// individual steps but never reorder them.
type StepID string

const (
	// StepUpgradePip upgrades the package installer itself before any
	// dependency resolution ("pip install --upgrade pip").
	StepUpgradePip StepID = "upgrade-pip"

	// StepInstall installs the application's declared dependencies from
	// the requirements manifest ("pip install -r requirements.txt").
	StepInstall StepID = "install-deps"

	// StepInstanceDir ensures the application's instance directory exists.
	// Present only when instanceDir is configured; creation is idempotent.
	StepInstanceDir StepID = "instance-dir"

	// StepMigrate applies pending database schema changes
	// ("flask db upgrade") with the assembled environment.
	StepMigrate StepID = "migrate"
)

// String returns the string representation of StepID.
func (id StepID) String() string {
	return string(id)
}

// StepResult records the outcome of a single step within a build run.
type StepResult struct {
	// ID identifies which of the fixed build steps this result belongs to.
	ID StepID `json:"id"`

	// Name is the human-readable step description shown in step banners
	// (e.g., "Installing dependencies from requirements.txt").
	Name string `json:"name"`

	// Status is the final lifecycle state of the step.
	Status StepStatus `json:"status"`

	// Duration is the wall-clock time the step spent running.
	// Zero for steps that were skipped.
	Duration time.Duration `json:"durationNs"`

	// Error is the failure message for a failed step, empty otherwise.
	// Stored as a string rather than an error so the report marshals
	// cleanly to JSON.
	Error string `json:"error,omitempty"`
}

// BuildReport is the complete record of one build-phase run. It is the
// value emitted (as JSON) by `renderbuild run --json`.
type BuildReport struct {
	// BuildID is a random UUID identifying this run, useful for
	// correlating build logs on the hosting platform.
	BuildID string `json:"buildId"`

	// StartedAt is the timestamp when the run began.
	StartedAt time.Time `json:"startedAt"`

	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"durationNs"`

	// Steps holds per-step results in execution order.
	Steps []StepResult `json:"steps"`

	// Succeeded reports whether every executed step succeeded.
	Succeeded bool `json:"succeeded"`
}

// FailedStep returns the first failed step in the report, or nil if the
// run succeeded. Because execution is fail-fast there is at most one
// failed step per run.
func (r *BuildReport) FailedStep() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == StatusFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// ProfileVarConfig and ProfileVarEnv are the two environment variable names
// the Flask configuration loader recognizes for selecting the active
// configuration profile. FLASK_CONFIG is read by the application factory
// entry point; FLASK_ENV is the framework's own legacy switch.
const (
	ProfileVarConfig = "FLASK_CONFIG"
	ProfileVarEnv    = "FLASK_ENV"
)

// AppVar is the environment variable naming the Flask application entry
// point, consumed by the migration CLI to locate the app factory.
const AppVar = "FLASK_APP"

// ValidateProfileVariable checks that the given name is one of the two
// profile variable names the downstream configuration loader understands.
func ValidateProfileVariable(name string) error {
	if name != ProfileVarConfig && name != ProfileVarEnv {
		return fmt.Errorf("invalid profile variable %q (valid: %s, %s)", name, ProfileVarConfig, ProfileVarEnv)
	}
	return nil
}

// ExitCode defines standard CLI exit codes. These codes allow the hosting
// platform's build pipeline to programmatically determine the outcome of
// a run.
//
// When an invoked tool runs and exits non-zero, its own exit code is
// propagated verbatim instead of one of these categories. The categories
// below cover only failures where no child process produced a code.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the build manifest could not be read,
	// parsed, or validated.
	ExitConfigError ExitCode = 2

	// ExitToolNotFound indicates a required external binary (pip, flask)
	// could not be resolved on PATH.
	ExitToolNotFound ExitCode = 3

	// ExitEnvError indicates the child environment could not be
	// assembled (e.g., a configured dotenv file is missing) or a
	// required variable was absent at migration time.
	ExitEnvError ExitCode = 4

	// ExitInstanceDirError indicates the instance directory could not
	// be created.
	ExitInstanceDirError ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS. For failures of an
	// invoked tool this is the tool's own exit code, propagated.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
