// Package migrate wraps the Flask migration CLI.
//
// This package shells out to `flask db upgrade` (via os/exec) to apply
// pending database schema changes. The target connection string is
// resolved by the application's own configuration loader from the active
// profile, so the wrapper's only contract with it is environmental:
// FLASK_APP must name the application entry point and the profile
// variable must name the profile, both in the child environment before
// the command starts. Upgrade refuses to run when either is missing.
//
// A failed migration propagates the tool's exit code through
// model.CLIError, the same convention as package pip.
package migrate
