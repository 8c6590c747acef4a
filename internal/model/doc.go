// Package model defines the domain types and value objects for the
// renderbuild CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (StepResult, BuildReport, etc.) are transient representations
// of a single build-phase run. There are no persistent state files; the
// report lives only for the lifetime of the process and is emitted on exit.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
