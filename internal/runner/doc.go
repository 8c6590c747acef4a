// Package runner executes the build-phase steps strictly in order with
// fail-fast semantics.
//
// The engine is deliberately linear: no retries, no rollback, no
// concurrency. The first step to fail terminates the run; every later
// step is recorded as skipped without being started. This mirrors the
// deployment gate the build phase implements: a broken dependency
// install or failed migration must never let the application server
// start against a partially provisioned environment.
//
// Each run produces a model.BuildReport with a UUID build id, per-step
// statuses, and durations, suitable for JSON output or log correlation.
package runner
