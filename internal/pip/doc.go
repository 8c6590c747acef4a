// Package pip wraps the Python package installer CLI.
//
// This package shells out to `pip` (via os/exec) to upgrade the installer
// itself and to install the application's declared dependencies from a
// requirements manifest. It is the dependency-provisioning layer of the
// build phase.
//
// Design decisions:
//   - We shell out to pip rather than resolving packages ourselves because
//     the build phase's contract is "whatever pip does": resolver
//     behavior, wheel selection, and index configuration all belong to
//     the tool.
//   - Tool output streams to the installer's writers (the build log is
//     user-facing); nothing is captured for parsing.
//   - A failed command propagates the tool's own exit code through
//     model.CLIError so the hosting platform sees the original status.
package pip
