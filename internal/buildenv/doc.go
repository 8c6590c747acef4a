// Package buildenv assembles the environment handed to the build-phase
// child processes and manages the optional instance directory.
//
// The assembled environment layers three sources, lowest precedence first:
//
//	dotenv files (envFiles) → manifest env entries → process environment
//
// The process environment always wins because the hosting platform owns
// deployment-critical variables such as DATABASE_URL; a checked-in .env
// must never shadow them. On top of the merged layers, FLASK_APP and the
// configured profile variable are set unconditionally, so they are
// guaranteed present before the migration command runs.
package buildenv
