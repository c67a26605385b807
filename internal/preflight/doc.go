// Package preflight provides readiness checks for the filesystem paths and
// external binaries the pipeline depends on.
//
// The daemon runs RunAll once at startup and logs every failed check; the
// CLI "platter status" command renders the same results as a table. Checks
// never block startup: a missing HandBrakeCLI fails every encode cleanly,
// which is more visible than a daemon that refuses to boot.
package preflight
