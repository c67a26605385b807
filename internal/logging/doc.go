// Package logging constructs the slog loggers used across platter and
// provides shared attribute helpers and context propagation for job-scoped
// fields.
package logging
