// Package notifications delivers pipeline events via Pushover.
//
// The default implementation posts form-encoded messages to the Pushover
// API using the credentials configured in config.toml and gracefully
// degrades to a no-op when notifications are disabled. Enumerated event
// types cover the major pipeline milestones so stage handlers can emit
// consistent, user-friendly messages without duplicating HTTP glue.
//
// Extend this package if you need alternative transports; all pipeline code
// depends only on the simple Service interface.
package notifications
