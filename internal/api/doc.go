// Package api defines the JSON wire contract of the daemon's HTTP control
// surface and the client the CLI uses to call it.
//
// View types mirror the queue rows without exposing store internals, so the
// daemon and CLI can evolve independently of the schema. Mutation endpoints
// answer with MutationResponse; failures carry a single detail string and an
// HTTP status chosen from the service error markers.
package api
