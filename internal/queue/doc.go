// Package queue persists ingestion jobs in SQLite and enforces their
// lifecycle transitions.
//
// The Store owns the database connection, schema initialization, and every
// status edge a job may take. Workers claim jobs by requesting a transition;
// a rejected edge means another worker won the claim or the job already
// moved on. Collection, wanted-list, and settings storage live here too so
// the daemon has a single durable surface.
//
// The database is working state for in-flight jobs plus the library ledger,
// not a general archive. Schema changes bump the version in schema.go.
package queue
