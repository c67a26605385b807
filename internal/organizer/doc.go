// Package organizer moves encoded files into the media library under their
// identified names and records them in the collection ledger.
package organizer
