// Package textutil provides text helpers for title matching and filename
// sanitization.
//
// Title comparison normalizes both sides to lowercase alphanumeric words,
// then scores exact matches, containment, and token overlap. Sanitization
// strips the characters that are unsafe in library filenames.
package textutil
