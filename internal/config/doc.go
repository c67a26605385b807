// Package config loads, normalizes, and validates the platter configuration
// file. Paths are expanded and absolutized during load so the rest of the
// daemon never handles ~ or relative paths.
package config
