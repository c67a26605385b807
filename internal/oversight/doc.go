// Package oversight repairs job states the workers cannot reach on their
// own: rips interrupted by a daemon restart, encodes abandoned mid-stage,
// and queue states that violate the one-encode / one-rip-per-drive rules.
package oversight
