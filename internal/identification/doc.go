// Package identification matches encoded discs to TMDb titles and records
// confidence scores on queue jobs before the mover runs.
//
// The Identifier cleans raw disc labels, searches the catalog, scores each
// candidate, and either auto-approves the best match or routes the job to
// review. Human identifications carry confidence 1.0 and skip the catalog
// entirely; automatic scores are capped below that so the two never mix.
//
// Centralize new identification heuristics here, keeping IO and queue updates
// in one place to avoid skew across stages.
package identification
