// Package tmdb provides the minimal TMDb API client used during disc
// identification.
//
// It authenticates with a v3 bearer token and exposes movie search with an
// optional release-year filter plus movie detail retrieval. Responses are
// strongly typed so the identification stage can score them. Options allow
// tests to supply custom HTTP clients without modifying production code.
package tmdb
