// Package services holds cross-cutting service plumbing: the error markers
// shared by pipeline stages and the context annotations carried through
// worker passes.
package services
