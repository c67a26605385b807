// Package handbrake mediates access to the HandBrakeCLI transcoder.
//
// The pipeline encodes every rip with one fixed argument list; the only
// variables are the input and output paths. Progress arrives on stderr and
// is parsed into percent, frames per second, and an ETA string.
package handbrake
