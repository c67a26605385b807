// Package makemkv mediates access to the MakeMKV CLI.
//
// It normalizes command invocation for drive probing, title scanning, and
// ripping, forwards robot-mode progress to callbacks, and turns MSG
// diagnostics into error detail. Prefer this package over ad-hoc
// exec.Command usage so timeout handling and progress reporting remain
// consistent across workers.
package makemkv
