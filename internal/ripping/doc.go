// Package ripping copies the main feature of a detected disc into the
// per-job staging directory with MakeMKV and ejects the disc afterwards.
package ripping
