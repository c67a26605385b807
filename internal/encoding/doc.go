// Package encoding transcodes ripped MKVs into the library MP4 format with
// HandBrakeCLI using a fixed quality preset.
package encoding
