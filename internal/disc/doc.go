// Package disc parses MakeMKV robot-mode output into drive states, title
// listings, progress ticks, and diagnostic messages, and selects the main
// feature title from a scan. It performs no subprocess work itself; the
// makemkv client feeds it raw output.
package disc
