package disc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Title describes one title found by a disc scan. Duration is in seconds
// and Size in bytes.
type Title struct {
	ID       int
	Name     string
	Chapters int
	Duration int
	Size     int64
	FileName string
}

// ScanResult carries everything a title scan reveals about a disc.
type ScanResult struct {
	DiscTitle string
	VolumeID  string
	Titles    []Title
}

// DriveState is one DRV record from a drive probe.
type DriveState struct {
	Index     int
	Flags     int
	MediaType string
	Label     string
	Device    string
}

const (
	flagMediaPresent = 2
	flagNoDisc       = 256
)

// Present reports whether the drive holds a readable disc.
func (d DriveState) Present() bool {
	if d.Flags&flagNoDisc != 0 {
		return false
	}
	return d.Flags&flagMediaPresent != 0
}

// MatchDrive finds the state for a drive identifier. Numeric identifiers
// match the drive index; anything else matches the device path.
func MatchDrive(states []DriveState, driveID string) (DriveState, bool) {
	driveID = strings.TrimSpace(driveID)
	if driveID == "" {
		return DriveState{}, false
	}
	if index, err := strconv.Atoi(driveID); err == nil {
		for _, state := range states {
			if state.Index == index {
				return state, true
			}
		}
		return DriveState{}, false
	}
	for _, state := range states {
		if state.Device == driveID {
			return state, true
		}
	}
	return DriveState{}, false
}

// SourceArg formats a drive identifier the way makemkvcon expects a source:
// disc:N for a drive index, dev:path for a device path.
func SourceArg(driveID string) string {
	driveID = strings.TrimSpace(driveID)
	if _, err := strconv.Atoi(driveID); err == nil && driveID != "" {
		return "disc:" + driveID
	}
	return "dev:" + driveID
}

// minFeatureSeconds is the duration floor for a title to count as the main
// feature.
const minFeatureSeconds = 3600

// SelectMainTitle picks the longest title of at least an hour, falling back
// to the longest title overall. A disc with no titles is an error.
func SelectMainTitle(titles []Title) (Title, error) {
	if len(titles) == 0 {
		return Title{}, errors.New("disc has no titles")
	}

	best := -1
	for i, title := range titles {
		if title.Duration < minFeatureSeconds {
			continue
		}
		if best < 0 || title.Duration > titles[best].Duration {
			best = i
		}
	}
	if best < 0 {
		for i, title := range titles {
			if best < 0 || title.Duration > titles[best].Duration {
				best = i
			}
		}
	}
	return titles[best], nil
}

// FormatDuration renders seconds as H:MM:SS for logs and progress lines.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
