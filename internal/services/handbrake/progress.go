package handbrake

import (
	"regexp"
	"strconv"
	"strings"
)

// Progress is one transcode progress sample. FPS is zero when the encoder
// has not reported a rate yet; ETA is empty until HandBrake estimates one.
type Progress struct {
	Percent float64
	FPS     float64
	ETA     string
}

var (
	percentPattern = regexp.MustCompile(`(\d+\.?\d*)\s*%`)
	fpsPattern     = regexp.MustCompile(`\((\d+\.?\d*)\s*fps`)
	etaPattern     = regexp.MustCompile(`ETA\s+(\d+h\d+m\d+s)`)
)

// ParseProgress reads a HandBrake progress line, for example:
//
//	Encoding: task 1 of 1, 45.67 %
//	Encoding: task 1 of 1, 45.67 % (30.50 fps, avg 29.80 fps, ETA 00h05m12s)
func ParseProgress(line string) (Progress, bool) {
	if !strings.Contains(line, "Encoding:") {
		return Progress{}, false
	}
	match := percentPattern.FindStringSubmatch(line)
	if match == nil {
		return Progress{}, false
	}
	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Progress{}, false
	}

	progress := Progress{Percent: percent}
	if fpsMatch := fpsPattern.FindStringSubmatch(line); fpsMatch != nil {
		if fps, err := strconv.ParseFloat(fpsMatch[1], 64); err == nil {
			progress.FPS = fps
		}
	}
	if etaMatch := etaPattern.FindStringSubmatch(line); etaMatch != nil {
		progress.ETA = etaMatch[1]
	}
	return progress, true
}
