package disc

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TINFO attribute ids emitted by makemkvcon -r.
const (
	attrTitleName      = 2
	attrChapterCount   = 8
	attrDuration       = 9
	attrSizeBytes      = 10
	attrSizeDisplay    = 11
	attrOutputFileName = 27
)

// CINFO attribute ids.
const (
	attrDiscTitle = 2
	attrVolumeID  = 32
)

// ParseScan reads robot-mode info output into a ScanResult. Titles are
// ordered by id. A scan that finds no titles is not a parse error; callers
// decide whether an empty title list is fatal.
func ParseScan(data []byte) (*ScanResult, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, errors.New("scan produced no output")
	}

	result := &ScanResult{}
	entries := make(map[int]*Title)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "CINFO:"):
			parseDiscAttr(result, strings.TrimPrefix(trimmed, "CINFO:"))
		case strings.HasPrefix(trimmed, "TINFO:"):
			parseTitleAttr(entries, strings.TrimPrefix(trimmed, "TINFO:"))
		}
	}

	ids := make([]int, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result.Titles = make([]Title, 0, len(ids))
	for _, id := range ids {
		result.Titles = append(result.Titles, *entries[id])
	}
	return result, nil
}

// parseDiscAttr handles one CINFO payload: attr,code,value.
func parseDiscAttr(result *ScanResult, payload string) {
	parts := strings.SplitN(payload, ",", 3)
	if len(parts) < 3 {
		return
	}
	attrID, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return
	}
	value := unquote(parts[2])
	switch attrID {
	case attrDiscTitle:
		result.DiscTitle = value
	case attrVolumeID:
		result.VolumeID = value
	}
}

// parseTitleAttr handles one TINFO payload: title,attr,code,value.
func parseTitleAttr(entries map[int]*Title, payload string) {
	parts := strings.SplitN(payload, ",", 4)
	if len(parts) < 4 {
		return
	}
	titleID, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return
	}
	attrID, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return
	}
	value := unquote(parts[3])

	entry, ok := entries[titleID]
	if !ok {
		entry = &Title{ID: titleID}
		entries[titleID] = entry
	}

	switch attrID {
	case attrTitleName:
		if value != "" {
			entry.Name = value
		}
	case attrChapterCount:
		if chapters, err := strconv.Atoi(value); err == nil {
			entry.Chapters = chapters
		}
	case attrDuration:
		entry.Duration = parseDuration(value)
	case attrSizeBytes:
		entry.Size = parseSize(value)
	case attrSizeDisplay:
		// Display size only fills in when the byte count was absent.
		if entry.Size == 0 {
			entry.Size = parseSize(value)
		}
	case attrOutputFileName:
		entry.FileName = value
	}
}

// ParseDriveStates reads DRV records from probe output. Record layout:
// index,flags,count,type,"media","label","device". Lines that do not carry
// all seven fields are skipped.
func ParseDriveStates(data []byte) []DriveState {
	var states []DriveState
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "DRV:") {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(trimmed, "DRV:"), ",", 7)
		if len(parts) < 7 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		flags, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		states = append(states, DriveState{
			Index:     index,
			Flags:     flags,
			MediaType: unquote(parts[4]),
			Label:     unquote(parts[5]),
			Device:    unquote(parts[6]),
		})
	}
	return states
}

var sizePattern = regexp.MustCompile(`(?i)^([\d.]+)\s*(GB|MB|KB|B)`)

// parseDuration converts H:MM:SS or MM:SS to seconds. Anything else is zero.
func parseDuration(value string) int {
	segments := strings.Split(strings.TrimSpace(value), ":")
	numbers := make([]int, len(segments))
	for i, segment := range segments {
		n, err := strconv.Atoi(segment)
		if err != nil {
			return 0
		}
		numbers[i] = n
	}
	switch len(numbers) {
	case 3:
		return numbers[0]*3600 + numbers[1]*60 + numbers[2]
	case 2:
		return numbers[0]*60 + numbers[1]
	default:
		return 0
	}
}

// parseSize converts "4.7 GB" style values or plain byte counts to bytes.
func parseSize(value string) int64 {
	value = strings.TrimSpace(value)
	if match := sizePattern.FindStringSubmatch(value); match != nil {
		number, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0
		}
		var multiplier float64
		switch strings.ToUpper(match[2]) {
		case "KB":
			multiplier = 1 << 10
		case "MB":
			multiplier = 1 << 20
		case "GB":
			multiplier = 1 << 30
		default:
			multiplier = 1
		}
		return int64(number * multiplier)
	}
	if bytes, err := strconv.ParseInt(value, 10, 64); err == nil && bytes >= 0 {
		return bytes
	}
	return 0
}

// unquote trims whitespace and surrounding double quotes from a field.
func unquote(value string) string {
	return strings.Trim(strings.TrimSpace(value), "\"")
}
