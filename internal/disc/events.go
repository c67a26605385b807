package disc

import (
	"strconv"
	"strings"
)

// ParseProgress reads a PRGV record (current,total,max) and reports overall
// completion as a percentage. ok is false for non-progress lines and for
// records with a zero denominator.
func ParseProgress(line string) (percent float64, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "PRGV:") {
		return 0, false
	}
	parts := strings.Split(strings.TrimPrefix(trimmed, "PRGV:"), ",")
	if len(parts) < 3 {
		return 0, false
	}
	current, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, false
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil || max <= 0 {
		return 0, false
	}
	return current / max * 100, true
}

// Routine status fragments that carry no diagnostic value.
var routineMessageFragments = []string{
	"started",
	"opened in os access mode",
	"operation successfully",
}

// ExtractMessages collects the human-readable text of MSG records, skipping
// routine status chatter. Record layout: code,flags,count,"message",...
func ExtractMessages(output string) []string {
	var messages []string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "MSG:") {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(trimmed, "MSG:"), ",", 4)
		if len(parts) < 4 {
			continue
		}
		message := strings.Trim(parts[3], "\"")
		// Format arguments trail the message as additional quoted fields.
		if cut := strings.Index(message, "\",\""); cut >= 0 {
			message = message[:cut]
		}
		if message == "" || isRoutineMessage(message) {
			continue
		}
		messages = append(messages, message)
	}
	return messages
}

// LastMessages returns up to n trailing entries of ExtractMessages output.
func LastMessages(output string, n int) []string {
	messages := ExtractMessages(output)
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

func isRoutineMessage(message string) bool {
	lower := strings.ToLower(message)
	for _, fragment := range routineMessageFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
