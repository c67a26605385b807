package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"platter/internal/api"
	"platter/internal/queue"
)

// buildStatusCountRows orders the per-status counts by pipeline position
// rather than alphabetically so the table reads top-to-bottom like a job's
// life. Unknown statuses sort last.
func buildStatusCountRows(counts map[string]int) [][]string {
	if len(counts) == 0 {
		return nil
	}

	position := make(map[string]int, len(queue.AllStatuses()))
	for i, status := range queue.AllStatuses() {
		position[string(status)] = i
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, iKnown := position[keys[i]]
		pj, jKnown := position[keys[j]]
		switch {
		case iKnown && jKnown:
			return pi < pj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(counts[key])})
	}
	return rows
}

func buildJobRows(jobs []api.JobView) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			jobDisplayTitle(job),
			formatStatusLabel(job.Status),
			formatProgress(job),
			formatDisplayTime(job.UpdatedAt),
		})
	}
	return rows
}

// jobDisplayTitle prefers the identified title (with year when known) and
// falls back to the raw disc label.
func jobDisplayTitle(job api.JobView) string {
	title := strings.TrimSpace(job.IdentifiedTitle)
	if title != "" {
		if job.IdentifiedYear > 0 {
			return fmt.Sprintf("%s (%d)", title, job.IdentifiedYear)
		}
		return title
	}
	if label := strings.TrimSpace(job.DiscLabel); label != "" {
		return label
	}
	return "Unknown"
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatProgress(job api.JobView) string {
	stage := strings.TrimSpace(job.ProgressStage)
	if stage == "" {
		return ""
	}
	return fmt.Sprintf("%s %.0f%%", stage, job.ProgressPercent)
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02 15:04")
}

func formatConfidence(confidence *float64) string {
	if confidence == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *confidence)
}

func formatYear(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}
