package main

import (
	"testing"
	"time"

	"platter/internal/api"
)

func TestBuildStatusCountRowsPipelineOrder(t *testing.T) {
	counts := map[string]int{
		"review":   2,
		"pending":  3,
		"complete": 1,
		"encoding": 4,
	}
	rows := buildStatusCountRows(counts)
	got := make([]string, 0, len(rows))
	for _, row := range rows {
		got = append(got, row[0])
	}
	want := []string{"Pending", "Encoding", "Review", "Complete"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %q, want %q (order: %v)", i, got[i], want[i], got)
		}
	}
}

func TestBuildStatusCountRowsUnknownStatusSortsLast(t *testing.T) {
	rows := buildStatusCountRows(map[string]int{
		"zebra":   1,
		"pending": 2,
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Pending" || rows[1][0] != "Zebra" {
		t.Fatalf("unexpected order: %v", rows)
	}
}

func TestBuildStatusCountRowsEmpty(t *testing.T) {
	if rows := buildStatusCountRows(nil); rows != nil {
		t.Fatalf("expected nil rows, got %v", rows)
	}
}

func TestJobDisplayTitle(t *testing.T) {
	tests := []struct {
		name string
		job  api.JobView
		want string
	}{
		{"identified with year", api.JobView{IdentifiedTitle: "Heat", IdentifiedYear: 1995}, "Heat (1995)"},
		{"identified without year", api.JobView{IdentifiedTitle: "Heat"}, "Heat"},
		{"disc label fallback", api.JobView{DiscLabel: "HEAT_DISC"}, "HEAT_DISC"},
		{"blank everything", api.JobView{}, "Unknown"},
		{"whitespace title", api.JobView{IdentifiedTitle: "  ", DiscLabel: "RAW"}, "RAW"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jobDisplayTitle(tt.job); got != tt.want {
				t.Fatalf("jobDisplayTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatStatusLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pending", "Pending"},
		{"review", "Review"},
		{"encoding", "Encoding"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := formatStatusLabel(tt.in); got != tt.want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatProgress(t *testing.T) {
	job := api.JobView{ProgressStage: "Encoding", ProgressPercent: 42.4}
	if got := formatProgress(job); got != "Encoding 42%" {
		t.Fatalf("formatProgress = %q", got)
	}
	if got := formatProgress(api.JobView{ProgressPercent: 80}); got != "" {
		t.Fatalf("expected empty progress without stage, got %q", got)
	}
}

func TestFormatDisplayTime(t *testing.T) {
	if got := formatDisplayTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
	stamp := time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	if got := formatDisplayTime(stamp); got != "2024-05-17 09:30" {
		t.Fatalf("formatDisplayTime = %q", got)
	}
}

func TestFormatConfidence(t *testing.T) {
	if got := formatConfidence(nil); got != "" {
		t.Fatalf("expected empty string for nil confidence, got %q", got)
	}
	value := 0.857
	if got := formatConfidence(&value); got != "0.86" {
		t.Fatalf("formatConfidence = %q", got)
	}
}

func TestFormatYear(t *testing.T) {
	if got := formatYear(0); got != "" {
		t.Fatalf("expected empty string for zero year, got %q", got)
	}
	if got := formatYear(1982); got != "1982" {
		t.Fatalf("formatYear = %q", got)
	}
}
