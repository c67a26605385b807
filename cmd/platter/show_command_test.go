package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"platter/internal/api"
	"platter/internal/queue"
)

func TestShowCommandRendersJobDetail(t *testing.T) {
	env := setupCLITestEnv(t)
	job := seedReviewJob(t, env, "MATRIX_DISC")
	confidence := 0.42
	if _, err := env.store.UpdateIdentification(context.Background(), job.ID, queue.Identification{
		Title:       "The Matrix",
		Year:        1999,
		ContentType: queue.ContentTypeMovie,
		CatalogID:   603,
		Confidence:  &confidence,
	}); err != nil {
		t.Fatalf("update identification: %v", err)
	}

	out, _, err := runCLI(t, []string{"show", itoa(job.ID)}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}

	requireContains(t, out, "The Matrix (1999)")
	requireContains(t, out, "Status:")
	requireContains(t, out, "Review")
	requireContains(t, out, "Disc label:")
	requireContains(t, out, "MATRIX_DISC")
	requireContains(t, out, "Catalog ID:")
	requireContains(t, out, "603")
	requireContains(t, out, "Confidence:")
	requireContains(t, out, "0.42")
}

func TestShowCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	job := seedReviewJob(t, env, "MATRIX_DISC")

	out, _, err := runCLI(t, []string{"show", itoa(job.ID), "--json"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("show --json: %v", err)
	}

	var resp api.JobResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if resp.Job.ID != job.ID || resp.Job.Status != string(queue.StatusReview) {
		t.Fatalf("unexpected job: %#v", resp.Job)
	}
}

func TestShowCommandMissingJob(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"show", "999"}, env.apiAddr, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing job")
	}
	if !strings.Contains(err.Error(), "999") {
		t.Fatalf("expected job id in error, got %v", err)
	}
}

func TestShowCommandRejectsBadID(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"show", "abc"}, env.apiAddr, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid job id") {
		t.Fatalf("expected invalid job id error, got %v", err)
	}
}
