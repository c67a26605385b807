package main

import (
	"encoding/json"
	"testing"

	"platter/internal/api"
	"platter/internal/queue"
	"platter/internal/testsupport"
)

func TestQueueCommandListsJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewJob(t, env.store, "0", "ALPHA_DISC")
	seedReviewJob(t, env, "BETA_DISC")

	out, _, err := runCLI(t, []string{"queue"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	requireContains(t, out, "ALPHA_DISC")
	requireContains(t, out, "BETA_DISC")
	requireContains(t, out, "Pending")
	requireContains(t, out, "Review")
}

func TestQueueCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueCommandIncludesArchivedWithAll(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupport.NewJob(t, env.store, "0", "OLD_DISC")
	testsupport.ForceJobStatus(t, env.store, job.ID, queue.StatusArchived)

	out, _, err := runCLI(t, []string{"queue"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	out, _, err = runCLI(t, []string{"queue", "--all"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue --all: %v", err)
	}
	requireContains(t, out, "OLD_DISC")
	requireContains(t, out, "Archived")
}

func TestQueueCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewJob(t, env.store, "0", "ALPHA_DISC")

	out, _, err := runCLI(t, []string{"queue", "--json"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue --json: %v", err)
	}

	var resp api.JobListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(resp.Jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(resp.Jobs))
	}
	if resp.Jobs[0].DiscLabel != "ALPHA_DISC" {
		t.Fatalf("unexpected job: %#v", resp.Jobs[0])
	}
}

func TestQueueCommandHonorsLimit(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewJob(t, env.store, "0", "FIRST_DISC")
	testsupport.NewJob(t, env.store, "0", "SECOND_DISC")

	out, _, err := runCLI(t, []string{"queue", "--limit", "1", "--json"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue --limit: %v", err)
	}

	var resp api.JobListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(resp.Jobs) != 1 {
		t.Fatalf("expected one job with limit 1, got %d", len(resp.Jobs))
	}
}
