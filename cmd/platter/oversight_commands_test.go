package main

import (
	"context"
	"testing"

	"platter/internal/queue"
	"platter/internal/testsupport"
)

func TestOversightCheckClean(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"oversight", "check"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("oversight check: %v", err)
	}
	requireContains(t, out, "No issues found")
}

func TestOversightCheckReportsConcurrentEncodes(t *testing.T) {
	env := setupCLITestEnv(t)
	first := testsupport.NewJob(t, env.store, "sr0", "DISC_ONE")
	second := testsupport.NewJob(t, env.store, "sr1", "DISC_TWO")
	testsupport.AdvanceJob(t, env.store, first, queue.StatusRipping, queue.StatusRipped, queue.StatusEncoding)
	testsupport.AdvanceJob(t, env.store, second, queue.StatusRipping, queue.StatusRipped)
	testsupport.ForceJobStatus(t, env.store, second.ID, queue.StatusEncoding)

	out, _, err := runCLI(t, []string{"oversight", "check"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("oversight check: %v", err)
	}
	requireContains(t, out, "issues found:")
	requireContains(t, out, "multiple jobs encoding")
}

func TestOversightFixEncodingClean(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"oversight", "fix-encoding"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("oversight fix-encoding: %v", err)
	}
	requireContains(t, out, "No surplus encoding jobs")
}

func TestOversightFixEncodingRevertsSurplus(t *testing.T) {
	env := setupCLITestEnv(t)
	first := testsupport.NewJob(t, env.store, "sr0", "DISC_ONE")
	second := testsupport.NewJob(t, env.store, "sr1", "DISC_TWO")
	testsupport.AdvanceJob(t, env.store, first, queue.StatusRipping, queue.StatusRipped, queue.StatusEncoding)
	testsupport.AdvanceJob(t, env.store, second, queue.StatusRipping, queue.StatusRipped)
	testsupport.ForceJobStatus(t, env.store, second.ID, queue.StatusEncoding)

	out, _, err := runCLI(t, []string{"oversight", "fix-encoding"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("oversight fix-encoding: %v", err)
	}
	requireContains(t, out, "Reverted 1 surplus encoding jobs to ripped")

	reverted, err := env.store.JobsByStatus(context.Background(), queue.StatusRipped)
	if err != nil {
		t.Fatalf("list ripped jobs: %v", err)
	}
	if len(reverted) != 1 {
		t.Fatalf("expected one reverted job, got %d", len(reverted))
	}
}
