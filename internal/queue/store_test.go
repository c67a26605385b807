package queue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"platter/internal/queue"
	"platter/internal/services"
	"platter/internal/testsupport"
)

func TestCreateAndGetJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.CreateJob(ctx, "0", "THE_MATRIX_DISC_1")
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}
	if job.ContentType != queue.ContentTypeUnknown {
		t.Fatalf("expected unknown content type, got %s", job.ContentType)
	}
	if job.Confidence != nil {
		t.Fatalf("expected nil confidence, got %v", *job.Confidence)
	}

	fetched, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fetched == nil || fetched.DiscLabel != "THE_MATRIX_DISC_1" || fetched.DriveID != "0" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}

	missing, err := store.GetJob(ctx, job.ID+100)
	if err != nil {
		t.Fatalf("GetJob missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing job, got %#v", missing)
	}
}

func TestCreateJobRequiresDrive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.CreateJob(context.Background(), "  ", "LABEL"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateJobStatusWalksLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.NewJob(t, store, "0", "LIFECYCLE")
	job = testsupport.AdvanceJob(t, store, job,
		queue.StatusRipping,
		queue.StatusRipped,
		queue.StatusEncoding,
		queue.StatusEncoded,
		queue.StatusIdentifying,
		queue.StatusReview,
		queue.StatusMoving,
		queue.StatusComplete,
		queue.StatusArchived,
	)
	if job.Status != queue.StatusArchived {
		t.Fatalf("expected archived, got %s", job.Status)
	}
}

func TestUpdateJobStatusRejectsIllegalEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "0", "ILLEGAL")

	cases := []queue.Status{
		queue.StatusEncoding,
		queue.StatusEncoded,
		queue.StatusIdentifying,
		queue.StatusReview,
		queue.StatusMoving,
		queue.StatusComplete,
		queue.StatusArchived,
		queue.StatusPending,
	}
	for _, target := range cases {
		if _, err := store.UpdateJobStatus(ctx, job.ID, target, ""); !errors.Is(err, services.ErrInvalidTransition) {
			t.Fatalf("pending->%s: expected invalid transition, got %v", target, err)
		}
	}

	unchanged, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if unchanged.Status != queue.StatusPending {
		t.Fatalf("expected job untouched, got %s", unchanged.Status)
	}
}

func TestUpdateJobStatusMissingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.UpdateJobStatus(context.Background(), 9999, queue.StatusRipping, ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateJobStatusRequiresPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "0", "PATHS")
	if _, err := store.UpdateJobStatus(ctx, job.ID, queue.StatusRipping, ""); err != nil {
		t.Fatalf("to ripping: %v", err)
	}

	if _, err := store.UpdateJobStatus(ctx, job.ID, queue.StatusRipped, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without rip path, got %v", err)
	}

	if err := store.SetRipPath(ctx, job.ID, testsupport.BaseDirPath(t, "rip.mkv")); err != nil {
		t.Fatalf("SetRipPath: %v", err)
	}
	if _, err := store.UpdateJobStatus(ctx, job.ID, queue.StatusRipped, ""); err != nil {
		t.Fatalf("to ripped after path set: %v", err)
	}
}

func TestEncodingSlotIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := testsupport.NewJob(t, store, "0", "FIRST")
	second := testsupport.NewJob(t, store, "1", "SECOND")
	first = testsupport.AdvanceJob(t, store, first, queue.StatusRipping, queue.StatusRipped)
	second = testsupport.AdvanceJob(t, store, second, queue.StatusRipping, queue.StatusRipped)

	ctx := context.Background()
	if _, err := store.UpdateJobStatus(ctx, first.ID, queue.StatusEncoding, ""); err != nil {
		t.Fatalf("first encode claim: %v", err)
	}
	if _, err := store.UpdateJobStatus(ctx, second.ID, queue.StatusEncoding, ""); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected second encode claim rejected, got %v", err)
	}

	// Releasing the slot lets the waiting job claim it.
	if _, err := store.UpdateJobStatus(ctx, first.ID, queue.StatusRipped, ""); err != nil {
		t.Fatalf("revert first to ripped: %v", err)
	}
	if _, err := store.UpdateJobStatus(ctx, second.ID, queue.StatusEncoding, ""); err != nil {
		t.Fatalf("second encode claim after release: %v", err)
	}
}

func TestRippingIsExclusivePerDrive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	sameDriveA := testsupport.NewJob(t, store, "0", "DISC_A")
	sameDriveB := testsupport.NewJob(t, store, "0", "DISC_B")
	otherDrive := testsupport.NewJob(t, store, "1", "DISC_C")

	if _, err := store.UpdateJobStatus(ctx, sameDriveA.ID, queue.StatusRipping, ""); err != nil {
		t.Fatalf("first rip claim: %v", err)
	}
	if _, err := store.UpdateJobStatus(ctx, sameDriveB.ID, queue.StatusRipping, ""); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected same-drive rip claim rejected, got %v", err)
	}
	if _, err := store.UpdateJobStatus(ctx, otherDrive.ID, queue.StatusRipping, ""); err != nil {
		t.Fatalf("other drive rip claim: %v", err)
	}
}

func TestReversionEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "0", "REVERT")
	job = testsupport.AdvanceJob(t, store, job, queue.StatusRipping, queue.StatusRipped, queue.StatusEncoding)

	reverted, err := store.UpdateJobStatus(ctx, job.ID, queue.StatusRipped, "")
	if err != nil {
		t.Fatalf("encoding->ripped: %v", err)
	}
	if reverted.Status != queue.StatusRipped {
		t.Fatalf("expected ripped, got %s", reverted.Status)
	}

	job = testsupport.AdvanceJob(t, store, reverted, queue.StatusEncoding, queue.StatusEncoded, queue.StatusIdentifying)
	reverted, err = store.UpdateJobStatus(ctx, job.ID, queue.StatusEncoded, "")
	if err != nil {
		t.Fatalf("identifying->encoded: %v", err)
	}
	if reverted.Status != queue.StatusEncoded {
		t.Fatalf("expected encoded, got %s", reverted.Status)
	}
}

func TestUpdateJobStatusRecordsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "0", "FAILING")
	failed, err := store.UpdateJobStatus(ctx, job.ID, queue.StatusFailed, "no usable titles")
	if err != nil {
		t.Fatalf("to failed: %v", err)
	}
	if failed.ErrorMessage != "no usable titles" {
		t.Fatalf("expected error message persisted, got %q", failed.ErrorMessage)
	}

	archived, err := store.UpdateJobStatus(ctx, job.ID, queue.StatusArchived, "")
	if err != nil {
		t.Fatalf("to archived: %v", err)
	}
	if archived.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", archived.ErrorMessage)
	}
}

func TestUpdateIdentification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "0", "THE_MATRIX")

	confidence := 0.92
	updated, err := store.UpdateIdentification(ctx, job.ID, queue.Identification{
		ContentType: queue.ContentTypeMovie,
		Title:       "The Matrix",
		Year:        1999,
		CatalogID:   603,
		Confidence:  &confidence,
		PosterRef:   "/poster.jpg",
	})
	if err != nil {
		t.Fatalf("UpdateIdentification: %v", err)
	}
	if updated.IdentifiedTitle != "The Matrix" || updated.IdentifiedYear != 1999 {
		t.Fatalf("unexpected identification: %q (%d)", updated.IdentifiedTitle, updated.IdentifiedYear)
	}
	if updated.CatalogID != 603 || updated.Confidence == nil || *updated.Confidence != 0.92 {
		t.Fatalf("unexpected catalog fields: %#v", updated)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("identification must not change status, got %s", updated.Status)
	}

	cases := []struct {
		name  string
		ident queue.Identification
	}{
		{"missing title", queue.Identification{Year: 1999}},
		{"year too small", queue.Identification{Title: "X", Year: 1700}},
		{"year too large", queue.Identification{Title: "X", Year: 2200}},
	}
	for _, tc := range cases {
		if _, err := store.UpdateIdentification(ctx, job.ID, tc.ident); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	bad := 1.2
	if _, err := store.UpdateIdentification(ctx, job.ID, queue.Identification{Title: "X", Confidence: &bad}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected confidence validation error, got %v", err)
	}
}

func TestPendingJobForDrive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "0", "FIRST")
	testsupport.NewJob(t, store, "0", "SECOND")
	testsupport.NewJob(t, store, "1", "OTHER")

	job, err := store.PendingJobForDrive(ctx, "0")
	if err != nil {
		t.Fatalf("PendingJobForDrive: %v", err)
	}
	if job == nil || job.ID != first.ID {
		t.Fatalf("expected oldest pending job %d, got %#v", first.ID, job)
	}

	none, err := store.PendingJobForDrive(ctx, "9")
	if err != nil {
		t.Fatalf("PendingJobForDrive empty: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for drive with no jobs, got %#v", none)
	}
}

func TestRecentJobsExcludesArchived(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	keep := testsupport.NewJob(t, store, "0", "KEEP")
	gone := testsupport.NewJob(t, store, "1", "GONE")
	testsupport.AdvanceJob(t, store, gone, queue.StatusFailed, queue.StatusArchived)

	recent, err := store.RecentJobs(ctx, 10, false)
	if err != nil {
		t.Fatalf("RecentJobs: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != keep.ID {
		t.Fatalf("expected only unarchived job, got %d jobs", len(recent))
	}

	all, err := store.RecentJobs(ctx, 10, true)
	if err != nil {
		t.Fatalf("RecentJobs include archived: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs with archived included, got %d", len(all))
	}
	if all[0].ID != gone.ID {
		t.Fatalf("expected most recently touched first, got job %d", all[0].ID)
	}
}

func TestCountsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		testsupport.NewJob(t, store, fmt.Sprintf("%d", i), "PENDING")
	}
	failing := testsupport.NewJob(t, store, "9", "FAILING")
	testsupport.AdvanceJob(t, store, failing, queue.StatusFailed)

	counts, err := store.CountsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountsByStatus: %v", err)
	}
	if counts[queue.StatusPending] != 3 {
		t.Fatalf("expected 3 pending, got %d", counts[queue.StatusPending])
	}
	if counts[queue.StatusFailed] != 1 {
		t.Fatalf("expected 1 failed, got %d", counts[queue.StatusFailed])
	}
}

func TestJobsByStatusOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewJob(t, store, "0", "A")
	b := testsupport.NewJob(t, store, "1", "B")

	// Touching A moves it behind B in the least-recently-touched order.
	a.SetProgress("Waiting", "", 0)
	if err := store.UpdateProgress(ctx, a); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	jobs, err := store.JobsByStatus(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("JobsByStatus: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", len(jobs))
	}
	if jobs[0].ID != b.ID || jobs[1].ID != a.ID {
		t.Fatalf("expected order B,A got %d,%d", jobs[0].ID, jobs[1].ID)
	}
}
