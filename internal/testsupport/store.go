package testsupport

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"platter/internal/config"
	"platter/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a pending job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, driveID, label string) *queue.Job {
	t.Helper()

	job, err := store.CreateJob(context.Background(), driveID, label)
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}

// AdvanceJob walks a job through the given statuses in order, failing the
// test on any rejected edge. Path requirements are satisfied on the way.
func AdvanceJob(t testing.TB, store *queue.Store, job *queue.Job, statuses ...queue.Status) *queue.Job {
	t.Helper()

	ctx := context.Background()
	current := job
	for _, status := range statuses {
		switch status {
		case queue.StatusRipped:
			if current.RipPath == "" {
				if err := store.SetRipPath(ctx, current.ID, BaseDirPath(t, "rip.mkv")); err != nil {
					t.Fatalf("SetRipPath: %v", err)
				}
			}
		case queue.StatusEncoded:
			if current.EncodePath == "" {
				if err := store.SetEncodePath(ctx, current.ID, BaseDirPath(t, "encode.mp4")); err != nil {
					t.Fatalf("SetEncodePath: %v", err)
				}
			}
		case queue.StatusComplete:
			if current.FinalPath == "" {
				if err := store.SetFinalPath(ctx, current.ID, BaseDirPath(t, "final.mp4")); err != nil {
					t.Fatalf("SetFinalPath: %v", err)
				}
			}
		}
		updated, err := store.UpdateJobStatus(ctx, current.ID, status, "")
		if err != nil {
			t.Fatalf("UpdateJobStatus to %s: %v", status, err)
		}
		current = updated
	}
	return current
}

// ForceJobStatus writes a job status directly, bypassing the transition
// graph and its capacity guards. Tests use it to stage states the store
// refuses to produce, such as two jobs encoding at once.
func ForceJobStatus(t testing.TB, store *queue.Store, id int64, status queue.Status) {
	t.Helper()

	forceExec(t, store,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
}

// BackdateJob rewinds a job's updated_at by age.
func BackdateJob(t testing.TB, store *queue.Store, id int64, age time.Duration) {
	t.Helper()

	forceExec(t, store,
		`UPDATE jobs SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-age).Format(time.RFC3339Nano), id,
	)
}

// forceExec runs a statement against the store's database file over a
// separate connection.
func forceExec(t testing.TB, store *queue.Store, query string, args ...any) {
	t.Helper()

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open store database: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	res, err := db.Exec(query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		t.Fatalf("rows affected: %v", err)
	}
	if affected == 0 {
		t.Fatalf("exec %q matched no rows", query)
	}
}
