package daemon_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"platter/internal/config"
	"platter/internal/daemon"
	"platter/internal/identification/tmdb"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/services"
	"platter/internal/testsupport"
)

type fakeSearcher struct {
	results []tmdb.Result
	err     error
	calls   int
}

func (f *fakeSearcher) SearchMovie(ctx context.Context, query string, year int) (*tmdb.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.Response{Page: 1, Results: f.results, TotalResults: len(f.results)}, nil
}

func (f *fakeSearcher) MovieDetails(ctx context.Context, movieID int64) (*tmdb.Result, error) {
	for _, result := range f.results {
		if result.ID == movieID {
			match := result
			return &match, nil
		}
	}
	return nil, errors.New("not found")
}

type recordingNotifier struct {
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.events = append(r.events, event)
	return nil
}

// operationsDaemon builds an unstarted daemon; the control-surface
// operations talk straight to the store and need no running supervisor.
func operationsDaemon(t *testing.T, cfg *config.Config, store *queue.Store, searcher tmdb.Searcher, notifier notifications.Service) *daemon.Daemon {
	t.Helper()
	d, err := daemon.NewWithDependencies(cfg, store, logging.NewNop(), newTestSupervisor(t, cfg, store), searcher, notifier)
	if err != nil {
		t.Fatalf("NewWithDependencies: %v", err)
	}
	return d
}

func reviewJob(t *testing.T, store *queue.Store, label string) *queue.Job {
	t.Helper()
	job := testsupport.NewJob(t, store, "0", label)
	return testsupport.AdvanceJob(t, store, job,
		queue.StatusRipping, queue.StatusRipped,
		queue.StatusEncoding, queue.StatusEncoded,
		queue.StatusIdentifying, queue.StatusReview,
	)
}

func TestJobReportsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)

	_, err := d.Job(context.Background(), 999)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Job error = %v, want ErrNotFound", err)
	}
}

func TestApproveReleasesReviewJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	job := reviewJob(t, store, "REVIEW_DISC")

	updated, err := d.Approve(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if updated.Status != queue.StatusMoving {
		t.Fatalf("status = %s, want %s", updated.Status, queue.StatusMoving)
	}
}

func TestApproveRejectsNonReviewJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	job := testsupport.NewJob(t, store, "0", "PENDING_DISC")

	_, err := d.Approve(context.Background(), job.ID)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("Approve error = %v, want ErrInvalidTransition", err)
	}
	if !strings.Contains(err.Error(), "not awaiting review") {
		t.Fatalf("Approve error %q should name the review guard", err)
	}
}

func TestIdentifyOverridesAndReleases(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	searcher := &fakeSearcher{results: []tmdb.Result{{
		ID:          949,
		Title:       "Heat",
		ReleaseDate: "1995-12-15",
		PosterPath:  "/heat.jpg",
	}}}
	d := operationsDaemon(t, cfg, store, searcher, nil)
	job := reviewJob(t, store, "HEAT_DISC")

	updated, err := d.Identify(context.Background(), job.ID, "Heat", 1995, 0)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if updated.Status != queue.StatusMoving {
		t.Fatalf("status = %s, want %s", updated.Status, queue.StatusMoving)
	}
	if updated.IdentifiedTitle != "Heat" || updated.IdentifiedYear != 1995 {
		t.Fatalf("identification = %q (%d), want Heat (1995)", updated.IdentifiedTitle, updated.IdentifiedYear)
	}
	if updated.CatalogID != 949 || updated.PosterRef != "/heat.jpg" {
		t.Fatalf("catalog enrichment missing: id=%d poster=%q", updated.CatalogID, updated.PosterRef)
	}
	if updated.Confidence == nil || *updated.Confidence != queue.HumanConfidence {
		t.Fatalf("confidence = %v, want human confidence", updated.Confidence)
	}
}

func TestIdentifySurvivesCatalogFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	searcher := &fakeSearcher{err: errors.New("tmdb is down")}
	d := operationsDaemon(t, cfg, store, searcher, nil)
	job := reviewJob(t, store, "OFFLINE_DISC")

	updated, err := d.Identify(context.Background(), job.ID, "Alien", 1979, 0)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if updated.Status != queue.StatusMoving {
		t.Fatalf("status = %s, want %s", updated.Status, queue.StatusMoving)
	}
	if updated.IdentifiedTitle != "Alien" {
		t.Fatalf("title = %q, want Alien", updated.IdentifiedTitle)
	}
	if updated.CatalogID != 0 {
		t.Fatalf("catalog id = %d, want 0 after failed lookup", updated.CatalogID)
	}
}

func TestIdentifyRequiresTitleOrCatalogID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	job := reviewJob(t, store, "UNTITLED_DISC")

	_, err := d.Identify(context.Background(), job.ID, "   ", 0, 0)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Identify error = %v, want ErrValidation", err)
	}
}

func TestIdentifyByCatalogID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	searcher := &fakeSearcher{results: []tmdb.Result{{
		ID:          603,
		Title:       "The Matrix",
		ReleaseDate: "1999-03-31",
		PosterPath:  "/matrix.jpg",
	}}}
	d := operationsDaemon(t, cfg, store, searcher, nil)
	job := reviewJob(t, store, "MATRIX_DISC")

	updated, err := d.Identify(context.Background(), job.ID, "", 0, 603)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if updated.Status != queue.StatusMoving {
		t.Fatalf("status = %s, want %s", updated.Status, queue.StatusMoving)
	}
	if updated.IdentifiedTitle != "The Matrix" || updated.IdentifiedYear != 1999 {
		t.Fatalf("identification = %q (%d), want The Matrix (1999)", updated.IdentifiedTitle, updated.IdentifiedYear)
	}
	if updated.CatalogID != 603 || updated.PosterRef != "/matrix.jpg" {
		t.Fatalf("catalog record missing: id=%d poster=%q", updated.CatalogID, updated.PosterRef)
	}
	if searcher.calls != 0 {
		t.Fatalf("catalog id should resolve directly, but search ran %d times", searcher.calls)
	}
}

func TestIdentifyByCatalogIDFailsWhenUnresolvable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	searcher := &fakeSearcher{}
	d := operationsDaemon(t, cfg, store, searcher, nil)
	job := reviewJob(t, store, "BAD_ID_DISC")

	_, err := d.Identify(context.Background(), job.ID, "", 0, 999)
	if err == nil || !strings.Contains(err.Error(), "resolve catalog id 999") {
		t.Fatalf("Identify error = %v, want catalog resolution failure", err)
	}

	current, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if current.Status != queue.StatusReview {
		t.Fatalf("status = %s, want job left in %s", current.Status, queue.StatusReview)
	}
}

func TestPreIdentifyRecordsWithoutMovingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	job := testsupport.NewJob(t, store, "0", "FRESH_DISC")

	updated, err := d.PreIdentify(context.Background(), job.ID, "Alien", 1979, 0)
	if err != nil {
		t.Fatalf("PreIdentify: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("status = %s, want %s", updated.Status, queue.StatusPending)
	}
	if updated.IdentifiedTitle != "Alien" || updated.IdentifiedYear != 1979 {
		t.Fatalf("identification = %q (%d), want Alien (1979)", updated.IdentifiedTitle, updated.IdentifiedYear)
	}
	if updated.Confidence == nil || *updated.Confidence != queue.HumanConfidence {
		t.Fatalf("confidence = %v, want human confidence", updated.Confidence)
	}
}

func TestPreIdentifyRejectsLateJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	job := reviewJob(t, store, "LATE_DISC")

	_, err := d.PreIdentify(context.Background(), job.ID, "Alien", 1979, 0)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("PreIdentify error = %v, want ErrInvalidTransition", err)
	}
	if !strings.Contains(err.Error(), "can no longer be pre-identified") {
		t.Fatalf("PreIdentify error %q should explain the cutoff", err)
	}
}

func TestSkipFailsJobWithReason(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	job := reviewJob(t, store, "UNWANTED_DISC")

	updated, err := d.Skip(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if updated.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want %s", updated.Status, queue.StatusFailed)
	}
	if updated.ErrorMessage != "Skipped by user" {
		t.Fatalf("error message = %q, want Skipped by user", updated.ErrorMessage)
	}
}

func TestArchiveKeepsFailureReason(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	ctx := context.Background()
	job := reviewJob(t, store, "SKIPPED_DISC")

	if _, err := d.Skip(ctx, job.ID); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	archived, err := d.Archive(ctx, job.ID)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if archived.Status != queue.StatusArchived {
		t.Fatalf("status = %s, want %s", archived.Status, queue.StatusArchived)
	}
	if archived.ErrorMessage != "Skipped by user" {
		t.Fatalf("archive dropped the failure reason: %q", archived.ErrorMessage)
	}
}

func TestArchiveRejectsActiveJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	job := testsupport.NewJob(t, store, "0", "ACTIVE_DISC")

	_, err := d.Archive(context.Background(), job.ID)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("Archive error = %v, want ErrInvalidTransition", err)
	}
}

func TestActiveModeToggle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	ctx := context.Background()

	active, err := d.ActiveMode(ctx)
	if err != nil {
		t.Fatalf("ActiveMode: %v", err)
	}
	if !active {
		t.Fatal("expected active mode to default to true")
	}

	toggled, err := d.ToggleActiveMode(ctx)
	if err != nil {
		t.Fatalf("ToggleActiveMode: %v", err)
	}
	if toggled {
		t.Fatal("expected toggle to switch active mode off")
	}

	toggled, err = d.ToggleActiveMode(ctx)
	if err != nil {
		t.Fatalf("ToggleActiveMode: %v", err)
	}
	if !toggled {
		t.Fatal("expected second toggle to switch active mode back on")
	}
}

func TestFixEncodingRevertsSurplusJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	ctx := context.Background()

	older := testsupport.NewJob(t, store, "0", "OLDER_DISC")
	older = testsupport.AdvanceJob(t, store, older,
		queue.StatusRipping, queue.StatusRipped, queue.StatusEncoding)
	newer := testsupport.NewJob(t, store, "0", "NEWER_DISC")
	newer = testsupport.AdvanceJob(t, store, newer, queue.StatusRipping, queue.StatusRipped)
	testsupport.ForceJobStatus(t, store, newer.ID, queue.StatusEncoding)
	testsupport.BackdateJob(t, store, older.ID, time.Hour)

	fixed, err := d.FixEncoding(ctx)
	if err != nil {
		t.Fatalf("FixEncoding: %v", err)
	}
	if fixed != 1 {
		t.Fatalf("fixed = %d, want 1", fixed)
	}

	reverted, err := store.GetJob(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if reverted.Status != queue.StatusRipped {
		t.Fatalf("older job status = %s, want %s", reverted.Status, queue.StatusRipped)
	}
	kept, err := store.GetJob(ctx, newer.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if kept.Status != queue.StatusEncoding {
		t.Fatalf("newer job status = %s, want %s", kept.Status, queue.StatusEncoding)
	}
}

func TestAddWantedEnrichesFromCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	searcher := &fakeSearcher{results: []tmdb.Result{{
		ID:          603,
		Title:       "The Matrix",
		ReleaseDate: "1999-03-31",
		PosterPath:  "/matrix.jpg",
	}}}
	d := operationsDaemon(t, cfg, store, searcher, nil)

	item, err := d.AddWanted(context.Background(), "matrix", 0, "", "saw the trailer")
	if err != nil {
		t.Fatalf("AddWanted: %v", err)
	}
	if item.Title != "The Matrix" {
		t.Fatalf("title = %q, want catalog title", item.Title)
	}
	if item.Year != 1999 || item.CatalogID != 603 || item.PosterRef != "/matrix.jpg" {
		t.Fatalf("enrichment missing: year=%d id=%d poster=%q", item.Year, item.CatalogID, item.PosterRef)
	}
	if item.Notes != "saw the trailer" {
		t.Fatalf("notes = %q", item.Notes)
	}
}

func TestAddWantedRejectsDuplicateCatalogEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	searcher := &fakeSearcher{results: []tmdb.Result{{
		ID:          603,
		Title:       "The Matrix",
		ReleaseDate: "1999-03-31",
	}}}
	d := operationsDaemon(t, cfg, store, searcher, nil)
	ctx := context.Background()

	if _, err := d.AddWanted(ctx, "matrix", 0, "", ""); err != nil {
		t.Fatalf("first AddWanted: %v", err)
	}
	_, err := d.AddWanted(ctx, "the matrix", 0, "", "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("duplicate AddWanted error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "already on the wanted list") {
		t.Fatalf("duplicate error %q should name the existing entry", err)
	}
}

func TestAddWantedValidatesInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	ctx := context.Background()

	if _, err := d.AddWanted(ctx, "  ", 0, "", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank title error = %v, want ErrValidation", err)
	}
	_, err := d.AddWanted(ctx, "Cosmos", 0, "music", "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad content type error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "unsupported content type") {
		t.Fatalf("bad content type error %q should name the field", err)
	}
}

func TestAddWantedSkipsEnrichmentForTV(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	searcher := &fakeSearcher{results: []tmdb.Result{{ID: 1399, Title: "Game of Thrones"}}}
	d := operationsDaemon(t, cfg, store, searcher, nil)

	item, err := d.AddWanted(context.Background(), "Band of Brothers", 2001, "tv_season", "")
	if err != nil {
		t.Fatalf("AddWanted: %v", err)
	}
	if item.ContentType != queue.ContentTypeTVSeason {
		t.Fatalf("content type = %s, want %s", item.ContentType, queue.ContentTypeTVSeason)
	}
	if item.Title != "Band of Brothers" || item.CatalogID != 0 {
		t.Fatalf("tv item should keep operator input, got %q (catalog %d)", item.Title, item.CatalogID)
	}
	if searcher.calls != 0 {
		t.Fatalf("movie search ran %d times for a tv item", searcher.calls)
	}
}

func TestRemoveWanted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	ctx := context.Background()

	item, err := d.AddWanted(ctx, "Tampopo", 1985, "", "")
	if err != nil {
		t.Fatalf("AddWanted: %v", err)
	}
	if err := d.RemoveWanted(ctx, item.ID); err != nil {
		t.Fatalf("RemoveWanted: %v", err)
	}
	if err := d.RemoveWanted(ctx, item.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("second RemoveWanted error = %v, want ErrNotFound", err)
	}
}

func TestCollectionListAndRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	ctx := context.Background()

	added, err := store.AddToCollection(ctx, queue.CollectionItem{
		Title:     "Heat",
		Year:      1995,
		FinalPath: testsupport.BaseDirPath(t, "Heat (1995).mkv"),
	})
	if err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}

	items, err := d.Collection(ctx)
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if len(items) != 1 || items[0].ID != added.ID {
		t.Fatalf("collection = %+v, want the seeded row", items)
	}

	if err := d.RemoveCollection(ctx, added.ID); err != nil {
		t.Fatalf("RemoveCollection: %v", err)
	}
	if err := d.RemoveCollection(ctx, added.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("second RemoveCollection error = %v, want ErrNotFound", err)
	}
}

func TestSearchCatalogGuards(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, nil)
	ctx := context.Background()

	if _, err := d.SearchCatalog(ctx, "  ", 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank query error = %v, want ErrValidation", err)
	}
	if _, err := d.SearchCatalog(ctx, "heat", 0); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing searcher error = %v, want ErrConfiguration", err)
	}
}

func TestSearchCatalogCapsResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	searcher := &fakeSearcher{}
	for i := 0; i < 12; i++ {
		searcher.results = append(searcher.results, tmdb.Result{
			ID:    int64(i + 1),
			Title: fmt.Sprintf("Candidate %d", i+1),
		})
	}
	d := operationsDaemon(t, cfg, store, searcher, nil)

	results, err := d.SearchCatalog(context.Background(), "candidate", 0)
	if err != nil {
		t.Fatalf("SearchCatalog: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("results = %d, want 10", len(results))
	}
}

func TestTestNotificationRequiresCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := operationsDaemon(t, cfg, store, nil, &recordingNotifier{})

	err := d.TestNotification(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("TestNotification error = %v, want ErrConfiguration", err)
	}
}

func TestTestNotificationPublishes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pushover.UserKey = "user"
	cfg.Pushover.APIToken = "token"
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	d := operationsDaemon(t, cfg, store, nil, notifier)

	if err := d.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventTest {
		t.Fatalf("events = %v, want one test event", notifier.events)
	}
}
