package daemon

import (
	"context"
	"fmt"
	"strings"

	"platter/internal/identification/tmdb"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/oversight"
	"platter/internal/queue"
	"platter/internal/services"
)

const (
	skippedByUser      = "Skipped by user"
	catalogSearchLimit = 10
)

// preIdentifyAllowed lists the statuses a job may hold while an operator
// pre-identifies it. Review has its own identify flow; anything past review
// already carries a final name.
var preIdentifyAllowed = map[queue.Status]struct{}{
	queue.StatusPending:     {},
	queue.StatusRipping:     {},
	queue.StatusRipped:      {},
	queue.StatusEncoding:    {},
	queue.StatusEncoded:     {},
	queue.StatusIdentifying: {},
}

// Job fetches one job or reports not found.
func (d *Daemon) Job(ctx context.Context, id int64) (*queue.Job, error) {
	job, err := d.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "daemon", "get job", fmt.Sprintf("job %d", id), nil)
	}
	return job, nil
}

// RecentJobs lists jobs newest first. limit <= 0 uses the store default.
func (d *Daemon) RecentJobs(ctx context.Context, limit int, includeArchived bool) ([]*queue.Job, error) {
	return d.store.RecentJobs(ctx, limit, includeArchived)
}

// Approve releases a review job to the mover, keeping the identification
// the identifier recorded.
func (d *Daemon) Approve(ctx context.Context, id int64) (*queue.Job, error) {
	job, err := d.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusReview {
		return nil, reviewGuard(id, job.Status, "approve job")
	}
	updated, err := d.store.UpdateJobStatus(ctx, id, queue.StatusMoving, "")
	if err != nil {
		return nil, err
	}
	d.logger.Info("review approved",
		logging.Int64("job_id", id),
		logging.String("title", updated.DisplayTitle()),
	)
	return updated, nil
}

// Identify overwrites a review job's identification with the operator's
// title or an exact catalog id and releases it to the mover. Confidence is
// pinned to the human level so nothing downstream second-guesses it.
func (d *Daemon) Identify(ctx context.Context, id int64, title string, year int, catalogID int64) (*queue.Job, error) {
	title = strings.TrimSpace(title)
	if title == "" && catalogID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "daemon", "identify job", "a title or catalog id is required", nil)
	}
	job, err := d.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusReview {
		return nil, reviewGuard(id, job.Status, "identify job")
	}

	ident, err := d.manualIdentification(ctx, "identify job", title, year, catalogID)
	if err != nil {
		return nil, err
	}
	if _, err := d.store.UpdateIdentification(ctx, id, ident); err != nil {
		return nil, err
	}
	updated, err := d.store.UpdateJobStatus(ctx, id, queue.StatusMoving, "")
	if err != nil {
		return nil, err
	}
	d.logger.Info("job identified manually",
		logging.Int64("job_id", id),
		logging.String("title", ident.Title),
		logging.Int("year", ident.Year),
		logging.Int64("catalog_id", ident.CatalogID),
	)
	return updated, nil
}

// PreIdentify records the operator's title on a job that has not reached
// review yet. The identifier sees the human confidence later and skips the
// catalog entirely; status is never touched here.
func (d *Daemon) PreIdentify(ctx context.Context, id int64, title string, year int, catalogID int64) (*queue.Job, error) {
	title = strings.TrimSpace(title)
	if title == "" && catalogID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "daemon", "pre-identify job", "a title or catalog id is required", nil)
	}
	job, err := d.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := preIdentifyAllowed[job.Status]; !ok {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"daemon", "pre-identify job",
			fmt.Sprintf("job %d can no longer be pre-identified (current status: %s)", id, job.Status),
			nil,
		)
	}

	ident, err := d.manualIdentification(ctx, "pre-identify job", title, year, catalogID)
	if err != nil {
		return nil, err
	}
	updated, err := d.store.UpdateIdentification(ctx, id, ident)
	if err != nil {
		return nil, err
	}
	d.logger.Info("job pre-identified",
		logging.Int64("job_id", id),
		logging.String("title", ident.Title),
		logging.Int("year", ident.Year),
		logging.String("status", string(updated.Status)),
	)
	return updated, nil
}

// Skip fails a review job on the operator's behalf.
func (d *Daemon) Skip(ctx context.Context, id int64) (*queue.Job, error) {
	job, err := d.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusReview {
		return nil, reviewGuard(id, job.Status, "skip job")
	}
	updated, err := d.store.UpdateJobStatus(ctx, id, queue.StatusFailed, skippedByUser)
	if err != nil {
		return nil, err
	}
	d.logger.Info("job skipped",
		logging.Int64("job_id", id),
		logging.String("title", updated.DisplayTitle()),
	)
	return updated, nil
}

// Archive hides a complete or failed job from the default listings. The
// store graph rejects every other status.
func (d *Daemon) Archive(ctx context.Context, id int64) (*queue.Job, error) {
	job, err := d.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	// Pass the stored failure text through; UpdateJobStatus replaces the
	// message and an empty one would erase why the job failed.
	updated, err := d.store.UpdateJobStatus(ctx, id, queue.StatusArchived, job.ErrorMessage)
	if err != nil {
		return nil, err
	}
	d.logger.Info("job archived", logging.Int64("job_id", id))
	return updated, nil
}

// OversightCheck reports queue-consistency issues without changing state.
func (d *Daemon) OversightCheck(ctx context.Context) ([]string, error) {
	return oversight.Check(ctx, d.store)
}

// FixEncoding reverts every encoding job but the most recent one back to
// ripped and reports how many moved.
func (d *Daemon) FixEncoding(ctx context.Context) (int, error) {
	fixed, err := oversight.FixStuckEncoding(ctx, d.store)
	if err != nil {
		return fixed, err
	}
	if fixed > 0 {
		d.logger.Info("reverted surplus encoding jobs", logging.Int("fixed", fixed))
	}
	return fixed, nil
}

// ActiveMode reads the detection-notification toggle.
func (d *Daemon) ActiveMode(ctx context.Context) (bool, error) {
	return d.store.ActiveMode(ctx)
}

// ToggleActiveMode flips the detection-notification toggle and reports the
// new state.
func (d *Daemon) ToggleActiveMode(ctx context.Context) (bool, error) {
	active, err := d.store.ActiveMode(ctx)
	if err != nil {
		return false, err
	}
	if err := d.store.SetActiveMode(ctx, !active); err != nil {
		return false, err
	}
	d.logger.Info("active mode toggled", logging.Bool("active", !active))
	return !active, nil
}

// Wanted lists the watch list, newest first.
func (d *Daemon) Wanted(ctx context.Context) ([]*queue.WantedItem, error) {
	return d.store.Wanted(ctx)
}

// AddWanted records a title on the watch list, enriching it with catalog
// data when a lookup succeeds. Duplicate catalog entries are rejected so
// the list stays one row per title.
func (d *Daemon) AddWanted(ctx context.Context, title string, year int, contentType, notes string) (*queue.WantedItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "daemon", "add wanted", "title is required", nil)
	}
	parsed := queue.ContentTypeMovie
	if strings.TrimSpace(contentType) != "" {
		var ok bool
		parsed, ok = queue.ParseContentType(contentType)
		if !ok || parsed == queue.ContentTypeUnknown {
			return nil, services.Wrap(services.ErrValidation, "daemon", "add wanted", fmt.Sprintf("unsupported content type %q", contentType), nil)
		}
	}

	item := queue.WantedItem{
		Title:       title,
		Year:        year,
		ContentType: parsed,
		Notes:       strings.TrimSpace(notes),
	}
	d.enrichWanted(ctx, &item)

	if item.CatalogID != 0 {
		existing, err := d.store.Wanted(ctx)
		if err != nil {
			return nil, err
		}
		for _, row := range existing {
			if row.CatalogID == item.CatalogID && row.ContentType == item.ContentType {
				return nil, services.Wrap(
					services.ErrValidation,
					"daemon", "add wanted",
					fmt.Sprintf("%q is already on the wanted list (id %d)", row.Title, row.ID),
					nil,
				)
			}
		}
	}

	added, err := d.store.AddToWanted(ctx, item)
	if err != nil {
		return nil, err
	}
	d.logger.Info("wanted title added",
		logging.Int64("wanted_id", added.ID),
		logging.String("title", added.Title),
	)
	return added, nil
}

// RemoveWanted deletes a watch-list entry.
func (d *Daemon) RemoveWanted(ctx context.Context, id int64) error {
	removed, err := d.store.RemoveFromWanted(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "daemon", "remove wanted", fmt.Sprintf("wanted item %d", id), nil)
	}
	d.logger.Info("wanted title removed", logging.Int64("wanted_id", id))
	return nil
}

// Collection lists the library ledger.
func (d *Daemon) Collection(ctx context.Context) ([]*queue.CollectionItem, error) {
	return d.store.Collection(ctx)
}

// RemoveCollection deletes a ledger row. Files on disk are untouched.
func (d *Daemon) RemoveCollection(ctx context.Context, id int64) error {
	removed, err := d.store.RemoveFromCollection(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "daemon", "remove collection", fmt.Sprintf("collection item %d", id), nil)
	}
	d.logger.Info("collection entry removed", logging.Int64("collection_id", id))
	return nil
}

// SearchCatalog proxies a movie search so review tooling never needs the
// API token. At most ten candidates come back, mirroring what the
// identifier scores.
func (d *Daemon) SearchCatalog(ctx context.Context, query string, year int) ([]tmdb.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "daemon", "catalog search", "query is required", nil)
	}
	if d.searcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "catalog search", "no TMDb API token configured", nil)
	}

	resp, err := d.searcher.SearchMovie(ctx, query, year)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	results := resp.Results
	if len(results) > catalogSearchLimit {
		results = results[:catalogSearchLimit]
	}
	return results, nil
}

// TestNotification publishes a test event through the notifier.
func (d *Daemon) TestNotification(ctx context.Context) error {
	if d.notifier == nil || strings.TrimSpace(d.cfg.Pushover.UserKey) == "" || strings.TrimSpace(d.cfg.Pushover.APIToken) == "" {
		return services.Wrap(services.ErrConfiguration, "daemon", "test notification", "pushover credentials are not configured", nil)
	}
	return d.notifier.Publish(ctx, notifications.EventTest, nil)
}

// manualIdentification builds the record for an operator-supplied title or
// catalog id. An explicit catalog id must resolve, since the operator named
// an exact record; title enrichment is best-effort and a failed lookup just
// means no poster.
func (d *Daemon) manualIdentification(ctx context.Context, op, title string, year int, catalogID int64) (queue.Identification, error) {
	confidence := queue.HumanConfidence
	ident := queue.Identification{
		ContentType: queue.ContentTypeMovie,
		Title:       title,
		Year:        year,
		Confidence:  &confidence,
	}

	if catalogID > 0 {
		if d.searcher == nil {
			return ident, services.Wrap(services.ErrConfiguration, "daemon", op, "no TMDb API token configured", nil)
		}
		details, err := d.searcher.MovieDetails(ctx, catalogID)
		if err != nil {
			return ident, fmt.Errorf("resolve catalog id %d: %w", catalogID, err)
		}
		ident.CatalogID = details.ID
		ident.PosterRef = details.PosterPath
		if ident.Title == "" {
			ident.Title = details.Title
		}
		if ident.Year == 0 {
			ident.Year = details.Year()
		}
		return ident, nil
	}

	if d.searcher == nil {
		return ident, nil
	}
	resp, err := d.searcher.SearchMovie(ctx, title, year)
	if err != nil {
		d.logger.Warn("catalog lookup failed during manual identification",
			logging.String("title", title),
			logging.Error(err),
		)
		return ident, nil
	}
	if resp == nil || len(resp.Results) == 0 {
		return ident, nil
	}
	match := resp.Results[0]
	ident.CatalogID = match.ID
	ident.PosterRef = match.PosterPath
	if ident.Year == 0 {
		ident.Year = match.Year()
	}
	return ident, nil
}

// enrichWanted fills year, catalog id, and poster from the first catalog
// match. Only movie lookups are supported; failures leave the item as
// entered.
func (d *Daemon) enrichWanted(ctx context.Context, item *queue.WantedItem) {
	if d.searcher == nil || item.ContentType != queue.ContentTypeMovie {
		return
	}
	resp, err := d.searcher.SearchMovie(ctx, item.Title, item.Year)
	if err != nil {
		d.logger.Warn("catalog lookup failed for wanted title",
			logging.String("title", item.Title),
			logging.Error(err),
		)
		return
	}
	if resp == nil || len(resp.Results) == 0 {
		return
	}
	match := resp.Results[0]
	item.Title = match.Title
	item.CatalogID = match.ID
	item.PosterRef = match.PosterPath
	if item.Year == 0 {
		item.Year = match.Year()
	}
}

func reviewGuard(id int64, current queue.Status, operation string) error {
	return services.Wrap(
		services.ErrInvalidTransition,
		"daemon", operation,
		fmt.Sprintf("job %d is not awaiting review (current status: %s)", id, current),
		nil,
	)
}
