package identification

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"platter/internal/config"
	"platter/internal/identification/tmdb"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/stage"
	"platter/internal/textutil"
)

// maxCandidates bounds how many catalog results are scored per job.
const maxCandidates = 10

// Identifier resolves encoded jobs into catalog matches with confidence
// scores, or hands them to a human.
type Identifier struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	searcher tmdb.Searcher
	notifier notifications.Service
}

// NewIdentifier constructs the identification stage handler using default
// dependencies. When no TMDb token is configured the catalog stays nil and
// every job routes to review.
func NewIdentifier(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Identifier {
	var searcher tmdb.Searcher
	if cfg.CatalogEnabled() {
		client, err := tmdb.New(cfg.TMDB.APIToken, cfg.TMDB.BaseURL, cfg.TMDB.Language)
		if err != nil {
			if logger != nil {
				logger.Warn("tmdb client initialization failed", logging.Error(err))
			}
		} else {
			searcher = client
		}
	}
	return NewIdentifierWithDependencies(cfg, store, logger, searcher, notifications.NewService(cfg))
}

// NewIdentifierWithDependencies allows injecting collaborators (used in tests).
func NewIdentifierWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, searcher tmdb.Searcher, notifier notifications.Service) *Identifier {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = logging.WithComponent(stageLogger, "identifier")
	}
	return &Identifier{store: store, cfg: cfg, logger: stageLogger, searcher: searcher, notifier: notifier}
}

func (i *Identifier) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, i.logger)
	job.SetProgress("Identifying", "Preparing identification", 0)
	job.ErrorMessage = ""
	logger.Info("starting identification", logging.String("disc_label", strings.TrimSpace(job.DiscLabel)))
	return nil
}

func (i *Identifier) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, i.logger)

	if job.IsPreIdentified() {
		logger.Info(
			"job pre-identified, skipping catalog lookup",
			logging.String("title", job.IdentifiedTitle),
			logging.Int("year", job.IdentifiedYear),
		)
		job.SetProgress("Identifying", fmt.Sprintf("Pre-identified as %s", job.DisplayTitle()), 100)
		job.Status = queue.StatusMoving
		return nil
	}

	cleaned := CleanLabel(job.DiscLabel)
	logger.Info(
		"cleaned disc label",
		logging.String("raw", strings.TrimSpace(job.DiscLabel)),
		logging.String("cleaned", cleaned),
	)
	job.SetProgress("Identifying", "Searching catalog", 25)

	candidates := i.search(ctx, logger, cleaned)
	if len(candidates) == 0 {
		return i.finishUnknown(ctx, job, logger)
	}

	best, bestScore := pickBest(cleaned, candidates)
	ident := queue.Identification{
		ContentType: queue.ContentTypeMovie,
		Title:       best.Title,
		Year:        best.Year(),
		CatalogID:   best.ID,
		Confidence:  &bestScore,
		PosterRef:   best.PosterPath,
	}
	updated, err := i.store.UpdateIdentification(ctx, job.ID, ident)
	if err != nil {
		return err
	}
	applyIdentification(job, updated)

	autoApproved := bestScore >= i.cfg.TMDB.AutoApproveThreshold
	logger.Info(
		"identification decision",
		logging.String("title", best.Title),
		logging.Int("year", best.Year()),
		logging.Int64("catalog_id", best.ID),
		logging.Float64("confidence", bestScore),
		logging.Float64("threshold", i.cfg.TMDB.AutoApproveThreshold),
		logging.String("route", textutil.Ternary(autoApproved, "library", "review")),
	)

	if autoApproved {
		job.SetProgress("Identifying", fmt.Sprintf("Identified as %s", job.DisplayTitle()), 100)
		job.Status = queue.StatusMoving
		return nil
	}

	job.SetProgress("Identifying", fmt.Sprintf("Best guess %s; needs review", job.DisplayTitle()), 100)
	job.Status = queue.StatusReview
	i.notifyReview(ctx, job.DisplayTitle(), fmt.Sprintf("Best match %s (%.0f%% confidence)", best.Title, bestScore*100))
	return nil
}

// search returns the raw catalog candidates for a cleaned label. A nil
// searcher, empty label, or catalog failure all come back empty; the caller
// routes those to review rather than failing the job.
func (i *Identifier) search(ctx context.Context, logger *slog.Logger, cleaned string) []tmdb.Result {
	if i.searcher == nil || cleaned == "" {
		return nil
	}
	resp, err := i.searcher.SearchMovie(ctx, cleaned, 0)
	if err != nil {
		logger.Warn("catalog search failed", logging.Error(err))
		return nil
	}
	return resp.Results
}

func (i *Identifier) finishUnknown(ctx context.Context, job *queue.Job, logger *slog.Logger) error {
	guess := DisplayGuess(job.DiscLabel)
	confidence := 0.0
	updated, err := i.store.UpdateIdentification(ctx, job.ID, queue.Identification{
		ContentType: queue.ContentTypeUnknown,
		Title:       guess,
		Confidence:  &confidence,
	})
	if err != nil {
		return err
	}
	applyIdentification(job, updated)
	job.SetProgress("Identifying", "No catalog match; needs review", 100)
	job.Status = queue.StatusReview
	logger.Info("no catalog match", logging.String("guess", guess))
	i.notifyReview(ctx, guess, "No catalog match")
	return nil
}

func (i *Identifier) notifyReview(ctx context.Context, title, reason string) {
	if i.notifier == nil {
		return
	}
	payload := notifications.Payload{"title": title, "reason": reason}
	if err := i.notifier.Publish(ctx, notifications.EventReviewRequired, payload); err != nil {
		logging.WithContext(ctx, i.logger).Warn("review notification failed", logging.Error(err))
	}
}

// HealthCheck reports whether catalog lookups are available.
func (i *Identifier) HealthCheck(ctx context.Context) stage.Health {
	const name = "identifier"
	if i.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if i.searcher == nil {
		return stage.Unhealthy(name, "catalog lookups disabled; set tmdb api_token")
	}
	return stage.Healthy(name)
}

func pickBest(query string, results []tmdb.Result) (tmdb.Result, float64) {
	var best tmdb.Result
	bestScore := -1.0
	for idx, result := range results {
		if idx >= maxCandidates {
			break
		}
		score := Score(query, result.Title, result.Popularity, idx == 0)
		if score > bestScore {
			best, bestScore = result, score
		}
	}
	return best, bestScore
}

// applyIdentification copies persisted identification fields onto the
// in-flight job without clobbering progress state the supervisor still
// needs to flush.
func applyIdentification(job *queue.Job, updated *queue.Job) {
	if updated == nil {
		return
	}
	job.ContentType = updated.ContentType
	job.IdentifiedTitle = updated.IdentifiedTitle
	job.IdentifiedYear = updated.IdentifiedYear
	job.CatalogID = updated.CatalogID
	job.Confidence = updated.Confidence
	job.PosterRef = updated.PosterRef
}
