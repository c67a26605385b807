package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"platter/internal/config"
	"platter/internal/fileutil"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/services"
	"platter/internal/stage"
	"platter/internal/textutil"
)

// Mover places encoded files into the library and finalizes completed jobs.
type Mover struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// NewMover constructs the library move handler using default dependencies.
func NewMover(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Mover {
	return NewMoverWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewMoverWithDependencies allows injecting collaborators (used in tests).
func NewMoverWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Mover {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = logging.WithComponent(stageLogger, "mover")
	}
	return &Mover{store: store, cfg: cfg, logger: stageLogger, notifier: notifier}
}

func (m *Mover) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, m.logger)
	job.SetProgress("Moving", "Preparing library move", 0)
	job.ErrorMessage = ""
	logger.Info(
		"starting library move",
		logging.String("title", job.DisplayTitle()),
		logging.String("encode_path", strings.TrimSpace(job.EncodePath)),
	)
	return nil
}

func (m *Mover) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, m.logger)

	if err := stage.RequireArtifact(job.EncodePath, "organizer", "validate inputs"); err != nil {
		return err
	}
	title := strings.TrimSpace(job.IdentifiedTitle)
	if title == "" {
		return services.Wrap(
			services.ErrValidation,
			"organizer",
			"validate identification",
			"Job has no identified title; identify it before moving",
			nil,
		)
	}

	root, err := m.libraryRoot(job.ContentType, logger)
	if err != nil {
		return err
	}
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("library root not mounted; leaving job queued", logging.String("root", root))
			return services.Wrap(
				services.ErrRetryLater,
				"organizer",
				"check library root",
				fmt.Sprintf("library root %s does not exist", root),
				nil,
			)
		}
		return services.Wrap(services.ErrConfiguration, "organizer", "check library root", "Failed to inspect library root", err)
	}

	name := libraryName(title, job.IdentifiedYear)
	if name == "" {
		return services.Wrap(
			services.ErrValidation,
			"organizer",
			"build library name",
			fmt.Sprintf("title %q sanitizes to an empty name", title),
			nil,
		)
	}
	destDir := filepath.Join(root, name)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "organizer", "create library directory", "Failed to create library directory", err)
	}
	dest := filepath.Join(destDir, name+filepath.Ext(job.EncodePath))

	job.SetProgress("Moving", "Moving to library", 50)
	if err := m.store.UpdateProgress(ctx, job); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	if err := fileutil.MoveFile(job.EncodePath, dest); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"organizer",
			"move into library",
			"Failed to move encoded file into the library",
			err,
		)
	}
	if err := m.store.SetFinalPath(ctx, job.ID, dest); err != nil {
		return fmt.Errorf("record final path: %w", err)
	}
	job.FinalPath = dest
	job.SetProgress("Moving", "Moved to library", 100)
	logger.Info("library move completed", logging.String("final_path", dest))

	if _, err := m.store.AddToCollection(ctx, queue.CollectionItem{
		ContentType: job.ContentType,
		Title:       title,
		Year:        job.IdentifiedYear,
		CatalogID:   job.CatalogID,
		FinalPath:   dest,
	}); err != nil {
		logger.Warn("failed to record collection entry", logging.Error(err))
	}

	m.cleanupJobDirs(ctx, job)

	if m.notifier != nil {
		payload := notifications.Payload{"title": job.DisplayTitle()}
		if err := m.notifier.Publish(ctx, notifications.EventJobCompleted, payload); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies library move dependencies.
func (m *Mover) HealthCheck(ctx context.Context) stage.Health {
	const name = "mover"
	if m.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(m.cfg.Paths.MoviesDir) == "" {
		return stage.Unhealthy(name, "movies library root not configured")
	}
	if strings.TrimSpace(m.cfg.Paths.WorkspaceDir) == "" {
		return stage.Unhealthy(name, "workspace directory not configured")
	}
	return stage.Healthy(name)
}

// libraryRoot selects the destination root for a job. Unknown content routes
// like a movie; tv_season routes under the TV root.
func (m *Mover) libraryRoot(contentType queue.ContentType, logger *slog.Logger) (string, error) {
	switch contentType {
	case queue.ContentTypeTVSeason:
		root := strings.TrimSpace(m.cfg.Paths.TVDir)
		if root == "" {
			return "", services.Wrap(services.ErrConfiguration, "organizer", "select library root", "TV library root not configured", nil)
		}
		return root, nil
	case queue.ContentTypeMovie:
	default:
		logger.Warn("unknown content type routed as movie", logging.String("content_type", string(contentType)))
	}
	root := strings.TrimSpace(m.cfg.Paths.MoviesDir)
	if root == "" {
		return "", services.Wrap(services.ErrConfiguration, "organizer", "select library root", "movies library root not configured", nil)
	}
	return root, nil
}

// cleanupJobDirs removes per-job staging and encoding directories. Failures
// are logged and never fail the job.
func (m *Mover) cleanupJobDirs(ctx context.Context, job *queue.Job) {
	logger := logging.WithContext(ctx, m.logger)
	for _, dir := range []string{m.cfg.JobStagingDir(job.ID), m.cfg.JobEncodingDir(job.ID)} {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to clean up job directory", logging.String("dir", dir), logging.Error(err))
			continue
		}
		logger.Info("cleaned up job directory", logging.String("dir", dir))
	}
}

// libraryName renders "<title> (<year>)", dropping the year suffix when the
// year is unknown.
func libraryName(title string, year int) string {
	name := textutil.SanitizeFileName(title)
	if name == "" {
		return ""
	}
	if year > 0 {
		return fmt.Sprintf("%s (%d)", name, year)
	}
	return name
}
