package ripping

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"log/slog"

	"platter/internal/config"
	"platter/internal/disc"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/services"
	"platter/internal/services/makemkv"
	"platter/internal/stage"
)

// Client is the slice of the MakeMKV client the ripper depends on.
type Client interface {
	Scan(ctx context.Context, driveID string) (*disc.ScanResult, error)
	Rip(ctx context.Context, driveID string, titleID int, destDir string, onProgress func(percent float64)) (string, error)
}

// Ripper extracts the main title of a disc into staging via MakeMKV.
type Ripper struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	client   Client
	ejector  disc.Ejector
	notifier notifications.Service
}

// NewRipper constructs the ripping handler using default dependencies.
func NewRipper(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Ripper {
	var client Client
	mk, err := makemkv.New(cfg.MakemkvBinary(), cfg.Workflow.ProbeTimeout, cfg.Workflow.ScanTimeout)
	if err != nil {
		if logger != nil {
			logger.Warn("makemkv client unavailable", logging.Error(err))
		}
	} else {
		client = mk
	}
	return NewRipperWithDependencies(cfg, store, logger, client, disc.NewEjector(), notifications.NewService(cfg))
}

// NewRipperWithDependencies allows injecting collaborators (used in tests).
func NewRipperWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client Client, ejector disc.Ejector, notifier notifications.Service) *Ripper {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = logging.WithComponent(stageLogger, "ripper")
	}
	return &Ripper{store: store, cfg: cfg, logger: stageLogger, client: client, ejector: ejector, notifier: notifier}
}

func (r *Ripper) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)
	job.SetProgress("Ripping", "Starting rip", 0)
	job.ErrorMessage = ""
	logger.Info(
		"starting rip",
		logging.String("disc_label", strings.TrimSpace(job.DiscLabel)),
		logging.String("drive", job.DriveID),
	)
	return nil
}

func (r *Ripper) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)
	if r.client == nil {
		return services.Wrap(
			services.ErrConfiguration,
			"ripping",
			"makemkv client",
			"MakeMKV client unavailable; check makemkvcon installation",
			nil,
		)
	}

	job.SetProgress("Ripping", "Scanning disc titles", 0)
	if err := r.store.UpdateProgress(ctx, job); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	scan, err := r.client.Scan(ctx, job.DriveID)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"ripping",
			"makemkv scan",
			"MakeMKV title scan failed; check disc readability",
			err,
		)
	}
	title, err := disc.SelectMainTitle(scan.Titles)
	if err != nil {
		return services.Wrap(
			services.ErrValidation,
			"ripping",
			"select main title",
			"No rippable titles found on disc",
			err,
		)
	}
	logger.Info(
		"selected main title",
		logging.Int("title_id", title.ID),
		logging.String("duration", disc.FormatDuration(title.Duration)),
		logging.Int64("size_bytes", title.Size),
	)

	destDir := r.cfg.JobStagingDir(job.ID)
	logger.Info("launching makemkv rip", logging.String("destination_dir", destDir))
	path, err := r.client.Rip(ctx, job.DriveID, title.ID, destDir, r.progressFunc(ctx, job))
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"ripping",
			"makemkv rip",
			"MakeMKV rip failed; check MakeMKV installation and disc readability",
			err,
		)
	}

	if err := r.store.SetRipPath(ctx, job.ID, path); err != nil {
		return fmt.Errorf("record rip path: %w", err)
	}
	job.RipPath = path
	job.SetProgress("Ripping", "Disc content ripped", 100)
	logger.Info("rip completed", logging.String("rip_path", path))

	if r.ejector != nil {
		device := ejectDevice(job.DriveID)
		logger.Info("ejecting disc", logging.String("device", device))
		if err := r.ejector.Eject(ctx, device); err != nil {
			logger.Warn("failed to eject disc", logging.Error(err))
		}
	}
	if r.notifier != nil {
		payload := notifications.Payload{"title": job.DisplayTitle()}
		if err := r.notifier.Publish(ctx, notifications.EventRipCompleted, payload); err != nil {
			logger.Warn("rip completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies MakeMKV ripping dependencies.
func (r *Ripper) HealthCheck(ctx context.Context) stage.Health {
	const name = "ripper"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(r.cfg.Paths.WorkspaceDir) == "" {
		return stage.Unhealthy(name, "workspace directory not configured")
	}
	if len(r.cfg.Drives.IDs) == 0 {
		return stage.Unhealthy(name, "no drives configured")
	}
	if r.client == nil {
		return stage.Unhealthy(name, "makemkv client unavailable")
	}
	binary := strings.TrimSpace(r.cfg.MakemkvBinary())
	if binary == "" {
		return stage.Unhealthy(name, "makemkv binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("makemkv binary %q not found", binary))
	}
	if r.ejector == nil {
		return stage.Unhealthy(name, "disc ejector unavailable")
	}
	return stage.Healthy(name)
}

// progressFunc persists rip progress on whole-percent changes. MakeMKV
// emits PRGV several times a second, and callbacks can arrive from either
// output scanner.
func (r *Ripper) progressFunc(ctx context.Context, job *queue.Job) func(float64) {
	var mu sync.Mutex
	last := -1
	return func(percent float64) {
		mu.Lock()
		defer mu.Unlock()
		whole := int(percent)
		if whole <= last {
			return
		}
		last = whole
		copy := *job
		copy.SetProgress("Ripping", fmt.Sprintf("Ripping %d%%", whole), percent)
		if err := r.store.UpdateProgress(ctx, &copy); err != nil {
			logging.WithContext(ctx, r.logger).Warn("failed to persist rip progress", logging.Error(err))
			return
		}
		*job = copy
	}
}

// ejectDevice maps a drive identifier onto the eject utility's argument.
// Numeric drive indexes fall back to the system default drive.
func ejectDevice(driveID string) string {
	driveID = strings.TrimSpace(driveID)
	if _, err := strconv.Atoi(driveID); err == nil {
		return ""
	}
	return driveID
}
