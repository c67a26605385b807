package encoding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/services"
	"platter/internal/services/handbrake"
	"platter/internal/stage"
)

// Client is the slice of the HandBrake client the encoder depends on.
type Client interface {
	Encode(ctx context.Context, inputPath, outputPath string, onProgress func(handbrake.Progress)) error
}

// progressPersistInterval caps how often transcode progress hits the store.
const progressPersistInterval = 2 * time.Second

// Encoder transcodes ripped files into the per-job encoding directory.
type Encoder struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	client   Client
	notifier notifications.Service
}

// NewEncoder constructs the encoding handler using default dependencies.
func NewEncoder(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Encoder {
	var client Client
	hb, err := handbrake.New(cfg.HandBrakeBinary())
	if err != nil {
		if logger != nil {
			logger.Warn("handbrake client unavailable", logging.Error(err))
		}
	} else {
		client = hb
	}
	return NewEncoderWithDependencies(cfg, store, logger, client, notifications.NewService(cfg))
}

// NewEncoderWithDependencies allows injecting collaborators (used in tests).
func NewEncoderWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client Client, notifier notifications.Service) *Encoder {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = logging.WithComponent(stageLogger, "encoder")
	}
	return &Encoder{store: store, cfg: cfg, logger: stageLogger, client: client, notifier: notifier}
}

func (e *Encoder) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, e.logger)
	job.SetProgress("Encoding", "Starting transcode", 0)
	job.ErrorMessage = ""
	logger.Info("starting transcode", logging.String("rip_path", strings.TrimSpace(job.RipPath)))
	return nil
}

func (e *Encoder) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, e.logger)
	stageStart := time.Now()

	if err := stage.RequireArtifact(job.RipPath, "encoding", "validate inputs"); err != nil {
		return err
	}
	if e.client == nil {
		return services.Wrap(
			services.ErrConfiguration,
			"encoding",
			"handbrake client",
			"HandBrake client unavailable; check HandBrakeCLI installation",
			nil,
		)
	}

	encodedDir := e.cfg.JobEncodingDir(job.ID)
	if err := clearEncodedDir(logger, encodedDir); err != nil {
		return err
	}
	output := filepath.Join(encodedDir, encodedFilename(job.RipPath))

	logger.Info(
		"launching handbrake transcode",
		logging.String("input", job.RipPath),
		logging.String("output", output),
	)
	if err := e.client.Encode(ctx, job.RipPath, output, e.progressFunc(ctx, job)); err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"encoding",
			"handbrake encode",
			"HandBrake transcoding failed; inspect the output log and confirm HandBrakeCLI is installed",
			err,
		)
	}

	if err := e.store.SetEncodePath(ctx, job.ID, output); err != nil {
		return fmt.Errorf("record encode path: %w", err)
	}
	job.EncodePath = output
	job.SetProgress("Encoding", "Transcode completed", 100)

	var inputBytes, outputBytes int64
	if info, err := os.Stat(job.RipPath); err == nil {
		inputBytes = info.Size()
	}
	if info, err := os.Stat(output); err == nil {
		outputBytes = info.Size()
	}
	var ratio float64
	if inputBytes > 0 {
		ratio = float64(outputBytes) / float64(inputBytes) * 100
	}
	logger.Info(
		"transcode completed",
		logging.String("encode_path", output),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.Int64("input_bytes", inputBytes),
		logging.Int64("output_bytes", outputBytes),
		logging.Float64("size_ratio_percent", ratio),
	)

	if e.notifier != nil {
		payload := notifications.Payload{"title": job.DisplayTitle()}
		if err := e.notifier.Publish(ctx, notifications.EventEncodeCompleted, payload); err != nil {
			logger.Warn("encode completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies HandBrake transcoding dependencies.
func (e *Encoder) HealthCheck(ctx context.Context) stage.Health {
	const name = "encoder"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(e.cfg.Paths.WorkspaceDir) == "" {
		return stage.Unhealthy(name, "workspace directory not configured")
	}
	if e.client == nil {
		return stage.Unhealthy(name, "handbrake client unavailable")
	}
	binary := strings.TrimSpace(e.cfg.HandBrakeBinary())
	if binary == "" {
		return stage.Unhealthy(name, "handbrake binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("handbrake binary %q not found", binary))
	}
	return stage.Healthy(name)
}

// progressFunc persists transcode progress at most every couple of seconds.
// HandBrake reports several times a second on fast hardware.
func (e *Encoder) progressFunc(ctx context.Context, job *queue.Job) func(handbrake.Progress) {
	var lastPersisted time.Time
	return func(progress handbrake.Progress) {
		copy := *job
		copy.SetProgress("Encoding", progressMessage(progress), progress.Percent)
		now := time.Now()
		if !lastPersisted.IsZero() && now.Sub(lastPersisted) < progressPersistInterval {
			*job = copy
			return
		}
		lastPersisted = now
		if err := e.store.UpdateProgress(ctx, &copy); err != nil {
			logging.WithContext(ctx, e.logger).Warn("failed to persist transcode progress", logging.Error(err))
			return
		}
		*job = copy
	}
}

func progressMessage(progress handbrake.Progress) string {
	base := fmt.Sprintf("Encoding %.1f%%", progress.Percent)
	extras := make([]string, 0, 2)
	if progress.FPS > 0 {
		extras = append(extras, fmt.Sprintf("%.1f fps", progress.FPS))
	}
	if progress.ETA != "" {
		extras = append(extras, "ETA "+progress.ETA)
	}
	if len(extras) == 0 {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(extras, ", "))
}

// clearEncodedDir removes artifacts from an interrupted earlier attempt so
// the fresh transcode cannot pick up a stale output.
func clearEncodedDir(logger *slog.Logger, encodedDir string) error {
	info, err := os.Stat(encodedDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(
			services.ErrConfiguration,
			"encoding",
			"inspect encoding dir",
			"Failed to inspect previous encode artifacts",
			err,
		)
	}
	if !info.IsDir() {
		return services.Wrap(
			services.ErrConfiguration,
			"encoding",
			"inspect encoding dir",
			fmt.Sprintf("Expected encoding path %q to be a directory", encodedDir),
			nil,
		)
	}
	if err := os.RemoveAll(encodedDir); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"encoding",
			"remove stale artifacts",
			"Failed to remove previous encode outputs",
			err,
		)
	}
	if logger != nil {
		logger.Info("removed stale encode artifacts", logging.String("encoding_dir", encodedDir))
	}
	return nil
}

func encodedFilename(ripPath string) string {
	base := filepath.Base(ripPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "encoded"
	}
	return stem + ".mp4"
}
