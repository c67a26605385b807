package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"platter/internal/config"
	"platter/internal/identification/tmdb"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/oversight"
	"platter/internal/preflight"
	"platter/internal/queue"
	"platter/internal/staging"
	"platter/internal/workflow"
)

const lockFileName = "platterd.lock"

// Daemon owns the process lifecycle: lock file, startup cleanup, workflow
// supervisor, HTTP control surface, and netlink wake monitor.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	supervisor *workflow.Supervisor
	searcher   tmdb.Searcher
	notifier   notifications.Service

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	netlink *netlinkMonitor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New builds a daemon with production dependencies: a TMDb client when a
// token is configured (manual identification and the wanted list degrade to
// no poster lookup without one) and the configured notifier.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, supervisor *workflow.Supervisor) (*Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var searcher tmdb.Searcher
	if cfg != nil && cfg.CatalogEnabled() {
		client, err := tmdb.New(cfg.TMDB.APIToken, cfg.TMDB.BaseURL, cfg.TMDB.Language)
		if err != nil {
			logger.Warn("tmdb client unavailable; manual identification will skip poster lookup", logging.Error(err))
		} else {
			searcher = client
		}
	}

	var notifier notifications.Service
	if cfg != nil {
		notifier = notifications.NewService(cfg)
	}
	return NewWithDependencies(cfg, store, logger, supervisor, searcher, notifier)
}

// NewWithDependencies builds a daemon with explicit collaborators. searcher
// and notifier may be nil; the endpoints needing them degrade gracefully.
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, supervisor *workflow.Supervisor, searcher tmdb.Searcher, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if store == nil {
		return nil, errors.New("daemon requires a queue store")
	}
	if supervisor == nil {
		return nil, errors.New("daemon requires a workflow supervisor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "daemon"),
		store:      store,
		supervisor: supervisor,
		searcher:   searcher,
		notifier:   notifier,
		lockPath:   filepath.Join(cfg.LogDir(), lockFileName),
	}
	d.api = newAPIServer(cfg, d, logger)
	d.netlink = newNetlinkMonitor(logger, supervisor.WakeDrives)
	return d, nil
}

// Start acquires the instance lock, resets interrupted jobs, and brings up
// the supervisor, control surface, and netlink monitor. Preflight failures
// are logged but do not block startup; the stage health checks keep
// reporting them.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}
	if d.lock == nil {
		d.lock = flock.New(d.lockPath)
	}
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another platter daemon instance is already running (lock file %s)", d.lockPath)
	}

	for _, result := range preflight.Failed(preflight.RunAll(d.cfg)) {
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)

	if err := oversight.ResetInterruptedJobs(runCtx, d.store, d.logger); err != nil {
		cancel()
		d.releaseLock()
		return fmt.Errorf("startup cleanup: %w", err)
	}
	if swept, err := staging.SweepOrphans(runCtx, d.cfg, d.store, d.logger); err != nil {
		d.logger.Warn("workspace sweep failed", logging.Error(err))
	} else if len(swept.Removed) > 0 {
		d.logger.Info("workspace sweep removed orphaned job directories",
			logging.Int("removed", len(swept.Removed)),
		)
	}
	if err := d.supervisor.Start(runCtx); err != nil {
		cancel()
		d.releaseLock()
		return fmt.Errorf("start supervisor: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.supervisor.Stop()
		cancel()
		d.releaseLock()
		return err
	}
	d.netlink.Start(runCtx)

	d.cancel = cancel
	d.running = true
	d.logger.Info("daemon started",
		logging.String("database", d.store.Path()),
		logging.String("lock_file", d.lockPath),
	)
	return nil
}

// Stop shuts the daemon down and releases the lock. Safe to call more than
// once.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.netlink.Stop()
	d.api.stop()
	d.supervisor.Stop()
	d.releaseLock()
	d.running = false
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports the daemon's view of itself and the workflow.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
}

// Status gathers the current daemon and workflow state.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()

	return Status{
		Running:      running,
		Workflow:     d.supervisor.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
}

// APIAddress reports the control surface's bound address, empty when the
// surface is disabled or the daemon has not started.
func (d *Daemon) APIAddress() string {
	if d == nil || d.api == nil {
		return ""
	}
	return d.api.boundAddr()
}

func (d *Daemon) releaseLock() {
	if d.lock == nil {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}
