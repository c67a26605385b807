package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/services/makemkv"
	"platter/internal/stage"
)

// Prober is the slice of the MakeMKV client the drive watchers depend on.
type Prober interface {
	Probe(ctx context.Context, driveID string) (present bool, label string, err error)
}

// Handlers bundles the concrete stage handlers the supervisor runs. A nil
// handler disables its lane.
type Handlers struct {
	Ripper     stage.Handler
	Encoder    stage.Handler
	Identifier stage.Handler
	Mover      stage.Handler
}

// Supervisor coordinates drive watchers and pipeline lanes over the shared
// queue store.
type Supervisor struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	prober   Prober
	handlers Handlers

	pollInterval time.Duration
	drivePoll    time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	wakes   map[string]chan struct{}
}

// NewSupervisor constructs a supervisor using default dependencies.
func NewSupervisor(cfg *config.Config, store *queue.Store, logger *slog.Logger, handlers Handlers) *Supervisor {
	var prober Prober
	client, err := makemkv.New(cfg.MakemkvBinary(), cfg.Workflow.ProbeTimeout, cfg.Workflow.ScanTimeout)
	if err != nil {
		if logger != nil {
			logger.Warn("makemkv client unavailable; disc watching disabled", logging.Error(err))
		}
	} else {
		prober = client
	}
	return NewSupervisorWithDependencies(cfg, store, logger, handlers, prober, notifications.NewService(cfg))
}

// NewSupervisorWithDependencies allows injecting collaborators (used in tests).
func NewSupervisorWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, handlers Handlers, prober Prober, notifier notifications.Service) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		prober:       prober,
		handlers:     handlers,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		drivePoll:    time.Duration(cfg.Drives.PollInterval) * time.Second,
	}
}

// Start launches the drive watchers and lane loops. It returns immediately;
// work continues until the context is cancelled or Stop is called.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("supervisor already running")
	}

	lanes := s.buildLanes()
	watchers := s.cfg.Drives.IDs
	if s.prober == nil {
		watchers = nil
	}
	if len(lanes) == 0 && len(watchers) == 0 {
		s.mu.Unlock()
		return errors.New("supervisor has no stage handlers and no disc prober")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wakes = make(map[string]chan struct{}, len(watchers))
	for _, driveID := range watchers {
		s.wakes[driveID] = make(chan struct{}, 1)
	}
	for _, ln := range lanes {
		ln.logger = s.laneLogger(ln)
	}
	s.wg.Add(len(lanes) + len(watchers))
	s.mu.Unlock()

	if s.prober == nil && s.handlers.Ripper != nil {
		s.logger.Warn("disc prober unavailable; inserted discs will not be detected")
	}

	for _, ln := range lanes {
		go s.runLane(runCtx, ln)
	}
	for driveID, wake := range s.wakes {
		go s.watchDrive(runCtx, driveID, wake)
	}
	return nil
}

// Stop cancels all watchers and lanes and waits for them to exit. An
// interrupted encode reverts its job before the wait returns.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// WakeDrives asks every drive watcher to probe now instead of waiting out
// its poll interval. The udev listener calls it on disc-change events; it
// never blocks and is safe before Start and after Stop.
func (s *Supervisor) WakeDrives() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, wake := range s.wakes {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

// StatusSummary captures lightweight pipeline diagnostics for the control
// surface and CLI.
type StatusSummary struct {
	Running   bool
	LastError string
	Counts    map[queue.Status]int
	Stages    []stage.Health
}

// Status reports supervisor state, queue counts, and stage health in
// pipeline order.
func (s *Supervisor) Status(ctx context.Context) StatusSummary {
	s.mu.RLock()
	running := s.running
	lastErr := s.lastErr
	s.mu.RUnlock()

	counts, err := s.store.CountsByStatus(ctx)
	if err != nil {
		s.logger.Warn("failed to read queue counts", logging.Error(err))
	}

	summary := StatusSummary{Running: running, Counts: counts}
	for _, handler := range []stage.Handler{s.handlers.Ripper, s.handlers.Encoder, s.handlers.Identifier, s.handlers.Mover} {
		if handler == nil {
			continue
		}
		summary.Stages = append(summary.Stages, handler.HealthCheck(ctx))
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (s *Supervisor) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// waitForWork sleeps out the queue poll interval or returns early on
// shutdown.
func (s *Supervisor) waitForWork(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(s.pollInterval):
	}
}
