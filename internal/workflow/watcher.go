package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
)

// watchDrive polls one optical drive for disc changes. Presence starts out
// false, so a disc sitting in the tray when the daemon boots is detected on
// the first pass. The wake channel lets the udev listener trigger a probe
// ahead of the poll interval without changing the edge semantics.
func (s *Supervisor) watchDrive(ctx context.Context, driveID string, wake <-chan struct{}) {
	defer s.wg.Done()
	logger := s.logger.With(
		logging.String(logging.FieldComponent, "drive-watcher"),
		logging.String(logging.FieldDrive, driveID),
	)
	logger.Info("watching drive", logging.Duration("poll_interval", s.drivePoll))

	present := false
	for {
		present = s.pollDrive(ctx, logger, driveID, present)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.drivePoll):
		case <-wake:
			logger.Debug("woken for early disc check")
		}
	}
}

// pollDrive probes once and reacts to presence edges. Probe failures count
// as an empty drive: the disc is picked up on the first clean probe after
// the fault clears.
func (s *Supervisor) pollDrive(ctx context.Context, logger *slog.Logger, driveID string, wasPresent bool) bool {
	present, label, err := s.prober.Probe(ctx, driveID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return wasPresent
		}
		logger.Warn("disc probe failed", logging.Error(err))
		return false
	}

	switch {
	case present && !wasPresent:
		s.handleDiscInserted(ctx, logger, driveID, label)
	case !present && wasPresent:
		logger.Info("disc removed")
	}
	return present
}

// handleDiscInserted queues a pending job for a newly inserted disc. A drive
// that already has a pending job keeps it: the same disc reappearing after
// a daemon restart or an eject-and-reinsert must not enqueue twice.
func (s *Supervisor) handleDiscInserted(ctx context.Context, logger *slog.Logger, driveID, label string) {
	logger.Info("disc detected", logging.String("disc_label", strings.TrimSpace(label)))

	existing, err := s.store.PendingJobForDrive(ctx, driveID)
	if err != nil {
		s.setLastError(err)
		logger.Error("failed to check for pending job", logging.Error(err))
		return
	}
	if existing != nil {
		logger.Info(
			"drive already has a pending job; not queueing again",
			logging.Int64(logging.FieldJobID, existing.ID),
			logging.String("pending_label", strings.TrimSpace(existing.DiscLabel)),
		)
		return
	}

	job, err := s.store.CreateJob(ctx, driveID, label)
	if err != nil {
		s.setLastError(err)
		logger.Error("failed to create job for disc", logging.Error(err))
		return
	}
	logger.Info(
		"queued disc for ripping",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("disc_label", strings.TrimSpace(job.DiscLabel)),
	)
	s.notifyDiscDetected(ctx, logger, job)
}

// notifyDiscDetected publishes the detection event unless active mode is
// off. Detection is the only event active mode suppresses; jobs already in
// the pipeline keep notifying.
func (s *Supervisor) notifyDiscDetected(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if s.notifier == nil {
		return
	}
	active, err := s.store.ActiveMode(ctx)
	if err != nil {
		logger.Warn("failed to read active mode; assuming on", logging.Error(err))
		active = true
	}
	if !active {
		logger.Debug("active mode off; detection notification suppressed")
		return
	}

	payload := notifications.Payload{
		"discLabel": job.DiscLabel,
		"drive":     job.DriveID,
	}
	if err := s.notifier.Publish(ctx, notifications.EventDiscDetected, payload); err != nil {
		logger.Warn("disc detection notification failed", logging.Error(err))
	}
}
