package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/services"
	"platter/internal/stage"
)

// revertTimeout bounds the queue write that returns an interrupted encode to
// the ripped queue after the lane context is already cancelled.
const revertTimeout = 5 * time.Second

// lane is one claim-and-process loop. Rip lanes carry a drive and claim only
// jobs created for it; the other lanes are singletons. A lane whose start
// and processing statuses match (the move lane) picks up jobs that already
// carry its processing status and performs no claim transition.
type lane struct {
	name           string
	driveID        string
	handler        stage.Handler
	start          queue.Status
	processing     queue.Status
	done           queue.Status
	revertOnCancel bool
	logger         *slog.Logger
}

func (s *Supervisor) buildLanes() []*lane {
	var lanes []*lane
	if s.handlers.Ripper != nil {
		for _, driveID := range s.cfg.Drives.IDs {
			lanes = append(lanes, &lane{
				name:       "rip",
				driveID:    driveID,
				handler:    s.handlers.Ripper,
				start:      queue.StatusPending,
				processing: queue.StatusRipping,
				done:       queue.StatusRipped,
			})
		}
	}
	if s.handlers.Encoder != nil {
		lanes = append(lanes, &lane{
			name:           "encode",
			handler:        s.handlers.Encoder,
			start:          queue.StatusRipped,
			processing:     queue.StatusEncoding,
			done:           queue.StatusEncoded,
			revertOnCancel: true,
		})
	}
	if s.handlers.Identifier != nil {
		// The identifier steers jobs to moving or review itself; done is
		// only the fall-through for a handler that left the status alone.
		lanes = append(lanes, &lane{
			name:       "identify",
			handler:    s.handlers.Identifier,
			start:      queue.StatusEncoded,
			processing: queue.StatusIdentifying,
			done:       queue.StatusMoving,
		})
	}
	if s.handlers.Mover != nil {
		lanes = append(lanes, &lane{
			name:       "move",
			handler:    s.handlers.Mover,
			start:      queue.StatusMoving,
			processing: queue.StatusMoving,
			done:       queue.StatusComplete,
		})
	}
	return lanes
}

func (s *Supervisor) laneLogger(ln *lane) *slog.Logger {
	logger := s.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", ln.name)),
		logging.String("lane", ln.name),
	)
	if ln.driveID != "" {
		logger = logger.With(logging.String(logging.FieldDrive, ln.driveID))
	}
	return logger
}

func (s *Supervisor) runLane(ctx context.Context, ln *lane) {
	defer s.wg.Done()
	logger := ln.logger

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := s.claimNext(ctx, ln)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, services.ErrInvalidTransition) {
				// Lost the claim race; whoever won is processing the job.
				logger.Debug("claim lost to another worker", logging.Error(err))
				continue
			}
			s.setLastError(err)
			logger.Error("failed to claim next job", logging.Error(err))
			s.waitForWork(ctx)
			continue
		}
		if job == nil {
			s.waitForWork(ctx)
			continue
		}

		if err := s.processJob(ctx, ln, job); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

// claimNext fetches the lane's oldest startable job and claims it by moving
// it into the processing status. The store's capacity guards reject the
// claim when another encode is running or the drive is already ripping.
func (s *Supervisor) claimNext(ctx context.Context, ln *lane) (*queue.Job, error) {
	var job *queue.Job
	var err error
	if ln.driveID != "" {
		job, err = s.store.PendingJobForDrive(ctx, ln.driveID)
	} else {
		job, err = s.store.NextJobForStatus(ctx, ln.start)
	}
	if err != nil || job == nil {
		return nil, err
	}
	if ln.start == ln.processing {
		return job, nil
	}
	return s.store.UpdateJobStatus(ctx, job.ID, ln.processing, "")
}

func (s *Supervisor) processJob(ctx context.Context, ln *lane, job *queue.Job) error {
	ctx = jobContext(ctx, ln, job, uuid.NewString())
	logger := logging.WithContext(ctx, ln.logger)

	stageStart := time.Now()
	logger.Info(
		"stage started",
		logging.String("title", job.DisplayTitle()),
		logging.String("disc_label", strings.TrimSpace(job.DiscLabel)),
	)

	if err := ln.handler.Prepare(ctx, job); err != nil {
		s.failJob(ctx, ln, job, err)
		return err
	}
	if err := s.store.UpdateProgress(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		s.setLastError(wrapped)
		logger.Error("failed to persist stage preparation", logging.Error(wrapped))
		return wrapped
	}

	if execErr := ln.handler.Execute(ctx, job); execErr != nil {
		switch {
		case errors.Is(execErr, context.Canceled):
			if ln.revertOnCancel {
				s.revertClaim(ln, job)
			}
			logger.Debug("stage interrupted by shutdown")
			return execErr
		case services.RetryLater(execErr):
			// Bumping updated_at sends the job behind its lane siblings,
			// so a blocked job cannot starve the rest of the queue.
			if err := s.store.UpdateProgress(ctx, job); err != nil {
				logger.Warn("failed to persist deferred progress", logging.Error(err))
			}
			logger.Debug("job left queued for a later pass", logging.Error(execErr))
			s.waitForWork(ctx)
			return nil
		default:
			s.failJob(ctx, ln, job, execErr)
			return execErr
		}
	}

	target := job.Status
	if target == ln.processing || target == "" {
		target = ln.done
	}
	if err := s.store.UpdateProgress(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		s.setLastError(wrapped)
		logger.Error("failed to persist stage result", logging.Error(wrapped))
		return wrapped
	}
	if _, err := s.store.UpdateJobStatus(ctx, job.ID, target, ""); err != nil {
		s.setLastError(err)
		logger.Error(
			"failed to finish stage",
			logging.String("target_status", string(target)),
			logging.Error(err),
		)
		return err
	}
	logger.Info(
		"stage completed",
		logging.String("next_status", string(target)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// failJob marks the job failed with the stage error as its message. A
// rejected transition means the job was moved underneath the lane (for
// example by an operator archiving it); the failure is logged but not
// forced.
func (s *Supervisor) failJob(ctx context.Context, ln *lane, job *queue.Job, stageErr error) {
	logger := logging.WithContext(ctx, ln.logger)
	message := failureMessage(ln.name, stageErr)
	s.setLastError(stageErr)

	logger.Error(
		"stage failed",
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	if _, err := s.store.UpdateJobStatus(ctx, job.ID, queue.StatusFailed, message); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Debug("shutdown before failure could be recorded")
		case errors.Is(err, services.ErrInvalidTransition):
			logger.Warn("job moved before failure could be recorded", logging.Error(err))
		default:
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
		return
	}

	if s.notifier != nil {
		payload := notifications.Payload{
			"title": job.DisplayTitle(),
			"stage": ln.name,
			"error": message,
		}
		if err := s.notifier.Publish(ctx, notifications.EventJobFailed, payload); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

// revertClaim returns an interrupted encode to the ripped queue so a later
// daemon run picks it up. The lane context is already cancelled, so the
// write runs under its own short deadline.
func (s *Supervisor) revertClaim(ln *lane, job *queue.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()

	if _, err := s.store.UpdateJobStatus(ctx, job.ID, ln.start, ""); err != nil {
		ln.logger.Warn(
			"failed to revert interrupted job",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String("to", string(ln.start)),
			logging.Error(err),
		)
		return
	}
	ln.logger.Info(
		"reverted interrupted job",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("from", string(ln.processing)),
		logging.String("to", string(ln.start)),
	)
}

func failureMessage(laneName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s stage failed without error detail", laneName)
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		return fmt.Sprintf("%s stage failed", laneName)
	}
	return message
}

func jobContext(ctx context.Context, ln *lane, job *queue.Job, requestID string) context.Context {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithStage(ctx, ln.name)
	if ln.driveID != "" {
		ctx = services.WithDrive(ctx, ln.driveID)
	}
	return services.WithRequestID(ctx, requestID)
}
