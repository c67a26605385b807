package oversight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"platter/internal/logging"
	"platter/internal/queue"
)

// Stuck thresholds per working status, measured against updated_at. Rips
// and encodes post progress continuously, so a quiet job this old has lost
// its worker.
const (
	rippingStuckAfter     = 4 * time.Hour
	encodingStuckAfter    = 8 * time.Hour
	identifyingStuckAfter = 1 * time.Hour
)

var stuckThresholds = map[queue.Status]time.Duration{
	queue.StatusRipping:     rippingStuckAfter,
	queue.StatusEncoding:    encodingStuckAfter,
	queue.StatusIdentifying: identifyingStuckAfter,
}

// ResetInterruptedJobs returns jobs abandoned mid-stage by an unclean
// shutdown to a restartable status. A rip cannot resume once the tray has
// been opened, so ripping jobs fail; encoding and identifying jobs rewind
// one stage and run again from their on-disk artifacts. Call this before
// starting any workers.
func ResetInterruptedJobs(ctx context.Context, store *queue.Store, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	resets := []struct {
		from   queue.Status
		to     queue.Status
		reason string
	}{
		{queue.StatusRipping, queue.StatusFailed, queue.StartupResetReason},
		{queue.StatusEncoding, queue.StatusRipped, ""},
		{queue.StatusIdentifying, queue.StatusEncoded, ""},
	}

	for _, reset := range resets {
		jobs, err := store.JobsByStatus(ctx, reset.from)
		if err != nil {
			return fmt.Errorf("list %s jobs: %w", reset.from, err)
		}
		for _, job := range jobs {
			if _, err := store.UpdateJobStatus(ctx, job.ID, reset.to, reset.reason); err != nil {
				return fmt.Errorf("reset job %d from %s: %w", job.ID, reset.from, err)
			}
			logger.Info("reset interrupted job",
				logging.Int64("job_id", job.ID),
				logging.String("from", string(reset.from)),
				logging.String("to", string(reset.to)),
				logging.String("disc_label", job.DiscLabel),
			)
		}
	}
	return nil
}

// Check scans the queue for states the workers should never produce:
// concurrent encodes, concurrent rips on one drive, and jobs sitting in a
// working status long past any plausible runtime. It reports issues without
// changing anything.
func Check(ctx context.Context, store *queue.Store) ([]string, error) {
	jobs, err := store.List(ctx, queue.StatusRipping, queue.StatusEncoding, queue.StatusIdentifying)
	if err != nil {
		return nil, fmt.Errorf("list working jobs: %w", err)
	}

	var issues []string

	var encoding []*queue.Job
	rippingByDrive := make(map[string][]*queue.Job)
	for _, job := range jobs {
		switch job.Status {
		case queue.StatusEncoding:
			encoding = append(encoding, job)
		case queue.StatusRipping:
			rippingByDrive[job.DriveID] = append(rippingByDrive[job.DriveID], job)
		}
	}

	if len(encoding) > 1 {
		issues = append(issues, fmt.Sprintf(
			"multiple jobs encoding (%d jobs: %s); only one encode may run at a time",
			len(encoding), joinJobIDs(encoding),
		))
	}
	for drive, ripping := range rippingByDrive {
		if len(ripping) > 1 {
			issues = append(issues, fmt.Sprintf(
				"multiple jobs ripping on drive %s (%d jobs: %s); a drive can rip one disc at a time",
				drive, len(ripping), joinJobIDs(ripping),
			))
		}
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		threshold, ok := stuckThresholds[job.Status]
		if !ok {
			continue
		}
		age := now.Sub(job.UpdatedAt)
		if age > threshold {
			issues = append(issues, fmt.Sprintf(
				"job %d stuck in %s for %.1f hours (threshold %d hours)",
				job.ID, job.Status, age.Hours(), int(threshold.Hours()),
			))
		}
	}

	return issues, nil
}

// FixStuckEncoding reverts every encoding job except the most recently
// touched one back to ripped and returns how many were moved. The survivor
// is assumed to be the encode that is actually running; the rest requeue
// behind it.
func FixStuckEncoding(ctx context.Context, store *queue.Store) (int, error) {
	jobs, err := store.JobsByStatus(ctx, queue.StatusEncoding)
	if err != nil {
		return 0, fmt.Errorf("list encoding jobs: %w", err)
	}
	if len(jobs) <= 1 {
		return 0, nil
	}

	// JobsByStatus orders least recently touched first, so everything but
	// the final entry goes back to ripped.
	fixed := 0
	for _, job := range jobs[:len(jobs)-1] {
		if _, err := store.UpdateJobStatus(ctx, job.ID, queue.StatusRipped, ""); err != nil {
			return fixed, fmt.Errorf("revert job %d to ripped: %w", job.ID, err)
		}
		fixed++
	}
	return fixed, nil
}

func joinJobIDs(jobs []*queue.Job) string {
	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = fmt.Sprintf("%d", job.ID)
	}
	return strings.Join(ids, ", ")
}
