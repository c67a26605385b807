// Package staging reclaims per-job work directories the pipeline left
// behind. The mover removes a job's staging and encoding directories when
// the job completes; jobs that fail or are archived keep theirs, and this
// sweep removes them at daemon startup.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/queue"
)

// jobDirPrefix matches the directories the rip and encode stages create
// under the workspace roots (job_<id>).
const jobDirPrefix = "job_"

// Result reports what a sweep removed and what it could not remove.
type Result struct {
	Removed []string
	Failed  []string
}

// SweepOrphans removes job_<id> directories under the staging and encoding
// roots whose job is terminal or unknown. Directories for jobs still in the
// pipeline stay: a ripped job's staging artifact is the encoder's input,
// and an encoded job's output is the mover's. Entries that do not match the
// per-job naming are never touched. Removal failures are logged and
// collected, not fatal.
func SweepOrphans(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var active []queue.Status
	for _, status := range queue.AllStatuses() {
		if !queue.IsTerminal(status) {
			active = append(active, status)
		}
	}
	jobs, err := store.List(ctx, active...)
	if err != nil {
		return Result{}, err
	}
	keep := make(map[int64]struct{}, len(jobs))
	for _, job := range jobs {
		keep[job.ID] = struct{}{}
	}

	var result Result
	for _, root := range []string{cfg.StagingDir(), cfg.EncodingDir()} {
		sweepRoot(root, keep, logger, &result)
	}
	return result, nil
}

func sweepRoot(root string, keep map[int64]struct{}, logger *slog.Logger, result *Result) {
	entries, err := os.ReadDir(root)
	if err != nil {
		// A missing root means nothing has been staged there yet.
		if !os.IsNotExist(err) {
			logger.Warn("cannot read workspace root",
				logging.String("path", root),
				logging.Error(err),
			)
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		jobID, ok := parseJobDirName(entry.Name())
		if !ok {
			continue
		}
		if _, live := keep[jobID]; live {
			continue
		}

		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			result.Failed = append(result.Failed, path)
			logger.Warn("cannot remove orphaned job directory",
				logging.String("path", path),
				logging.Int64("job_id", jobID),
				logging.Error(err),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed orphaned job directory",
			logging.String("path", path),
			logging.Int64("job_id", jobID),
		)
	}
}

func parseJobDirName(name string) (int64, bool) {
	if !strings.HasPrefix(name, jobDirPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(name[len(jobDirPrefix):], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
