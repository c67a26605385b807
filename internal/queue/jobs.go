package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"platter/internal/services"
)

const jobColumns = "id, drive_id, disc_label, status, content_type, identified_title, identified_year, catalog_id, confidence, poster_ref, rip_path, encode_path, final_path, error_message, progress_stage, progress_percent, progress_message, created_at, updated_at"

// CreateJob inserts a pending job for a disc seen in a drive.
func (s *Store) CreateJob(ctx context.Context, driveID, discLabel string) (*Job, error) {
	driveID = strings.TrimSpace(driveID)
	if driveID == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "create job", "drive id is required", nil)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            drive_id, disc_label, status, content_type,
            progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		driveID,
		nullableString(strings.TrimSpace(discLabel)),
		StatusPending,
		ContentTypeUnknown,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. Missing jobs return (nil, nil).
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// JobsByStatus returns jobs matching a status, least recently touched first.
func (s *Store) JobsByStatus(ctx context.Context, status Status) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY updated_at, id`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// List returns jobs filtered by status set, or all jobs when no status is
// provided, least recently touched first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY updated_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// NextJobForStatus returns the least recently touched job in a status.
func (s *Store) NextJobForStatus(ctx context.Context, status Status) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY updated_at, id LIMIT 1`,
		status,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next job for status: %w", err)
	}
	return job, nil
}

// PendingJobForDrive returns the oldest pending job created for a drive.
func (s *Store) PendingJobForDrive(ctx context.Context, driveID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? AND drive_id = ? ORDER BY created_at, id LIMIT 1`,
		StatusPending,
		driveID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pending job for drive: %w", err)
	}
	return job, nil
}

// RecentJobs returns the most recently touched jobs, newest first. Archived
// jobs are excluded unless includeArchived is set.
func (s *Store) RecentJobs(ctx context.Context, limit int, includeArchived bool) ([]*Job, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if !includeArchived {
		query += ` WHERE status != '` + string(StatusArchived) + `'`
	}
	query += ` ORDER BY updated_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// UpdateJobStatus moves a job along the status graph. Illegal edges are
// rejected with services.ErrInvalidTransition; a zero-row update after a
// legal edge check means another worker claimed the job first and reports
// the same error. errorMessage replaces the stored message, empty clears it.
func (s *Store) UpdateJobStatus(ctx context.Context, id int64, to Status, errorMessage string) (*Job, error) {
	if _, ok := statusSet[to]; !ok {
		return nil, services.Wrap(services.ErrValidation, "queue", "update status", fmt.Sprintf("unknown status %q", to), nil)
	}

	current, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, services.Wrap(services.ErrNotFound, "queue", "update status", fmt.Sprintf("job %d", id), nil)
	}
	if !CanTransition(current.Status, to) {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"queue", "update status",
			fmt.Sprintf("job %d cannot move from %s to %s", id, current.Status, to),
			nil,
		)
	}
	if err := checkStatusRequirements(current, to); err != nil {
		return nil, err
	}

	query := `UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status = ?`
	args := []any{
		to,
		nullableString(errorMessage),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		current.Status,
	}

	// Capacity guards make claims atomic: one encode globally, one rip per
	// drive. Losing the race surfaces as a rejected transition.
	switch to {
	case StatusEncoding:
		query += ` AND NOT EXISTS (SELECT 1 FROM jobs other WHERE other.status = ? AND other.id != jobs.id)`
		args = append(args, StatusEncoding)
	case StatusRipping:
		query += ` AND NOT EXISTS (SELECT 1 FROM jobs other WHERE other.status = ? AND other.id != jobs.id AND other.drive_id = jobs.drive_id)`
		args = append(args, StatusRipping)
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"queue", "update status",
			fmt.Sprintf("job %d lost claim on %s", id, to),
			nil,
		)
	}

	return s.GetJob(ctx, id)
}

func checkStatusRequirements(job *Job, to Status) error {
	var missing string
	switch to {
	case StatusRipped:
		if job.RipPath == "" {
			missing = "rip path"
		}
	case StatusEncoded:
		if job.EncodePath == "" {
			missing = "encode path"
		}
	case StatusComplete:
		if job.FinalPath == "" {
			missing = "final path"
		}
	}
	if missing == "" {
		return nil
	}
	return services.Wrap(
		services.ErrValidation,
		"queue", "update status",
		fmt.Sprintf("job %d requires %s before %s", job.ID, missing, to),
		nil,
	)
}

// UpdateIdentification writes the identification fields for a job. Status
// is never touched here; the caller drives the transition separately.
func (s *Store) UpdateIdentification(ctx context.Context, id int64, ident Identification) (*Job, error) {
	if strings.TrimSpace(ident.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "update identification", "title is required", nil)
	}
	if ident.Year != 0 && (ident.Year < 1800 || ident.Year > 2100) {
		return nil, services.Wrap(services.ErrValidation, "queue", "update identification", fmt.Sprintf("year %d out of range", ident.Year), nil)
	}
	if ident.Confidence != nil && (*ident.Confidence < 0 || *ident.Confidence > 1) {
		return nil, services.Wrap(services.ErrValidation, "queue", "update identification", fmt.Sprintf("confidence %.2f out of range", *ident.Confidence), nil)
	}
	contentType := ident.ContentType
	if contentType == "" {
		contentType = ContentTypeUnknown
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET content_type = ?, identified_title = ?, identified_year = ?,
             catalog_id = ?, confidence = ?, poster_ref = ?, updated_at = ?
         WHERE id = ?`,
		contentType,
		strings.TrimSpace(ident.Title),
		nullableInt(int64(ident.Year)),
		nullableInt(ident.CatalogID),
		nullableFloat(ident.Confidence),
		nullableString(ident.PosterRef),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update identification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrNotFound, "queue", "update identification", fmt.Sprintf("job %d", id), nil)
	}
	return s.GetJob(ctx, id)
}

// SetRipPath records where the raw rip landed.
func (s *Store) SetRipPath(ctx context.Context, id int64, path string) error {
	return s.setPath(ctx, id, "rip_path", path)
}

// SetEncodePath records where the encoded file landed.
func (s *Store) SetEncodePath(ctx context.Context, id int64, path string) error {
	return s.setPath(ctx, id, "encode_path", path)
}

// SetFinalPath records the file's resting place in the library.
func (s *Store) SetFinalPath(ctx context.Context, id int64, path string) error {
	return s.setPath(ctx, id, "final_path", path)
}

func (s *Store) setPath(ctx context.Context, id int64, column, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "queue", "set path", column+" is empty", nil)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		path,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "queue", "set path", fmt.Sprintf("job %d", id), nil)
	}
	return nil
}

// UpdateProgress persists the progress fields of an in-flight job.
func (s *Store) UpdateProgress(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(job.ProgressStage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// CountsByStatus returns job counts grouped by status.
func (s *Store) CountsByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              int64
		driveID         sql.NullString
		discLabel       sql.NullString
		statusStr       string
		contentTypeStr  sql.NullString
		identifiedTitle sql.NullString
		identifiedYear  sql.NullInt64
		catalogID       sql.NullInt64
		confidence      sql.NullFloat64
		posterRef       sql.NullString
		ripPath         sql.NullString
		encodePath      sql.NullString
		finalPath       sql.NullString
		errorMessage    sql.NullString
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&driveID,
		&discLabel,
		&statusStr,
		&contentTypeStr,
		&identifiedTitle,
		&identifiedYear,
		&catalogID,
		&confidence,
		&posterRef,
		&ripPath,
		&encodePath,
		&finalPath,
		&errorMessage,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		DriveID:         driveID.String,
		DiscLabel:       discLabel.String,
		Status:          Status(statusStr),
		ContentType:     ContentType(contentTypeStr.String),
		IdentifiedTitle: identifiedTitle.String,
		IdentifiedYear:  int(identifiedYear.Int64),
		CatalogID:       catalogID.Int64,
		PosterRef:       posterRef.String,
		RipPath:         ripPath.String,
		EncodePath:      encodePath.String,
		FinalPath:       finalPath.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if job.ContentType == "" {
		job.ContentType = ContentTypeUnknown
	}
	if confidence.Valid {
		value := confidence.Float64
		job.Confidence = &value
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}
