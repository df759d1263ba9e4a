// internal/repository/job_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"label-service/internal/database"
	"label-service/internal/model"
)

// jobRepository implements JobRepository interface
type jobRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewJobRepository creates a new print job repository
func NewJobRepository(db *database.DB, logger *zap.Logger) JobRepository {
	return &jobRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new print job record
func (r *jobRepository) Create(ctx context.Context, job *model.PrintJob) error {
	query := `
		INSERT INTO print_jobs (
			id, status, host, port, communication, connection_type,
			descriptor, pages, packet_bytes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Host, job.Port, job.Communication,
		job.ConnectionType, job.Descriptor, job.Pages, job.PacketBytes,
		job.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create print job", zap.Error(err))
		return fmt.Errorf("failed to create print job: %w", err)
	}

	return nil
}

// GetByID retrieves a print job by ID
func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	query := `
		SELECT id, status, host, port, communication, connection_type,
			   descriptor, pages, packet_bytes, error_message,
			   started_at, completed_at, duration_ms, created_at
		FROM print_jobs WHERE id = $1
	`

	job := &model.PrintJob{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Status, &job.Host, &job.Port, &job.Communication,
		&job.ConnectionType, &job.Descriptor, &job.Pages, &job.PacketBytes,
		&job.ErrorMessage, &job.StartedAt, &job.CompletedAt, &job.DurationMs,
		&job.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("print job not found with id: %s", id)
		}
		return nil, fmt.Errorf("failed to get print job: %w", err)
	}

	return job, nil
}

// Update updates an existing print job
func (r *jobRepository) Update(ctx context.Context, job *model.PrintJob) error {
	query := `
		UPDATE print_jobs SET
			status = $2, pages = $3, packet_bytes = $4, error_message = $5,
			started_at = $6, completed_at = $7, duration_ms = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Pages, job.PacketBytes, job.ErrorMessage,
		job.StartedAt, job.CompletedAt, job.DurationMs,
	)

	if err != nil {
		return fmt.Errorf("failed to update print job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("print job not found with id: %s", job.ID)
	}

	return nil
}

// UpdateStatus updates print job status
func (r *jobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.JobStatus) error {
	query := `UPDATE print_jobs SET status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update print job status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("print job not found with id: %s", id)
	}

	return nil
}

// Delete removes a print job
func (r *jobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM print_jobs WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete print job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("print job not found with id: %s", id)
	}

	return nil
}

// List retrieves print jobs with filtering and pagination
func (r *jobRepository) List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error) {
	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.Status != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Host != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("host = $%d", argIndex))
		args = append(args, *filter.Host)
		argIndex++
	}

	if filter.StartDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}

	if filter.EndDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	// Count total records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM print_jobs %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count print jobs: %w", err)
	}

	// Sort column comes from a fixed whitelist, never from raw input.
	orderBy := "created_at DESC"
	if col, ok := sortColumns[filter.SortBy]; ok {
		order := "ASC"
		if filter.SortOrder == "desc" {
			order = "DESC"
		}
		orderBy = fmt.Sprintf("%s %s", col, order)
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
		SELECT id, status, host, port, communication, connection_type,
			   descriptor, pages, packet_bytes, error_message,
			   started_at, completed_at, duration_ms, created_at
		FROM print_jobs %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, argIndex, argIndex+1)

	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list print jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*model.PrintJob{}
	for rows.Next() {
		job := &model.PrintJob{}
		err := rows.Scan(
			&job.ID, &job.Status, &job.Host, &job.Port, &job.Communication,
			&job.ConnectionType, &job.Descriptor, &job.Pages, &job.PacketBytes,
			&job.ErrorMessage, &job.StartedAt, &job.CompletedAt, &job.DurationMs,
			&job.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan print job row", zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, total, nil
}

var sortColumns = map[string]string{
	"created_at":  "created_at",
	"status":      "status",
	"host":        "host",
	"duration_ms": "duration_ms",
	"pages":       "pages",
}

// GetJobStats returns aggregate print job statistics
func (r *jobRepository) GetJobStats(ctx context.Context, since *time.Time) (*JobStats, error) {
	whereClause := ""
	args := []interface{}{}
	if since != nil {
		whereClause = "WHERE created_at >= $1"
		args = append(args, *since)
	}

	query := fmt.Sprintf(`
		SELECT status, COUNT(*), COALESCE(AVG(duration_ms), 0)
		FROM print_jobs %s
		GROUP BY status
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}
	defer rows.Close()

	stats := &JobStats{
		ByStatus: make(map[model.JobStatus]int),
	}

	var durationSum float64
	var durationGroups int
	for rows.Next() {
		var status model.JobStatus
		var count int
		var avgDuration float64
		if err := rows.Scan(&status, &count, &avgDuration); err != nil {
			return nil, fmt.Errorf("failed to scan job stats row: %w", err)
		}

		stats.ByStatus[status] = count
		stats.TotalJobs += count
		switch status {
		case model.JobStatusSuccess:
			stats.SuccessfulJobs = count
			durationSum += avgDuration
			durationGroups++
		case model.JobStatusFailed:
			stats.FailedJobs = count
			durationSum += avgDuration
			durationGroups++
		case model.JobStatusPending, model.JobStatusProcessing:
			stats.PendingJobs += count
		}
	}

	if durationGroups > 0 {
		stats.AvgDurationMs = durationSum / float64(durationGroups)
	}

	return stats, nil
}

// DeleteOldJobs removes completed jobs created before the given time
func (r *jobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		DELETE FROM print_jobs
		WHERE status IN ($1, $2) AND created_at < $3
	`

	result, err := r.db.ExecContext(ctx, query,
		model.JobStatusSuccess, model.JobStatusFailed, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old print jobs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		r.logger.Info("Deleted old print jobs", zap.Int64("count", deleted))
	}

	return deleted, nil
}
