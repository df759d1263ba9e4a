// internal/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"label-service/internal/model"

	"github.com/google/uuid"
)

// JobRepository defines print job data access operations
type JobRepository interface {
	// CRUD operations
	Create(ctx context.Context, job *model.PrintJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error)
	Update(ctx context.Context, job *model.PrintJob) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.JobStatus) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Listing and filtering
	List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error)

	// Analytics and cleanup
	GetJobStats(ctx context.Context, since *time.Time) (*JobStats, error)
	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

// JobFilter represents print job listing filters
type JobFilter struct {
	Status    *model.JobStatus `json:"status,omitempty"`
	Host      *string          `json:"host,omitempty"`
	StartDate *time.Time       `json:"start_date,omitempty"`
	EndDate   *time.Time       `json:"end_date,omitempty"`
	Page      int              `json:"page"`
	PerPage   int              `json:"per_page"`
	SortBy    string           `json:"sort_by"`
	SortOrder string           `json:"sort_order"`
}

// JobStats represents print job statistics
type JobStats struct {
	TotalJobs     int                     `json:"total_jobs"`
	SuccessfulJobs int                    `json:"successful_jobs"`
	FailedJobs    int                     `json:"failed_jobs"`
	PendingJobs   int                     `json:"pending_jobs"`
	AvgDurationMs float64                 `json:"average_duration_ms"`
	ByStatus      map[model.JobStatus]int `json:"by_status"`
}
