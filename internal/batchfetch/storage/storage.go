// Package storage persists batch fetch jobs and steps in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/jmoiron/sqlx"
)

// Storage is the sqlx-backed job store
type Storage struct {
	db *sqlx.DB
}

// NewStorage creates a Storage over the shared database
func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// CreateJob inserts a queued job, guarded so that at most one job is
// queued or running at a time. The guard and the insert are one statement,
// closing the check-then-act race between concurrent triggers.
func (s *Storage) CreateJob(ctx context.Context, job *domain.BatchFetchJob) error {
	query := `
		INSERT INTO batch_fetch_jobs (
			id, status, message, config_json,
			total_steps, completed_steps, success_steps, failed_steps, skipped_steps,
			created_at
		)
		SELECT $1, $2, $3, $4, 0, 0, 0, 0, 0, $5
		WHERE NOT EXISTS (
			SELECT 1 FROM batch_fetch_jobs WHERE status IN ('queued', 'running')
		)
	`

	result, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.Status,
		job.Message,
		job.ConfigJSON,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch fetch job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read job insert result: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobAlreadyActive
	}

	return nil
}

// InsertSteps inserts the planned steps for a job
func (s *Storage) InsertSteps(ctx context.Context, steps []domain.BatchFetchJobStep) error {
	query := `
		INSERT INTO batch_fetch_job_steps (id, job_id, step_order, source_type, source_id, source_name, status)
		VALUES (:id, :job_id, :step_order, :source_type, :source_id, :source_name, :status)
	`

	if _, err := s.db.NamedExecContext(ctx, query, steps); err != nil {
		return fmt.Errorf("failed to insert batch fetch steps: %w", err)
	}

	return nil
}

// SetTotalSteps records the planned step count on the job
func (s *Storage) SetTotalSteps(ctx context.Context, jobID string, total int) error {
	query := `UPDATE batch_fetch_jobs SET total_steps = $1 WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, total, jobID); err != nil {
		return fmt.Errorf("failed to set total steps: %w", err)
	}

	return nil
}

// MarkJobRunning transitions a job to running
func (s *Storage) MarkJobRunning(ctx context.Context, jobID string, startedAt time.Time, message string) error {
	query := `
		UPDATE batch_fetch_jobs
		SET status = $1, started_at = $2, message = $3
		WHERE id = $4
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusRunning, startedAt, message, jobID); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	return nil
}

// SetJobMessage updates the job's current-activity message
func (s *Storage) SetJobMessage(ctx context.Context, jobID, message string) error {
	query := `UPDATE batch_fetch_jobs SET message = $1 WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, message, jobID); err != nil {
		return fmt.Errorf("failed to set job message: %w", err)
	}

	return nil
}

// UpdateJobCounters persists the aggregate step counters; written after
// every step so polling readers see live progress
func (s *Storage) UpdateJobCounters(ctx context.Context, jobID string, completed, success, failed, skipped int) error {
	query := `
		UPDATE batch_fetch_jobs
		SET completed_steps = $1, success_steps = $2, failed_steps = $3, skipped_steps = $4
		WHERE id = $5
	`

	if _, err := s.db.ExecContext(ctx, query, completed, success, failed, skipped, jobID); err != nil {
		return fmt.Errorf("failed to update job counters: %w", err)
	}

	return nil
}

// FinalizeJob transitions a job to a terminal status
func (s *Storage) FinalizeJob(ctx context.Context, jobID, status string, finishedAt time.Time, message string) error {
	query := `
		UPDATE batch_fetch_jobs
		SET status = $1, finished_at = $2, message = $3
		WHERE id = $4
	`

	if _, err := s.db.ExecContext(ctx, query, status, finishedAt, message, jobID); err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}

	return nil
}

// MarkJobFailed records an orchestration-level failure on the job
func (s *Storage) MarkJobFailed(ctx context.Context, jobID string, finishedAt time.Time, errorMessage string) error {
	query := `
		UPDATE batch_fetch_jobs
		SET status = $1, finished_at = $2, error_message = $3, message = 'Batch fetch failed'
		WHERE id = $4
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, finishedAt, errorMessage, jobID); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return nil
}

// MarkStepRunning transitions a step to running
func (s *Storage) MarkStepRunning(ctx context.Context, stepID string, startedAt time.Time) error {
	query := `
		UPDATE batch_fetch_job_steps
		SET status = $1, started_at = $2
		WHERE id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.StepStatusRunning, startedAt, stepID); err != nil {
		return fmt.Errorf("failed to mark step running: %w", err)
	}

	return nil
}

// FinishStep records a step's terminal state
func (s *Storage) FinishStep(ctx context.Context, stepID string, outcome domain.StepOutcome) error {
	query := `
		UPDATE batch_fetch_job_steps
		SET status = $1, finished_at = $2, result_json = $3, error_message = $4, skip_reason = $5
		WHERE id = $6
	`

	if _, err := s.db.ExecContext(ctx, query,
		outcome.Status,
		outcome.FinishedAt,
		outcome.ResultJSON,
		outcome.ErrorMessage,
		outcome.SkipReason,
		stepID,
	); err != nil {
		return fmt.Errorf("failed to finish step: %w", err)
	}

	return nil
}

// GetJob retrieves one job by id
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.BatchFetchJob, error) {
	query := `
		SELECT id, status, created_at, started_at, finished_at,
		       total_steps, completed_steps, success_steps, failed_steps, skipped_steps,
		       message, error_message, config_json
		FROM batch_fetch_jobs
		WHERE id = $1
	`

	var job domain.BatchFetchJob
	err := s.db.GetContext(ctx, &job, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetJobSteps returns a job's steps in planning order
func (s *Storage) GetJobSteps(ctx context.Context, jobID string) ([]domain.BatchFetchJobStep, error) {
	query := `
		SELECT id, job_id, step_order, source_type, source_id, source_name, status,
		       started_at, finished_at, result_json, error_message, skip_reason
		FROM batch_fetch_job_steps
		WHERE job_id = $1
		ORDER BY step_order
	`

	var steps []domain.BatchFetchJobStep
	if err := s.db.SelectContext(ctx, &steps, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to get job steps: %w", err)
	}

	return steps, nil
}

// ListJobs returns jobs newest first
func (s *Storage) ListJobs(ctx context.Context, limit, offset int) ([]domain.BatchFetchJob, error) {
	query := `
		SELECT id, status, created_at, started_at, finished_at,
		       total_steps, completed_steps, success_steps, failed_steps, skipped_steps,
		       message, error_message, config_json
		FROM batch_fetch_jobs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	var jobs []domain.BatchFetchJob
	if err := s.db.SelectContext(ctx, &jobs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// GetActiveJob returns the most recent queued/running job, or nil
func (s *Storage) GetActiveJob(ctx context.Context) (*domain.BatchFetchJob, error) {
	query := `
		SELECT id, status, created_at, started_at, finished_at,
		       total_steps, completed_steps, success_steps, failed_steps, skipped_steps,
		       message, error_message, config_json
		FROM batch_fetch_jobs
		WHERE status IN ('queued', 'running')
		ORDER BY created_at DESC
		LIMIT 1
	`

	var job domain.BatchFetchJob
	err := s.db.GetContext(ctx, &job, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active job: %w", err)
	}

	return &job, nil
}

// GetLatestJob returns the most recently created job, or nil
func (s *Storage) GetLatestJob(ctx context.Context) (*domain.BatchFetchJob, error) {
	query := `
		SELECT id, status, created_at, started_at, finished_at,
		       total_steps, completed_steps, success_steps, failed_steps, skipped_steps,
		       message, error_message, config_json
		FROM batch_fetch_jobs
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var job domain.BatchFetchJob
	err := s.db.GetContext(ctx, &job, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	}

	return &job, nil
}
