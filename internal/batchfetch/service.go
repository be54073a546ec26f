// Package batchfetch implements the batch fetch orchestration core: job
// creation and step planning at the trigger boundary, and the sequential
// execution state machine that runs steps against the source fetch
// adapters under skip and throttle policy.
package batchfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/google/uuid"
)

// Store is the job/step persistence the orchestrator writes through
type Store interface {
	// CreateJob inserts a queued job; returns domain.ErrJobAlreadyActive
	// when another job is still queued or running.
	CreateJob(ctx context.Context, job *domain.BatchFetchJob) error
	InsertSteps(ctx context.Context, steps []domain.BatchFetchJobStep) error
	SetTotalSteps(ctx context.Context, jobID string, total int) error

	MarkJobRunning(ctx context.Context, jobID string, startedAt time.Time, message string) error
	SetJobMessage(ctx context.Context, jobID, message string) error
	UpdateJobCounters(ctx context.Context, jobID string, completed, success, failed, skipped int) error
	FinalizeJob(ctx context.Context, jobID, status string, finishedAt time.Time, message string) error
	MarkJobFailed(ctx context.Context, jobID string, finishedAt time.Time, errorMessage string) error

	MarkStepRunning(ctx context.Context, stepID string, startedAt time.Time) error
	FinishStep(ctx context.Context, stepID string, outcome domain.StepOutcome) error

	GetJob(ctx context.Context, jobID string) (*domain.BatchFetchJob, error)
	GetJobSteps(ctx context.Context, jobID string) ([]domain.BatchFetchJobStep, error)
	ListJobs(ctx context.Context, limit, offset int) ([]domain.BatchFetchJob, error)
	// GetActiveJob returns the most recent queued/running job, or nil.
	GetActiveJob(ctx context.Context) (*domain.BatchFetchJob, error)
	// GetLatestJob returns the most recently created job, or nil.
	GetLatestJob(ctx context.Context) (*domain.BatchFetchJob, error)
}

// Registry is the read side of the five source registries the planner and
// runner consult
type Registry interface {
	ActiveFeeds(ctx context.Context) ([]sources.SourceRef, error)
	ActiveInstagramFeeds(ctx context.Context) ([]sources.SourceRef, error)
	ActiveYouTubeFeeds(ctx context.Context) ([]sources.SourceRef, error)
	EnsureElComercioFeed(ctx context.Context) (*sources.SourceRef, error)
	EnsureDiarioCorreoFeed(ctx context.Context) (*sources.SourceRef, error)
	// SourceState returns nil (no error) when the source does not exist.
	SourceState(ctx context.Context, sourceType string, sourceID int64) (*sources.SourceState, error)
}

// Publisher hands a planned job over to the background worker
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// JobMessage is the queue payload dispatching one planned job to the worker
type JobMessage struct {
	JobID string `json:"job_id"`
}

// Service is the trigger boundary: it creates and plans jobs and enqueues
// them for background execution
type Service struct {
	store    Store
	registry Registry
	queue    Publisher
	defaults PolicyDefaults
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the batch fetch trigger service
func NewService(store Store, registry Registry, queue Publisher, defaults PolicyDefaults, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		queue:    queue,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// Start creates a queued job with a policy snapshot, plans its steps from
// the current registries, and publishes it to the worker queue. Returns
// domain.ErrJobAlreadyActive while another job is queued or running.
func (s *Service) Start(ctx context.Context, force bool) (*domain.BatchFetchJobDetail, error) {
	policy := SnapshotPolicy(s.defaults, force)
	configJSON, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run policy: %w", err)
	}

	job := &domain.BatchFetchJob{
		ID:         uuid.New().String(),
		Status:     domain.JobStatusQueued,
		CreatedAt:  s.now().UTC(),
		Message:    "Queued",
		ConfigJSON: string(configJSON),
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	total, err := s.planSteps(ctx, job.ID)
	if err != nil {
		s.abortJob(ctx, job.ID, err)
		return nil, fmt.Errorf("failed to plan batch fetch steps: %w", err)
	}

	message, err := json.Marshal(JobMessage{JobID: job.ID})
	if err != nil {
		s.abortJob(ctx, job.ID, err)
		return nil, fmt.Errorf("failed to encode job message: %w", err)
	}

	if err := s.queue.Publish(ctx, message, "application/json"); err != nil {
		s.abortJob(ctx, job.ID, err)
		return nil, fmt.Errorf("failed to enqueue batch fetch job: %w", err)
	}

	s.logger.Info("Batch fetch job queued",
		slog.String("job_id", job.ID),
		slog.Int("total_steps", total),
		slog.Bool("force", force),
	)

	return s.JobDetail(ctx, job.ID)
}

// planSteps enumerates every active source across the five registries, in
// a stable order (RSS, Instagram, YouTube, then the two newspaper
// singletons), and inserts one pending step per source
func (s *Service) planSteps(ctx context.Context, jobID string) (int, error) {
	var steps []domain.BatchFetchJobStep

	add := func(sourceType string, ref sources.SourceRef) {
		sourceID := ref.ID
		steps = append(steps, domain.BatchFetchJobStep{
			ID:         uuid.New().String(),
			JobID:      jobID,
			Position:   len(steps),
			SourceType: sourceType,
			SourceID:   &sourceID,
			SourceName: ref.Name,
			Status:     domain.StepStatusPending,
		})
	}

	feeds, err := s.registry.ActiveFeeds(ctx)
	if err != nil {
		return 0, err
	}
	for _, feed := range feeds {
		add(domain.SourceTypeRSS, feed)
	}

	instagramFeeds, err := s.registry.ActiveInstagramFeeds(ctx)
	if err != nil {
		return 0, err
	}
	for _, feed := range instagramFeeds {
		add(domain.SourceTypeInstagram, feed)
	}

	youtubeFeeds, err := s.registry.ActiveYouTubeFeeds(ctx)
	if err != nil {
		return 0, err
	}
	for _, feed := range youtubeFeeds {
		add(domain.SourceTypeYouTube, feed)
	}

	elComercio, err := s.registry.EnsureElComercioFeed(ctx)
	if err != nil {
		return 0, err
	}
	if elComercio != nil {
		add(domain.SourceTypeElComercio, *elComercio)
	}

	diarioCorreo, err := s.registry.EnsureDiarioCorreoFeed(ctx)
	if err != nil {
		return 0, err
	}
	if diarioCorreo != nil {
		add(domain.SourceTypeDiarioCorreo, *diarioCorreo)
	}

	if len(steps) > 0 {
		if err := s.store.InsertSteps(ctx, steps); err != nil {
			return 0, err
		}
	}

	if err := s.store.SetTotalSteps(ctx, jobID, len(steps)); err != nil {
		return 0, err
	}

	return len(steps), nil
}

// abortJob marks a job failed when it cannot reach the worker queue
func (s *Service) abortJob(ctx context.Context, jobID string, cause error) {
	if err := s.store.MarkJobFailed(ctx, jobID, s.now().UTC(), cause.Error()); err != nil {
		s.logger.Error("Failed to mark aborted job as failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// JobDetail returns one job with its steps in planning order
func (s *Service) JobDetail(ctx context.Context, jobID string) (*domain.BatchFetchJobDetail, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	steps, err := s.store.GetJobSteps(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &domain.BatchFetchJobDetail{BatchFetchJob: *job, Steps: steps}, nil
}

// ListJobs returns jobs newest first
func (s *Service) ListJobs(ctx context.Context, limit, offset int) ([]domain.BatchFetchJob, error) {
	return s.store.ListJobs(ctx, limit, offset)
}

// ActiveJob returns the queued/running job, or nil when none is active
func (s *Service) ActiveJob(ctx context.Context) (*domain.BatchFetchJob, error) {
	return s.store.GetActiveJob(ctx)
}

// CurrentJobDetail returns the active job's detail, falling back to the
// most recently created job; nil when no job exists at all
func (s *Service) CurrentJobDetail(ctx context.Context) (*domain.BatchFetchJobDetail, error) {
	job, err := s.store.GetActiveJob(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		job, err = s.store.GetLatestJob(ctx)
		if err != nil {
			return nil, err
		}
	}
	if job == nil {
		return nil, nil
	}

	return s.JobDetail(ctx, job.ID)
}
