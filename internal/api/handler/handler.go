package handler

import (
	"context"
	"log/slog"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
)

// BatchFetchService is the orchestration surface the handlers call
type BatchFetchService interface {
	Start(ctx context.Context, force bool) (*domain.BatchFetchJobDetail, error)
	JobDetail(ctx context.Context, jobID string) (*domain.BatchFetchJobDetail, error)
	ListJobs(ctx context.Context, limit, offset int) ([]domain.BatchFetchJob, error)
	ActiveJob(ctx context.Context) (*domain.BatchFetchJob, error)
	CurrentJobDetail(ctx context.Context) (*domain.BatchFetchJobDetail, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Service BatchFetchService
}

// BatchFetchHandler handles batch fetch HTTP requests
type BatchFetchHandler struct {
	logger  *slog.Logger
	service BatchFetchService
}

// NewBatchFetchHandler creates a new BatchFetchHandler instance
func NewBatchFetchHandler(deps *Dependencies) *BatchFetchHandler {
	return &BatchFetchHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}
