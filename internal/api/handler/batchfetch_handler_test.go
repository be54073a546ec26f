package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	startDetail   *domain.BatchFetchJobDetail
	startErr      error
	startedForce  *bool
	detail        *domain.BatchFetchJobDetail
	detailErr     error
	jobs          []domain.BatchFetchJob
	listLimit     int
	listOffset    int
	activeJob     *domain.BatchFetchJob
	currentDetail *domain.BatchFetchJobDetail
}

func (s *fakeService) Start(ctx context.Context, force bool) (*domain.BatchFetchJobDetail, error) {
	s.startedForce = &force
	return s.startDetail, s.startErr
}

func (s *fakeService) JobDetail(ctx context.Context, jobID string) (*domain.BatchFetchJobDetail, error) {
	return s.detail, s.detailErr
}

func (s *fakeService) ListJobs(ctx context.Context, limit, offset int) ([]domain.BatchFetchJob, error) {
	s.listLimit = limit
	s.listOffset = offset
	return s.jobs, nil
}

func (s *fakeService) ActiveJob(ctx context.Context) (*domain.BatchFetchJob, error) {
	return s.activeJob, nil
}

func (s *fakeService) CurrentJobDetail(ctx context.Context) (*domain.BatchFetchJobDetail, error) {
	return s.currentDetail, nil
}

func newTestRouter(service *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewBatchFetchHandler(&Dependencies{Logger: logger, Service: service})

	r := gin.New()
	v1 := r.Group("/api/v1")
	batchFetch := v1.Group("/batch-fetch")
	batchFetch.POST("", handler.StartBatchFetch)
	batchFetch.GET("", handler.GetJobs)
	batchFetch.GET("/current", handler.GetCurrentJob)
	batchFetch.GET("/:job_id", handler.GetJob)

	return r
}

func sampleDetail() *domain.BatchFetchJobDetail {
	created := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sourceID := int64(1)
	return &domain.BatchFetchJobDetail{
		BatchFetchJob: domain.BatchFetchJob{
			ID:         "4f1d3be2-74b2-4de8-91e7-ec47d5af8392",
			Status:     domain.JobStatusQueued,
			CreatedAt:  created,
			TotalSteps: 1,
			Message:    "Queued",
		},
		Steps: []domain.BatchFetchJobStep{
			{
				ID:         "ca7d1d24-964b-4e7d-8e9c-3d38f11b19aa",
				JobID:      "4f1d3be2-74b2-4de8-91e7-ec47d5af8392",
				SourceType: domain.SourceTypeRSS,
				SourceID:   &sourceID,
				SourceName: "Feed",
				Status:     domain.StepStatusPending,
			},
		},
	}
}

func TestStartBatchFetch(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		service := &fakeService{startDetail: sampleDetail()}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batch-fetch", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		require.NotNil(t, service.startedForce)
		assert.False(t, *service.startedForce)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "4f1d3be2-74b2-4de8-91e7-ec47d5af8392", body["job_id"])
		assert.Len(t, body["steps"], 1)
	})

	t.Run("force query parameter", func(t *testing.T) {
		service := &fakeService{startDetail: sampleDetail()}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batch-fetch?force=true", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		require.NotNil(t, service.startedForce)
		assert.True(t, *service.startedForce)
	})

	t.Run("invalid force value", func(t *testing.T) {
		service := &fakeService{}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batch-fetch?force=maybe", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, service.startedForce)
	})

	t.Run("conflict while a job is active", func(t *testing.T) {
		service := &fakeService{
			startErr:  domain.ErrJobAlreadyActive,
			activeJob: &domain.BatchFetchJob{ID: "d2b9e1fa-7318-4b05-b2f7-6f0f0a0d2f11", Status: domain.JobStatusRunning},
		}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batch-fetch", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "d2b9e1fa-7318-4b05-b2f7-6f0f0a0d2f11")
	})

	t.Run("internal error", func(t *testing.T) {
		service := &fakeService{startErr: errors.New("broker unreachable")}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batch-fetch", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetJobs(t *testing.T) {
	t.Run("default pagination", func(t *testing.T) {
		service := &fakeService{jobs: []domain.BatchFetchJob{sampleDetail().BatchFetchJob}}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-fetch", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 20, service.listLimit)
		assert.Equal(t, 0, service.listOffset)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		service := &fakeService{}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-fetch?limit=1000&offset=-4", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 200, service.listLimit)
		assert.Equal(t, 0, service.listOffset)
	})
}

func TestGetCurrentJob(t *testing.T) {
	t.Run("returns current job", func(t *testing.T) {
		service := &fakeService{currentDetail: sampleDetail()}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-fetch/current", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "4f1d3be2-74b2-4de8-91e7-ec47d5af8392")
	})

	t.Run("no content when no job exists", func(t *testing.T) {
		service := &fakeService{}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-fetch/current", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestGetJob(t *testing.T) {
	t.Run("returns job detail", func(t *testing.T) {
		service := &fakeService{detail: sampleDetail()}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-fetch/4f1d3be2-74b2-4de8-91e7-ec47d5af8392", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "2025-06-15T12:00:00Z", body["created_at"])
	})

	t.Run("invalid job id", func(t *testing.T) {
		service := &fakeService{}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-fetch/not-a-uuid", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown job id", func(t *testing.T) {
		service := &fakeService{detailErr: domain.ErrJobNotFound}
		r := newTestRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-fetch/4f1d3be2-74b2-4de8-91e7-ec47d5af8392", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
