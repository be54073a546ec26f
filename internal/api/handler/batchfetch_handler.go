package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dpalacios/newsdesk-be/internal/api/dto"
	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StartBatchFetch handles POST /api/v1/batch-fetch
// Triggers a batch fetch run across all active sources
func (h *BatchFetchHandler) StartBatchFetch(c *gin.Context) {
	force := false
	if raw := c.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "force must be a boolean",
			})
			return
		}
		force = parsed
	}

	h.logger.Info("StartBatchFetch called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Bool("force", force),
	)

	detail, err := h.service.Start(c.Request.Context(), force)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyActive) {
			active, activeErr := h.service.ActiveJob(c.Request.Context())
			if activeErr == nil && active != nil {
				c.JSON(http.StatusConflict, gin.H{
					"error": fmt.Sprintf("Batch fetch already running (job_id=%s).", active.ID),
				})
				return
			}
			c.JSON(http.StatusConflict, gin.H{
				"error": "Batch fetch already running.",
			})
			return
		}

		h.logger.Error("Failed to start batch fetch", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to start batch fetch",
		})
		return
	}

	c.JSON(http.StatusCreated, dto.NewJobDetailDTO(detail))
}

// GetJobs handles GET /api/v1/batch-fetch
// Lists batch fetch jobs newest first
func (h *BatchFetchHandler) GetJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 200 {
		req.Limit = 200
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = dto.NewJobDTO(&jobs[i])
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: jobResponse})
}

// GetCurrentJob handles GET /api/v1/batch-fetch/current
// Returns the active job, falling back to the most recent one
func (h *BatchFetchHandler) GetCurrentJob(c *gin.Context) {
	detail, err := h.service.CurrentJobDetail(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get current job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get current job",
		})
		return
	}

	if detail == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDetailDTO(detail))
}

// GetJob handles GET /api/v1/batch-fetch/:job_id
// Retrieves one job with its per-step results
func (h *BatchFetchHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	detail, err := h.service.JobDetail(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}

		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDetailDTO(detail))
}
