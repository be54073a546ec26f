package dto

import (
	"time"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
)

type ListJobsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

type ListJobsResponse struct {
	Jobs []JobDTO `json:"jobs"`
}

type JobDTO struct {
	JobID          string  `json:"job_id"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	StartedAt      *string `json:"started_at,omitempty"`
	FinishedAt     *string `json:"finished_at,omitempty"`
	TotalSteps     int     `json:"total_steps"`
	CompletedSteps int     `json:"completed_steps"`
	SuccessSteps   int     `json:"success_steps"`
	FailedSteps    int     `json:"failed_steps"`
	SkippedSteps   int     `json:"skipped_steps"`
	Message        string  `json:"message"`
	ErrorMessage   *string `json:"error_message,omitempty"`
}

type StepDTO struct {
	StepID       string  `json:"step_id"`
	Position     int     `json:"position"`
	SourceType   string  `json:"source_type"`
	SourceID     *int64  `json:"source_id,omitempty"`
	SourceName   string  `json:"source_name"`
	Status       string  `json:"status"`
	StartedAt    *string `json:"started_at,omitempty"`
	FinishedAt   *string `json:"finished_at,omitempty"`
	ResultJSON   *string `json:"result_json,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	SkipReason   *string `json:"skip_reason,omitempty"`
}

type JobDetailDTO struct {
	JobDTO
	Steps []StepDTO `json:"steps"`
}

// NewJobDTO maps a job to its response shape with RFC3339 timestamps
func NewJobDTO(job *domain.BatchFetchJob) JobDTO {
	return JobDTO{
		JobID:          job.ID,
		Status:         job.Status,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		StartedAt:      formatTimePtr(job.StartedAt),
		FinishedAt:     formatTimePtr(job.FinishedAt),
		TotalSteps:     job.TotalSteps,
		CompletedSteps: job.CompletedSteps,
		SuccessSteps:   job.SuccessSteps,
		FailedSteps:    job.FailedSteps,
		SkippedSteps:   job.SkippedSteps,
		Message:        job.Message,
		ErrorMessage:   job.ErrorMessage,
	}
}

// NewJobDetailDTO maps a job and its steps, preserving planning order
func NewJobDetailDTO(detail *domain.BatchFetchJobDetail) JobDetailDTO {
	steps := make([]StepDTO, len(detail.Steps))
	for i, step := range detail.Steps {
		steps[i] = StepDTO{
			StepID:       step.ID,
			Position:     step.Position,
			SourceType:   step.SourceType,
			SourceID:     step.SourceID,
			SourceName:   step.SourceName,
			Status:       step.Status,
			StartedAt:    formatTimePtr(step.StartedAt),
			FinishedAt:   formatTimePtr(step.FinishedAt),
			ResultJSON:   step.ResultJSON,
			ErrorMessage: step.ErrorMessage,
			SkipReason:   step.SkipReason,
		}
	}

	return JobDetailDTO{
		JobDTO: NewJobDTO(&detail.BatchFetchJob),
		Steps:  steps,
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}
