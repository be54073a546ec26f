package domain

import "time"

// Job status constants
const (
	JobStatusQueued              = "queued"
	JobStatusRunning             = "running"
	JobStatusCompleted           = "completed"
	JobStatusCompletedWithErrors = "completed_with_errors"
	JobStatusFailed              = "failed"
)

// Source type constants for batch fetch steps
const (
	SourceTypeRSS          = "rss"
	SourceTypeInstagram    = "instagram"
	SourceTypeYouTube      = "youtube"
	SourceTypeElComercio   = "el_comercio"
	SourceTypeDiarioCorreo = "diario_correo"
)

// BatchFetchJob represents one batch fetch orchestration run
type BatchFetchJob struct {
	ID             string     `db:"id" json:"id"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	StartedAt      *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt     *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	TotalSteps     int        `db:"total_steps" json:"total_steps"`
	CompletedSteps int        `db:"completed_steps" json:"completed_steps"`
	SuccessSteps   int        `db:"success_steps" json:"success_steps"`
	FailedSteps    int        `db:"failed_steps" json:"failed_steps"`
	SkippedSteps   int        `db:"skipped_steps" json:"skipped_steps"`
	Message        string     `db:"message" json:"message"`
	ErrorMessage   *string    `db:"error_message" json:"error_message,omitempty"`
	ConfigJSON     string     `db:"config_json" json:"config_json"`
}

// IsActive reports whether the job still occupies the single-job slot
func (j *BatchFetchJob) IsActive() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusRunning
}

// BatchFetchJobDetail is a job together with its steps in planning order
type BatchFetchJobDetail struct {
	BatchFetchJob
	Steps []BatchFetchJobStep `json:"steps"`
}
