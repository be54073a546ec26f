package domain

import "time"

// Step status constants
const (
	StepStatusPending = "pending"
	StepStatusRunning = "running"
	StepStatusSuccess = "success"
	StepStatusFailed  = "failed"
	StepStatusSkipped = "skipped"
)

// BatchFetchJobStep is one planned unit of work within a job, bound to
// exactly one content source. Steps are created at planning time and
// transition pending -> running -> {success|failed|skipped} exactly once.
type BatchFetchJobStep struct {
	ID           string     `db:"id" json:"id"`
	JobID        string     `db:"job_id" json:"job_id"`
	Position     int        `db:"step_order" json:"position"`
	SourceType   string     `db:"source_type" json:"source_type"`
	SourceID     *int64     `db:"source_id" json:"source_id,omitempty"`
	SourceName   string     `db:"source_name" json:"source_name"`
	Status       string     `db:"status" json:"status"`
	StartedAt    *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt   *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	ResultJSON   *string    `db:"result_json" json:"result_json,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	SkipReason   *string    `db:"skip_reason" json:"skip_reason,omitempty"`
}

// StepOutcome is the terminal state written for a step once it finishes
type StepOutcome struct {
	Status       string
	FinishedAt   time.Time
	ResultJSON   *string
	ErrorMessage *string
	SkipReason   *string
}
