package job

import (
	"time"

	"jobscout/internal/core/pipeline"
)

// Job is the stored state of one background run.
type Job struct {
	JobID        string    `json:"job_id"`
	Type         Type      `json:"type"`
	Status       Status    `json:"status"`
	SubmissionID string    `json:"submission_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	Results      JobResult `json:"results,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Type string

const (
	TypePipelineRun Type = "pipeline_run"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further updates will follow.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

type JobResult struct {
	Summary *pipeline.RunSummary `json:"summary,omitempty"`
}

// ProgressEvent is published on the job channel after each company.
type ProgressEvent struct {
	Done    int             `json:"done"`
	Total   int             `json:"total"`
	Company string          `json:"company"`
	Status  pipeline.Status `json:"status"`
	Jobs    int             `json:"jobs"`
}
