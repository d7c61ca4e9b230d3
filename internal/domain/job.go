package domain

import (
	"encoding/json"
	"time"
)

// JobStatus represents the states a maintenance job can be in.
// Transitions are strictly forward: PENDING → RUNNING → COMPLETED | FAILED.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// IsTerminal returns true if no further state transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobType identifies which handler executes a maintenance job.
type JobType string

const (
	JobTypeTrendUpdate     JobType = "trend_update"
	JobTypeContentRefresh  JobType = "content_refresh"
	JobTypeAnalyticsUpdate JobType = "analytics_update"
)

// Job is an asynchronous maintenance task processed by the job queue.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
