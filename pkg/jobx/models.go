package jobx

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

const (
	DefaultQueue      = "default"
	DefaultMaxRetries = 3
)

// Job is a unit of on-demand work.
type Job struct {
	Type    string          `json:"type"`
	Queue   string          `json:"queue"`
	Payload json.RawMessage `json:"payload"`

	// MaxRetries defaults to DefaultMaxRetries.
	MaxRetries int `json:"max_retries"`
}

// NewJob builds a job of type jobType carrying payload encoded as JSON.
func NewJob(jobType string, payload any) (Job, error) {
	job := Job{Type: jobType}
	if jobType == "" {
		return job, jobxErrors.New(ErrInvalidJob).WithDetail("reason", "empty job type")
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return job, jobxErrors.NewWithCause(ErrInvalidJob, err)
		}
		job.Payload = data
	}
	return job, nil
}

func (j Job) withDefaults() Job {
	if j.Queue == "" {
		j.Queue = DefaultQueue
	}
	if j.MaxRetries == 0 {
		j.MaxRetries = DefaultMaxRetries
	}
	return j
}

// JobInfo is a job as stored by a backend.
type JobInfo struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	MaxRetries int             `json:"max_retries"`
	Attempts   int             `json:"attempts"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewJobInfo returns the pending record stored for job.
func NewJobInfo(id string, job Job, now time.Time) JobInfo {
	return JobInfo{
		ID:         id,
		Type:       job.Type,
		Queue:      job.Queue,
		Payload:    job.Payload,
		Status:     JobStatusPending,
		MaxRetries: job.MaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ShouldRetry reports whether a failed job has attempts left.
func (j *JobInfo) ShouldRetry() bool {
	return j.Attempts < j.MaxRetries
}
