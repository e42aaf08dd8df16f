// -----------------------------------------------------------------------
// Translation Job - durable record of one background task for a project
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the kind of background work a job performs.
type JobType string

const (
	JobTypeTemplateMatching    JobType = "template_matching"
	JobTypeTemplateApplication JobType = "template_application"
	JobTypeMTTranslation       JobType = "mt_translation"
)

// ValidJobType reports whether t is one of the dispatchable job types.
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeTemplateMatching, JobTypeTemplateApplication, JobTypeMTTranslation:
		return true
	}
	return false
}

// JobStatus represents the lifecycle state of a job.
// Transitions only follow pending -> processing -> {completed, failed}.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ErrTerminalJob is returned when mutating a job already in a terminal state.
var ErrTerminalJob = fmt.Errorf("job is in a terminal state")

// Job is one asynchronous unit of background work tied to a project.
// Status and Progress are owned exclusively by the job worker once the
// job has been claimed; Progress is monotonically non-decreasing while
// the job is processing.
type Job struct {
	ID           string                 `json:"id" badgerhold:"key"`
	ProjectID    string                 `json:"project_id" badgerhold:"index"`
	Type         JobType                `json:"type"`
	Status       JobStatus              `json:"status" badgerhold:"index"`
	Progress     int                    `json:"progress"`
	Result       map[string]interface{} `json:"result,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// NewJob creates a pending job for a project.
func NewJob(projectID string, jobType JobType) *Job {
	return &Job{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Type:      jobType,
		Status:    JobStatusPending,
		Progress:  0,
		CreatedAt: time.Now(),
	}
}

// IsTerminal returns true once the job has completed or failed.
// Terminal jobs are immutable.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// IsActive returns true while the job still occupies the per-project slot.
func (j *Job) IsActive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessing
}

// MarkProcessing transitions a pending job to processing at progress 10.
func (j *Job) MarkProcessing() error {
	if j.IsTerminal() {
		return ErrTerminalJob
	}
	if j.Status != JobStatusPending {
		return fmt.Errorf("cannot claim job in status %q", j.Status)
	}
	j.Status = JobStatusProcessing
	j.Progress = 10
	now := time.Now()
	j.StartedAt = &now
	return nil
}

// SetProgress advances progress while processing. Regressions are ignored
// rather than applied so progress stays monotonic within one lifetime.
func (j *Job) SetProgress(progress int) error {
	if j.IsTerminal() {
		return ErrTerminalJob
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	return nil
}

// MarkCompleted transitions the job to completed at progress 100.
func (j *Job) MarkCompleted(result map[string]interface{}) error {
	if j.IsTerminal() {
		return ErrTerminalJob
	}
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.Result = result
	now := time.Now()
	j.CompletedAt = &now
	return nil
}

// MarkFailed transitions the job to failed, resetting progress to 0.
// Retry requires a fresh enqueue; the worker never retries automatically.
func (j *Job) MarkFailed(errorMessage string) error {
	if j.IsTerminal() {
		return ErrTerminalJob
	}
	j.Status = JobStatusFailed
	j.Progress = 0
	j.ErrorMessage = errorMessage
	now := time.Now()
	j.CompletedAt = &now
	return nil
}
