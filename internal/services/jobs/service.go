// -----------------------------------------------------------------------
// Job Queue - durable record of background tasks, one active job per
// project at a time.
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
)

// ErrDuplicateActiveJob is returned when a project already has an
// unterminated job. The duplicate is rejected at enqueue time rather
// than silently queued.
var ErrDuplicateActiveJob = fmt.Errorf("project already has an active job")

// Service implements the JobService interface over job storage.
// enqueueMu serializes the active-job check with the job insert so two
// concurrent enqueues for one project cannot both pass the check.
type Service struct {
	jobStorage     interfaces.JobStorage
	projectStorage interfaces.ProjectStorage
	eventService   interfaces.EventService
	logger         arbor.ILogger
	enqueueMu      sync.Mutex
}

// NewService creates a new job queue service
func NewService(jobStorage interfaces.JobStorage, projectStorage interfaces.ProjectStorage, eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		jobStorage:     jobStorage,
		projectStorage: projectStorage,
		eventService:   eventService,
		logger:         logger,
	}
}

// Enqueue creates a pending job for the project. Fails with
// ErrDuplicateActiveJob if an unterminated job of any type already
// exists for the project.
func (s *Service) Enqueue(ctx context.Context, projectID string, jobType models.JobType) (*models.Job, error) {
	if !models.ValidJobType(jobType) {
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}

	if _, err := s.projectStorage.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	s.enqueueMu.Lock()
	defer s.enqueueMu.Unlock()

	active, err := s.jobStorage.GetActiveJobForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("%w: job %s is %s", ErrDuplicateActiveJob, active.ID, active.Status)
	}

	job := models.NewJob(projectID, jobType)
	if err := s.jobStorage.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", projectID).
		Str("type", string(jobType)).
		Msg("Job enqueued")

	s.publishJobUpdate(ctx, job)
	return job, nil
}

// GetJob returns the job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.jobStorage.GetJob(ctx, jobID)
}

// ListForProject returns the project's jobs, oldest first.
func (s *Service) ListForProject(ctx context.Context, projectID string) ([]*models.Job, error) {
	return s.jobStorage.ListJobsByProject(ctx, projectID)
}

func (s *Service) publishJobUpdate(ctx context.Context, job *models.Job) {
	if s.eventService == nil {
		return
	}
	_ = s.eventService.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobUpdate,
		Payload: map[string]interface{}{
			"job_id":     job.ID,
			"project_id": job.ProjectID,
			"type":       string(job.Type),
			"status":     string(job.Status),
			"progress":   job.Progress,
		},
	})
}
