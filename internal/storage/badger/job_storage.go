package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrJobNotFound is returned when a job lookup misses.
var ErrJobNotFound = fmt.Errorf("job not found")

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db      *BadgerDB
	logger  arbor.ILogger
	claimMu sync.Mutex // Serializes pending-job claims across worker goroutines
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobsByProject returns a project's jobs ordered oldest first.
func (s *JobStorage) ListJobsByProject(ctx context.Context, projectID string) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID").SortBy("CreatedAt")
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// GetActiveJobForProject returns the project's unterminated job, or nil.
func (s *JobStorage) GetActiveJobForProject(ctx context.Context, projectID string) (*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID").
		And("Status").In(models.JobStatusPending, models.JobStatusProcessing)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query active jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

func (s *JobStorage) ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(status).Index("Status").SortBy("CreatedAt")
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// ClaimNextPending claims the oldest pending job, transitioning it to
// processing. The claim re-reads the record under a lock and verifies it
// is still pending before writing, so a racing claimer loses cleanly.
// Returns (nil, nil) when no pending job exists.
func (s *JobStorage) ClaimNextPending(ctx context.Context) (*models.Job, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	var candidates []models.Job
	query := badgerhold.Where("Status").Eq(models.JobStatusPending).Index("Status").SortBy("CreatedAt").Limit(1)
	if err := s.db.Store().Find(&candidates, query); err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Re-read and verify before the claim write.
	var job models.Job
	if err := s.db.Store().Get(candidates[0].ID, &job); err != nil {
		return nil, fmt.Errorf("failed to re-read pending job: %w", err)
	}
	if job.Status != models.JobStatusPending {
		return nil, nil
	}

	if err := job.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := s.db.Store().Upsert(job.ID, &job); err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return &job, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
