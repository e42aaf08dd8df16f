// -----------------------------------------------------------------------
// Maintenance sweeper - cron-driven cleanup of the job queue. Jobs stuck
// in processing past the stale window are failed (process crash mid-run
// leaves them orphaned), and terminal jobs past retention are purged.
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
)

// Service runs the periodic job-queue maintenance sweep.
type Service struct {
	jobStorage interfaces.JobStorage
	events     interfaces.EventService
	cron       *cron.Cron
	logger     arbor.ILogger

	schedule   string
	staleAfter time.Duration
	retention  time.Duration

	mu       sync.Mutex
	running  bool
	sweeping bool
}

// NewService creates the maintenance sweeper from worker configuration.
func NewService(cfg *common.WorkerConfig, jobStorage interfaces.JobStorage, events interfaces.EventService, logger arbor.ILogger) *Service {
	schedule := cfg.SweepSchedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	return &Service{
		jobStorage: jobStorage,
		events:     events,
		cron:       cron.New(),
		logger:     logger,
		schedule:   schedule,
		staleAfter: cfg.StaleAfterDuration(),
		retention:  cfg.RetentionDuration(),
	}
}

// Start schedules the sweep and launches the cron runner.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return fmt.Errorf("failed to schedule maintenance sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Dur("stale_after", s.staleAfter).
		Dur("retention", s.retention).
		Msg("Maintenance sweeper started")

	return nil
}

// Stop halts the cron runner and waits for an in-flight sweep to finish.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Maintenance sweeper stopped")
	return nil
}

// runSweep wraps Sweep with panic recovery and re-entrancy protection
// for the cron runner.
func (s *Service) runSweep() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in maintenance sweep")
		}
	}()

	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		s.logger.Debug().Msg("Sweep already in progress, skipping cycle")
		return
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	if err := s.Sweep(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("Maintenance sweep failed")
	}
}

// Sweep performs one maintenance pass: fail stale processing jobs, then
// purge terminal jobs past retention.
func (s *Service) Sweep(ctx context.Context) error {
	if err := s.failStaleJobs(ctx); err != nil {
		return err
	}
	return s.purgeExpiredJobs(ctx)
}

// failStaleJobs marks processing jobs as failed when they have run past
// the stale window. A healthy worker finishes long before that; a job
// this old was orphaned by a crash mid-run.
func (s *Service) failStaleJobs(ctx context.Context) error {
	processing, err := s.jobStorage.ListJobsByStatus(ctx, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to list processing jobs: %w", err)
	}

	cutoff := time.Now().Add(-s.staleAfter)
	stale := 0
	for _, job := range processing {
		if job.StartedAt == nil || job.StartedAt.After(cutoff) {
			continue
		}

		reason := fmt.Sprintf("job stalled in processing for more than %s", s.staleAfter)
		if err := job.MarkFailed(reason); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark stale job failed")
			continue
		}
		if err := s.jobStorage.SaveJob(ctx, job); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to save stale job")
			continue
		}
		stale++

		s.logger.Warn().
			Str("job_id", job.ID).
			Str("project_id", job.ProjectID).
			Msg("Marked stale job as failed")

		if s.events != nil {
			_ = s.events.Publish(ctx, interfaces.Event{
				Type: interfaces.EventJobUpdate,
				Payload: map[string]interface{}{
					"job_id":        job.ID,
					"project_id":    job.ProjectID,
					"type":          string(job.Type),
					"status":        string(job.Status),
					"progress":      job.Progress,
					"error_message": job.ErrorMessage,
				},
			})
		}
	}

	if stale > 0 {
		s.logger.Info().Int("count", stale).Msg("Stale jobs swept to failed")
	}
	return nil
}

// purgeExpiredJobs deletes terminal jobs whose completion is older than
// the retention window.
func (s *Service) purgeExpiredJobs(ctx context.Context) error {
	cutoff := time.Now().Add(-s.retention)
	purged := 0

	for _, terminal := range []models.JobStatus{models.JobStatusCompleted, models.JobStatusFailed} {
		jobs, err := s.jobStorage.ListJobsByStatus(ctx, terminal)
		if err != nil {
			return fmt.Errorf("failed to list %s jobs: %w", terminal, err)
		}
		for _, job := range jobs {
			if job.CompletedAt == nil || job.CompletedAt.After(cutoff) {
				continue
			}
			if err := s.jobStorage.DeleteJob(ctx, job.ID); err != nil {
				s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to purge expired job")
				continue
			}
			purged++
		}
	}

	if purged > 0 {
		s.logger.Info().Int("count", purged).Msg("Expired terminal jobs purged")
	}
	return nil
}
