// -----------------------------------------------------------------------
// Job Worker - single polling loop that claims and executes one job at a
// time. A tick that fails or panics never blocks the next tick, and a
// tick that arrives while the previous one is still running is skipped.
// -----------------------------------------------------------------------

package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/ternarybob/lingua/internal/services/status"
	"golang.org/x/time/rate"
)

// Service is the background job worker. One instance runs per process;
// the storage-level claim keeps a second process from double-running a
// job.
type Service struct {
	storage    interfaces.StorageManager
	translator interfaces.TranslationService
	templates  interfaces.TemplateService
	events     interfaces.EventService
	logger     arbor.ILogger

	pollInterval      time.Duration
	mtBatchSize       int
	templateBatchSize int
	throughput        int
	batchLimiter      *rate.Limiter

	mu      sync.Mutex
	busy    bool
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewService creates the job worker from configuration.
func NewService(cfg *common.WorkerConfig, storage interfaces.StorageManager, translator interfaces.TranslationService, templates interfaces.TemplateService, events interfaces.EventService, logger arbor.ILogger) *Service {
	mtBatchSize := cfg.MTBatchSize
	if mtBatchSize <= 0 {
		mtBatchSize = 5
	}
	templateBatchSize := cfg.TemplateBatchSize
	if templateBatchSize <= 0 {
		templateBatchSize = 20
	}

	// One batch per delay interval; the first batch is not delayed.
	delay := cfg.MTBatchDelayDuration()
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	return &Service{
		storage:           storage,
		translator:        translator,
		templates:         templates,
		events:            events,
		logger:            logger,
		pollInterval:      cfg.PollIntervalDuration(),
		mtBatchSize:       mtBatchSize,
		templateBatchSize: templateBatchSize,
		throughput:        cfg.ThroughputPerMinute,
		batchLimiter:      limiter,
	}
}

// Start launches the polling loop.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("worker already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.pollLoop()

	s.logger.Info().
		Dur("poll_interval", s.pollInterval).
		Int("mt_batch_size", s.mtBatchSize).
		Msg("Job worker started")

	return nil
}

// Stop halts the polling loop and waits for an in-flight tick to finish.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.logger.Info().Msg("Job worker stopped")
	return nil
}

func (s *Service) pollLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// Poll immediately on start, then on every tick.
	s.Tick(context.Background())

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(context.Background())
		}
	}
}

// Tick runs one poll cycle: claim the oldest pending job and execute it.
// A cycle that arrives while the previous one is still running returns
// immediately. Panics are recovered so one bad job cannot stop the loop.
func (s *Service) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.logger.Debug().Msg("Worker busy, skipping poll cycle")
		return
	}
	s.busy = true
	s.mu.Unlock()

	var job *models.Job
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in worker tick")
			// A claimed job must not stay processing: fail it now so it
			// frees the project's slot instead of waiting for the sweeper.
			if job != nil && !job.IsTerminal() {
				s.failJob(ctx, job, fmt.Errorf("panic: %v", r))
			}
		}
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	job, err := s.storage.JobStorage().ClaimNextPending(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to claim pending job")
		return
	}
	if job == nil {
		return
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Str("type", string(job.Type)).
		Msg("Job claimed")

	s.publishJobUpdate(ctx, job)
	s.execute(ctx, job)
}

// execute dispatches a claimed job by type. A structural error fails the
// job immediately; partial work already committed to the store stays.
func (s *Service) execute(ctx context.Context, job *models.Job) {
	startTime := time.Now()

	var err error
	switch job.Type {
	case models.JobTypeTemplateMatching:
		err = s.runTemplateMatching(ctx, job)
	case models.JobTypeTemplateApplication:
		err = s.runTemplateApplication(ctx, job)
	case models.JobTypeMTTranslation:
		err = s.runMTTranslation(ctx, job)
	default:
		err = fmt.Errorf("unknown job type %q", job.Type)
	}

	if err != nil {
		s.failJob(ctx, job, err)
		return
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Dur("duration", time.Since(startTime)).
		Msg("Job completed")
}

// runTemplateMatching selects a template for the project and records the
// binding. Finding no template is a successful outcome.
func (s *Service) runTemplateMatching(ctx context.Context, job *models.Job) error {
	project, err := s.storage.ProjectStorage().GetProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	files, err := s.storage.FileStorage().ListFilesByProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project files: %w", err)
	}

	match, err := s.templates.MatchTemplate(ctx, project, files)
	if err != nil {
		return fmt.Errorf("template matching failed: %w", err)
	}

	if match == nil {
		return s.completeJob(ctx, job, map[string]interface{}{
			"matched": false,
		})
	}

	project.TemplateID = match.Template.ID
	project.MatchScore = match.Score
	if err := s.storage.ProjectStorage().SaveProject(ctx, project); err != nil {
		return fmt.Errorf("failed to save template binding: %w", err)
	}

	return s.completeJob(ctx, job, map[string]interface{}{
		"matched":     true,
		"template_id": match.Template.ID,
		"match_score": match.Score,
	})
}

// runTemplateApplication applies the project's bound template across all
// file segments, advancing progress from 50 to 90.
func (s *Service) runTemplateApplication(ctx context.Context, job *models.Job) error {
	project, err := s.storage.ProjectStorage().GetProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if project.TemplateID == "" {
		return fmt.Errorf("project %s has no template bound", project.ID)
	}
	template, err := s.storage.TemplateStorage().GetTemplate(ctx, project.TemplateID)
	if err != nil {
		return fmt.Errorf("failed to load template %s: %w", project.TemplateID, err)
	}
	files, err := s.storage.FileStorage().ListFilesByProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project files: %w", err)
	}

	targets, err := s.collectWritableSegments(ctx, files)
	if err != nil {
		return err
	}

	if err := s.advanceProgress(ctx, job, 50); err != nil {
		return err
	}

	applied := 0
	processed := 0
	total := len(targets)
	for _, segmentID := range targets {
		// Re-read before writing: a human may have touched the segment
		// since it was collected.
		segment, err := s.storage.SegmentStorage().GetSegment(ctx, segmentID)
		if err != nil {
			s.logger.Warn().Err(err).Str("segment_id", segmentID).Msg("Segment vanished during template application, skipping")
			processed++
			continue
		}
		if !segment.WorkerWritable() {
			processed++
			continue
		}

		target, exact, matched, err := s.templates.ApplyTemplate(ctx, template, segment)
		if err != nil {
			return fmt.Errorf("template application failed: %w", err)
		}
		if matched {
			if err := segment.ApplyTemplateMatch(target, exact); err == nil {
				if err := s.storage.SegmentStorage().SaveSegment(ctx, segment); err != nil {
					return fmt.Errorf("failed to save segment: %w", err)
				}
				s.publishSegmentUpdated(ctx, project.ID, segment)
				applied++
			}
		}
		processed++

		if processed%s.templateBatchSize == 0 || processed == total {
			progress := 50 + scaledProgress(40, processed, total)
			if err := s.advanceProgress(ctx, job, progress); err != nil {
				return err
			}
		}
	}

	s.publishFileProgressAll(ctx, files)

	return s.completeJob(ctx, job, map[string]interface{}{
		"applied": applied,
		"total":   total,
	})
}

// runMTTranslation machine-translates every worker-writable segment of
// the project in batches. A per-segment provider failure is skipped; the
// job fails only on structural errors.
func (s *Service) runMTTranslation(ctx context.Context, job *models.Job) error {
	project, err := s.storage.ProjectStorage().GetProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	files, err := s.storage.FileStorage().ListFilesByProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project files: %w", err)
	}

	// Move files with pending segments into translating before work
	// starts so progress views reflect the running job.
	translating := make([]*models.File, 0, len(files))
	var targets []string
	for _, file := range files {
		segments, err := s.storage.SegmentStorage().ListSegmentsByFile(ctx, file.ID)
		if err != nil {
			return fmt.Errorf("failed to load segments for file %s: %w", file.ID, err)
		}
		fileTargets := 0
		for _, segment := range segments {
			if segment.WorkerWritable() && segment.Target == "" {
				targets = append(targets, segment.ID)
				fileTargets++
			}
		}
		if fileTargets > 0 {
			updated, err := s.storage.FileStorage().SetFileStatus(ctx, file.ID, models.FileStatusTranslating, -1, "")
			if err != nil {
				return fmt.Errorf("failed to mark file %s translating: %w", file.ID, err)
			}
			translating = append(translating, updated)
			s.publishFileProgress(ctx, updated)
		}
	}

	if err := s.advanceProgress(ctx, job, 25); err != nil {
		return err
	}

	translated := 0
	failed := 0
	processed := 0
	total := len(targets)
	for start := 0; start < total; start += s.mtBatchSize {
		// Pace batches for the provider; the first reservation is free.
		if start > 0 {
			if err := s.batchLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("batch pacing interrupted: %w", err)
			}
		}

		end := start + s.mtBatchSize
		if end > total {
			end = total
		}

		for _, segmentID := range targets[start:end] {
			processed++

			// Re-read before writing so a human edit made since the
			// collection pass is never overwritten.
			segment, err := s.storage.SegmentStorage().GetSegment(ctx, segmentID)
			if err != nil {
				s.logger.Warn().Err(err).Str("segment_id", segmentID).Msg("Segment vanished during translation, skipping")
				continue
			}
			if !segment.WorkerWritable() {
				continue
			}

			target, err := s.translator.Translate(ctx, segment.Source, project.SourceLang, project.TargetLang)
			if err != nil {
				failed++
				s.logger.Warn().
					Err(err).
					Str("segment_id", segment.ID).
					Msg("Segment translation failed, skipping")
				continue
			}

			if err := segment.ApplyMachineTranslation(target); err != nil {
				continue
			}
			if err := s.storage.SegmentStorage().SaveSegment(ctx, segment); err != nil {
				return fmt.Errorf("failed to save segment: %w", err)
			}
			s.publishSegmentUpdated(ctx, project.ID, segment)
			translated++
		}

		if err := s.advanceProgress(ctx, job, 25+scaledProgress(65, processed, total)); err != nil {
			return err
		}
		s.publishFileProgressAll(ctx, translating)
	}

	// A file is ready only when nothing translatable remains; skipped
	// segments send it back to parsed for a later retry.
	for _, file := range translating {
		segments, err := s.storage.SegmentStorage().ListSegmentsByFile(ctx, file.ID)
		if err != nil {
			return fmt.Errorf("failed to reload segments for file %s: %w", file.ID, err)
		}
		remaining := 0
		for _, segment := range segments {
			if segment.WorkerWritable() && segment.Target == "" {
				remaining++
			}
		}

		nextStatus := models.FileStatusReady
		progress := 100
		if remaining > 0 {
			nextStatus = models.FileStatusParsed
			progress = -1
		}
		updated, err := s.storage.FileStorage().SetFileStatus(ctx, file.ID, nextStatus, progress, "")
		if err != nil {
			return fmt.Errorf("failed to finalize file %s: %w", file.ID, err)
		}
		s.publishFileProgress(ctx, updated)
	}

	return s.completeJob(ctx, job, map[string]interface{}{
		"translated": translated,
		"failed":     failed,
		"total":      total,
	})
}

// collectWritableSegments gathers the IDs of every worker-writable
// segment across the given files, in file order then position order.
func (s *Service) collectWritableSegments(ctx context.Context, files []*models.File) ([]string, error) {
	var targets []string
	for _, file := range files {
		segments, err := s.storage.SegmentStorage().ListSegmentsByFile(ctx, file.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load segments for file %s: %w", file.ID, err)
		}
		for _, segment := range segments {
			if segment.WorkerWritable() {
				targets = append(targets, segment.ID)
			}
		}
	}
	return targets, nil
}

// advanceProgress persists and publishes a progress step.
func (s *Service) advanceProgress(ctx context.Context, job *models.Job, progress int) error {
	if err := job.SetProgress(progress); err != nil {
		return err
	}
	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job progress: %w", err)
	}
	s.publishJobUpdate(ctx, job)
	return nil
}

// completeJob marks the job completed with its result payload.
func (s *Service) completeJob(ctx context.Context, job *models.Job, result map[string]interface{}) error {
	if err := job.MarkCompleted(result); err != nil {
		return err
	}
	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save completed job: %w", err)
	}
	s.publishJobUpdate(ctx, job)
	return nil
}

// failJob marks the job failed. Partial work already committed before
// the error stays in the store.
func (s *Service) failJob(ctx context.Context, job *models.Job, cause error) {
	s.logger.Error().
		Err(cause).
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Msg("Job failed")

	if err := job.MarkFailed(cause.Error()); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job failed")
		return
	}
	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to save failed job")
		return
	}
	s.publishJobUpdate(ctx, job)
}

func (s *Service) publishJobUpdate(ctx context.Context, job *models.Job) {
	if s.events == nil {
		return
	}
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

func (s *Service) publishSegmentUpdated(ctx context.Context, projectID string, segment *models.Segment) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventSegmentUpdated,
		Payload: map[string]interface{}{
			"segment_id": segment.ID,
			"file_id":    segment.FileID,
			"project_id": projectID,
			"target":     segment.Target,
			"status":     string(segment.Status),
			"origin":     string(segment.Origin),
		},
	})
}

func (s *Service) publishFileProgress(ctx context.Context, file *models.File) {
	if s.events == nil {
		return
	}
	segments, err := s.storage.SegmentStorage().ListSegmentsByFile(ctx, file.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("file_id", file.ID).Msg("Failed to compute file progress for broadcast")
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventFileProgress,
		Payload: status.Progress(file, segments, s.throughput),
	})
}

func (s *Service) publishFileProgressAll(ctx context.Context, files []*models.File) {
	for _, file := range files {
		// Re-read so the broadcast reflects the stored record.
		current, err := s.storage.FileStorage().GetFile(ctx, file.ID)
		if err != nil {
			continue
		}
		s.publishFileProgress(ctx, current)
	}
}

// scaledProgress maps processed/total onto a span of progress points,
// rounding to the nearest point. A zero total consumes the whole span.
func scaledProgress(span, processed, total int) int {
	if total <= 0 {
		return span
	}
	return int(math.Round(float64(span) * float64(processed) / float64(total)))
}
