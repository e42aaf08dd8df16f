package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/ternarybob/lingua/internal/services/jobs"
	"github.com/ternarybob/lingua/internal/storage/badger"
)

// JobHandler exposes the job queue over HTTP.
type JobHandler struct {
	jobService interfaces.JobService
	logger     arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobService interfaces.JobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

type enqueueRequest struct {
	Type string `json:"type"`
}

// EnqueueHandler creates a pending job for a project.
// POST /api/projects/{id}/jobs
func (h *JobHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	projectID := PathSegment(r, 2)
	if projectID == "" {
		WriteError(w, http.StatusBadRequest, "Project ID is required")
		return
	}

	var req enqueueRequest
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	job, err := h.jobService.Enqueue(r.Context(), projectID, models.JobType(req.Type))
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrDuplicateActiveJob):
			WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, badger.ErrProjectNotFound):
			WriteError(w, http.StatusNotFound, "Project not found")
		default:
			h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to enqueue job")
			WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// GetJobHandler returns a single job by ID.
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathSegment(r, 2)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.jobService.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, badger.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// ListProjectJobsHandler returns a project's jobs, oldest first.
// GET /api/projects/{id}/jobs
func (h *JobHandler) ListProjectJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	projectID := PathSegment(r, 2)
	if projectID == "" {
		WriteError(w, http.StatusBadRequest, "Project ID is required")
		return
	}

	list, err := h.jobService.ListForProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
