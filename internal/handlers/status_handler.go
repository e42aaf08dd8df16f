package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/ternarybob/lingua/internal/services/status"
	"github.com/ternarybob/lingua/internal/storage/badger"
)

// progressView derives the aggregate progress payload shared by the
// status endpoints and the event bus. Throughput 0 uses the aggregator
// default.
func progressView(file *models.File, segments []*models.Segment) status.FileProgress {
	return status.Progress(file, segments, 0)
}

// StatusHandler serves derived progress views. Nothing here is stored;
// every response is recomputed from the file record and its segments.
type StatusHandler struct {
	fileStorage         interfaces.FileStorage
	segmentStorage      interfaces.SegmentStorage
	throughputPerMinute int
	logger              arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(storage interfaces.StorageManager, throughputPerMinute int, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		fileStorage:         storage.FileStorage(),
		segmentStorage:      storage.SegmentStorage(),
		throughputPerMinute: throughputPerMinute,
		logger:              logger,
	}
}

// FileProgressHandler returns the aggregate progress view for one file.
// GET /api/files/{id}/progress
func (h *StatusHandler) FileProgressHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	fileID := PathSegment(r, 2)
	file, err := h.fileStorage.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, badger.ErrFileNotFound) {
			WriteError(w, http.StatusNotFound, "File not found")
			return
		}
		h.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to get file")
		WriteError(w, http.StatusInternalServerError, "Failed to get file")
		return
	}

	segments, err := h.segmentStorage.ListSegmentsByFile(r.Context(), fileID)
	if err != nil {
		h.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to list segments")
		WriteError(w, http.StatusInternalServerError, "Failed to compute progress")
		return
	}

	WriteJSON(w, http.StatusOK, status.Progress(file, segments, h.throughputPerMinute))
}

// ProjectProgressHandler returns the progress view of every file in a
// project.
// GET /api/projects/{id}/progress
func (h *StatusHandler) ProjectProgressHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	projectID := PathSegment(r, 2)
	files, err := h.fileStorage.ListFilesByProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list files")
		WriteError(w, http.StatusInternalServerError, "Failed to compute progress")
		return
	}

	views := make([]status.FileProgress, 0, len(files))
	for _, file := range files {
		segments, err := h.segmentStorage.ListSegmentsByFile(r.Context(), file.ID)
		if err != nil {
			h.logger.Error().Err(err).Str("file_id", file.ID).Msg("Failed to list segments")
			WriteError(w, http.StatusInternalServerError, "Failed to compute progress")
			return
		}
		views = append(views, status.Progress(file, segments, h.throughputPerMinute))
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"files": views,
		"count": len(views),
	})
}
