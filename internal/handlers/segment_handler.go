package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/ternarybob/lingua/internal/storage/badger"
)

// SegmentHandler exposes the human editing surface. Every write goes
// through the model's state rules and fans out on the event bus so
// other collaborators see the change without polling.
type SegmentHandler struct {
	fileStorage    interfaces.FileStorage
	segmentStorage interfaces.SegmentStorage
	events         interfaces.EventService
	logger         arbor.ILogger
}

// NewSegmentHandler creates a new segment handler
func NewSegmentHandler(storage interfaces.StorageManager, events interfaces.EventService, logger arbor.ILogger) *SegmentHandler {
	return &SegmentHandler{
		fileStorage:    storage.FileStorage(),
		segmentStorage: storage.SegmentStorage(),
		events:         events,
		logger:         logger,
	}
}

type editSegmentRequest struct {
	Target string `json:"target"`
	UserID string `json:"user_id,omitempty"`
}

type reviewSegmentRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// ListFileSegmentsHandler returns a file's segments ordered by position.
// GET /api/files/{id}/segments
func (h *SegmentHandler) ListFileSegmentsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	fileID := PathSegment(r, 2)
	segments, err := h.segmentStorage.ListSegmentsByFile(r.Context(), fileID)
	if err != nil {
		h.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to list segments")
		WriteError(w, http.StatusInternalServerError, "Failed to list segments")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"segments": segments,
		"count":    len(segments),
	})
}

// EditSegmentHandler records a human edit of the target text.
// POST /api/segments/{id}/edit
func (h *SegmentHandler) EditSegmentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	segmentID := PathSegment(r, 2)
	var req editSegmentRequest
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	segment, ok := h.loadSegment(w, r, segmentID)
	if !ok {
		return
	}

	segment.ApplyEdit(req.Target)
	h.saveAndBroadcast(w, r, segment, req.UserID)
}

// ReviewSegmentHandler toggles a segment between Reviewed and Edited.
// POST /api/segments/{id}/review
func (h *SegmentHandler) ReviewSegmentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	segmentID := PathSegment(r, 2)
	var req reviewSegmentRequest
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	segment, ok := h.loadSegment(w, r, segmentID)
	if !ok {
		return
	}

	if err := segment.ToggleReview(); err != nil {
		if errors.Is(err, models.ErrEmptyTarget) {
			WriteError(w, http.StatusBadRequest, "Cannot review a segment with an empty target")
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.saveAndBroadcast(w, r, segment, req.UserID)
}

// RejectSegmentHandler marks a segment Rejected so the worker never
// touches it again.
// POST /api/segments/{id}/reject
func (h *SegmentHandler) RejectSegmentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	segmentID := PathSegment(r, 2)
	var req reviewSegmentRequest
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	segment, ok := h.loadSegment(w, r, segmentID)
	if !ok {
		return
	}

	segment.SetRejected()
	h.saveAndBroadcast(w, r, segment, req.UserID)
}

func (h *SegmentHandler) loadSegment(w http.ResponseWriter, r *http.Request, segmentID string) (*models.Segment, bool) {
	segment, err := h.segmentStorage.GetSegment(r.Context(), segmentID)
	if err != nil {
		if errors.Is(err, badger.ErrSegmentNotFound) {
			WriteError(w, http.StatusNotFound, "Segment not found")
			return nil, false
		}
		h.logger.Error().Err(err).Str("segment_id", segmentID).Msg("Failed to get segment")
		WriteError(w, http.StatusInternalServerError, "Failed to get segment")
		return nil, false
	}
	return segment, true
}

// saveAndBroadcast persists the segment, emits segment_updated and a
// refreshed file progress view, then writes the segment back to the
// caller.
func (h *SegmentHandler) saveAndBroadcast(w http.ResponseWriter, r *http.Request, segment *models.Segment, userID string) {
	if err := h.segmentStorage.SaveSegment(r.Context(), segment); err != nil {
		h.logger.Error().Err(err).Str("segment_id", segment.ID).Msg("Failed to save segment")
		WriteError(w, http.StatusInternalServerError, "Failed to save segment")
		return
	}

	h.publishSegmentUpdated(r.Context(), segment, userID)
	WriteJSON(w, http.StatusOK, segment)
}

func (h *SegmentHandler) publishSegmentUpdated(ctx context.Context, segment *models.Segment, userID string) {
	if h.events == nil {
		return
	}

	file, err := h.fileStorage.GetFile(ctx, segment.FileID)
	if err != nil {
		h.logger.Warn().Err(err).Str("file_id", segment.FileID).Msg("Failed to load file for segment event")
		return
	}

	h.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventSegmentUpdated,
		Payload: map[string]interface{}{
			"segment_id": segment.ID,
			"file_id":    segment.FileID,
			"project_id": file.ProjectID,
			"user_id":    userID,
			"target":     segment.Target,
			"status":     string(segment.Status),
			"origin":     string(segment.Origin),
		},
	})

	segments, err := h.segmentStorage.ListSegmentsByFile(ctx, segment.FileID)
	if err != nil {
		h.logger.Warn().Err(err).Str("file_id", segment.FileID).Msg("Failed to load segments for progress event")
		return
	}
	h.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventFileProgress,
		Payload: progressView(file, segments),
	})
}
