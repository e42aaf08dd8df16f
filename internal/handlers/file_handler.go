package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/ternarybob/lingua/internal/storage/badger"
)

// FileHandler manages file records and their segment extraction. Upload
// runs the parse inline (uploaded -> parsing -> parsed) since segment
// extraction is a simple line split; heavy work stays on the job worker.
type FileHandler struct {
	projectStorage interfaces.ProjectStorage
	fileStorage    interfaces.FileStorage
	segmentStorage interfaces.SegmentStorage
	events         interfaces.EventService
	logger         arbor.ILogger
}

// NewFileHandler creates a new file handler
func NewFileHandler(storage interfaces.StorageManager, events interfaces.EventService, logger arbor.ILogger) *FileHandler {
	return &FileHandler{
		projectStorage: storage.ProjectStorage(),
		fileStorage:    storage.FileStorage(),
		segmentStorage: storage.SegmentStorage(),
		events:         events,
		logger:         logger,
	}
}

type uploadFileRequest struct {
	Name     string   `json:"name"`
	Content  string   `json:"content,omitempty"`
	Segments []string `json:"segments,omitempty"`
}

// UploadFileHandler creates a file and extracts its segments.
// POST /api/projects/{id}/files
//
// The body carries either pre-split segments or raw content that is
// split into one segment per non-empty line.
func (h *FileHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	projectID := PathSegment(r, 2)
	project, err := h.projectStorage.GetProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, badger.ErrProjectNotFound) {
			WriteError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to load project")
		WriteError(w, http.StatusInternalServerError, "Failed to load project")
		return
	}

	var req uploadFileRequest
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	sources := req.Segments
	if len(sources) == 0 {
		sources = splitContent(req.Content)
	}
	if len(sources) == 0 {
		WriteError(w, http.StatusBadRequest, "file has no translatable content")
		return
	}

	file := models.NewFile(project.ID, req.Name)
	if err := h.fileStorage.SaveFile(r.Context(), file); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save file")
		WriteError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	file, err = h.parseFile(r.Context(), file, sources)
	if err != nil {
		h.logger.Error().Err(err).Str("file_id", file.ID).Msg("File parse failed")
		WriteError(w, http.StatusInternalServerError, "Failed to parse file")
		return
	}

	h.logger.Info().
		Str("file_id", file.ID).
		Str("project_id", project.ID).
		Int("segments", len(sources)).
		Msg("File uploaded and parsed")
	WriteJSON(w, http.StatusCreated, file)
}

// parseFile walks the file through parsing into parsed, creating one
// draft segment per source. A parse failure lands the file in error.
func (h *FileHandler) parseFile(ctx context.Context, file *models.File, sources []string) (*models.File, error) {
	file, err := h.fileStorage.SetFileStatus(ctx, file.ID, models.FileStatusParsing, 0, "")
	if err != nil {
		return file, err
	}
	h.publishFileProgress(ctx, file)

	segments := make([]*models.Segment, 0, len(sources))
	for i, source := range sources {
		segments = append(segments, models.NewSegment(file.ID, i+1, source))
	}
	if err := h.segmentStorage.SaveSegments(ctx, segments); err != nil {
		if failed, ferr := h.fileStorage.SetFileStatus(ctx, file.ID, models.FileStatusError, 0, err.Error()); ferr == nil {
			h.publishFileProgress(ctx, failed)
		}
		return file, err
	}

	file, err = h.fileStorage.SetFileStatus(ctx, file.ID, models.FileStatusParsed, 100, "")
	if err != nil {
		return file, err
	}
	h.publishFileProgress(ctx, file)
	return file, nil
}

// GetFileHandler returns a single file record.
// GET /api/files/{id}
func (h *FileHandler) GetFileHandler(w http.ResponseWriter, r *http.Request) {
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

	WriteJSON(w, http.StatusOK, file)
}

// ListProjectFilesHandler returns all files in a project.
// GET /api/projects/{id}/files
func (h *FileHandler) ListProjectFilesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	projectID := PathSegment(r, 2)
	files, err := h.fileStorage.ListFilesByProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list files")
		WriteError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"files": files,
		"count": len(files),
	})
}

// RetryFileHandler moves a file out of the error state back to parsed so
// processing can be attempted again.
// POST /api/files/{id}/retry
func (h *FileHandler) RetryFileHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
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

	if file.ProcessingStatus != models.FileStatusError {
		WriteError(w, http.StatusConflict, "File is not in the error state")
		return
	}

	file, err = h.fileStorage.SetFileStatus(r.Context(), fileID, models.FileStatusParsed, -1, "")
	if err != nil {
		h.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to retry file")
		WriteError(w, http.StatusInternalServerError, "Failed to retry file")
		return
	}
	h.publishFileProgress(r.Context(), file)

	h.logger.Info().Str("file_id", fileID).Msg("File retried out of error state")
	WriteJSON(w, http.StatusOK, file)
}

// DeleteFileHandler removes a file and its segments.
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	fileID := PathSegment(r, 2)
	if err := h.segmentStorage.DeleteSegmentsByFile(r.Context(), fileID); err != nil {
		h.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to delete segments")
		WriteError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	if err := h.fileStorage.DeleteFile(r.Context(), fileID); err != nil {
		if errors.Is(err, badger.ErrFileNotFound) {
			WriteError(w, http.StatusNotFound, "File not found")
			return
		}
		h.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to delete file")
		WriteError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}

	WriteSuccess(w, "File deleted")
}

func (h *FileHandler) publishFileProgress(ctx context.Context, file *models.File) {
	if h.events == nil || file == nil {
		return
	}
	segments, err := h.segmentStorage.ListSegmentsByFile(ctx, file.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("file_id", file.ID).Msg("Failed to load segments for progress event")
		return
	}
	h.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventFileProgress,
		Payload: progressView(file, segments),
	})
}

// splitContent turns raw uploaded text into segment sources, one per
// non-empty line.
func splitContent(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
