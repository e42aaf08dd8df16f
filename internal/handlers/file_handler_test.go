package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/ternarybob/lingua/internal/storage/badger"
)

func newFileFixture(t *testing.T) (*FileHandler, interfaces.StorageManager, *models.Project) {
	t.Helper()
	logger := common.GetLogger()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	project := models.NewProject("Docs", "en", "fr")
	require.NoError(t, storage.ProjectStorage().SaveProject(context.Background(), project))

	return NewFileHandler(storage, nil, logger), storage, project
}

func TestUploadFile_CreatesParsedFileWithSegments(t *testing.T) {
	handler, storage, project := newFileFixture(t)

	rec := postJSON(t, handler.UploadFileHandler, "/api/projects/"+project.ID+"/files",
		uploadFileRequest{Name: "guide.txt", Content: "Hello world\n\nSecond line\n"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var file models.File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &file))
	assert.Equal(t, models.FileStatusParsed, file.ProcessingStatus)
	assert.Equal(t, 100, file.ProcessingProgress)

	segments, err := storage.SegmentStorage().ListSegmentsByFile(context.Background(), file.ID)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "Hello world", segments[0].Source)
	assert.Equal(t, models.SegmentStatusDraft, segments[0].Status)
	assert.Equal(t, "Second line", segments[1].Source)
}

func TestUploadFile_PreSplitSegments(t *testing.T) {
	handler, storage, project := newFileFixture(t)

	rec := postJSON(t, handler.UploadFileHandler, "/api/projects/"+project.ID+"/files",
		uploadFileRequest{Name: "doc.txt", Segments: []string{"One", "Two", "Three"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	var file models.File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &file))
	segments, err := storage.SegmentStorage().ListSegmentsByFile(context.Background(), file.ID)
	require.NoError(t, err)
	assert.Len(t, segments, 3)
}

func TestUploadFile_EmptyContentRejected(t *testing.T) {
	handler, _, project := newFileFixture(t)

	rec := postJSON(t, handler.UploadFileHandler, "/api/projects/"+project.ID+"/files",
		uploadFileRequest{Name: "empty.txt", Content: "  \n \n"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadFile_UnknownProjectReturns404(t *testing.T) {
	handler, _, _ := newFileFixture(t)

	rec := postJSON(t, handler.UploadFileHandler, "/api/projects/missing/files",
		uploadFileRequest{Name: "doc.txt", Segments: []string{"One"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetryFile_OnlyFromErrorState(t *testing.T) {
	handler, storage, project := newFileFixture(t)
	ctx := context.Background()

	file := models.NewFile(project.ID, "broken.txt")
	require.NoError(t, file.TransitionTo(models.FileStatusParsing))
	require.NoError(t, file.TransitionTo(models.FileStatusParsed))
	require.NoError(t, storage.FileStorage().SaveFile(ctx, file))

	// Not in error: retry is refused.
	req := httptest.NewRequest(http.MethodPost, "/api/files/"+file.ID+"/retry", nil)
	rec := httptest.NewRecorder()
	handler.RetryFileHandler(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err := storage.FileStorage().SetFileStatus(ctx, file.ID, models.FileStatusError, 0, "parse exploded")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/api/files/"+file.ID+"/retry", nil)
	rec = httptest.NewRecorder()
	handler.RetryFileHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := storage.FileStorage().GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusParsed, updated.ProcessingStatus)
	assert.Empty(t, updated.ErrorMessage)
}

func TestDeleteFile_RemovesSegments(t *testing.T) {
	handler, storage, project := newFileFixture(t)
	ctx := context.Background()

	rec := postJSON(t, handler.UploadFileHandler, "/api/projects/"+project.ID+"/files",
		uploadFileRequest{Name: "doc.txt", Segments: []string{"One", "Two"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var file models.File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &file))

	req := httptest.NewRequest(http.MethodDelete, "/api/files/"+file.ID, nil)
	del := httptest.NewRecorder()
	handler.DeleteFileHandler(del, req)
	require.Equal(t, http.StatusOK, del.Code)

	segments, err := storage.SegmentStorage().ListSegmentsByFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Empty(t, segments)
}
