package handlers

import (
	"bytes"
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

func newSegmentFixture(t *testing.T) (*SegmentHandler, interfaces.StorageManager, *models.Segment) {
	t.Helper()
	logger := common.GetLogger()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	ctx := context.Background()
	project := models.NewProject("Docs", "en", "fr")
	require.NoError(t, storage.ProjectStorage().SaveProject(ctx, project))

	file := models.NewFile(project.ID, "guide.txt")
	require.NoError(t, file.TransitionTo(models.FileStatusParsing))
	require.NoError(t, file.TransitionTo(models.FileStatusParsed))
	require.NoError(t, storage.FileStorage().SaveFile(ctx, file))

	segment := models.NewSegment(file.ID, 1, "Hello world")
	require.NoError(t, storage.SegmentStorage().SaveSegment(ctx, segment))

	return NewSegmentHandler(storage, nil, logger), storage, segment
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestEditSegment_DemotesOriginToHT(t *testing.T) {
	handler, storage, segment := newSegmentFixture(t)

	// Simulate a prior machine translation.
	require.NoError(t, segment.ApplyMachineTranslation("Bonjour monde"))
	require.NoError(t, storage.SegmentStorage().SaveSegment(context.Background(), segment))

	rec := postJSON(t, handler.EditSegmentHandler, "/api/segments/"+segment.ID+"/edit",
		editSegmentRequest{Target: "Bonjour le monde", UserID: "u-alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := storage.SegmentStorage().GetSegment(context.Background(), segment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour le monde", updated.Target)
	assert.Equal(t, models.SegmentStatusEdited, updated.Status)
	assert.Equal(t, models.OriginHT, updated.Origin)
	assert.False(t, updated.WorkerWritable())
}

func TestReviewSegment_RequiresTarget(t *testing.T) {
	handler, _, segment := newSegmentFixture(t)

	rec := postJSON(t, handler.ReviewSegmentHandler, "/api/segments/"+segment.ID+"/review",
		reviewSegmentRequest{UserID: "u-alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewSegment_TogglesBetweenReviewedAndEdited(t *testing.T) {
	handler, storage, segment := newSegmentFixture(t)

	segment.ApplyEdit("Bonjour")
	require.NoError(t, storage.SegmentStorage().SaveSegment(context.Background(), segment))

	rec := postJSON(t, handler.ReviewSegmentHandler, "/api/segments/"+segment.ID+"/review",
		reviewSegmentRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := storage.SegmentStorage().GetSegment(context.Background(), segment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SegmentStatusReviewed, updated.Status)

	rec = postJSON(t, handler.ReviewSegmentHandler, "/api/segments/"+segment.ID+"/review",
		reviewSegmentRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err = storage.SegmentStorage().GetSegment(context.Background(), segment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SegmentStatusEdited, updated.Status)
}

func TestRejectSegment_BlocksWorkerWrites(t *testing.T) {
	handler, storage, segment := newSegmentFixture(t)

	rec := postJSON(t, handler.RejectSegmentHandler, "/api/segments/"+segment.ID+"/reject",
		reviewSegmentRequest{UserID: "u-bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := storage.SegmentStorage().GetSegment(context.Background(), segment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SegmentStatusRejected, updated.Status)
	assert.False(t, updated.WorkerWritable())
}

func TestEditSegment_UnknownSegmentReturns404(t *testing.T) {
	handler, _, _ := newSegmentFixture(t)

	rec := postJSON(t, handler.EditSegmentHandler, "/api/segments/missing/edit",
		editSegmentRequest{Target: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
