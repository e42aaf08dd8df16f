package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestJobStorage_SaveAndGet(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStorage(db, common.GetLogger())
	ctx := context.Background()

	job := models.NewJob("project-1", models.JobTypeMTTranslation)
	require.NoError(t, store.SaveJob(ctx, job))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)

	_, err = store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStorage_ListJobsByProjectOldestFirst(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStorage(db, common.GetLogger())
	ctx := context.Background()

	first := models.NewJob("project-1", models.JobTypeTemplateMatching)
	first.CreatedAt = time.Now().Add(-2 * time.Hour)
	second := models.NewJob("project-1", models.JobTypeMTTranslation)
	second.CreatedAt = time.Now().Add(-1 * time.Hour)
	other := models.NewJob("project-2", models.JobTypeMTTranslation)

	require.NoError(t, store.SaveJob(ctx, second))
	require.NoError(t, store.SaveJob(ctx, first))
	require.NoError(t, store.SaveJob(ctx, other))

	jobs, err := store.ListJobsByProject(ctx, "project-1")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ID)
	assert.Equal(t, second.ID, jobs[1].ID)
}

func TestJobStorage_GetActiveJobForProject(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStorage(db, common.GetLogger())
	ctx := context.Background()

	done := models.NewJob("project-1", models.JobTypeMTTranslation)
	require.NoError(t, done.MarkProcessing())
	require.NoError(t, done.MarkCompleted(nil))
	require.NoError(t, store.SaveJob(ctx, done))

	active, err := store.GetActiveJobForProject(ctx, "project-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	pending := models.NewJob("project-1", models.JobTypeMTTranslation)
	require.NoError(t, store.SaveJob(ctx, pending))

	active, err = store.GetActiveJobForProject(ctx, "project-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, pending.ID, active.ID)
}

func TestJobStorage_ClaimNextPending(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStorage(db, common.GetLogger())
	ctx := context.Background()

	// Nothing to claim.
	claimed, err := store.ClaimNextPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	older := models.NewJob("project-1", models.JobTypeMTTranslation)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := models.NewJob("project-2", models.JobTypeMTTranslation)
	require.NoError(t, store.SaveJob(ctx, newer))
	require.NoError(t, store.SaveJob(ctx, older))

	claimed, err = store.ClaimNextPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, older.ID, claimed.ID)
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)
	assert.Equal(t, 10, claimed.Progress)

	// The claim is persisted.
	got, err := store.GetJob(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, got.Status)

	// Second claim picks up the remaining pending job.
	claimed, err = store.ClaimNextPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, newer.ID, claimed.ID)
}

func TestSegmentStorage_ListByFileInDocumentOrder(t *testing.T) {
	db := newTestDB(t)
	store := NewSegmentStorage(db, common.GetLogger())
	ctx := context.Background()

	segments := []*models.Segment{
		models.NewSegment("file-1", 2, "third"),
		models.NewSegment("file-1", 0, "first"),
		models.NewSegment("file-1", 1, "second"),
		models.NewSegment("file-2", 0, "other file"),
	}
	require.NoError(t, store.SaveSegments(ctx, segments))

	got, err := store.ListSegmentsByFile(ctx, "file-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Source)
	assert.Equal(t, "second", got[1].Source)
	assert.Equal(t, "third", got[2].Source)
}

func TestFileStorage_SetFileStatus(t *testing.T) {
	db := newTestDB(t)
	store := NewFileStorage(db, common.GetLogger())
	ctx := context.Background()

	file := models.NewFile("project-1", "manual.docx")
	file.ProcessingStatus = models.FileStatusParsed
	require.NoError(t, store.SaveFile(ctx, file))

	updated, err := store.SetFileStatus(ctx, file.ID, models.FileStatusTranslating, 25, "")
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusTranslating, updated.ProcessingStatus)
	assert.Equal(t, 25, updated.ProcessingProgress)

	// Illegal transition is rejected and nothing is persisted.
	_, err = store.SetFileStatus(ctx, file.ID, models.FileStatusParsing, 0, "")
	assert.Error(t, err)

	got, err := store.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusTranslating, got.ProcessingStatus)
}
