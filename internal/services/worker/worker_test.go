package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/ternarybob/lingua/internal/services/templates"
	"github.com/ternarybob/lingua/internal/storage/badger"
)

// fakeTranslator translates deterministically and fails or panics on
// demand for specific source texts.
type fakeTranslator struct {
	failOn  map[string]bool
	panicOn map[string]bool
	calls   int
}

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.calls++
	if f.panicOn[text] {
		panic("translator exploded on " + text)
	}
	if f.failOn[text] {
		return "", fmt.Errorf("provider rejected %q", text)
	}
	return "[" + targetLang + "] " + text, nil
}

func (f *fakeTranslator) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeTranslator) Close() error { return nil }

// eventRecorder captures published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (r *eventRecorder) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (r *eventRecorder) Publish(ctx context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) PublishSync(ctx context.Context, event interfaces.Event) error {
	return r.Publish(ctx, event)
}

func (r *eventRecorder) Close() error { return nil }

func (r *eventRecorder) jobProgress(jobID string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var progress []int
	for _, e := range r.events {
		if e.Type != interfaces.EventJobUpdate {
			continue
		}
		payload, ok := e.Payload.(map[string]interface{})
		if !ok || payload["job_id"] != jobID {
			continue
		}
		progress = append(progress, payload["progress"].(int))
	}
	return progress
}

type workerFixture struct {
	worker     *Service
	storage    interfaces.StorageManager
	translator *fakeTranslator
	events     *eventRecorder
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	logger := common.GetLogger()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	translator := &fakeTranslator{failOn: map[string]bool{}, panicOn: map[string]bool{}}
	recorder := &eventRecorder{}
	templateService := templates.NewService(storage.TemplateStorage(), logger)

	cfg := &common.WorkerConfig{
		PollInterval:        "10ms",
		MTBatchSize:         2,
		MTBatchDelay:        "1ms",
		TemplateBatchSize:   2,
		ThroughputPerMinute: 10,
	}

	return &workerFixture{
		worker:     NewService(cfg, storage, translator, templateService, recorder, logger),
		storage:    storage,
		translator: translator,
		events:     recorder,
	}
}

// seedProject creates a project with one parsed file holding draft
// segments for the given source texts.
func (f *workerFixture) seedProject(t *testing.T, sources ...string) (*models.Project, *models.File, []*models.Segment) {
	t.Helper()
	ctx := context.Background()

	project := models.NewProject("Handbook", "en", "fr")
	require.NoError(t, f.storage.ProjectStorage().SaveProject(ctx, project))

	file := models.NewFile(project.ID, "chapter-1.docx")
	require.NoError(t, file.TransitionTo(models.FileStatusParsing))
	require.NoError(t, file.TransitionTo(models.FileStatusParsed))
	require.NoError(t, f.storage.FileStorage().SaveFile(ctx, file))

	segments := make([]*models.Segment, 0, len(sources))
	for i, source := range sources {
		segment := models.NewSegment(file.ID, i, source)
		segments = append(segments, segment)
	}
	require.NoError(t, f.storage.SegmentStorage().SaveSegments(ctx, segments))

	return project, file, segments
}

func (f *workerFixture) enqueue(t *testing.T, projectID string, jobType models.JobType) *models.Job {
	t.Helper()
	job := models.NewJob(projectID, jobType)
	require.NoError(t, f.storage.JobStorage().SaveJob(context.Background(), job))
	return job
}

func (f *workerFixture) reloadJob(t *testing.T, jobID string) *models.Job {
	t.Helper()
	job, err := f.storage.JobStorage().GetJob(context.Background(), jobID)
	require.NoError(t, err)
	return job
}

func TestTick_NoPendingJobs(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.Tick(context.Background())
	assert.Zero(t, f.translator.calls)
}

func TestMTTranslation_AllSegmentsTranslated(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, file, _ := f.seedProject(t, "Hello", "World", "Goodbye")
	project, err := f.storage.ProjectStorage().GetProject(ctx, file.ProjectID)
	require.NoError(t, err)
	job := f.enqueue(t, project.ID, models.JobTypeMTTranslation)

	f.worker.Tick(ctx)

	done := f.reloadJob(t, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.EqualValues(t, 3, done.Result["translated"])
	assert.EqualValues(t, 0, done.Result["failed"])

	segments, err := f.storage.SegmentStorage().ListSegmentsByFile(ctx, file.ID)
	require.NoError(t, err)
	for _, segment := range segments {
		assert.Equal(t, models.SegmentStatusMT, segment.Status)
		assert.Equal(t, models.OriginMT, segment.Origin)
		assert.Equal(t, "[fr] "+segment.Source, segment.Target)
	}

	// Every segment translated, so the file reaches ready.
	updated, err := f.storage.FileStorage().GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusReady, updated.ProcessingStatus)
	assert.Equal(t, 100, updated.ProcessingProgress)
}

func TestMTTranslation_PartialProviderFailure(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, file, _ := f.seedProject(t, "One", "Two", "Three", "Four")
	f.translator.failOn["Three"] = true
	job := f.enqueue(t, file.ProjectID, models.JobTypeMTTranslation)

	f.worker.Tick(ctx)

	// One segment failed: the job still completes, the failure is
	// recorded in the result, and the failed segment stays Draft.
	done := f.reloadJob(t, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.EqualValues(t, 3, done.Result["translated"])
	assert.EqualValues(t, 1, done.Result["failed"])

	segments, err := f.storage.SegmentStorage().ListSegmentsByFile(ctx, file.ID)
	require.NoError(t, err)
	drafts := 0
	for _, segment := range segments {
		if segment.Status == models.SegmentStatusDraft {
			drafts++
			assert.Equal(t, "Three", segment.Source)
			assert.Empty(t, segment.Target)
		}
	}
	assert.Equal(t, 1, drafts)

	// An untranslated segment remains, so the file falls back to
	// parsed instead of ready.
	updated, err := f.storage.FileStorage().GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusParsed, updated.ProcessingStatus)
}

func TestMTTranslation_SkipsHumanEditedSegments(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, file, segments := f.seedProject(t, "Alpha", "Beta")

	// A human edits the first segment before the worker runs.
	edited := segments[0]
	edited.ApplyEdit("Alpha revised by hand")
	require.NoError(t, f.storage.SegmentStorage().SaveSegment(ctx, edited))

	job := f.enqueue(t, file.ProjectID, models.JobTypeMTTranslation)
	f.worker.Tick(ctx)

	done := f.reloadJob(t, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)

	reloaded, err := f.storage.SegmentStorage().GetSegment(ctx, edited.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha revised by hand", reloaded.Target)
	assert.Equal(t, models.SegmentStatusEdited, reloaded.Status)
	assert.Equal(t, models.OriginHT, reloaded.Origin)
}

func TestMTTranslation_ProgressIsMonotonic(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, file, _ := f.seedProject(t, "a", "b", "c", "d", "e", "f", "g")
	f.translator.failOn["d"] = true
	job := f.enqueue(t, file.ProjectID, models.JobTypeMTTranslation)

	f.worker.Tick(ctx)

	progress := f.events.jobProgress(job.ID)
	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress regressed at update %d", i)
	}
	assert.Equal(t, 10, progress[0])
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestTemplateMatching_NoTemplateIsSuccess(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, file, _ := f.seedProject(t, "Hello")
	job := f.enqueue(t, file.ProjectID, models.JobTypeTemplateMatching)

	f.worker.Tick(ctx)

	done := f.reloadJob(t, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.Equal(t, false, done.Result["matched"])
	assert.Empty(t, done.ErrorMessage)
}

func TestTemplateMatching_BindsTemplateToProject(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, file, _ := f.seedProject(t, "Hello")
	tmpl := models.NewTemplate("English to French", "en", "fr", map[string]string{"Hello": "Bonjour"})
	require.NoError(t, f.storage.TemplateStorage().SaveTemplate(ctx, tmpl))

	job := f.enqueue(t, file.ProjectID, models.JobTypeTemplateMatching)
	f.worker.Tick(ctx)

	done := f.reloadJob(t, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.Equal(t, true, done.Result["matched"])
	assert.Equal(t, tmpl.ID, done.Result["template_id"])

	project, err := f.storage.ProjectStorage().GetProject(ctx, file.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID, project.TemplateID)
	assert.Equal(t, 1.0, project.MatchScore)
}

func TestTemplateApplication_AppliesRules(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	project, file, _ := f.seedProject(t, "Hello", "Unmapped text")
	tmpl := models.NewTemplate("English to French", "en", "fr", map[string]string{"Hello": "Bonjour"})
	require.NoError(t, f.storage.TemplateStorage().SaveTemplate(ctx, tmpl))
	project.TemplateID = tmpl.ID
	project.MatchScore = 1.0
	require.NoError(t, f.storage.ProjectStorage().SaveProject(ctx, project))

	job := f.enqueue(t, project.ID, models.JobTypeTemplateApplication)
	f.worker.Tick(ctx)

	done := f.reloadJob(t, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.EqualValues(t, 1, done.Result["applied"])
	assert.EqualValues(t, 2, done.Result["total"])

	segments, err := f.storage.SegmentStorage().ListSegmentsByFile(ctx, file.ID)
	require.NoError(t, err)
	for _, segment := range segments {
		switch segment.Source {
		case "Hello":
			assert.Equal(t, "Bonjour", segment.Target)
			assert.Equal(t, models.SegmentStatusExactMatch, segment.Status)
			assert.Equal(t, models.OriginExactMatch, segment.Origin)
		default:
			assert.Empty(t, segment.Target)
			assert.Equal(t, models.SegmentStatusDraft, segment.Status)
		}
	}
}

func TestTemplateApplication_MissingTemplateFailsJob(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, file, _ := f.seedProject(t, "Hello")
	job := f.enqueue(t, file.ProjectID, models.JobTypeTemplateApplication)

	f.worker.Tick(ctx)

	done := f.reloadJob(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, done.Status)
	assert.Equal(t, 0, done.Progress)
	assert.Contains(t, done.ErrorMessage, "no template")
}

func TestTick_FailureDoesNotBlockNextTick(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	// First project: template application without a bound template,
	// guaranteed structural failure.
	_, brokenFile, _ := f.seedProject(t, "Hello")
	broken := f.enqueue(t, brokenFile.ProjectID, models.JobTypeTemplateApplication)

	// Second project: healthy MT job.
	_, healthyFile, _ := f.seedProject(t, "World")
	healthy := f.enqueue(t, healthyFile.ProjectID, models.JobTypeMTTranslation)

	f.worker.Tick(ctx)
	f.worker.Tick(ctx)

	assert.Equal(t, models.JobStatusFailed, f.reloadJob(t, broken.ID).Status)
	assert.Equal(t, models.JobStatusCompleted, f.reloadJob(t, healthy.ID).Status)
}

func TestTick_PanicFailsClaimedJob(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, file, _ := f.seedProject(t, "One", "Two")
	f.translator.panicOn["Two"] = true
	job := f.enqueue(t, file.ProjectID, models.JobTypeMTTranslation)

	f.worker.Tick(ctx)

	// The panic fails the job immediately; it must not linger in
	// processing and block the project's slot.
	done := f.reloadJob(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, done.Status)
	assert.Equal(t, 0, done.Progress)
	assert.Contains(t, done.ErrorMessage, "panic")

	// The loop survives: a healthy job completes on the next tick.
	_, healthyFile, _ := f.seedProject(t, "Three")
	healthy := f.enqueue(t, healthyFile.ProjectID, models.JobTypeMTTranslation)
	f.worker.Tick(ctx)
	assert.Equal(t, models.JobStatusCompleted, f.reloadJob(t, healthy.ID).Status)
}

func TestTick_ClaimsOldestPendingFirst(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, fileA, _ := f.seedProject(t, "First")
	_, fileB, _ := f.seedProject(t, "Second")
	older := f.enqueue(t, fileA.ProjectID, models.JobTypeMTTranslation)
	newer := f.enqueue(t, fileB.ProjectID, models.JobTypeMTTranslation)

	f.worker.Tick(ctx)

	assert.True(t, f.reloadJob(t, older.ID).IsTerminal())
	assert.Equal(t, models.JobStatusPending, f.reloadJob(t, newer.ID).Status)
}
