package interfaces

import (
	"context"

	"github.com/ternarybob/lingua/internal/models"
)

// ProjectStorage persists projects and their template bindings.
type ProjectStorage interface {
	SaveProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// FileStorage persists file records. SetFileStatus is the single write
// path for processing state so the lifecycle rules apply everywhere.
type FileStorage interface {
	SaveFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, fileID string) (*models.File, error)
	ListFilesByProject(ctx context.Context, projectID string) ([]*models.File, error)
	SetFileStatus(ctx context.Context, fileID string, status models.FileStatus, progress int, errorMessage string) (*models.File, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// SegmentStorage persists translation units.
type SegmentStorage interface {
	SaveSegment(ctx context.Context, segment *models.Segment) error
	SaveSegments(ctx context.Context, segments []*models.Segment) error
	GetSegment(ctx context.Context, segmentID string) (*models.Segment, error)
	ListSegmentsByFile(ctx context.Context, fileID string) ([]*models.Segment, error)
	DeleteSegmentsByFile(ctx context.Context, fileID string) error
}

// JobStorage persists the durable job queue. ClaimNextPending performs
// the compare-and-swap style claim of the oldest pending job so a second
// worker process cannot double-run it.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobsByProject(ctx context.Context, projectID string) ([]*models.Job, error)
	GetActiveJobForProject(ctx context.Context, projectID string) (*models.Job, error)
	ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	ClaimNextPending(ctx context.Context) (*models.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// TemplateStorage persists translation templates.
type TemplateStorage interface {
	SaveTemplate(ctx context.Context, template *models.Template) error
	GetTemplate(ctx context.Context, templateID string) (*models.Template, error)
	ListTemplates(ctx context.Context) ([]*models.Template, error)
}

// StorageManager provides access to all storage interfaces.
type StorageManager interface {
	ProjectStorage() ProjectStorage
	FileStorage() FileStorage
	SegmentStorage() SegmentStorage
	JobStorage() JobStorage
	TemplateStorage() TemplateStorage
	Close() error
}
