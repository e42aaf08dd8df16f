package interfaces

import (
	"context"

	"github.com/ternarybob/lingua/internal/models"
)

// TranslationService is the machine-translation collaborator contract.
// A per-segment failure is returned to the caller, which decides whether
// to skip or escalate; the worker always skips.
type TranslationService interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// HealthCheck validates provider credentials and connectivity.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}

// TemplateMatch is the result of scoring templates against a project.
type TemplateMatch struct {
	Template *models.Template
	Score    float64
}

// TemplateService is the template collaborator contract.
type TemplateService interface {
	// MatchTemplate selects the best template for a project, or returns
	// (nil, nil) when no template is available. "No template" is not an
	// error.
	MatchTemplate(ctx context.Context, project *models.Project, files []*models.File) (*TemplateMatch, error)

	// ApplyTemplate produces a target for one segment from the template
	// rules. matched=false means the template has nothing for this
	// segment and it should be left untouched.
	ApplyTemplate(ctx context.Context, template *models.Template, segment *models.Segment) (target string, exact bool, matched bool, err error)
}

// JobService is the queue surface exposed to the API layer.
type JobService interface {
	Enqueue(ctx context.Context, projectID string, jobType models.JobType) (*models.Job, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListForProject(ctx context.Context, projectID string) ([]*models.Job, error)
}
