// -----------------------------------------------------------------------
// Template matching and application. A template is a rule set keyed by
// source text; matching scores the stored templates against a project's
// language pair, application resolves targets per segment.
// -----------------------------------------------------------------------

package templates

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
)

// Service implements the TemplateService interface over template storage.
type Service struct {
	templateStorage interfaces.TemplateStorage
	logger          arbor.ILogger
}

// NewService creates a new template service
func NewService(templateStorage interfaces.TemplateStorage, logger arbor.ILogger) *Service {
	return &Service{
		templateStorage: templateStorage,
		logger:          logger,
	}
}

// MatchTemplate selects the best stored template for the project's
// language pair. Returns (nil, nil) when no template qualifies; having
// no template is a normal outcome, not an error.
func (s *Service) MatchTemplate(ctx context.Context, project *models.Project, files []*models.File) (*interfaces.TemplateMatch, error) {
	candidates, err := s.templateStorage.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	var best *interfaces.TemplateMatch
	for _, tmpl := range candidates {
		score := scoreTemplate(project, tmpl)
		if score <= 0 {
			continue
		}
		if best == nil || score > best.Score {
			best = &interfaces.TemplateMatch{Template: tmpl, Score: score}
		}
	}

	if best == nil {
		s.logger.Debug().
			Str("project_id", project.ID).
			Str("source_lang", project.SourceLang).
			Str("target_lang", project.TargetLang).
			Int("candidates", len(candidates)).
			Msg("No template matched project")
		return nil, nil
	}

	s.logger.Info().
		Str("project_id", project.ID).
		Str("template_id", best.Template.ID).
		Float64("score", best.Score).
		Msg("Template matched project")

	return best, nil
}

// ApplyTemplate resolves a target for one segment from the template
// rules. matched=false means the template has no rule for this segment
// and the segment should be left untouched.
func (s *Service) ApplyTemplate(ctx context.Context, template *models.Template, segment *models.Segment) (string, bool, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, false, err
	}

	// Exact rule hit on the raw source text.
	if target, ok := template.Rules[segment.Source]; ok {
		return target, true, true, nil
	}

	// Fuzzy hit: the rule key differs only in case, surrounding
	// whitespace or internal spacing.
	normalized := normalizeSource(segment.Source)
	for key, target := range template.Rules {
		if normalizeSource(key) == normalized {
			return target, false, true, nil
		}
	}

	return "", false, false, nil
}

// scoreTemplate rates how well a template fits a project. Zero means the
// template is unusable for the project.
func scoreTemplate(project *models.Project, tmpl *models.Template) float64 {
	if !langCompatible(project.SourceLang, tmpl.SourceLang) ||
		!langCompatible(project.TargetLang, tmpl.TargetLang) {
		return 0
	}

	score := 0.5
	if strings.EqualFold(project.SourceLang, tmpl.SourceLang) {
		score += 0.25
	}
	if strings.EqualFold(project.TargetLang, tmpl.TargetLang) {
		score += 0.25
	}
	return score
}

// langCompatible reports whether two language tags share the same
// primary subtag, e.g. "en" and "en-US".
func langCompatible(a, b string) bool {
	return primarySubtag(a) != "" && primarySubtag(a) == primarySubtag(b)
}

func primarySubtag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

// normalizeSource folds case and collapses whitespace for fuzzy rule
// lookup.
func normalizeSource(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
