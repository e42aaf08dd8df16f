package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrTemplateNotFound is returned when a template lookup misses.
var ErrTemplateNotFound = fmt.Errorf("template not found")

// TemplateStorage implements the TemplateStorage interface for Badger
type TemplateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTemplateStorage creates a new TemplateStorage instance
func NewTemplateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TemplateStorage {
	return &TemplateStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TemplateStorage) SaveTemplate(ctx context.Context, template *models.Template) error {
	if template.ID == "" {
		return fmt.Errorf("template ID is required")
	}
	if err := s.db.Store().Upsert(template.ID, template); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

func (s *TemplateStorage) GetTemplate(ctx context.Context, templateID string) (*models.Template, error) {
	var template models.Template
	if err := s.db.Store().Get(templateID, &template); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &template, nil
}

func (s *TemplateStorage) ListTemplates(ctx context.Context) ([]*models.Template, error) {
	var templates []models.Template
	query := badgerhold.Where("ID").Ne("")
	if err := s.db.Store().Find(&templates, query); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	result := make([]*models.Template, len(templates))
	for i := range templates {
		result[i] = &templates[i]
	}
	return result, nil
}
