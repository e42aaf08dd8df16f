package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups the files being translated between one language pair.
type Project struct {
	ID         string    `json:"id" badgerhold:"key"`
	Name       string    `json:"name"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	TemplateID string    `json:"template_id,omitempty"`
	MatchScore float64   `json:"match_score,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewProject creates a project for a language pair.
func NewProject(name, sourceLang, targetLang string) *Project {
	now := time.Now()
	return &Project{
		ID:         uuid.New().String(),
		Name:       name,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Template is a reusable set of source->target rules selected by the
// template matcher and applied segment by segment.
type Template struct {
	ID         string            `json:"id" badgerhold:"key"`
	Name       string            `json:"name"`
	SourceLang string            `json:"source_lang"`
	TargetLang string            `json:"target_lang"`
	Rules      map[string]string `json:"rules"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewTemplate creates a template for a language pair.
func NewTemplate(name, sourceLang, targetLang string, rules map[string]string) *Template {
	return &Template{
		ID:         uuid.New().String(),
		Name:       name,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Rules:      rules,
		CreatedAt:  time.Now(),
	}
}
