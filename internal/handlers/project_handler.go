package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/ternarybob/lingua/internal/storage/badger"
)

// ProjectHandler exposes project and template management over HTTP.
type ProjectHandler struct {
	projectStorage  interfaces.ProjectStorage
	templateStorage interfaces.TemplateStorage
	logger          arbor.ILogger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectStorage interfaces.ProjectStorage, templateStorage interfaces.TemplateStorage, logger arbor.ILogger) *ProjectHandler {
	return &ProjectHandler{
		projectStorage:  projectStorage,
		templateStorage: templateStorage,
		logger:          logger,
	}
}

type createProjectRequest struct {
	Name       string `json:"name"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// CreateProjectHandler creates a project.
// POST /api/projects
func (h *ProjectHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req createProjectRequest
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" || req.SourceLang == "" || req.TargetLang == "" {
		WriteError(w, http.StatusBadRequest, "name, source_lang and target_lang are required")
		return
	}

	project := models.NewProject(req.Name, req.SourceLang, req.TargetLang)
	if err := h.projectStorage.SaveProject(r.Context(), project); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create project")
		WriteError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	h.logger.Info().Str("project_id", project.ID).Str("name", project.Name).Msg("Project created")
	WriteJSON(w, http.StatusCreated, project)
}

// ListProjectsHandler returns all projects.
// GET /api/projects
func (h *ProjectHandler) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	projects, err := h.projectStorage.ListProjects(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list projects")
		WriteError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

// GetProjectHandler returns a single project.
// GET /api/projects/{id}
func (h *ProjectHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	projectID := PathSegment(r, 2)
	project, err := h.projectStorage.GetProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, badger.ErrProjectNotFound) {
			WriteError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to get project")
		WriteError(w, http.StatusInternalServerError, "Failed to get project")
		return
	}

	WriteJSON(w, http.StatusOK, project)
}

// DeleteProjectHandler removes a project.
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	projectID := PathSegment(r, 2)
	if err := h.projectStorage.DeleteProject(r.Context(), projectID); err != nil {
		if errors.Is(err, badger.ErrProjectNotFound) {
			WriteError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to delete project")
		WriteError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}

	WriteSuccess(w, "Project deleted")
}

type createTemplateRequest struct {
	Name       string            `json:"name"`
	SourceLang string            `json:"source_lang"`
	TargetLang string            `json:"target_lang"`
	Rules      map[string]string `json:"rules"`
}

// CreateTemplateHandler stores a translation template.
// POST /api/templates
func (h *ProjectHandler) CreateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req createTemplateRequest
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" || req.SourceLang == "" || req.TargetLang == "" {
		WriteError(w, http.StatusBadRequest, "name, source_lang and target_lang are required")
		return
	}

	template := models.NewTemplate(req.Name, req.SourceLang, req.TargetLang, req.Rules)
	if err := h.templateStorage.SaveTemplate(r.Context(), template); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create template")
		WriteError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}

	WriteJSON(w, http.StatusCreated, template)
}

// ListTemplatesHandler returns all stored templates.
// GET /api/templates
func (h *ProjectHandler) ListTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	templates, err := h.templateStorage.ListTemplates(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list templates")
		WriteError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}
