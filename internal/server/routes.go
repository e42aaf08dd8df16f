package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (collaboration channel)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Projects
	mux.HandleFunc("/api/projects", s.handleProjectsRoute) // GET (list), POST (create)
	mux.HandleFunc("/api/projects/", s.handleProjectRoutes)

	// API routes - Templates
	mux.HandleFunc("/api/templates", s.handleTemplatesRoute) // GET (list), POST (create)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.GetJobHandler) // GET /{id}

	// API routes - Files
	mux.HandleFunc("/api/files/", s.handleFileRoutes)

	// API routes - Segments
	mux.HandleFunc("/api/segments/", s.handleSegmentRoutes)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.notFoundHandler)

	return mux
}

// handleProjectsRoute routes /api/projects requests (list and create)
func (s *Server) handleProjectsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.ProjectHandler.ListProjectsHandler(w, r)
	case "POST":
		s.app.ProjectHandler.CreateProjectHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTemplatesRoute routes /api/templates requests (list and create)
func (s *Server) handleTemplatesRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.ProjectHandler.ListTemplatesHandler(w, r)
	case "POST":
		s.app.ProjectHandler.CreateTemplateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProjectRoutes routes /api/projects/{id} and subpaths
func (s *Server) handleProjectRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// GET/POST /api/projects/{id}/jobs
	if strings.HasSuffix(path, "/jobs") {
		switch r.Method {
		case "GET":
			s.app.JobHandler.ListProjectJobsHandler(w, r)
		case "POST":
			s.app.JobHandler.EnqueueHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// GET/POST /api/projects/{id}/files
	if strings.HasSuffix(path, "/files") {
		switch r.Method {
		case "GET":
			s.app.FileHandler.ListProjectFilesHandler(w, r)
		case "POST":
			s.app.FileHandler.UploadFileHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// GET /api/projects/{id}/progress
	if strings.HasSuffix(path, "/progress") {
		s.app.StatusHandler.ProjectProgressHandler(w, r)
		return
	}

	// /api/projects/{id}
	switch r.Method {
	case "GET":
		s.app.ProjectHandler.GetProjectHandler(w, r)
	case "DELETE":
		s.app.ProjectHandler.DeleteProjectHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFileRoutes routes /api/files/{id} and subpaths
func (s *Server) handleFileRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// GET /api/files/{id}/segments
	if strings.HasSuffix(path, "/segments") {
		s.app.SegmentHandler.ListFileSegmentsHandler(w, r)
		return
	}

	// GET /api/files/{id}/progress
	if strings.HasSuffix(path, "/progress") {
		s.app.StatusHandler.FileProgressHandler(w, r)
		return
	}

	// POST /api/files/{id}/retry
	if strings.HasSuffix(path, "/retry") {
		s.app.FileHandler.RetryFileHandler(w, r)
		return
	}

	// /api/files/{id}
	switch r.Method {
	case "GET":
		s.app.FileHandler.GetFileHandler(w, r)
	case "DELETE":
		s.app.FileHandler.DeleteFileHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSegmentRoutes routes /api/segments/{id} subpaths
func (s *Server) handleSegmentRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, "/edit"):
		s.app.SegmentHandler.EditSegmentHandler(w, r)
	case strings.HasSuffix(path, "/review"):
		s.app.SegmentHandler.ReviewSegmentHandler(w, r)
	case strings.HasSuffix(path, "/reject"):
		s.app.SegmentHandler.RejectSegmentHandler(w, r)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not found", http.StatusNotFound)
}
