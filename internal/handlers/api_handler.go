package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
)

// APIHandler serves service-level endpoints (version, health).
type APIHandler struct {
	wsHandler *WebSocketHandler
	startTime time.Time
	logger    arbor.ILogger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(wsHandler *WebSocketHandler, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		wsHandler: wsHandler,
		startTime: time.Now(),
		logger:    logger,
	}
}

// VersionHandler returns build information.
// GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// HealthHandler returns service liveness.
// GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	clients := 0
	if h.wsHandler != nil {
		clients = h.wsHandler.ClientCount()
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"version":        common.GetVersion(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"ws_clients":     clients,
	})
}
