// -----------------------------------------------------------------------
// Realtime collaboration channel. Clients introduce themselves with a
// hello message carrying identity and scope; the hub fans events out to
// the other members of the same project. Events are fire-and-forget and
// never persisted - the stores stay authoritative, reconnecting clients
// refetch state over HTTP.
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/services/status"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the tagged union carried on the wire in both directions.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// wsEnvelope is the inbound shape; payload decoding is deferred until
// the type is known.
type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HelloPayload is the client's introduction after connecting.
type HelloPayload struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	ProjectID string `json:"project_id"`
	FileID    string `json:"file_id,omitempty"`
}

// PresencePayload announces a user joining or leaving a project.
type PresencePayload struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	ProjectID string `json:"project_id"`
}

// SegmentUpdatePayload relays one segment change to project members.
type SegmentUpdatePayload struct {
	SegmentID string `json:"segment_id"`
	FileID    string `json:"file_id"`
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id,omitempty"`
	Target    string `json:"target"`
	Status    string `json:"status"`
	Origin    string `json:"origin,omitempty"`
}

// wsClient is one connection with its identity and write lock.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu        sync.RWMutex
	userID    string
	username  string
	projectID string
	fileID    string
	joined    bool
}

func (c *wsClient) identity() (userID, username, projectID string, joined bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.username, c.projectID, c.joined
}

func (c *wsClient) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WebSocketHandler is the collaboration hub.
type WebSocketHandler struct {
	logger                arbor.ILogger
	eventService          interfaces.EventService
	clients               map[*websocket.Conn]*wsClient
	mu                    sync.RWMutex
	fileProgressThrottler *rate.Limiter // Rate limiter for file_progress events
	serverInstanceID      string        // Unique ID generated on startup - clients use to detect server restart
}

// NewWebSocketHandler creates the hub and subscribes it to the event bus.
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		eventService:     eventService,
		clients:          make(map[*websocket.Conn]*wsClient),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized with server instance ID")

	// Nil throttler = no throttling (disabled)
	if config != nil {
		if intervalStr, ok := config.ThrottleIntervals["file_progress"]; ok {
			if duration, err := time.ParseDuration(intervalStr); err == nil {
				h.fileProgressThrottler = rate.NewLimiter(rate.Every(duration), 1)
				logger.Debug().
					Str("event_type", "file_progress").
					Str("interval", intervalStr).
					Msg("Throttler initialized for file_progress events")
			} else {
				logger.Warn().
					Err(err).
					Str("interval", intervalStr).
					Msg("Failed to parse file_progress throttle interval - throttler disabled")
			}
		}
	}

	if eventService != nil {
		h.subscribeToWorkerEvents()
	}

	return h
}

// HandleWebSocket upgrades the connection and runs its read loop.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[conn] = client
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", clientCount)

	h.sendWelcome(client)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.announceLeave(client)
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}

		var envelope wsEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			h.logger.Warn().Err(err).Msg("Malformed WebSocket message, ignoring")
			continue
		}

		switch envelope.Type {
		case "hello":
			h.handleHello(client, envelope.Payload)
		case "segment_updated":
			h.handleSegmentUpdate(client, envelope.Payload)
		default:
			h.logger.Debug().Str("type", envelope.Type).Msg("Unknown WebSocket message type, ignoring")
		}
	}
}

// sendWelcome sends the server instance id so clients can detect a
// restart and refetch state.
func (h *WebSocketHandler) sendWelcome(client *wsClient) {
	data, err := json.Marshal(WSMessage{
		Type: "welcome",
		Payload: map[string]string{
			"server_instance_id": h.serverInstanceID,
		},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal welcome message")
		return
	}
	if err := client.send(data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send welcome to client")
	}
}

// handleHello records the client's identity and announces it to the
// other members of the project.
func (h *WebSocketHandler) handleHello(client *wsClient, raw json.RawMessage) {
	var hello HelloPayload
	if err := json.Unmarshal(raw, &hello); err != nil {
		h.logger.Warn().Err(err).Msg("Malformed hello payload, ignoring")
		return
	}
	if hello.UserID == "" || hello.ProjectID == "" {
		h.logger.Warn().Msg("Hello payload missing user_id or project_id, ignoring")
		return
	}

	client.mu.Lock()
	client.userID = hello.UserID
	client.username = hello.Username
	client.projectID = hello.ProjectID
	client.fileID = hello.FileID
	client.joined = true
	client.mu.Unlock()

	h.logger.Debug().
		Str("user_id", hello.UserID).
		Str("project_id", hello.ProjectID).
		Msg("WebSocket client joined project")

	h.broadcastToProject(hello.ProjectID, client, WSMessage{
		Type: "user_joined",
		Payload: PresencePayload{
			UserID:    hello.UserID,
			Username:  hello.Username,
			ProjectID: hello.ProjectID,
		},
	})
}

// announceLeave tells remaining project members a user disconnected.
func (h *WebSocketHandler) announceLeave(client *wsClient) {
	userID, username, projectID, joined := client.identity()
	if !joined {
		return
	}
	h.broadcastToProject(projectID, client, WSMessage{
		Type: "user_left",
		Payload: PresencePayload{
			UserID:    userID,
			Username:  username,
			ProjectID: projectID,
		},
	})
}

// handleSegmentUpdate relays a client's segment change to the other
// members of the same project. The sender never receives its own echo.
func (h *WebSocketHandler) handleSegmentUpdate(client *wsClient, raw json.RawMessage) {
	var update SegmentUpdatePayload
	if err := json.Unmarshal(raw, &update); err != nil {
		h.logger.Warn().Err(err).Msg("Malformed segment_updated payload, ignoring")
		return
	}

	userID, _, projectID, joined := client.identity()
	if !joined {
		h.logger.Warn().Msg("segment_updated before hello, ignoring")
		return
	}

	// The connection's identity is authoritative over the payload.
	update.UserID = userID
	if update.ProjectID == "" {
		update.ProjectID = projectID
	}

	h.broadcastToProject(projectID, client, WSMessage{
		Type:    "segment_updated",
		Payload: update,
	})
}

// BroadcastSegmentUpdate sends a segment change to every member of the
// project except the originating user (if any).
func (h *WebSocketHandler) BroadcastSegmentUpdate(update SegmentUpdatePayload) {
	h.broadcastFiltered(WSMessage{Type: "segment_updated", Payload: update}, func(c *wsClient) bool {
		userID, _, projectID, joined := c.identity()
		if !joined || projectID != update.ProjectID {
			return false
		}
		return update.UserID == "" || userID != update.UserID
	})
}

// BroadcastFileProgress sends an aggregated progress view to every
// member of the file's project.
func (h *WebSocketHandler) BroadcastFileProgress(progress status.FileProgress) {
	if h.fileProgressThrottler != nil && !h.fileProgressThrottler.Allow() {
		return
	}
	h.broadcastFiltered(WSMessage{Type: "file_progress", Payload: progress}, func(c *wsClient) bool {
		_, _, projectID, joined := c.identity()
		return joined && projectID == progress.ProjectID
	})
}

// BroadcastJobUpdate sends a job status change to the project's members.
func (h *WebSocketHandler) BroadcastJobUpdate(projectID string, payload map[string]interface{}) {
	h.broadcastFiltered(WSMessage{Type: "job_update", Payload: payload}, func(c *wsClient) bool {
		_, _, clientProject, joined := c.identity()
		return joined && clientProject == projectID
	})
}

// broadcastToProject sends a message to every joined member of the
// project except the excluded connection.
func (h *WebSocketHandler) broadcastToProject(projectID string, exclude *wsClient, msg WSMessage) {
	h.broadcastFiltered(msg, func(c *wsClient) bool {
		if c == exclude {
			return false
		}
		_, _, clientProject, joined := c.identity()
		return joined && clientProject == projectID
	})
}

// broadcastFiltered serializes once and writes to every client the
// filter admits. A failed write affects only that client.
func (h *WebSocketHandler) broadcastFiltered(msg WSMessage, include func(*wsClient) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal broadcast message")
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for _, client := range h.clients {
		if include(client) {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := client.send(data); err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send broadcast to client")
		}
	}
}

// subscribeToWorkerEvents bridges the in-process event bus onto the
// websocket channel.
func (h *WebSocketHandler) subscribeToWorkerEvents() {
	h.eventService.Subscribe(interfaces.EventSegmentUpdated, func(ctx context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(map[string]interface{})
		if !ok {
			h.logger.Warn().Msg("Invalid segment_updated event payload type")
			return nil
		}
		h.BroadcastSegmentUpdate(SegmentUpdatePayload{
			SegmentID: getString(payload, "segment_id"),
			FileID:    getString(payload, "file_id"),
			ProjectID: getString(payload, "project_id"),
			UserID:    getString(payload, "user_id"),
			Target:    getString(payload, "target"),
			Status:    getString(payload, "status"),
			Origin:    getString(payload, "origin"),
		})
		return nil
	})

	h.eventService.Subscribe(interfaces.EventFileProgress, func(ctx context.Context, event interfaces.Event) error {
		progress, ok := event.Payload.(status.FileProgress)
		if !ok {
			h.logger.Warn().Msg("Invalid file_progress event payload type")
			return nil
		}
		h.BroadcastFileProgress(progress)
		return nil
	})

	h.eventService.Subscribe(interfaces.EventJobUpdate, func(ctx context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(map[string]interface{})
		if !ok {
			h.logger.Warn().Msg("Invalid job_update event payload type")
			return nil
		}
		h.BroadcastJobUpdate(getString(payload, "project_id"), payload)
		return nil
	})
}

// ClientCount returns the number of open connections.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// getString safely extracts a string from a map[string]interface{}
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
