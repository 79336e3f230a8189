package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chepyr/task-manager/shared"
	"github.com/chepyr/task-manager/shared/models"
	"github.com/gorilla/websocket"
)

const (
	EventTaskCreated = "task_created"
	EventTaskUpdated = "task_updated"
	EventTaskDeleted = "task_deleted"

	wsWriteTimeout = 5 * time.Second
	wsReadLimit    = 512
)

// TaskEvent is pushed to every websocket client after a task mutation.
type TaskEvent struct {
	Event string       `json:"event"`
	ID    string       `json:"id"`
	Task  *models.Task `json:"task,omitempty"`
}

type WSHub struct {
	connections map[*websocket.Conn]bool
	mutex       sync.Mutex
	closed      bool
	logger      *slog.Logger
}

func NewWSHub(logger *slog.Logger) *WSHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHub{connections: make(map[*websocket.Conn]bool), logger: logger}
}

// Broadcast sends event to all connections. Connections that fail to accept
// the write are dropped.
func (h *WSHub) Broadcast(event TaskEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal task event", slog.Any("err", err))
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn := range h.connections {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warn("drop websocket client", slog.Any("err", err))
			delete(h.connections, conn)
			conn.Close()
		}
	}
}

func (h *WSHub) register(conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return false
	}
	h.connections[conn] = true
	return true
}

func (h *WSHub) unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	delete(h.connections, conn)
	h.mutex.Unlock()
}

// Count returns the number of live connections.
func (h *WSHub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.connections)
}

// Close sends a going-away frame to every client and closes the connections.
// The hub accepts no new connections afterwards.
func (h *WSHub) Close(ctx context.Context) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.closed = true
	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range h.connections {
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		conn.Close()
		delete(h.connections, conn)
	}
	return nil
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || originAllowed(h.AllowedOrigins, origin)
}

// HandleWebSocket upgrades GET /ws and keeps the connection registered in the
// hub until the client goes away.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.WSHub == nil {
		notFound(w, r)
		return
	}
	if h.RateLimiter != nil && !h.RateLimiter.Allow(clientIP(r)) {
		shared.SendError(w, http.StatusTooManyRequests, "Too Many Requests",
			"Too many WebSocket connection attempts")
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	// on failure the upgrader has already replied with an HTTP error
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger().Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	if !h.WSHub.register(conn) {
		conn.Close()
		return
	}
	defer func() {
		h.WSHub.unregister(conn)
		conn.Close()
	}()

	conn.SetReadLimit(wsReadLimit)
	// incoming messages are ignored; reading only detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger().Debug("websocket closed", slog.Any("err", err))
			}
			return
		}
	}
}
