package handlers

import (
	"net/http"
	"time"

	"github.com/chepyr/task-manager/shared"
)

const apiVersion = "1.0.0"

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"` // seconds
}

type apiInfo struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

var endpoints = map[string]string{
	"GET /tasks":        "List all tasks",
	"GET /tasks/stats":  "Task statistics by status",
	"GET /tasks/:id":    "Get a task",
	"POST /tasks":       "Create a task",
	"PUT /tasks/:id":    "Update a task",
	"DELETE /tasks/:id": "Delete a task",
	"GET /health":       "Health check",
	"GET /ws":           "Live task events (WebSocket)",
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	var uptime float64
	if !h.StartedAt.IsZero() {
		uptime = time.Since(h.StartedAt).Seconds()
	}
	shared.SendJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC(),
		Uptime:    uptime,
	})
}

// HandleRoot serves API metadata on "/" and a JSON 404 for unknown paths.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	shared.SendJSON(w, http.StatusOK, apiInfo{
		Message:   "Task Manager API",
		Version:   apiVersion,
		Endpoints: endpoints,
	})
}
