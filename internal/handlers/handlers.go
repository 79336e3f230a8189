package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/chepyr/task-manager/internal/tasks"
	"github.com/chepyr/task-manager/shared/models"
)

// TaskService is the business layer the HTTP handlers delegate to.
type TaskService interface {
	GetAllTasks() []models.Task
	GetTask(id string) (models.Task, bool)
	CreateTask(p tasks.Payload) (models.Task, error)
	UpdateTask(id string, p tasks.Payload) (models.Task, bool, error)
	DeleteTask(id string) bool
	GetStats() models.Stats
}

var _ TaskService = (*tasks.Service)(nil)

// Handler serves the tasks API. Logger, RateLimiter and WSHub are optional.
type Handler struct {
	Tasks          TaskService
	Logger         *slog.Logger
	RateLimiter    *RateLimiter
	WSHub          *WSHub
	AllowedOrigins []string
	StartedAt      time.Time
}

/*
Routes returns the API router:
- /tasks, /tasks/{id}, /tasks/stats
- /health
- /ws
- / (metadata, JSON 404 for everything else)
*/
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks", h.HandleTasks)
	mux.HandleFunc("/tasks/", h.HandleTaskByID)
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.HandleFunc("/", h.HandleRoot)

	return h.RequestLogger(h.Recoverer(h.CORS(mux)))
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handler) broadcast(event TaskEvent) {
	if h.WSHub != nil {
		h.WSHub.Broadcast(event)
	}
}
