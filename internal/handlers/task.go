package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/chepyr/task-manager/internal/tasks"
	"github.com/chepyr/task-manager/shared"
)

const maxBodyBytes = 1 << 20 // 1MB

type deleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

/*
handles routes:
- GET /tasks - list tasks
- POST /tasks - create a new task
*/
func (h *Handler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTasks(w, r)
	case http.MethodPost:
		h.createTask(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

/*
routes:
- GET /tasks/stats
- GET /tasks/{id}
- PUT /tasks/{id}
- DELETE /tasks/{id}
*/
func (h *Handler) HandleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if taskID == "" {
		h.HandleTasks(w, r)
		return
	}
	if strings.Contains(taskID, "/") {
		notFound(w, r)
		return
	}
	if taskID == "stats" && r.Method == http.MethodGet {
		h.getStats(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getTaskByID(w, r, taskID)
	case http.MethodPut:
		h.updateTaskByID(w, r, taskID)
	case http.MethodDelete:
		h.deleteTaskByID(w, r, taskID)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	all := h.Tasks.GetAllTasks()
	h.logger().Debug("listed tasks", slog.Int("count", len(all)))
	shared.SendJSON(w, http.StatusOK, all)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	shared.SendJSON(w, http.StatusOK, h.Tasks.GetStats())
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}

	task, err := h.Tasks.CreateTask(payload)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.logger().Info("task created", slog.String("id", task.ID))
	h.broadcast(TaskEvent{Event: EventTaskCreated, ID: task.ID, Task: &task})
	w.Header().Set("Location", "/tasks/"+task.ID)
	shared.SendJSON(w, http.StatusCreated, task)
}

func (h *Handler) getTaskByID(w http.ResponseWriter, r *http.Request, taskID string) {
	task, found := h.Tasks.GetTask(taskID)
	if !found {
		h.taskNotFound(w, taskID)
		return
	}
	shared.SendJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTaskByID(w http.ResponseWriter, r *http.Request, taskID string) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}

	task, found, err := h.Tasks.UpdateTask(taskID, payload)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	if !found {
		h.taskNotFound(w, taskID)
		return
	}

	h.logger().Info("task updated", slog.String("id", task.ID))
	h.broadcast(TaskEvent{Event: EventTaskUpdated, ID: task.ID, Task: &task})
	shared.SendJSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTaskByID(w http.ResponseWriter, r *http.Request, taskID string) {
	if !h.Tasks.DeleteTask(taskID) {
		h.taskNotFound(w, taskID)
		return
	}

	h.logger().Info("task deleted", slog.String("id", taskID))
	h.broadcast(TaskEvent{Event: EventTaskDeleted, ID: taskID})
	shared.SendJSON(w, http.StatusOK, deleteResponse{Message: "Task deleted successfully", ID: taskID})
}

func (h *Handler) taskNotFound(w http.ResponseWriter, taskID string) {
	h.logger().Warn("task not found", slog.String("id", taskID))
	shared.SendError(w, http.StatusNotFound, "Task not found",
		fmt.Sprintf("Task with ID %s does not exist", taskID))
}

// sendServiceError maps a service error onto the response. Anything that is
// not a validation error is logged and hidden behind a generic 500.
func (h *Handler) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *tasks.ValidationError
	if errors.As(err, &vErr) {
		shared.SendError(w, http.StatusBadRequest, "Validation Error", vErr.Error(), vErr.Details...)
		return
	}
	h.logger().Error("task operation failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("err", err))
	shared.SendInternalError(w)
}

// readPayload decodes the JSON object body. An empty body is an empty
// payload. On failure the error response is already written.
func readPayload(w http.ResponseWriter, r *http.Request) (tasks.Payload, bool) {
	if r.Header.Get("Content-Type") != "" && !isJSONContentType(r) {
		shared.SendError(w, http.StatusUnsupportedMediaType, "Unsupported Media Type",
			"Content-Type must be application/json")
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var payload tasks.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return tasks.Payload{}, true
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.SendError(w, http.StatusRequestEntityTooLarge, "Payload Too Large",
				fmt.Sprintf("Request body must not exceed %d bytes", maxErr.Limit))
			return nil, false
		}
		shared.SendError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return nil, false
	}
	if payload == nil {
		shared.SendError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return nil, false
	}
	return payload, true
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	shared.SendError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "Method not allowed")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	shared.SendError(w, http.StatusNotFound, "Not Found", "Not Found - "+r.URL.RequestURI())
}
