package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Details   []string  `json:"details,omitempty"`
}

func SendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encode response", slog.Any("err", err))
	}
}

// SendError writes the error envelope. label is the short error name,
// message the human readable text.
func SendError(w http.ResponseWriter, status int, label, message string, details ...string) {
	SendJSON(w, status, ErrorResponse{
		Error:     label,
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Details:   details,
	})
}

func SendInternalError(w http.ResponseWriter) {
	SendError(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong")
}
