package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"eodd/internal/lifecycle"
	"eodd/internal/service"
	"eodd/internal/taskqueue"
	"eodd/pkg/types"
)

// statusFor maps worker errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case lifecycle.IsInvalidTransition(err):
		return http.StatusConflict
	case taskqueue.IsQueueFull(err):
		return http.StatusTooManyRequests
	case errors.Is(err, taskqueue.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmptyUsername), errors.Is(err, service.ErrNilObserver):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrClosed), errors.Is(err, taskqueue.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and writes the JSON error payload.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		countRejected("queue_full")
	}
	writeJSONError(w, status, err.Error())
	return status
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf(LevelError, "encode response: %v", err)
	}
}
