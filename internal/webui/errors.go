// ABOUTME: Maps store errors onto HTTP status codes and user-visible text
// ABOUTME: Single place where the error taxonomy meets the HTTP surface

package webui

import (
	"errors"
	"net/http"

	"github.com/2389/coven-todo/internal/store"
)

// User-visible error texts
const (
	msgInvalidID    = "invalid ID format"
	msgTodoNotFound = "todo not found"
	msgPageNotFound = "page not found"
	msgInternal     = "internal server error"
)

// classifyError returns the status code and message for err.
// Wrapped errors keep their class.
func classifyError(err error) (int, string) {
	if ve, ok := store.AsValidationError(err); ok {
		return http.StatusBadRequest, ve.Message
	}
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest, msgInvalidID
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, msgTodoNotFound
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// fail logs err and writes the matching plain text response.
func (u *UI) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classifyError(err)

	attrs := []any{
		"error", err,
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestIDFromContext(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		u.logger.Error("request failed", attrs...)
	} else {
		u.logger.Debug("request rejected", attrs...)
	}

	http.Error(w, msg, status)
}

// handleNotFound answers every route that matched nothing else
func (u *UI) handleNotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, msgPageNotFound, http.StatusNotFound)
}
