// ABOUTME: Server-rendered to-do list UI for coven-todo
// ABOUTME: Validates form input, calls the store once per route, renders or redirects

package webui

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-todo/internal/dedupe"
	"github.com/2389/coven-todo/internal/store"
)

const (
	// DefaultSubmissionTTL is how long a create form token stays claimed
	DefaultSubmissionTTL = 10 * time.Minute

	// DefaultMaxSubmissions bounds the number of remembered tokens
	DefaultMaxSubmissions = 10000
)

// Config holds UI configuration
type Config struct {
	// Logger defaults to slog.Default() tagged with component=webui
	Logger *slog.Logger

	SubmissionTTL  time.Duration
	MaxSubmissions int
}

// UI handles the to-do routes
type UI struct {
	store       store.Store
	pages       pages
	submissions *dedupe.Cache
	logger      *slog.Logger
}

// New creates the UI around an explicitly constructed store.
func New(s store.Store, cfg Config) (*UI, error) {
	if s == nil {
		return nil, errors.New("webui: store is required")
	}

	p, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.SubmissionTTL
	if ttl <= 0 {
		ttl = DefaultSubmissionTTL
	}
	maxSubmissions := cfg.MaxSubmissions
	if maxSubmissions <= 0 {
		maxSubmissions = DefaultMaxSubmissions
	}

	return &UI{
		store:       s,
		pages:       p,
		submissions: dedupe.New(ttl, maxSubmissions),
		logger:      logger.With("component", "webui"),
	}, nil
}

// Close releases UI resources. The store is owned by the caller.
func (u *UI) Close() {
	if u.submissions != nil {
		u.submissions.Close()
	}
}

// RegisterRoutes registers the to-do routes and the catch-all 404 on mux.
func (u *UI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", u.handleList)
	mux.HandleFunc("POST /todos", u.handleCreate)
	mux.HandleFunc("PUT /todos/{id}/toggle", u.handleToggle)
	mux.HandleFunc("GET /todos/{id}/edit", u.handleEdit)
	mux.HandleFunc("PUT /todos/{id}", u.handleUpdate)
	mux.HandleFunc("DELETE /todos/{id}", u.handleDelete)

	// Anything else, including known paths with an unsupported method
	mux.HandleFunc("/", u.handleNotFound)

	u.logger.Debug("todo routes registered")
}

// Handler returns the UI routes on their own mux, wrapped in the middleware chain.
func (u *UI) Handler() http.Handler {
	mux := http.NewServeMux()
	u.RegisterRoutes(mux)
	return Wrap(mux, u.logger)
}

func newSubmissionToken() string {
	return uuid.New().String()
}

func redirectToList(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleList renders every todo, newest first
func (u *UI) handleList(w http.ResponseWriter, r *http.Request) {
	todos, err := u.store.ListTodos(r.Context())
	if err != nil {
		u.fail(w, r, err)
		return
	}

	u.renderIndex(w, r, http.StatusOK, todos, "", "")
}

// handleCreate validates the title, persists a todo and redirects to the list.
// Invalid titles re-render the list with a 400 and the error inline.
func (u *UI) handleCreate(w http.ResponseWriter, r *http.Request) {
	raw := r.PostFormValue("title")

	if _, err := store.ValidateTitle(raw); err != nil {
		ve, ok := store.AsValidationError(err)
		if !ok {
			u.fail(w, r, err)
			return
		}
		u.renderCreateError(w, r, ve.Message, raw)
		return
	}

	// A token that was already claimed means the form was submitted twice
	token := r.PostFormValue("submission")
	if token != "" && !u.submissions.Claim(token) {
		u.logger.Info("duplicate create submission ignored", "request_id", RequestIDFromContext(r.Context()))
		redirectToList(w, r)
		return
	}

	todo, err := u.store.CreateTodo(r.Context(), raw)
	if err != nil {
		if token != "" {
			u.submissions.Release(token)
		}
		if ve, ok := store.AsValidationError(err); ok {
			u.renderCreateError(w, r, ve.Message, raw)
			return
		}
		u.fail(w, r, err)
		return
	}

	u.logger.Info("todo created", "todo_id", todo.ID, "request_id", RequestIDFromContext(r.Context()))
	redirectToList(w, r)
}

// renderCreateError re-renders the list page with a 400 and an inline error
func (u *UI) renderCreateError(w http.ResponseWriter, r *http.Request, msg, draft string) {
	todos, err := u.store.ListTodos(r.Context())
	if err != nil {
		u.fail(w, r, err)
		return
	}
	u.renderIndex(w, r, http.StatusBadRequest, todos, msg, draft)
}

// handleToggle flips the completed flag and redirects to the list
func (u *UI) handleToggle(w http.ResponseWriter, r *http.Request) {
	todo, err := u.store.ToggleTodo(r.Context(), r.PathValue("id"))
	if err != nil {
		u.fail(w, r, err)
		return
	}

	u.logger.Info("todo toggled", "todo_id", todo.ID, "completed", todo.Completed, "request_id", RequestIDFromContext(r.Context()))
	redirectToList(w, r)
}

// handleEdit renders the edit form
func (u *UI) handleEdit(w http.ResponseWriter, r *http.Request) {
	todo, err := u.store.GetTodo(r.Context(), r.PathValue("id"))
	if err != nil {
		u.fail(w, r, err)
		return
	}

	u.renderEdit(w, r, http.StatusOK, todo, "")
}

// handleUpdate replaces the title. An invalid title re-renders the edit
// form with a 400, built from a fresh read of the stored record.
func (u *UI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	title := r.PostFormValue("title")

	todo, err := u.store.UpdateTodo(r.Context(), id, store.TodoUpdate{Title: &title})
	if err != nil {
		ve, ok := store.AsValidationError(err)
		if !ok {
			u.fail(w, r, err)
			return
		}

		current, getErr := u.store.GetTodo(r.Context(), id)
		if getErr != nil {
			u.fail(w, r, getErr)
			return
		}
		u.renderEdit(w, r, http.StatusBadRequest, current, ve.Message)
		return
	}

	u.logger.Info("todo updated", "todo_id", todo.ID, "request_id", RequestIDFromContext(r.Context()))
	redirectToList(w, r)
}

// handleDelete removes a todo and redirects to the list
func (u *UI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := u.store.DeleteTodo(r.Context(), id); err != nil {
		u.fail(w, r, err)
		return
	}

	u.logger.Info("todo deleted", "todo_id", id, "request_id", RequestIDFromContext(r.Context()))
	redirectToList(w, r)
}
