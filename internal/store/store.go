// ABOUTME: Store interface and data types for coven-todo persistence
// ABOUTME: Defines the Todo record, its error taxonomy, and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidID is returned when an identifier is not a well-formed todo ID
var ErrInvalidID = errors.New("invalid id")

// Todo represents a single to-do record
type Todo struct {
	ID        string
	Title     string
	Completed bool
	CreatedAt time.Time
}

// TodoUpdate carries the fields to change on an existing todo.
// Nil fields are left untouched.
type TodoUpdate struct {
	Title     *string
	Completed *bool
}

// Store defines the interface for todo persistence
type Store interface {
	// CreateTodo validates the title and persists a new, incomplete todo.
	CreateTodo(ctx context.Context, title string) (*Todo, error)

	// ListTodos returns all todos, newest first.
	ListTodos(ctx context.Context) ([]*Todo, error)

	// GetTodo returns ErrInvalidID for malformed ids and ErrNotFound for unknown ones.
	GetTodo(ctx context.Context, id string) (*Todo, error)

	// UpdateTodo applies the non-nil fields of upd. The title is validated again.
	UpdateTodo(ctx context.Context, id string, upd TodoUpdate) (*Todo, error)

	// ToggleTodo flips the completed flag in a single write.
	ToggleTodo(ctx context.Context, id string) (*Todo, error)

	DeleteTodo(ctx context.Context, id string) error

	// Ping reports whether the underlying database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
