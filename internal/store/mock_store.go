// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
// It applies the same validation and error rules as SQLiteStore.
type MockStore struct {
	mu    sync.RWMutex
	todos map[string]*Todo // keyed by todo ID
	seq   map[string]int   // insertion order, breaks CreatedAt ties
	next  int
	now   func() time.Time

	// PingErr, when set, is returned by Ping
	PingErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		todos: make(map[string]*Todo),
		seq:   make(map[string]int),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateTodo stores a new todo.
func (m *MockStore) CreateTodo(ctx context.Context, title string) (*Todo, error) {
	title, err := ValidateTitle(title)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := &Todo{
		ID:        newID(),
		Title:     title,
		CreatedAt: m.now(),
	}
	m.todos[t.ID] = t
	m.next++
	m.seq[t.ID] = m.next

	result := *t
	return &result, nil
}

// ListTodos returns copies of all todos, newest first.
func (m *MockStore) ListTodos(ctx context.Context) ([]*Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	todos := make([]*Todo, 0, len(m.todos))
	for _, t := range m.todos {
		c := *t
		todos = append(todos, &c)
	}

	sort.Slice(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.After(todos[j].CreatedAt)
		}
		return m.seq[todos[i].ID] > m.seq[todos[j].ID]
	})

	return todos, nil
}

// GetTodo retrieves a todo by ID.
func (m *MockStore) GetTodo(ctx context.Context, id string) (*Todo, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.todos[id]
	if !ok {
		return nil, ErrNotFound
	}

	result := *t
	return &result, nil
}

// UpdateTodo applies the non-nil fields of upd.
func (m *MockStore) UpdateTodo(ctx context.Context, id string, upd TodoUpdate) (*Todo, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.todos[id]
	if !ok {
		return nil, ErrNotFound
	}

	updated := *t
	if upd.Title != nil {
		title, err := ValidateTitle(*upd.Title)
		if err != nil {
			return nil, err
		}
		updated.Title = title
	}
	if upd.Completed != nil {
		updated.Completed = *upd.Completed
	}
	m.todos[id] = &updated

	result := updated
	return &result, nil
}

// ToggleTodo flips the completed flag.
func (m *MockStore) ToggleTodo(ctx context.Context, id string) (*Todo, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.todos[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Completed = !t.Completed

	result := *t
	return &result, nil
}

// DeleteTodo removes a todo.
func (m *MockStore) DeleteTodo(ctx context.Context, id string) error {
	id, err := NormalizeID(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.todos[id]; !ok {
		return ErrNotFound
	}
	delete(m.todos, id)
	delete(m.seq, id)
	return nil
}

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store
var _ Store = (*MockStore)(nil)
