// ABOUTME: SQLite implementation of the Store interface
// ABOUTME: Provides todo persistence with automatic schema creation on either sqlite driver

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverModernc is the pure Go driver registered by modernc.org/sqlite
	DriverModernc = "sqlite"

	// DriverCGO is the cgo driver registered by github.com/mattn/go-sqlite3
	DriverCGO = "sqlite3"
)

// timeLayout is fixed width so that lexical order of the stored text equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path using the pure Go driver.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithDriver(DriverModernc, path)
}

// NewSQLiteStoreWithDriver is NewSQLiteStore with an explicit database/sql driver name.
func NewSQLiteStoreWithDriver(driver, path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if driver == "" {
		driver = DriverModernc
	}
	if driver != DriverModernc && driver != DriverCGO {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	if path != ":memory:" {
		// Ensure parent directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn(driver, path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "driver", driver)
	return s, nil
}

// busyTimeoutMillis is how long a connection waits for another writer before SQLITE_BUSY
const busyTimeoutMillis = 5000

// dsn appends the per-connection settings in the syntax each driver understands.
// Pragmas run through db.Exec would only reach one pooled connection.
func dsn(driver, path string) string {
	if driver == DriverCGO {
		return fmt.Sprintf("%s?_busy_timeout=%d&_foreign_keys=1", path, busyTimeoutMillis)
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMillis)
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS todos (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			completed  INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,

			CHECK (length(trim(title)) >= 1 AND length(title) <= 100),
			CHECK (completed IN (0, 1))
		);

		CREATE INDEX IF NOT EXISTS idx_todos_created ON todos(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateTodo validates the title and inserts a new todo.
func (s *SQLiteStore) CreateTodo(ctx context.Context, title string) (*Todo, error) {
	title, err := ValidateTitle(title)
	if err != nil {
		return nil, err
	}

	todo := &Todo{
		ID:        newID(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO todos (id, title, completed, created_at)
		VALUES (?, ?, 0, ?)
	`, todo.ID, todo.Title, todo.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("inserting todo: %w", err)
	}

	return todo, nil
}

// ListTodos returns all todos ordered by creation time, newest first.
func (s *SQLiteStore) ListTodos(ctx context.Context) ([]*Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, completed, created_at
		FROM todos
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	defer rows.Close()

	var todos []*Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating todos: %w", err)
	}

	return todos, nil
}

// GetTodo retrieves a todo by ID.
// Returns ErrInvalidID if the ID is malformed and ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetTodo(ctx context.Context, id string) (*Todo, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, completed, created_at
		FROM todos WHERE id = ?
	`, id)

	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return todo, err
}

// UpdateTodo applies upd to an existing todo with a single conditional UPDATE.
// Nothing is written if the new title is invalid.
func (s *SQLiteStore) UpdateTodo(ctx context.Context, id string, upd TodoUpdate) (*Todo, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	var title any
	if upd.Title != nil {
		valid, err := ValidateTitle(*upd.Title)
		if err != nil {
			// A missing record outranks a bad title
			if _, getErr := s.GetTodo(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, err
		}
		title = valid
	}

	var completed any
	if upd.Completed != nil {
		completed = boolToInt(*upd.Completed)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE todos
		SET title = COALESCE(?, title), completed = COALESCE(?, completed)
		WHERE id = ?
		RETURNING id, title, completed, created_at
	`, title, completed, id)

	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating todo: %w", err)
	}
	return todo, nil
}

// ToggleTodo flips the completed flag with a single UPDATE statement.
func (s *SQLiteStore) ToggleTodo(ctx context.Context, id string) (*Todo, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE todos SET completed = NOT completed
		WHERE id = ?
		RETURNING id, title, completed, created_at
	`, id)

	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return todo, err
}

// DeleteTodo removes a todo.
// Returns ErrNotFound if the todo doesn't exist.
func (s *SQLiteStore) DeleteTodo(ctx context.Context, id string) error {
	id, err := NormalizeID(id)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting todo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*Todo, error) {
	var t Todo
	var completed int64
	var createdAt string

	if err := row.Scan(&t.ID, &t.Title, &completed, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning todo: %w", err)
	}

	t.Completed = completed != 0

	var err error
	t.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
