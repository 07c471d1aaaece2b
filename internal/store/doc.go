// Package store provides persistent storage for coven-todo using SQLite.
//
// # Architecture
//
// The Store interface covers the whole lifecycle of a to-do record:
// create, list (newest first), get, update, toggle and delete. Two
// implementations exist:
//
//   - SQLiteStore: database/sql over modernc.org/sqlite ("sqlite", pure Go)
//     or github.com/mattn/go-sqlite3 ("sqlite3", cgo)
//   - MockStore: in-memory, for handler tests
//
// # Data Model
//
//   - Todo: ID (UUID), Title (1-100 characters, trimmed), Completed, CreatedAt
//
// ID and CreatedAt are assigned on creation and never change.
//
// # Validation
//
// Validation is explicit and happens before any write:
//
//	title, err := store.ValidateTitle("  Buy milk  ") // "Buy milk"
//	id, err := store.NormalizeID(raw)                 // canonical lowercase UUID
//
// The todos table also carries CHECK constraints for the same rules.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Timestamps are stored as fixed-width UTC text so ORDER BY created_at is
// chronological. ":memory:" databases are pinned to one connection.
//
// # Error Handling
//
//   - ErrInvalidID: identifier is not a well-formed UUID
//   - ErrNotFound: no record with that identifier
//   - *ValidationError: a field violates its constraints
//
// Identifier errors are reported before existence errors, and both before
// validation errors. All methods accept context.Context for cancellation.
//
// # Testing
//
// Use NewMockStore() for handler tests and NewSQLiteStore on a t.TempDir()
// path (or ":memory:") for integration tests with real SQLite.
package store
