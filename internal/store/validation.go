// ABOUTME: Explicit validation for todo fields and identifiers
// ABOUTME: Runs before any write so the database only sees well-formed records

package store

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// TitleMinLength is the minimum title length in characters after trimming
	TitleMinLength = 1

	// TitleMaxLength is the maximum title length in characters after trimming
	TitleMaxLength = 100
)

// ValidationError reports a field that violates its constraints.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AsValidationError returns the *ValidationError in err's chain, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ValidateTitle trims surrounding whitespace and checks the length bounds.
// Titles must be valid UTF-8 without control characters once trimmed.
// The trimmed title is returned on success.
func ValidateTitle(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", &ValidationError{Field: "title", Message: "title must be valid UTF-8 text"}
	}
	title := strings.TrimSpace(raw)
	if strings.IndexFunc(title, unicode.IsControl) >= 0 {
		return "", &ValidationError{Field: "title", Message: "title must not contain control characters"}
	}
	n := utf8.RuneCountInString(title)
	if n < TitleMinLength {
		return "", &ValidationError{Field: "title", Message: "title is required"}
	}
	if n > TitleMaxLength {
		return "", &ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", TitleMaxLength),
		}
	}
	return title, nil
}

// NormalizeID returns the canonical lowercase form of a todo ID.
// Only the 36 character hyphenated UUID form is accepted.
func NormalizeID(id string) (string, error) {
	if len(id) != 36 {
		return "", ErrInvalidID
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return u.String(), nil
}

// newID generates a fresh todo ID
func newID() string {
	return uuid.New().String()
}
