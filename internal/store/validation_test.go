package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr string
	}{
		{"trims", "  Buy milk  ", "Buy milk", ""},
		{"single char", "x", "x", ""},
		{"empty", "", "", "title is required"},
		{"whitespace", " \t\n ", "", "title is required"},
		{"exactly 100", strings.Repeat("a", 100), strings.Repeat("a", 100), ""},
		{"101", strings.Repeat("a", 101), "", "title must be at most 100 characters"},
		{"100 after trim", "  " + strings.Repeat("a", 100) + "  ", strings.Repeat("a", 100), ""},
		{"multibyte counts characters", strings.Repeat("日", 100), strings.Repeat("日", 100), ""},
		{"nul byte", "\x00", "", "title must not contain control characters"},
		{"nul inside text", "buy\x00milk", "", "title must not contain control characters"},
		{"interior tab", "buy\tmilk", "", "title must not contain control characters"},
		{"escape sequence", "\x1b[31mred", "", "title must not contain control characters"},
		{"invalid utf-8", "\xff\xfe", "", "title must be valid UTF-8 text"},
		{"truncated utf-8", "caf\xc3", "", "title must be valid UTF-8 text"},
		{"surrounding newlines trimmed", "\n  Buy milk\r\n", "Buy milk", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTitle(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())

				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "title", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeID(t *testing.T) {
	id, err := NormalizeID("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	require.NoError(t, err)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", id)

	for _, bad := range []string{
		"",
		"123",
		"6f9619ff8b86d011b42d00c04fc964ff",
		"{6f9619ff-8b86-d011-b42d-00c04fc964ff}",
		"urn:uuid:6f9619ff-8b86-d011-b42d-00c04fc964ff",
		"zf9619ff-8b86-d011-b42d-00c04fc964ff",
	} {
		_, err := NormalizeID(bad)
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", bad)
	}
}

func TestAsValidationError_Wrapped(t *testing.T) {
	_, err := ValidateTitle("")
	wrapped := fmt.Errorf("creating todo: %w", err)

	ve, ok := AsValidationError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "title is required", ve.Message)

	_, ok = AsValidationError(errors.New("boom"))
	assert.False(t, ok)
	_, ok = AsValidationError(ErrNotFound)
	assert.False(t, ok)
	_, ok = AsValidationError(nil)
	assert.False(t, ok)
}
