package generator

import (
	"fmt"

	"github.com/abhisek/findata/internal/source"
)

// ErrInvalidInput is returned before any backend call for empty chunk
// lists, a non-positive item count or a malformed prompt template. It is
// the same sentinel the source adapters use for bad filing requests.
var ErrInvalidInput = source.ErrInvalidInput

// ValidationError reports why a generated item was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item %s: %s", e.Field, e.Reason)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
