// Package source turns document references into cleaned text blocks: PDFs
// from HTTP, S3 or disk, and 10-K/10-Q items from SEC EDGAR.
package source

import (
	"errors"
	"fmt"
)

// ErrInvalidInput reports a bad request detected before any network call:
// a missing ticker or year, a quarter outside 1-4, an unknown item name.
var ErrInvalidInput = errors.New("invalid input")

// ErrSourceUnavailable indicates a document could not be fetched or read.
type ErrSourceUnavailable struct {
	Ref string
	Err error
}

func (e *ErrSourceUnavailable) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Ref, e.Err)
}

func (e *ErrSourceUnavailable) Unwrap() error { return e.Err }

func unavailable(ref string, err error) error {
	return &ErrSourceUnavailable{Ref: ref, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
