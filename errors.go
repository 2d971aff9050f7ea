package shelfann

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPackages is returned when a batch run finds no chunk
	// packages in the source directory.
	ErrNoPackages = errors.New("no packages found")
)

// SkipError reports a document that produced no output. It is recorded
// per document during batch runs and never aborts the batch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type SkipError struct {
	Source string
	Reason string
	cause  error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped %s: %s", e.Source, e.Reason)
}

func (e *SkipError) Unwrap() error { return e.cause }
