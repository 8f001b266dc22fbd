package framio

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by all operations after Close.
	ErrClosed = errors.New("framio: reader is closed")

	// ErrNoMetadata is returned when a dataset file lacks the metadata tree.
	ErrNoMetadata = errors.New("framio: dataset file has no metadata tree")
)

// CategoryInitError indicates that a category's metadata record could not be
// decoded. The error is sticky: every read of the category reports it, while
// other categories stay readable.
//
// The underlying error can be accessed via errors.Unwrap.
type CategoryInitError struct {
	Category string
	cause    error
}

func (e *CategoryInitError) Error() string {
	return fmt.Sprintf("framio: initialize category %q: %v", e.Category, e.cause)
}

func (e *CategoryInitError) Unwrap() error { return e.cause }

// ReadError indicates a failed frame read. The category cursor is left
// untouched, so a sequential read loop can retry or bail out cleanly.
//
// The underlying error can be accessed via errors.Unwrap.
type ReadError struct {
	Category string
	Entry    uint64
	cause    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("framio: read entry %d of category %q: %v", e.Entry, e.Category, e.cause)
}

func (e *ReadError) Unwrap() error { return e.cause }
