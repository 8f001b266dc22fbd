package treestore

import "errors"

var (
	// ErrCorrupt is returned when structural validation of a file fails
	// (bad magic, truncated directory, checksum mismatch).
	ErrCorrupt = errors.New("treestore: corrupt file")

	// ErrUnknownCodec is returned when a branch references a compression
	// codec this build does not know.
	ErrUnknownCodec = errors.New("treestore: unknown compression codec")

	// ErrOutOfRange is returned when a branch read addresses an entry past
	// the tree's entry count.
	ErrOutOfRange = errors.New("treestore: entry out of range")

	// ErrWriterClosed is returned when filling a writer after Close.
	ErrWriterClosed = errors.New("treestore: writer is closed")
)
