package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for accessing immutable data blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a new blob for streaming writes.
	// The blob becomes visible when the returned WritableBlob is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob.
	Delete(ctx context.Context, name string) error
	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a streaming write handle. Close finalizes the blob.
type WritableBlob interface {
	io.WriteCloser
}

// Mappable is an optional interface for Blobs that support zero-copy access.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// RangeReader is an optional interface for Blobs with efficient range reads.
type RangeReader interface {
	// ReadRange returns a reader over [off, off+n) bytes.
	ReadRange(off, n int64) (io.ReadCloser, error)
}
