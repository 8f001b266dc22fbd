// Package blobstore provides storage abstraction for framio's immutable
// dataset files.
//
// BlobStore is the interface for reading and writing data blobs (segment
// files). Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap support
//   - MemoryStore: In-memory store for tests and in-memory datasets
//   - CachingStore: Block-level read cache wrapping another store
//   - s3.Store: Amazon S3 with range reads and managed uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends. For
// cloud backends, implement RangeReader on the returned Blob for efficient
// partial reads.
package blobstore
