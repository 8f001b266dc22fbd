// Package s3 implements blobstore.BlobStore for Amazon S3.
//
// Reads use ranged GETs so column pages can be fetched without downloading
// whole dataset files; writes stream through the S3 upload manager. Wrap the
// store with blobstore.NewCachingStore to avoid repeated range requests for
// hot pages.
package s3
