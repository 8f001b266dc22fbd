// Package minio implements blobstore.BlobStore for MinIO and other
// S3-compatible object stores using the native MinIO client.
//
// Prefer this package over blobstore/s3 when talking to self-hosted object
// storage; it avoids the AWS credential chain and signs requests the way
// MinIO expects.
package minio
