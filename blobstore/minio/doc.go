// Package minio implements blobstore.BlobStore on MinIO and other
// S3-compatible object storage.
package minio
