// Package blobstore provides storage backends for publishing index
// artifacts. Artifacts are immutable once written, so the interface is
// whole-blob: put, get, delete, list.
//
// Backends:
//   - LocalStore: directory on the local file system
//   - MemoryStore: in-memory, for tests
//   - minio.Store: MinIO / S3-compatible object storage
package blobstore
