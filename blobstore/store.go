package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for publishing and fetching immutable
// index artifacts.
type BlobStore interface {
	// Put writes a blob atomically. An existing blob with the same
	// name is replaced.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads a whole blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
