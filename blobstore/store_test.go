package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]BlobStore {
	t.Helper()

	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	return map[string]BlobStore{
		"local":  local,
		"memory": NewMemoryStore(),
	}
}

func TestBlobStore_PutGet(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "books/alpha.ann", []byte("payload")))

			got, err := store.Get(ctx, "books/alpha.ann")
			require.NoError(t, err)
			assert.Equal(t, []byte("payload"), got)

			// Overwrites replace.
			require.NoError(t, store.Put(ctx, "books/alpha.ann", []byte("v2")))
			got, err = store.Get(ctx, "books/alpha.ann")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)
		})
	}
}

func TestBlobStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotFound), "want ErrNotFound, got %v", err)
		})
	}
}

func TestBlobStore_Delete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "a", []byte("x")))
			require.NoError(t, store.Delete(ctx, "a"))

			_, err := store.Get(ctx, "a")
			assert.True(t, errors.Is(err, ErrNotFound))

			// Idempotent.
			require.NoError(t, store.Delete(ctx, "a"))
		})
	}
}

func TestBlobStore_List(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "idx/b.ann", []byte("1")))
			require.NoError(t, store.Put(ctx, "idx/a.ann", []byte("2")))
			require.NoError(t, store.Put(ctx, "routing/index.json.gz", []byte("3")))

			names, err := store.List(ctx, "idx/")
			require.NoError(t, err)
			assert.Equal(t, []string{"idx/a.ann", "idx/b.ann"}, names)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestBlobStore_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Put(ctx, "a", []byte("x")), context.Canceled)
			_, err := store.Get(ctx, "a")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("original")
	require.NoError(t, store.Put(ctx, "a", data))
	data[0] = 'X'

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}
