package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store BlobStore) {
	ctx := context.Background()

	t.Run("PutOpen", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "snapshots/a.bin", []byte("hello")))

		blob, err := store.Open(ctx, "snapshots/a.bin")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(5), blob.Size())
		data, err := io.ReadAll(blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "b.bin", []byte("one")))
		require.NoError(t, store.Put(ctx, "b.bin", []byte("two")))

		blob, err := store.Open(ctx, "b.bin")
		require.NoError(t, err)
		defer blob.Close()

		data, err := io.ReadAll(blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), data)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "c.bin", []byte("x")))
		require.NoError(t, store.Delete(ctx, "c.bin"))

		_, err := store.Open(ctx, "c.bin")
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting a missing blob is not an error.
		assert.NoError(t, store.Delete(ctx, "c.bin"))
	})

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := store.Open(ctx, "missing.bin")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	testStore(t, NewLocalStore(t.TempDir()))
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("original")
	require.NoError(t, store.Put(ctx, "a", data))
	data[0] = 'X'

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	defer blob.Close()

	got, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}
