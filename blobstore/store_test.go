package blobstore

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeUnderTest runs the shared conformance checks against any BlobStore.
func storeUnderTest(t *testing.T, store BlobStore) {
	ctx := context.Background()

	t.Run("open missing blob", func(t *testing.T) {
		_, err := store.Open(ctx, "missing/blob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put and open", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "ns/alpha", []byte("hello world")))

		blob, err := store.Open(ctx, "ns/alpha")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(11), blob.Size())

		data, err := ReadAll(ctx, store, "ns/alpha")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world"), data)
	})

	t.Run("ranged reads", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "ns/ranged", []byte("0123456789")))

		blob, err := store.Open(ctx, "ns/ranged")
		require.NoError(t, err)
		defer blob.Close()

		buf := make([]byte, 4)
		n, err := blob.ReadAt(ctx, buf, 3)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("3456"), buf)

		rc, err := blob.ReadRange(ctx, 5, 3)
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, []byte("567"), got)
	})

	t.Run("streaming create", func(t *testing.T) {
		w, err := store.Create(ctx, "ns/streamed")
		require.NoError(t, err)
		_, err = w.Write([]byte("part one, "))
		require.NoError(t, err)
		_, err = w.Write([]byte("part two"))
		require.NoError(t, err)
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())

		data, err := ReadAll(ctx, store, "ns/streamed")
		require.NoError(t, err)
		assert.Equal(t, []byte("part one, part two"), data)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "ns/over", []byte("old")))
		require.NoError(t, store.Put(ctx, "ns/over", []byte("new contents")))

		data, err := ReadAll(ctx, store, "ns/over")
		require.NoError(t, err)
		assert.Equal(t, []byte("new contents"), data)
	})

	t.Run("list by prefix", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "listing/a", []byte("1")))
		require.NoError(t, store.Put(ctx, "listing/b", []byte("2")))
		require.NoError(t, store.Put(ctx, "other/c", []byte("3")))

		names, err := store.List(ctx, "listing/")
		require.NoError(t, err)
		assert.Equal(t, []string{"listing/a", "listing/b"}, names)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "ns/gone", []byte("x")))
		require.NoError(t, store.Delete(ctx, "ns/gone"))

		_, err := store.Open(ctx, "ns/gone")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	storeUnderTest(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ns/blob", []byte("data")))

	matches, err := filepath.Glob(filepath.Join(dir, "ns", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "ns/blob", Join("ns", "blob"))
	assert.Equal(t, "blob", Join("", "blob"))
	assert.Equal(t, "a/b/c", Join("a/b", "c"))
}
