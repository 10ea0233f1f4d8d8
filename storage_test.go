package scalardex

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/hupe1980/scalardex/blobstore"
	"github.com/hupe1980/scalardex/codec"
	"github.com/hupe1980/scalardex/index"
	"github.com/hupe1980/scalardex/internal/cache"
	"github.com/hupe1980/scalardex/manifest"
)

// countingStore wraps a BlobStore and counts Put calls per blob name.
type countingStore struct {
	blobstore.BlobStore

	mu   sync.Mutex
	puts map[string]int
}

func newCountingStore(inner blobstore.BlobStore) *countingStore {
	return &countingStore{BlobStore: inner, puts: make(map[string]int)}
}

func (c *countingStore) Put(ctx context.Context, name string, data []byte) error {
	c.mu.Lock()
	c.puts[name]++
	c.mu.Unlock()
	return c.BlobStore.Put(ctx, name, data)
}

func (c *countingStore) putCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts[name]
}

func TestUploadLoadFromStore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, compression := range []codec.Type{codec.None, codec.LZ4, codec.Zstd} {
		t.Run(compression.String(), func(t *testing.T) {
			store := blobstore.NewMemoryStore()

			column := make([]int64, 500)
			for i := range column {
				column[i] = int64(i % 10)
			}

			src := New[int64](WithCompression(compression))
			require.NoError(t, src.Build(column))

			m, err := src.Upload(ctx, store, "indexes/users")
			require.NoError(t, err)
			assert.Equal(t, src.Kind().String(), m.Kind)
			assert.Equal(t, compression.String(), m.Codec)
			assert.Equal(t, int64(500), m.Rows)

			dst := New[int64]()
			require.NoError(t, dst.LoadFromStore(ctx, store, "indexes/users"))
			assert.Equal(t, src.Kind(), dst.Kind())

			want, err := src.In([]int64{3, 7})
			require.NoError(t, err)
			got, err := dst.In([]int64{3, 7})
			require.NoError(t, err)
			assert.Equal(t, want.Slice(), got.Slice())
		})
	}
}

func TestUploadLoadFromStore_LocalStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	src := New[string](WithCardinalityLimit(2), WithCompression(codec.Zstd))
	require.NoError(t, src.Build([]string{"x", "yy", "zzz", "x", "w"}))
	require.Equal(t, index.KindTrie, src.Kind())

	_, err := src.Upload(ctx, store, "indexes/names")
	require.NoError(t, err)

	dst := New[string]()
	require.NoError(t, dst.LoadFromStore(ctx, store, "indexes/names"))

	v, err := dst.ReverseLookup(2)
	require.NoError(t, err)
	assert.Equal(t, "zzz", v)
}

func TestLoadFromStore_ThroughCachingStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewCachingStore(blobstore.NewMemoryStore(), cache.NewLRU(1<<20), 0)

	src := New[int64](WithCompression(codec.LZ4))
	require.NoError(t, src.Build([]int64{9, 8, 7, 9, 8}))
	_, err := src.Upload(ctx, store, "indexes/cached")
	require.NoError(t, err)

	// Load twice through the same cache; both must observe identical state.
	for i := 0; i < 2; i++ {
		dst := New[int64]()
		require.NoError(t, dst.LoadFromStore(ctx, store, "indexes/cached"))

		want, err := src.In([]int64{8})
		require.NoError(t, err)
		got, err := dst.In([]int64{8})
		require.NoError(t, err)
		assert.Equal(t, want.Slice(), got.Slice())
	}
}

func TestUpload_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(blobstore.NewMemoryStore())

	h := New[int64]()
	require.NoError(t, h.Build([]int64{1, 2, 3, 1, 2, 3}))

	m1, err := h.Upload(ctx, store, "ns")
	require.NoError(t, err)
	firstPuts := make(map[string]int)
	for _, info := range m1.Blobs {
		firstPuts[info.Name] = store.putCount(blobstore.Join("ns", info.Name))
		assert.Equal(t, 1, firstPuts[info.Name], "blob %q", info.Name)
	}

	// Second upload of identical state rewrites only the manifest.
	m2, err := h.Upload(ctx, store, "ns")
	require.NoError(t, err)
	assert.Equal(t, m1.Blobs, m2.Blobs)
	for _, info := range m2.Blobs {
		assert.Equal(t, 1, store.putCount(blobstore.Join("ns", info.Name)), "blob %q", info.Name)
	}
	assert.Equal(t, 2, store.putCount(blobstore.Join("ns", manifest.Name)))
}

func TestUpload_RateLimited(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	h := New[int64]()
	require.NoError(t, h.Build([]int64{1, 2, 3}))

	// Generous limit: the point is the limited path completing, not timing.
	limiter := rate.NewLimiter(rate.Limit(1<<20), 1<<16)
	_, err := h.Upload(ctx, store, "ns", WithRateLimit(limiter), WithUploadConcurrency(2))
	require.NoError(t, err)

	dst := New[int64]()
	require.NoError(t, dst.LoadFromStore(ctx, store, "ns"))
}

func TestUpload_RateLimitedZeroBurst(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	h := New[int64]()
	require.NoError(t, h.Build([]int64{1, 2, 3}))

	// A zero-burst limiter admits nothing; treat it as unlimited instead
	// of spinning on WaitN forever.
	limiter := rate.NewLimiter(rate.Inf, 0)
	_, err := h.Upload(ctx, store, "ns", WithRateLimit(limiter))
	require.NoError(t, err)

	dst := New[int64]()
	require.NoError(t, dst.LoadFromStore(ctx, store, "ns"))
}

func TestUpload_NotReady(t *testing.T) {
	h := New[int64]()
	_, err := h.Upload(context.Background(), blobstore.NewMemoryStore(), "ns")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestLoadFromStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty namespace", func(t *testing.T) {
		h := New[int64]()
		err := h.LoadFromStore(ctx, blobstore.NewMemoryStore(), "nothing/here")
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("truncated descriptor blob", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		require.NoError(t, store.Put(ctx, blobstore.Join("ns", index.DescriptorKey), []byte("short")))

		h := New[int64]()
		assert.ErrorIs(t, h.LoadFromStore(ctx, store, "ns"), ErrCorruptIndex)
	})

	t.Run("type mismatch", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		src := New[int64]()
		require.NoError(t, src.Build([]int64{1, 2, 3}))
		_, err := src.Upload(ctx, store, "ns")
		require.NoError(t, err)

		h := New[uint64]()
		assert.ErrorIs(t, h.LoadFromStore(ctx, store, "ns"), ErrTypeMismatch)
		assert.False(t, h.IsReady())
	})

	t.Run("corrupted body blob", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		src := New[int64]()
		require.NoError(t, src.Build([]int64{1, 2, 3}))
		m, err := src.Upload(ctx, store, "ns")
		require.NoError(t, err)

		var body string
		for _, info := range m.Blobs {
			if info.Name != index.DescriptorKey {
				body = info.Name
				break
			}
		}
		require.NotEmpty(t, body)
		require.NoError(t, store.Put(ctx, blobstore.Join("ns", body), []byte("garbage")))

		h := New[int64]()
		assert.ErrorIs(t, h.LoadFromStore(ctx, store, "ns"), ErrCorruptIndex)
	})

	t.Run("already ready", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		src := New[int64]()
		require.NoError(t, src.Build([]int64{1, 2, 3}))
		_, err := src.Upload(ctx, store, "ns")
		require.NoError(t, err)

		assert.ErrorIs(t, src.LoadFromStore(ctx, store, "ns"), ErrAlreadyReady)
	})
}

func TestLoadFromStore_WithoutManifest(t *testing.T) {
	// A namespace whose manifest was lost still loads via listing, as long
	// as the bodies are unframed or self-describing.
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	src := New[int64]()
	require.NoError(t, src.Build([]int64{5, 6, 7, 5}))
	_, err := src.Upload(ctx, store, "ns")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, blobstore.Join("ns", manifest.Name)))

	dst := New[int64]()
	require.NoError(t, dst.LoadFromStore(ctx, store, "ns"))

	n, err := dst.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestBuildFromStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	column := make([]int64, 0, 300)
	for i := 0; i < 300; i++ {
		column = append(column, int64(i%5))
	}
	chunks := [][]int64{column[:100], column[100:250], column[250:]}
	require.NoError(t, PutColumnChunks(ctx, store, "cols/city", chunks))

	fromStore := New[int64]()
	require.NoError(t, fromStore.BuildFromStore(ctx, store, "cols/city"))

	inMemory := New[int64]()
	require.NoError(t, inMemory.Build(column))

	// Chunked build and in-memory build agree on everything observable.
	assert.Equal(t, inMemory.Kind(), fromStore.Kind())

	want, err := inMemory.In([]int64{2})
	require.NoError(t, err)
	got, err := fromStore.In([]int64{2})
	require.NoError(t, err)
	assert.Equal(t, want.Slice(), got.Slice())

	for _, off := range []int{0, 99, 100, 249, 250, 299} {
		v1, err := inMemory.ReverseLookup(off)
		require.NoError(t, err)
		v2, err := fromStore.ReverseLookup(off)
		require.NoError(t, err)
		assert.Equal(t, v1, v2)
	}
}

func TestBuildFromStore_EmptyNamespace(t *testing.T) {
	h := New[int64]()
	require.NoError(t, h.BuildFromStore(context.Background(), blobstore.NewMemoryStore(), "cols/none"))

	assert.Equal(t, index.KindSorted, h.Kind())
	n, err := h.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}
