package blobstore

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/scalardex/internal/cache"
)

// DefaultBlockSize is the block granularity of CachingStore reads.
const DefaultBlockSize = 64 * 1024

// CachingStore wraps a BlobStore and serves reads from a block cache.
// Writes pass through and invalidate the written blob's blocks, so a
// re-uploaded namespace is never served stale.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a caching wrapper. blockSize <= 0 falls back to
// DefaultBlockSize.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Put writes a blob and drops its cached blocks.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(func(key cache.Key) bool { return key.Name == name })
	return s.inner.Put(ctx, name, data)
}

// Create passes through; streamed writes are not cached.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.cache.Invalidate(func(key cache.Key) bool { return key.Name == name })
	return s.inner.Create(ctx, name)
}

// Delete removes a blob and drops its cached blocks.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(func(key cache.Key) bool { return key.Name == name })
	return s.inner.Delete(ctx, name)
}

// List passes through.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type cachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *cachingBlob) Close() error {
	return b.inner.Close()
}

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	size := b.inner.Size()
	if off >= size {
		return 0, io.EOF
	}

	end := off + int64(len(p))
	if end > size {
		end = size
	}

	startBlock := off / b.blockSize
	endBlock := (end - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	total := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		data, err := b.block(ctx, blk)
		if err != nil {
			return total, err
		}

		blkStart := blk * b.blockSize
		from := max(off, blkStart) - blkStart
		to := min(end, blkStart+b.blockSize) - blkStart
		if to > int64(len(data)) {
			to = int64(len(data))
		}
		if to <= from {
			continue
		}
		total += copy(p[max(off, blkStart)-off:], data[from:to])
	}

	if int64(total) < int64(len(p)) {
		return total, io.EOF
	}
	return total, nil
}

func (b *cachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	size := b.inner.Size()
	if off >= size {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if off+length > size {
		length = size - off
	}

	buf := make([]byte, length)
	n, err := b.ReadAt(ctx, buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(buf[:n])), nil
}

// fillCache fetches the missing blocks of [startBlock, endBlock], one
// backend request per contiguous missing run.
func (b *cachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	type run struct {
		start, count int64
	}

	var missing []run
	current := run{start: -1}
	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := b.cache.Get(cache.Key{Name: b.name, Block: uint64(blk)}); ok {
			if current.start != -1 {
				missing = append(missing, current)
				current = run{start: -1}
			}
			continue
		}
		if current.start == -1 {
			current = run{start: blk, count: 1}
		} else {
			current.count++
		}
	}
	if current.start != -1 {
		missing = append(missing, current)
	}

	size := b.inner.Size()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, r := range missing {
		r := r
		g.Go(func() error {
			byteStart := r.start * b.blockSize
			byteLen := r.count * b.blockSize
			if byteStart >= size {
				return nil
			}
			if byteStart+byteLen > size {
				byteLen = size - byteStart
			}

			rc, err := b.inner.ReadRange(gctx, byteStart, byteLen)
			if err != nil {
				return err
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return err
			}

			for i := int64(0); i < r.count; i++ {
				from := i * b.blockSize
				if from >= int64(len(data)) {
					break
				}
				to := from + b.blockSize
				if to > int64(len(data)) {
					to = int64(len(data))
				}
				b.cache.Set(cache.Key{Name: b.name, Block: uint64(r.start + i)}, data[from:to])
			}
			return nil
		})
	}
	return g.Wait()
}

// block returns one cached block, fetching it on a miss.
func (b *cachingBlob) block(ctx context.Context, blk int64) ([]byte, error) {
	key := cache.Key{Name: b.name, Block: uint64(blk)}
	if data, ok := b.cache.Get(key); ok {
		return data, nil
	}

	byteStart := blk * b.blockSize
	byteLen := b.blockSize
	if size := b.inner.Size(); byteStart+byteLen > size {
		byteLen = size - byteStart
	}

	rc, err := b.inner.ReadRange(ctx, byteStart, byteLen)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	b.cache.Set(key, data)
	return data, nil
}
