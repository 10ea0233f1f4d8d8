package scalardex

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/scalardex/blobstore"
	"github.com/hupe1980/scalardex/codec"
	"github.com/hupe1980/scalardex/index"
	"github.com/hupe1980/scalardex/manifest"
)

// chunkPrefix names the raw column chunk blobs consumed by BuildFromStore.
const chunkPrefix = "chunk-"

// fetchConcurrency bounds parallel blob reads on the load and build paths.
const fetchConcurrency = 4

// Upload serializes the index and persists it into a namespace of the blob
// store: every variant blob framed with the configured codec, the
// descriptor uncompressed, and a manifest written last so its presence
// marks a complete namespace.
//
// Re-uploading the same built state is idempotent: blobs whose size and
// checksum match the existing manifest are skipped.
func (h *Hybrid[T]) Upload(ctx context.Context, store blobstore.BlobStore, namespace string, opts ...UploadOption) (*manifest.Manifest, error) {
	uo := defaultUploadOptions()
	for _, opt := range opts {
		opt(&uo)
	}

	bs, err := h.Serialize()
	if err != nil {
		return nil, err
	}

	prev, err := manifest.Load(ctx, store, namespace)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("read existing manifest: %w", err)
	}

	m := &manifest.Manifest{
		Kind:  h.kind.String(),
		Elem:  index.ElemKindOf[T]().String(),
		Rows:  int64(h.variant.Count()),
		Codec: h.opts.compression.String(),
	}

	var written, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uo.concurrency)

	for _, name := range bs.Names() {
		data := bs[name]
		if name != index.DescriptorKey {
			if data, err = codec.Compress(h.opts.compression, data); err != nil {
				return nil, err
			}
		}

		info := manifest.BlobInfo{
			Name:     name,
			Size:     int64(len(data)),
			Checksum: crc32.ChecksumIEEE(data),
		}
		m.Blobs = append(m.Blobs, info)

		if prev != nil {
			if old := prev.Blob(name); old != nil && *old == info {
				skipped.Add(1)
				continue
			}
		}

		name := name
		g.Go(func() error {
			if uo.limiter != nil {
				if err := waitBytes(gctx, uo.limiter, len(data)); err != nil {
					return err
				}
			}
			if err := store.Put(gctx, blobstore.Join(namespace, name), data); err != nil {
				return fmt.Errorf("put blob %q: %w", name, err)
			}
			written.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		h.opts.logger.LogUpload(ctx, namespace, int(written.Load()), int(skipped.Load()), err)
		return nil, err
	}

	sort.Slice(m.Blobs, func(i, j int) bool { return m.Blobs[i].Name < m.Blobs[j].Name })
	if err := manifest.Save(ctx, store, namespace, m); err != nil {
		h.opts.logger.LogUpload(ctx, namespace, int(written.Load()), int(skipped.Load()), err)
		return nil, err
	}

	h.opts.logger.LogUpload(ctx, namespace, int(written.Load()), int(skipped.Load()), nil)
	return m, nil
}

// waitBytes reserves n bytes from the limiter, splitting requests larger
// than the burst so WaitN never rejects them outright.
func waitBytes(ctx context.Context, l *rate.Limiter, n int) error {
	if l.Burst() <= 0 {
		// A zero burst admits nothing and would spin forever below.
		return ctx.Err()
	}
	for n > 0 {
		take := n
		if burst := l.Burst(); take > burst {
			take = burst
		}
		if err := l.WaitN(ctx, take); err != nil {
			return err
		}
		n -= take
	}
	return nil
}

// LoadFromStore reconstructs the index from a previously uploaded
// namespace. The descriptor blob is resolved eagerly with a small ranged
// read — it determines which variant implementation exists to call — and
// the variant body blobs are fetched afterwards. On failure or
// cancellation the instance stays not-ready.
func (h *Hybrid[T]) LoadFromStore(ctx context.Context, store blobstore.BlobStore, namespace string) error {
	if h.ready.Load() {
		return ErrAlreadyReady
	}

	raw, err := readDescriptor(ctx, store, namespace)
	if err != nil {
		return err
	}
	desc, err := index.UnmarshalDescriptor(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}
	if elem := index.ElemKindOf[T](); desc.Elem != elem {
		return fmt.Errorf("%w: index was built over %s, loading as %s", ErrTypeMismatch, desc.Elem, elem)
	}
	// Validate the kind before spending fetches on variant bodies.
	if _, err := h.newVariant(desc.Kind); err != nil {
		return err
	}

	names, m, err := bodyBlobNames(ctx, store, namespace)
	if err != nil {
		return err
	}

	bodies := make([][]byte, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			data, err := blobstore.ReadAll(gctx, store, blobstore.Join(namespace, name))
			if err != nil {
				return fmt.Errorf("fetch blob %q: %w", name, err)
			}
			if m != nil {
				if info := m.Blob(name); info != nil && info.Checksum != crc32.ChecksumIEEE(data) {
					return fmt.Errorf("%w: blob %q checksum mismatch", ErrCorruptIndex, name)
				}
			}
			if bodies[i], err = codec.Decompress(data); err != nil {
				return fmt.Errorf("%w: blob %q: %w", ErrCorruptIndex, name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.opts.logger.LogLoad(ctx, desc.Kind, 0, err)
		return err
	}

	bs := make(index.BinarySet, len(names))
	for i, name := range names {
		if err := bs.Append(name, bodies[i]); err != nil {
			return err
		}
	}
	return h.load(ctx, withDescriptor(bs, raw))
}

// readDescriptor fetches the fixed-size descriptor record. A ranged read
// keeps the remote round trip small regardless of index size.
func readDescriptor(ctx context.Context, store blobstore.BlobStore, namespace string) ([]byte, error) {
	blob, err := store.Open(ctx, blobstore.Join(namespace, index.DescriptorKey))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: descriptor blob %q missing", ErrCorruptIndex, index.DescriptorKey)
		}
		return nil, err
	}
	defer blob.Close()

	buf := make([]byte, index.DescriptorSize)
	n, err := blob.ReadAt(ctx, buf, 0)
	if n < index.DescriptorSize {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: descriptor truncated: %d bytes", ErrCorruptIndex, n)
		}
		return nil, err
	}
	return buf, nil
}

// bodyBlobNames returns the non-descriptor blob names of a namespace,
// preferring the manifest over a listing so checksums can be verified.
func bodyBlobNames(ctx context.Context, store blobstore.BlobStore, namespace string) ([]string, *manifest.Manifest, error) {
	m, err := manifest.Load(ctx, store, namespace)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil, err
	}

	var names []string
	if m != nil {
		for _, info := range m.Blobs {
			if info.Name != index.DescriptorKey {
				names = append(names, info.Name)
			}
		}
		return names, m, nil
	}

	prefix := blobstore.Join(namespace, "") + "/"
	if namespace == "" {
		prefix = ""
	}
	listed, err := store.List(ctx, prefix)
	if err != nil {
		return nil, nil, err
	}
	for _, full := range listed {
		name := full[len(prefix):]
		if name != index.DescriptorKey && name != manifest.Name && name != "" {
			names = append(names, name)
		}
	}
	return names, nil, nil
}

func withDescriptor(bs index.BinarySet, raw []byte) index.BinarySet {
	bs[index.DescriptorKey] = raw
	return bs
}

// BuildFromStore builds the index from raw column chunks persisted in a
// namespace (blobs named chunk-000000, chunk-000001, ... as written by
// PutColumnChunks). Chunks are fetched in parallel and concatenated in name
// order; the selection decision is identical to the in-memory path for the
// same logical column because the policy only depends on the value multiset.
func (h *Hybrid[T]) BuildFromStore(ctx context.Context, store blobstore.BlobStore, namespace string) error {
	if h.ready.Load() {
		return ErrAlreadyBuilt
	}

	prefix := blobstore.Join(namespace, chunkPrefix)
	names, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}

	chunks := make([][]T, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			data, err := blobstore.ReadAll(gctx, store, name)
			if err != nil {
				return fmt.Errorf("fetch chunk %q: %w", name, err)
			}
			if chunks[i], err = index.DecodeColumn[T](index.NewReader(data)); err != nil {
				return fmt.Errorf("decode chunk %q: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var total int
	for _, c := range chunks {
		total += len(c)
	}
	column := make([]T, 0, total)
	for _, c := range chunks {
		column = append(column, c...)
	}
	return h.build(ctx, column)
}

// PutColumnChunks persists a column as numbered chunk blobs for a later
// BuildFromStore.
func PutColumnChunks[T index.Scalar](ctx context.Context, store blobstore.BlobStore, namespace string, chunks [][]T) error {
	for i, chunk := range chunks {
		w := index.NewWriter()
		index.EncodeColumn(w, chunk)
		name := blobstore.Join(namespace, fmt.Sprintf("%s%06d", chunkPrefix, i))
		if err := store.Put(ctx, name, w.Bytes()); err != nil {
			return fmt.Errorf("put chunk %q: %w", name, err)
		}
	}
	return nil
}
