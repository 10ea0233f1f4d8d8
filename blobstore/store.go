// Package blobstore abstracts the persistence of named binary blobs. An
// index namespace is a directory-like prefix; a serialized index is a set of
// blobs under one namespace, locally on disk or in an object store.
package blobstore

import (
	"context"
	"io"
	"os"
	"path"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore persists named binary blobs.
type BlobStore interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Create creates a new blob for streaming writes.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob. Ranged reads let callers
// resolve a small descriptor without pulling the full index body.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// ReadRange returns a reader over [off, off+length), clamped to the
	// blob size.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)

	// Size returns the blob size in bytes.
	Size() int64

	// Close releases the handle.
	Close() error
}

// WritableBlob is a streaming write handle. Content becomes visible on
// Close.
type WritableBlob interface {
	io.Writer

	// Sync flushes buffered data where the backend supports it.
	Sync() error

	// Close finalizes the blob.
	Close() error
}

// Join builds a blob name under a namespace prefix.
func Join(namespace, name string) string {
	return path.Join(namespace, name)
}

// ReadAll fetches the complete content of a named blob.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
