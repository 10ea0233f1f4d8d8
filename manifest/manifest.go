// Package manifest records what an uploaded index namespace contains: which
// blobs exist, their sizes and checksums, and the codec their bodies were
// framed with. The manifest is written last on upload, so its presence marks
// a complete namespace, and its checksums let a later upload of identical
// state skip every unchanged blob.
//
// The manifest never substitutes for the descriptor blob: the variant kind
// recorded here is informational, and loaders decide the variant from the
// descriptor bytes alone.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/scalardex/blobstore"
)

const (
	// Name is the blob name of the manifest inside a namespace.
	Name = "MANIFEST"

	// CurrentVersion is the manifest format version.
	CurrentVersion = 1
)

// BlobInfo describes a single persisted blob.
type BlobInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum uint32 `json:"checksum"` // CRC32 (IEEE) of the stored bytes
}

// Manifest describes one uploaded index namespace.
type Manifest struct {
	Version int        `json:"version"`
	Kind    string     `json:"kind"`
	Elem    string     `json:"elem"`
	Rows    int64      `json:"rows"`
	Codec   string     `json:"codec"`
	Blobs   []BlobInfo `json:"blobs"`
}

// Blob returns the entry for name, or nil.
func (m *Manifest) Blob(name string) *BlobInfo {
	for i := range m.Blobs {
		if m.Blobs[i].Name == name {
			return &m.Blobs[i]
		}
	}
	return nil
}

// Save writes the manifest into the namespace. The blob store's Put is
// atomic, so readers observe either the previous manifest or the new one.
func Save(ctx context.Context, store blobstore.BlobStore, namespace string, m *Manifest) error {
	m.Version = CurrentVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	return store.Put(ctx, blobstore.Join(namespace, Name), data)
}

// Load reads the manifest of a namespace. Returns blobstore.ErrNotFound
// when the namespace has no manifest.
func Load(ctx context.Context, store blobstore.BlobStore, namespace string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, blobstore.Join(namespace, Name))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("manifest: unsupported version %d (expected %d)", m.Version, CurrentVersion)
	}
	return &m, nil
}
