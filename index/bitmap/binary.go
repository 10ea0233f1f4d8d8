package bitmap

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/scalardex/index"
)

// Blob names owned by the bitmap encoding.
const (
	metaBlobName = "bitmap_index_meta"
	dataBlobName = "bitmap_index_data"
)

// Serialize emits the key directory and the per-key bitmaps as two blobs.
func (idx *Index[T]) Serialize() (index.BinarySet, error) {
	meta := index.NewWriter()
	meta.PutUint64(uint64(idx.rows))
	index.EncodeColumn(meta, idx.keys)

	data := index.NewWriter()
	data.PutUint32(uint32(len(idx.bitmaps)))
	for _, bm := range idx.bitmaps {
		raw, err := bm.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("bitmap index: serialize bitmap: %w", err)
		}
		data.PutBytes(raw)
	}

	bs := make(index.BinarySet, 2)
	if err := bs.Append(metaBlobName, meta.Bytes()); err != nil {
		return nil, err
	}
	if err := bs.Append(dataBlobName, data.Bytes()); err != nil {
		return nil, err
	}
	return bs, nil
}

// Load reconstructs the index from blobs produced by Serialize.
func (idx *Index[T]) Load(bs index.BinarySet) error {
	metaRaw, ok := bs.Get(metaBlobName)
	if !ok {
		return fmt.Errorf("bitmap index: blob %q missing", metaBlobName)
	}
	dataRaw, ok := bs.Get(dataBlobName)
	if !ok {
		return fmt.Errorf("bitmap index: blob %q missing", dataBlobName)
	}

	meta := index.NewReader(metaRaw)
	rows, err := meta.Uint64()
	if err != nil {
		return fmt.Errorf("bitmap index: read row count: %w", err)
	}
	keys, err := index.DecodeColumn[T](meta)
	if err != nil {
		return fmt.Errorf("bitmap index: read keys: %w", err)
	}

	data := index.NewReader(dataRaw)
	count, err := data.Uint32()
	if err != nil {
		return fmt.Errorf("bitmap index: read bitmap count: %w", err)
	}
	if int(count) != len(keys) {
		return fmt.Errorf("bitmap index: %d bitmaps for %d keys", count, len(keys))
	}

	bitmaps := make([]*roaring.Bitmap, count)
	var total uint64
	for i := range bitmaps {
		raw, err := data.Bytes()
		if err != nil {
			return fmt.Errorf("bitmap index: read bitmap %d: %w", i, err)
		}
		bm := roaring.New()
		if err := bm.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("bitmap index: decode bitmap %d: %w", i, err)
		}
		bitmaps[i] = bm
		total += bm.GetCardinality()
	}
	if total != rows {
		return fmt.Errorf("bitmap index: bitmaps cover %d rows, meta blob says %d", total, rows)
	}

	idx.rows = int(rows)
	idx.keys = keys
	idx.bitmaps = bitmaps
	return nil
}
