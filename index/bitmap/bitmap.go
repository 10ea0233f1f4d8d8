// Package bitmap implements the low-cardinality scalar index encoding: one
// roaring bitmap of row offsets per distinct value, plus a sorted key
// directory for range scans.
package bitmap

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/scalardex/index"
)

// Index is a per-value bitmap index. Cheap when the number of distinct
// values is small relative to the row count: equality is a single bitmap
// fetch and ranges are a short OR chain over adjacent keys.
type Index[T index.Scalar] struct {
	rows    int
	keys    []T               // sorted distinct values
	bitmaps []*roaring.Bitmap // aligned with keys
}

var _ index.ScalarIndex[int64] = (*Index[int64])(nil)

// New creates an empty bitmap index.
func New[T index.Scalar]() *Index[T] {
	return &Index[T]{}
}

// Build populates the index from a raw column.
func (idx *Index[T]) Build(values []T) error {
	byValue := make(map[T]*roaring.Bitmap)
	for row, v := range values {
		bm, ok := byValue[v]
		if !ok {
			bm = roaring.New()
			byValue[v] = bm
		}
		bm.Add(uint32(row))
	}

	keys := make([]T, 0, len(byValue))
	for k := range byValue {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	bitmaps := make([]*roaring.Bitmap, len(keys))
	for i, k := range keys {
		bitmaps[i] = byValue[k]
	}

	idx.rows = len(values)
	idx.keys = keys
	idx.bitmaps = bitmaps
	return nil
}

// In marks every row whose value appears in values.
func (idx *Index[T]) In(values []T) *index.ResultSet {
	rs := index.NewResultSet(idx.rows)
	for _, v := range values {
		if i, ok := slices.BinarySearch(idx.keys, v); ok {
			addBitmap(rs, idx.bitmaps[i])
		}
	}
	return rs
}

// NotIn marks every row whose value does not appear in values.
func (idx *Index[T]) NotIn(values []T) *index.ResultSet {
	return idx.In(values).Complement()
}

// Range marks every row within [lower, upper] honoring bound inclusivity.
func (idx *Index[T]) Range(lower T, lowerInclusive bool, upper T, upperInclusive bool) *index.ResultSet {
	lo, found := slices.BinarySearch(idx.keys, lower)
	if found && !lowerInclusive {
		lo++
	}
	hi, found := slices.BinarySearch(idx.keys, upper)
	if found && upperInclusive {
		hi++
	}
	return idx.orKeys(lo, hi)
}

// RangeOp marks every row matching a one-sided comparison.
func (idx *Index[T]) RangeOp(value T, op index.CompareOp) *index.ResultSet {
	i, found := slices.BinarySearch(idx.keys, value)
	switch op {
	case index.OpLess:
		return idx.orKeys(0, i)
	case index.OpLessEqual:
		if found {
			i++
		}
		return idx.orKeys(0, i)
	case index.OpGreater:
		if found {
			i++
		}
		return idx.orKeys(i, len(idx.keys))
	case index.OpGreaterEqual:
		return idx.orKeys(i, len(idx.keys))
	default:
		return index.NewResultSet(idx.rows)
	}
}

// orKeys ORs the bitmaps of keys[lo:hi] into a fresh result set.
func (idx *Index[T]) orKeys(lo, hi int) *index.ResultSet {
	rs := index.NewResultSet(idx.rows)
	if lo < 0 {
		lo = 0
	}
	if hi > len(idx.keys) {
		hi = len(idx.keys)
	}
	for i := lo; i < hi; i++ {
		addBitmap(rs, idx.bitmaps[i])
	}
	return rs
}

// ReverseLookup returns the value stored at a row offset. Scans the key
// directory; the directory is bounded by the cardinality limit, so the scan
// stays short.
func (idx *Index[T]) ReverseLookup(offset int) (T, error) {
	var zero T
	if offset < 0 || offset >= idx.rows {
		return zero, &index.ErrOffsetOutOfRange{Offset: offset, Rows: idx.rows}
	}
	for i, bm := range idx.bitmaps {
		if bm.Contains(uint32(offset)) {
			return idx.keys[i], nil
		}
	}
	return zero, fmt.Errorf("bitmap index: row %d missing from every value bitmap", offset)
}

// Count returns the number of indexed rows.
func (idx *Index[T]) Count() int {
	return idx.rows
}

// SizeInBytes returns the approximate in-memory footprint.
func (idx *Index[T]) SizeInBytes() int64 {
	var size int64
	for _, bm := range idx.bitmaps {
		size += int64(bm.GetSizeInBytes())
	}
	for _, k := range idx.keys {
		size += int64(scalarSize(k))
	}
	return size
}

// HasRawData reports that the original column is recoverable.
func (idx *Index[T]) HasRawData() bool {
	return true
}

func addBitmap(rs *index.ResultSet, bm *roaring.Bitmap) {
	it := bm.Iterator()
	for it.HasNext() {
		rs.Set(it.Next())
	}
}

func scalarSize[T index.Scalar](v T) int {
	if s, ok := any(v).(string); ok {
		return len(s)
	}
	return 8
}
