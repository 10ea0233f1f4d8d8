// Package sorted implements the generic scalar index encoding: a columnar
// (value, row) layout sorted by value, queried with binary search. It is the
// fallback for any totally-ordered element type and the required encoding
// for empty columns.
package sorted

import (
	"sort"

	"github.com/hupe1980/scalardex/index"
)

// Index stores the column twice: sorted by value for searches, and in row
// order for constant-time reverse lookup.
//
// Invariant: len(values) == len(rows) == len(raw); values[i] belongs to row
// rows[i]; raw[r] is the original value of row r.
type Index[T index.Scalar] struct {
	values []T      // sorted ascending
	rows   []uint32 // aligned with values
	raw    []T      // row order
}

var _ index.ScalarIndex[int64] = (*Index[int64])(nil)

// New creates an empty sorted index.
func New[T index.Scalar]() *Index[T] {
	return &Index[T]{}
}

// Build populates the index from a raw column.
func (idx *Index[T]) Build(column []T) error {
	n := len(column)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.Slice(perm, func(a, b int) bool {
		if column[perm[a]] != column[perm[b]] {
			return column[perm[a]] < column[perm[b]]
		}
		return perm[a] < perm[b]
	})

	values := make([]T, n)
	rows := make([]uint32, n)
	for i, p := range perm {
		values[i] = column[p]
		rows[i] = uint32(p)
	}

	idx.values = values
	idx.rows = rows
	idx.raw = append([]T(nil), column...)
	return nil
}

// lowerBound returns the first position with values[i] >= v.
func (idx *Index[T]) lowerBound(v T) int {
	return sort.Search(len(idx.values), func(i int) bool { return idx.values[i] >= v })
}

// upperBound returns the first position with values[i] > v.
func (idx *Index[T]) upperBound(v T) int {
	return sort.Search(len(idx.values), func(i int) bool { return idx.values[i] > v })
}

// markSpan sets the rows of values[lo:hi] in rs.
func (idx *Index[T]) markSpan(rs *index.ResultSet, lo, hi int) {
	for i := lo; i < hi; i++ {
		rs.Set(idx.rows[i])
	}
}

// In marks every row whose value appears in values.
func (idx *Index[T]) In(values []T) *index.ResultSet {
	rs := index.NewResultSet(len(idx.raw))
	for _, v := range values {
		idx.markSpan(rs, idx.lowerBound(v), idx.upperBound(v))
	}
	return rs
}

// NotIn marks every row whose value does not appear in values.
func (idx *Index[T]) NotIn(values []T) *index.ResultSet {
	return idx.In(values).Complement()
}

// Range marks every row within [lower, upper] honoring bound inclusivity.
func (idx *Index[T]) Range(lower T, lowerInclusive bool, upper T, upperInclusive bool) *index.ResultSet {
	rs := index.NewResultSet(len(idx.raw))

	lo := idx.lowerBound(lower)
	if !lowerInclusive {
		lo = idx.upperBound(lower)
	}
	hi := idx.lowerBound(upper)
	if upperInclusive {
		hi = idx.upperBound(upper)
	}

	idx.markSpan(rs, lo, hi)
	return rs
}

// RangeOp marks every row matching a one-sided comparison.
func (idx *Index[T]) RangeOp(value T, op index.CompareOp) *index.ResultSet {
	rs := index.NewResultSet(len(idx.raw))
	switch op {
	case index.OpLess:
		idx.markSpan(rs, 0, idx.lowerBound(value))
	case index.OpLessEqual:
		idx.markSpan(rs, 0, idx.upperBound(value))
	case index.OpGreater:
		idx.markSpan(rs, idx.upperBound(value), len(idx.values))
	case index.OpGreaterEqual:
		idx.markSpan(rs, idx.lowerBound(value), len(idx.values))
	}
	return rs
}

// ReverseLookup returns the value stored at a row offset.
func (idx *Index[T]) ReverseLookup(offset int) (T, error) {
	if offset < 0 || offset >= len(idx.raw) {
		var zero T
		return zero, &index.ErrOffsetOutOfRange{Offset: offset, Rows: len(idx.raw)}
	}
	return idx.raw[offset], nil
}

// Count returns the number of indexed rows.
func (idx *Index[T]) Count() int {
	return len(idx.raw)
}

// SizeInBytes returns the approximate in-memory footprint.
func (idx *Index[T]) SizeInBytes() int64 {
	var size int64
	for _, v := range idx.values {
		size += 2 * int64(scalarSize(v)) // sorted copy + raw copy
	}
	size += int64(4 * len(idx.rows))
	return size
}

// HasRawData reports that the original column is recoverable.
func (idx *Index[T]) HasRawData() bool {
	return true
}

func scalarSize[T index.Scalar](v T) int {
	if s, ok := any(v).(string); ok {
		return len(s)
	}
	return 8
}
