package scalardex

import "github.com/hupe1980/scalardex/index"

// selectKind picks the index encoding for a column. It is a pure function
// of the column's distinct count, row count, and element kind, so the same
// multiset of values always yields the same decision regardless of row
// order or chunking.
//
// Empty columns take the sorted encoding: it is the only one with a
// meaningful degenerate form, and every query on it returns a zero-length
// result.
func selectKind(distinct, rows int, elem index.ElemKind, cardinalityLimit int) index.Kind {
	switch {
	case distinct == 0 || rows == 0:
		return index.KindSorted
	case distinct <= cardinalityLimit:
		return index.KindBitmap
	case elem.IsString():
		return index.KindTrie
	default:
		return index.KindSorted
	}
}

// distinctCount returns the number of distinct values in the column.
func distinctCount[T index.Scalar](values []T) int {
	seen := make(map[T]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
