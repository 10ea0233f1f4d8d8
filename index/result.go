package index

import "github.com/bits-and-blooms/bitset"

// ResultSet is a fixed-length bit-vector over row offsets, one bit per row
// in the indexed column. Query operations return it with matching rows set.
// Treat it as immutable once returned.
type ResultSet struct {
	n    uint
	bits *bitset.BitSet
}

// NewResultSet creates an all-false result set for n rows.
func NewResultSet(n int) *ResultSet {
	if n < 0 {
		n = 0
	}
	return &ResultSet{
		n:    uint(n),
		bits: bitset.New(uint(n)),
	}
}

// Len returns the number of rows the set covers.
func (r *ResultSet) Len() int {
	return int(r.n)
}

// Set marks row i as matching.
func (r *ResultSet) Set(i uint32) {
	if uint(i) < r.n {
		r.bits.Set(uint(i))
	}
}

// Test reports whether row i matches.
func (r *ResultSet) Test(i uint32) bool {
	return uint(i) < r.n && r.bits.Test(uint(i))
}

// Count returns the number of matching rows.
func (r *ResultSet) Count() int {
	return int(r.bits.Count())
}

// Complement returns a new result set with every row flipped. Bits past the
// row count stay clear.
func (r *ResultSet) Complement() *ResultSet {
	out := &ResultSet{n: r.n, bits: r.bits.Clone()}
	out.bits.FlipRange(0, r.n)
	return out
}

// Union folds other into r and returns r. Both sets must cover the same row
// count; a mismatched or nil other is ignored.
func (r *ResultSet) Union(other *ResultSet) *ResultSet {
	if other != nil && other.n == r.n {
		r.bits.InPlaceUnion(other.bits)
	}
	return r
}

// Slice expands the set into a []bool, one entry per row.
func (r *ResultSet) Slice() []bool {
	out := make([]bool, r.n)
	for i := uint(0); i < r.n; i++ {
		out[i] = r.bits.Test(i)
	}
	return out
}
