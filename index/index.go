// Package index defines the capability contract shared by all scalar index
// encodings, the named-blob serialization container they produce, and the
// self-describing descriptor that records which encoding a persisted index
// used.
package index

import "fmt"

// Scalar is the set of element types a scalar index can be built over.
//
// Booleans are not ordered in Go and are deliberately absent; boolean
// columns are indexed as uint8 at the caller boundary.
//
// Float columns must not contain NaN. NaN compares unequal to itself, so
// sorting and distinct counting over it are undefined; callers filter or
// normalize NaN rows before building.
type Scalar interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64 |
		string
}

// Kind identifies a concrete index encoding.
type Kind uint8

const (
	// KindNone means no encoding has been selected yet.
	KindNone Kind = iota
	// KindBitmap is the low-cardinality per-value bitmap encoding.
	KindBitmap
	// KindSorted is the generic sorted-column encoding.
	KindSorted
	// KindTrie is the string prefix-tree encoding.
	KindTrie
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBitmap:
		return "bitmap"
	case KindSorted:
		return "sorted"
	case KindTrie:
		return "trie"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Valid reports whether k names a concrete, loadable encoding.
func (k Kind) Valid() bool {
	return k == KindBitmap || k == KindSorted || k == KindTrie
}

// CompareOp is a one-sided range comparison operator.
type CompareOp uint8

const (
	// OpLess matches values strictly below the operand.
	OpLess CompareOp = iota
	// OpLessEqual matches values at or below the operand.
	OpLessEqual
	// OpGreater matches values strictly above the operand.
	OpGreater
	// OpGreaterEqual matches values at or above the operand.
	OpGreaterEqual
)

// ErrOffsetOutOfRange is a named error type for reverse lookups past the
// indexed row count.
type ErrOffsetOutOfRange struct {
	Offset int
	Rows   int
}

// Error returns the error message for an out-of-range offset.
func (e *ErrOffsetOutOfRange) Error() string {
	return fmt.Sprintf("offset %d out of range: index has %d rows", e.Offset, e.Rows)
}

// ScalarIndex is the capability set every concrete index encoding satisfies.
//
// Implementations are write-once: exactly one successful Build or Load, then
// reads only. All query methods must be safe for concurrent use after that
// point.
type ScalarIndex[T Scalar] interface {
	// Build populates the index from a raw column. values[i] is row i.
	Build(values []T) error

	// Serialize emits the index as named binary blobs. The returned set
	// must not use the reserved descriptor key.
	Serialize() (BinarySet, error)

	// Load reconstructs the index from blobs previously produced by
	// Serialize on an index of the same kind.
	Load(bs BinarySet) error

	// In marks every row whose value appears in values.
	In(values []T) *ResultSet

	// NotIn marks every row whose value does not appear in values.
	NotIn(values []T) *ResultSet

	// Range marks every row within [lower, upper] honoring per-bound
	// inclusivity.
	Range(lower T, lowerInclusive bool, upper T, upperInclusive bool) *ResultSet

	// RangeOp marks every row matching a one-sided comparison.
	RangeOp(value T, op CompareOp) *ResultSet

	// ReverseLookup returns the value stored at a row offset.
	ReverseLookup(offset int) (T, error)

	// Count returns the number of indexed rows.
	Count() int

	// SizeInBytes returns the approximate in-memory footprint.
	SizeInBytes() int64

	// HasRawData reports whether the original column can be recovered
	// from the index via ReverseLookup.
	HasRawData() bool
}
