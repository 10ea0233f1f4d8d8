// Package trie implements the string scalar index encoding: a byte-labelled
// prefix tree with sorted children. Shared prefixes are stored once, which
// amortizes storage across large distinct-string populations, and a
// lexicographic walk of the tree visits keys in sorted order, which is what
// range scans rely on.
package trie

import (
	"strings"

	"github.com/hupe1980/scalardex/index"
)

type node struct {
	label    byte
	parent   *node
	children []*node  // sorted by label
	rows     []uint32 // nil unless this node terminates a key
	terminal bool
}

// child returns the child with the given label, or nil.
func (n *node) child(label byte) *node {
	lo, hi := 0, len(n.children)
	for lo < hi {
		mid := (lo + hi) / 2
		if n.children[mid].label < label {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.children) && n.children[lo].label == label {
		return n.children[lo]
	}
	return nil
}

// ensureChild returns the child with the given label, inserting it in label
// order if absent.
func (n *node) ensureChild(label byte) *node {
	lo, hi := 0, len(n.children)
	for lo < hi {
		mid := (lo + hi) / 2
		if n.children[mid].label < label {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.children) && n.children[lo].label == label {
		return n.children[lo]
	}
	c := &node{label: label, parent: n}
	n.children = append(n.children, nil)
	copy(n.children[lo+1:], n.children[lo:])
	n.children[lo] = c
	return c
}

// key reconstructs the full key terminating at n by walking parent links.
func (n *node) key() string {
	var rev []byte
	for cur := n; cur.parent != nil; cur = cur.parent {
		rev = append(rev, cur.label)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return string(rev)
}

// Index is a trie over the distinct strings of a column. Each terminal node
// carries the offsets of the rows holding its key, and rowNode maps each row
// offset back to its terminal for reverse lookup.
type Index struct {
	root    *node
	rows    int
	keys    int
	rowNode []*node
	size    int64
}

var _ index.ScalarIndex[string] = (*Index)(nil)

// New creates an empty trie index.
func New() *Index {
	return &Index{root: &node{}}
}

// insert records row as holding key.
func (idx *Index) insert(key string, row uint32) {
	n := idx.root
	for i := 0; i < len(key); i++ {
		n = n.ensureChild(key[i])
	}
	if !n.terminal {
		n.terminal = true
		idx.keys++
	}
	n.rows = append(n.rows, row)
	idx.rowNode[row] = n
}

// Build populates the index from a raw column.
func (idx *Index) Build(values []string) error {
	idx.root = &node{}
	idx.rows = len(values)
	idx.keys = 0
	idx.rowNode = make([]*node, len(values))
	idx.size = 0

	for row, v := range values {
		idx.insert(v, uint32(row))
		idx.size += int64(len(v))
	}
	return nil
}

// In marks every row whose value appears in values.
func (idx *Index) In(values []string) *index.ResultSet {
	rs := index.NewResultSet(idx.rows)
	for _, v := range values {
		n := idx.root
		for i := 0; i < len(v) && n != nil; i++ {
			n = n.child(v[i])
		}
		if n != nil && n.terminal {
			for _, row := range n.rows {
				rs.Set(row)
			}
		}
	}
	return rs
}

// NotIn marks every row whose value does not appear in values.
func (idx *Index) NotIn(values []string) *index.ResultSet {
	return idx.In(values).Complement()
}

// Range marks every row within [lower, upper] honoring bound inclusivity.
func (idx *Index) Range(lower string, lowerInclusive bool, upper string, upperInclusive bool) *index.ResultSet {
	rs := index.NewResultSet(idx.rows)
	idx.walk(idx.root, "", func(key string, n *node) bool {
		if c := strings.Compare(key, lower); c < 0 || (c == 0 && !lowerInclusive) {
			return true
		}
		if c := strings.Compare(key, upper); c > 0 || (c == 0 && !upperInclusive) {
			return true
		}
		for _, row := range n.rows {
			rs.Set(row)
		}
		return true
	}, &upper)
	return rs
}

// RangeOp marks every row matching a one-sided comparison.
func (idx *Index) RangeOp(value string, op index.CompareOp) *index.ResultSet {
	rs := index.NewResultSet(idx.rows)

	var accept func(key string) bool
	var prune *string
	switch op {
	case index.OpLess:
		accept = func(key string) bool { return key < value }
		prune = &value
	case index.OpLessEqual:
		accept = func(key string) bool { return key <= value }
		prune = &value
	case index.OpGreater:
		accept = func(key string) bool { return key > value }
	case index.OpGreaterEqual:
		accept = func(key string) bool { return key >= value }
	default:
		return rs
	}

	idx.walk(idx.root, "", func(key string, n *node) bool {
		if accept(key) {
			for _, row := range n.rows {
				rs.Set(row)
			}
		}
		return true
	}, prune)
	return rs
}

// walk visits terminal nodes in lexicographic key order. When pruneAbove is
// non-nil, subtrees whose prefix already compares greater than it are
// skipped: every extension of a prefix sorts at or after the prefix itself,
// so nothing below can match. Returns false once fn stops the walk.
func (idx *Index) walk(n *node, prefix string, fn func(key string, n *node) bool, pruneAbove *string) bool {
	if pruneAbove != nil && prefix > *pruneAbove {
		return true
	}
	if n.terminal {
		if !fn(prefix, n) {
			return false
		}
	}
	for _, c := range n.children {
		if !idx.walk(c, prefix+string(c.label), fn, pruneAbove) {
			return false
		}
	}
	return true
}

// ReverseLookup returns the value stored at a row offset.
func (idx *Index) ReverseLookup(offset int) (string, error) {
	if offset < 0 || offset >= idx.rows {
		return "", &index.ErrOffsetOutOfRange{Offset: offset, Rows: idx.rows}
	}
	return idx.rowNode[offset].key(), nil
}

// Count returns the number of indexed rows.
func (idx *Index) Count() int {
	return idx.rows
}

// SizeInBytes returns the approximate in-memory footprint.
func (idx *Index) SizeInBytes() int64 {
	return idx.size + int64(4*idx.rows)
}

// HasRawData reports that the original column is recoverable.
func (idx *Index) HasRawData() bool {
	return true
}
