package trie

import (
	"fmt"

	"github.com/hupe1980/scalardex/index"
)

// dataBlobName is the single blob owned by the trie encoding.
const dataBlobName = "trie_index_data"

// Serialize emits the distinct keys in sorted order, each with its row
// offsets. The tree shape itself is not persisted; Load rebuilds it by
// reinsertion, which reproduces an identical trie because insertion order
// does not affect the structure.
func (idx *Index) Serialize() (index.BinarySet, error) {
	w := index.NewWriter()
	w.PutUint64(uint64(idx.rows))
	w.PutUint32(uint32(idx.keys))

	idx.walk(idx.root, "", func(key string, n *node) bool {
		w.PutBytes([]byte(key))
		w.PutUint32Slice(n.rows)
		return true
	}, nil)

	bs := make(index.BinarySet, 1)
	if err := bs.Append(dataBlobName, w.Bytes()); err != nil {
		return nil, err
	}
	return bs, nil
}

// Load reconstructs the index from blobs produced by Serialize.
func (idx *Index) Load(bs index.BinarySet) error {
	raw, ok := bs.Get(dataBlobName)
	if !ok {
		return fmt.Errorf("trie index: blob %q missing", dataBlobName)
	}

	r := index.NewReader(raw)
	rows, err := r.Uint64()
	if err != nil {
		return fmt.Errorf("trie index: read row count: %w", err)
	}
	keyCount, err := r.Uint32()
	if err != nil {
		return fmt.Errorf("trie index: read key count: %w", err)
	}

	idx.root = &node{}
	idx.rows = int(rows)
	idx.keys = 0
	idx.rowNode = make([]*node, rows)
	idx.size = 0

	for i := uint32(0); i < keyCount; i++ {
		keyRaw, err := r.Bytes()
		if err != nil {
			return fmt.Errorf("trie index: read key %d: %w", i, err)
		}
		offsets, err := r.Uint32Slice()
		if err != nil {
			return fmt.Errorf("trie index: read rows of key %d: %w", i, err)
		}
		key := string(keyRaw)
		for _, row := range offsets {
			if uint64(row) >= rows {
				return fmt.Errorf("trie index: row offset %d out of range", row)
			}
			if idx.rowNode[row] != nil {
				return fmt.Errorf("trie index: row offset %d assigned twice", row)
			}
			idx.insert(key, row)
		}
		idx.size += int64(len(key) * len(offsets))
	}

	for row, n := range idx.rowNode {
		if n == nil {
			return fmt.Errorf("trie index: row offset %d unassigned", row)
		}
	}
	if idx.keys != int(keyCount) {
		return fmt.Errorf("trie index: decoded %d keys, header says %d", idx.keys, keyCount)
	}
	return nil
}
