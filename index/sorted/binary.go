package sorted

import (
	"fmt"

	"github.com/hupe1980/scalardex/index"
)

// dataBlobName is the single blob owned by the sorted encoding.
const dataBlobName = "sorted_index_data"

// Serialize emits the sorted (value, row) pairs. The row-ordered copy is not
// persisted; Load rebuilds it, since every row appears exactly once.
func (idx *Index[T]) Serialize() (index.BinarySet, error) {
	w := index.NewWriter()
	w.PutUint64(uint64(len(idx.raw)))
	index.EncodeColumn(w, idx.values)
	w.PutUint32Slice(idx.rows)

	bs := make(index.BinarySet, 1)
	if err := bs.Append(dataBlobName, w.Bytes()); err != nil {
		return nil, err
	}
	return bs, nil
}

// Load reconstructs the index from blobs produced by Serialize.
func (idx *Index[T]) Load(bs index.BinarySet) error {
	raw, ok := bs.Get(dataBlobName)
	if !ok {
		return fmt.Errorf("sorted index: blob %q missing", dataBlobName)
	}

	r := index.NewReader(raw)
	total, err := r.Uint64()
	if err != nil {
		return fmt.Errorf("sorted index: read row count: %w", err)
	}
	values, err := index.DecodeColumn[T](r)
	if err != nil {
		return fmt.Errorf("sorted index: read values: %w", err)
	}
	rows, err := r.Uint32Slice()
	if err != nil {
		return fmt.Errorf("sorted index: read rows: %w", err)
	}

	if uint64(len(values)) != total || len(values) != len(rows) {
		return fmt.Errorf("sorted index: inconsistent lengths: %d rows, %d values, %d offsets", total, len(values), len(rows))
	}

	rowOrder := make([]T, len(values))
	seen := make([]bool, len(values))
	for i, row := range rows {
		if int(row) >= len(values) || seen[row] {
			return fmt.Errorf("sorted index: invalid row offset %d", row)
		}
		seen[row] = true
		rowOrder[row] = values[i]
	}

	idx.values = values
	idx.rows = rows
	idx.raw = rowOrder
	return nil
}
