package scalardex

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scalardex/index"
)

func TestSelectKind(t *testing.T) {
	tests := []struct {
		name     string
		distinct int
		rows     int
		elem     index.ElemKind
		limit    int
		want     index.Kind
	}{
		{name: "empty column", distinct: 0, rows: 0, elem: index.ElemInt64, limit: 8, want: index.KindSorted},
		{name: "low cardinality numeric", distinct: 3, rows: 1000, elem: index.ElemInt64, limit: 8, want: index.KindBitmap},
		{name: "low cardinality string", distinct: 3, rows: 1000, elem: index.ElemString, limit: 8, want: index.KindBitmap},
		{name: "at limit", distinct: 8, rows: 1000, elem: index.ElemInt64, limit: 8, want: index.KindBitmap},
		{name: "above limit numeric", distinct: 9, rows: 1000, elem: index.ElemInt64, limit: 8, want: index.KindSorted},
		{name: "above limit string", distinct: 9, rows: 1000, elem: index.ElemString, limit: 8, want: index.KindTrie},
		{name: "above limit float", distinct: 500, rows: 1000, elem: index.ElemFloat64, limit: 8, want: index.KindSorted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectKind(tt.distinct, tt.rows, tt.elem, tt.limit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelection_PermutationInvariant(t *testing.T) {
	column := make([]int64, 0, 600)
	for i := 0; i < 600; i++ {
		column = append(column, int64(i%40))
	}

	rng := rand.New(rand.NewSource(1))

	var want index.Kind
	for trial := 0; trial < 5; trial++ {
		rng.Shuffle(len(column), func(i, j int) {
			column[i], column[j] = column[j], column[i]
		})

		h := New[int64](WithCardinalityLimit(64))
		require.NoError(t, h.Build(column))

		if trial == 0 {
			want = h.Kind()
		}
		assert.Equal(t, want, h.Kind())
	}
	assert.Equal(t, index.KindBitmap, want)
}

func TestSelection_ThresholdBoundary(t *testing.T) {
	const limit = 16

	distinctInts := func(n int) []int64 {
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(i)
		}
		return out
	}

	t.Run("exactly at limit selects bitmap", func(t *testing.T) {
		h := New[int64](WithCardinalityLimit(limit))
		require.NoError(t, h.Build(distinctInts(limit)))
		assert.Equal(t, index.KindBitmap, h.Kind())
	})

	t.Run("one above limit selects sorted for numerics", func(t *testing.T) {
		h := New[int64](WithCardinalityLimit(limit))
		require.NoError(t, h.Build(distinctInts(limit+1)))
		assert.Equal(t, index.KindSorted, h.Kind())
	})

	t.Run("one above limit selects trie for strings", func(t *testing.T) {
		column := make([]string, limit+1)
		for i := range column {
			column[i] = string(rune('a'+i%26)) + string(rune('a'+i/26))
		}
		h := New[string](WithCardinalityLimit(limit))
		require.NoError(t, h.Build(column))
		assert.Equal(t, index.KindTrie, h.Kind())
	})
}

func TestSelection_LargeDistinctNumeric(t *testing.T) {
	column := make([]int64, 1000)
	for i := range column {
		column[i] = int64(i)
	}

	h := New[int64](WithCardinalityLimit(16))
	require.NoError(t, h.Build(column))
	assert.Equal(t, index.KindSorted, h.Kind())
}
