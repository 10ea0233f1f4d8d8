// Package scalardex provides an adaptive scalar attribute index. At build
// time it inspects the column and materializes one of several physically
// distinct encodings behind a single interface: a per-value bitmap index
// for low-cardinality columns, a prefix tree for high-cardinality strings,
// and a sorted column for everything else. A persisted index is
// self-describing; the loader recovers the chosen encoding from the bytes
// alone.
package scalardex

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/scalardex/index"
	"github.com/hupe1980/scalardex/index/bitmap"
	"github.com/hupe1980/scalardex/index/sorted"
	"github.com/hupe1980/scalardex/index/trie"
)

// Hybrid is an adaptive scalar index over a column of T.
//
// A Hybrid starts empty and becomes ready through exactly one successful
// Build or Load; the selected encoding never changes afterwards. Build and
// Load are one-time setup operations and must not race each other; all
// query methods are safe for concurrent use once the instance is ready.
type Hybrid[T index.Scalar] struct {
	opts options

	ready   atomic.Bool
	kind    index.Kind
	variant index.ScalarIndex[T]
}

// New creates an empty hybrid index.
func New[T index.Scalar](opts ...Option) *Hybrid[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Hybrid[T]{opts: o}
}

// newVariant constructs the encoding for kind.
func (h *Hybrid[T]) newVariant(kind index.Kind) (index.ScalarIndex[T], error) {
	switch kind {
	case index.KindBitmap:
		return bitmap.New[T](), nil
	case index.KindSorted:
		return sorted.New[T](), nil
	case index.KindTrie:
		v, ok := any(trie.New()).(index.ScalarIndex[T])
		if !ok {
			return nil, fmt.Errorf("%w: trie index requires string elements, got %s", ErrTypeMismatch, index.ElemKindOf[T]())
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown variant kind %d", ErrCorruptIndex, kind)
	}
}

// commit publishes the built or loaded variant. The field writes happen
// before the ready flag flips, so concurrent readers that observe ready
// also observe the variant.
func (h *Hybrid[T]) commit(kind index.Kind, v index.ScalarIndex[T]) {
	h.kind = kind
	h.variant = v
	h.ready.Store(true)
}

// Build selects an encoding for the column and populates it. values[i] is
// row i. Building an instance that is already ready fails with
// ErrAlreadyBuilt; a failed build leaves the instance not-ready.
func (h *Hybrid[T]) Build(values []T) error {
	return h.build(context.Background(), values)
}

func (h *Hybrid[T]) build(ctx context.Context, values []T) error {
	if h.ready.Load() {
		return ErrAlreadyBuilt
	}

	distinct := distinctCount(values)
	kind := selectKind(distinct, len(values), index.ElemKindOf[T](), h.opts.cardinalityLimit)

	v, err := h.newVariant(kind)
	if err != nil {
		return err
	}
	if err := v.Build(values); err != nil {
		err = &ErrBuildFailed{Kind: kind, cause: err}
		h.opts.logger.LogBuild(ctx, kind, len(values), distinct, err)
		return err
	}

	h.commit(kind, v)
	h.opts.logger.LogBuild(ctx, kind, len(values), distinct, nil)
	return nil
}

// Load reconstructs the index from blobs previously produced by Serialize.
// The reserved descriptor blob is decoded first; it alone determines which
// encoding is instantiated. Loading an instance that is already ready fails
// with ErrAlreadyReady; any validation failure leaves the instance
// not-ready.
func (h *Hybrid[T]) Load(bs index.BinarySet) error {
	return h.load(context.Background(), bs)
}

func (h *Hybrid[T]) load(ctx context.Context, bs index.BinarySet) error {
	if h.ready.Load() {
		return ErrAlreadyReady
	}

	raw, ok := bs.Get(index.DescriptorKey)
	if !ok {
		return fmt.Errorf("%w: descriptor blob %q missing", ErrCorruptIndex, index.DescriptorKey)
	}
	desc, err := index.UnmarshalDescriptor(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}
	if elem := index.ElemKindOf[T](); desc.Elem != elem {
		return fmt.Errorf("%w: index was built over %s, loading as %s", ErrTypeMismatch, desc.Elem, elem)
	}

	v, err := h.newVariant(desc.Kind)
	if err != nil {
		return err
	}
	if err := v.Load(bs.WithoutDescriptor()); err != nil {
		err = fmt.Errorf("%w: %w", ErrCorruptIndex, err)
		h.opts.logger.LogLoad(ctx, desc.Kind, 0, err)
		return err
	}
	if got := v.Count(); uint64(got) != desc.Rows {
		err := fmt.Errorf("%w: variant loaded %d rows, descriptor records %d", ErrCorruptIndex, got, desc.Rows)
		h.opts.logger.LogLoad(ctx, desc.Kind, got, err)
		return err
	}

	h.commit(desc.Kind, v)
	h.opts.logger.LogLoad(ctx, desc.Kind, v.Count(), nil)
	return nil
}

// Serialize emits the index as named blobs: the descriptor under the
// reserved key plus whatever the variant itself produces. The caller owns
// the returned set.
func (h *Hybrid[T]) Serialize() (index.BinarySet, error) {
	if !h.ready.Load() {
		return nil, ErrNotReady
	}

	bs, err := h.variant.Serialize()
	if err != nil {
		return nil, err
	}

	desc := index.Descriptor{
		Kind: h.kind,
		Elem: index.ElemKindOf[T](),
		Rows: uint64(h.variant.Count()),
	}
	raw, err := desc.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := bs.Append(index.DescriptorKey, raw); err != nil {
		return nil, fmt.Errorf("variant emitted reserved blob name: %w", err)
	}
	return bs, nil
}

// Kind returns the selected encoding, or KindNone before Build/Load.
func (h *Hybrid[T]) Kind() index.Kind {
	if !h.ready.Load() {
		return index.KindNone
	}
	return h.kind
}

// IsReady reports whether the index completed a Build or Load.
func (h *Hybrid[T]) IsReady() bool {
	return h.ready.Load()
}

// In marks every row whose value appears in values.
func (h *Hybrid[T]) In(values []T) (*index.ResultSet, error) {
	if !h.ready.Load() {
		return nil, ErrNotReady
	}
	return h.variant.In(values), nil
}

// NotIn marks every row whose value does not appear in values.
func (h *Hybrid[T]) NotIn(values []T) (*index.ResultSet, error) {
	if !h.ready.Load() {
		return nil, ErrNotReady
	}
	return h.variant.NotIn(values), nil
}

// Range marks every row within [lower, upper] honoring bound inclusivity.
func (h *Hybrid[T]) Range(lower T, lowerInclusive bool, upper T, upperInclusive bool) (*index.ResultSet, error) {
	if !h.ready.Load() {
		return nil, ErrNotReady
	}
	return h.variant.Range(lower, lowerInclusive, upper, upperInclusive), nil
}

// RangeOp marks every row matching a one-sided comparison.
func (h *Hybrid[T]) RangeOp(value T, op index.CompareOp) (*index.ResultSet, error) {
	if !h.ready.Load() {
		return nil, ErrNotReady
	}
	return h.variant.RangeOp(value, op), nil
}

// ReverseLookup returns the value stored at a row offset.
func (h *Hybrid[T]) ReverseLookup(offset int) (T, error) {
	if !h.ready.Load() {
		var zero T
		return zero, ErrNotReady
	}
	return h.variant.ReverseLookup(offset)
}

// Count returns the number of indexed rows.
func (h *Hybrid[T]) Count() (int, error) {
	if !h.ready.Load() {
		return 0, ErrNotReady
	}
	return h.variant.Count(), nil
}

// SizeInBytes returns the approximate in-memory footprint of the variant.
func (h *Hybrid[T]) SizeInBytes() (int64, error) {
	if !h.ready.Load() {
		return 0, ErrNotReady
	}
	return h.variant.SizeInBytes(), nil
}

// HasRawData reports whether the original column is recoverable from the
// variant.
func (h *Hybrid[T]) HasRawData() (bool, error) {
	if !h.ready.Load() {
		return false, ErrNotReady
	}
	return h.variant.HasRawData(), nil
}
