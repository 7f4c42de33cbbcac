// Package layout implements the tiled tensor layout algebra: binding tensor
// coordinates to ciphertext slots via a bit-level assignment of tensor
// dimensions to slot bits, and the derived chunk-offset/slot-index
// enumerations every higher pass builds on.
package layout

import (
	"fmt"
	"sync"

	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// TensorLayout binds an N-element tensor's coordinates to the slots of
// ceil(N / chunkSize) ciphertexts. ChunkBits is an ordered sequence, one
// entry per slot-index bit (length k = log2(chunk size)); each entry either
// names the tensor dimension bit occupying that slot-index bit position, or
// is unbound (nil).
type TensorLayout struct {
	shape     tensor.Shape
	chunkBits []*tensor.DimensionBit

	// offsetBits are the per-dimension bits NOT appearing in chunkBits;
	// these index which chunk a tensor index falls into. Derived once at
	// construction and kept for the chunk_offsets enumeration.
	offsetBits []tensor.DimensionBit
}

// New validates (shape, chunkBits) and returns a TensorLayout.
//
// Invariants enforced (§4.B): no two bound entries may name the same
// DimensionBit; every bound DimensionBit(d,b) must satisfy b <
// ceil(log2(shape.Dim(d))).
func New(shape tensor.Shape, chunkBits []*tensor.DimensionBit) (TensorLayout, error) {
	seen := map[tensor.DimensionBit]bool{}
	for _, b := range chunkBits {
		if b == nil {
			continue
		}
		if b.BitIndex >= bitsFor(shape.Dim(b.Dimension)) {
			return TensorLayout{}, fmt.Errorf("cannot layout.New: bit %s exceeds ceil(log2(shape[%d]=%d))", b, b.Dimension, shape.Dim(b.Dimension))
		}
		if seen[*b] {
			return TensorLayout{}, fmt.Errorf("cannot layout.New: duplicate chunk bit %s", b)
		}
		seen[*b] = true
	}

	var offsetBits []tensor.DimensionBit
	for d := 0; d < shape.Rank(); d++ {
		for bi := 0; bi < bitsFor(shape.Dim(d)); bi++ {
			db := tensor.NewDimensionBit(d, bi)
			if !seen[db] {
				offsetBits = append(offsetBits, db)
			}
		}
	}

	cp := make([]*tensor.DimensionBit, len(chunkBits))
	for i, b := range chunkBits {
		if b != nil {
			v := *b
			cp[i] = &v
		}
	}

	return TensorLayout{shape: shape, chunkBits: cp, offsetBits: offsetBits}, nil
}

// bitsFor returns ceil(log2(n)) for n >= 1 (0 for n == 1).
func bitsFor(n int) int {
	b := 0
	for (1 << b) < n {
		b++
	}
	return b
}

// Shape returns the tensor's shape.
func (l TensorLayout) Shape() tensor.Shape { return l.shape }

// ChunkBits returns the ordered, possibly-nil slot-bit bindings.
func (l TensorLayout) ChunkBits() []*tensor.DimensionBit {
	cp := make([]*tensor.DimensionBit, len(l.chunkBits))
	for i, b := range l.chunkBits {
		if b != nil {
			v := *b
			cp[i] = &v
		}
	}
	return cp
}

// ChunkSize returns 2^len(ChunkBits()).
func (l TensorLayout) ChunkSize() tensor.ChunkSize {
	return tensor.ChunkSize(1 << len(l.chunkBits))
}

// TotalChunks returns ceil(N / ChunkSize()), computed exactly as the length
// of ChunkOffsets().
func (l TensorLayout) TotalChunks() int {
	return len(l.ChunkOffsets())
}

// Equal reports structural equality: same shape and same chunk-bit
// bindings in the same positions.
func (l TensorLayout) Equal(other TensorLayout) bool {
	if !l.shape.Equal(other.shape) || len(l.chunkBits) != len(other.chunkBits) {
		return false
	}
	for i := range l.chunkBits {
		a, b := l.chunkBits[i], other.chunkBits[i]
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && !a.Equal(*b) {
			return false
		}
	}
	return true
}

func (l TensorLayout) key() string {
	s := fmt.Sprintf("%v|", l.shape.Dims())
	for _, b := range l.chunkBits {
		if b == nil {
			s += "_,"
		} else {
			s += fmt.Sprintf("%d.%d,", b.Dimension, b.BitIndex)
		}
	}
	return s
}

// boundPosition reports whether DimensionBit db is bound to some slot-bit
// position, and if so, which one.
func (l TensorLayout) boundPosition(db tensor.DimensionBit) (pos int, ok bool) {
	for i, b := range l.chunkBits {
		if b != nil && b.Equal(db) {
			return i, true
		}
	}
	return 0, false
}

// BoundPosition reports the slot-bit position db is bound to. When db is
// not bound in this layout (an "offset bit"), ok is false and pos is
// len(ChunkBits()) — the position one past the end, matching a linear scan
// that fails to find db: callers that use pos as a rotate-by exponent get a
// rotate-by congruent to 0 mod ChunkSize(), a harmless no-op.
func (l TensorLayout) BoundPosition(db tensor.DimensionBit) (pos int, ok bool) {
	if p, ok := l.boundPosition(db); ok {
		return p, true
	}
	return len(l.chunkBits), false
}

var (
	chunkOffsetsCache   sync.Map // key string -> []tensor.TensorIndex
	tensorIndicesCache  sync.Map // key string+offset flat -> []*tensor.TensorIndex
)

// ChunkOffsets enumerates the lexicographically-ordered list of chunk base
// indices, one per chunk (§4.B). Memoized per layout.
func (l TensorLayout) ChunkOffsets() []tensor.TensorIndex {
	if v, ok := chunkOffsetsCache.Load(l.key()); ok {
		return v.([]tensor.TensorIndex)
	}

	m := len(l.offsetBits)
	var offsets []tensor.TensorIndex
	for subset := 0; subset < (1 << m); subset++ {
		dims := make([]int, l.shape.Rank())
		for i, b := range l.offsetBits {
			if subset&(1<<i) != 0 {
				dims[b.Dimension] += 1 << b.BitIndex
			}
		}
		if l.shape.Contains(dims) {
			ti, err := tensor.NewTensorIndex(l.shape, dims)
			if err != nil {
				panic(fmt.Sprintf("internal invariant violation: ChunkOffsets built out-of-range index: %v", err))
			}
			offsets = append(offsets, ti)
		}
	}

	chunkOffsetsCache.Store(l.key(), offsets)
	return offsets
}

// TensorIndices reconstructs, for each slot 0..chunkSize-1 of the chunk
// based at offset, the tensor index occupying that slot, or nil if the slot
// is invalid (out of range for the shape). Memoized per (layout, offset).
func (l TensorLayout) TensorIndices(offset tensor.TensorIndex) []*tensor.TensorIndex {
	cacheKey := l.key() + fmt.Sprintf("@%d", offset.Flat())
	if v, ok := tensorIndicesCache.Load(cacheKey); ok {
		return v.([]*tensor.TensorIndex)
	}

	size := int(l.ChunkSize())
	out := make([]*tensor.TensorIndex, size)
	for slot := 0; slot < size; slot++ {
		dims := offset.Dims()
		for i, b := range l.chunkBits {
			if b == nil {
				continue
			}
			if slot&(1<<i) != 0 {
				dims[b.Dimension] += 1 << b.BitIndex
			}
		}
		if l.shape.Contains(dims) {
			ti, err := tensor.NewTensorIndex(l.shape, dims)
			if err != nil {
				panic(fmt.Sprintf("internal invariant violation: TensorIndices built out-of-range index: %v", err))
			}
			out[slot] = &ti
		}
	}

	tensorIndicesCache.Store(cacheKey, out)
	return out
}

// ChunkIndexAt returns the slot index within its chunk that ti occupies.
func (l TensorLayout) ChunkIndexAt(ti tensor.TensorIndex) int {
	idx := 0
	for i, b := range l.chunkBits {
		if b == nil {
			continue
		}
		bit := (ti.Dim(b.Dimension) >> b.BitIndex) & 1
		idx |= bit << i
	}
	return idx
}

// ChunkOffsetAt returns the chunk-base TensorIndex (the offset) that ti
// belongs to: ti with every bound chunk-bit cleared.
func (l TensorLayout) ChunkOffsetAt(ti tensor.TensorIndex) tensor.TensorIndex {
	dims := ti.Dims()
	for _, b := range l.chunkBits {
		if b == nil {
			continue
		}
		dims[b.Dimension] &^= 1 << b.BitIndex
	}
	out, err := tensor.NewTensorIndex(l.shape, dims)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: ChunkOffsetAt produced invalid index: %v", err))
	}
	return out
}

// ChunkNumberAt returns the ordinal position of ti's chunk within
// ChunkOffsets().
func (l TensorLayout) ChunkNumberAt(ti tensor.TensorIndex) int {
	offset := l.ChunkOffsetAt(ti)
	for n, o := range l.ChunkOffsets() {
		if o.Equal(offset) {
			return n
		}
	}
	panic("internal invariant violation: ChunkNumberAt: offset not found among ChunkOffsets")
}
