package tensorop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/translate"
)

// rawShiftBit names a single doubling step of TReduceDimC/TReplicateDimC's
// halving/doubling accumulate loop: move dimension bit dimBit one way
// (direction == -1, reduce) or the other (direction == +1, replicate).
// Grounded on original_source/backend/src/raw_shift_bit.{h,cc}.
type rawShiftBit struct {
	dimBit    tensor.DimensionBit
	direction int
}

func newRawShiftBit(dimBit tensor.DimensionBit, direction int) rawShiftBit {
	if direction != 1 && direction != -1 {
		panic("internal invariant violation: rawShiftBit: direction must be +-1")
	}
	return rawShiftBit{dimBit: dimBit, direction: direction}
}

// amount is the signed shift this bit applies to its dimension: +-2^bitIndex.
func (s rawShiftBit) amount() int {
	return s.direction * (1 << s.dimBit.BitIndex)
}

// shiftDiff builds the DiffTensorIndex that moves only dimBit's dimension,
// by amount().
func (s rawShiftBit) shiftDiff(shape tensor.Shape) tensor.DiffTensorIndex {
	delta := make([]int, shape.Rank())
	delta[s.dimBit.Dimension] = s.amount()
	d, err := tensor.NewDiffTensorIndex(shape, delta)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: rawShiftBit.shiftDiff: %v", err))
	}
	return d
}

// wrapsAround reports whether shifting offset by shiftBit would leave its
// dimension's valid range.
func wrapsAround(shiftBit rawShiftBit, offset tensor.TensorIndex) bool {
	dim := shiftBit.dimBit.Dimension
	v := offset.Dim(dim) + shiftBit.amount()
	return v < 0 || v >= offset.Shape().Dim(dim)
}

// isRawShiftInChunk reports whether shiftBit's dimension bit is bound
// within l's chunk (as opposed to being an offset bit selecting which
// chunk a tensor index falls into).
func isRawShiftInChunk(l layout.TensorLayout, shiftBit rawShiftBit) bool {
	_, ok := l.BoundPosition(shiftBit.dimBit)
	return ok
}

// rotateAmount is the raw ciphertext rotate-by this shift requires within
// a chunk: +-2^pos, where pos is shiftBit's dimension bit's position among
// l's chunk bits (or len(ChunkBits()) — a harmless rotate-by-multiple-of-
// chunk-size no-op — when the bit is an offset bit, not bound in the chunk
// at all).
func rotateAmount(l layout.TensorLayout, shiftBit rawShiftBit) int {
	pos, _ := l.BoundPosition(shiftBit.dimBit)
	return shiftBit.direction * (1 << pos)
}

// rawShiftedChunks reassigns chunks between chunk offsets by shiftBit's
// between-chunk component (a no-op, returning chunks unchanged, when
// shiftBit's bit is bound inside the chunk — there the within-chunk rotate
// already did the whole job). Chunks whose source offset would wrap around
// are dropped (the destination slot receives a shared ZeroC instead),
// mirroring RawShiftedChunks in raw_shift_acc.cc.
func rawShiftedChunks(b Builder, chunks []LaidOutChunk, shiftBit rawShiftBit, l layout.TensorLayout) []LaidOutChunk {
	if isRawShiftInChunk(l, shiftBit) {
		return chunks
	}

	shiftDiff := shiftBit.shiftDiff(l.Shape())
	zero := b.ZeroLike(chunks[0].Payload)

	byFlat := make(map[int]LaidOutChunk, len(chunks))
	for _, c := range chunks {
		byFlat[c.Offset.Flat()] = LaidOutChunk{Layout: l, Offset: c.Offset, Payload: zero}
	}
	for _, c := range chunks {
		if wrapsAround(shiftBit, c.Offset) {
			continue
		}
		destTi, err := shiftDiff.CyclicAdd(c.Offset)
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: rawShiftedChunks: %v", err))
		}
		destOffset := l.ChunkOffsetAt(destTi)
		byFlat[destOffset.Flat()] = LaidOutChunk{Layout: l, Offset: destOffset, Payload: c.Payload}
	}

	out := make([]LaidOutChunk, len(l.ChunkOffsets()))
	for i, off := range l.ChunkOffsets() {
		out[i] = byFlat[off.Flat()]
	}
	return out
}

// doRawShift performs one step of the halving/doubling accumulate loop:
// rotate every chunk within itself by shiftBit's within-chunk amount,
// reassign chunks between offsets by its between-chunk component, and sum
// the result back into input — the ciphertext-level "butterfly" both
// TReduceDimC and TReplicateDimC build their dimension-resize loops from.
// Grounded on DoRawShift in raw_shift_acc.cc.
func doRawShift(b Builder, input LaidOutTensorCt, shiftBit rawShiftBit) LaidOutTensorCt {
	rotated := translate.ApplyRotation(b, input.Chunks, rotateAmount(input.Layout, shiftBit))
	shuffled := rawShiftedChunks(b, rotated, shiftBit, input.Layout)
	summed := translate.SumCts(b, shuffled, input.Chunks)
	out, err := layout.NewLaidOutTensor(input.Layout, summed)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: doRawShift: %v", err))
	}
	return out
}
