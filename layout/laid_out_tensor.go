package layout

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// LaidOutChunk pairs one chunk offset of a TensorLayout with its payload:
// a ciphertext node, a plaintext vector, or a ChunkIr, depending on the
// instantiation.
type LaidOutChunk[T any] struct {
	Layout  TensorLayout
	Offset  tensor.TensorIndex
	Payload T
}

// LaidOutTensor is a TensorLayout plus exactly Layout.TotalChunks() chunks,
// each at a distinct offset drawn from Layout.ChunkOffsets(), stored in
// ascending offset order.
type LaidOutTensor[T any] struct {
	Layout TensorLayout
	Chunks []LaidOutChunk[T]
}

// NewLaidOutTensor validates that chunks cover exactly Layout.ChunkOffsets()
// (one each, no duplicates) and returns them sorted into ascending offset
// order.
func NewLaidOutTensor[T any](l TensorLayout, chunks []LaidOutChunk[T]) (LaidOutTensor[T], error) {
	offsets := l.ChunkOffsets()
	if len(chunks) != len(offsets) {
		return LaidOutTensor[T]{}, fmt.Errorf("cannot NewLaidOutTensor: got %d chunks, layout has %d offsets", len(chunks), len(offsets))
	}

	byFlat := make(map[int]LaidOutChunk[T], len(chunks))
	for _, c := range chunks {
		if !c.Layout.Equal(l) {
			return LaidOutTensor[T]{}, fmt.Errorf("cannot NewLaidOutTensor: chunk layout mismatch")
		}
		if _, dup := byFlat[c.Offset.Flat()]; dup {
			return LaidOutTensor[T]{}, fmt.Errorf("cannot NewLaidOutTensor: duplicate offset %s", c.Offset)
		}
		byFlat[c.Offset.Flat()] = c
	}

	ordered := make([]LaidOutChunk[T], len(offsets))
	for i, off := range offsets {
		c, ok := byFlat[off.Flat()]
		if !ok {
			return LaidOutTensor[T]{}, fmt.Errorf("cannot NewLaidOutTensor: missing chunk at offset %s", off)
		}
		ordered[i] = c
	}

	return LaidOutTensor[T]{Layout: l, Chunks: ordered}, nil
}

// Map applies f to every chunk's payload, returning a new LaidOutTensor
// over the same layout and offsets.
func Map[T, U any](lt LaidOutTensor[T], f func(LaidOutChunk[T]) U) LaidOutTensor[U] {
	out := make([]LaidOutChunk[U], len(lt.Chunks))
	for i, c := range lt.Chunks {
		out[i] = LaidOutChunk[U]{Layout: c.Layout, Offset: c.Offset, Payload: f(c)}
	}
	return LaidOutTensor[U]{Layout: lt.Layout, Chunks: out}
}

// ChunkAt returns the chunk whose offset equals off, and whether it was
// found (it always is for a well-formed LaidOutTensor and an offset drawn
// from the same layout).
func (lt LaidOutTensor[T]) ChunkAt(off tensor.TensorIndex) (LaidOutChunk[T], bool) {
	for _, c := range lt.Chunks {
		if c.Offset.Equal(off) {
			return c, true
		}
	}
	return LaidOutChunk[T]{}, false
}
