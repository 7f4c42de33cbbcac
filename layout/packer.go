package layout

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// Packer is the external layout-choice policy's interface: given a shape
// and a target chunk size, produce a TensorLayout. Layout ranking/choice is
// explicitly out of scope for this module (spec.md §1); Packer exists only
// so rewriters and tests have something to request a layout from.
type Packer interface {
	Pack(shape tensor.Shape, chunkSize tensor.ChunkSize) (TensorLayout, error)
}

// RowMajorPacker binds the lowest log2(chunkSize) offset bits of the
// trailing dimensions, in row-major (last-dimension-first) order, to the
// chunk's slot-index bits. It is a reference implementation only — it
// makes no claim of being a cost-optimal packing (see
// original_source/backend/src/packer.cc, which this supplements).
type RowMajorPacker struct{}

// Pack implements Packer.
func (RowMajorPacker) Pack(shape tensor.Shape, chunkSize tensor.ChunkSize) (TensorLayout, error) {
	k := chunkSize.Log2()

	var bits []tensor.DimensionBit
	for d := shape.Rank() - 1; d >= 0 && len(bits) < k; d-- {
		nb := bitsFor(shape.Dim(d))
		for b := 0; b < nb && len(bits) < k; b++ {
			bits = append(bits, tensor.NewDimensionBit(d, b))
		}
	}
	if len(bits) < k {
		return TensorLayout{}, fmt.Errorf("cannot RowMajorPacker.Pack: shape %s has fewer than %d addressable bits", shape, k)
	}

	chunkBits := make([]*tensor.DimensionBit, k)
	for i := 0; i < k; i++ {
		b := bits[i]
		chunkBits[i] = &b
	}
	return New(shape, chunkBits)
}
