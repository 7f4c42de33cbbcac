package tensorop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/translate"
	"github.com/fhelipe-compiler/fhelipe-sub001/utils"
)

// TReduceDimC sums a size-1-in-the-output dimension away, by repeatedly
// halving the distance between a chunk and its partner and adding them
// (the raw-shift "butterfly"), then resizing down to outputLayout.
// Grounded on t_reduce_dim_c.cc.
type TReduceDimC struct {
	inputLayout  layout.TensorLayout
	outputLayout layout.TensorLayout
	dimension    int
}

// NewTReduceDimC validates that outputLayout's shape matches inputLayout's
// except dimension, which must collapse to size 1.
func NewTReduceDimC(input, output layout.TensorLayout, dimension int) (TReduceDimC, error) {
	shape := input.Shape()
	if dimension < 0 || dimension >= shape.Rank() {
		return TReduceDimC{}, fmt.Errorf("cannot NewTReduceDimC: dimension %d out of range [0,%d)", dimension, shape.Rank())
	}
	if output.Shape().Dim(dimension) != 1 {
		return TReduceDimC{}, fmt.Errorf("cannot NewTReduceDimC: output dimension %d has size %d, want 1", dimension, output.Shape().Dim(dimension))
	}
	if output.Shape().Rank() != shape.Rank() {
		return TReduceDimC{}, fmt.Errorf("cannot NewTReduceDimC: rank mismatch %d vs %d", shape.Rank(), output.Shape().Rank())
	}
	for d := 0; d < shape.Rank(); d++ {
		if d != dimension && shape.Dim(d) != output.Shape().Dim(d) {
			return TReduceDimC{}, fmt.Errorf("cannot NewTReduceDimC: dimension %d differs between input (%d) and output (%d)", d, shape.Dim(d), output.Shape().Dim(d))
		}
	}
	return TReduceDimC{inputLayout: input, outputLayout: output, dimension: dimension}, nil
}

func (t TReduceDimC) InputLayout() layout.TensorLayout  { return t.inputLayout }
func (t TReduceDimC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TReduceDimC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TReduceDimC) DimensionToReduce() int            { return t.dimension }

func (t TReduceDimC) BackendMaskDepth() int {
	return mustNewTResizeDimC(t.inputLayout, t.outputLayout).BackendMaskDepth()
}

func (t TReduceDimC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	result := singleInput(inputs)
	shape := t.inputLayout.Shape()
	bits := utils.CeilLog2(shape.Dim(t.dimension))

	// First reduce bits outside chunks, most significant first.
	for bitIdx := bits - 1; bitIdx >= 0; bitIdx-- {
		dimBit := tensor.NewDimensionBit(t.dimension, bitIdx)
		if _, ok := t.inputLayout.BoundPosition(dimBit); ok {
			continue
		}
		shiftBit := newRawShiftBit(dimBit, -1)
		result = doRawShift(b, result, shiftBit)
		chunks := make([]LaidOutChunk, len(result.Chunks))
		for i, c := range result.Chunks {
			if !wrapsAround(shiftBit, c.Offset) {
				chunks[i] = LaidOutChunk{Layout: c.Layout, Offset: c.Offset, Payload: b.ZeroLike(c.Payload)}
			} else {
				chunks[i] = c
			}
		}
		result.Chunks = chunks
	}

	// ...then reduce bits inside chunks.
	for bitIdx := bits - 1; bitIdx >= 0; bitIdx-- {
		dimBit := tensor.NewDimensionBit(t.dimension, bitIdx)
		if _, ok := t.inputLayout.BoundPosition(dimBit); !ok {
			continue
		}
		shiftBit := newRawShiftBit(dimBit, -1)
		result = doRawShift(b, result, shiftBit)
	}

	resized := mustNewTResizeDimC(t.inputLayout, t.outputLayout)
	return resized.AmendCtProgram(b, []LaidOutTensorCt{result})
}

func (t TReduceDimC) Equal(other TOp) bool {
	o, ok := other.(TReduceDimC)
	return ok && t.inputLayout.Equal(o.inputLayout) && t.outputLayout.Equal(o.outputLayout) && t.dimension == o.dimension
}

func (t TReduceDimC) String() string {
	return fmt.Sprintf("TReduceDimC(%s,dim=%d)", t.inputLayout.Shape(), t.dimension)
}

// TReplicateDimC broadcasts a size-1 input dimension to size multiple, by
// repeatedly doubling the distance between a chunk and its copy (the same
// raw-shift butterfly as TReduceDimC, run with direction +1). Grounded on
// t_replicate_dim_c.cc.
type TReplicateDimC struct {
	inputLayout  layout.TensorLayout
	outputLayout layout.TensorLayout
	dimension    int
	multiple     int
}

// NewTReplicateDimC validates that inputLayout's dimension is size 1,
// outputLayout's is size multiple, and every other dimension matches.
func NewTReplicateDimC(input, output layout.TensorLayout, dimension, multiple int) (TReplicateDimC, error) {
	shape := input.Shape()
	if dimension < 0 || dimension >= shape.Rank() {
		return TReplicateDimC{}, fmt.Errorf("cannot NewTReplicateDimC: dimension %d out of range [0,%d)", dimension, shape.Rank())
	}
	if multiple < 1 {
		return TReplicateDimC{}, fmt.Errorf("cannot NewTReplicateDimC: multiple %d must be >= 1", multiple)
	}
	if shape.Dim(dimension) != 1 {
		return TReplicateDimC{}, fmt.Errorf("cannot NewTReplicateDimC: input dimension %d has size %d, want 1", dimension, shape.Dim(dimension))
	}
	if output.Shape().Dim(dimension) != multiple {
		return TReplicateDimC{}, fmt.Errorf("cannot NewTReplicateDimC: output dimension %d has size %d, want %d", dimension, output.Shape().Dim(dimension), multiple)
	}
	if output.Shape().Rank() != shape.Rank() {
		return TReplicateDimC{}, fmt.Errorf("cannot NewTReplicateDimC: rank mismatch %d vs %d", shape.Rank(), output.Shape().Rank())
	}
	for d := 0; d < shape.Rank(); d++ {
		if d != dimension && shape.Dim(d) != output.Shape().Dim(d) {
			return TReplicateDimC{}, fmt.Errorf("cannot NewTReplicateDimC: dimension %d differs between input (%d) and output (%d)", d, shape.Dim(d), output.Shape().Dim(d))
		}
	}
	return TReplicateDimC{inputLayout: input, outputLayout: output, dimension: dimension, multiple: multiple}, nil
}

func (t TReplicateDimC) InputLayout() layout.TensorLayout  { return t.inputLayout }
func (t TReplicateDimC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TReplicateDimC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TReplicateDimC) DimensionToReplicate() int         { return t.dimension }
func (t TReplicateDimC) Multiple() int                     { return t.multiple }

// canSkipResize reports whether every chunk offset of inputLayout has a
// matching offset (by dimension indices) in outputLayout, letting
// AmendCtProgram relabel chunks directly instead of paying for a masked
// resize pass.
func (t TReplicateDimC) canSkipResize() bool {
	outOffsets := t.outputLayout.ChunkOffsets()
	for _, in := range t.inputLayout.ChunkOffsets() {
		found := false
		for _, out := range outOffsets {
			if dimsEqual(in.Dims(), out.Dims()) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func dimsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (t TReplicateDimC) BackendMaskDepth() int {
	skip := t.canSkipResize()
	pow2 := utils.IsPowerOfTwo(t.multiple)
	switch {
	case skip && pow2:
		return 0
	case pow2:
		return mustNewTResizeDimC(t.inputLayout, t.outputLayout).BackendMaskDepth()
	case skip:
		return 1
	default:
		return 1 + mustNewTResizeDimC(t.inputLayout, t.outputLayout).BackendMaskDepth()
	}
}

func (t TReplicateDimC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	outputLayout := t.outputLayout

	var result LaidOutTensorCt
	if t.canSkipResize() {
		sum := translate.ZeroLaidOutTensor(b, input.Chunks[0].Payload, outputLayout)
		for _, c := range input.Chunks {
			for i, sc := range sum.Chunks {
				if dimsEqual(sc.Offset.Dims(), c.Offset.Dims()) {
					sum.Chunks[i] = LaidOutChunk{Layout: outputLayout, Offset: sc.Offset, Payload: c.Payload}
					break
				}
			}
		}
		result = sum
	} else {
		resized := mustNewTResizeDimC(t.inputLayout, t.outputLayout)
		result = resized.AmendCtProgram(b, []LaidOutTensorCt{input})
	}

	newShape := outputLayout.Shape()
	oldShape := t.inputLayout.Shape()
	hi := utils.CeilLog2(newShape.Dim(t.dimension)) - 1
	lo := utils.CeilLog2(oldShape.Dim(t.dimension))

	// First replicate bits inside the chunk.
	for bitIdx := hi; bitIdx >= lo; bitIdx-- {
		dimBit := tensor.NewDimensionBit(t.dimension, bitIdx)
		if _, ok := outputLayout.BoundPosition(dimBit); !ok {
			continue
		}
		result = doRawShift(b, result, newRawShiftBit(dimBit, 1))
	}
	// ...then replicate bits outside the chunk.
	for bitIdx := hi; bitIdx >= lo; bitIdx-- {
		dimBit := tensor.NewDimensionBit(t.dimension, bitIdx)
		if _, ok := outputLayout.BoundPosition(dimBit); ok {
			continue
		}
		result = doRawShift(b, result, newRawShiftBit(dimBit, 1))
	}

	if utils.IsPowerOfTwo(t.multiple) {
		return result
	}
	return translate.ApplyMask(b, result, translate.MaskAllInvalidSlots(result.Layout), 0)
}

func (t TReplicateDimC) Equal(other TOp) bool {
	o, ok := other.(TReplicateDimC)
	return ok && t.inputLayout.Equal(o.inputLayout) && t.outputLayout.Equal(o.outputLayout) &&
		t.dimension == o.dimension && t.multiple == o.multiple
}

func (t TReplicateDimC) String() string {
	return fmt.Sprintf("TReplicateDimC(%s,dim=%d,x%d)", t.inputLayout.Shape(), t.dimension, t.multiple)
}
