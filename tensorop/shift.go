package tensorop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/translate"
)

// TRotateC raw-rotates a single-chunk ciphertext tensor by rotateBy slots.
// Grounded on t_rotate_c.cc.
type TRotateC struct {
	layout   layout.TensorLayout
	rotateBy int
}

// NewTRotateC requires a single-chunk layout (a raw ciphertext rotate only
// makes sense within one chunk).
func NewTRotateC(l layout.TensorLayout, rotateBy int) (TRotateC, error) {
	if l.TotalChunks() != 1 {
		return TRotateC{}, fmt.Errorf("cannot NewTRotateC: layout must have exactly 1 chunk, got %d", l.TotalChunks())
	}
	return TRotateC{layout: l, rotateBy: rotateBy}, nil
}

func (t TRotateC) OutputLayout() layout.TensorLayout { return t.layout }
func (t TRotateC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TRotateC) BackendMaskDepth() int             { return 0 }
func (t TRotateC) RotateBy() int                     { return t.rotateBy }

func (t TRotateC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	if input.Layout.TotalChunks() != 1 {
		panic("internal invariant violation: TRotateC: input must have exactly 1 chunk")
	}
	c := input.Chunks[0]
	node := c.Payload
	if !b.IsZero(node) {
		node = b.RotateC(node, t.rotateBy)
	}
	out, err := layout.NewLaidOutTensor(t.layout, []LaidOutChunk{{Layout: t.layout, Offset: c.Offset, Payload: node}})
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TRotateC: %v", err))
	}
	return out
}

func (t TRotateC) Equal(other TOp) bool {
	o, ok := other.(TRotateC)
	return ok && t.layout.Equal(o.layout) && t.rotateBy == o.rotateBy
}

func (t TRotateC) String() string { return fmt.Sprintf("TRotateC(%s,by=%d)", t.layout.Shape(), t.rotateBy) }

func diffEqual(shape tensor.Shape, a, b tensor.DiffTensorIndex) bool {
	for d := 0; d < shape.Rank(); d++ {
		if a.Dim(d) != b.Dim(d) {
			return false
		}
	}
	return true
}

// TCyclicShiftC cyclically rotates a tensor's coordinates by rotateBy,
// wrapping around on every dimension. Always needs masking (depth 1),
// since the identity translation group a cyclic shift lowers to never
// collapses to a mask-free pass. Grounded on t_cyclic_shift_c.cc.
type TCyclicShiftC struct {
	layout   layout.TensorLayout
	rotateBy tensor.DiffTensorIndex
}

// NewTCyclicShiftC requires layout's input and output to coincide (a
// cyclic shift never changes layout).
func NewTCyclicShiftC(l layout.TensorLayout, rotateBy tensor.DiffTensorIndex) TCyclicShiftC {
	return TCyclicShiftC{layout: l, rotateBy: rotateBy}
}

func (t TCyclicShiftC) OutputLayout() layout.TensorLayout       { return t.layout }
func (t TCyclicShiftC) AddedLogScale() tensor.LogScale          { return 0 }
func (t TCyclicShiftC) BackendMaskDepth() int                   { return 1 }
func (t TCyclicShiftC) DiffTensorIndex() tensor.DiffTensorIndex { return t.rotateBy }

func (t TCyclicShiftC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	masks := translate.MakeTranslationMasks(t.layout, t.layout, func(ti tensor.TensorIndex) (tensor.TensorIndex, bool) {
		out, err := t.rotateBy.CyclicAdd(ti)
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: TCyclicShiftC: %v", err))
		}
		return out, true
	})
	return translate.ApplyTranslationMasks(b, input, masks, t.layout, 0)
}

func (t TCyclicShiftC) Equal(other TOp) bool {
	o, ok := other.(TCyclicShiftC)
	return ok && t.layout.Equal(o.layout) && diffEqual(t.layout.Shape(), t.rotateBy, o.rotateBy)
}

func (t TCyclicShiftC) String() string { return fmt.Sprintf("TCyclicShiftC(%s)", t.layout.Shape()) }

// TUnpaddedShiftC shifts a tensor's coordinates by rotateBy without
// wrap-around: indices that would leave the shape's bounds vanish rather
// than reappearing on the other side. Unlike TCyclicShiftC, this shift can
// often skip masking entirely (BackendMaskDepth 0) when every value an
// unmasked rotation would carry to a position the mask zeroes lands on an
// invalid slot of the destination layout. Grounded on t_unpadded_shift_c.cc.
type TUnpaddedShiftC struct {
	layout           layout.TensorLayout
	rotateBy         tensor.DiffTensorIndex
	translationMasks []translate.TranslationMask
}

// NewTUnpaddedShiftC precomputes the translation masks for rotateBy against
// l, mirroring the source's eager construction-time (and SetLayouts-time)
// computation.
func NewTUnpaddedShiftC(l layout.TensorLayout, rotateBy tensor.DiffTensorIndex) TUnpaddedShiftC {
	masks := translate.MakeTranslationMasks(l, l, func(ti tensor.TensorIndex) (tensor.TensorIndex, bool) {
		return rotateBy.NonCyclicAdd(ti)
	})
	return TUnpaddedShiftC{layout: l, rotateBy: rotateBy, translationMasks: masks}
}

func (t TUnpaddedShiftC) OutputLayout() layout.TensorLayout       { return t.layout }
func (t TUnpaddedShiftC) AddedLogScale() tensor.LogScale          { return 0 }
func (t TUnpaddedShiftC) RotateBy() tensor.DiffTensorIndex        { return t.rotateBy }

func (t TUnpaddedShiftC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	if t.BackendMaskDepth() > 0 {
		return translate.ApplyTranslationMasks(b, input, t.translationMasks, t.layout, 0)
	}
	return translate.ApplyTranslationsButNotMasks(b, input, t.translationMasks, t.layout)
}

// BackendMaskDepth reports whether masking can be skipped: it returns 1 as
// soon as a valid source slot whose mask value is 0 would be rotated onto a
// valid destination slot (an unmasked rotation would leave a stray value
// there), and 0 when every such slot lands on an invalid destination slot.
// Structural-zero mask chunks are skipped, and the chunk-number counter only
// advances past chunks that held a genuine, non-structural-zero mask.
func (t TUnpaddedShiftC) BackendMaskDepth() int {
	chunkSize := int(t.layout.ChunkSize())
	offsets := t.layout.ChunkOffsets()
	for _, tm := range t.translationMasks {
		chunkNumber := 0
		for _, chunk := range tm.Mask.Chunks {
			if chunk.Payload.Kind == layout.ZeroChunkIrKind {
				continue
			}
			indices := t.layout.TensorIndices(offsets[chunkNumber])
			for i, v := range chunk.Payload.Values {
				if indices[i] == nil || v != 0 {
					continue
				}
				destChunk := chunkNumber + tm.Translation.ChunkNumberDiff
				slot := (i + tm.Translation.ChunkIndexDiff) % chunkSize
				destTi := t.layout.TensorIndices(offsets[destChunk])[slot]
				if destTi != nil {
					return 1
				}
			}
			chunkNumber++
		}
	}
	return 0
}

func (t TUnpaddedShiftC) Equal(other TOp) bool {
	o, ok := other.(TUnpaddedShiftC)
	return ok && t.layout.Equal(o.layout) && diffEqual(t.layout.Shape(), t.rotateBy, o.rotateBy)
}

func (t TUnpaddedShiftC) String() string { return fmt.Sprintf("TUnpaddedShiftC(%s)", t.layout.Shape()) }
