package tensorop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/translate"
)

// TLayoutConversionC re-packs a tensor from one layout to another of the
// same shape, by translating every tensor index to itself under the new
// layout's chunking and re-tagging the result. Grounded on
// t_layout_conversion_c.cc; BackendMaskDepth/AddedLogScale follow the
// conservative always-mask convention of the other explicit-layout ops
// whose headers were not retrieved (TReorderDimsC, TStrideC).
type TLayoutConversionC struct {
	inputLayout  layout.TensorLayout
	outputLayout layout.TensorLayout
}

func NewTLayoutConversionC(input, output layout.TensorLayout) (TLayoutConversionC, error) {
	if !input.Shape().Equal(output.Shape()) {
		return TLayoutConversionC{}, fmt.Errorf("cannot NewTLayoutConversionC: shape mismatch %s vs %s", input.Shape(), output.Shape())
	}
	return TLayoutConversionC{inputLayout: input, outputLayout: output}, nil
}

func (t TLayoutConversionC) InputLayout() layout.TensorLayout  { return t.inputLayout }
func (t TLayoutConversionC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TLayoutConversionC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TLayoutConversionC) BackendMaskDepth() int             { return 1 }

func (t TLayoutConversionC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	masks := translate.MakeTranslationMasks(t.inputLayout, t.outputLayout, func(ti tensor.TensorIndex) (tensor.TensorIndex, bool) {
		return ti, true
	})
	result := translate.ApplyTranslationMasks(b, input, masks, t.outputLayout, 0)
	out, err := layout.NewLaidOutTensor(t.outputLayout, adaptToLayout(t.outputLayout, result.Chunks))
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TLayoutConversionC: %v", err))
	}
	return out
}

func (t TLayoutConversionC) Equal(other TOp) bool {
	o, ok := other.(TLayoutConversionC)
	return ok && t.inputLayout.Equal(o.inputLayout) && t.outputLayout.Equal(o.outputLayout)
}

func (t TLayoutConversionC) String() string {
	return fmt.Sprintf("TLayoutConversionC(%s->%s)", t.inputLayout.Shape(), t.outputLayout.Shape())
}

// TMergedMulChainCP relabels each of input's chunks, in order, onto
// outputLayout's chunk offsets in order: a pure positional relabeling used
// once the conversion decomposer (§4.H) has already merged several
// translation-mask stages into a single multiply chain and only needs to
// retag the chunk sequence under its final layout. Grounded on
// t_merged_mul_chain_cp.cc.
type TMergedMulChainCP struct {
	inputLayout  layout.TensorLayout
	outputLayout layout.TensorLayout
}

func NewTMergedMulChainCP(input, output layout.TensorLayout) (TMergedMulChainCP, error) {
	if input.TotalChunks() != output.TotalChunks() {
		return TMergedMulChainCP{}, fmt.Errorf("cannot NewTMergedMulChainCP: chunk count mismatch %d vs %d", input.TotalChunks(), output.TotalChunks())
	}
	return TMergedMulChainCP{inputLayout: input, outputLayout: output}, nil
}

func (t TMergedMulChainCP) InputLayout() layout.TensorLayout  { return t.inputLayout }
func (t TMergedMulChainCP) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TMergedMulChainCP) AddedLogScale() tensor.LogScale    { return 0 }
func (t TMergedMulChainCP) BackendMaskDepth() int             { return 0 }

func (t TMergedMulChainCP) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	offsets := t.outputLayout.ChunkOffsets()
	chunks := make([]LaidOutChunk, len(input.Chunks))
	for i, c := range input.Chunks {
		chunks[i] = LaidOutChunk{Layout: t.outputLayout, Offset: offsets[i], Payload: c.Payload}
	}
	out, err := layout.NewLaidOutTensor(t.outputLayout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TMergedMulChainCP: %v", err))
	}
	return out
}

func (t TMergedMulChainCP) Equal(other TOp) bool {
	o, ok := other.(TMergedMulChainCP)
	return ok && t.inputLayout.Equal(o.inputLayout) && t.outputLayout.Equal(o.outputLayout)
}

func (t TMergedMulChainCP) String() string {
	return fmt.Sprintf("TMergedMulChainCP(%s->%s)", t.inputLayout.Shape(), t.outputLayout.Shape())
}

// TChetRepackC delegates to TLayoutConversionC between layout and an
// explicit target layout, a no-op when the two already coincide. The
// source derives its target layout from a heuristic layout-assignment pass
// (ChetLayoutPass) not present in this corpus; this port takes the target
// layout as an explicit constructor parameter instead of re-deriving the
// heuristic (recorded as a simplification, not a behavior it tries to
// hide). Grounded on t_chet_repack_c.cc.
type TChetRepackC struct {
	inputLayout  layout.TensorLayout
	outputLayout layout.TensorLayout
}

func NewTChetRepackC(input, output layout.TensorLayout) (TChetRepackC, error) {
	if !input.Shape().Equal(output.Shape()) {
		return TChetRepackC{}, fmt.Errorf("cannot NewTChetRepackC: shape mismatch %s vs %s", input.Shape(), output.Shape())
	}
	return TChetRepackC{inputLayout: input, outputLayout: output}, nil
}

func (t TChetRepackC) InputLayout() layout.TensorLayout  { return t.inputLayout }
func (t TChetRepackC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TChetRepackC) AddedLogScale() tensor.LogScale    { return 0 }

func (t TChetRepackC) BackendMaskDepth() int {
	if t.inputLayout.Equal(t.outputLayout) {
		return 0
	}
	conv, err := NewTLayoutConversionC(t.inputLayout, t.outputLayout)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TChetRepackC.BackendMaskDepth: %v", err))
	}
	return conv.BackendMaskDepth()
}

func (t TChetRepackC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	if t.inputLayout.Equal(t.outputLayout) {
		return input
	}
	conv, err := NewTLayoutConversionC(t.inputLayout, t.outputLayout)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TChetRepackC: %v", err))
	}
	return conv.AmendCtProgram(b, inputs)
}

func (t TChetRepackC) Equal(other TOp) bool {
	o, ok := other.(TChetRepackC)
	return ok && t.inputLayout.Equal(o.inputLayout) && t.outputLayout.Equal(o.outputLayout)
}

func (t TChetRepackC) String() string {
	return fmt.Sprintf("TChetRepackC(%s->%s)", t.inputLayout.Shape(), t.outputLayout.Shape())
}
