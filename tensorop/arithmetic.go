package tensorop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// TAddCC adds two equal-layout ciphertext tensors elementwise.
// Grounded on t_add_cc.cc.
type TAddCC struct {
	layout layout.TensorLayout
}

func NewTAddCC(l layout.TensorLayout) TAddCC { return TAddCC{layout: l} }

func (t TAddCC) OutputLayout() layout.TensorLayout { return t.layout }
func (t TAddCC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TAddCC) BackendMaskDepth() int             { return 0 }

func (t TAddCC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	lhs, rhs := pairInput(inputs)
	chunks := make([]LaidOutChunk, len(lhs.Chunks))
	for i := range lhs.Chunks {
		chunks[i] = LaidOutChunk{Layout: t.layout, Offset: lhs.Chunks[i].Offset, Payload: b.AddCC(lhs.Chunks[i].Payload, rhs.Chunks[i].Payload)}
	}
	out, err := layout.NewLaidOutTensor(t.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TAddCC: %v", err))
	}
	return out
}

func (t TAddCC) Equal(other TOp) bool {
	o, ok := other.(TAddCC)
	return ok && t.layout.Equal(o.layout)
}

func (t TAddCC) String() string { return fmt.Sprintf("TAddCC(%s)", t.layout.Shape()) }

// TMulCC multiplies two equal-layout ciphertext tensors elementwise.
// Grounded on t_mul_cc.cc.
type TMulCC struct {
	layout layout.TensorLayout
}

func NewTMulCC(l layout.TensorLayout) TMulCC { return TMulCC{layout: l} }

func (t TMulCC) OutputLayout() layout.TensorLayout { return t.layout }
func (t TMulCC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TMulCC) BackendMaskDepth() int             { return 0 }

func (t TMulCC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	lhs, rhs := pairInput(inputs)
	chunks := make([]LaidOutChunk, len(lhs.Chunks))
	for i := range lhs.Chunks {
		chunks[i] = LaidOutChunk{Layout: t.layout, Offset: lhs.Chunks[i].Offset, Payload: b.MulCC(lhs.Chunks[i].Payload, rhs.Chunks[i].Payload)}
	}
	out, err := layout.NewLaidOutTensor(t.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TMulCC: %v", err))
	}
	return out
}

func (t TMulCC) Equal(other TOp) bool {
	o, ok := other.(TMulCC)
	return ok && t.layout.Equal(o.layout)
}

func (t TMulCC) String() string { return fmt.Sprintf("TMulCC(%s)", t.layout.Shape()) }

// createCtPtTensorOp gathers, for each chunk of input, an IndirectChunkIr
// reading ptTensorName at that chunk's flat tensor indices, then applies
// emit to the ciphertext chunk and the gathered plaintext chunk. Shared by
// TAddCP and TMulCP. Grounded on CreateCtPtTensorOp in t_op_utils.cc.
func createCtPtTensorOp(b Builder, input LaidOutTensorCt, ptTensorName string, emit func(b Builder, ct LaidOutChunk, pt layout.ChunkIr) LaidOutChunk) LaidOutTensorCt {
	chunks := make([]LaidOutChunk, len(input.Chunks))
	for i, c := range input.Chunks {
		ir := layout.NewIndirectChunkIr(ptTensorName, flatIndices(input.Layout, c.Offset))
		chunks[i] = emit(b, c, ir)
	}
	out, err := layout.NewLaidOutTensor(input.Layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: createCtPtTensorOp: %v", err))
	}
	return out
}

// TAddCP adds a named frontend plaintext tensor to a ciphertext tensor.
// Grounded on t_add_cp.cc.
type TAddCP struct {
	layout       layout.TensorLayout
	ptTensorName string
}

func NewTAddCP(l layout.TensorLayout, ptTensorName string) TAddCP {
	return TAddCP{layout: l, ptTensorName: ptTensorName}
}

func (t TAddCP) OutputLayout() layout.TensorLayout { return t.layout }
func (t TAddCP) AddedLogScale() tensor.LogScale    { return 0 }
func (t TAddCP) BackendMaskDepth() int             { return 0 }
func (t TAddCP) PtTensorName() string              { return t.ptTensorName }

func (t TAddCP) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	return createCtPtTensorOp(b, singleInput(inputs), t.ptTensorName, func(b Builder, ct LaidOutChunk, pt layout.ChunkIr) LaidOutChunk {
		return LaidOutChunk{Layout: ct.Layout, Offset: ct.Offset, Payload: b.AddCP(ct.Payload, pt)}
	})
}

func (t TAddCP) Equal(other TOp) bool {
	o, ok := other.(TAddCP)
	return ok && t.layout.Equal(o.layout) && t.ptTensorName == o.ptTensorName
}

func (t TAddCP) String() string { return fmt.Sprintf("TAddCP(%s,%s)", t.layout.Shape(), t.ptTensorName) }

// TMulCP multiplies a ciphertext tensor by a named frontend plaintext
// tensor, captured at ptTensorLogScale. Grounded on t_mul_cp.cc.
type TMulCP struct {
	layout          layout.TensorLayout
	ptTensorName    string
	ptTensorLogScale tensor.LogScale
}

func NewTMulCP(l layout.TensorLayout, ptTensorName string, ptTensorLogScale tensor.LogScale) TMulCP {
	return TMulCP{layout: l, ptTensorName: ptTensorName, ptTensorLogScale: ptTensorLogScale}
}

func (t TMulCP) OutputLayout() layout.TensorLayout { return t.layout }

// AddedLogScale returns the captured plaintext operand's log-scale: the one
// concrete case where AmendCtProgram needs state the ciphertext graph can't
// supply on its own (the plaintext tensor is a compile-time constant).
func (t TMulCP) AddedLogScale() tensor.LogScale { return t.ptTensorLogScale }
func (t TMulCP) BackendMaskDepth() int          { return 0 }
func (t TMulCP) PtTensorName() string           { return t.ptTensorName }
func (t TMulCP) PtTensorLogScale() tensor.LogScale { return t.ptTensorLogScale }

func (t TMulCP) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	return createCtPtTensorOp(b, singleInput(inputs), t.ptTensorName, func(b Builder, ct LaidOutChunk, pt layout.ChunkIr) LaidOutChunk {
		return LaidOutChunk{Layout: ct.Layout, Offset: ct.Offset, Payload: b.MulCP(ct.Payload, pt, t.ptTensorLogScale)}
	})
}

func (t TMulCP) Equal(other TOp) bool {
	o, ok := other.(TMulCP)
	return ok && t.layout.Equal(o.layout) && t.ptTensorName == o.ptTensorName && t.ptTensorLogScale == o.ptTensorLogScale
}

func (t TMulCP) String() string {
	return fmt.Sprintf("TMulCP(%s,%s,scale=%d)", t.layout.Shape(), t.ptTensorName, t.ptTensorLogScale)
}

// TAddCSI adds a scalar constant to every slot of a ciphertext tensor.
// Grounded on t_add_csi.cc.
type TAddCSI struct {
	layout layout.TensorLayout
	scalar float64
}

func NewTAddCSI(l layout.TensorLayout, scalar float64) TAddCSI {
	return TAddCSI{layout: l, scalar: scalar}
}

func (t TAddCSI) OutputLayout() layout.TensorLayout { return t.layout }
func (t TAddCSI) AddedLogScale() tensor.LogScale    { return 0 }
func (t TAddCSI) BackendMaskDepth() int             { return 0 }
func (t TAddCSI) Scalar() float64                   { return t.scalar }

func (t TAddCSI) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	chunks := make([]LaidOutChunk, len(input.Chunks))
	for i, c := range input.Chunks {
		chunks[i] = LaidOutChunk{Layout: t.layout, Offset: c.Offset, Payload: b.AddCSI(c.Payload, t.scalar)}
	}
	out, err := layout.NewLaidOutTensor(t.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TAddCSI: %v", err))
	}
	return out
}

func (t TAddCSI) Equal(other TOp) bool {
	o, ok := other.(TAddCSI)
	return ok && t.layout.Equal(o.layout) && t.scalar == o.scalar
}

func (t TAddCSI) String() string { return fmt.Sprintf("TAddCSI(%s,%g)", t.layout.Shape(), t.scalar) }

// TMulCSI multiplies every slot of a ciphertext tensor by a scalar
// constant. Grounded on t_mul_csi.cc.
type TMulCSI struct {
	layout layout.TensorLayout
	scalar float64
}

func NewTMulCSI(l layout.TensorLayout, scalar float64) TMulCSI {
	return TMulCSI{layout: l, scalar: scalar}
}

func (t TMulCSI) OutputLayout() layout.TensorLayout { return t.layout }
func (t TMulCSI) AddedLogScale() tensor.LogScale    { return 0 }
func (t TMulCSI) BackendMaskDepth() int             { return 0 }
func (t TMulCSI) Scalar() float64                   { return t.scalar }

func (t TMulCSI) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	chunks := make([]LaidOutChunk, len(input.Chunks))
	for i, c := range input.Chunks {
		chunks[i] = LaidOutChunk{Layout: t.layout, Offset: c.Offset, Payload: b.MulCSI(c.Payload, t.scalar)}
	}
	out, err := layout.NewLaidOutTensor(t.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TMulCSI: %v", err))
	}
	return out
}

func (t TMulCSI) Equal(other TOp) bool {
	o, ok := other.(TMulCSI)
	return ok && t.layout.Equal(o.layout) && t.scalar == o.scalar
}

func (t TMulCSI) String() string { return fmt.Sprintf("TMulCSI(%s,%g)", t.layout.Shape(), t.scalar) }
