// Package tensorop implements the TOp family (§4.G): the tensor-level
// rewriters that lower one tensor-program operation into ciphertext
// primitives against a LaidOutTensorCt of inputs, each producing the
// LaidOutTensorCt of its output. Every concrete TOp mirrors one of the
// teacher's `t_*.cc` classes; the `TOp` base class's virtual dispatch is
// replaced by a Go interface plus a type switch where the original used
// dynamic_cast (EqualTo, WriteStreamHelper).
package tensorop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/translate"
)

// LaidOutChunk is one ciphertext chunk flowing through a TOp.
type LaidOutChunk = translate.LaidOutChunk

// LaidOutTensorCt is a full ciphertext tensor flowing through a TOp.
type LaidOutTensorCt = translate.LaidOutTensorCt

// Builder is the surface a TOp needs from a ciphertext-program builder
// (package program implements it). It extends translate.Builder with the
// CtOp variants translate's mask/permute/rotate/sum primitives never emit
// directly: ciphertext-ciphertext multiply, ciphertext-plaintext add,
// scalar ops, rescale, bootstrap, and the program's I/O boundary. Kept here
// rather than in translate to avoid translate depending on tensorop-only
// concerns it has no use for.
type Builder interface {
	translate.Builder

	// MulCC emits a ciphertext-ciphertext multiply.
	MulCC(lhs, rhs dag.NodeID) dag.NodeID
	// AddCP emits a ciphertext-plaintext add against pt.
	AddCP(ct dag.NodeID, pt layout.ChunkIr) dag.NodeID
	// AddCSI emits a ciphertext-scalar add.
	AddCSI(ct dag.NodeID, scalar float64) dag.NodeID
	// MulCSI emits a ciphertext-scalar multiply.
	MulCSI(ct dag.NodeID, scalar float64) dag.NodeID
	// RescaleC emits a rescale, dropping ct's Level by one and its LogScale
	// by rescaleAmount.
	RescaleC(ct dag.NodeID, rescaleAmount tensor.LogScale) dag.NodeID
	// BootstrapC emits a bootstrap, resetting ct's Level to usableLevels.
	BootstrapC(ct dag.NodeID, usableLevels tensor.Level) dag.NodeID
	// InputC emits a fresh input node bound to io, at the given LevelInfo.
	InputC(li tensor.LevelInfo, io tensor.IoSpec) dag.NodeID
	// OutputC emits an output node bound to io, consuming ct.
	OutputC(ct dag.NodeID, io tensor.IoSpec) dag.NodeID
	// LevelInfoOf returns the LevelInfo already recorded for node. No TOp in
	// this package calls it.
	LevelInfoOf(node dag.NodeID) tensor.LevelInfo
}

// TOp is one tensor-level rewrite step: given its inputs, it amends the
// ciphertext program with the primitives implementing it and returns the
// resulting output tensor.
type TOp interface {
	// AmendCtProgram lowers this op against inputs, in the order the op
	// expects them (TAddCC and TMulCC take two; every other op takes exactly
	// one).
	AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt
	// OutputLayout is the layout of AmendCtProgram's result.
	OutputLayout() layout.TensorLayout
	// AddedLogScale is the log-scale this op introduces from state outside
	// the ciphertext graph (nonzero only for TMulCP, whose plaintext
	// operand's scale is a compile-time constant the graph can't see).
	AddedLogScale() tensor.LogScale
	// BackendMaskDepth estimates how many extra MulCP-based masking passes
	// this op's lowering costs (§4.G/§8 S3, S4). Nothing outside this
	// package reads it.
	BackendMaskDepth() int
	// Equal reports whether other is the same TOp variant with the same
	// parameters (not the same Go value — structural equality).
	Equal(other TOp) bool
	String() string
}

// adaptToLayout re-tags chunks (already valid ciphertext chunks of some
// layout with the same rank-adjusted flat numbering) with outputLayout,
// without emitting any new ciphertext primitive: the chunk occupying flat
// offset f under the old layout is re-labelled as occupying flat offset f
// under outputLayout. Used by ops that only rename dimension bits (TDropDimC,
// TInsertDimC) or relabel chunks produced elsewhere (TLayoutConversionC).
func adaptToLayout(outputLayout layout.TensorLayout, chunks []LaidOutChunk) []LaidOutChunk {
	if len(chunks) != outputLayout.TotalChunks() {
		panic("internal invariant violation: adaptToLayout: chunk count mismatch")
	}
	out := make([]LaidOutChunk, len(chunks))
	for i, c := range chunks {
		ti, err := tensor.NewTensorIndexFromFlat(outputLayout.Shape(), c.Offset.Flat())
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: adaptToLayout: %v", err))
		}
		newOffset := outputLayout.ChunkOffsetAt(ti)
		out[i] = LaidOutChunk{Layout: outputLayout, Offset: newOffset, Payload: c.Payload}
	}
	return out
}

// flatIndices returns, for each slot of the chunk based at offset under l,
// a pointer to that slot's flat tensor index, or nil where the slot is
// invalid — the shape NewIndirectChunkIr's per-slot gather index expects.
func flatIndices(l layout.TensorLayout, offset tensor.TensorIndex) []*int {
	tis := l.TensorIndices(offset)
	out := make([]*int, len(tis))
	for i, ti := range tis {
		if ti != nil {
			f := ti.Flat()
			out[i] = &f
		}
	}
	return out
}

// singleInput panics unless inputs holds exactly one tensor, and returns it:
// every unary TOp's AmendCtProgram starts this way.
func singleInput(inputs []LaidOutTensorCt) LaidOutTensorCt {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("internal invariant violation: expected 1 input, got %d", len(inputs)))
	}
	return inputs[0]
}

// pairInput panics unless inputs holds exactly two tensors of equal layout,
// and returns them: every binary elementwise TOp's AmendCtProgram starts
// this way.
func pairInput(inputs []LaidOutTensorCt) (lhs, rhs LaidOutTensorCt) {
	if len(inputs) != 2 {
		panic(fmt.Sprintf("internal invariant violation: expected 2 inputs, got %d", len(inputs)))
	}
	if !inputs[0].Layout.Equal(inputs[1].Layout) {
		panic("internal invariant violation: binary TOp operand layout mismatch")
	}
	return inputs[0], inputs[1]
}
