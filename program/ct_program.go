package program

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/ctop"
	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensorop"
	"github.com/fhelipe-compiler/fhelipe-sub001/utils"
)

// ChunkDictionary stores the plaintext chunks (ChunkIr) a CtProgram's AddCP/
// MulCP nodes reference by handle, rather than inlining them into the DAG
// itself. Only the interface is in scope here (the dictionary/chunk-store
// implementation is a Non-goal); InMemoryChunkDictionary below is a
// reference implementation for tests and small programs, not a claim about
// how a persisted chunk store should work. Grounded on Dictionary<ChunkIr>
// in ct_program.h.
type ChunkDictionary interface {
	// RecordChunk stores chunk and returns the handle future AddCP/MulCP
	// nodes reference it by.
	RecordChunk(chunk layout.ChunkIr) string
	// GetChunkIr looks up a handle previously returned by RecordChunk.
	GetChunkIr(handle string) (layout.ChunkIr, bool)
}

// InMemoryChunkDictionary is a ChunkDictionary backed by a map, handles
// assigned sequentially. Not addressed for persistence or deduplication —
// a reference implementation, not a claim about the real chunk store.
type InMemoryChunkDictionary struct {
	chunks map[string]layout.ChunkIr
	next   int
}

// NewInMemoryChunkDictionary returns an empty InMemoryChunkDictionary.
func NewInMemoryChunkDictionary() *InMemoryChunkDictionary {
	return &InMemoryChunkDictionary{chunks: map[string]layout.ChunkIr{}}
}

func (d *InMemoryChunkDictionary) RecordChunk(chunk layout.ChunkIr) string {
	handle := fmt.Sprintf("chunk%d", d.next)
	d.next++
	d.chunks[handle] = chunk
	return handle
}

func (d *InMemoryChunkDictionary) GetChunkIr(handle string) (layout.ChunkIr, bool) {
	c, ok := d.chunks[handle]
	return c, ok
}

var _ ChunkDictionary = (*InMemoryChunkDictionary)(nil)

// CtProgram bundles a ProgramContext with the ciphertext-operation dag.Dag
// it's building and the ChunkDictionary its AddCP/MulCP nodes record masks
// into — the program bundle §6's pass interface runs passes against
// (ProgramContext, Dag<OpKind>, ChunkDictionary). It implements
// tensorop.Builder (and by extension translate.Builder), so a TOp's
// AmendCtProgram can build directly against a CtProgram instead of the
// fakeBuilder test doubles tensorop_test.go/translate_test.go use. Grounded
// on ct_program.h's CtProgram class and the CreateAddCC/CreateMulCC/... free
// functions in ct_program.cc.
type CtProgram struct {
	Context ProgramContext
	Dag     *dag.Dag[ctop.CtOp]
	Chunks  ChunkDictionary
}

// NewCtProgram returns a CtProgram with a fresh, empty Dag.
func NewCtProgram(ctx ProgramContext, chunks ChunkDictionary) *CtProgram {
	return &CtProgram{Context: ctx, Dag: dag.New[ctop.CtOp](), Chunks: chunks}
}

// fetchZeroC returns the single ZeroC at li, interning it via the dag's
// structural-dedup cache so every call site asking for "zero at this
// LevelInfo" converges on one node — FetchZeroC in ct_program.cc, ported to
// the sentinel-interning mechanism dag.Intern already provides.
func (p *CtProgram) fetchZeroC(li tensor.LevelInfo) dag.NodeID {
	key := fmt.Sprintf("ZeroC|%d|%d", li.Level, li.LogScale)
	fp := dag.ComputeFingerprint(key)
	return p.Dag.Intern(fp, func() ctop.CtOp { return ctop.NewZeroC(li) })
}

func (p *CtProgram) IsZero(n dag.NodeID) bool { return p.Dag.Get(n).IsZero() }

func (p *CtProgram) ZeroLike(sister dag.NodeID) dag.NodeID {
	return p.fetchZeroC(p.Dag.Get(sister).LevelInfo)
}

func (p *CtProgram) ZeroForMaskedMulCP(sister dag.NodeID, ptLogScale tensor.LogScale) dag.NodeID {
	li := p.Dag.Get(sister).LevelInfo
	return p.fetchZeroC(tensor.NewLevelInfo(li.Level, li.LogScale+ptLogScale))
}

// AddCC mirrors CreateAddCC: an add against a ZeroC operand is a no-op that
// returns the other operand untouched, never emitting a node.
func (p *CtProgram) AddCC(lhs, rhs dag.NodeID) dag.NodeID {
	lhsOp, rhsOp := p.Dag.Get(lhs), p.Dag.Get(rhs)
	if rhsOp.IsZero() {
		return lhs
	}
	if lhsOp.IsZero() {
		return rhs
	}
	li := tensor.NewLevelInfo(utils.Min(lhsOp.LevelInfo.Level, rhsOp.LevelInfo.Level),
		utils.Max(lhsOp.LevelInfo.LogScale, rhsOp.LevelInfo.LogScale))
	return p.Dag.AddNode(ctop.NewAddCC(li), lhs, rhs)
}

// MulCC mirrors CreateMulCC: a multiply against a ZeroC operand folds to
// the shared ZeroC at the product's LevelInfo instead of emitting a MulCC.
func (p *CtProgram) MulCC(lhs, rhs dag.NodeID) dag.NodeID {
	lhsOp, rhsOp := p.Dag.Get(lhs), p.Dag.Get(rhs)
	li := tensor.NewLevelInfo(utils.Min(lhsOp.LevelInfo.Level, rhsOp.LevelInfo.Level),
		lhsOp.LevelInfo.LogScale+rhsOp.LevelInfo.LogScale)
	if lhsOp.IsZero() || rhsOp.IsZero() {
		return p.fetchZeroC(li)
	}
	return p.Dag.AddNode(ctop.NewMulCC(li), lhs, rhs)
}

// MulCP mirrors CreateMulCP: multiplying a ZeroC by any plaintext folds to
// the shared ZeroC at the result's LevelInfo, recording no chunk.
func (p *CtProgram) MulCP(ct dag.NodeID, mask layout.ChunkIr, ptLogScale tensor.LogScale) dag.NodeID {
	ctOp := p.Dag.Get(ct)
	li := tensor.NewLevelInfo(ctOp.LevelInfo.Level, ctOp.LevelInfo.LogScale+ptLogScale)
	if ctOp.IsZero() {
		return p.fetchZeroC(li)
	}
	handle := p.Chunks.RecordChunk(mask)
	return p.Dag.AddNode(ctop.NewMulCP(li, handle, ptLogScale), ct)
}

// AddCP mirrors CreateAddCP, always emitting a node: the source only folds
// AddCP against a zero *ciphertext* via the caller-side IsZero checks
// translate.go's ApplyMask/SumCts already perform before reaching here.
func (p *CtProgram) AddCP(ct dag.NodeID, pt layout.ChunkIr) dag.NodeID {
	ctOp := p.Dag.Get(ct)
	handle := p.Chunks.RecordChunk(pt)
	return p.Dag.AddNode(ctop.NewAddCP(ctOp.LevelInfo, handle), ct)
}

func (p *CtProgram) AddCSI(ct dag.NodeID, scalar float64) dag.NodeID {
	return p.Dag.AddNode(ctop.NewAddCSI(p.Dag.Get(ct).LevelInfo, scalar), ct)
}

func (p *CtProgram) MulCSI(ct dag.NodeID, scalar float64) dag.NodeID {
	return p.Dag.AddNode(ctop.NewMulCSI(p.Dag.Get(ct).LevelInfo, scalar), ct)
}

// RotateC mirrors CreateRotateC: rotating a ZeroC, or rotating by 0 or a
// full revolution (2^LogN chunk-slots), is a no-op returning ct unchanged.
func (p *CtProgram) RotateC(ct dag.NodeID, rotateBy int) dag.NodeID {
	ctOp := p.Dag.Get(ct)
	if ctOp.IsZero() || rotateBy == 0 || rotateBy == 1<<p.Context.LogN {
		return ct
	}
	return p.Dag.AddNode(ctop.NewRotateC(ctOp.LevelInfo, rotateBy), ct)
}

func (p *CtProgram) RescaleC(ct dag.NodeID, rescaleAmount tensor.LogScale) dag.NodeID {
	li := p.Dag.Get(ct).LevelInfo.Rescaled(rescaleAmount)
	return p.Dag.AddNode(ctop.NewRescaleC(li), ct)
}

func (p *CtProgram) BootstrapC(ct dag.NodeID, usableLevels tensor.Level) dag.NodeID {
	li := p.Dag.Get(ct).LevelInfo.Bootstrapped(usableLevels)
	return p.Dag.AddNode(ctop.NewBootstrapC(li), ct)
}

func (p *CtProgram) InputC(li tensor.LevelInfo, io tensor.IoSpec) dag.NodeID {
	return p.Dag.AddNode(ctop.NewInputC(li, io))
}

func (p *CtProgram) OutputC(ct dag.NodeID, io tensor.IoSpec) dag.NodeID {
	return p.Dag.AddNode(ctop.NewOutputC(p.Dag.Get(ct).LevelInfo, io), ct)
}

func (p *CtProgram) LevelInfoOf(node dag.NodeID) tensor.LevelInfo {
	return p.Dag.Get(node).LevelInfo
}

var _ tensorop.Builder = (*CtProgram)(nil)
