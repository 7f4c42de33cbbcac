// Package translate implements the translation-mask lowering algorithm
// (§4.F): converting a partial tensor-index correspondence between two
// layouts into a ciphertext program built from permute-chunks, rotate,
// mask, and sum primitives.
package translate

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/utils"
)

// LaidOutChunk is one ciphertext chunk: a DAG node standing for a CtOp,
// laid out at a given layout/offset.
type LaidOutChunk = layout.LaidOutChunk[dag.NodeID]

// LaidOutTensorCt is a full ciphertext tensor: every chunk of a layout,
// each a DAG node.
type LaidOutTensorCt = layout.LaidOutTensor[dag.NodeID]

// Builder is the narrow surface translate needs from a ciphertext-program
// builder (package program implements it), kept here to avoid translate
// depending on program (which depends on translate). It plays the role
// the source's `ct_program::CtProgram&` parameter plays, threaded through
// every emission call.
type Builder interface {
	IsZero(node dag.NodeID) bool
	AddCC(lhs, rhs dag.NodeID) dag.NodeID
	MulCP(ct dag.NodeID, mask layout.ChunkIr, ptLogScale tensor.LogScale) dag.NodeID
	RotateC(ct dag.NodeID, rotateBy int) dag.NodeID
	// ZeroLike returns a ZeroC at the same LevelInfo as sister.
	ZeroLike(sister dag.NodeID) dag.NodeID
	// ZeroForMaskedMulCP returns a ZeroC at the LevelInfo a MulCP of sister
	// by a plaintext at ptLogScale would have produced, without emitting
	// the multiplication (the mask-free optimization of §4.F).
	ZeroForMaskedMulCP(sister dag.NodeID, ptLogScale tensor.LogScale) dag.NodeID
}

func zipByOffset(lhs, rhs []LaidOutChunk) {
	if len(lhs) != len(rhs) {
		panic("internal invariant violation: translate: chunk count mismatch")
	}
	for i := range lhs {
		if !lhs[i].Offset.Equal(rhs[i].Offset) {
			panic("internal invariant violation: translate: chunk offset mismatch")
		}
	}
}

// ApplyMask multiplies ct by pt chunk-by-chunk, short-circuiting to a
// cached ZeroC wherever pt's chunk is structurally zero (the mask-free
// optimization: a slot that never receives any translation never costs a
// MulCP).
func ApplyMask(b Builder, ct LaidOutTensorCt, pt layout.LaidOutTensor[layout.ChunkIr], ptLogScale tensor.LogScale) LaidOutTensorCt {
	zipByOffset(ct.Chunks, pt.Chunks)
	zeroC := b.ZeroForMaskedMulCP(ct.Chunks[0].Payload, ptLogScale)

	chunks := make([]LaidOutChunk, len(ct.Chunks))
	for i := range ct.Chunks {
		lhs, rhs := ct.Chunks[i], pt.Chunks[i]
		var node dag.NodeID
		if rhs.Payload.IsZero() {
			node = zeroC
		} else {
			node = b.MulCP(lhs.Payload, rhs.Payload, ptLogScale)
		}
		chunks[i] = LaidOutChunk{Layout: lhs.Layout, Offset: lhs.Offset, Payload: node}
	}
	out, err := layout.NewLaidOutTensor(ct.Layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: ApplyMask: %v", err))
	}
	return out
}

// ZeroOutWhereZeroMask selects ct's own chunk wherever pt is nonzero and a
// shared ZeroC wherever pt is zero, without ever emitting a MulCP: used by
// the "translations but not masks" variant where masking has already been
// baked into an earlier stage.
func ZeroOutWhereZeroMask(b Builder, ct LaidOutTensorCt, pt layout.LaidOutTensor[layout.ChunkIr]) LaidOutTensorCt {
	zipByOffset(ct.Chunks, pt.Chunks)
	zeroC := b.ZeroLike(ct.Chunks[0].Payload)

	chunks := make([]LaidOutChunk, len(ct.Chunks))
	for i := range ct.Chunks {
		lhs, rhs := ct.Chunks[i], pt.Chunks[i]
		node := lhs.Payload
		if rhs.Payload.IsZero() {
			node = zeroC
		}
		chunks[i] = LaidOutChunk{Layout: lhs.Layout, Offset: lhs.Offset, Payload: node}
	}
	out, err := layout.NewLaidOutTensor(ct.Layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: ZeroOutWhereZeroMask: %v", err))
	}
	return out
}

// ApplyRotation rotates every non-zero chunk by rotateBy (rotating a ZeroC
// is a no-op, since every slot of a zero chunk is already zero).
func ApplyRotation(b Builder, chunks []LaidOutChunk, rotateBy int) []LaidOutChunk {
	out := make([]LaidOutChunk, len(chunks))
	for i, c := range chunks {
		node := c.Payload
		if !b.IsZero(node) {
			node = b.RotateC(node, rotateBy)
		}
		out[i] = LaidOutChunk{Layout: c.Layout, Offset: c.Offset, Payload: node}
	}
	return out
}

// PermuteChunks pads chunks with shared ZeroC chunks up to outputLayout's
// chunk count, rotates the whole sequence right by chunkDelta (chunk i
// moves to position i+chunkDelta), truncates
// back down, and re-labels with outputLayout's offsets — the
// permute-chunks primitive of §4.A/§4.F.
func PermuteChunks(b Builder, chunks []LaidOutChunk, chunkDelta int, outputLayout layout.TensorLayout) []LaidOutChunk {
	outputChunkCount := outputLayout.TotalChunks()
	nodes := make([]dag.NodeID, len(chunks))
	for i, c := range chunks {
		nodes[i] = c.Payload
	}
	for len(nodes) < outputChunkCount {
		nodes = append(nodes, b.ZeroLike(nodes[0]))
	}
	// std::rotate(first, end-chunk_delta, end) semantics: new[i] = old[(i -
	// chunk_delta) mod n], i.e. a RotateSliceInPlace by -chunk_delta.
	utils.RotateSliceInPlace(nodes, -chunkDelta)
	nodes = nodes[:outputChunkCount]

	offsets := outputLayout.ChunkOffsets()
	out := make([]LaidOutChunk, outputChunkCount)
	for i, off := range offsets {
		out[i] = LaidOutChunk{Layout: outputLayout, Offset: off, Payload: nodes[i]}
	}
	return out
}

// ZeroLaidOutTensor builds a LaidOutTensorCt over layout where every chunk
// is the single ZeroC at sister's LevelInfo.
func ZeroLaidOutTensor(b Builder, sister dag.NodeID, l layout.TensorLayout) LaidOutTensorCt {
	zero := b.ZeroLike(sister)
	chunks := make([]LaidOutChunk, 0, l.TotalChunks())
	for _, off := range l.ChunkOffsets() {
		chunks = append(chunks, LaidOutChunk{Layout: l, Offset: off, Payload: zero})
	}
	out, err := layout.NewLaidOutTensor(l, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: ZeroLaidOutTensor: %v", err))
	}
	return out
}

// SumCts adds lhs and rhs chunk-by-chunk, short-circuiting an AddCC
// whenever one side is structurally a ZeroC.
func SumCts(b Builder, lhs, rhs []LaidOutChunk) []LaidOutChunk {
	zipByOffset(lhs, rhs)
	out := make([]LaidOutChunk, len(lhs))
	for i := range lhs {
		l, r := lhs[i], rhs[i]
		var node dag.NodeID
		switch {
		case b.IsZero(l.Payload):
			node = r.Payload
		case b.IsZero(r.Payload):
			node = l.Payload
		default:
			node = b.AddCC(l.Payload, r.Payload)
		}
		out[i] = LaidOutChunk{Layout: l.Layout, Offset: l.Offset, Payload: node}
	}
	return out
}

// ApplyTranslationMasks lowers input according to trans_masks, masking
// then permuting/rotating/summing each translation's contribution into a
// single output tensor at outputLayout (§4.F's main algorithm).
func ApplyTranslationMasks(b Builder, input LaidOutTensorCt, transMasks []TranslationMask, outputLayout layout.TensorLayout, ptLogScale tensor.LogScale) LaidOutTensorCt {
	sum := ZeroLaidOutTensor(b, input.Chunks[0].Payload, outputLayout)
	for _, tm := range transMasks {
		masked := ApplyMask(b, input, tm.Mask, ptLogScale).Chunks
		permuted := PermuteChunks(b, masked, tm.Translation.ChunkNumberDiff, outputLayout)
		rotated := ApplyRotation(b, permuted, tm.Translation.ChunkIndexDiff)
		sum.Chunks = SumCts(b, sum.Chunks, rotated)
	}
	return sum
}

// ApplyTranslationsButNotMasks is ApplyTranslationMasks with masking
// replaced by a zero-out-only pass, used when the caller has already
// applied masks upstream (e.g. a merged-multiply-chain rewrite that folds
// the mask into an earlier MulCP).
func ApplyTranslationsButNotMasks(b Builder, input LaidOutTensorCt, transMasks []TranslationMask, outputLayout layout.TensorLayout) LaidOutTensorCt {
	sum := ZeroLaidOutTensor(b, input.Chunks[0].Payload, outputLayout)
	for _, tm := range transMasks {
		zeroedOut := ZeroOutWhereZeroMask(b, input, tm.Mask).Chunks
		permuted := PermuteChunks(b, zeroedOut, tm.Translation.ChunkNumberDiff, outputLayout)
		rotated := ApplyRotation(b, permuted, tm.Translation.ChunkIndexDiff)
		sum.Chunks = SumCts(b, sum.Chunks, rotated)
	}
	return sum
}

// TranslationMask pairs a chunk-number/chunk-index translation with the
// plaintext mask selecting which slots of a chunk move by that translation.
type TranslationMask struct {
	Translation Translation
	Mask        layout.LaidOutTensor[layout.ChunkIr]
}

// MakeTranslationMasks registers every source slot's translation to its
// image under srcToDest (which may leave a slot unmapped), grouping slots
// by (chunk-number-diff, chunk-index-diff) into one TranslationMask per
// distinct translation.
func MakeTranslationMasks(inputLayout, outputLayout layout.TensorLayout, srcToDest func(tensor.TensorIndex) (tensor.TensorIndex, bool)) []TranslationMask {
	gen := newMaskGenerator(inputLayout)
	shape := inputLayout.Shape()
	for flat := 0; flat < shape.NumElements(); flat++ {
		srcTi, err := tensor.NewTensorIndexFromFlat(shape, flat)
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: MakeTranslationMasks: %v", err))
		}
		destTi, ok := srcToDest(srcTi)
		if !ok {
			continue
		}
		src := LaidOutTensorIndex{Layout: inputLayout, TensorIndex: srcTi}
		dest := LaidOutTensorIndex{Layout: outputLayout, TensorIndex: destTi}
		gen.registerTranslation(TranslationSrcDest(src, dest), src)
	}
	return gen.getTranslationMasks()
}

// MaskAllInvalidSlots returns the mask selecting exactly the slots of l
// that correspond to a valid tensor index (the identity translation's
// mask from registering every index against itself).
func MaskAllInvalidSlots(l layout.TensorLayout) layout.LaidOutTensor[layout.ChunkIr] {
	masks := MakeTranslationMasks(l, l, func(ti tensor.TensorIndex) (tensor.TensorIndex, bool) { return ti, true })
	for _, tm := range masks {
		if tm.Translation.ChunkNumberDiff == 0 && tm.Translation.ChunkIndexDiff == 0 {
			return tm.Mask
		}
	}
	panic("internal invariant violation: MaskAllInvalidSlots: identity translation missing")
}

// LaidOutTensorIndex is a tensor index paired with the layout it is
// interpreted under, the unit MakeTranslationMasks registers translations
// between.
type LaidOutTensorIndex struct {
	Layout      layout.TensorLayout
	TensorIndex tensor.TensorIndex
}

func (i LaidOutTensorIndex) ChunkNumber() int { return i.Layout.ChunkNumberAt(i.TensorIndex) }
func (i LaidOutTensorIndex) ChunkIndex() int  { return i.Layout.ChunkIndexAt(i.TensorIndex) }

// Translation is the (chunk-number-diff, chunk-index-diff) a slot moves by
// going from a source layout to a destination layout, both diffs reduced
// modulo their respective moduli so translations compare equal regardless
// of which representative wrapped around.
type Translation struct {
	NumChunks       int
	ChunkSize       tensor.ChunkSize
	ChunkNumberDiff int
	ChunkIndexDiff  int
}

// NewTranslation normalizes chunkNumberDiff/chunkIndexDiff into
// [0,numChunks) and [0,chunkSize) respectively.
func NewTranslation(numChunks int, chunkSize tensor.ChunkSize, chunkNumberDiff, chunkIndexDiff int) Translation {
	return Translation{
		NumChunks:       numChunks,
		ChunkSize:       chunkSize,
		ChunkNumberDiff: floorMod(chunkNumberDiff, numChunks),
		ChunkIndexDiff:  floorMod(chunkIndexDiff, int(chunkSize)),
	}
}

func floorMod(a, q int) int {
	if q <= 0 {
		panic("internal invariant violation: floorMod: non-positive modulus")
	}
	m := a % q
	if m < 0 {
		m += q
	}
	return m
}

// TranslationSrcDest derives the Translation carrying src to dest.
func TranslationSrcDest(src, dest LaidOutTensorIndex) Translation {
	if src.Layout.ChunkSize() != dest.Layout.ChunkSize() {
		panic("internal invariant violation: TranslationSrcDest: chunk size mismatch")
	}
	numChunks := utils.Max(src.Layout.TotalChunks(), dest.Layout.TotalChunks())
	return NewTranslation(numChunks, src.Layout.ChunkSize(), dest.ChunkNumber()-src.ChunkNumber(), dest.ChunkIndex()-src.ChunkIndex())
}

// maskGenerator accumulates, for each distinct Translation, the source
// slots that move by it, and builds the corresponding plaintext mask
// on demand.
type maskGenerator struct {
	layout  layout.TensorLayout
	diffMap map[Translation][]LaidOutTensorIndex
}

func newMaskGenerator(l layout.TensorLayout) *maskGenerator {
	return &maskGenerator{layout: l, diffMap: map[Translation][]LaidOutTensorIndex{}}
}

func (g *maskGenerator) registerTranslation(diff Translation, ti LaidOutTensorIndex) {
	g.diffMap[diff] = append(g.diffMap[diff], ti)
}

// maskCache memoizes getMask's output keyed by a content hash of (layout,
// translation, nonzero (chunk-number, chunk-index) pairs): when a TOp
// rewriter re-derives the same translation against the same layout (e.g.
// the conversion decomposer splitting one large permutation into several
// structurally-identical pieces), the mask tensor is built once.
var maskCache sync.Map // raw blake2b-256 digest -> layout.LaidOutTensor[layout.ChunkIr]

func maskCacheKey(l layout.TensorLayout, diff Translation, nonzeros []LaidOutTensorIndex) string {
	pairs := make([][2]int, len(nonzeros))
	for i, ti := range nonzeros {
		pairs[i] = [2]int{ti.ChunkNumber(), ti.ChunkIndex()}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	h, err := blake2b.New256(nil)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: blake2b.New256: %v", err))
	}
	_, _ = h.Write([]byte(l.Shape().String()))
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	for _, bit := range l.ChunkBits() {
		if bit == nil {
			writeInt(0)
			continue
		}
		writeInt(1)
		writeInt(bit.Dimension)
		writeInt(bit.BitIndex)
	}
	writeInt(diff.NumChunks)
	writeInt(int(diff.ChunkSize))
	writeInt(diff.ChunkNumberDiff)
	writeInt(diff.ChunkIndexDiff)
	for _, p := range pairs {
		writeInt(p[0])
		writeInt(p[1])
	}
	return string(h.Sum(nil))
}

func (g *maskGenerator) getMask(diff Translation) layout.LaidOutTensor[layout.ChunkIr] {
	nonzeros := g.diffMap[diff]
	key := maskCacheKey(g.layout, diff, nonzeros)
	if v, ok := maskCache.Load(key); ok {
		return v.(layout.LaidOutTensor[layout.ChunkIr])
	}

	chunkSize := int(g.layout.ChunkSize())
	valuesByOffset := map[int][]float64{}
	for _, ti := range nonzeros {
		offset := g.layout.ChunkOffsets()[ti.ChunkNumber()]
		vals, ok := valuesByOffset[offset.Flat()]
		if !ok {
			vals = make([]float64, chunkSize)
		}
		vals[ti.ChunkIndex()] = 1
		valuesByOffset[offset.Flat()] = vals
	}

	chunks := make([]layout.LaidOutChunk[layout.ChunkIr], 0, g.layout.TotalChunks())
	for _, offset := range g.layout.ChunkOffsets() {
		var payload layout.ChunkIr
		if vals, ok := valuesByOffset[offset.Flat()]; ok {
			payload = layout.NewDirectChunkIr(vals)
		} else {
			payload = layout.NewZeroChunkIr(chunkSize)
		}
		chunks = append(chunks, layout.LaidOutChunk[layout.ChunkIr]{Layout: g.layout, Offset: offset, Payload: payload})
	}

	out, err := layout.NewLaidOutTensor(g.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: getMask: %v", err))
	}

	maskCache.Store(key, out)
	return out
}

// getTranslationMasks returns one TranslationMask per registered diff, in
// a deterministic order (ascending chunk-number-diff then chunk-index-diff)
// so repeated compilations of the same program emit identical output.
func (g *maskGenerator) getTranslationMasks() []TranslationMask {
	diffs := make([]Translation, 0, len(g.diffMap))
	for d := range g.diffMap {
		diffs = append(diffs, d)
	}
	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].ChunkNumberDiff != diffs[j].ChunkNumberDiff {
			return diffs[i].ChunkNumberDiff < diffs[j].ChunkNumberDiff
		}
		return diffs[i].ChunkIndexDiff < diffs[j].ChunkIndexDiff
	})

	out := make([]TranslationMask, len(diffs))
	for i, d := range diffs {
		out[i] = TranslationMask{Translation: d, Mask: g.getMask(d)}
	}
	return out
}
