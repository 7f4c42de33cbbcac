// Package decompose implements the conversion decomposer: a rewrite pass
// that replaces an over-wide TLayoutConversionC (one that would need more
// masked rotate-and-sum branches than a backend budget allows) with a chain
// of cheaper conversions, each moving at most a bounded number of chunk
// bits. Grounded on conversion_decomposer_pass.cc.
package decompose

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/permutation"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensorop"
	"github.com/fhelipe-compiler/fhelipe-sub001/utils"
)

// ConversionDecomposerPass splits a TLayoutConversionC whose cost — 2 raised
// to the count of mismatching chunk bits, one masked rotate-and-sum branch
// per combination of those bits — exceeds MaxTentaclesPerConversion into a chain of cheaper
// TLayoutConversionC nodes, each moving at most ceil_log2(M) bits.
type ConversionDecomposerPass struct {
	MaxTentaclesPerConversion int
}

// DoPass clones in (preserving every other node unchanged) and replaces
// each over-budget TLayoutConversionC with its decomposition.
func (p ConversionDecomposerPass) DoPass(in *dag.Dag[tensorop.TOp]) *dag.Dag[tensorop.TOp] {
	out, _ := dag.CloneFrom(in, func(_ dag.NodeID, value tensorop.TOp, _ []tensorop.TOp) tensorop.TOp {
		return value
	})

	for _, id := range out.TopologicalOrder() {
		if id == out.Sentinel {
			continue
		}
		conv, ok := out.Get(id).(tensorop.TLayoutConversionC)
		if !ok || !isExpensiveConversion(conv, p.MaxTentaclesPerConversion) {
			continue
		}
		decomposeConversion(out, id, conv, p.MaxTentaclesPerConversion)
	}
	return out
}

func mismatchingLayoutBitCount(input, output layout.TensorLayout) int {
	inBits := input.ChunkBits()
	outBits := output.ChunkBits()
	if len(inBits) != len(outBits) {
		panic("internal invariant violation: mismatchingLayoutBitCount: chunk bit length mismatch")
	}
	n := 0
	for i := range inBits {
		if !bitPtrEqual(inBits[i], outBits[i]) {
			n++
		}
	}
	return n
}

func bitPtrEqual(a, b *tensor.DimensionBit) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Equal(*b)
}

func isExpensiveConversion(conv tensorop.TLayoutConversionC, maxTentaclesPerConversion int) bool {
	return (1 << mismatchingLayoutBitCount(conv.InputLayout(), conv.OutputLayout())) > maxTentaclesPerConversion
}

// nulloptToNegativeDimension replaces each nil (unbound) entry with a
// distinct synthetic DimensionBit(-1, serial), so every position in bits
// names something a permutation can be built over.
func nulloptToNegativeDimension(bits []*tensor.DimensionBit) []*tensor.DimensionBit {
	out := make([]*tensor.DimensionBit, len(bits))
	fakeIdx := 0
	for i, b := range bits {
		if b != nil {
			out[i] = b
			continue
		}
		v := tensor.NewDimensionBit(-1, fakeIdx)
		fakeIdx++
		out[i] = &v
	}
	return out
}

func indexOf(bits []*tensor.DimensionBit, target tensor.DimensionBit) (int, bool) {
	for i, b := range bits {
		if b != nil && b.Equal(target) {
			return i, true
		}
	}
	return 0, false
}

func contains(bits []*tensor.DimensionBit, target tensor.DimensionBit) bool {
	_, ok := indexOf(bits, target)
	return ok
}

// matchNegativeDimensions aligns synthetic bits between the two sides: for
// every position where both sides carry a synthetic bit, rhs borrows lhs's
// value at that position (swapping its previous occupant elsewhere in rhs
// first, if lhs's value already appears there), so a later "not present in
// in_bits" scan treats co-located synthetic pairs as already matched.
func matchNegativeDimensions(lhs, rhs []*tensor.DimensionBit) {
	for idx := range lhs {
		if lhs[idx].Dimension == -1 && rhs[idx].Dimension == -1 {
			if lhs[idx].BitIndex != rhs[idx].BitIndex && contains(rhs, *lhs[idx]) {
				swapIdx, _ := indexOf(rhs, *lhs[idx])
				rhs[swapIdx] = rhs[idx]
			}
			rhs[idx] = lhs[idx]
		}
	}
}

// traceCycleUntilOut follows inBits[idx] -> (its position in outBits) ->
// inBits[that position] -> ... until it lands on an index not present in
// outBits, returning that terminal index.
func traceCycleUntilOut(inBits, outBits []*tensor.DimensionBit, idx int) int {
	for {
		pos, ok := indexOf(outBits, *inBits[idx])
		if !ok {
			return idx
		}
		idx = pos
	}
}

// constructPermutableLayoutBits extends inBits/outBits (padding None with
// synthetic per-side bits first) until every bit named by one side also
// appears in the other, so a permutation between equal-length,
// same-multiset bit vectors can be extracted.
func constructPermutableLayoutBits(input, output layout.TensorLayout) ([]*tensor.DimensionBit, []*tensor.DimensionBit) {
	inBits := nulloptToNegativeDimension(input.ChunkBits())
	outBits := nulloptToNegativeDimension(output.ChunkBits())
	matchNegativeDimensions(inBits, outBits)

	n := len(inBits)
	for idx := 0; idx < n; idx++ {
		if !contains(inBits, *outBits[idx]) {
			inBits = append(inBits, outBits[idx])
			outIdx := traceCycleUntilOut(inBits, outBits, idx)
			outBits = append(outBits, inBits[outIdx])
		}
	}
	return inBits, outBits
}

// extractPermutation returns the permutation p such that p maps the
// position of each bit in inBits to its position in outBits.
func extractPermutation(inBits, outBits []*tensor.DimensionBit) permutation.Permutation {
	n := len(inBits)
	image := make([]int, n)
	for i, b := range inBits {
		pos, ok := indexOf(outBits, *b)
		if !ok {
			panic("internal invariant violation: extractPermutation: bit vectors are not a permutation of each other")
		}
		image[i] = pos
	}
	p, err := permutation.New(image)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: extractPermutation: %v", err))
	}
	return p
}

// cleanUp truncates bits back to chunkSize's bit count and turns synthetic
// entries back into unbound (nil) slots, then builds the resulting layout.
func cleanUp(shape tensor.Shape, bits []*tensor.DimensionBit, chunkSize tensor.ChunkSize) layout.TensorLayout {
	k := utils.CeilLog2(int(chunkSize))
	result := make([]*tensor.DimensionBit, 0, k)
	for i := 0; i < k && i < len(bits); i++ {
		b := bits[i]
		if b.Dimension == -1 {
			result = append(result, nil)
		} else {
			result = append(result, b)
		}
	}
	l, err := layout.New(shape, result)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: cleanUp: %v", err))
	}
	return l
}

// permutationsToLayouts applies each permutation in turn to startBits,
// cleaning up every intermediate bit vector (including the first and last)
// into a TensorLayout.
func permutationsToLayouts(startBits []*tensor.DimensionBit, perms []permutation.Permutation, shape tensor.Shape, chunkSize tensor.ChunkSize) []layout.TensorLayout {
	sequence := [][]*tensor.DimensionBit{startBits}
	for _, p := range perms {
		sequence = append(sequence, permutation.Apply(p, sequence[len(sequence)-1]))
	}

	layouts := make([]layout.TensorLayout, len(sequence))
	for i, bits := range sequence {
		layouts[i] = cleanUp(shape, bits, chunkSize)
	}
	return layouts
}

// breakUpIntoPermutationsWithAtLeastKFixedPoints splits p into a sequence
// of permutations each with at least k fixed points (budget = size - k),
// composing left-to-right (sequence[0] applied first) back to p.
func breakUpIntoPermutationsWithAtLeastKFixedPoints(p permutation.Permutation, k int) []permutation.Permutation {
	budget := p.N() - k
	parts := permutation.BreakUp(p, budget)
	// permutation.BreakUp's ComposeSequence applies its LAST element first;
	// the decomposer here wants to apply its chain in array order (index 0
	// first, building layouts forward), so reverse the pieces.
	out := make([]permutation.Permutation, len(parts))
	for i, part := range parts {
		out[len(parts)-1-i] = part
	}
	return out
}

// decomposeConversion replaces the TLayoutConversionC at id with a chain of
// conversions through the layouts produced by splitting its bit permutation
// into pieces that each move at most k = ceil_log2(maxTentaclesPerConversion)
// positions (at least len(bits)-k fixed points).
func decomposeConversion(d *dag.Dag[tensorop.TOp], id dag.NodeID, conv tensorop.TLayoutConversionC, maxTentaclesPerConversion int) {
	inBits, outBits := constructPermutableLayoutBits(conv.InputLayout(), conv.OutputLayout())
	p := extractPermutation(inBits, outBits)

	k := utils.CeilLog2(maxTentaclesPerConversion)
	perms := breakUpIntoPermutationsWithAtLeastKFixedPoints(p, len(inBits)-k)

	layouts := permutationsToLayouts(inBits, perms, conv.InputLayout().Shape(), conv.InputLayout().ChunkSize())

	parents := d.Parents(id)
	if len(parents) != 1 {
		panic("internal invariant violation: decomposeConversion: TLayoutConversionC must have exactly 1 parent")
	}
	children := d.Children(id)

	prev := parents[0]
	var newID dag.NodeID
	for i := 0; i+1 < len(layouts); i++ {
		step, err := tensorop.NewTLayoutConversionC(layouts[i], layouts[i+1])
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: decomposeConversion: %v", err))
		}
		newID = d.AddNode(step, prev)
		prev = newID
	}

	for _, child := range children {
		d.AddEdge(newID, child)
	}
	for _, child := range children {
		d.RemoveEdge(id, child)
	}
	d.RemoveEdge(parents[0], id)
	d.RemoveNode(id)
}
