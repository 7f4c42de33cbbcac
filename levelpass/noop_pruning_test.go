package levelpass

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhelipe-compiler/fhelipe-sub001/ctop"
	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

func li(level tensor.Level) tensor.LevelInfo { return tensor.NewLevelInfo(level, 40) }

// TestPruneNoopsRemovesRotateAndMulCPChildrenOfZero checks that a rotate or
// a plaintext-multiply fed by a zero ciphertext is deleted outright.
func TestPruneNoopsRemovesRotateAndMulCPChildrenOfZero(t *testing.T) {
	d := dag.New[ctop.CtOp]()
	zero := d.AddNode(ctop.NewZeroC(li(4)), d.Sentinel)
	rot := d.AddNode(ctop.NewRotateC(li(4), 1), zero)
	mulcp := d.AddNode(ctop.NewMulCP(li(4), "h", 0), zero)

	out := PruneNoops(d)
	require.False(t, out.Exists(rot))
	require.False(t, out.Exists(mulcp))
}

// TestPruneNoopsFoldsMulCCChildOfZero checks that a MulCC
// fed by a zero is removed and its other parent loses the edge.
func TestPruneNoopsFoldsMulCCChildOfZero(t *testing.T) {
	d := dag.New[ctop.CtOp]()
	zero := d.AddNode(ctop.NewZeroC(li(4)), d.Sentinel)
	x := d.AddNode(ctop.NewInputC(li(4), tensor.NewIoSpec("x", 0)))
	mul := d.AddNode(ctop.NewMulCC(li(4)), zero, x)

	out := PruneNoops(d)
	require.False(t, out.Exists(mul))
	require.Empty(t, out.Children(x))
}

// TestPruneNoopsKeepsAddCCSurvivorWithRemainingParent checks that an AddCC
// fed by a zero keeps living, now with only its non-zero parent.
func TestPruneNoopsKeepsAddCCSurvivorWithRemainingParent(t *testing.T) {
	d := dag.New[ctop.CtOp]()
	zero := d.AddNode(ctop.NewZeroC(li(4)), d.Sentinel)
	x := d.AddNode(ctop.NewInputC(li(4), tensor.NewIoSpec("x", 0)))
	add := d.AddNode(ctop.NewAddCC(li(4)), zero, x)

	out := PruneNoops(d)
	require.True(t, out.Exists(add))
	require.Equal(t, []dag.NodeID{x}, out.Parents(add))
}

// TestPruneNoopsLeavesOutputCUntouched checks that OutputC still reads the
// zero directly.
func TestPruneNoopsLeavesOutputCUntouched(t *testing.T) {
	d := dag.New[ctop.CtOp]()
	zero := d.AddNode(ctop.NewZeroC(li(4)), d.Sentinel)
	out_ := d.AddNode(ctop.NewOutputC(li(4), tensor.NewIoSpec("y", 0)), zero)

	out := PruneNoops(d)
	require.True(t, out.Exists(out_))
	require.Equal(t, []dag.NodeID{zero}, out.Parents(out_))
}

// TestPruneNoopsHandlesMultipleDistinctZeros checks that every ZeroC under
// the sentinel gets its own children pruned, not just the first.
func TestPruneNoopsHandlesMultipleDistinctZeros(t *testing.T) {
	d := dag.New[ctop.CtOp]()
	zero1 := d.AddNode(ctop.NewZeroC(li(4)), d.Sentinel)
	zero2 := d.AddNode(ctop.NewZeroC(li(5)), d.Sentinel)
	rot1 := d.AddNode(ctop.NewRotateC(li(4), 1), zero1)
	rot2 := d.AddNode(ctop.NewRotateC(li(5), 1), zero2)

	out := PruneNoops(d)
	require.False(t, out.Exists(rot1))
	require.False(t, out.Exists(rot2))
}
