package levelpass

import (
	"github.com/fhelipe-compiler/fhelipe-sub001/ctop"
	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
)

// PruneNoops removes the arithmetic no-ops a ZeroC operand leaves behind:
// a RotateC, MulCP, or MulCSI child of a zero is always zero itself and is
// deleted outright; a MulCC child of a zero is deleted too (its non-zero
// parent's edge is dropped, then the node itself is removed; no zero node
// takes its place); an AddCC child of a zero just drops the zero-parent edge,
// surviving with its one remaining parent. OutputC/AddCP/AddCSI children are
// untouched — they still read the zero's value. Grounded on
// noop_prunning_pass.cc's NoopPrunningPass::DoPass/PruneDescendants.
func PruneNoops(in *dag.Dag[ctop.CtOp]) *dag.Dag[ctop.CtOp] {
	out, _ := dag.CloneFrom(in, func(_ dag.NodeID, value ctop.CtOp, _ []ctop.CtOp) ctop.CtOp {
		return value
	})

	var zeros []dag.NodeID
	for _, id := range out.Children(out.Sentinel) {
		if out.Get(id).Kind == ctop.ZeroC {
			zeros = append(zeros, id)
		}
	}

	for _, zero := range zeros {
		pruneDescendants(out, zero)
	}
	return out
}

// pruneDescendants repeatedly walks zero's current children, since removing
// one child can expose a fresh child list (it loops until a pass over the
// children removes nothing).
func pruneDescendants(d *dag.Dag[ctop.CtOp], zero dag.NodeID) {
	for {
		children := d.Children(zero)
		if len(children) == 0 {
			return
		}
		prunedAny := false
		for _, child := range children {
			if !d.Exists(child) {
				continue
			}
			if pruneChild(d, zero, child) {
				prunedAny = true
			}
		}
		if !prunedAny {
			return
		}
	}
}

// pruneChild applies one node's no-op rule and reports whether it changed
// the DAG (so the caller knows whether to loop again).
func pruneChild(d *dag.Dag[ctop.CtOp], zero, child dag.NodeID) bool {
	switch d.Get(child).Kind {
	case ctop.RotateC, ctop.MulCP, ctop.MulCSI:
		removeNodeAndEdges(d, child)
		return true
	case ctop.MulCC:
		other := otherParentOfChild(d, zero, child)
		d.RemoveEdge(other, child)
		removeNodeAndEdges(d, child)
		return true
	case ctop.AddCC:
		d.RemoveEdge(zero, child)
		return true
	default:
		// OutputC, AddCP, AddCSI: left untouched, they still consume zero.
		return false
	}
}

// otherParentOfChild returns child's one parent other than zero. Grounded
// on OtherParentOfChild; returns the first such parent, and panics if every
// parent of child is zero.
func otherParentOfChild(d *dag.Dag[ctop.CtOp], zero, child dag.NodeID) dag.NodeID {
	parents := d.Parents(child)
	for _, p := range parents {
		if p != zero {
			return p
		}
	}
	panic("internal invariant violation: otherParentOfChild: MulCC child has no parent other than zero")
}

// removeNodeAndEdges detaches node from every parent and child, then
// removes it — dag.Dag.RemoveNode refuses to remove a node still carrying
// edges.
func removeNodeAndEdges(d *dag.Dag[ctop.CtOp], node dag.NodeID) {
	for _, p := range append([]dag.NodeID(nil), d.Parents(node)...) {
		d.RemoveEdge(p, node)
	}
	for _, c := range append([]dag.NodeID(nil), d.Children(node)...) {
		d.RemoveEdge(node, c)
	}
	d.RemoveNode(node)
}
