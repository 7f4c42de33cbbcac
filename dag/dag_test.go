package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDagTopologicalOrder(t *testing.T) {
	d := New[string]()
	a := d.AddNode("a")
	b := d.AddNode("b", a)
	c := d.AddNode("c", a, b)

	order := d.TopologicalOrder()
	pos := map[NodeID]int{}
	for i, id := range order {
		pos[id] = i
	}
	require.Less(t, pos[a], pos[b])
	require.Less(t, pos[b], pos[c])
	require.Less(t, pos[a], pos[c])
}

func TestDagDuplicateParentEdge(t *testing.T) {
	d := New[string]()
	a := d.AddNode("a")
	sum := d.AddNode("a+a", a, a)

	parents := d.Parents(sum)
	require.Len(t, parents, 2)
	require.Equal(t, a, parents[0])
	require.Equal(t, a, parents[1])
}

func TestDagAddRemoveEdge(t *testing.T) {
	d := New[string]()
	a := d.AddNode("a")
	b := d.AddNode("b")
	c := d.AddNode("c", a)

	d.AddEdge(b, c)
	require.ElementsMatch(t, []NodeID{a, b}, d.Parents(c))

	d.RemoveEdge(b, c)
	require.Equal(t, []NodeID{a}, d.Parents(c))
}

func TestDagRemoveNodeRequiresNoEdges(t *testing.T) {
	d := New[string]()
	a := d.AddNode("a")
	b := d.AddNode("b", a)

	require.Panics(t, func() { d.RemoveNode(a) })

	d.RemoveEdge(a, b)
	d.RemoveNode(a)
	require.False(t, d.Exists(a))
}

func TestDagCloneFromAncestor(t *testing.T) {
	d := New[int]()
	a := d.AddNode(1)
	b := d.AddNode(2, a)
	_ = d.AddNode(3, a, b)

	out, idMap := MapValues(d, func(id NodeID, v int) int { return v * 10 })

	require.Equal(t, 10, out.Get(idMap[a]))
	require.Equal(t, 20, out.Get(idMap[b]))
}

func TestDagCloneFromAncestorPreservesShape(t *testing.T) {
	d := New[int]()
	a := d.AddNode(1)
	b := d.AddNode(2, a)
	c := d.AddNode(3, a, b)

	out, idMap := MapValues(d, func(id NodeID, v int) int { return v })

	require.Equal(t, idMap[a], a)
	require.Equal(t, idMap[b], b)
	require.Equal(t, idMap[c], c)
	require.Equal(t, d.Parents(c), out.Parents(idMap[c]))
}

func TestDagIntern(t *testing.T) {
	d := New[string]()
	fp1 := ComputeFingerprint("zero", d.Sentinel)
	id1 := d.Intern(fp1, func() string { return "zero-chunk" })
	id2 := d.Intern(fp1, func() string { return "zero-chunk-again" })
	require.Equal(t, id1, id2)
	require.Equal(t, "zero-chunk", d.Get(id1))

	fp2 := ComputeFingerprint("zero", id1)
	id3 := d.Intern(fp2, func() string { return "different" })
	require.NotEqual(t, id1, id3)
}
