// Package dag implements a typed, arena-backed DAG of Node[T] values:
// parents and children are stored as node-id indices rather than pointers
// (§4.C, §9 "DAG with cross edges"), so a Dag can be cloned, walked in
// topological order, and rewired by decomposition passes without pointer
// aliasing concerns.
package dag

import "fmt"

// NodeID is a stable identifier assigned in construction order. Cloning a
// Dag from an ancestor preserves NodeIDs so a debug-info archive can map
// source to destination ids after a rewrite (§5).
type NodeID int

// node is the arena-resident representation of a Node[T]: a value plus
// parent/child edges stored as NodeID slices. Duplicate entries represent
// edge multiplicity (e.g. `a + a`: node a appears twice in the sum node's
// parents).
type node[T any] struct {
	id       NodeID
	value    T
	parents  []NodeID
	children []NodeID
}

// Dag owns an arena of nodes and a designated Sentinel root used to anchor
// structurally-deduplicated nodes (the "rotate-by-zero / zero-input
// simplifications" of §4.F dedupe through the sentinel's children).
type Dag[T any] struct {
	arena    map[NodeID]*node[T]
	order    []NodeID // construction order, used to assign the next id and for a stable ancestor-id ordering
	nextID   NodeID
	Sentinel NodeID

	dedup map[string]NodeID // content-hash (hex) -> NodeID, populated by Intern
}

// New returns an empty Dag with its Sentinel node allocated.
func New[T any]() *Dag[T] {
	d := &Dag[T]{
		arena: map[NodeID]*node[T]{},
		dedup: map[string]NodeID{},
	}
	var zero T
	d.Sentinel = d.addNode(zero, nil)
	return d
}

func (d *Dag[T]) addNode(value T, parents []NodeID) NodeID {
	id := d.nextID
	d.nextID++
	n := &node[T]{id: id, value: value, parents: append([]NodeID(nil), parents...)}
	d.arena[id] = n
	d.order = append(d.order, id)
	for _, p := range parents {
		pn, ok := d.arena[p]
		if !ok {
			panic(fmt.Sprintf("internal invariant violation: AddNode: parent %d does not exist", p))
		}
		pn.children = append(pn.children, id)
	}
	return id
}

// AddNode appends a new node carrying value, with edges from each of
// parents (duplicates allowed, representing multi-edges such as `a + a`).
func (d *Dag[T]) AddNode(value T, parents ...NodeID) NodeID {
	return d.addNode(value, parents)
}

// Get returns the value stored at id.
func (d *Dag[T]) Get(id NodeID) T {
	n, ok := d.arena[id]
	if !ok {
		panic(fmt.Sprintf("internal invariant violation: Get: node %d does not exist", id))
	}
	return n.value
}

// Set overwrites the value stored at id, used by passes that rewrite
// LevelInfo in place (e.g. LevelMinimizationPass).
func (d *Dag[T]) Set(id NodeID, value T) {
	n, ok := d.arena[id]
	if !ok {
		panic(fmt.Sprintf("internal invariant violation: Set: node %d does not exist", id))
	}
	n.value = value
}

// Parents returns id's parent edges, including duplicates.
func (d *Dag[T]) Parents(id NodeID) []NodeID {
	return append([]NodeID(nil), d.arena[id].parents...)
}

// Children returns id's child edges, including duplicates.
func (d *Dag[T]) Children(id NodeID) []NodeID {
	return append([]NodeID(nil), d.arena[id].children...)
}

// Nodes returns every node id in construction order, including the
// Sentinel.
func (d *Dag[T]) Nodes() []NodeID {
	return append([]NodeID(nil), d.order...)
}

// Exists reports whether id is still present in the Dag.
func (d *Dag[T]) Exists(id NodeID) bool {
	_, ok := d.arena[id]
	return ok
}

// AddEdge adds one edge instance from parent to child. Used by rewrite
// passes (e.g. the conversion decomposer) that need to splice new nodes
// into existing edges.
func (d *Dag[T]) AddEdge(parent, child NodeID) {
	pn, ok := d.arena[parent]
	if !ok {
		panic(fmt.Sprintf("internal invariant violation: AddEdge: parent %d does not exist", parent))
	}
	cn, ok := d.arena[child]
	if !ok {
		panic(fmt.Sprintf("internal invariant violation: AddEdge: child %d does not exist", child))
	}
	pn.children = append(pn.children, child)
	cn.parents = append(cn.parents, parent)
}

// RemoveEdge removes a single instance of the parent->child edge (one
// multiplicity unit). Panics if no such edge exists.
func (d *Dag[T]) RemoveEdge(parent, child NodeID) {
	pn := d.arena[parent]
	cn := d.arena[child]
	if pn == nil || cn == nil {
		panic("internal invariant violation: RemoveEdge: endpoint does not exist")
	}
	pn.children = removeOne(pn.children, child)
	cn.parents = removeOne(cn.parents, parent)
}

func removeOne(xs []NodeID, v NodeID) []NodeID {
	for i, x := range xs {
		if x == v {
			return append(append([]NodeID(nil), xs[:i]...), xs[i+1:]...)
		}
	}
	panic("internal invariant violation: RemoveEdge: edge not found")
}

// RemoveNode deletes id from the arena. It must have no remaining parent
// or child edges (callers rewire around a node before removing it, as
// NoopPruningPass does).
func (d *Dag[T]) RemoveNode(id NodeID) {
	n, ok := d.arena[id]
	if !ok {
		panic(fmt.Sprintf("internal invariant violation: RemoveNode: node %d does not exist", id))
	}
	if len(n.parents) != 0 || len(n.children) != 0 {
		panic(fmt.Sprintf("internal invariant violation: RemoveNode: node %d still has edges", id))
	}
	delete(d.arena, id)
	for i, o := range d.order {
		if o == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// TopologicalOrder returns node ids such that every parent precedes its
// children (a stable order derived from construction order among ties).
func (d *Dag[T]) TopologicalOrder() []NodeID {
	indeg := map[NodeID]int{}
	for _, id := range d.order {
		indeg[id] = len(d.arena[id].parents)
	}
	var ready []NodeID
	for _, id := range d.order {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}
	var out []NodeID
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)
		for _, c := range d.arena[id].children {
			indeg[c]--
			if indeg[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	if len(out) != len(d.order) {
		panic("internal invariant violation: TopologicalOrder: graph contains a true cycle")
	}
	return out
}

// ReverseTopologicalOrder returns node ids such that every child precedes
// its parents, used by passes that must visit consumers before producers
// (e.g. LevelMinimizationPass).
func (d *Dag[T]) ReverseTopologicalOrder() []NodeID {
	fwd := d.TopologicalOrder()
	out := make([]NodeID, len(fwd))
	for i, id := range fwd {
		out[len(fwd)-1-i] = id
	}
	return out
}
