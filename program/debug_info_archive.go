package program

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
)

// DebugInfoArchive records, per destination node id, the ancestor node ids
// it was derived from — a backward pointer set, not a forward one, since a
// single rewrite can fan one ancestor node out into several destination
// nodes (a conversion decomposer splitting one TLayoutConversionC into a
// chain) or fold several ancestor nodes into one (a pass merging redundant
// nodes). Grounded on debug_info_archive.h/.cc's backward_ptrs_ map; its
// SetBijection/ClusterDebugInfoArchive clustering helpers are provenance-
// visualization tooling with no consumer in this module and are not ported
// (see DESIGN.md).
//
// Resolve is consulted only for diagnostics — CloneFrom's idMap already
// gives passes the ancestor-to-destination mapping they need for their own
// logic, exactly as its doc comment anticipates.
type DebugInfoArchive struct {
	backwardPtrs map[dag.NodeID][]dag.NodeID
}

// NewDebugInfoArchive returns an empty DebugInfoArchive.
func NewDebugInfoArchive() *DebugInfoArchive {
	return &DebugInfoArchive{backwardPtrs: map[dag.NodeID][]dag.NodeID{}}
}

// Record adds dest's backward pointers to sources. Panics if dest already
// has a mapping, mirroring debug_info_archive.cc's AddMapping CHECK.
func (a *DebugInfoArchive) Record(dest dag.NodeID, sources ...dag.NodeID) {
	if _, ok := a.backwardPtrs[dest]; ok {
		panic(fmt.Sprintf("internal invariant violation: DebugInfoArchive: %d already has a mapping", dest))
	}
	a.backwardPtrs[dest] = append([]dag.NodeID(nil), sources...)
}

// Resolve returns the ancestor ids dest was recorded as derived from.
func (a *DebugInfoArchive) Resolve(dest dag.NodeID) ([]dag.NodeID, bool) {
	sources, ok := a.backwardPtrs[dest]
	return sources, ok
}

// MergeAdjacent composes two archives recorded back-to-back (lhs maps
// middle ids to their ancestors, rhs maps final ids to those same middle
// ids) into one archive mapping final ids directly to the original
// ancestors. Grounded on debug_info_archive.cc's free-function
// MergeAdjacent.
func MergeAdjacent(lhs, rhs *DebugInfoArchive) *DebugInfoArchive {
	merged := NewDebugInfoArchive()
	for dest, middles := range rhs.backwardPtrs {
		var sources []dag.NodeID
		for _, middle := range middles {
			if ancestors, ok := lhs.backwardPtrs[middle]; ok {
				sources = append(sources, ancestors...)
			} else {
				sources = append(sources, middle)
			}
		}
		merged.backwardPtrs[dest] = sources
	}
	return merged
}
