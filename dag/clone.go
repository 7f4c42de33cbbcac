package dag

// CloneFrom builds a new Dag by transforming every node of ancestor with
// transform, preserving NodeIDs (clone-from-ancestor, §5): the returned
// idMap lets callers (and the DebugInfoArchive, see package program) map
// ancestor ids to ids in the new Dag — here they are identical, since
// transform is applied node-for-node in ancestor's own id space.
//
// transform receives the ancestor's value at id and that id's
// already-transformed parent values (in ancestor's parent order,
// duplicates preserved) and returns the value to store at the
// corresponding node in the new Dag.
func CloneFrom[T, U any](ancestor *Dag[T], transform func(id NodeID, value T, parents []U) U) (*Dag[U], map[NodeID]NodeID) {
	out := New[U]()
	idMap := map[NodeID]NodeID{ancestor.Sentinel: out.Sentinel}

	for _, id := range ancestor.TopologicalOrder() {
		if id == ancestor.Sentinel {
			continue
		}
		parentIDs := ancestor.Parents(id)
		parentVals := make([]U, len(parentIDs))
		mappedParents := make([]NodeID, len(parentIDs))
		for i, p := range parentIDs {
			mappedParents[i] = idMap[p]
			parentVals[i] = out.Get(idMap[p])
		}
		value := transform(id, ancestor.Get(id), parentVals)
		out.nextID = id
		newID := out.addNode(value, mappedParents)
		idMap[id] = newID
	}
	out.nextID = ancestor.nextID
	out.order = append([]NodeID(nil), ancestor.order...)

	return out, idMap
}

// MapValues transforms every node's value with f, keeping the DAG's shape
// (ids, edges) identical. A thin convenience wrapper over CloneFrom for
// passes that only rewrite payloads (e.g. LevelMinimizationPass rewriting
// LevelInfo).
func MapValues[T, U any](ancestor *Dag[T], f func(id NodeID, value T) U) (*Dag[U], map[NodeID]NodeID) {
	return CloneFrom(ancestor, func(id NodeID, value T, _ []U) U {
		return f(id, value)
	})
}
