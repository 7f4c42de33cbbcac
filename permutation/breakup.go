package permutation

// BreakUp decomposes p into a sequence of permutations, each with at most
// budget moved positions (equivalently, at least p.N()-budget fixed
// points), whose ComposeSequence reconstructs p (§4.E).
//
// Greedy algorithm: decompose p into disjoint cycles, then repeatedly fill
// an output permutation by popping cycles off the front of the queue. A
// cycle that fits inside the remaining budget is folded in whole; a cycle
// that doesn't is split at the budget boundary — as many leading members
// as the current permutation's remaining budget allows close into a self-contained cycle consumed now, and the
// remaining members, together with the shared boundary element, are
// re-pushed to the front of the queue as a new cycle to be consumed by a
// later output permutation.
//
// Composition order: see ComposeSequence — the split construction only
// reconstructs p when later-emitted permutations are applied before
// earlier-emitted ones, so ComposeSequence applies its argument in reverse
// order.
func BreakUp(p Permutation, budget int) []Permutation {
	if budget <= 0 {
		panic("internal invariant violation: BreakUp requires a positive budget")
	}

	queue := p.Cycles()
	var out []Permutation

	for len(queue) > 0 {
		remaining := budget
		var batch []PermutationCycle

		for remaining > 0 && len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]

			if c.Len() <= remaining {
				batch = append(batch, c)
				remaining -= c.Len()
				continue
			}

			members := c.Members()
			prefix, err := NewCycle(c.N(), members[:remaining])
			if err != nil {
				panic(err)
			}
			suffixMembers := append([]int{members[remaining-1]}, members[remaining:]...)
			suffix, err := NewCycle(c.N(), suffixMembers)
			if err != nil {
				panic(err)
			}

			batch = append(batch, prefix)
			remaining = 0
			queue = append([]PermutationCycle{suffix}, queue...)
		}

		out = append(out, ComposeCycles(p.N(), batch))
	}

	if len(out) == 0 {
		// p was already the identity: still return a single identity
		// permutation so callers can rely on ComposeSequence round-tripping.
		out = []Permutation{Identity(p.N())}
	}

	return out
}

// ComposeSequence composes a slice of permutations produced by BreakUp
// back into a single Permutation, applying the LAST element of perms
// first and the FIRST element last. This is the order BreakUp's
// prefix/suffix split requires: the piece consumed by an earlier batch
// always needs to act after the piece re-pushed into a later batch.
func ComposeSequence(perms []Permutation) Permutation {
	if len(perms) == 0 {
		panic("internal invariant violation: ComposeSequence requires at least one permutation")
	}
	acc := perms[len(perms)-1]
	for i := len(perms) - 2; i >= 0; i-- {
		acc = acc.Compose(perms[i])
	}
	return acc
}

// MovedPositions returns the number of positions p maps away from
// themselves.
func MovedPositions(p Permutation) int {
	n := 0
	for i := 0; i < p.N(); i++ {
		if p.At(i) != i {
			n++
		}
	}
	return n
}
