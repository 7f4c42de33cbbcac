package permutation

import "fmt"

// PermutationCycle stores a single cycle over a domain of size N: the
// ordered member indices. Expansion to a Permutation uses the convention
// that cycle[(i+1) mod L] receives the value that was at cycle[i], i.e.
// Expand().At(cycle[i]) == cycle[(i+1) mod L].
type PermutationCycle struct {
	n       int
	members []int
}

// NewCycle validates that members are distinct and within [0, n) and
// returns a PermutationCycle.
func NewCycle(n int, members []int) (PermutationCycle, error) {
	seen := make(map[int]bool, len(members))
	for _, m := range members {
		if m < 0 || m >= n {
			return PermutationCycle{}, fmt.Errorf("cannot permutation.NewCycle: member %d out of range [0,%d)", m, n)
		}
		if seen[m] {
			return PermutationCycle{}, fmt.Errorf("cannot permutation.NewCycle: duplicate member %d", m)
		}
		seen[m] = true
	}
	return PermutationCycle{n: n, members: append([]int(nil), members...)}, nil
}

// N returns the size of the ambient domain.
func (c PermutationCycle) N() int { return c.n }

// Members returns a copy of the ordered member indices.
func (c PermutationCycle) Members() []int {
	return append([]int(nil), c.members...)
}

// Len returns the number of moved positions (0 or 1 for a degenerate
// cycle, both of which act as the identity).
func (c PermutationCycle) Len() int { return len(c.members) }

// Expand returns the Permutation over {0,...,N()-1} that this cycle
// describes: fixed everywhere except its members, which rotate by one
// position along the cycle.
func (c PermutationCycle) Expand() Permutation {
	img := make([]int, c.n)
	for i := range img {
		img[i] = i
	}
	L := len(c.members)
	for i := 0; i < L; i++ {
		img[c.members[i]] = c.members[(i+1)%L]
	}
	p, err := New(img)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: Expand produced invalid permutation: %v", err))
	}
	return p
}

// FixedPoints returns n - Len(), the number of positions this cycle leaves
// untouched.
func (c PermutationCycle) FixedPoints() int {
	return c.n - len(c.members)
}
