package permutation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rotation(n, by int) Permutation {
	img := make([]int, n)
	for i := 0; i < n; i++ {
		img[i] = (i + by) % n
	}
	p, err := New(img)
	if err != nil {
		panic(err)
	}
	return p
}

// Invariant 2 (spec.md §8): permutation laws.
func TestPermutationLaws(t *testing.T) {
	p := rotation(6, 2)
	id := Identity(6)

	require.True(t, p.Compose(id).Equal(p))
	require.True(t, id.Compose(p).Equal(p))
	require.True(t, p.Compose(p.Inverse()).Equal(id))

	cycles := p.Cycles()
	require.True(t, ComposeCycles(p.N(), cycles).Equal(p))
}

func TestPermutationApply(t *testing.T) {
	p := rotation(4, 1)
	out := Apply(p, []string{"a", "b", "c", "d"})
	require.Equal(t, []string{"d", "a", "b", "c"}, out)
}

func TestPermutationRejectsNonBijection(t *testing.T) {
	_, err := New([]int{0, 0})
	require.Error(t, err)

	_, err = New([]int{0, 2})
	require.Error(t, err)
}

func TestCycleExpandConvention(t *testing.T) {
	c, err := NewCycle(4, []int{0, 1, 2})
	require.NoError(t, err)
	p := c.Expand()
	require.Equal(t, 1, p.At(0))
	require.Equal(t, 2, p.At(1))
	require.Equal(t, 0, p.At(2))
	require.Equal(t, 3, p.At(3)) // fixed point
}

// BreakUp property test (spec.md §8 invariant 2 + S5): every output
// permutation has at most `budget` moved positions, and composing them
// back (via ComposeSequence) reconstructs the original.
func TestBreakUpProperty(t *testing.T) {
	cases := []struct {
		n, rotateBy, budget int
	}{
		{6, 1, 3},
		{6, 1, 2},
		{10, 3, 4},
		{8, 5, 1},
	}

	for _, c := range cases {
		p := rotation(c.n, c.rotateBy)
		parts := BreakUp(p, c.budget)

		for _, part := range parts {
			require.LessOrEqual(t, MovedPositions(part), c.budget)
		}

		require.True(t, ComposeSequence(parts).Equal(p))
	}
}

// S5 Permutation split (spec.md §8): n=6, single 6-cycle, budget=3: the
// decomposition terminates and reconstructs the original permutation. The
// exact permutation count the informal scenario describes ("two
// permutations") does not hold in general for a single cycle whose length
// exceeds 2*budget-1 (covering n distinct elements with cycles that must
// pairwise share a boundary element forces more than n/budget pieces); we
// assert the well-specified invariants instead (see DESIGN.md).
func TestBreakUpS5(t *testing.T) {
	p := rotation(6, 1)
	parts := BreakUp(p, 3)

	require.True(t, ComposeSequence(parts).Equal(p))
	for _, part := range parts {
		require.LessOrEqual(t, MovedPositions(part), 3)
	}
}

func TestBreakUpIdentity(t *testing.T) {
	id := Identity(5)
	parts := BreakUp(id, 2)
	require.True(t, ComposeSequence(parts).Equal(id))
}
