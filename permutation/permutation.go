// Package permutation implements the permutation algebra used by the
// translation-mask lowering and the conversion decomposer: a bijection
// over {0..n}, its cycle decomposition, and a budget-bounded cycle split.
package permutation

import "fmt"

// Permutation is a bijection over {0, ..., n-1} stored in one-line form:
// image[i] is the image of i.
type Permutation struct {
	image []int
}

// New validates that image is a bijection over {0,...,len(image)-1} and
// returns a Permutation.
func New(image []int) (Permutation, error) {
	n := len(image)
	seen := make([]bool, n)
	for i, v := range image {
		if v < 0 || v >= n {
			return Permutation{}, fmt.Errorf("cannot permutation.New: image[%d]=%d out of range [0,%d)", i, v, n)
		}
		if seen[v] {
			return Permutation{}, fmt.Errorf("cannot permutation.New: image value %d repeated", v)
		}
		seen[v] = true
	}
	return Permutation{image: append([]int(nil), image...)}, nil
}

// Identity returns the identity permutation of size n.
func Identity(n int) Permutation {
	img := make([]int, n)
	for i := range img {
		img[i] = i
	}
	return Permutation{image: img}
}

// N returns the size of the permutation's domain.
func (p Permutation) N() int { return len(p.image) }

// At returns the image of i.
func (p Permutation) At(i int) int { return p.image[i] }

// Image returns a copy of the one-line form.
func (p Permutation) Image() []int {
	return append([]int(nil), p.image...)
}

// Compose returns the permutation q such that q(i) = p2(p1(i)), i.e. p1
// applied first, p2 second. Receiver-first naming follows mathematical
// composition order: p1.Compose(p2) == p2 ∘ p1.
func (p1 Permutation) Compose(p2 Permutation) Permutation {
	if p1.N() != p2.N() {
		panic("internal invariant violation: Compose size mismatch")
	}
	out := make([]int, p1.N())
	for i := range out {
		out[i] = p2.At(p1.At(i))
	}
	return Permutation{image: out}
}

// Inverse returns the inverse permutation.
func (p Permutation) Inverse() Permutation {
	out := make([]int, p.N())
	for i, v := range p.image {
		out[v] = i
	}
	return Permutation{image: out}
}

// Apply applies the permutation to seq: the element at index i lands at
// index p.At(i) in the result.
func Apply[T any](p Permutation, seq []T) []T {
	if len(seq) != p.N() {
		panic("internal invariant violation: Apply size mismatch")
	}
	out := make([]T, p.N())
	for i, v := range seq {
		out[p.At(i)] = v
	}
	return out
}

// Equal reports whether p and other define the same mapping.
func (p Permutation) Equal(other Permutation) bool {
	if p.N() != other.N() {
		return false
	}
	for i := range p.image {
		if p.image[i] != other.image[i] {
			return false
		}
	}
	return true
}

// Cycles decomposes p into its disjoint cycles, omitting fixed points.
func (p Permutation) Cycles() []PermutationCycle {
	visited := make([]bool, p.N())
	var cycles []PermutationCycle
	for i := 0; i < p.N(); i++ {
		if visited[i] || p.At(i) == i {
			visited[i] = true
			continue
		}
		var members []int
		for j := i; !visited[j]; j = p.At(j) {
			visited[j] = true
			members = append(members, j)
		}
		c, err := NewCycle(p.N(), members)
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: Cycles produced invalid cycle: %v", err))
		}
		cycles = append(cycles, c)
	}
	return cycles
}

// ComposeCycles expands and composes a sequence of cycles (in the order
// given, left to right) into a single Permutation over the common size n.
func ComposeCycles(n int, cycles []PermutationCycle) Permutation {
	p := Identity(n)
	for _, c := range cycles {
		p = p.Compose(c.Expand())
	}
	return p
}
