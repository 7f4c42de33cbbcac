// Package utils collects small generic slice/map helpers shared across the
// compiler passes: distinctness checks, sorted key enumeration, and the
// slice-rotation primitive several lowering passes build on.
package utils

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// AllDistinct reports whether every element of s is unique.
func AllDistinct[T comparable](s []T) bool {
	seen := make(map[T]struct{}, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}

// GetDistincts returns the distinct elements of s, in no particular order.
func GetDistincts[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	var out []T
	for _, v := range s {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// GetSortedKeys returns m's keys in ascending order.
func GetSortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RotateSlice returns a copy of s rotated left by by positions (negative
// rotates right), matching the convention `PermuteChunks` relies on:
// RotateSlice([1,2,3,4,5], 2) == [3,4,5,1,2].
func RotateSlice[T any](s []T, by int) []T {
	out := make([]T, len(s))
	copy(out, s)
	RotateSliceInPlace(out, by)
	return out
}

// RotateSliceInPlace rotates s left by by positions in place.
func RotateSliceInPlace[T any](s []T, by int) {
	n := len(s)
	if n == 0 {
		return
	}
	by = ((by % n) + n) % n
	if by == 0 {
		return
	}
	tmp := make([]T, n)
	for i := 0; i < n; i++ {
		tmp[i] = s[(i+by)%n]
	}
	copy(s, tmp)
}

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// CeilLog2 returns ceil(log2(n)) for n >= 1 (0 for n == 1), the number of
// bits needed to address n distinct values.
func CeilLog2(n int) int {
	b := 0
	for (1 << b) < n {
		b++
	}
	return b
}

// IsPowerOfTwo reports whether n is an exact power of two (false for n <= 0).
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Permute returns a copy of s reordered so that out[i] == s[order[i]],
// matching the teacher's diagonal-index permutation idiom used to reorder
// tensor dimensions.
func Permute[T any](s []T, order []int) []T {
	out := make([]T, len(order))
	for i, src := range order {
		out[i] = s[src]
	}
	return out
}
