package tensor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S1 Shape/indexing from spec.md §8: shape=[2,3], ti=[1,2] => flat=5.
func TestTensorIndexFlatOffset(t *testing.T) {
	shape := MustNewShape(2, 3)
	ti, err := NewTensorIndex(shape, []int{1, 2})
	require.NoError(t, err)
	require.Equal(t, 5, ti.Flat())

	back, err := NewTensorIndexFromFlat(shape, 5)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, back.Dims())
}

func TestTensorIndexRoundTrip(t *testing.T) {
	shape := MustNewShape(3, 4, 2)
	for flat := 0; flat < shape.NumElements(); flat++ {
		ti, err := NewTensorIndexFromFlat(shape, flat)
		require.NoError(t, err)
		require.Equal(t, flat, ti.Flat())

		back, err := NewTensorIndex(shape, ti.Dims())
		require.NoError(t, err)
		require.True(t, back.Equal(ti))
	}
}

func TestTensorIndexOutOfBounds(t *testing.T) {
	shape := MustNewShape(2, 3)
	_, err := NewTensorIndex(shape, []int{2, 0})
	require.Error(t, err)

	_, err = NewTensorIndexFromFlat(shape, 6)
	require.Error(t, err)
}

func TestDiffTensorIndexCyclicAdd(t *testing.T) {
	shape := MustNewShape(4)
	delta, err := NewDiffTensorIndex(shape, []int{1})
	require.NoError(t, err)

	ti := mustIndex(t, shape, []int{3})
	out, err := delta.CyclicAdd(ti)
	require.NoError(t, err)
	require.Equal(t, []int{0}, out.Dims())
}

func TestDiffTensorIndexNonCyclicAdd(t *testing.T) {
	shape := MustNewShape(4)
	delta, err := NewDiffTensorIndex(shape, []int{1})
	require.NoError(t, err)

	ti := mustIndex(t, shape, []int{3})
	_, ok := delta.NonCyclicAdd(ti)
	require.False(t, ok)

	ti2 := mustIndex(t, shape, []int{2})
	out, ok := delta.NonCyclicAdd(ti2)
	require.True(t, ok)
	require.Equal(t, []int{3}, out.Dims())
}

func mustIndex(t *testing.T, shape Shape, dims []int) TensorIndex {
	t.Helper()
	ti, err := NewTensorIndex(shape, dims)
	require.NoError(t, err)
	return ti
}
