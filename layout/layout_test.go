package layout

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

func bit(d, b int) *tensor.DimensionBit {
	v := tensor.NewDimensionBit(d, b)
	return &v
}

// S2 Layout chunks from spec.md §8: shape=[4,4], chunk_bits =
// [Some(d=1,b=0), Some(d=1,b=1)] (k=2, chunk size 4).
func TestLayoutS2(t *testing.T) {
	shape := tensor.MustNewShape(4, 4)
	l, err := New(shape, []*tensor.DimensionBit{bit(1, 0), bit(1, 1)})
	require.NoError(t, err)

	require.Equal(t, tensor.ChunkSize(4), l.ChunkSize())

	offsets := l.ChunkOffsets()
	require.Len(t, offsets, 4)
	gotOffsets := make([][]int, len(offsets))
	for i, o := range offsets {
		gotOffsets[i] = o.Dims()
	}
	want := [][]int{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	if diff := cmp.Diff(want, gotOffsets); diff != "" {
		t.Errorf("chunk offsets mismatch (-want +got):\n%s", diff)
	}

	zero := offsets[0]
	indices := l.TensorIndices(zero)
	require.Len(t, indices, 4)
	gotIndices := make([][]int, len(indices))
	for slot, idx := range indices {
		require.NotNil(t, idx)
		gotIndices[slot] = idx.Dims()
	}
	wantIndices := [][]int{{0, 0}, {0, 1}, {0, 2}, {0, 3}}
	if diff := cmp.Diff(wantIndices, gotIndices); diff != "" {
		t.Errorf("tensor indices mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutRejectsDuplicateBit(t *testing.T) {
	shape := tensor.MustNewShape(4, 4)
	_, err := New(shape, []*tensor.DimensionBit{bit(1, 0), bit(1, 0)})
	require.Error(t, err)
}

func TestLayoutRejectsOutOfRangeBit(t *testing.T) {
	shape := tensor.MustNewShape(4)
	_, err := New(shape, []*tensor.DimensionBit{bit(0, 5)})
	require.Error(t, err)
}

// Invariant 1 (spec.md §8): layout round-trip.
func TestLayoutRoundTrip(t *testing.T) {
	shapes := []tensor.Shape{
		tensor.MustNewShape(4, 4),
		tensor.MustNewShape(3, 5),
		tensor.MustNewShape(8),
		tensor.MustNewShape(2, 2, 2),
	}
	bitsets := [][]*tensor.DimensionBit{
		{bit(0, 0), bit(0, 1)},
		{bit(1, 0)},
		{bit(0, 0), bit(0, 1), bit(0, 2)},
		{bit(2, 0), bit(1, 0)},
	}

	for i, shape := range shapes {
		l, err := New(shape, bitsets[i])
		require.NoError(t, err)

		offsets := l.ChunkOffsets()
		require.Len(t, offsets, l.TotalChunks())

		for flat := 0; flat < shape.NumElements(); flat++ {
			ti, err := tensor.NewTensorIndexFromFlat(shape, flat)
			require.NoError(t, err)

			n := l.ChunkNumberAt(ti)
			idx := l.ChunkIndexAt(ti)

			recon := l.TensorIndices(offsets[n])
			require.NotNil(t, recon[idx])
			require.True(t, recon[idx].Equal(ti))
		}
	}
}

func TestRowMajorPacker(t *testing.T) {
	shape := tensor.MustNewShape(4, 4)
	l, err := RowMajorPacker{}.Pack(shape, 4)
	require.NoError(t, err)
	require.Equal(t, tensor.ChunkSize(4), l.ChunkSize())
	require.Equal(t, 4, l.TotalChunks())
}

func TestChunkIrResolve(t *testing.T) {
	z := NewZeroChunkIr(4)
	vals, err := z.Resolve(nil)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0, 0}, vals)
	require.True(t, z.IsZero())

	d := NewDirectChunkIr([]float64{1, 0, 2, 0})
	vals, err = d.Resolve(nil)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0, 2, 0}, vals)
	require.False(t, d.IsZero())
}

func TestChunkIrIndirectResolve(t *testing.T) {
	dict := mapDictionary{"x": {10, 20, 30, 40}}
	idx1, idx3 := 1, 3
	ir := NewIndirectChunkIr("x", []*int{&idx1, nil, &idx3, nil})
	vals, err := ir.Resolve(dict)
	require.NoError(t, err)
	require.Equal(t, []float64{20, 0, 40, 0}, vals)
}

type mapDictionary map[string][]float64

func (m mapDictionary) Lookup(name string) ([]float64, error) {
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("no such tensor %q", name)
	}
	return v, nil
}
