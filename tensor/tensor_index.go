package tensor

import "fmt"

// TensorIndex is a (shape, per-dimension index vector) pair together with
// its precomputed row-major flat offset.
type TensorIndex struct {
	shape Shape
	dims  []int
	flat  int
}

// NewTensorIndex validates dims against shape and returns a TensorIndex.
// Every per-dimension index must lie in [0, shape.Dim(d)).
func NewTensorIndex(shape Shape, dims []int) (TensorIndex, error) {
	if len(dims) != shape.Rank() {
		return TensorIndex{}, fmt.Errorf("cannot NewTensorIndex: rank mismatch, shape has %d dims, got %d", shape.Rank(), len(dims))
	}
	if !shape.Contains(dims) {
		return TensorIndex{}, fmt.Errorf("cannot NewTensorIndex: index %v out of bounds for shape %s", dims, shape)
	}
	return TensorIndex{shape: shape, dims: append([]int(nil), dims...), flat: flatOffset(shape, dims)}, nil
}

// NewTensorIndexFromFlat reconstructs a TensorIndex from a row-major flat
// offset.
func NewTensorIndexFromFlat(shape Shape, flat int) (TensorIndex, error) {
	n := shape.NumElements()
	if flat < 0 || flat >= n {
		return TensorIndex{}, fmt.Errorf("cannot NewTensorIndexFromFlat: flat offset %d out of range [0,%d)", flat, n)
	}
	dims := make([]int, shape.Rank())
	rem := flat
	for d := shape.Rank() - 1; d >= 0; d-- {
		dims[d] = rem % shape.Dim(d)
		rem /= shape.Dim(d)
	}
	return TensorIndex{shape: shape, dims: dims, flat: flat}, nil
}

func flatOffset(shape Shape, dims []int) int {
	flat := 0
	for d := 0; d < shape.Rank(); d++ {
		flat = flat*shape.Dim(d) + dims[d]
	}
	return flat
}

// Shape returns the tensor's shape.
func (t TensorIndex) Shape() Shape { return t.shape }

// Dim returns the index along dimension d.
func (t TensorIndex) Dim(d int) int { return t.dims[d] }

// Dims returns a copy of the per-dimension index vector.
func (t TensorIndex) Dims() []int {
	cp := make([]int, len(t.dims))
	copy(cp, t.dims)
	return cp
}

// Flat returns the row-major flat offset.
func (t TensorIndex) Flat() int { return t.flat }

// Equal reports structural equality.
func (t TensorIndex) Equal(other TensorIndex) bool {
	if !t.shape.Equal(other.shape) || t.flat != other.flat {
		return false
	}
	for i := range t.dims {
		if t.dims[i] != other.dims[i] {
			return false
		}
	}
	return true
}

func (t TensorIndex) String() string {
	return fmt.Sprintf("TensorIndex%v@%s", t.dims, t.shape)
}

// DiffTensorIndex is a signed per-dimension delta, |delta_d| <= shape[d].
type DiffTensorIndex struct {
	shape Shape
	delta []int
}

// NewDiffTensorIndex validates delta against shape and returns a
// DiffTensorIndex.
func NewDiffTensorIndex(shape Shape, delta []int) (DiffTensorIndex, error) {
	if len(delta) != shape.Rank() {
		return DiffTensorIndex{}, fmt.Errorf("cannot NewDiffTensorIndex: rank mismatch, shape has %d dims, got %d", shape.Rank(), len(delta))
	}
	for d, v := range delta {
		if v > shape.Dim(d) || v < -shape.Dim(d) {
			return DiffTensorIndex{}, fmt.Errorf("cannot NewDiffTensorIndex: delta %d at dim %d exceeds shape bound %d", v, d, shape.Dim(d))
		}
	}
	return DiffTensorIndex{shape: shape, delta: append([]int(nil), delta...)}, nil
}

// Dim returns the delta along dimension d.
func (d DiffTensorIndex) Dim(dim int) int { return d.delta[dim] }

// CyclicAdd adds the delta to ti with wrap-around (modulo each dimension's
// size); it returns an error only when ti's shape differs from the delta's.
func (d DiffTensorIndex) CyclicAdd(ti TensorIndex) (TensorIndex, error) {
	if !d.shape.Equal(ti.Shape()) {
		return TensorIndex{}, fmt.Errorf("cannot CyclicAdd: shape mismatch")
	}
	out := make([]int, d.shape.Rank())
	for i := range out {
		v := (ti.Dim(i) + d.delta[i]) % d.shape.Dim(i)
		if v < 0 {
			v += d.shape.Dim(i)
		}
		out[i] = v
	}
	return NewTensorIndex(d.shape, out)
}

// NonCyclicAdd adds the delta to ti without wrap-around, returning ok=false
// if the result falls out of range on any dimension.
func (d DiffTensorIndex) NonCyclicAdd(ti TensorIndex) (result TensorIndex, ok bool) {
	if !d.shape.Equal(ti.Shape()) {
		return TensorIndex{}, false
	}
	out := make([]int, d.shape.Rank())
	for i := range out {
		v := ti.Dim(i) + d.delta[i]
		if v < 0 || v >= d.shape.Dim(i) {
			return TensorIndex{}, false
		}
		out[i] = v
	}
	ti2, err := NewTensorIndex(d.shape, out)
	if err != nil {
		return TensorIndex{}, false
	}
	return ti2, true
}
