package tensorop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
	"github.com/fhelipe-compiler/fhelipe-sub001/translate"
	"github.com/fhelipe-compiler/fhelipe-sub001/utils"
)

// TResizeDimC translates every tensor index from inputLayout to
// outputLayout unchanged, dropping any index that falls outside
// outputLayout's shape — the padding/truncation primitive TReduceDimC and
// TReplicateDimC build on. Grounded on t_resize_dim_c.cc.
type TResizeDimC struct {
	inputLayout  layout.TensorLayout
	outputLayout layout.TensorLayout
}

// NewTResizeDimC requires input and output layouts of equal rank.
func NewTResizeDimC(input, output layout.TensorLayout) (TResizeDimC, error) {
	if input.Shape().Rank() != output.Shape().Rank() {
		return TResizeDimC{}, fmt.Errorf("cannot NewTResizeDimC: rank mismatch %d vs %d", input.Shape().Rank(), output.Shape().Rank())
	}
	return TResizeDimC{inputLayout: input, outputLayout: output}, nil
}

// mustNewTResizeDimC is NewTResizeDimC for call sites (TReduceDimC,
// TReplicateDimC) that already guarantee equal rank.
func mustNewTResizeDimC(input, output layout.TensorLayout) TResizeDimC {
	r, err := NewTResizeDimC(input, output)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: mustNewTResizeDimC: %v", err))
	}
	return r
}

func (t TResizeDimC) InputLayout() layout.TensorLayout  { return t.inputLayout }
func (t TResizeDimC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TResizeDimC) AddedLogScale() tensor.LogScale    { return 0 }

// BackendMaskDepth is 1 whenever resizing actually changes the layout
// (some slots may need zeroing), 0 when input and output coincide.
func (t TResizeDimC) BackendMaskDepth() int {
	if t.inputLayout.Equal(t.outputLayout) {
		return 0
	}
	return 1
}

func (t TResizeDimC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	if t.inputLayout.Equal(t.outputLayout) {
		return input
	}
	outShape := t.outputLayout.Shape()
	masks := translate.MakeTranslationMasks(t.inputLayout, t.outputLayout, func(ti tensor.TensorIndex) (tensor.TensorIndex, bool) {
		if !outShape.Contains(ti.Dims()) {
			return tensor.TensorIndex{}, false
		}
		out, err := tensor.NewTensorIndex(outShape, ti.Dims())
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: TResizeDimC: %v", err))
		}
		return out, true
	})
	return translate.ApplyTranslationMasks(b, input, masks, t.outputLayout, 0)
}

func (t TResizeDimC) Equal(other TOp) bool {
	o, ok := other.(TResizeDimC)
	return ok && t.inputLayout.Equal(o.inputLayout) && t.outputLayout.Equal(o.outputLayout)
}

func (t TResizeDimC) String() string {
	return fmt.Sprintf("TResizeDimC(%s->%s)", t.inputLayout.Shape(), t.outputLayout.Shape())
}

// TReorderDimsC permutes a tensor's dimensions according to dimOrder:
// output dimension i is input dimension dimOrder[i]. Grounded on
// t_reorder_dims_c.cc.
type TReorderDimsC struct {
	inputLayout  layout.TensorLayout
	outputLayout layout.TensorLayout
	dimOrder     []int
}

// NewTReorderDimsC validates that outputLayout's shape is inputLayout's
// shape permuted by dimOrder, and that dimOrder is a genuine permutation of
// [0, rank).
func NewTReorderDimsC(input, output layout.TensorLayout, dimOrder []int) (TReorderDimsC, error) {
	rank := input.Shape().Rank()
	if len(dimOrder) != rank {
		return TReorderDimsC{}, fmt.Errorf("cannot NewTReorderDimsC: dimOrder length %d != rank %d", len(dimOrder), rank)
	}
	wantShape, err := tensor.NewShape(utils.Permute(input.Shape().Dims(), dimOrder)...)
	if err != nil {
		return TReorderDimsC{}, fmt.Errorf("cannot NewTReorderDimsC: %w", err)
	}
	if !wantShape.Equal(output.Shape()) {
		return TReorderDimsC{}, fmt.Errorf("cannot NewTReorderDimsC: output shape %s does not match permuted input shape %s", output.Shape(), wantShape)
	}
	seen := make([]bool, rank)
	for _, d := range dimOrder {
		if d < 0 || d >= rank || seen[d] {
			return TReorderDimsC{}, fmt.Errorf("cannot NewTReorderDimsC: dimOrder %v is not a permutation of [0,%d)", dimOrder, rank)
		}
		seen[d] = true
	}
	return TReorderDimsC{inputLayout: input, outputLayout: output, dimOrder: append([]int(nil), dimOrder...)}, nil
}

func (t TReorderDimsC) InputLayout() layout.TensorLayout  { return t.inputLayout }
func (t TReorderDimsC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TReorderDimsC) AddedLogScale() tensor.LogScale    { return 0 }

// BackendMaskDepth is conservatively 1: the teacher's own comment notes it
// may not need masking, but leaves the conservative estimate in place.
func (t TReorderDimsC) BackendMaskDepth() int { return 1 }
func (t TReorderDimsC) DimensionOrder() []int { return append([]int(nil), t.dimOrder...) }

func (t TReorderDimsC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	outShape := t.outputLayout.Shape()
	masks := translate.MakeTranslationMasks(t.inputLayout, t.outputLayout, func(ti tensor.TensorIndex) (tensor.TensorIndex, bool) {
		out, err := tensor.NewTensorIndex(outShape, utils.Permute(ti.Dims(), t.dimOrder))
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: TReorderDimsC: %v", err))
		}
		return out, true
	})
	return translate.ApplyTranslationMasks(b, input, masks, t.outputLayout, 0)
}

func (t TReorderDimsC) Equal(other TOp) bool {
	o, ok := other.(TReorderDimsC)
	if !ok || !t.inputLayout.Equal(o.inputLayout) || !t.outputLayout.Equal(o.outputLayout) || len(t.dimOrder) != len(o.dimOrder) {
		return false
	}
	for i := range t.dimOrder {
		if t.dimOrder[i] != o.dimOrder[i] {
			return false
		}
	}
	return true
}

func (t TReorderDimsC) String() string {
	return fmt.Sprintf("TReorderDimsC(%s,%v)", t.inputLayout.Shape(), t.dimOrder)
}

// TStrideC keeps only the tensor indices divisible by strides (per
// dimension), dividing the surviving indices down. Grounded on
// t_stride_c.cc.
type TStrideC struct {
	inputLayout  layout.TensorLayout
	outputLayout layout.TensorLayout
	strides      []int
}

// NewTStrideC validates outputLayout's shape is ceil(inputDim/stride) per
// dimension.
func NewTStrideC(input, output layout.TensorLayout, strides []int) (TStrideC, error) {
	shape := input.Shape()
	if len(strides) != shape.Rank() {
		return TStrideC{}, fmt.Errorf("cannot NewTStrideC: strides length %d != rank %d", len(strides), shape.Rank())
	}
	for d := 0; d < shape.Rank(); d++ {
		if strides[d] <= 0 {
			return TStrideC{}, fmt.Errorf("cannot NewTStrideC: stride %d at dim %d must be positive", strides[d], d)
		}
		want := (shape.Dim(d) + strides[d] - 1) / strides[d]
		if output.Shape().Dim(d) != want {
			return TStrideC{}, fmt.Errorf("cannot NewTStrideC: output dim %d is %d, want %d", d, output.Shape().Dim(d), want)
		}
	}
	return TStrideC{inputLayout: input, outputLayout: output, strides: append([]int(nil), strides...)}, nil
}

func (t TStrideC) InputLayout() layout.TensorLayout  { return t.inputLayout }
func (t TStrideC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TStrideC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TStrideC) BackendMaskDepth() int             { return 1 }
func (t TStrideC) Strides() []int                    { return append([]int(nil), t.strides...) }

func (t TStrideC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	outShape := t.outputLayout.Shape()
	masks := translate.MakeTranslationMasks(t.inputLayout, t.outputLayout, func(ti tensor.TensorIndex) (tensor.TensorIndex, bool) {
		dims := ti.Dims()
		for d, v := range dims {
			if v%t.strides[d] != 0 {
				return tensor.TensorIndex{}, false
			}
		}
		strided := make([]int, len(dims))
		for d, v := range dims {
			strided[d] = v / t.strides[d]
		}
		out, err := tensor.NewTensorIndex(outShape, strided)
		if err != nil {
			panic(fmt.Sprintf("internal invariant violation: TStrideC: %v", err))
		}
		return out, true
	})
	return translate.ApplyTranslationMasks(b, input, masks, t.outputLayout, 0)
}

func (t TStrideC) Equal(other TOp) bool {
	o, ok := other.(TStrideC)
	if !ok || !t.inputLayout.Equal(o.inputLayout) || !t.outputLayout.Equal(o.outputLayout) || len(t.strides) != len(o.strides) {
		return false
	}
	for i := range t.strides {
		if t.strides[i] != o.strides[i] {
			return false
		}
	}
	return true
}

func (t TStrideC) String() string {
	return fmt.Sprintf("TStrideC(%s,%v)", t.inputLayout.Shape(), t.strides)
}

// renumberBits renumbers chunk bits' dimension index: -1 at/after
// dimToDrop (TDropDimC), or +1 at/after dimToInsert (TInsertDimC).
func renumberBits(bits []*tensor.DimensionBit, at int, delta int) []*tensor.DimensionBit {
	out := make([]*tensor.DimensionBit, len(bits))
	for i, b := range bits {
		if b == nil {
			continue
		}
		nb := *b
		if nb.Dimension >= at {
			nb.Dimension += delta
		}
		out[i] = &nb
	}
	return out
}

// TDropDimC removes a size-1 dimension, renumbering every chunk bit at or
// past it down by one. Emits no ciphertext primitive: every chunk is
// re-tagged in place. Grounded on t_drop_dim_c.cc.
type TDropDimC struct {
	layout       layout.TensorLayout
	outputLayout layout.TensorLayout
	dimToDrop    int
}

func NewTDropDimC(l layout.TensorLayout, dimToDrop int) (TDropDimC, error) {
	shape := l.Shape()
	if dimToDrop < 0 || dimToDrop >= shape.Rank() {
		return TDropDimC{}, fmt.Errorf("cannot NewTDropDimC: dimToDrop %d out of range [0,%d)", dimToDrop, shape.Rank())
	}
	if shape.Dim(dimToDrop) != 1 {
		return TDropDimC{}, fmt.Errorf("cannot NewTDropDimC: dimension %d has size %d, want 1", dimToDrop, shape.Dim(dimToDrop))
	}
	dims := shape.Dims()
	newDims := append(append([]int(nil), dims[:dimToDrop]...), dims[dimToDrop+1:]...)
	outShape, err := tensor.NewShape(newDims...)
	if err != nil {
		return TDropDimC{}, fmt.Errorf("cannot NewTDropDimC: %w", err)
	}
	outLayout, err := layout.New(outShape, renumberBits(l.ChunkBits(), dimToDrop, -1))
	if err != nil {
		return TDropDimC{}, fmt.Errorf("cannot NewTDropDimC: %w", err)
	}
	return TDropDimC{layout: l, outputLayout: outLayout, dimToDrop: dimToDrop}, nil
}

func (t TDropDimC) InputLayout() layout.TensorLayout  { return t.layout }
func (t TDropDimC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TDropDimC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TDropDimC) BackendMaskDepth() int             { return 0 }
func (t TDropDimC) DimensionToDrop() int              { return t.dimToDrop }

func (t TDropDimC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	chunks := adaptToLayout(t.outputLayout, input.Chunks)
	out, err := layout.NewLaidOutTensor(t.outputLayout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TDropDimC: %v", err))
	}
	return out
}

func (t TDropDimC) Equal(other TOp) bool {
	o, ok := other.(TDropDimC)
	return ok && t.outputLayout.Equal(o.outputLayout) && t.dimToDrop == o.dimToDrop
}

func (t TDropDimC) String() string { return fmt.Sprintf("TDropDimC(%s,dim=%d)", t.layout.Shape(), t.dimToDrop) }

// TInsertDimC inserts a size-1 dimension, renumbering every chunk bit at or
// past it up by one. Emits no ciphertext primitive. Grounded on
// t_insert_dim_c.cc.
type TInsertDimC struct {
	layout       layout.TensorLayout
	outputLayout layout.TensorLayout
	dimToInsert  int
}

func NewTInsertDimC(l layout.TensorLayout, dimToInsert int) (TInsertDimC, error) {
	shape := l.Shape()
	if dimToInsert < 0 || dimToInsert > shape.Rank() {
		return TInsertDimC{}, fmt.Errorf("cannot NewTInsertDimC: dimToInsert %d out of range [0,%d]", dimToInsert, shape.Rank())
	}
	dims := shape.Dims()
	newDims := append(append([]int(nil), dims[:dimToInsert]...), 1)
	newDims = append(newDims, dims[dimToInsert:]...)
	outShape, err := tensor.NewShape(newDims...)
	if err != nil {
		return TInsertDimC{}, fmt.Errorf("cannot NewTInsertDimC: %w", err)
	}
	outLayout, err := layout.New(outShape, renumberBits(l.ChunkBits(), dimToInsert, 1))
	if err != nil {
		return TInsertDimC{}, fmt.Errorf("cannot NewTInsertDimC: %w", err)
	}
	return TInsertDimC{layout: l, outputLayout: outLayout, dimToInsert: dimToInsert}, nil
}

func (t TInsertDimC) InputLayout() layout.TensorLayout  { return t.layout }
func (t TInsertDimC) OutputLayout() layout.TensorLayout { return t.outputLayout }
func (t TInsertDimC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TInsertDimC) BackendMaskDepth() int             { return 0 }
func (t TInsertDimC) DimensionToInsert() int            { return t.dimToInsert }

func (t TInsertDimC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	chunks := adaptToLayout(t.outputLayout, input.Chunks)
	out, err := layout.NewLaidOutTensor(t.outputLayout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TInsertDimC: %v", err))
	}
	return out
}

func (t TInsertDimC) Equal(other TOp) bool {
	o, ok := other.(TInsertDimC)
	return ok && t.outputLayout.Equal(o.outputLayout) && t.dimToInsert == o.dimToInsert
}

func (t TInsertDimC) String() string {
	return fmt.Sprintf("TInsertDimC(%s,dim=%d)", t.layout.Shape(), t.dimToInsert)
}
