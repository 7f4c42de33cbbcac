package layout

import "fmt"

// Dictionary is the external keyed byte/value store the decomposed
// ChunkIr resolves plaintext names against. The dictionary/chunk-store
// implementation itself is out of scope (spec.md §1 Non-goals); this
// module only needs the read side.
type Dictionary interface {
	// Lookup returns the flat-ordered values stored under name.
	Lookup(name string) ([]float64, error)
}

// ChunkIrKind discriminates the ChunkIr tagged union.
type ChunkIrKind int

const (
	ZeroChunkIrKind ChunkIrKind = iota
	DirectChunkIrKind
	IndirectChunkIrKind
)

// ChunkIr is a tagged union describing how to materialize one plaintext
// chunk: either all-zero, a direct list of values, or an indirect gather
// from a named tensor in the external Dictionary.
type ChunkIr struct {
	Kind ChunkIrKind

	// ZeroChunkIr
	Size int

	// DirectChunkIr
	Values []float64

	// IndirectChunkIr
	TensorName string
	FlatIndex  []*int // per-slot optional flat index; nil entry => 0
}

// NewZeroChunkIr builds a ZeroChunkIr of the given size.
func NewZeroChunkIr(size int) ChunkIr {
	return ChunkIr{Kind: ZeroChunkIrKind, Size: size}
}

// NewDirectChunkIr builds a DirectChunkIr from explicit values.
func NewDirectChunkIr(values []float64) ChunkIr {
	return ChunkIr{Kind: DirectChunkIrKind, Values: append([]float64(nil), values...)}
}

// NewIndirectChunkIr builds an IndirectChunkIr gathering from tensorName at
// the given per-slot flat indices (nil entry means "emit 0 for this slot").
func NewIndirectChunkIr(tensorName string, flatIndex []*int) ChunkIr {
	cp := make([]*int, len(flatIndex))
	for i, v := range flatIndex {
		if v != nil {
			x := *v
			cp[i] = &x
		}
	}
	return ChunkIr{Kind: IndirectChunkIrKind, TensorName: tensorName, FlatIndex: cp}
}

// Resolve materializes the chunk's plaintext values, gathering from dict
// when Kind is IndirectChunkIrKind.
func (c ChunkIr) Resolve(dict Dictionary) ([]float64, error) {
	switch c.Kind {
	case ZeroChunkIrKind:
		return make([]float64, c.Size), nil
	case DirectChunkIrKind:
		return append([]float64(nil), c.Values...), nil
	case IndirectChunkIrKind:
		src, err := dict.Lookup(c.TensorName)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve IndirectChunkIr(%s): %w", c.TensorName, err)
		}
		out := make([]float64, len(c.FlatIndex))
		for i, idx := range c.FlatIndex {
			if idx == nil {
				continue
			}
			if *idx < 0 || *idx >= len(src) {
				return nil, fmt.Errorf("cannot resolve IndirectChunkIr(%s): flat index %d out of range [0,%d)", c.TensorName, *idx, len(src))
			}
			out[i] = src[*idx]
		}
		return out, nil
	default:
		panic("internal invariant violation: unknown ChunkIr kind")
	}
}

// IsZero reports whether this ChunkIr is structurally the all-zero chunk,
// used by the mask-free optimization (§4.F) to short-circuit MulCP.
func (c ChunkIr) IsZero() bool {
	if c.Kind == ZeroChunkIrKind {
		return true
	}
	if c.Kind == DirectChunkIrKind {
		for _, v := range c.Values {
			if v != 0 {
				return false
			}
		}
		return true
	}
	return false
}
