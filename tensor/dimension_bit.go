package tensor

import "fmt"

// DimensionBit names one bit of one tensor dimension: bit BitIndex of the
// binary expansion of an index along dimension Dimension. Dimension is
// negative for synthetic bits introduced by the conversion decomposer
// (§4.H) to pad a layout's bit vector to a common length.
type DimensionBit struct {
	Dimension int
	BitIndex  int
}

// NewDimensionBit constructs a DimensionBit.
func NewDimensionBit(dimension, bitIndex int) DimensionBit {
	return DimensionBit{Dimension: dimension, BitIndex: bitIndex}
}

// Equal reports structural equality.
func (b DimensionBit) Equal(other DimensionBit) bool {
	return b.Dimension == other.Dimension && b.BitIndex == other.BitIndex
}

// Less defines the total order used to canonicalize bit vectors: by
// dimension, then by bit index.
func (b DimensionBit) Less(other DimensionBit) bool {
	if b.Dimension != other.Dimension {
		return b.Dimension < other.Dimension
	}
	return b.BitIndex < other.BitIndex
}

func (b DimensionBit) String() string {
	return fmt.Sprintf("(d=%d,b=%d)", b.Dimension, b.BitIndex)
}

// IsSynthetic reports whether this bit was introduced by the conversion
// decomposer rather than naming a real tensor dimension.
func (b DimensionBit) IsSynthetic() bool { return b.Dimension < 0 }
