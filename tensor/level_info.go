package tensor

import "fmt"

// Level is the number of remaining steps in the ciphertext's modulus
// chain. A rescale drops it by one; a bootstrap resets it to the program's
// UsableLevels.
type Level int

// LogScale is the base-2 logarithm of a ciphertext's scaling factor. It
// increases with multiplication and is reduced by a rescale.
type LogScale int

// ChunkSize is the number of plaintext slots packed into one ciphertext,
// always a power of two (2^k for some k, the layout's chunk_bits length).
type ChunkSize int

// Log2 returns k such that ChunkSize == 2^k. Panics if the ChunkSize is not
// a power of two — a configuration error caught at layout construction.
func (c ChunkSize) Log2() int {
	if c <= 0 || c&(c-1) != 0 {
		panic(fmt.Sprintf("ChunkSize %d is not a power of two", c))
	}
	k := 0
	for v := c; v > 1; v >>= 1 {
		k++
	}
	return k
}

// LevelInfo pairs the remaining modulus-chain depth with the scale, the
// cost-model metadata every ciphertext chunk carries.
type LevelInfo struct {
	Level    Level
	LogScale LogScale
}

// NewLevelInfo constructs a LevelInfo.
func NewLevelInfo(level Level, logScale LogScale) LevelInfo {
	return LevelInfo{Level: level, LogScale: logScale}
}

// Equal reports structural equality.
func (li LevelInfo) Equal(other LevelInfo) bool {
	return li.Level == other.Level && li.LogScale == other.LogScale
}

// Rescaled returns the LevelInfo after a rescale by amount: level drops by
// one, log-scale drops by amount.
func (li LevelInfo) Rescaled(amount LogScale) LevelInfo {
	return LevelInfo{Level: li.Level - 1, LogScale: li.LogScale - amount}
}

// Bootstrapped returns the LevelInfo after a bootstrap to usableLevels: the
// level resets, the log-scale is inherited unchanged from the input.
func (li LevelInfo) Bootstrapped(usableLevels Level) LevelInfo {
	return LevelInfo{Level: usableLevels, LogScale: li.LogScale}
}

func (li LevelInfo) String() string {
	return fmt.Sprintf("%d %d", li.Level, li.LogScale)
}

// IoSpec names one input/output binding: a symbolic tensor name and the
// flat offset within that tensor this chunk/slot corresponds to.
type IoSpec struct {
	Name string
	Flat int
}

// NewIoSpec constructs an IoSpec.
func NewIoSpec(name string, flat int) IoSpec {
	return IoSpec{Name: name, Flat: flat}
}

func (s IoSpec) String() string {
	return fmt.Sprintf("%s_%d", s.Name, s.Flat)
}

// Equal reports structural equality.
func (s IoSpec) Equal(other IoSpec) bool {
	return s.Name == other.Name && s.Flat == other.Flat
}
