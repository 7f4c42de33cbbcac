// Package program implements the pass interface's program context and the
// CtProgram façade that ties every other package together: a ProgramContext
// carries the HE parameters a pass needs (usable levels, log-scale, the
// crater-lake/log-q maps schedule emission reads), and CtProgram bundles a
// ProgramContext with a ctop.CtOp dag.Dag and a ChunkDictionary, implementing
// tensorop.Builder so a TOp's AmendCtProgram can be driven against a real
// graph instead of a test double. Grounded on ct_program.h/ct_program.cc and
// include/program_context.h.
package program

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// ProgramContext is the immutable, validated-at-construction bag of HE
// parameters every pass is specified against (the "in_program"/"out_program"
// of §6's pass interface always carries one of these alongside its dag and
// chunk dictionary). Constructed only via NewProgramContext — never a bare
// struct literal, mirroring how core/rlwe/params.go guards rlwe.Parameters.
type ProgramContext struct {
	LogN                   int
	DefaultLogScale        tensor.LogScale
	UsableLevels           tensor.Level
	SecurityBits           int
	LogQ                   []int
	CraterLakeBitsPerLevel int
}

// NewProgramContext validates and returns a ProgramContext. UsableLevels is
// held to the same range the source's Level interval type enforces
// (level.h: CHECK(value >= 1 && value < 100)); SecurityBits must be one of
// the two values package schedule's ksh-digit table covers; LogQ must carry exactly
// one entry per usable level (ct_program.cc's GetLogQ indexes
// level_to_log_q_map[level-1]).
func NewProgramContext(logN int, defaultLogScale tensor.LogScale, usableLevels tensor.Level, securityBits int, logQ []int, craterLakeBitsPerLevel int) (ProgramContext, error) {
	if logN <= 0 {
		return ProgramContext{}, fmt.Errorf("cannot build ProgramContext: LogN must be positive, got %d", logN)
	}
	if usableLevels < 1 || usableLevels >= 100 {
		return ProgramContext{}, fmt.Errorf("cannot build ProgramContext: UsableLevels must be in [1, 100), got %d", usableLevels)
	}
	if securityBits != 80 && securityBits != 128 {
		return ProgramContext{}, fmt.Errorf("cannot build ProgramContext: SecurityBits must be 80 or 128, got %d", securityBits)
	}
	if len(logQ) != int(usableLevels) {
		return ProgramContext{}, fmt.Errorf("cannot build ProgramContext: LogQ must carry %d entries (one per usable level), got %d", usableLevels, len(logQ))
	}
	if craterLakeBitsPerLevel <= 0 {
		return ProgramContext{}, fmt.Errorf("cannot build ProgramContext: CraterLakeBitsPerLevel must be positive, got %d", craterLakeBitsPerLevel)
	}
	return ProgramContext{
		LogN:                   logN,
		DefaultLogScale:        defaultLogScale,
		UsableLevels:           usableLevels,
		SecurityBits:           securityBits,
		LogQ:                   append([]int(nil), logQ...),
		CraterLakeBitsPerLevel: craterLakeBitsPerLevel,
	}, nil
}

// DefaultLevelToLogQMap builds the LogQ a ProgramContext would use absent an
// explicit modulus chain: level x (0-indexed) accumulates x*logScale bits,
// following ct_program.cc's DefaultLevelToLogQMap exactly.
func DefaultLevelToLogQMap(usableLevels tensor.Level, logScale tensor.LogScale) []int {
	out := make([]int, usableLevels)
	for x := range out {
		out[x] = x * int(logScale)
	}
	return out
}

// craterLakeLevel implements ct_program.cc's LevelToCraterLakeLevel: the
// number of 28-bit crater-lake "R" slots a ciphertext at level needs,
// ceil(level*bitsPerLevel/28).
func craterLakeLevel(level int, bitsPerLevel tensor.LogScale, bitsPerCraterLakeLevel int) int {
	num := level * int(bitsPerLevel)
	return (num + bitsPerCraterLakeLevel - 1) / bitsPerCraterLakeLevel
}

// CraterLakeLevelMap returns a slice indexed directly by level value (index
// 0 unused, a placeholder matching BestPossibleLevelToCraterLakeLevelMap's
// leading 0) giving each level's crater-lake level.
func (pc ProgramContext) CraterLakeLevelMap() []int {
	out := make([]int, int(pc.UsableLevels)+1)
	for level := 1; level <= int(pc.UsableLevels); level++ {
		out[level] = craterLakeLevel(level, pc.DefaultLogScale, pc.CraterLakeBitsPerLevel)
	}
	return out
}

// LogQAt returns the log_q value GetLogQ(level, LogQ) would, i.e.
// LogQ[level-1].
func (pc ProgramContext) LogQAt(level tensor.Level) int {
	return pc.LogQ[int(level)-1]
}
