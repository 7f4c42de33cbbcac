// Package ctop implements the ciphertext-operation variants that populate
// the DAG's nodes (component D): a tagged sum discriminated by Kind,
// following the teacher's "tagged variant + visitor" pattern (no
// dynamic_cast equivalent is needed in Go — a type switch on Kind
// replaces it).
package ctop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// Kind discriminates the CtOp tagged union.
type Kind int

const (
	AddCC Kind = iota
	AddCP
	AddCSI
	MulCC
	MulCP
	MulCSI
	RotateC
	RescaleC
	BootstrapC
	InputC
	OutputC
	ZeroC
	SchedulableMulKsh
	SchedulableRotateKsh
)

func (k Kind) String() string {
	switch k {
	case AddCC:
		return "AddCC"
	case AddCP:
		return "AddCP"
	case AddCSI:
		return "AddCSI"
	case MulCC:
		return "MulCC"
	case MulCP:
		return "MulCP"
	case MulCSI:
		return "MulCSI"
	case RotateC:
		return "RotateC"
	case RescaleC:
		return "RescaleC"
	case BootstrapC:
		return "BootstrapC"
	case InputC:
		return "InputC"
	case OutputC:
		return "OutputC"
	case ZeroC:
		return "ZeroC"
	case SchedulableMulKsh:
		return "SchedulableMulKsh"
	case SchedulableRotateKsh:
		return "SchedulableRotateKsh"
	default:
		panic("internal invariant violation: unknown CtOp kind")
	}
}

// CtOp is one ciphertext operation: a Kind discriminator, the LevelInfo it
// carries, and whichever of the variant-specific fields its Kind uses.
type CtOp struct {
	Kind      Kind
	LevelInfo tensor.LevelInfo

	RotateBy        int             // RotateC, SchedulableRotateKsh
	PlaintextHandle string          // AddCP, MulCP: the dictionary key identifying the resolved plaintext chunk
	PtLogScale      tensor.LogScale // MulCP: the log-scale contributed by the plaintext operand
	Scalar          float64         // AddCSI, MulCSI
	Io              tensor.IoSpec   // InputC, OutputC
}

func NewAddCC(li tensor.LevelInfo) CtOp { return CtOp{Kind: AddCC, LevelInfo: li} }
func NewMulCC(li tensor.LevelInfo) CtOp { return CtOp{Kind: MulCC, LevelInfo: li} }

func NewAddCP(li tensor.LevelInfo, plaintextHandle string) CtOp {
	return CtOp{Kind: AddCP, LevelInfo: li, PlaintextHandle: plaintextHandle}
}

func NewMulCP(li tensor.LevelInfo, plaintextHandle string, ptLogScale tensor.LogScale) CtOp {
	return CtOp{Kind: MulCP, LevelInfo: li, PlaintextHandle: plaintextHandle, PtLogScale: ptLogScale}
}

func NewAddCSI(li tensor.LevelInfo, scalar float64) CtOp {
	return CtOp{Kind: AddCSI, LevelInfo: li, Scalar: scalar}
}

func NewMulCSI(li tensor.LevelInfo, scalar float64) CtOp {
	return CtOp{Kind: MulCSI, LevelInfo: li, Scalar: scalar}
}

func NewRotateC(li tensor.LevelInfo, rotateBy int) CtOp {
	return CtOp{Kind: RotateC, LevelInfo: li, RotateBy: rotateBy}
}

func NewRescaleC(li tensor.LevelInfo) CtOp   { return CtOp{Kind: RescaleC, LevelInfo: li} }
func NewBootstrapC(li tensor.LevelInfo) CtOp { return CtOp{Kind: BootstrapC, LevelInfo: li} }
func NewZeroC(li tensor.LevelInfo) CtOp      { return CtOp{Kind: ZeroC, LevelInfo: li} }

func NewInputC(li tensor.LevelInfo, io tensor.IoSpec) CtOp {
	return CtOp{Kind: InputC, LevelInfo: li, Io: io}
}

func NewOutputC(li tensor.LevelInfo, io tensor.IoSpec) CtOp {
	return CtOp{Kind: OutputC, LevelInfo: li, Io: io}
}

// NewSchedulableMulKsh builds a key-switch hint pseudo-node for a MulCC.
// Its LevelInfo carries a zero log-scale, matching the source's
// `CtOp({level, 0})` constructor for hint nodes.
func NewSchedulableMulKsh(level tensor.Level) CtOp {
	return CtOp{Kind: SchedulableMulKsh, LevelInfo: tensor.NewLevelInfo(level, 0)}
}

// NewSchedulableRotateKsh builds a key-switch hint pseudo-node for a
// RotateC by rotateBy.
func NewSchedulableRotateKsh(level tensor.Level, rotateBy int) CtOp {
	return CtOp{Kind: SchedulableRotateKsh, LevelInfo: tensor.NewLevelInfo(level, 0), RotateBy: rotateBy}
}

// IsZero reports whether op is the ZeroC variant.
func (op CtOp) IsZero() bool { return op.Kind == ZeroC }

// RequiresKeySwitching reports whether op needs a key-switch hint attached
// during schedulable emission (§4.J step 1): true for MulCC and RotateC.
func (op CtOp) RequiresKeySwitching() bool {
	return op.Kind == MulCC || op.Kind == RotateC
}

// IsHint reports whether op is one of the schedulable key-switch hint
// pseudo-ops (never a "ct" node in the §6 emission format).
func (op CtOp) IsHint() bool {
	return op.Kind == SchedulableMulKsh || op.Kind == SchedulableRotateKsh
}

func (op CtOp) String() string {
	switch op.Kind {
	case RotateC:
		return fmt.Sprintf("%s(by=%d,%s)", op.Kind, op.RotateBy, op.LevelInfo)
	case AddCP, MulCP:
		return fmt.Sprintf("%s(%s,%s)", op.Kind, op.PlaintextHandle, op.LevelInfo)
	case AddCSI, MulCSI:
		return fmt.Sprintf("%s(%g,%s)", op.Kind, op.Scalar, op.LevelInfo)
	case InputC, OutputC:
		return fmt.Sprintf("%s(%s,%s)", op.Kind, op.Io, op.LevelInfo)
	case SchedulableRotateKsh:
		return fmt.Sprintf("%s(by=%d,level=%d)", op.Kind, op.RotateBy, op.LevelInfo.Level)
	case SchedulableMulKsh:
		return fmt.Sprintf("%s(level=%d)", op.Kind, op.LevelInfo.Level)
	default:
		return fmt.Sprintf("%s(%s)", op.Kind, op.LevelInfo)
	}
}
