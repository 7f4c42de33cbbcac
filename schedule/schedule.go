// Package schedule implements §4.J's schedulable emission: inserting
// shared key-switch-hint pseudo-nodes into a CtOp dag.Dag, assigning each
// node a scheduler-facing id, and writing the bit-exact tab-separated
// dataflow-graph text §6 specifies. Grounded on ct_program.cc's
// AddSchedulableKshNodes/WriteSchedulableDataflowGraph and the
// WriteSchedulableNode<T> overload set.
package schedule

import (
	"fmt"
	"strings"

	"github.com/fhelipe-compiler/fhelipe-sub001/ctop"
	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// DefaultScratchpadMegabytes is the header value ct_program.cc's
// kScratchpadMegabytes constant carries.
const DefaultScratchpadMegabytes = 256

// EmitConfig carries the two maps §4.J's algorithm is parameterized by
// (level -> crater_lake_level, level -> log_q) plus the security level the
// ksh-digit table is evaluated against.
type EmitConfig struct {
	ScratchpadMegabytes int
	// CraterLakeLevelMap is indexed directly by level value (index 0
	// unused); program.ProgramContext.CraterLakeLevelMap() builds one.
	CraterLakeLevelMap []int
	// LogQMap is indexed level-1 (program.ProgramContext.LogQ already has
	// this shape).
	LogQMap      []int
	SecurityBits int
}

func (c EmitConfig) scratchpad() int {
	if c.ScratchpadMegabytes == 0 {
		return DefaultScratchpadMegabytes
	}
	return c.ScratchpadMegabytes
}

func (c EmitConfig) craterLakeLevel(level tensor.Level) int {
	return c.CraterLakeLevelMap[int(level)]
}

func (c EmitConfig) axelSlots(level tensor.Level) int {
	return 2 * c.craterLakeLevel(level)
}

func (c EmitConfig) logQ(level tensor.Level) int {
	return c.LogQMap[int(level)-1]
}

// kshDigits implements GetKshDigits's security table exactly: at 80-bit
// security log_q may not exceed 60*28 (2 digits above 52*28); at 128-bit it
// may not exceed 51*128 (3 digits above 43*28, 2 above 32*28).
func kshDigits(securityBits, logQ int) (int, error) {
	switch securityBits {
	case 80:
		switch {
		case logQ > 60*28:
			return 0, fmt.Errorf("cannot select ksh digits: log_q %d exceeds 80-bit security bound", logQ)
		case logQ > 52*28:
			return 2, nil
		default:
			return 1, nil
		}
	case 128:
		switch {
		case logQ > 51*128:
			return 0, fmt.Errorf("cannot select ksh digits: log_q %d exceeds 128-bit security bound", logQ)
		case logQ > 43*28:
			return 3, nil
		case logQ > 32*28:
			return 2, nil
		default:
			return 1, nil
		}
	default:
		return 0, fmt.Errorf("cannot select ksh digits: unsupported security level %d", securityBits)
	}
}

func mulCCType(digits int) (string, error) {
	switch digits {
	case 1:
		return "MUL_KS_NEW", nil
	case 2:
		return "MUL_KS_2DIGIT", nil
	case 3:
		return "MUL_KS_3DIGIT", nil
	default:
		return "", fmt.Errorf("cannot select MulCC type: unsupported ksh digit count %d", digits)
	}
}

func rotateCType(digits int) (string, error) {
	switch digits {
	case 1:
		return "ROTATE_KS_NEW", nil
	case 2:
		return "ROTATE_KS_2DIGIT", nil
	case 3:
		return "ROTATE_KS_3DIGIT", nil
	default:
		return "", fmt.Errorf("cannot select RotateC type: unsupported ksh digit count %d", digits)
	}
}

type kshKey struct {
	kind     ctop.Kind
	level    tensor.Level
	rotateBy int
}

func kshKeyFor(op ctop.CtOp) kshKey {
	switch op.Kind {
	case ctop.MulCC:
		return kshKey{kind: ctop.SchedulableMulKsh, level: op.LevelInfo.Level}
	case ctop.RotateC:
		return kshKey{kind: ctop.SchedulableRotateKsh, level: op.LevelInfo.Level, rotateBy: op.RotateBy}
	default:
		panic("internal invariant violation: kshKeyFor: op does not require key-switching")
	}
}

func buildHint(key kshKey) ctop.CtOp {
	switch key.kind {
	case ctop.SchedulableMulKsh:
		return ctop.NewSchedulableMulKsh(key.level)
	case ctop.SchedulableRotateKsh:
		return ctop.NewSchedulableRotateKsh(key.level, key.rotateBy)
	default:
		panic("internal invariant violation: buildHint: unknown hint kind")
	}
}

// AttachKeySwitchHints clones in and, for every node requiring key-
// switching, attaches a shared hint node between its first input parent
// and itself: the first MulCC/RotateC at a given (kind, level, rotate_by)
// creates the hint (parented by that node's first data parent); every later
// node sharing the same key just adds another hint->node edge. Grounded on
// ct_program.cc's AddSchedulableKshNodes/KshDictionary.
func AttachKeySwitchHints(in *dag.Dag[ctop.CtOp]) *dag.Dag[ctop.CtOp] {
	out, _ := dag.CloneFrom(in, func(_ dag.NodeID, value ctop.CtOp, _ []ctop.CtOp) ctop.CtOp {
		return value
	})

	hints := map[kshKey]dag.NodeID{}
	for _, id := range out.Nodes() {
		if id == out.Sentinel {
			continue
		}
		op := out.Get(id)
		if !op.RequiresKeySwitching() {
			continue
		}
		key := kshKeyFor(op)
		hintID, ok := hints[key]
		if !ok {
			parents := out.Parents(id)
			if len(parents) == 0 {
				panic(fmt.Sprintf("internal invariant violation: AttachKeySwitchHints: node %d requires key-switching but has no parents", id))
			}
			hintID = out.AddNode(buildHint(key), parents[0])
			hints[key] = hintID
		}
		out.AddEdge(hintID, id)
	}
	return out
}

// Telemetry accumulates the emission pass's per-node "Nikola" records —
// ct_program.cc's stand-in for a cost-model trace, recorded here instead of
// written to a file (the same choice levelpass.FheBoosterPass.Summary
// makes for its own telemetry).
type Telemetry struct {
	Records []TelemetryRecord
}

// TelemetryRecord is one (label, crater-lake-R-value) sample.
type TelemetryRecord struct {
	Label string
	R     int
}

func (t *Telemetry) record(label string, r int) {
	t.Records = append(t.Records, TelemetryRecord{Label: label, R: r})
}

// nodeLabel renders a node's §6 per-kind label, the middle portion of its
// node line (everything between the id and the trailing "ct"/"ksh").
// Grounded on the WriteSchedulableNode<T> overload set.
func nodeLabel(cfg EmitConfig, op ctop.CtOp) (string, error) {
	axel := cfg.axelSlots(op.LevelInfo.Level)
	switch op.Kind {
	case ctop.InputC:
		return fmt.Sprintf("CIPHERTEXT\t%s\t%d\tct", op.Io, axel), nil
	case ctop.ZeroC:
		return fmt.Sprintf("CIPHERTEXT\tZERO 0\t%d\tct", axel), nil
	case ctop.MulCC:
		digits, err := kshDigits(cfg.SecurityBits, cfg.logQ(op.LevelInfo.Level))
		if err != nil {
			return "", err
		}
		typ, err := mulCCType(digits)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s\tmul\t%d\tct", typ, axel), nil
	case ctop.MulCP:
		return fmt.Sprintf("MUL_SIMPLE\tMulCP\t%d\tct", axel), nil
	case ctop.AddCC, ctop.AddCP:
		return fmt.Sprintf("ADD\tadd\t%d\tct", axel), nil
	case ctop.RotateC:
		digits, err := kshDigits(cfg.SecurityBits, cfg.logQ(op.LevelInfo.Level))
		if err != nil {
			return "", err
		}
		typ, err := rotateCType(digits)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s\trotate\t%d\tct", typ, axel), nil
	case ctop.BootstrapC:
		return fmt.Sprintf("CIPHERTEXT\tBOOTSTRAPPED\t%d\tct", axel), nil
	case ctop.RescaleC:
		return fmt.Sprintf("RESCALE\trescale\t%d\tct", axel), nil
	case ctop.OutputC:
		return fmt.Sprintf("MUL_SIMPLE\tMulCP\t%d\tct", axel), nil
	case ctop.SchedulableMulKsh:
		digits, err := kshDigits(cfg.SecurityBits, cfg.logQ(op.LevelInfo.Level))
		if err != nil {
			return "", err
		}
		slots := (digits + 1) * cfg.craterLakeLevel(op.LevelInfo.Level)
		return fmt.Sprintf("KSH\tksh(%d, mul)\t%d\tksh", op.LevelInfo.Level, slots), nil
	case ctop.SchedulableRotateKsh:
		digits, err := kshDigits(cfg.SecurityBits, cfg.logQ(op.LevelInfo.Level))
		if err != nil {
			return "", err
		}
		slots := (digits + 1) * cfg.craterLakeLevel(op.LevelInfo.Level)
		return fmt.Sprintf("KSH\tksh(%d, %d)\t%d\tksh", op.LevelInfo.Level, op.RotateBy, slots), nil
	default:
		return "", fmt.Errorf("cannot emit node: unrecognized CtOp kind %s", op.Kind)
	}
}

// Emit attaches key-switch hints to d, assigns each surviving node a
// sequential scheduler id in ancestor-id order, and writes the §6 textual
// dataflow graph: a header line, one line per node, then one line per
// non-hint edge. Also returns the ModDownC telemetry records
// WriteSchedulableDataflowGraph's "Nikola" calls would have logged.
func Emit(d *dag.Dag[ctop.CtOp], cfg EmitConfig) (string, Telemetry, error) {
	scheduled := AttachKeySwitchHints(d)
	order := scheduled.Nodes()

	var telemetry Telemetry
	schedulerID := map[dag.NodeID]int{}
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", cfg.scratchpad())

	count := 0
	for _, id := range order {
		if id == scheduled.Sentinel {
			continue
		}
		op := scheduled.Get(id)
		label, err := nodeLabel(cfg, op)
		if err != nil {
			return "", Telemetry{}, err
		}
		fmt.Fprintf(&b, "%d\t%s\n", count, label)
		schedulerID[id] = count
		count++

		if op.Kind != ctop.MulCC && op.Kind != ctop.MulCP && op.Kind != ctop.BootstrapC {
			r := cfg.craterLakeLevel(op.LevelInfo.Level)
			distinctChildLevels := map[tensor.Level]bool{}
			for _, c := range scheduled.Children(id) {
				lvl := scheduled.Get(c).LevelInfo.Level
				if lvl != op.LevelInfo.Level {
					distinctChildLevels[lvl] = true
				}
			}
			for range distinctChildLevels {
				telemetry.record("ModDownC", r)
			}
		}
	}

	for _, id := range order {
		if id == scheduled.Sentinel {
			continue
		}
		for _, c := range scheduled.Children(id) {
			childOp := scheduled.Get(c)
			if childOp.IsHint() {
				continue
			}
			fmt.Fprintf(&b, "%d\t%d\n", schedulerID[id], schedulerID[c])
		}
	}

	return b.String(), telemetry, nil
}
