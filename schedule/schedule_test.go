package schedule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhelipe-compiler/fhelipe-sub001/ctop"
	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

func testConfig() EmitConfig {
	return EmitConfig{
		CraterLakeLevelMap: []int{0, 2, 3, 4, 5},
		LogQMap:            []int{40, 80, 120, 160},
		SecurityBits:       80,
	}
}

func TestKshDigitsSecurityTable(t *testing.T) {
	d, err := kshDigits(80, 100)
	require.NoError(t, err)
	require.Equal(t, 1, d)

	d, err = kshDigits(80, 53*28)
	require.NoError(t, err)
	require.Equal(t, 2, d)

	_, err = kshDigits(80, 61*28)
	require.Error(t, err)

	d, err = kshDigits(128, 44*28)
	require.NoError(t, err)
	require.Equal(t, 3, d)

	d, err = kshDigits(128, 33*28)
	require.NoError(t, err)
	require.Equal(t, 2, d)
}

// buildMulGraph builds a single x*y MulCC at level 4 over two level-4
// inputs, returning the dag, x and the MulCC.
func buildMulGraph() (*dag.Dag[ctop.CtOp], dag.NodeID, dag.NodeID) {
	d := dag.New[ctop.CtOp]()
	x := d.AddNode(ctop.NewInputC(tensor.NewLevelInfo(4, 40), tensor.NewIoSpec("x", 0)))
	y := d.AddNode(ctop.NewInputC(tensor.NewLevelInfo(4, 40), tensor.NewIoSpec("y", 0)))
	mul1 := d.AddNode(ctop.NewMulCC(tensor.NewLevelInfo(4, 80)), x, y)
	return d, x, mul1
}

func TestAttachKeySwitchHintsSharesHintAcrossSameLevel(t *testing.T) {
	d := dag.New[ctop.CtOp]()
	x := d.AddNode(ctop.NewInputC(tensor.NewLevelInfo(4, 40), tensor.NewIoSpec("x", 0)))
	y := d.AddNode(ctop.NewInputC(tensor.NewLevelInfo(4, 40), tensor.NewIoSpec("y", 0)))
	mul1 := d.AddNode(ctop.NewMulCC(tensor.NewLevelInfo(4, 80)), x, y)
	mul2 := d.AddNode(ctop.NewMulCC(tensor.NewLevelInfo(4, 80)), y, x)

	out := AttachKeySwitchHints(d)

	// Each MulCC keeps its two data parents and gains the shared hint.
	parents1 := out.Parents(mul1)
	parents2 := out.Parents(mul2)
	require.Len(t, parents1, 3)
	require.Len(t, parents2, 3)

	hintCount := 0
	for _, id := range out.Nodes() {
		if out.Get(id).Kind == ctop.SchedulableMulKsh {
			hintCount++
		}
	}
	require.Equal(t, 1, hintCount)
}

func TestAttachKeySwitchHintsDistinctRotateAmountsGetDistinctHints(t *testing.T) {
	d := dag.New[ctop.CtOp]()
	x := d.AddNode(ctop.NewInputC(tensor.NewLevelInfo(4, 40), tensor.NewIoSpec("x", 0)))
	d.AddNode(ctop.NewRotateC(tensor.NewLevelInfo(4, 40), 1), x)
	d.AddNode(ctop.NewRotateC(tensor.NewLevelInfo(4, 40), 2), x)

	out := AttachKeySwitchHints(d)

	hintCount := 0
	for _, id := range out.Nodes() {
		if out.Get(id).Kind == ctop.SchedulableRotateKsh {
			hintCount++
		}
	}
	require.Equal(t, 2, hintCount)
}

func TestEmitWritesHeaderAndNodeLines(t *testing.T) {
	d, x, _ := buildMulGraph()
	// A level-3 child of the level-4 input x gives Emit one ModDownC record.
	d.AddNode(ctop.NewRescaleC(tensor.NewLevelInfo(3, 40)), x)
	out, telemetry, err := Emit(d, testConfig())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Equal(t, "256", lines[0])

	require.Contains(t, out, "MUL_KS_NEW\tmul\t")
	require.Contains(t, out, "KSH\tksh(4, mul)\t")
	require.NotEmpty(t, telemetry.Records)
}

func TestEmitOmitsHintEdges(t *testing.T) {
	d, _, _ := buildMulGraph()
	out, _, err := Emit(d, testConfig())
	require.NoError(t, err)

	// Edge lines are the only lines with exactly two tab-separated fields.
	// The KSH node's scheduler id must never appear as an edge destination;
	// its own hint->MulCC edge is still written.
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	hintID := ""
	for _, line := range lines {
		if strings.Contains(line, "\tKSH\t") {
			hintID = strings.SplitN(line, "\t", 2)[0]
		}
	}
	require.NotEmpty(t, hintID)
	hintIsSource := false
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			continue
		}
		require.NotEqual(t, hintID, fields[1])
		if fields[0] == hintID {
			hintIsSource = true
		}
	}
	require.True(t, hintIsSource)
}

func TestEmitRejectsUnsupportedSecurityLevel(t *testing.T) {
	d, _, _ := buildMulGraph()
	cfg := testConfig()
	cfg.SecurityBits = 42
	_, _, err := Emit(d, cfg)
	require.Error(t, err)
}
