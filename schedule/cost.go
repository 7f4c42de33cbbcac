package schedule

import (
	"github.com/fhelipe-compiler/fhelipe-sub001/ctop"
	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
)

// chunkSizeModularMultipliesPerSecond is perf_estimator.cc's throughput
// constant: "1 time unit corresponds to 2^16 CPU modular multiply, roughly".
const chunkSizeModularMultipliesPerSecond = float64(1 << (30 - 16))

// executionTime is perf_estimator.cc's ExecutionTime: InputC/OutputC are
// free, key-switching ops (MulCC/RotateC) cost the CraterLake-Table-1
// quadratic-in-level formula, BootstrapC is a flat 17 seconds, everything
// else costs level/throughput.
func executionTime(op ctop.CtOp) float64 {
	switch op.Kind {
	case ctop.InputC, ctop.OutputC:
		return 0
	case ctop.MulCC, ctop.RotateC:
		level := float64(op.LevelInfo.Level)
		return (3*level*level + (4+6*8)*level) / chunkSizeModularMultipliesPerSecond
	case ctop.BootstrapC:
		return 17
	default:
		return float64(op.LevelInfo.Level) / chunkSizeModularMultipliesPerSecond
	}
}

// CostEstimate is a coarse analogue of perf_estimator.cc's non-"--full"
// report: a total predicted execution time plus the operation counts a
// scheduling decision (e.g. whether to bootstrap) would want to inspect.
type CostEstimate struct {
	TotalSeconds         float64
	BootstrappingSeconds float64
	MulCCCount           int
	RotateCCount         int
	BootstrapCount       int
	RescaleCount         int
}

// EstimateCost sums executionTime over every node of d, the same walk
// perf_estimator.cc's non-"--full" main() performs over a CtProgram's dag in
// topological order (summation doesn't depend on order, so dag.Dag.Nodes()'s
// construction order is used directly).
func EstimateCost(d *dag.Dag[ctop.CtOp]) CostEstimate {
	var est CostEstimate
	for _, id := range d.Nodes() {
		if id == d.Sentinel {
			continue
		}
		op := d.Get(id)
		t := executionTime(op)
		est.TotalSeconds += t
		switch op.Kind {
		case ctop.MulCC:
			est.MulCCCount++
		case ctop.RotateC:
			est.RotateCCount++
		case ctop.BootstrapC:
			est.BootstrapCount++
			est.BootstrappingSeconds += t
		case ctop.RescaleC:
			est.RescaleCount++
		}
	}
	return est
}
