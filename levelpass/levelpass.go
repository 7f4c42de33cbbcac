// Package levelpass implements the two level-management rewrites that run
// late in the pipeline: LevelMinimizationPass pushes every node's level down
// to the minimum its consumers allow, and FheBoosterPass greedily inserts
// BootstrapC nodes where they relieve the most rescale-crossing paths.
// Grounded on level_minimization_pass.cc and fhebooster_pass.cc.
package levelpass

import (
	"math/big"

	"github.com/montanaflynn/stats"

	"github.com/fhelipe-compiler/fhelipe-sub001/ctop"
	"github.com/fhelipe-compiler/fhelipe-sub001/dag"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// LevelMinimizationPass rewrites every node's LevelInfo.Level in place,
// leaving LogScale untouched. Grounded on level_minimization_pass.cc's
// LevelMinimizationPass::DoPass.
type LevelMinimizationPass struct{}

// DoPass clones in and walks it in reverse topological order, so a node's
// children already carry their final level by the time GetMinLevel reads
// them.
func (LevelMinimizationPass) DoPass(in *dag.Dag[ctop.CtOp]) *dag.Dag[ctop.CtOp] {
	out, _ := dag.CloneFrom(in, func(_ dag.NodeID, value ctop.CtOp, _ []ctop.CtOp) ctop.CtOp {
		return value
	})

	for _, id := range out.ReverseTopologicalOrder() {
		if id == out.Sentinel {
			continue
		}
		op := out.Get(id)
		op.LevelInfo = tensor.NewLevelInfo(getMinLevel(out, id), op.LevelInfo.LogScale)
		out.Set(id, op)
	}
	return out
}

// getMinLevel follows GetMinLevel: OutputC pins to Level(1); a node with no
// children other than bootstraps is floored at Level(1) (the open question
// noted in the spec — a more principled rule would look one above the max
// non-bootstrap child, but observable behavior is preserved as-is); otherwise
// it is the max, over non-bootstrap children, of the child's level (plus one
// if that child is a RescaleC).
func getMinLevel(d *dag.Dag[ctop.CtOp], id dag.NodeID) tensor.Level {
	if d.Get(id).Kind == ctop.OutputC {
		return tensor.Level(1)
	}

	best := tensor.Level(1)
	found := false
	for _, c := range d.Children(id) {
		child := d.Get(c)
		if child.Kind == ctop.BootstrapC {
			continue
		}
		lvl := child.LevelInfo.Level
		if child.Kind == ctop.RescaleC {
			lvl++
		}
		if !found || lvl > best {
			best = lvl
			found = true
		}
	}
	if !found {
		return tensor.Level(1)
	}
	return best
}

// FheBoosterPass greedily places bootstraps: each round it scores every node
// by how many rescale-weighted paths run through it and selects the
// highest-scoring node until no node scores above zero. Grounded on
// fhebooster_pass.cc's FheBoosterPass::DoPass.
//
// Unlike the retrieved source — which tracks an "already bootstrapped" set
// but never actually rewrites the DAG — DoPass inserts a real BootstrapC
// node after each selected node, since the design this is ported from
// requires the output DAG to carry the inserted bootstraps (semantically;
// eager insertion is the choice made here).
type FheBoosterPass struct {
	UsableLevels tensor.Level
}

// Summary reports the telemetry a booster run accumulates: how many
// bootstraps were placed and the mean/stddev of the winning score at each
// round, a stand-in for the source's stdout trace and /tmp/fhebooster.txt
// dump (§9: telemetry, not core semantics, belongs behind an optional sink).
type Summary struct {
	BootstrapCount int
	MeanScore      float64
	StdDevScore    float64
}

// maxScore caps a path count at 2^127-1, standing in for __int128's maximum
// representable value; math/big never actually overflows, so this cap is
// imposed explicitly rather than detected after the fact.
var maxScore = func() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), 127)
	return m.Sub(m, big.NewInt(1))
}()

type boosterState struct {
	usableLevels int
	backward     map[dag.NodeID][]*big.Int
	forward      map[dag.NodeID][]*big.Int
	pathCounts   map[dag.NodeID]*big.Int
	bootstrapped map[dag.NodeID]bool
}

func newBoosterState(usableLevels int) *boosterState {
	return &boosterState{
		usableLevels: usableLevels,
		backward:     map[dag.NodeID][]*big.Int{},
		forward:      map[dag.NodeID][]*big.Int{},
		pathCounts:   map[dag.NodeID]*big.Int{},
		bootstrapped: map[dag.NodeID]bool{},
	}
}

func zeroVec(n int) []*big.Int {
	v := make([]*big.Int, n)
	for i := range v {
		v[i] = new(big.Int)
	}
	return v
}

func uniqueNodes(ids []dag.NodeID) []dag.NodeID {
	seen := map[dag.NodeID]bool{}
	out := make([]dag.NodeID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// updateForwardAndBackward recomputes backward_path_count/forward_path_count
// for every node from scratch over d's current shape, excluding already-
// bootstrapped nodes (their vectors stay all zero). backward counts paths
// entering a node from the inputs, weighted by a RescaleC crossing consuming
// one level of "remaining budget"; forward is the mirror, anchored at
// children that are RescaleC.
func (s *boosterState) updateForwardAndBackward(d *dag.Dag[ctop.CtOp]) {
	for _, id := range d.TopologicalOrder() {
		if id == d.Sentinel {
			continue
		}
		s.backward[id] = zeroVec(s.usableLevels)
		if s.bootstrapped[id] {
			continue
		}
		op := d.Get(id)
		if op.Kind == ctop.RescaleC {
			s.backward[id][0].SetInt64(1)
		}
		parents := uniqueNodes(d.Parents(id))
		for lvl := 0; lvl < s.usableLevels; lvl++ {
			for _, p := range parents {
				if p == d.Sentinel {
					continue
				}
				if op.Kind == ctop.RescaleC {
					if lvl > 0 {
						s.backward[id][lvl].Add(s.backward[id][lvl], s.backward[p][lvl-1])
					}
				} else {
					s.backward[id][lvl].Add(s.backward[id][lvl], s.backward[p][lvl])
				}
			}
		}
	}

	for _, id := range d.ReverseTopologicalOrder() {
		if id == d.Sentinel {
			continue
		}
		s.forward[id] = zeroVec(s.usableLevels)
		if s.bootstrapped[id] {
			continue
		}
		op := d.Get(id)
		children := d.Children(id)
		anyRescaleChild := false
		for _, c := range children {
			if d.Get(c).Kind == ctop.RescaleC {
				anyRescaleChild = true
				break
			}
		}
		if anyRescaleChild {
			s.forward[id][0].SetInt64(1)
		}
		for lvl := 0; lvl < s.usableLevels; lvl++ {
			for _, c := range children {
				if op.Kind == ctop.RescaleC {
					if lvl > 0 {
						s.forward[id][lvl].Add(s.forward[id][lvl], s.forward[c][lvl-1])
					}
				} else if !(lvl == 0 && anyRescaleChild) {
					s.forward[id][lvl].Add(s.forward[id][lvl], s.forward[c][lvl])
				}
			}
		}
	}
}

// updatePathCounts computes score[node] = sum_l backward[node][l] *
// forward[node][usable_levels-1-l], saturating at maxScore.
func (s *boosterState) updatePathCounts(d *dag.Dag[ctop.CtOp]) {
	for _, id := range d.TopologicalOrder() {
		if id == d.Sentinel {
			continue
		}
		sum := new(big.Int)
		if !s.bootstrapped[id] {
			for lvl := 0; lvl < s.usableLevels; lvl++ {
				term := new(big.Int).Mul(s.backward[id][lvl], s.forward[id][s.usableLevels-1-lvl])
				sum.Add(sum, term)
				if sum.Cmp(maxScore) > 0 {
					sum.Set(maxScore)
					break
				}
			}
		}
		s.pathCounts[id] = sum
	}
}

// findMaxNode returns the highest-scoring node, breaking ties toward the
// topologically-earliest one for determinism (the source iterates an
// unordered_map, so tie-breaking there is incidental, not specified).
func (s *boosterState) findMaxNode(d *dag.Dag[ctop.CtOp]) (dag.NodeID, *big.Int) {
	maxValue := big.NewInt(-1)
	var maxNode dag.NodeID
	found := false
	for _, id := range d.TopologicalOrder() {
		if id == d.Sentinel {
			continue
		}
		if v := s.pathCounts[id]; v.Cmp(maxValue) > 0 {
			maxValue = v
			maxNode = id
			found = true
		}
	}
	if !found {
		return 0, big.NewInt(-1)
	}
	return maxNode, maxValue
}

// insertBootstrap splices a BootstrapC node between id and its children,
// resetting level to usableLevels and leaving log-scale unchanged.
func insertBootstrap(d *dag.Dag[ctop.CtOp], id dag.NodeID, usableLevels tensor.Level) dag.NodeID {
	op := d.Get(id)
	boot := ctop.NewBootstrapC(tensor.NewLevelInfo(usableLevels, op.LevelInfo.LogScale))
	children := d.Children(id)

	newID := d.AddNode(boot, id)
	for _, c := range children {
		d.AddEdge(newID, c)
	}
	for _, c := range children {
		d.RemoveEdge(id, c)
	}
	return newID
}

// DoPass clones in, then repeatedly selects and bootstraps the highest-
// scoring node until every score is at or below zero.
func (p FheBoosterPass) DoPass(in *dag.Dag[ctop.CtOp]) (*dag.Dag[ctop.CtOp], Summary) {
	out, _ := dag.CloneFrom(in, func(_ dag.NodeID, value ctop.CtOp, _ []ctop.CtOp) ctop.CtOp {
		return value
	})

	state := newBoosterState(int(p.UsableLevels))
	var scores []float64

	for {
		state.updateForwardAndBackward(out)
		state.updatePathCounts(out)

		node, maxValue := state.findMaxNode(out)
		if maxValue.Sign() <= 0 {
			break
		}

		f := new(big.Float).SetInt(maxValue)
		score, _ := f.Float64()
		scores = append(scores, score)

		bootID := insertBootstrap(out, node, p.UsableLevels)
		state.bootstrapped[node] = true
		// The inserted BootstrapC itself must not become a future candidate
		// (the source has no equivalent node to exclude, since it never
		// performs this insertion).
		state.bootstrapped[bootID] = true
	}

	summary := Summary{BootstrapCount: len(scores)}
	if len(scores) > 0 {
		if mean, err := stats.Mean(scores); err == nil {
			summary.MeanScore = mean
		}
		if stddev, err := stats.StandardDeviation(scores); err == nil {
			summary.StdDevScore = stddev
		}
	}
	return out, summary
}
