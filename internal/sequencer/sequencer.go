// Package sequencer greedily linearizes a gate dependency graph into an
// execution order, using each carrier's current distance to the
// processing zone as the cost.
//
// The plan is always rebuilt from scratch, on a private copy of the graph,
// whenever the graph or the distances change.
package sequencer

import (
	"slices"

	"github.com/mewuto/ion-shuttler/internal/circuit"
)

// Plan is a full linearization of a dependency graph.
type Plan struct {
	// Sequence holds the operand tuple of each operation, in execution
	// priority order.
	Sequence [][]int
	// Head is the first operation chosen. Valid only if HasHead.
	Head    circuit.NodeID
	HasHead bool
}

// Empty reports whether there is nothing left to execute.
func (p Plan) Empty() bool {
	return len(p.Sequence) == 0
}

// HeadOperands returns the operands of the head operation, or nil.
func (p Plan) HeadOperands() []int {
	if p.Empty() {
		return nil
	}
	return p.Sequence[0]
}

// Flat returns the sequence flattened to carrier ids.
func (p Plan) Flat() []int {
	return Flatten(p.Sequence)
}

// Flatten concatenates operand tuples.
func Flatten(seq [][]int) []int {
	var out []int
	for _, ops := range seq {
		out = append(out, ops...)
	}
	return out
}

// FrontLayer returns the operations of g with no unresolved predecessor.
func FrontLayer(g circuit.DependencyGraph) []circuit.NodeID {
	return g.FrontLayer()
}

// Cost is the scheduling cost of an operation: the largest distance among
// its operands. Operands missing from distanceOf count as distance 0.
func Cost(g circuit.DependencyGraph, id circuit.NodeID, distanceOf map[int]int) int {
	cost := 0
	for _, q := range g.OperandIDs(id) {
		cost = max(cost, distanceOf[q])
	}
	return cost
}

// PickBest chooses the operation of front with the smallest Cost, the first
// one on ties. A two-operand operation whose operands are both at distance 0
// is returned immediately.
func PickBest(g circuit.DependencyGraph, front []circuit.NodeID, distanceOf map[int]int) (circuit.NodeID, bool) {
	best, bestCost, found := circuit.NodeID(0), 0, false
	for _, id := range front {
		cost := Cost(g, id, distanceOf)
		if len(g.OperandIDs(id)) == 2 && cost == 0 {
			return id, true
		}
		if !found || cost < bestCost {
			best, bestCost, found = id, cost, true
		}
	}
	return best, found
}

// Linearize repeatedly picks the best front-layer operation of a copy of g
// until the copy is empty. g itself is not modified.
func Linearize(g circuit.DependencyGraph, distanceOf map[int]int) Plan {
	work := g.DeepCopy()
	var plan Plan
	for {
		front := work.FrontLayer()
		if len(front) == 0 {
			return plan
		}
		id, _ := PickBest(work, front, distanceOf)
		plan.Sequence = append(plan.Sequence, slices.Clone(work.OperandIDs(id)))
		if !plan.HasHead {
			plan.Head, plan.HasHead = id, true
		}
		work.Remove(id)
	}
}
