package harness

import (
	"fmt"

	"github.com/mewuto/ion-shuttler/internal/engine"
	"github.com/mewuto/ion-shuttler/internal/lattice"
	"github.com/mewuto/ion-shuttler/internal/trace"
)

// Principle is a property of the occupancy that must hold at the end of
// every timestep. Check returns a description of each violation.
type Principle struct {
	Name  string
	Check func(topo *lattice.Topology, occ *lattice.Occupancy, ions int) []string
}

// Principles are the end-of-timestep checks a scenario can assert.
var Principles = []Principle{
	{Name: AssertExclusiveTraps, Check: exclusiveTraps},
	{Name: AssertConserved, Check: conserved},
}

// exclusiveTraps reports trap edges holding more than one carrier. Only the
// parking edge may hold several.
func exclusiveTraps(topo *lattice.Topology, occ *lattice.Occupancy, _ int) []string {
	var out []string
	for _, id := range topo.TrapEdges() {
		if n := occ.Count(id); n > 1 {
			out = append(out, fmt.Sprintf("trap edge %d holds %d carriers %v", id, n, occ.Ions(id)))
		}
	}
	return out
}

// conserved reports a change in the number of carriers.
func conserved(_ *lattice.Topology, occ *lattice.Occupancy, ions int) []string {
	if n := occ.Len(); n != ions {
		return []string{fmt.Sprintf("%d carriers on the lattice, want %d", n, ions)}
	}
	return nil
}

// checkingSink evaluates every principle when a timestep completes and
// forwards the step to next.
type checkingSink struct {
	next   engine.StepSink
	topo   *lattice.Topology
	occ    *lattice.Occupancy
	ions   int
	result *Result
}

func (c *checkingSink) Record(step trace.Step) error {
	for _, p := range Principles {
		for _, v := range p.Check(c.topo, c.occ, c.ions) {
			c.result.Violations[p.Name] = append(c.result.Violations[p.Name], fmt.Sprintf("step %d: %s", step.Seq, v))
		}
	}
	if c.next == nil {
		return nil
	}
	return c.next.Record(step)
}
