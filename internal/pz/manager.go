// Package pz runs the processing zone once per timestep: it evicts a
// carrier when the parking edge is over capacity, fires at most one ready
// operation, and re-plans the remaining program.
package pz

import (
	"log/slog"
	"slices"

	"github.com/mewuto/ion-shuttler/internal/circuit"
	"github.com/mewuto/ion-shuttler/internal/distance"
	"github.com/mewuto/ion-shuttler/internal/lattice"
	"github.com/mewuto/ion-shuttler/internal/router"
	"github.com/mewuto/ion-shuttler/internal/sequencer"
)

// Gate costs in logical timesteps.
const (
	MultiOperandCost  = 3
	SingleOperandCost = 1
)

// DefaultCapacity is the number of carriers the parking edge holds before
// one is evicted.
const DefaultCapacity = 3

// Manager owns the processing-zone phase of a timestep.
type Manager struct {
	topo     *lattice.Topology
	oracle   *distance.Oracle
	occ      *lattice.Occupancy
	router   *router.Router
	capacity int
	observe  lattice.Observer
}

// NewManager returns a manager for the parking edge of topo. A capacity
// below 1 selects DefaultCapacity.
func NewManager(topo *lattice.Topology, oracle *distance.Oracle, occ *lattice.Occupancy, r *router.Router, capacity int, observe lattice.Observer) *Manager {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Manager{
		topo:     topo,
		oracle:   oracle,
		occ:      occ,
		router:   r,
		capacity: capacity,
		observe:  observe,
	}
}

// Capacity returns the parking capacity.
func (m *Manager) Capacity() int {
	return m.capacity
}

// Firing is an executed operation.
type Firing struct {
	Node     circuit.NodeID
	Operands []int
	Cost     int
}

// Result is the outcome of one Process call.
type Result struct {
	// Clock is the logical clock after any firing.
	Clock int
	// Plan is the fresh linearization of the remaining program.
	Plan sequencer.Plan
	// Fired is the executed operation, or nil.
	Fired *Firing
	// Evicted is the carrier sent back to the lattice, or -1.
	Evicted int
	// Egress is the router outcome of the eviction.
	Egress router.Outcome
}

// Process runs the processing-zone phase. g is the live dependency graph
// and is mutated when an operation fires. upcoming is the timestep's move
// list, each carrier once; the eviction victim is picked from it.
func (m *Manager) Process(g circuit.DependencyGraph, clock int, used *router.Junctions, upcoming []int) (Result, error) {
	res := Result{Clock: clock, Evicted: -1}
	parking := m.topo.ParkingEdgeID()

	if m.occ.Count(parking) > 0 {
		if parked := m.occ.Ions(parking); len(parked) > m.capacity {
			ion, ok := FindUnnecessary(parked, upcoming)
			if !ok {
				return res, &router.InvariantError{Op: "evict", Message: "parking over capacity but no carrier to evict"}
			}
			out, err := m.router.MoveFromPZ(ion, used)
			if err != nil {
				return res, err
			}
			res.Evicted, res.Egress = ion, out
			slog.Debug("evicted from parking", "ion", ion, "outcome", out.String())
		}

		if f := m.fireOne(g); f != nil {
			res.Fired = f
			res.Clock += f.Cost
			slog.Debug("gate fired", "node", int(f.Node), "operands", f.Operands, "clock", res.Clock)
			if m.observe != nil {
				m.observe(m.occ.Snapshot(), "Gate")
			}
		}
	}

	res.Plan = sequencer.Linearize(g, m.oracle.DistanceMap(m.occ))
	return res, nil
}

// fireOne executes the first front-layer operation whose operands are all
// parked. At most one operation fires per call.
func (m *Manager) fireOne(g circuit.DependencyGraph) *Firing {
	parked := m.occ.Ions(m.topo.ParkingEdgeID())
	for _, id := range g.FrontLayer() {
		ops := g.OperandIDs(id)
		if !allParked(ops, parked) {
			continue
		}
		cost := SingleOperandCost
		if len(ops) > 1 {
			cost = MultiOperandCost
		}
		g.Remove(id)
		return &Firing{Node: id, Operands: ops, Cost: cost}
	}
	return nil
}

func allParked(ops, parked []int) bool {
	for _, q := range ops {
		if !slices.Contains(parked, q) {
			return false
		}
	}
	return true
}

// FindUnnecessary picks the parked carrier to evict: the first one absent
// from upcoming, otherwise the one that comes latest in upcoming. It
// returns false only when parked is empty.
func FindUnnecessary(parked, upcoming []int) (int, bool) {
	if len(parked) == 0 {
		return 0, false
	}
	last := make(map[int]int, len(upcoming))
	for i, ion := range upcoming {
		last[ion] = i
	}
	for _, ion := range parked {
		if _, ok := last[ion]; !ok {
			return ion, true
		}
	}
	best := parked[0]
	for _, ion := range parked[1:] {
		if last[ion] > last[best] {
			best = ion
		}
	}
	return best, true
}
