// Package router moves carriers one hop at a time across the lattice.
//
// Three moves exist:
//
//   - Stride: advance a carrier one hop along its path if the node it
//     crosses is free and the destination edge is empty (or is the parking
//     edge).
//   - PushObstacle: step onto an edge held by an idle carrier and displace
//     that carrier, cascading until every touched edge holds one carrier.
//     If the cascade gets stuck the whole transaction is rolled back from a
//     snapshot of occupancy and junction claims.
//   - MoveFromPZ: evict a carrier from the parking edge back into the
//     lattice, displacing carriers the same way. A stuck egress cascade
//     undoes only its most recent hop.
//
// Concurrency between carriers is modelled entirely through the per-timestep
// Junctions table; the router itself is single-threaded.
package router

import (
	"log/slog"

	"github.com/mewuto/ion-shuttler/internal/distance"
	"github.com/mewuto/ion-shuttler/internal/lattice"
)

// Outcome is the result of a move attempt. None of them is an error: a
// carrier that cannot move simply waits for the next timestep.
type Outcome int

const (
	// Stayed means nothing changed.
	Stayed Outcome = iota
	// Moved means the carrier (and any displaced carriers) moved.
	Moved
	// RolledBack means a cascade started and was undone.
	RolledBack
)

func (o Outcome) String() string {
	switch o {
	case Stayed:
		return "stayed"
	case Moved:
		return "moved"
	case RolledBack:
		return "rolled_back"
	}
	return "unknown"
}

// MoveKind tags journal entries by the move that produced them.
type MoveKind string

const (
	KindStride   MoveKind = "stride"
	KindPush     MoveKind = "push"
	KindDisplace MoveKind = "displace"
	KindEgress   MoveKind = "egress"
)

// Move is one committed hop.
type Move struct {
	Ion  int
	From lattice.EdgeID
	To   lattice.EdgeID
	Via  lattice.Coord
	Kind MoveKind
}

// Router applies moves to an Occupancy.
type Router struct {
	topo   *lattice.Topology
	oracle *distance.Oracle
	occ    *lattice.Occupancy

	observe        lattice.Observer
	egressSnapshot bool

	journal   []Move
	rollbacks int
}

// Option configures a Router.
type Option func(*Router)

// WithObserver installs a hook called after every occupancy mutation.
func WithObserver(fn lattice.Observer) Option {
	return func(r *Router) {
		r.observe = fn
	}
}

// WithSnapshotEgressRollback makes a stuck egress cascade restore the full
// pre-eviction state instead of undoing only its last hop.
func WithSnapshotEgressRollback() Option {
	return func(r *Router) {
		r.egressSnapshot = true
	}
}

// New returns a router mutating occ.
func New(topo *lattice.Topology, oracle *distance.Oracle, occ *lattice.Occupancy, opts ...Option) *Router {
	r := &Router{
		topo:   topo,
		oracle: oracle,
		occ:    occ,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Drain returns the hops committed since the last Drain and the number of
// rollbacks, then resets both.
func (r *Router) Drain() ([]Move, int) {
	moves, rb := r.journal, r.rollbacks
	r.journal, r.rollbacks = nil, 0
	return moves, rb
}

// Pending returns the number of hops committed since the last Drain.
func (r *Router) Pending() int {
	return len(r.journal)
}

// Stride advances ion one hop along path.
//
// The carrier stays if it already moved this timestep, if the node it would
// cross is claimed, or if path[0] is occupied and is not the parking edge.
func (r *Router) Stride(ion int, path []lattice.EdgeID, used *Junctions) (Outcome, error) {
	if len(path) == 0 {
		return Stayed, nil
	}
	cur, ok := r.occ.Location(ion)
	if !ok {
		return Stayed, invariantf("stride", "ion %d is not on the lattice", ion)
	}
	next := path[0]
	node, ok := r.topo.SharedNode(cur, next)
	if !ok {
		return Stayed, invariantf("stride", "edges %d and %d do not touch", cur, next)
	}

	if used.Moved(ion) || used.Claimed(node) {
		return Stayed, nil
	}
	if next != r.topo.ParkingEdgeID() && r.occ.Count(next) > 0 {
		return Stayed, nil
	}

	if err := r.hop(ion, cur, next, node, KindStride, used); err != nil {
		return Stayed, err
	}
	r.notify("Timestep")
	return Moved, nil
}

// PushObstacle moves ion onto next, which is held by an idle carrier, and
// displaces carriers until no edge holds two. Any failure restores the
// pre-call occupancy and claims exactly.
func (r *Router) PushObstacle(ion int, next lattice.EdgeID, used *Junctions) (Outcome, error) {
	cur, ok := r.occ.Location(ion)
	if !ok {
		return Stayed, invariantf("push", "ion %d is not on the lattice", ion)
	}
	node, ok := r.topo.SharedNode(cur, next)
	if !ok {
		return Stayed, invariantf("push", "edges %d and %d do not touch", cur, next)
	}
	if used.Moved(ion) || used.Claimed(node) {
		return Stayed, nil
	}

	snap := r.occ.Snapshot()
	usedSnap := used.Clone()
	mark := len(r.journal)
	rollback := func(reason string, blocked int) (Outcome, error) {
		r.occ.Restore(snap)
		used.restore(usedSnap)
		r.journal = r.journal[:mark]
		r.rollbacks++
		slog.Debug("push cascade rolled back", "ion", ion, "blocked", blocked, "reason", reason)
		return RolledBack, nil
	}

	if err := r.hop(ion, cur, next, node, KindPush, used); err != nil {
		return Stayed, err
	}
	r.notify("Push obstacle")

	prevEdge, prevIon, current := cur, ion, next
	for r.occ.Count(current) > 1 {
		moving := r.otherThan(current, prevIon)
		if used.Moved(moving) {
			return rollback("displaced carrier already moved", moving)
		}
		target, via, ok := r.displacementTarget(current, prevEdge, used, isTrap)
		if !ok {
			return rollback("no free neighbor", moving)
		}
		if err := r.hop(moving, current, target, via, KindDisplace, used); err != nil {
			return Stayed, err
		}
		r.notify("Move obstacle")
		prevEdge, prevIon, current = current, moving, target
	}
	return Moved, nil
}

// MoveFromPZ evicts ion from the parking edge onto the adjacent entry-side
// edge, displacing carriers (never onto parking or exit edges) until no
// edge holds two. On a stuck cascade only the last hop is undone, unless
// the router was built WithSnapshotEgressRollback.
func (r *Router) MoveFromPZ(ion int, used *Junctions) (Outcome, error) {
	cur, ok := r.occ.Location(ion)
	if !ok || cur != r.topo.ParkingEdgeID() {
		return Stayed, invariantf("egress", "ion %d is not parked", ion)
	}

	var out lattice.EdgeID
	found := false
	for _, ad := range r.topo.Adjacent(cur) {
		if notParkingOrExit(r.topo.EdgeKind(ad)) {
			out, found = ad, true
			break
		}
	}
	if !found {
		return Stayed, invariantf("egress", "parking edge has no way back into the lattice")
	}
	node, _ := r.topo.SharedNode(cur, out)

	snap := r.occ.Snapshot()
	usedSnap := used.Clone()
	mark := len(r.journal)

	if err := r.hop(ion, cur, out, node, KindEgress, used); err != nil {
		return Stayed, err
	}
	r.notify("Move from PZ")

	prevEdge, prevIon, current := cur, ion, out
	for r.occ.Count(current) > 1 {
		moving := r.otherThan(current, prevIon)
		var target lattice.EdgeID
		var via lattice.Coord
		ok := !used.Moved(moving)
		if ok {
			target, via, ok = r.displacementTarget(current, prevEdge, used, notParkingOrExit)
		}
		if !ok {
			r.rollbacks++
			if r.egressSnapshot {
				r.occ.Restore(snap)
				used.restore(usedSnap)
				r.journal = r.journal[:mark]
				slog.Debug("egress cascade rolled back", "ion", ion, "blocked", moving)
				return RolledBack, nil
			}
			if err := r.occ.Move(prevIon, current, prevEdge); err != nil {
				return Stayed, err
			}
			used.Release(prevIon)
			r.journal = r.journal[:len(r.journal)-1]
			slog.Debug("egress hop undone", "ion", prevIon, "blocked", moving)
			return RolledBack, nil
		}
		if err := r.hop(moving, current, target, via, KindDisplace, used); err != nil {
			return Stayed, err
		}
		r.notify("Move from PZ")
		prevEdge, prevIon, current = current, moving, target
	}
	return Moved, nil
}

// displacementTarget picks where to push the carrier being displaced off
// current. Candidates are neighbors of current other than prev, crossing an
// unclaimed node, of an allowed kind. Empty candidates win over occupied
// ones; within a group the lowest anchor cost wins, first on ties.
func (r *Router) displacementTarget(current, prev lattice.EdgeID, used *Junctions, allowed func(lattice.EdgeKind) bool) (lattice.EdgeID, lattice.Coord, bool) {
	type cand struct {
		id   lattice.EdgeID
		via  lattice.Coord
		cost int
	}
	var bestEmpty, bestAny *cand

	e := r.topo.Index().Reverse(current)
	for _, ad := range r.topo.Adjacent(current) {
		if ad == prev || !allowed(r.topo.EdgeKind(ad)) {
			continue
		}
		via, _ := e.Shared(r.topo.Index().Reverse(ad))
		if used.Claimed(via) {
			continue
		}
		outward, _ := r.topo.Index().Reverse(ad).Other(via)
		c := &cand{id: ad, via: via, cost: r.oracle.AnchorCost(outward)}
		if r.occ.Count(ad) == 0 && (bestEmpty == nil || c.cost < bestEmpty.cost) {
			bestEmpty = c
		}
		if bestAny == nil || c.cost < bestAny.cost {
			bestAny = c
		}
	}
	switch {
	case bestEmpty != nil:
		return bestEmpty.id, bestEmpty.via, true
	case bestAny != nil:
		return bestAny.id, bestAny.via, true
	}
	return 0, lattice.Coord{}, false
}

func (r *Router) hop(ion int, from, to lattice.EdgeID, via lattice.Coord, kind MoveKind, used *Junctions) error {
	if err := r.occ.Move(ion, from, to); err != nil {
		return invariantf(string(kind), "%v", err)
	}
	used.Claim(ion, via)
	r.journal = append(r.journal, Move{Ion: ion, From: from, To: to, Via: via, Kind: kind})
	return nil
}

// otherThan returns the first carrier on id that is not ion.
func (r *Router) otherThan(id lattice.EdgeID, ion int) int {
	for _, x := range r.occ.Ions(id) {
		if x != ion {
			return x
		}
	}
	return ion
}

func (r *Router) notify(label string) {
	if r.observe != nil {
		r.observe(r.occ.Snapshot(), label)
	}
}

func isTrap(k lattice.EdgeKind) bool {
	return k == lattice.EdgeTrap
}

func notParkingOrExit(k lattice.EdgeKind) bool {
	return k != lattice.EdgeParking && k != lattice.EdgeExit
}
