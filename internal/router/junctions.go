package router

import (
	"maps"

	"github.com/mewuto/ion-shuttler/internal/lattice"
)

// Junctions is the per-timestep lock table: which carriers have moved and
// which node each of them crossed. A fresh table is created at the start of
// every timestep and discarded at its end.
//
// A carrier holds at most one claim. Stride and push moves never claim a
// node that is already claimed, so within a timestep every junction has at
// most one holder.
type Junctions struct {
	byIon  map[int]lattice.Coord
	claims map[lattice.Coord]int
}

// NewJunctions returns an empty table.
func NewJunctions() *Junctions {
	return &Junctions{
		byIon:  make(map[int]lattice.Coord),
		claims: make(map[lattice.Coord]int),
	}
}

// Moved reports whether ion already moved this timestep.
func (j *Junctions) Moved(ion int) bool {
	_, ok := j.byIon[ion]
	return ok
}

// Claimed reports whether any carrier crossed node this timestep.
func (j *Junctions) Claimed(node lattice.Coord) bool {
	return j.claims[node] > 0
}

// ClaimOf returns the node claimed by ion.
func (j *Junctions) ClaimOf(ion int) (lattice.Coord, bool) {
	c, ok := j.byIon[ion]
	return c, ok
}

// Claim records that ion crossed node, replacing any earlier claim by ion.
func (j *Junctions) Claim(ion int, node lattice.Coord) {
	j.Release(ion)
	j.byIon[ion] = node
	j.claims[node]++
}

// Release drops ion's claim, if any.
func (j *Junctions) Release(ion int) {
	old, ok := j.byIon[ion]
	if !ok {
		return
	}
	delete(j.byIon, ion)
	if j.claims[old]--; j.claims[old] <= 0 {
		delete(j.claims, old)
	}
}

// Len returns the number of carriers that moved.
func (j *Junctions) Len() int {
	return len(j.byIon)
}

// Holders returns how many carriers claimed node.
func (j *Junctions) Holders(node lattice.Coord) int {
	return j.claims[node]
}

// Clone returns an independent copy of j.
func (j *Junctions) Clone() *Junctions {
	return &Junctions{
		byIon:  maps.Clone(j.byIon),
		claims: maps.Clone(j.claims),
	}
}

// restore resets j to the state held by snap.
func (j *Junctions) restore(snap *Junctions) {
	j.byIon = maps.Clone(snap.byIon)
	j.claims = maps.Clone(snap.claims)
}

// Equal reports whether j and o hold the same claims.
func (j *Junctions) Equal(o *Junctions) bool {
	return maps.Equal(j.byIon, o.byIon)
}
