package lattice

import (
	"fmt"
	"slices"
)

// Occupancy is the mutable carrier state of a lattice: a flat arena with one
// ordered carrier list per edge id. It is the only mutable part of the
// lattice; Topology and EdgeIndex stay read-only.
//
// Each carrier is on exactly one edge. Outside a cascade every edge holds
// at most one carrier, except the parking edge.
type Occupancy struct {
	chains [][]int
	loc    map[int]EdgeID
}

// NewOccupancy returns an empty arena for a lattice with numEdges edges.
func NewOccupancy(numEdges int) *Occupancy {
	return &Occupancy{
		chains: make([][]int, numEdges),
		loc:    make(map[int]EdgeID),
	}
}

// Place puts a new carrier on edge id.
func (o *Occupancy) Place(ion int, id EdgeID) error {
	if cur, ok := o.loc[ion]; ok {
		return fmt.Errorf("ion %d already placed on edge %d", ion, cur)
	}
	if int(id) < 0 || int(id) >= len(o.chains) {
		return fmt.Errorf("edge %d out of range", id)
	}
	o.chains[id] = append(o.chains[id], ion)
	o.loc[ion] = id
	return nil
}

// Move transfers ion from edge `from` to the end of edge `to`.
func (o *Occupancy) Move(ion int, from, to EdgeID) error {
	if cur, ok := o.loc[ion]; !ok || cur != from {
		return fmt.Errorf("ion %d not on edge %d", ion, from)
	}
	o.chains[from] = slices.DeleteFunc(o.chains[from], func(x int) bool { return x == ion })
	o.chains[to] = append(o.chains[to], ion)
	o.loc[ion] = to
	return nil
}

// Ions returns a copy of the carriers on edge id, in chain order.
func (o *Occupancy) Ions(id EdgeID) []int {
	return slices.Clone(o.chains[id])
}

// Count returns the number of carriers on edge id.
func (o *Occupancy) Count(id EdgeID) int {
	return len(o.chains[id])
}

// Location returns the edge holding ion.
func (o *Occupancy) Location(ion int) (EdgeID, bool) {
	id, ok := o.loc[ion]
	return id, ok
}

// Len returns the number of carriers.
func (o *Occupancy) Len() int {
	return len(o.loc)
}

// IonIDs returns all carrier ids in ascending order.
func (o *Occupancy) IonIDs() []int {
	out := make([]int, 0, len(o.loc))
	for ion := range o.loc {
		out = append(out, ion)
	}
	slices.Sort(out)
	return out
}

// Placement returns a copy of the carrier to edge mapping.
func (o *Occupancy) Placement() map[int]EdgeID {
	out := make(map[int]EdgeID, len(o.loc))
	for ion, id := range o.loc {
		out[ion] = id
	}
	return out
}

// Snapshot captures the arena. The result shares nothing with o.
func (o *Occupancy) Snapshot() Snapshot {
	chains := make([][]int, len(o.chains))
	for i, c := range o.chains {
		if len(c) > 0 {
			chains[i] = slices.Clone(c)
		}
	}
	return Snapshot{chains: chains}
}

// Restore resets the arena to s.
func (o *Occupancy) Restore(s Snapshot) {
	o.chains = make([][]int, len(s.chains))
	o.loc = make(map[int]EdgeID)
	for i, c := range s.chains {
		if len(c) == 0 {
			continue
		}
		o.chains[i] = slices.Clone(c)
		for _, ion := range c {
			o.loc[ion] = EdgeID(i)
		}
	}
}

// Snapshot is an immutable copy of an Occupancy.
type Snapshot struct {
	chains [][]int
}

// Ions returns a copy of the carriers on edge id.
func (s Snapshot) Ions(id EdgeID) []int {
	return slices.Clone(s.chains[id])
}

// Len returns the number of edges covered by the snapshot.
func (s Snapshot) Len() int {
	return len(s.chains)
}

// Placement returns the carrier to edge mapping captured by s.
func (s Snapshot) Placement() map[int]EdgeID {
	out := make(map[int]EdgeID)
	for i, c := range s.chains {
		for _, ion := range c {
			out[ion] = EdgeID(i)
		}
	}
	return out
}

// Equal reports whether s and o hold the same carriers in the same chain
// order on every edge.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s.chains) != len(o.chains) {
		return false
	}
	for i := range s.chains {
		if !slices.Equal(s.chains[i], o.chains[i]) {
			return false
		}
	}
	return true
}

// Observer receives a snapshot and a label after every occupancy mutation.
// Observers must not influence the simulation.
type Observer func(snap Snapshot, label string)
