package engine

import (
	"github.com/emirpasic/gods/sets/linkedhashset"

	"github.com/mewuto/ion-shuttler/internal/lattice"
	"github.com/mewuto/ion-shuttler/internal/sequencer"
)

// UniqueFlat drops repeated carriers from flat, keeping first occurrences.
func UniqueFlat(flat []int) []int {
	set := linkedhashset.New()
	for _, ion := range flat {
		set.Add(ion)
	}
	return ints(set)
}

// MoveList returns the order in which carriers try to move this timestep:
// carriers on the exit chain scanned from the processing zone outward, then
// the head operand of plan, then the remaining carriers of unique.
func MoveList(topo *lattice.Topology, occ *lattice.Occupancy, plan sequencer.Plan, unique []int) []int {
	set := linkedhashset.New()
	path := topo.PathToPZIDs()
	for i := len(path) - 1; i >= 0; i-- {
		for _, ion := range occ.Ions(path[i]) {
			set.Add(ion)
		}
	}
	if head := plan.HeadOperands(); len(head) > 0 {
		set.Add(head[0])
	}
	for _, ion := range unique {
		set.Add(ion)
	}
	return ints(set)
}

func ints(set *linkedhashset.Set) []int {
	vals := set.Values()
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = v.(int)
	}
	return out
}
