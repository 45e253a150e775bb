package lattice

import (
	"math/rand"
	"strconv"
)

// Place puts n carriers onto distinct trap edges and returns the register
// count.
//
// With a seed, the trap edges are a seeded random sample; without one they
// are the first n trap edges in index order. Carrier i goes on the i-th
// chosen edge.
func Place(t *Topology, occ *Occupancy, n int, seed *int64) (int, error) {
	traps := t.TrapEdges()
	if n < 0 || n > len(traps) {
		return 0, &ConfigError{
			Code:    ErrCodeTooManyIons,
			Message: "carrier count exceeds available trap edges",
			Details: map[string]string{
				"ions":  strconv.Itoa(n),
				"traps": strconv.Itoa(len(traps)),
			},
		}
	}

	chosen := traps[:n]
	if seed != nil {
		rng := rand.New(rand.NewSource(*seed))
		perm := rng.Perm(len(traps))[:n]
		chosen = make([]EdgeID, n)
		for i, p := range perm {
			chosen[i] = traps[p]
		}
	}

	for ion, id := range chosen {
		if err := occ.Place(ion, id); err != nil {
			return 0, err
		}
	}
	return len(chosen), nil
}
