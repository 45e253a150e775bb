// Package lattice builds the trap lattice that carriers move on.
//
// A lattice is a grid of junction nodes joined by chain edges, plus a
// processing zone (PZ) hanging off the bottom of the grid:
//
//	junction ── chain ── junction
//	   │                    │
//	 entry ─ entry chain ─ PZ ─ exit chain ─ exit
//	                        │
//	                     parking
//
// Topology and EdgeIndex are built once by Build and are read-only. Carrier
// positions live in an Occupancy arena indexed by EdgeID, which supports
// cheap Snapshot/Restore for transactional moves.
//
// Edge ids are assigned in construction order (nodes in insertion order,
// each edge emitted at its first visited endpoint), so they are stable for
// a given Params.
package lattice
