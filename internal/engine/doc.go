// Package engine drives a run: it owns the logical clock and, once per
// timestep, moves carriers toward the processing zone in move-list order,
// hands the zone to the pz manager, and reconciles the clock.
//
// ARCHITECTURE:
//
// Single-threaded timestep loop:
// Every timestep starts with a fresh junction table. Carriers are tried in
// move-list order and each sees the mutations of the ones before it, so
// the order is part of the scheduling policy:
//  1. carriers already on the exit chain, closest to the zone first
//  2. the first operand of the next planned operation
//  3. the rest of the planned sequence, first occurrence order
//
// A carrier whose next edge holds an idle trap carrier pushes it; any other
// carrier strides. A carrier sitting on the return edge is routed toward
// the exit corner instead of straight back into the zone.
//
// Determinism:
// Equal topology, placement and program give an identical step trace and
// digest. No wall-clock time, map order or randomness reaches a decision.
package engine
