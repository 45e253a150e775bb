// Package store keeps a durable log of simulation runs in SQLite.
//
// A run row is written before the run starts, each timestep is appended as
// it completes (as canonical JSON plus a few queryable columns), and the
// final placement and digest are written when the run finishes. A run whose
// status is still "running" was interrupted.
//
// Reads are ordered deterministically: runs by id, steps by seq, placements
// by ion.
package store
