// Package harness runs reproducible simulation scenarios and checks them.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: pair_meets_in_parking
//	description: "Two carriers reach the parking edge and run one gate"
//	config:
//	  arch: [3, 3, 1, 1]
//	  ions: 2
//	placement: {0: 9, 1: 12}
//	qasm: |
//	  OPENQASM 2.0;
//	  qreg q[2];
//	  cx q[0],q[1];
//	assertions:
//	  - type: timesteps
//	    value: 5
//	  - type: final_parking
//	    ions: [0, 1]
//
// The config block accepts every key of a run configuration file. The
// program comes from qasm or from the config's qft key.
//
// # Assertion Types
//
//   - timesteps, iterations, gates_fired, evictions: exact counts
//   - final_parking: listed carriers end on the parking edge
//   - final_edge: one carrier ends on a given edge
//   - fired_order: operation nodes fire in the listed order
//   - exclusive_traps, conserved: principles checked after every timestep
//
// # Determinism
//
// Every scenario runs with a fixed run id against a fresh in-memory run
// log, so the persisted step records compare byte for byte against golden
// files (see RunWithGolden).
package harness
