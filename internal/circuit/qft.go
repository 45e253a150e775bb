package circuit

import "fmt"

// QFTGates returns the quantum Fourier transform on n qubits without the
// final swap network: a Hadamard on each qubit followed by its ladder of
// controlled-phase rotations.
func QFTGates(n int) []Gate {
	var gates []Gate
	for j := 0; j < n; j++ {
		gates = append(gates, Gate{Name: "h", Qubits: []int{j}})
		for k := j + 1; k < n; k++ {
			gates = append(gates, Gate{
				Name:   "cp",
				Params: []string{fmt.Sprintf("pi/%d", 1<<(k-j))},
				Qubits: []int{k, j},
			})
		}
	}
	return gates
}

// QFT returns the dependency graph of QFTGates(n).
func QFT(n int) *DAG {
	return NewDAG(QFTGates(n))
}
