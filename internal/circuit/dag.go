// Package circuit provides the gate-dependency graph consumed by the
// scheduler, and builds it from OpenQASM 2 programs.
//
// The scheduler only depends on the DependencyGraph interface. DAG is the
// concrete implementation: node ids are assigned in program order and never
// reused, so a front layer listed in ascending id order is stable.
package circuit

import (
	"fmt"
	"slices"
	"strings"
)

// NodeID identifies an operation in a DependencyGraph.
type NodeID int

// DependencyGraph is the capability set the scheduler needs from a gate
// dependency graph.
type DependencyGraph interface {
	// FrontLayer returns the operations with no unresolved predecessor.
	FrontLayer() []NodeID
	// Remove marks an operation as executed, releasing its successors.
	Remove(id NodeID)
	// DeepCopy returns an independent copy for planning.
	DeepCopy() DependencyGraph
	// OperandIDs returns the carrier ids an operation acts on, in order.
	OperandIDs(id NodeID) []int
}

// Gate is one operation of a program.
type Gate struct {
	Name   string
	Params []string
	Qubits []int
}

func (g Gate) String() string {
	var b strings.Builder
	b.WriteString(g.Name)
	if len(g.Params) > 0 {
		b.WriteString("(" + strings.Join(g.Params, ",") + ")")
	}
	for i, q := range g.Qubits {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "q[%d]", q)
	}
	return b.String()
}

// diagonal gates are diagonal in the computational basis and commute with
// each other regardless of shared qubits.
var diagonal = map[string]bool{
	"id": true, "z": true, "s": true, "sdg": true, "t": true, "tdg": true,
	"rz": true, "p": true, "u1": true,
	"cz": true, "cp": true, "cu1": true, "crz": true, "rzz": true, "ccz": true,
}

func commute(a, b Gate) bool {
	return diagonal[a.Name] && diagonal[b.Name]
}

func shareQubit(a, b Gate) bool {
	for _, q := range a.Qubits {
		if slices.Contains(b.Qubits, q) {
			return true
		}
	}
	return false
}

// DAG is a gate dependency graph. A gate depends on every earlier gate that
// acts on a common qubit and does not commute with it.
type DAG struct {
	gates   []Gate
	succs   [][]NodeID
	pending []int
	removed []bool
	live    int
}

// NewDAG builds the dependency graph of gates in program order.
func NewDAG(gates []Gate) *DAG {
	d := &DAG{
		gates:   make([]Gate, len(gates)),
		succs:   make([][]NodeID, len(gates)),
		pending: make([]int, len(gates)),
		removed: make([]bool, len(gates)),
		live:    len(gates),
	}
	for i, g := range gates {
		d.gates[i] = Gate{Name: g.Name, Params: slices.Clone(g.Params), Qubits: slices.Clone(g.Qubits)}
		for j := 0; j < i; j++ {
			if shareQubit(gates[j], g) && !commute(gates[j], g) {
				d.succs[j] = append(d.succs[j], NodeID(i))
				d.pending[i]++
			}
		}
	}
	return d
}

// FrontLayer returns live operations with no live predecessor, ascending.
func (d *DAG) FrontLayer() []NodeID {
	var out []NodeID
	for i := range d.gates {
		if !d.removed[i] && d.pending[i] == 0 {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// Remove deletes id and its outgoing dependencies. Removing an unknown or
// already removed node is a no-op.
func (d *DAG) Remove(id NodeID) {
	if int(id) < 0 || int(id) >= len(d.gates) || d.removed[id] {
		return
	}
	d.removed[id] = true
	d.live--
	for _, s := range d.succs[id] {
		d.pending[s]--
	}
}

// DeepCopy returns an independent copy of d.
func (d *DAG) DeepCopy() DependencyGraph {
	return d.Clone()
}

// Clone is DeepCopy with a concrete result type.
func (d *DAG) Clone() *DAG {
	c := &DAG{
		gates:   d.gates,
		succs:   d.succs,
		pending: slices.Clone(d.pending),
		removed: slices.Clone(d.removed),
		live:    d.live,
	}
	return c
}

// OperandIDs returns the qubits (carrier ids) of id.
func (d *DAG) OperandIDs(id NodeID) []int {
	return slices.Clone(d.gates[id].Qubits)
}

// Gate returns the operation id.
func (d *DAG) Gate(id NodeID) Gate {
	return d.gates[id]
}

// Len returns the number of operations not yet removed.
func (d *DAG) Len() int {
	return d.live
}

// NumQubits returns one more than the highest qubit index used.
func (d *DAG) NumQubits() int {
	n := 0
	for _, g := range d.gates {
		for _, q := range g.Qubits {
			n = max(n, q+1)
		}
	}
	return n
}
