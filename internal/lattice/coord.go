package lattice

import (
	"fmt"
	"strconv"
)

// Coord is a lattice node position (row, column).
//
// Grid nodes sit on integer positions. Connector nodes between the grid and
// the processing zone may have fractional columns, so both components are
// float64. Coordinates are compared exactly; every value is produced by the
// same construction arithmetic, so equal positions are bit-identical.
type Coord struct {
	Y float64
	X float64
}

// C is shorthand for building a Coord from integer positions.
func C(y, x int) Coord {
	return Coord{Y: float64(y), X: float64(x)}
}

func (c Coord) String() string {
	return "(" + formatFloat(c.Y) + "," + formatFloat(c.X) + ")"
}

func (c Coord) sum() float64 {
	return c.Y + c.X
}

// less orders coordinates by component sum, then row, then column.
func (c Coord) less(o Coord) bool {
	if c.sum() != o.sum() {
		return c.sum() < o.sum()
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// EdgeKey identifies an undirected edge by its two endpoints in canonical
// order (see Edge). Two EdgeKeys built from the same endpoints in either
// order are equal.
type EdgeKey struct {
	A Coord
	B Coord
}

// Edge returns the canonical key for the edge between u and v.
func Edge(u, v Coord) EdgeKey {
	if v.less(u) {
		u, v = v, u
	}
	return EdgeKey{A: u, B: v}
}

// Has reports whether c is an endpoint of e.
func (e EdgeKey) Has(c Coord) bool {
	return e.A == c || e.B == c
}

// Other returns the endpoint of e that is not c.
func (e EdgeKey) Other(c Coord) (Coord, bool) {
	switch c {
	case e.A:
		return e.B, true
	case e.B:
		return e.A, true
	}
	return Coord{}, false
}

// Shared returns the node common to e and o.
// Returns false if the edges are not adjacent (or are the same edge).
func (e EdgeKey) Shared(o EdgeKey) (Coord, bool) {
	if e == o {
		return Coord{}, false
	}
	if o.Has(e.A) {
		return e.A, true
	}
	if o.Has(e.B) {
		return e.B, true
	}
	return Coord{}, false
}

func (e EdgeKey) String() string {
	return e.A.String() + "-" + e.B.String()
}

// NodeKind classifies lattice nodes.
type NodeKind int

const (
	NodeTrap NodeKind = iota
	NodeJunction
	NodeProcessingZone
	NodeParking
	NodeEntryConnector
	NodeExitConnector
)

func (k NodeKind) String() string {
	switch k {
	case NodeTrap:
		return "trap"
	case NodeJunction:
		return "junction"
	case NodeProcessingZone:
		return "processing_zone"
	case NodeParking:
		return "parking"
	case NodeEntryConnector:
		return "entry_connector"
	case NodeExitConnector:
		return "exit_connector"
	}
	return fmt.Sprintf("node_kind(%d)", int(k))
}

// EdgeKind classifies lattice edges.
type EdgeKind int

const (
	EdgeTrap EdgeKind = iota
	EdgeEntry
	EdgeExit
	EdgeFirstEntryConnection
	EdgeParking
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeTrap:
		return "trap"
	case EdgeEntry:
		return "entry"
	case EdgeExit:
		return "exit"
	case EdgeFirstEntryConnection:
		return "first_entry_connection"
	case EdgeParking:
		return "parking"
	}
	return fmt.Sprintf("edge_kind(%d)", int(k))
}
