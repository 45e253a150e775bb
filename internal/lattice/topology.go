package lattice

import (
	"fmt"
	"strconv"
)

// Params are the four integers that determine a lattice.
type Params struct {
	Rows   int // junction rows
	Cols   int // junction columns
	VChain int // sites per vertical chain segment
	HChain int // sites per horizontal chain segment
}

// Validate reports whether p admits at least one chain segment.
func (p Params) Validate() error {
	if p.Rows < 2 || p.Cols < 2 {
		return &ConfigError{
			Code:    ErrCodeInvalidParams,
			Message: fmt.Sprintf("lattice needs at least 2x2 junctions, got %dx%d", p.Rows, p.Cols),
			Details: map[string]string{
				"rows": strconv.Itoa(p.Rows),
				"cols": strconv.Itoa(p.Cols),
			},
		}
	}
	if p.VChain < 1 || p.HChain < 1 {
		return &ConfigError{
			Code:    ErrCodeInvalidParams,
			Message: fmt.Sprintf("chain sizes must be >= 1, got %dx%d", p.VChain, p.HChain),
			Details: map[string]string{
				"vchain": strconv.Itoa(p.VChain),
				"hchain": strconv.Itoa(p.HChain),
			},
		}
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("%dx%d chains %dx%d", p.Rows, p.Cols, p.VChain, p.HChain)
}

// Topology is an immutable lattice with its processing-zone attachment.
//
// Nodes and edges never change after Build. Carrier positions live in a
// separate Occupancy arena indexed by the topology's EdgeIndex.
type Topology struct {
	Params Params

	// RowsExt and ColsExt are the fine-grained grid dimensions, counting
	// every chain site.
	RowsExt int
	ColsExt int

	Entry          Coord
	Exit           Coord
	ProcessingZone Coord
	ParkingNode    Coord

	EntryEdge            EdgeKey
	ExitEdge             EdgeKey
	ParkingEdge          EdgeKey
	FirstEntryConnection EdgeKey

	// PathToPZ runs from the exit corner to the processing zone.
	PathToPZ []EdgeKey
	// PathFromPZ runs from the processing zone back to the entry corner;
	// PathFromPZ[0] is the first entry connection.
	PathFromPZ []EdgeKey

	// Junctions in row-major order.
	Junctions []Coord

	g          *graph
	index      *EdgeIndex
	kinds      []EdgeKind
	isJunction map[Coord]bool
}

// Build constructs the lattice for p.
//
// The grid is laid out at site resolution, then the edges and nodes inside
// each chain-bounded cell are removed so only chain sites remain. The
// processing zone is attached below the grid through an exit connector
// chain (from the bottom-right corner) and an entry connector chain (into
// the bottom-left corner), each n/2 edges long; a parking node hangs off
// the processing zone.
//
// Build is deterministic: equal Params give identical node order, edge order
// and therefore identical edge ids.
func Build(p Params) (*Topology, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	t := &Topology{
		Params:  p,
		RowsExt: p.Rows + (p.VChain-1)*(p.Rows-1),
		ColsExt: p.Cols + (p.HChain-1)*(p.Cols-1),
		g:       newGraph(),
	}

	t.buildGrid()
	t.removeCellInteriors()
	t.markJunctions()
	t.g.setEdgeKinds(EdgeTrap)
	if err := t.attachProcessingZone(); err != nil {
		return nil, err
	}

	t.index = newEdgeIndex(t.g.edgeList())
	t.kinds = make([]EdgeKind, t.index.Len())
	for id := range t.kinds {
		t.kinds[id] = t.g.edges[t.index.Reverse(EdgeID(id))]
	}
	return t, nil
}

// buildGrid adds the full site grid: nodes row-major, then every vertical
// edge, then every horizontal edge.
func (t *Topology) buildGrid() {
	for i := 0; i < t.RowsExt; i++ {
		for j := 0; j < t.ColsExt; j++ {
			t.g.addNode(C(i, j), NodeTrap)
		}
	}
	for i := 1; i < t.RowsExt; i++ {
		for j := 0; j < t.ColsExt; j++ {
			t.g.addEdge(C(i, j), C(i-1, j), EdgeTrap)
		}
	}
	for i := 0; i < t.RowsExt; i++ {
		for j := 1; j < t.ColsExt; j++ {
			t.g.addEdge(C(i, j), C(i, j-1), EdgeTrap)
		}
	}
}

func (t *Topology) removeCellInteriors() {
	v, h := t.Params.VChain, t.Params.HChain

	// Horizontal edges on rows strictly inside a vertical chain.
	for i := 0; i < t.RowsExt-v; i += v {
		for k := 1; k < v; k++ {
			for j := 0; j < t.ColsExt-1; j++ {
				t.g.removeEdge(C(i+k, j), C(i+k, j+1))
			}
		}
	}
	// Vertical edges on columns strictly inside a horizontal chain.
	for i := 0; i < t.ColsExt-h; i += h {
		for k := 1; k < h; k++ {
			for j := 0; j < t.RowsExt-1; j++ {
				t.g.removeEdge(C(j, i+k), C(j+1, i+k))
			}
		}
	}
	// Nodes left isolated inside a cell.
	for i := 0; i < t.RowsExt-v; i += v {
		for k := 1; k < v; k++ {
			for j := 0; j < t.ColsExt-h; j += h {
				for s := 1; s < h; s++ {
					t.g.removeNode(C(i+k, j+s))
				}
			}
		}
	}
}

func (t *Topology) markJunctions() {
	t.isJunction = make(map[Coord]bool)
	for i := 0; i < t.RowsExt; i += t.Params.VChain {
		for j := 0; j < t.ColsExt; j += t.Params.HChain {
			c := C(i, j)
			t.g.addNode(c, NodeJunction)
			t.Junctions = append(t.Junctions, c)
			t.isJunction[c] = true
		}
	}
}

func (t *Topology) attachProcessingZone() error {
	num := t.Params.Cols / 2

	t.Exit = C(t.RowsExt-1, t.ColsExt-1)
	t.ProcessingZone = C(t.RowsExt+num-1, t.ColsExt+num-1)
	t.Entry = C(t.RowsExt-1, 0)
	t.ParkingNode = Coord{Y: t.ProcessingZone.Y + 1, X: t.ProcessingZone.X}
	t.ParkingEdge = Edge(t.ProcessingZone, t.ParkingNode)

	dyExit := int(t.Exit.X - t.ProcessingZone.X)
	dyEntry := int(t.ProcessingZone.X - t.Entry.X)

	prev := t.Exit
	for i := 0; i < num; i++ {
		node := Coord{
			Y: t.Exit.Y + float64(i+1),
			X: t.Exit.X - float64((i+1)*dyExit)/float64(num),
		}
		if i == 0 {
			t.ExitEdge = Edge(prev, node)
		}
		t.g.addNode(node, NodeExitConnector)
		t.g.addEdge(prev, node, EdgeExit)
		t.PathToPZ = append(t.PathToPZ, Edge(prev, node))
		prev = node
	}
	exitEnd := prev

	prev = t.Entry
	for i := 0; i < num; i++ {
		node := Coord{
			Y: t.Entry.Y + float64(i+1),
			X: t.Entry.X + float64((i+1)*dyEntry)/float64(num),
		}
		if i == 0 {
			t.EntryEdge = Edge(prev, node)
		}
		t.g.addNode(node, NodeEntryConnector)
		kind := EdgeEntry
		if node == t.ProcessingZone {
			kind = EdgeFirstEntryConnection
			t.FirstEntryConnection = Edge(prev, node)
		}
		t.g.addEdge(prev, node, kind)
		t.PathFromPZ = append([]EdgeKey{Edge(prev, node)}, t.PathFromPZ...)
		prev = node
	}
	entryEnd := prev

	if exitEnd != t.ProcessingZone || entryEnd != t.ProcessingZone {
		return newConfigError(ErrCodeInvalidParams,
			"connector chains end at %s and %s, not at processing zone %s",
			exitEnd, entryEnd, t.ProcessingZone)
	}

	t.g.addNode(t.ProcessingZone, NodeProcessingZone)
	t.g.addNode(t.ParkingNode, NodeParking)
	t.g.addEdge(t.ProcessingZone, t.ParkingNode, EdgeParking)
	return nil
}

// Index returns the edge index, built once by Build.
func (t *Topology) Index() *EdgeIndex {
	return t.index
}

// NumNodes returns the node count.
func (t *Topology) NumNodes() int {
	return len(t.g.order)
}

// NumEdges returns the edge count.
func (t *Topology) NumEdges() int {
	return t.index.Len()
}

// Nodes returns all nodes in construction order.
func (t *Topology) Nodes() []Coord {
	out := make([]Coord, len(t.g.order))
	copy(out, t.g.order)
	return out
}

// HasNode reports whether c is a lattice node.
func (t *Topology) HasNode(c Coord) bool {
	return t.g.hasNode(c)
}

// NodeKind returns the kind of node c.
func (t *Topology) NodeKind(c Coord) (NodeKind, bool) {
	k, ok := t.g.nodes[c]
	return k, ok
}

// EdgeKind returns the kind of edge id.
func (t *Topology) EdgeKind(id EdgeID) EdgeKind {
	return t.kinds[id]
}

// Neighbors returns the neighbors of c in insertion order.
func (t *Topology) Neighbors(c Coord) []Coord {
	return t.g.adj[c]
}

// IsJunction reports whether c is a junction node.
func (t *Topology) IsJunction(c Coord) bool {
	return t.isJunction[c]
}

// Adjacent returns the ids of all edges that share exactly one endpoint
// with edge id. Edges around endpoint A come first, then those around B,
// each in neighbor insertion order.
func (t *Topology) Adjacent(id EdgeID) []EdgeID {
	e := t.index.Reverse(id)
	out := make([]EdgeID, 0, 6)
	for _, end := range [2]Coord{e.A, e.B} {
		for _, nbr := range t.g.adj[end] {
			if e.Has(nbr) {
				continue
			}
			out = append(out, t.index.mustID(Edge(end, nbr)))
		}
	}
	return out
}

// SharedNode returns the node common to edges a and b.
func (t *Topology) SharedNode(a, b EdgeID) (Coord, bool) {
	return t.index.Reverse(a).Shared(t.index.Reverse(b))
}

// TrapEdges returns the ids of all trap edges in index order.
func (t *Topology) TrapEdges() []EdgeID {
	var out []EdgeID
	for id, k := range t.kinds {
		if k == EdgeTrap {
			out = append(out, EdgeID(id))
		}
	}
	return out
}

// ParkingEdgeID returns the id of the parking edge.
func (t *Topology) ParkingEdgeID() EdgeID {
	return t.index.mustID(t.ParkingEdge)
}

// ReturnEdgeID returns the id of the first entry connection, the edge a
// carrier takes when leaving the processing zone.
func (t *Topology) ReturnEdgeID() EdgeID {
	return t.index.mustID(t.FirstEntryConnection)
}

// PathToPZIDs returns PathToPZ as edge ids.
func (t *Topology) PathToPZIDs() []EdgeID {
	out := make([]EdgeID, len(t.PathToPZ))
	for i, e := range t.PathToPZ {
		out[i] = t.index.mustID(e)
	}
	return out
}
