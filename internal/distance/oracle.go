// Package distance answers "how far is this edge from the processing zone"
// and "which edges lead there" for a fixed lattice.
//
// All routing uses hop counts, except that crossing the first entry
// connection costs FirstEntryPenalty. That keeps every route into the
// processing zone on the exit side and stops carriers from re-entering
// through the entry door.
package distance

import (
	"log/slog"

	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/mewuto/ion-shuttler/internal/lattice"
)

// FirstEntryPenalty is the weight of the first entry connection.
const FirstEntryPenalty = 100_000_000

// Anchor is the reference node that displaced carriers are pushed toward.
var Anchor = lattice.C(0, 0)

// Oracle holds precomputed distances for one topology. Distances depend
// only on the static topology, so an Oracle is built once and never
// invalidated.
type Oracle struct {
	topo   *lattice.Topology
	toPZ   map[lattice.Coord]int
	anchor map[lattice.Coord]int
	edges  []int
}

// New builds the oracle for topo. It fails with a RoutingError if any edge
// cannot reach the processing zone.
func New(topo *lattice.Topology) (*Oracle, error) {
	o := &Oracle{
		topo:   topo,
		toPZ:   dijkstra(topo, topo.ProcessingZone, nil).dist,
		anchor: dijkstra(topo, Anchor, nil).dist,
		edges:  make([]int, topo.NumEdges()),
	}

	idx := topo.Index()
	for id := range o.edges {
		e := idx.Reverse(lattice.EdgeID(id))
		da, okA := o.toPZ[e.A]
		db, okB := o.toPZ[e.B]
		if !okA && !okB {
			return nil, &RoutingError{From: e.A, To: topo.ProcessingZone}
		}
		switch {
		case !okA:
			o.edges[id] = db
		case !okB:
			o.edges[id] = da
		default:
			o.edges[id] = min(da, db)
		}
	}

	slog.Debug("distance oracle built",
		"edges", len(o.edges),
		"processing_zone", topo.ProcessingZone.String())
	return o, nil
}

// Distance returns the hop distance from edge id to the processing zone:
// the smaller of its two endpoints' distances.
func (o *Oracle) Distance(id lattice.EdgeID) int {
	return o.edges[id]
}

// NodeDistance returns the distance from node c to the processing zone.
func (o *Oracle) NodeDistance(c lattice.Coord) (int, bool) {
	d, ok := o.toPZ[c]
	return d, ok
}

// AnchorCost returns the path cost from node c to the anchor corner.
// Unreachable nodes report FirstEntryPenalty.
func (o *Oracle) AnchorCost(c lattice.Coord) int {
	if d, ok := o.anchor[c]; ok {
		return d
	}
	return FirstEntryPenalty
}

// DistanceMap maps every carrier in occ to the distance of its edge.
func (o *Oracle) DistanceMap(occ *lattice.Occupancy) map[int]int {
	out := make(map[int]int, occ.Len())
	for ion, id := range occ.Placement() {
		out[ion] = o.edges[id]
	}
	return out
}

// ShortestPath returns the edges of a cheapest route from src to tar.
// Among equal-cost routes the one discovered first wins. src == tar yields
// an empty path.
func (o *Oracle) ShortestPath(src, tar lattice.Coord) ([]lattice.EdgeID, error) {
	if !o.topo.HasNode(src) || !o.topo.HasNode(tar) {
		return nil, &RoutingError{From: src, To: tar}
	}
	res := dijkstra(o.topo, src, &tar)
	nodes, ok := res.path(src, tar)
	if !ok {
		return nil, &RoutingError{From: src, To: tar}
	}

	idx := o.topo.Index()
	out := make([]lattice.EdgeID, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		id, ok := idx.Lookup(nodes[i-1], nodes[i])
		if !ok {
			return nil, &RoutingError{From: nodes[i-1], To: nodes[i]}
		}
		out = append(out, id)
	}
	return out, nil
}

// FindPath returns the shorter (in hops) of the routes from either endpoint
// of edge id to target. On a tie the route from the second endpoint wins.
func (o *Oracle) FindPath(id lattice.EdgeID, target lattice.Coord) ([]lattice.EdgeID, error) {
	e := o.topo.Index().Reverse(id)
	p1, err := o.ShortestPath(e.A, target)
	if err != nil {
		return nil, err
	}
	p2, err := o.ShortestPath(e.B, target)
	if err != nil {
		return nil, err
	}
	if len(p1) < len(p2) {
		return p1, nil
	}
	return p2, nil
}

type entry struct {
	dist int
	seq  int
	node lattice.Coord
}

func byDistThenSeq(a, b interface{}) int {
	x, y := a.(entry), b.(entry)
	switch {
	case x.dist != y.dist:
		if x.dist < y.dist {
			return -1
		}
		return 1
	case x.seq < y.seq:
		return -1
	case x.seq > y.seq:
		return 1
	}
	return 0
}

type result struct {
	dist map[lattice.Coord]int
	pred map[lattice.Coord]lattice.Coord
}

func (r result) path(src, tar lattice.Coord) ([]lattice.Coord, bool) {
	if _, ok := r.dist[tar]; !ok {
		return nil, false
	}
	rev := []lattice.Coord{tar}
	for cur := tar; cur != src; {
		p, ok := r.pred[cur]
		if !ok {
			return nil, false
		}
		rev = append(rev, p)
		cur = p
	}
	out := make([]lattice.Coord, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out, true
}

// dijkstra runs a single-source search, stopping early once target is
// settled. A node's predecessor is only replaced by a strictly cheaper one,
// and neighbors are relaxed in insertion order, so ties resolve to the
// first discovery.
func dijkstra(topo *lattice.Topology, src lattice.Coord, target *lattice.Coord) result {
	res := result{
		dist: make(map[lattice.Coord]int),
		pred: make(map[lattice.Coord]lattice.Coord),
	}
	seen := map[lattice.Coord]int{src: 0}
	pq := priorityqueue.NewWith(byDistThenSeq)
	seq := 0
	pq.Enqueue(entry{dist: 0, seq: seq, node: src})

	idx := topo.Index()
	for !pq.Empty() {
		v, _ := pq.Dequeue()
		cur := v.(entry)
		if _, done := res.dist[cur.node]; done {
			continue
		}
		res.dist[cur.node] = cur.dist
		if target != nil && cur.node == *target {
			break
		}
		for _, nbr := range topo.Neighbors(cur.node) {
			if _, done := res.dist[nbr]; done {
				continue
			}
			w := 1
			if id, ok := idx.Lookup(cur.node, nbr); ok && topo.EdgeKind(id) == lattice.EdgeFirstEntryConnection {
				w = FirstEntryPenalty
			}
			d := cur.dist + w
			if old, ok := seen[nbr]; !ok || d < old {
				seen[nbr] = d
				res.pred[nbr] = cur.node
				seq++
				pq.Enqueue(entry{dist: d, seq: seq, node: nbr})
			}
		}
	}
	return res
}
