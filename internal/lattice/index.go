package lattice

import "fmt"

// EdgeID is a dense edge identifier in [0, EdgeIndex.Len()).
type EdgeID int

// EdgeIndex is the bijection between canonical edges and dense ids.
// It is built once per topology and never mutated.
type EdgeIndex struct {
	edges []EdgeKey
	ids   map[EdgeKey]EdgeID
}

func newEdgeIndex(edges []EdgeKey) *EdgeIndex {
	idx := &EdgeIndex{
		edges: make([]EdgeKey, len(edges)),
		ids:   make(map[EdgeKey]EdgeID, len(edges)),
	}
	for i, e := range edges {
		idx.edges[i] = e
		idx.ids[e] = EdgeID(i)
	}
	return idx
}

// Len returns the number of indexed edges.
func (x *EdgeIndex) Len() int {
	return len(x.edges)
}

// Lookup returns the id of the edge between u and v, in either order.
func (x *EdgeIndex) Lookup(u, v Coord) (EdgeID, bool) {
	return x.ID(Edge(u, v))
}

// ID returns the id of edge e. e is canonicalized first.
func (x *EdgeIndex) ID(e EdgeKey) (EdgeID, bool) {
	id, ok := x.ids[Edge(e.A, e.B)]
	return id, ok
}

// Reverse returns the canonical edge for id. It panics if id is out of range.
func (x *EdgeIndex) Reverse(id EdgeID) EdgeKey {
	return x.edges[id]
}

// Edges returns all edges in id order.
func (x *EdgeIndex) Edges() []EdgeKey {
	out := make([]EdgeKey, len(x.edges))
	copy(out, x.edges)
	return out
}

func (x *EdgeIndex) mustID(e EdgeKey) EdgeID {
	id, ok := x.ID(e)
	if !ok {
		panic(fmt.Sprintf("lattice: edge %s not indexed", e))
	}
	return id
}
