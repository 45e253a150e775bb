package lattice

import "slices"

// graph is an undirected graph that remembers insertion order.
//
// Node order and per-node neighbor order are both insertion order, and
// removals keep the relative order of what remains. Edge enumeration walks
// nodes in order and emits each edge the first time one of its endpoints is
// visited, which is what fixes the dense edge ids of EdgeIndex.
type graph struct {
	order []Coord
	nodes map[Coord]NodeKind
	adj   map[Coord][]Coord
	edges map[EdgeKey]EdgeKind
}

func newGraph() *graph {
	return &graph{
		nodes: make(map[Coord]NodeKind),
		adj:   make(map[Coord][]Coord),
		edges: make(map[EdgeKey]EdgeKind),
	}
}

// addNode inserts c, or only updates its kind if it already exists.
func (g *graph) addNode(c Coord, kind NodeKind) {
	if _, ok := g.nodes[c]; !ok {
		g.order = append(g.order, c)
	}
	g.nodes[c] = kind
}

// addEdge inserts the edge u-v (adding missing endpoints as trap nodes), or
// only updates its kind if it already exists.
func (g *graph) addEdge(u, v Coord, kind EdgeKind) {
	if _, ok := g.nodes[u]; !ok {
		g.addNode(u, NodeTrap)
	}
	if _, ok := g.nodes[v]; !ok {
		g.addNode(v, NodeTrap)
	}
	key := Edge(u, v)
	if _, ok := g.edges[key]; !ok {
		g.adj[u] = append(g.adj[u], v)
		g.adj[v] = append(g.adj[v], u)
	}
	g.edges[key] = kind
}

func (g *graph) removeEdge(u, v Coord) {
	key := Edge(u, v)
	if _, ok := g.edges[key]; !ok {
		return
	}
	delete(g.edges, key)
	g.adj[u] = deleteCoord(g.adj[u], v)
	g.adj[v] = deleteCoord(g.adj[v], u)
}

func (g *graph) removeNode(c Coord) {
	if _, ok := g.nodes[c]; !ok {
		return
	}
	for _, nbr := range slices.Clone(g.adj[c]) {
		g.removeEdge(c, nbr)
	}
	delete(g.adj, c)
	delete(g.nodes, c)
	g.order = deleteCoord(g.order, c)
}

func (g *graph) hasNode(c Coord) bool {
	_, ok := g.nodes[c]
	return ok
}

func (g *graph) setEdgeKinds(kind EdgeKind) {
	for key := range g.edges {
		g.edges[key] = kind
	}
}

// edgeList enumerates edges in construction order.
func (g *graph) edgeList() []EdgeKey {
	seen := make(map[Coord]bool, len(g.order))
	out := make([]EdgeKey, 0, len(g.edges))
	for _, n := range g.order {
		for _, nbr := range g.adj[n] {
			if !seen[nbr] {
				out = append(out, Edge(n, nbr))
			}
		}
		seen[n] = true
	}
	return out
}

func deleteCoord(s []Coord, c Coord) []Coord {
	return slices.DeleteFunc(s, func(x Coord) bool { return x == c })
}
