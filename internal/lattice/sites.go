package lattice

import "math"

// A site is a single unit edge of the site-resolution grid. With chain sizes
// of 1, sites and chain edges coincide; otherwise a chain between two
// junctions is made of VChain (or HChain) consecutive sites.

// EdgeFromSite returns the junction-to-junction chain that contains site.
func (t *Topology) EdgeFromSite(site EdgeKey) (EdgeKey, error) {
	a, b := site.A, site.B
	ja, jb := t.isJunction[a], t.isJunction[b]

	switch {
	case ja && jb:
		return site, nil
	case ja || jb:
		junction, other := a, b
		if jb {
			junction, other = b, a
		}
		v, h := float64(t.Params.VChain), float64(t.Params.HChain)
		switch {
		case other.Y == junction.Y && other.X < junction.X:
			return Edge(Coord{junction.Y, junction.X - h}, junction), nil
		case other.Y == junction.Y && other.X > junction.X:
			return Edge(junction, Coord{junction.Y, junction.X + h}), nil
		case other.X == junction.X && other.Y < junction.Y:
			return Edge(Coord{junction.Y - v, junction.X}, junction), nil
		case other.X == junction.X && other.Y > junction.Y:
			return Edge(junction, Coord{junction.Y + v, junction.X}), nil
		}
	case a.X == b.X:
		if ends, ok := t.junctionsAround(a, t.Params.VChain, true); ok {
			return ends, nil
		}
	case a.Y == b.Y:
		if ends, ok := t.junctionsAround(a, t.Params.HChain, false); ok {
			return ends, nil
		}
	}
	return EdgeKey{}, newConfigError(ErrCodeInvalidSite, "site %s is not on a chain", site)
}

// junctionsAround scans size positions either side of c along one axis and
// returns the chain bounded by the two junctions found.
func (t *Topology) junctionsAround(c Coord, size int, vertical bool) (EdgeKey, bool) {
	var found []Coord
	for d := -size; d <= size; d++ {
		p := Coord{Y: c.Y, X: c.X + float64(d)}
		if vertical {
			p = Coord{Y: c.Y + float64(d), X: c.X}
		}
		if t.isJunction[p] {
			found = append(found, p)
		}
	}
	if len(found) != 2 {
		return EdgeKey{}, false
	}
	return Edge(found[0], found[1]), true
}

// SitesFromEdge returns the lattice sites that make up chain edge e, from
// the lower coordinate upward.
func (t *Topology) SitesFromEdge(e EdgeKey) ([]EdgeKey, error) {
	var sites []EdgeKey
	switch {
	case e.A.X == e.B.X:
		y := math.Min(e.A.Y, e.B.Y)
		for i := 0; i < t.Params.VChain; i++ {
			s := Edge(Coord{y + float64(i), e.A.X}, Coord{y + float64(i+1), e.A.X})
			if _, ok := t.g.edges[s]; ok {
				sites = append(sites, s)
			}
		}
	case e.A.Y == e.B.Y:
		x := math.Min(e.A.X, e.B.X)
		for i := 0; i < t.Params.HChain; i++ {
			s := Edge(Coord{e.A.Y, x + float64(i)}, Coord{e.A.Y, x + float64(i+1)})
			if _, ok := t.g.edges[s]; ok {
				sites = append(sites, s)
			}
		}
	default:
		return nil, newConfigError(ErrCodeInvalidSite, "edge %s is neither vertical nor horizontal", e)
	}
	return sites, nil
}
