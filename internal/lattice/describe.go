package lattice

import (
	"fmt"
	"io"
)

// Describe writes a stable, human-readable listing of t: the dimensions,
// the named processing-zone nodes and every edge in index order.
func Describe(w io.Writer, t *Topology) error {
	p := t.Params
	lines := []string{
		fmt.Sprintf("lattice %dx%d chains %dx%d (extended %dx%d)", p.Rows, p.Cols, p.VChain, p.HChain, t.RowsExt, t.ColsExt),
		fmt.Sprintf("nodes %d edges %d junctions %d", t.NumNodes(), t.NumEdges(), len(t.Junctions)),
		fmt.Sprintf("entry %s exit %s processing_zone %s parking %s", t.Entry, t.Exit, t.ProcessingZone, t.ParkingNode),
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	for id, e := range t.index.edges {
		if _, err := fmt.Fprintf(w, "%3d %s %s\n", id, e, t.kinds[id]); err != nil {
			return err
		}
	}
	return nil
}
