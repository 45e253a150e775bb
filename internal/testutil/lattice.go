// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mewuto/ion-shuttler/internal/lattice"
)

// Lattice3x3 builds the 3x3 lattice with unit chains. Its edge ids are:
//
//	 0 (0,0)-(1,0)   5 (1,0)-(2,0)  10 (2,0)-(2,1)
//	 1 (0,0)-(0,1)   6 (1,0)-(1,1)  11 (2,0)-(3,3) first entry connection
//	 2 (0,1)-(1,1)   7 (1,1)-(2,1)  12 (2,1)-(2,2)
//	 3 (0,1)-(0,2)   8 (1,1)-(1,2)  13 (2,2)-(3,3) exit
//	 4 (0,2)-(1,2)   9 (1,2)-(2,2)  14 (3,3)-(4,3) parking
func Lattice3x3(t testing.TB) *lattice.Topology {
	t.Helper()
	topo, err := lattice.Build(lattice.Params{Rows: 3, Cols: 3, VChain: 1, HChain: 1})
	require.NoError(t, err)
	return topo
}

// Place returns an occupancy with carrier i on edges[i].
func Place(t testing.TB, topo *lattice.Topology, edges ...lattice.EdgeID) *lattice.Occupancy {
	t.Helper()
	occ := lattice.NewOccupancy(topo.NumEdges())
	for ion, id := range edges {
		require.NoError(t, occ.Place(ion, id))
	}
	return occ
}

// WriteFile writes body to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
