package testutil

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mewuto/ion-shuttler/internal/lattice"
)

func TestSequentialRunIDs(t *testing.T) {
	gen := NewSequentialRunIDs("sim")
	assert.Equal(t, "sim-1", gen.Generate())
	assert.Equal(t, "sim-2", gen.Generate())
	assert.Equal(t, 2, gen.Issued())

	gen.Reset()
	assert.Equal(t, "sim-1", gen.Generate())

	assert.Equal(t, "run-1", NewSequentialRunIDs("").Generate())
}

func TestSequentialRunIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialRunIDs("")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				gen.Generate()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, gen.Issued())
}

func TestLattice3x3(t *testing.T) {
	topo := Lattice3x3(t)
	assert.Equal(t, 15, topo.NumEdges())
	assert.Equal(t, lattice.EdgeID(14), topo.ParkingEdgeID())
	assert.Equal(t, lattice.EdgeID(11), topo.ReturnEdgeID())
	assert.Equal(t, []lattice.EdgeID{13}, topo.PathToPZIDs())
}

func TestPlace(t *testing.T) {
	topo := Lattice3x3(t)
	occ := Place(t, topo, 9, 12, 14)
	assert.Equal(t, map[int]lattice.EdgeID{0: 9, 1: 12, 2: 14}, occ.Placement())
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, t.TempDir(), "sub/run.yaml", "ions: 1\n")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ions: 1\n", string(data))
}
