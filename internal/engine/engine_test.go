package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mewuto/ion-shuttler/internal/circuit"
	"github.com/mewuto/ion-shuttler/internal/lattice"
	"github.com/mewuto/ion-shuttler/internal/metrics"
	"github.com/mewuto/ion-shuttler/internal/sequencer"
	"github.com/mewuto/ion-shuttler/internal/testutil"
	"github.com/mewuto/ion-shuttler/internal/trace"
)

// Edge ids on the 3x3 unit lattice used below:
//
//	 9 (1,2)-(2,2)  10 (2,0)-(2,1)  11 (2,0)-(3,3) first entry connection
//	12 (2,1)-(2,2)  13 (2,2)-(3,3) exit  14 (3,3)-(4,3) parking
type placed struct {
	ion  int
	edge lattice.EdgeID
}

func newEngine(t *testing.T, gates []circuit.Gate, placement []placed, opts ...Option) (*Engine, *lattice.Occupancy) {
	t.Helper()
	topo := testutil.Lattice3x3(t)
	occ := lattice.NewOccupancy(topo.NumEdges())
	for _, p := range placement {
		require.NoError(t, occ.Place(p.ion, p.edge))
	}
	opts = append([]Option{WithRunIDGenerator(NewFixedGenerator("run-1"))}, opts...)
	e, err := New(topo, occ, circuit.NewDAG(gates), opts...)
	require.NoError(t, err)
	return e, occ
}

func stride(ion, from, to int) trace.Move {
	return trace.Move{Ion: ion, From: from, To: to, Kind: "stride"}
}

func TestRun_SingleCarrier(t *testing.T) {
	e, _ := newEngine(t, []circuit.Gate{{Name: "x", Qubits: []int{0}}}, []placed{{0, 9}})

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 2, res.Timesteps)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 1, res.GatesFired)
	assert.Equal(t, map[int]lattice.EdgeID{0: 14}, res.Final)

	require.Len(t, res.Steps, 2)
	assert.Equal(t, trace.Step{
		Seq: 1, Clock: 1, Buffer: 0,
		Moves:     []trace.Move{stride(0, 9, 13)},
		Evicted:   -1,
		Parking:   []int{},
		Remaining: 1,
	}, res.Steps[0])
	assert.Equal(t, trace.Step{
		Seq: 2, Clock: 2, Buffer: 1,
		Moves:     []trace.Move{stride(0, 13, 14)},
		Fired:     &trace.Firing{Node: 0, Operands: []int{0}, Cost: 1},
		Evicted:   -1,
		Parking:   []int{0},
		Remaining: 0,
	}, res.Steps[1])
}

func TestRun_PairMeetsInParking(t *testing.T) {
	gates := []circuit.Gate{{Name: "cx", Qubits: []int{0, 1}}}
	e, _ := newEngine(t, gates, []placed{{0, 9}, {1, 12}})

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Timesteps)
	assert.Equal(t, 3, res.Iterations)
	require.Len(t, res.Steps, 3)

	// Carrier 1 waits a timestep: carrier 0 claimed (2,2) first.
	assert.Equal(t, []trace.Move{stride(0, 9, 13)}, res.Steps[0].Moves)
	assert.Equal(t, []trace.Move{stride(0, 13, 14), stride(1, 12, 13)}, res.Steps[1].Moves)
	assert.Equal(t, []trace.Move{stride(1, 13, 14)}, res.Steps[2].Moves)

	assert.Equal(t, &trace.Firing{Node: 0, Operands: []int{0, 1}, Cost: 3}, res.Steps[2].Fired)
	assert.Equal(t, []int{0, 1}, res.Steps[2].Parking)
	assert.Equal(t, 3, res.Steps[2].Buffer)

	want, err := trace.Digest(res.Steps)
	require.NoError(t, err)
	assert.Equal(t, want, res.Digest)
}

func TestRun_Deterministic(t *testing.T) {
	gates := []circuit.Gate{{Name: "cx", Qubits: []int{0, 1}}}
	placement := []placed{{0, 9}, {1, 12}}

	e1, _ := newEngine(t, gates, placement)
	r1, err := e1.Run(context.Background())
	require.NoError(t, err)
	e2, _ := newEngine(t, gates, placement)
	r2, err := e2.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, r1.Digest, r2.Digest)
	assert.Equal(t, r1.Steps, r2.Steps)
}

func TestRun_BufferAbsorbsMoveSteps(t *testing.T) {
	gates := []circuit.Gate{
		{Name: "cx", Qubits: []int{0, 1}},
		{Name: "x", Qubits: []int{2}},
	}
	e, _ := newEngine(t, gates, []placed{{0, 14}, {1, 14}, {2, 10}})

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Steps, 3)

	clocks := []int{res.Steps[0].Clock, res.Steps[1].Clock, res.Steps[2].Clock}
	buffers := []int{res.Steps[0].Buffer, res.Steps[1].Buffer, res.Steps[2].Buffer}
	assert.Equal(t, []int{3, 3, 4}, clocks)
	assert.Equal(t, []int{3, 2, 1}, buffers)
	assert.Equal(t, 4, res.Timesteps)

	assert.Equal(t, []trace.Move{stride(2, 10, 12)}, res.Steps[0].Moves)
	assert.Equal(t, []trace.Move{stride(2, 12, 13)}, res.Steps[1].Moves)
	assert.Nil(t, res.Steps[1].Fired)
	assert.Equal(t, []int{0, 1, 2}, res.Steps[2].Parking)
}

func TestRun_EvictsOverCapacity(t *testing.T) {
	gates := []circuit.Gate{{Name: "x", Qubits: []int{2}}}
	m := metrics.New()
	e, _ := newEngine(t, gates, []placed{{0, 14}, {1, 14}, {2, 13}}, WithCapacity(2), WithMetrics(m))

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Steps, 1)

	step := res.Steps[0]
	assert.Equal(t, 0, step.Evicted)
	assert.Equal(t, []trace.Move{
		stride(2, 13, 14),
		{Ion: 0, From: 14, To: 11, Kind: "egress"},
	}, step.Moves)
	assert.Equal(t, []int{1, 2}, step.Parking)
	assert.Equal(t, map[int]lattice.EdgeID{0: 11, 1: 14, 2: 14}, res.Final)
	assert.Equal(t, 1, res.Timesteps)

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap["ionshuttle_evictions_total"])
	assert.Equal(t, 1.0, snap[`ionshuttle_cascades_total{outcome="moved"}`])
	assert.Equal(t, 1.0, snap["ionshuttle_stride_moves_total"])
}

func TestRun_QFT2(t *testing.T) {
	topo, err := lattice.Build(lattice.Params{Rows: 3, Cols: 3, VChain: 1, HChain: 1})
	require.NoError(t, err)
	occ := lattice.NewOccupancy(topo.NumEdges())
	require.NoError(t, occ.Place(0, 9))
	require.NoError(t, occ.Place(1, 12))

	e, err := New(topo, occ, circuit.QFT(2), WithRunIDGenerator(NewFixedGenerator("qft")))
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.GatesFired)
	assert.Equal(t, 4, res.Iterations)
	assert.Equal(t, 6, res.Timesteps)

	var fired []int
	for _, s := range res.Steps {
		if s.Fired != nil {
			fired = append(fired, s.Fired.Node)
		}
	}
	assert.Equal(t, []int{0, 1, 2}, fired)
}

func TestRun_MetricsAndSink(t *testing.T) {
	gates := []circuit.Gate{{Name: "cx", Qubits: []int{0, 1}}}
	m := metrics.New()
	sink := trace.NewRecorder()
	e, _ := newEngine(t, gates, []placed{{0, 9}, {1, 12}}, WithMetrics(m), WithSink(sink))

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Steps, sink.Steps())

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 4.0, snap["ionshuttle_stride_moves_total"])
	assert.Equal(t, 1.0, snap[`ionshuttle_gates_fired_total{arity="2"}`])
	assert.Equal(t, 5.0, snap["ionshuttle_timesteps"])
}

func TestRun_Observer(t *testing.T) {
	var labels []string
	counts := map[int]bool{}
	observe := func(s lattice.Snapshot, label string) {
		labels = append(labels, label)
		counts[len(s.Placement())] = true
	}
	e, _ := newEngine(t, []circuit.Gate{{Name: "x", Qubits: []int{0}}}, []placed{{0, 9}}, WithObserver(observe))

	observed, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Timestep", "Timestep", "Timestep", "Gate"}, labels)
	// The carrier is never lost between snapshots.
	assert.Equal(t, map[int]bool{1: true}, counts)

	plain, _ := newEngine(t, []circuit.Gate{{Name: "x", Qubits: []int{0}}}, []placed{{0, 9}})
	res, err := plain.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Digest, observed.Digest)
}

func TestRun_QuotaExceeded(t *testing.T) {
	gates := []circuit.Gate{{Name: "cx", Qubits: []int{0, 1}}}
	e, _ := newEngine(t, gates, []placed{{0, 9}, {1, 12}}, WithMaxTimesteps(2))

	_, err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))

	var se *StepsExceededError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "run-1", se.RunID)
	assert.Equal(t, 3, se.Steps)
	assert.Equal(t, 2, se.Limit)
}

func TestRun_Canceled(t *testing.T) {
	e, _ := newEngine(t, []circuit.Gate{{Name: "x", Qubits: []int{0}}}, []placed{{0, 9}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_OnlyOnce(t *testing.T) {
	e, _ := newEngine(t, nil, []placed{{0, 9}})

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Timesteps)
	assert.Empty(t, res.Steps)

	_, err = e.Run(context.Background())
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeAlreadyRan, re.Code)
}

func TestNew_UnplacedOperand(t *testing.T) {
	topo, err := lattice.Build(lattice.Params{Rows: 3, Cols: 3, VChain: 1, HChain: 1})
	require.NoError(t, err)
	occ := lattice.NewOccupancy(topo.NumEdges())
	require.NoError(t, occ.Place(0, 9))

	g := circuit.NewDAG([]circuit.Gate{{Name: "cx", Qubits: []int{0, 5}}})
	_, err = New(topo, occ, g)
	require.Error(t, err)
	assert.True(t, IsUnplacedOperandError(err))
	assert.Contains(t, err.Error(), "carrier 5")
}

func TestUniqueFlat(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, UniqueFlat([]int{3, 1, 3, 2, 1}))
	assert.Empty(t, UniqueFlat(nil))
}

func TestMoveList(t *testing.T) {
	topo, err := lattice.Build(lattice.Params{Rows: 3, Cols: 3, VChain: 1, HChain: 1})
	require.NoError(t, err)
	occ := lattice.NewOccupancy(topo.NumEdges())
	for ion, id := range []lattice.EdgeID{0, 9, 13, 5} {
		require.NoError(t, occ.Place(ion, id))
	}
	plan := sequencer.Plan{Sequence: [][]int{{3, 0}, {1, 2}, {0}}, HasHead: true}

	// Carrier 2 sits on the exit chain, carrier 3 heads the plan.
	got := MoveList(topo, occ, plan, UniqueFlat(plan.Flat()))
	assert.Equal(t, []int{2, 3, 0, 1}, got)

	assert.Equal(t, []int{2}, MoveList(topo, occ, sequencer.Plan{}, nil))
}

// drain runs QFT(q) on a fresh lattice with q carriers and checks that the
// run finishes with every operation fired and no carrier lost.
func drain(t *testing.T, p lattice.Params, q int, seed *int64) *Result {
	t.Helper()
	topo, err := lattice.Build(p)
	require.NoError(t, err)
	occ := lattice.NewOccupancy(topo.NumEdges())
	_, err = lattice.Place(topo, occ, q, seed)
	require.NoError(t, err)

	lost := 0
	observe := func(s lattice.Snapshot, _ string) {
		if len(s.Placement()) != q {
			lost++
		}
	}
	e, err := New(topo, occ, circuit.QFT(q),
		WithMaxTimesteps(5000),
		WithObserver(observe),
		WithRunIDGenerator(NewFixedGenerator("drain")))
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, IsStepsExceededError(err))
	assert.Equal(t, q*(q+1)/2, res.GatesFired)
	assert.Len(t, res.Final, q)
	assert.Zero(t, lost)
	return res
}

func TestRun_QFT4(t *testing.T) {
	res := drain(t, lattice.Params{Rows: 3, Cols: 3, VChain: 1, HChain: 1}, 4, nil)

	evictions := 0
	for _, s := range res.Steps {
		if s.Evicted >= 0 {
			evictions++
		}
	}
	assert.Positive(t, evictions)
}

func TestRun_DrainsOverCapacity(t *testing.T) {
	seven := int64(7)
	tests := []struct {
		name string
		p    lattice.Params
		q    int
		seed *int64
	}{
		{"3x3 q4 first", lattice.Params{Rows: 3, Cols: 3, VChain: 1, HChain: 1}, 4, nil},
		{"3x3 q5 seeded", lattice.Params{Rows: 3, Cols: 3, VChain: 1, HChain: 1}, 5, &seven},
		{"3x3 q6 first", lattice.Params{Rows: 3, Cols: 3, VChain: 1, HChain: 1}, 6, nil},
		{"3x4 q5 first", lattice.Params{Rows: 3, Cols: 4, VChain: 1, HChain: 1}, 5, nil},
		{"4x4 q5 first", lattice.Params{Rows: 4, Cols: 4, VChain: 1, HChain: 1}, 5, nil},
		{"4x4 q6 first", lattice.Params{Rows: 4, Cols: 4, VChain: 1, HChain: 1}, 6, nil},
		{"5x5 q8 first", lattice.Params{Rows: 5, Cols: 5, VChain: 1, HChain: 1}, 8, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := drain(t, tt.p, tt.q, tt.seed)
			again := drain(t, tt.p, tt.q, tt.seed)
			assert.Equal(t, first.Digest, again.Digest)
		})
	}
}

func TestRun_ReturnEdgeLeavesThroughZone(t *testing.T) {
	e, _ := newEngine(t, []circuit.Gate{{Name: "x", Qubits: []int{0}}}, []placed{{0, 11}})

	path, err := e.returnPath()
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Equal(t, lattice.EdgeID(13), path[0])
}
