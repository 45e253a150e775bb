package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mewuto/ion-shuttler/internal/circuit"
	"github.com/mewuto/ion-shuttler/internal/distance"
	"github.com/mewuto/ion-shuttler/internal/lattice"
	"github.com/mewuto/ion-shuttler/internal/metrics"
	"github.com/mewuto/ion-shuttler/internal/pz"
	"github.com/mewuto/ion-shuttler/internal/router"
	"github.com/mewuto/ion-shuttler/internal/sequencer"
	"github.com/mewuto/ion-shuttler/internal/trace"
)

// RunIDGenerator generates unique run IDs.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// StepSink receives each timestep record as soon as it is complete.
// trace.Recorder and the SQLite store both implement it.
type StepSink interface {
	Record(step trace.Step) error
}

// DefaultMaxTimesteps bounds the number of timesteps per run.
const DefaultMaxTimesteps = 100000

// Engine runs one program on one lattice.
type Engine struct {
	topo   *lattice.Topology
	oracle *distance.Oracle
	occ    *lattice.Occupancy
	graph  circuit.DependencyGraph

	router *router.Router
	pz     *pz.Manager
	clock  *Clock

	capacity       int
	maxTimesteps   int
	observe        lattice.Observer
	metrics        *metrics.Collector
	sink           StepSink
	runIDs         RunIDGenerator
	egressSnapshot bool

	ran bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCapacity sets how many carriers the parking edge holds before one is
// evicted. Default: pz.DefaultCapacity.
func WithCapacity(n int) Option {
	return func(e *Engine) {
		e.capacity = n
	}
}

// WithMaxTimesteps sets the timestep quota. Default: DefaultMaxTimesteps.
func WithMaxTimesteps(n int) Option {
	return func(e *Engine) {
		e.maxTimesteps = n
	}
}

// WithObserver installs a hook called after every occupancy mutation.
func WithObserver(fn lattice.Observer) Option {
	return func(e *Engine) {
		e.observe = fn
	}
}

// WithMetrics records activity on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithSink forwards every step record to s.
func WithSink(s StepSink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID source.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithSnapshotEgressRollback makes a stuck eviction cascade restore the
// full pre-eviction state instead of undoing its last hop.
func WithSnapshotEgressRollback() Option {
	return func(e *Engine) {
		e.egressSnapshot = true
	}
}

// New prepares a run of g over the carriers placed in occ. Every carrier
// the program uses must already be placed.
func New(topo *lattice.Topology, occ *lattice.Occupancy, g circuit.DependencyGraph, opts ...Option) (*Engine, error) {
	oracle, err := distance.New(topo)
	if err != nil {
		return nil, fmt.Errorf("distance oracle: %w", err)
	}

	e := &Engine{
		topo:         topo,
		oracle:       oracle,
		occ:          occ,
		graph:        g,
		clock:        NewClock(),
		capacity:     pz.DefaultCapacity,
		maxTimesteps: DefaultMaxTimesteps,
		runIDs:       UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, ion := range UniqueFlat(sequencer.Linearize(g, nil).Flat()) {
		if _, ok := occ.Location(ion); !ok {
			return nil, newUnplacedError(ion)
		}
	}

	var ropts []router.Option
	if e.observe != nil {
		ropts = append(ropts, router.WithObserver(e.observe))
	}
	if e.egressSnapshot {
		ropts = append(ropts, router.WithSnapshotEgressRollback())
	}
	e.router = router.New(topo, oracle, occ, ropts...)
	e.pz = pz.NewManager(topo, oracle, occ, e.router, e.capacity, e.observe)
	return e, nil
}

// Oracle returns the distance oracle built for the lattice.
func (e *Engine) Oracle() *distance.Oracle {
	return e.oracle
}

// Result summarizes a finished run.
type Result struct {
	RunID string
	// Timesteps is the logical clock when the program drained.
	Timesteps int
	// Iterations counts loop passes, including those absorbed by the
	// buffer.
	Iterations int
	GatesFired int
	Final      map[int]lattice.EdgeID
	Steps      []trace.Step
	Digest     string
}

// Run drives the program to completion. It fails on a routing or
// invariant error, on quota exhaustion, or when ctx is done. An Engine
// runs once.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.ran {
		return nil, &RuntimeError{Code: ErrCodeAlreadyRan, Message: "engine already ran"}
	}
	e.ran = true

	runID := e.runIDs.Generate()
	quota := NewQuotaEnforcer(e.maxTimesteps)
	rec := trace.NewRecorder()
	res := &Result{RunID: runID}

	slog.Info("run started",
		"run_id", runID,
		"lattice", e.topo.Params.String(),
		"ions", e.occ.Len(),
		"capacity", e.pz.Capacity())
	if e.observe != nil {
		e.observe(e.occ.Snapshot(), "Timestep")
	}

	plan := sequencer.Linearize(e.graph, e.oracle.DistanceMap(e.occ))
	for !plan.Empty() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := quota.Check(runID); err != nil {
			return nil, err
		}

		step, next, err := e.timestep(quota.Current(), plan)
		if err != nil {
			return nil, fmt.Errorf("timestep %d: %w", quota.Current(), err)
		}
		plan = next
		if step.Fired != nil {
			res.GatesFired++
		}

		_ = rec.Record(step)
		if e.sink != nil {
			if err := e.sink.Record(step); err != nil {
				return nil, fmt.Errorf("record step %d: %w", step.Seq, err)
			}
		}
		e.metrics.SetTimesteps(e.clock.Now())
	}

	digest, err := rec.Digest()
	if err != nil {
		return nil, err
	}
	res.Timesteps = e.clock.Now()
	res.Iterations = quota.Current()
	res.Final = e.occ.Placement()
	res.Steps = rec.Steps()
	res.Digest = digest

	slog.Info("run finished",
		"run_id", runID,
		"timesteps", res.Timesteps,
		"iterations", res.Iterations,
		"gates", res.GatesFired)
	return res, nil
}

// timestep runs the move phase and the zone phase once.
func (e *Engine) timestep(seq int, plan sequencer.Plan) (trace.Step, sequencer.Plan, error) {
	used := router.NewJunctions()
	moveList := MoveList(e.topo, e.occ, plan, UniqueFlat(plan.Flat()))
	for _, ion := range moveList {
		if err := e.moveCarrier(ion, used); err != nil {
			return trace.Step{}, plan, err
		}
	}

	before := e.router.Pending()
	zone, err := e.pz.Process(e.graph, e.clock.Now(), used, moveList)
	if err != nil {
		return trace.Step{}, plan, err
	}
	if zone.Evicted >= 0 {
		e.metrics.Eviction()
		if zone.Egress != router.Stayed {
			e.metrics.Cascade(zone.Egress.String(), e.router.Pending()-before)
		}
	}
	if zone.Fired != nil {
		e.metrics.GateFired(len(zone.Fired.Operands))
	}
	e.clock.Reconcile(zone.Clock)

	moves, rollbacks := e.router.Drain()
	step := trace.Step{
		Seq:       seq,
		Clock:     e.clock.Now(),
		Buffer:    e.clock.Buffer(),
		Moves:     traceMoves(moves),
		Rollbacks: rollbacks,
		Evicted:   zone.Evicted,
		Parking:   append([]int{}, e.occ.Ions(e.topo.ParkingEdgeID())...),
		Remaining: len(zone.Plan.Sequence),
	}
	if f := zone.Fired; f != nil {
		step.Fired = &trace.Firing{Node: int(f.Node), Operands: f.Operands, Cost: f.Cost}
	}
	slog.Debug("timestep",
		"seq", seq,
		"clock", step.Clock,
		"buffer", step.Buffer,
		"moves", len(step.Moves),
		"remaining", step.Remaining)
	return step, zone.Plan, nil
}

// moveCarrier tries to advance ion one hop toward the parking node.
func (e *Engine) moveCarrier(ion int, used *router.Junctions) error {
	cur, ok := e.occ.Location(ion)
	if !ok {
		return newUnplacedError(ion)
	}
	path, err := e.oracle.FindPath(cur, e.topo.ParkingNode)
	if err != nil {
		return err
	}
	if len(path) == 0 || used.Moved(ion) {
		return nil
	}
	if cur == e.topo.ReturnEdgeID() {
		if path, err = e.returnPath(); err != nil || len(path) == 0 {
			return err
		}
	}

	next := path[0]
	if e.occ.Count(next) > 0 && e.topo.EdgeKind(next) == lattice.EdgeTrap {
		before := e.router.Pending()
		out, err := e.router.PushObstacle(ion, next, used)
		if err != nil {
			return err
		}
		if out != router.Stayed {
			e.metrics.Cascade(out.String(), e.router.Pending()-before)
		}
		return nil
	}

	out, err := e.router.Stride(ion, path, used)
	if err != nil {
		return err
	}
	if out == router.Moved {
		e.metrics.Stride()
	}
	return nil
}

// returnPath routes a carrier on the return edge toward the exit corner
// instead of straight back into the grid. Either endpoint may start the
// route; the shorter one wins.
func (e *Engine) returnPath() ([]lattice.EdgeID, error) {
	return e.oracle.FindPath(e.topo.ReturnEdgeID(), e.exitCorner())
}

func (e *Engine) exitCorner() lattice.Coord {
	return lattice.C(e.topo.RowsExt-1, e.topo.ColsExt-1)
}

func traceMoves(moves []router.Move) []trace.Move {
	out := make([]trace.Move, len(moves))
	for i, m := range moves {
		out[i] = trace.Move{Ion: m.Ion, From: int(m.From), To: int(m.To), Kind: string(m.Kind)}
	}
	return out
}
