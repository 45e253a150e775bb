package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mewuto/ion-shuttler/internal/circuit"
	"github.com/mewuto/ion-shuttler/internal/config"
	"github.com/mewuto/ion-shuttler/internal/engine"
	"github.com/mewuto/ion-shuttler/internal/lattice"
	"github.com/mewuto/ion-shuttler/internal/store"
)

const programFile = "program.qasm"

// Harness holds the per-scenario execution state.
type Harness struct {
	store  *store.Store
	cfg    *config.Config
	topo   *lattice.Topology
	occ    *lattice.Occupancy
	graph  *circuit.DAG
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory run log. Steps are read
// back from the log so the result reflects what was persisted.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	dir, err := os.MkdirTemp("", "scenario-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if err := h.setup(scenario, dir); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	return h.execute(context.Background(), scenario)
}

// setup resolves the configuration, program and initial placement.
func (h *Harness) setup(s *Scenario, dir string) error {
	fields := make(map[string]any, len(s.Config)+1)
	for k, v := range s.Config {
		fields[k] = v
	}
	if s.QASM != "" {
		if err := os.WriteFile(filepath.Join(dir, programFile), []byte(s.QASM), 0o644); err != nil {
			return err
		}
		fields["program"] = programFile
	}
	data, err := yaml.Marshal(fields)
	if err != nil {
		return err
	}
	cfg, err := config.Parse(data, "yaml", dir)
	if err != nil {
		return err
	}
	h.cfg = cfg

	if h.graph, err = cfg.LoadProgram(); err != nil {
		return err
	}

	if len(s.Placement) == 0 {
		h.topo, h.occ, err = cfg.Setup()
		return err
	}
	if len(s.Placement) != cfg.Ions {
		return fmt.Errorf("placement covers %d carriers, config has %d", len(s.Placement), cfg.Ions)
	}
	if h.topo, err = lattice.Build(cfg.Params()); err != nil {
		return err
	}
	h.occ = lattice.NewOccupancy(h.topo.NumEdges())
	ions := make([]int, 0, len(s.Placement))
	for ion := range s.Placement {
		ions = append(ions, ion)
	}
	slices.Sort(ions)
	for _, ion := range ions {
		if err := h.occ.Place(ion, lattice.EdgeID(s.Placement[ion])); err != nil {
			return err
		}
	}
	return nil
}

// execute runs the engine, persists the run and evaluates assertions.
func (h *Harness) execute(ctx context.Context, s *Scenario) (*Result, error) {
	runID := s.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	p := h.cfg.Params()
	run := store.Run{
		ID:       runID,
		Rows:     p.Rows,
		Cols:     p.Cols,
		VChain:   p.VChain,
		HChain:   p.HChain,
		Ions:     h.cfg.Ions,
		Capacity: h.cfg.Capacity,
		Seed:     h.cfg.Seed,
		Program:  h.cfg.ProgramName(),
	}
	if err := h.store.WriteRun(ctx, run); err != nil {
		return nil, err
	}

	result := NewResult()
	sink := &checkingSink{
		next:   h.store.StepWriter(ctx, runID),
		topo:   h.topo,
		occ:    h.occ,
		ions:   h.occ.Len(),
		result: result,
	}
	opts := []engine.Option{
		engine.WithCapacity(h.cfg.Capacity),
		engine.WithMaxTimesteps(h.cfg.MaxTimesteps),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
		engine.WithSink(sink),
	}
	if h.cfg.EgressRollback == config.EgressSnapshot {
		opts = append(opts, engine.WithSnapshotEgressRollback())
	}
	eng, err := engine.New(h.topo, h.occ, h.graph, opts...)
	if err != nil {
		return nil, err
	}
	res, err := eng.Run(ctx)
	if err != nil {
		return nil, err
	}

	run.Status = store.StatusDone
	run.Timesteps, run.Iterations, run.GatesFired, run.Digest = res.Timesteps, res.Iterations, res.GatesFired, res.Digest
	if err := h.store.WriteRun(ctx, run); err != nil {
		return nil, err
	}
	final := make(map[int]int, len(res.Final))
	for ion, id := range res.Final {
		final[ion] = int(id)
	}
	if err := h.store.WritePlacements(ctx, runID, final); err != nil {
		return nil, err
	}

	result.Run = res
	if result.Steps, err = h.store.ReadSteps(ctx, runID); err != nil {
		return nil, err
	}
	if result.Final, err = h.store.ReadPlacements(ctx, runID); err != nil {
		return nil, err
	}

	parking := int(h.topo.ParkingEdgeID())
	for i, a := range s.Assertions {
		if err := checkAssertion(result, a, parking); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	h.logger.Debug("scenario finished",
		"scenario", s.Name,
		"run_id", runID,
		"pass", result.Pass,
		"timesteps", res.Timesteps)
	return result, nil
}
