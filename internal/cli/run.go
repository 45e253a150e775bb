package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mewuto/ion-shuttler/internal/config"
	"github.com/mewuto/ion-shuttler/internal/engine"
	"github.com/mewuto/ion-shuttler/internal/metrics"
	"github.com/mewuto/ion-shuttler/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Metrics  bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the output of the run command.
type RunSummary struct {
	RunID      string             `json:"run_id"`
	Program    string             `json:"program"`
	Lattice    string             `json:"lattice"`
	Ions       int                `json:"ions"`
	Timesteps  int                `json:"timesteps"`
	Iterations int                `json:"iterations"`
	GatesFired int                `json:"gates_fired"`
	Digest     string             `json:"digest"`
	Final      map[int]int        `json:"final"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Simulate a program on a lattice",
		Long: `Simulate the configured program until every operation has fired.

The config file (.yaml, .yml, .json or .cue) names the lattice, the
carrier count and the program. With --db every timestep is appended to a
SQLite run log that trace and replay can read back.

Examples:
  ionshuttle run ./bell.yaml
  ionshuttle run --db ./runs.db --metrics ./qft8.cue
  ionshuttle run --format json ./qft8.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report simulation counters")

	return cmd
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	setup, err := LoadSetup(path)
	if err != nil {
		return loadExit(err)
	}
	cfg := setup.Config
	slog.Info("config loaded",
		"path", path,
		"lattice", setup.Topo.Params.String(),
		"ions", cfg.Ions,
		"program", cfg.ProgramName())

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	runID := runIDs.Generate()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	engOpts := []engine.Option{
		engine.WithCapacity(cfg.Capacity),
		engine.WithMaxTimesteps(cfg.MaxTimesteps),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
	}
	if cfg.EgressRollback == config.EgressSnapshot {
		engOpts = append(engOpts, engine.WithSnapshotEgressRollback())
	}
	var collector *metrics.Collector
	if opts.Metrics {
		collector = metrics.New()
		engOpts = append(engOpts, engine.WithMetrics(collector))
	}

	var st *store.Store
	var row store.Run
	if opts.Database != "" {
		if st, err = store.Open(opts.Database); err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		p := cfg.Params()
		row = store.Run{
			ID:       runID,
			Rows:     p.Rows,
			Cols:     p.Cols,
			VChain:   p.VChain,
			HChain:   p.HChain,
			Ions:     cfg.Ions,
			Capacity: cfg.Capacity,
			Seed:     cfg.Seed,
			Program:  cfg.ProgramName(),
		}
		if err := st.WriteRun(ctx, row); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		engOpts = append(engOpts, engine.WithSink(st.StepWriter(ctx, runID)))
	}

	eng, err := engine.New(setup.Topo, setup.Occ, setup.Graph, engOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start engine", err)
	}
	res, err := eng.Run(ctx)
	if err != nil {
		_ = out.Failure(ErrCodeRunFailed, err.Error(), map[string]string{"run_id": runID})
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	final := make(map[int]int, len(res.Final))
	for ion, id := range res.Final {
		final[ion] = int(id)
	}
	if st != nil {
		row.Status = store.StatusDone
		row.Timesteps, row.Iterations, row.GatesFired, row.Digest = res.Timesteps, res.Iterations, res.GatesFired, res.Digest
		if err := st.WriteRun(ctx, row); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		if err := st.WritePlacements(ctx, runID, final); err != nil {
			return WrapExitError(ExitCommandError, "failed to record placements", err)
		}
	}

	summary := RunSummary{
		RunID:      res.RunID,
		Program:    cfg.ProgramName(),
		Lattice:    setup.Topo.Params.String(),
		Ions:       cfg.Ions,
		Timesteps:  res.Timesteps,
		Iterations: res.Iterations,
		GatesFired: res.GatesFired,
		Digest:     res.Digest,
		Final:      final,
	}
	if collector != nil {
		if summary.Metrics, err = collector.Snapshot(); err != nil {
			return WrapExitError(ExitFailure, "failed to gather metrics", err)
		}
	}
	if out.JSON() {
		return out.Success(summary)
	}
	writeRunText(out, summary)
	return nil
}

func writeRunText(out *OutputFormatter, s RunSummary) {
	out.Printf("run %s\n", s.RunID)
	out.Printf("  program:     %s\n", s.Program)
	out.Printf("  lattice:     %s, %d carriers\n", s.Lattice, s.Ions)
	out.Printf("  timesteps:   %d\n", s.Timesteps)
	out.Printf("  iterations:  %d\n", s.Iterations)
	out.Printf("  gates fired: %d\n", s.GatesFired)
	out.Printf("  digest:      %s\n", s.Digest)
	out.Printf("  final:\n")
	ions := make([]int, 0, len(s.Final))
	for ion := range s.Final {
		ions = append(ions, ion)
	}
	slices.Sort(ions)
	for _, ion := range ions {
		out.Printf("    ion %d -> edge %d\n", ion, s.Final[ion])
	}
	if len(s.Metrics) > 0 {
		out.Printf("  metrics:\n")
		for _, line := range metrics.Lines(s.Metrics) {
			out.Printf("    %s\n", line)
		}
	}
}

// signalContext derives a context from the command that is canceled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
