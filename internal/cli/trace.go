package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mewuto/ion-shuttler/internal/store"
	"github.com/mewuto/ion-shuttler/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - without it, runs are listed
	Ion      int    // optional - filter moves to one carrier; -1 keeps all
}

// RunInfo is the JSON form of a run log row.
type RunInfo struct {
	ID         string `json:"id"`
	Lattice    string `json:"lattice"`
	Ions       int    `json:"ions"`
	Capacity   int    `json:"capacity"`
	Seed       *int64 `json:"seed,omitempty"`
	Program    string `json:"program"`
	Status     string `json:"status"`
	Timesteps  int    `json:"timesteps"`
	Iterations int    `json:"iterations"`
	GatesFired int    `json:"gates_fired"`
	Digest     string `json:"digest"`
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	Run   RunInfo      `json:"run"`
	Steps []trace.Step `json:"steps"`
	Fired []int        `json:"fired"`
	Final map[int]int  `json:"final"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the step log of a recorded run",
		Long: `Show the timestep log of a run recorded with "run --db".

Without --run the recorded runs are listed. With --run every timestep is
shown with its clock, buffer, moves, firing and eviction, followed by the
final placement.

Examples:
  ionshuttle trace --db ./runs.db
  ionshuttle trace --db ./runs.db --run 0192f5c4-...
  ionshuttle trace --db ./runs.db --run 0192f5c4-... --ion 3
  ionshuttle trace --db ./runs.db --run 0192f5c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().IntVar(&opts.Ion, "ion", -1, "only show moves of this carrier")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(cmd, opts.RootOptions)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, out)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = out.Failure(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	steps, err := st.ReadSteps(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}
	fired, err := st.ReadFired(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read firings", err)
	}
	final, err := st.ReadPlacements(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read placements", err)
	}

	result := TraceResult{
		Run:   runInfo(run),
		Steps: filterMoves(steps, opts.Ion),
		Fired: fired,
		Final: final,
	}
	if out.JSON() {
		return out.Success(result)
	}
	writeTraceText(out, result)
	return nil
}

func listRuns(ctx context.Context, st *store.Store, out *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	infos := make([]RunInfo, 0, len(runs))
	for _, r := range runs {
		infos = append(infos, runInfo(r))
	}
	if out.JSON() {
		return out.Success(infos)
	}
	if len(infos) == 0 {
		out.Printf("No runs recorded.\n")
		return nil
	}
	for _, r := range infos {
		out.Printf("%s  %-8s %s  %s  timesteps=%d gates=%d\n", r.ID, r.Status, r.Lattice, r.Program, r.Timesteps, r.GatesFired)
	}
	return nil
}

// filterMoves keeps only the moves of ion; ion < 0 keeps everything.
func filterMoves(steps []trace.Step, ion int) []trace.Step {
	if ion < 0 {
		return steps
	}
	out := make([]trace.Step, len(steps))
	for i, s := range steps {
		moves := []trace.Move{}
		for _, m := range s.Moves {
			if m.Ion == ion {
				moves = append(moves, m)
			}
		}
		s.Moves = moves
		out[i] = s
	}
	return out
}

func runInfo(r store.Run) RunInfo {
	return RunInfo{
		ID:         r.ID,
		Lattice:    fmt.Sprintf("%dx%d chains %dx%d", r.Rows, r.Cols, r.VChain, r.HChain),
		Ions:       r.Ions,
		Capacity:   r.Capacity,
		Seed:       r.Seed,
		Program:    r.Program,
		Status:     r.Status,
		Timesteps:  r.Timesteps,
		Iterations: r.Iterations,
		GatesFired: r.GatesFired,
		Digest:     r.Digest,
	}
}

func writeTraceText(out *OutputFormatter, res TraceResult) {
	r := res.Run
	out.Printf("Run: %s (%s)\n", r.ID, r.Status)
	out.Printf("Lattice: %s, %d carriers, parking capacity %d\n", r.Lattice, r.Ions, r.Capacity)
	out.Printf("Program: %s\n", r.Program)
	out.Printf("\nTimeline:\n")
	for _, s := range res.Steps {
		out.Printf("  [%d] clock=%d buffer=%d%s\n", s.Seq, s.Clock, s.Buffer, formatEvents(s))
		for _, m := range s.Moves {
			out.Printf("       %-8s ion %d: %d -> %d\n", m.Kind, m.Ion, m.From, m.To)
		}
	}
	out.Printf("\nFinal placement:\n")
	ions := make([]int, 0, len(res.Final))
	for ion := range res.Final {
		ions = append(ions, ion)
	}
	slices.Sort(ions)
	for _, ion := range ions {
		out.Printf("  ion %d -> edge %d\n", ion, res.Final[ion])
	}
	out.Printf("\nSummary:\n")
	out.Printf("  Timesteps:   %d\n", r.Timesteps)
	out.Printf("  Iterations:  %d\n", r.Iterations)
	out.Printf("  Gates fired: %d\n", r.GatesFired)
	out.Printf("  Digest:      %s\n", r.Digest)
}

func formatEvents(s trace.Step) string {
	var parts []string
	if f := s.Fired; f != nil {
		parts = append(parts, fmt.Sprintf("fired=%d%v cost=%d", f.Node, f.Operands, f.Cost))
	}
	if s.Evicted >= 0 {
		parts = append(parts, fmt.Sprintf("evicted=%d", s.Evicted))
	}
	if s.Rollbacks > 0 {
		parts = append(parts, fmt.Sprintf("rollbacks=%d", s.Rollbacks))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
