package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mewuto/ion-shuttler/internal/store"
	"github.com/mewuto/ion-shuttler/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Steps    int    `json:"steps"`
	Fired    int    `json:"fired"`
	Recorded string `json:"recorded"`
	Digest   string `json:"digest"`
	Match    bool   `json:"match"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs     []ReplayRunResult `json:"runs"`
	Total    int               `json:"total"`
	AllMatch bool              `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-read run logs and verify their digests",
		Long: `Re-read the step log of each finished run, recompute its digest
and compare it with the digest recorded when the run finished.

Runs that never finished are reported but not checked.

Exit codes:
  0 - Every finished run matches
  1 - At least one digest differs
  2 - Command error (database not found, unknown run)

Examples:
  ionshuttle replay --db ./runs.db
  ionshuttle replay --db ./runs.db --run 0192f5c4-...
  ionshuttle replay --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(cmd, opts.RootOptions)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		r, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, "unknown run", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{r}
	} else if runs, err = st.ListRuns(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	result := ReplayResult{
		Runs:     make([]ReplayRunResult, 0, len(runs)),
		Total:    len(runs),
		AllMatch: true,
	}
	for _, r := range runs {
		rr, err := replayRun(ctx, st, r)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", r.ID), err)
		}
		out.VerboseLog("replayed %s: %d steps", r.ID, rr.Steps)
		if !rr.Match {
			result.AllMatch = false
		}
		result.Runs = append(result.Runs, rr)
	}

	if !result.AllMatch {
		msg := "recorded digest differs from the step log"
		if out.JSON() {
			if err := out.Failure(ErrCodeDigestMismatch, msg, result); err != nil {
				return err
			}
		} else {
			writeReplayText(out, result)
		}
		return NewExitError(ExitFailure, msg)
	}
	if out.JSON() {
		return out.Success(result)
	}
	writeReplayText(out, result)
	return nil
}

// replayRun recomputes the digest of a run from its persisted steps.
// Unfinished runs count as matching; there is nothing recorded to compare.
func replayRun(ctx context.Context, st *store.Store, r store.Run) (ReplayRunResult, error) {
	steps, err := st.ReadSteps(ctx, r.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}
	fired, err := st.ReadFired(ctx, r.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}
	digest, err := trace.Digest(steps)
	if err != nil {
		return ReplayRunResult{}, err
	}
	return ReplayRunResult{
		RunID:    r.ID,
		Status:   r.Status,
		Steps:    len(steps),
		Fired:    len(fired),
		Recorded: r.Digest,
		Digest:   digest,
		Match:    r.Status != store.StatusDone || digest == r.Digest,
	}, nil
}

func writeReplayText(out *OutputFormatter, res ReplayResult) {
	if res.Total == 0 {
		out.Printf("No runs recorded.\n")
		return
	}
	for _, r := range res.Runs {
		switch {
		case r.Status != store.StatusDone:
			out.Printf("skip %s (%s, %d steps)\n", r.RunID, r.Status, r.Steps)
		case r.Match:
			out.Printf("ok   %s (%d steps, %d fired)\n", r.RunID, r.Steps, r.Fired)
		default:
			out.Printf("FAIL %s\n", r.RunID)
			out.Printf("  recorded: %s\n", r.Recorded)
			out.Printf("  replayed: %s\n", r.Digest)
		}
	}
	out.Printf("\n%d run(s) replayed\n", res.Total)
}
