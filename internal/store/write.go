package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mewuto/ion-shuttler/internal/trace"
)

// Run status values.
const (
	StatusRunning = "running"
	StatusDone    = "done"
)

// Run is one row of the runs table.
type Run struct {
	ID                         string
	Rows, Cols, VChain, HChain int
	Ions                       int
	Capacity                   int
	// Seed is nil for first-N placement.
	Seed       *int64
	Program    string
	Status     string
	Timesteps  int
	Iterations int
	GatesFired int
	Digest     string
}

// WriteRun inserts r, or replaces the mutable columns of an existing row
// with the same id. An empty Status is stored as StatusRunning.
func (s *Store) WriteRun(ctx context.Context, r Run) error {
	status := r.Status
	if status == "" {
		status = StatusRunning
	}
	var seed sql.NullInt64
	if r.Seed != nil {
		seed = sql.NullInt64{Int64: *r.Seed, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, rows, cols, vchain, hchain, ions, capacity, seed, program, status, timesteps, iterations, gates_fired, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			timesteps = excluded.timesteps,
			iterations = excluded.iterations,
			gates_fired = excluded.gates_fired,
			digest = excluded.digest
	`,
		r.ID, r.Rows, r.Cols, r.VChain, r.HChain, r.Ions, r.Capacity, seed, r.Program,
		status, r.Timesteps, r.Iterations, r.GatesFired, r.Digest,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.ID, err)
	}
	return nil
}

// WriteStep appends one timestep of a run. Writing the same (run, seq)
// twice is a no-op.
func (s *Store) WriteStep(ctx context.Context, runID string, step trace.Step) error {
	record, err := step.Canonical()
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}
	var fired, evicted sql.NullInt64
	if step.Fired != nil {
		fired = sql.NullInt64{Int64: int64(step.Fired.Node), Valid: true}
	}
	if step.Evicted >= 0 {
		evicted = sql.NullInt64{Int64: int64(step.Evicted), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO steps (run_id, seq, clock, buffer, fired_node, evicted, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, runID, step.Seq, step.Clock, step.Buffer, fired, evicted, string(record))
	if err != nil {
		return fmt.Errorf("write step %d of run %s: %w", step.Seq, runID, err)
	}
	return nil
}

// WritePlacements stores the final carrier-to-edge placement of a run,
// replacing any earlier one.
func (s *Store) WritePlacements(ctx context.Context, runID string, placement map[int]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write placements: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM placements WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("write placements: %w", err)
	}
	for ion, edge := range placement {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO placements (run_id, ion, edge) VALUES (?, ?, ?)`,
			runID, ion, edge); err != nil {
			return fmt.Errorf("write placement of ion %d: %w", ion, err)
		}
	}
	return tx.Commit()
}

// StepWriter appends steps of one run as the engine produces them.
type StepWriter struct {
	store *Store
	ctx   context.Context
	runID string
}

// StepWriter returns a sink bound to runID. The run row must exist.
func (s *Store) StepWriter(ctx context.Context, runID string) *StepWriter {
	return &StepWriter{store: s, ctx: ctx, runID: runID}
}

// Record writes step.
func (w *StepWriter) Record(step trace.Step) error {
	return w.store.WriteStep(w.ctx, w.runID, step)
}
