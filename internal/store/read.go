package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mewuto/ion-shuttler/internal/trace"
)

// ErrRunNotFound is returned by ReadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, rows, cols, vchain, hchain, ions, capacity, seed, program, status, timesteps, iterations, gates_fired, digest`

// ReadRun returns the run with the given id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns every run ordered by id. UUIDv7 ids sort by creation
// time.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns the steps of a run in seq order. An unknown run yields
// an empty slice.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]trace.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record FROM steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []trace.Step{}
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		var step trace.Step
		if err := json.Unmarshal([]byte(record), &step); err != nil {
			return nil, fmt.Errorf("decode step: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// ReadFired returns the node ids fired during a run, in firing order.
func (s *Store) ReadFired(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fired_node FROM steps
		WHERE run_id = ? AND fired_node IS NOT NULL
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query fired: %w", err)
	}
	defer rows.Close()

	fired := []int{}
	for rows.Next() {
		var node int
		if err := rows.Scan(&node); err != nil {
			return nil, fmt.Errorf("scan fired: %w", err)
		}
		fired = append(fired, node)
	}
	return fired, rows.Err()
}

// ReadPlacements returns the final placement of a run.
func (s *Store) ReadPlacements(ctx context.Context, runID string) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ion, edge FROM placements
		WHERE run_id = ?
		ORDER BY ion ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	out := map[int]int{}
	for rows.Next() {
		var ion, edge int
		if err := rows.Scan(&ion, &edge); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		out[ion] = edge
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var seed sql.NullInt64
	err := row.Scan(&r.ID, &r.Rows, &r.Cols, &r.VChain, &r.HChain, &r.Ions, &r.Capacity,
		&seed, &r.Program, &r.Status, &r.Timesteps, &r.Iterations, &r.GatesFired, &r.Digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if seed.Valid {
		v := seed.Int64
		r.Seed = &v
	}
	return r, nil
}
