package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mewuto/ion-shuttler/internal/trace"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string) Run {
	return Run{ID: id, Rows: 3, Cols: 3, VChain: 1, HChain: 1, Ions: 2, Capacity: 3, Program: "bell.qasm"}
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.WriteRun(context.Background(), testRun("r1")))
	require.NoError(t, s1.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	runs, err := s2.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	for name, want := range map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
		"user_version": "1",
	} {
		got, err := s.pragma(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestWriteRun_InsertThenFinish(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed := int64(7)

	r := testRun("r1")
	r.Seed = &seed
	require.NoError(t, s.WriteRun(ctx, r))

	got, err := s.ReadRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	require.NotNil(t, got.Seed)
	assert.Equal(t, int64(7), *got.Seed)

	r.Status, r.Timesteps, r.Iterations, r.GatesFired, r.Digest = StatusDone, 5, 3, 1, "abc"
	require.NoError(t, s.WriteRun(ctx, r))

	got, err = s.ReadRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, 5, got.Timesteps)
	assert.Equal(t, 3, got.Iterations)
	assert.Equal(t, 1, got.GatesFired)
	assert.Equal(t, "abc", got.Digest)
	assert.Equal(t, "bell.qasm", got.Program)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"b", "c", "a"} {
		require.NoError(t, s.WriteRun(ctx, testRun(id)))
	}
	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.Nil(t, runs[0].Seed)
}

func TestSteps_RoundTripThroughSink(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, testRun("r1")))

	steps := []trace.Step{
		{Seq: 1, Clock: 1, Moves: []trace.Move{{Ion: 0, From: 9, To: 13, Kind: "stride"}}, Evicted: -1, Parking: []int{}},
		{Seq: 2, Clock: 4, Buffer: 3, Moves: []trace.Move{}, Fired: &trace.Firing{Node: 0, Operands: []int{0, 1}, Cost: 3}, Evicted: 1, Parking: []int{0}},
	}
	w := s.StepWriter(ctx, "r1")
	for _, st := range steps {
		require.NoError(t, w.Record(st))
	}
	// Duplicate seq is ignored.
	require.NoError(t, w.Record(steps[0]))

	got, err := s.ReadSteps(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, steps, got)

	fired, err := s.ReadFired(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, fired)

	want, err := trace.Digest(steps)
	require.NoError(t, err)
	have, err := trace.Digest(got)
	require.NoError(t, err)
	assert.Equal(t, want, have)
}

func TestWriteStep_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteStep(context.Background(), "nope", trace.Step{Seq: 1, Evicted: -1})
	assert.Error(t, err)
}

func TestReadSteps_Empty(t *testing.T) {
	s := createTestStore(t)
	got, err := s.ReadSteps(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestPlacements_Replace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, testRun("r1")))

	require.NoError(t, s.WritePlacements(ctx, "r1", map[int]int{0: 14, 1: 9}))
	require.NoError(t, s.WritePlacements(ctx, "r1", map[int]int{0: 14, 1: 14}))

	got, err := s.ReadPlacements(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 14, 1: 14}, got)
}
