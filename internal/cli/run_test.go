package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mewuto/ion-shuttler/internal/engine"
	"github.com/mewuto/ion-shuttler/internal/store"
	"github.com/mewuto/ion-shuttler/internal/testutil"
)

func TestRunCommand_Text(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "qft2.yaml", qft2Config)
	cmd, buf := newCmd()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      testutil.NewSequentialRunIDs("run"),
	}

	require.NoError(t, runSimulation(opts, path, cmd))

	out := buf.String()
	assert.Contains(t, out, "run run-1\n")
	assert.Contains(t, out, "  program:     qft(2)\n")
	assert.Contains(t, out, "  lattice:     3x3 chains 1x1, 2 carriers\n")
	assert.Contains(t, out, "  gates fired: 3\n")
	assert.Contains(t, out, "    ion 0 -> edge ")
	assert.Contains(t, out, "    ion 1 -> edge ")
	assert.NotContains(t, out, "metrics:")
}

func TestRunCommand_JSONWithDatabase(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "qft2.yaml", qft2Config)
	dbPath := filepath.Join(dir, "runs.db")
	cmd, buf := newCmd()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    dbPath,
		RunIDs:      engine.NewFixedGenerator("run-json"),
	}

	require.NoError(t, runSimulation(opts, path, cmd))

	var summary RunSummary
	status, cliErr := decodeData(t, buf.Bytes(), &summary)
	assert.Equal(t, "ok", status)
	assert.Nil(t, cliErr)
	assert.Equal(t, "run-json", summary.RunID)
	assert.Equal(t, "qft(2)", summary.Program)
	assert.Equal(t, 2, summary.Ions)
	assert.Equal(t, 3, summary.GatesFired)
	assert.Len(t, summary.Final, 2)
	assert.Len(t, summary.Digest, 64)
	assert.Empty(t, summary.Metrics)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	run, err := st.ReadRun(ctx, "run-json")
	require.NoError(t, err)
	assert.Equal(t, store.StatusDone, run.Status)
	assert.Equal(t, summary.Digest, run.Digest)
	assert.Equal(t, summary.Timesteps, run.Timesteps)
	assert.Equal(t, 3, run.GatesFired)

	steps, err := st.ReadSteps(ctx, "run-json")
	require.NoError(t, err)
	assert.Len(t, steps, summary.Iterations)

	final, err := st.ReadPlacements(ctx, "run-json")
	require.NoError(t, err)
	assert.Equal(t, summary.Final, final)
}

func TestRunCommand_Metrics(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "qft2.yaml", qft2Config)
	cmd, buf := newCmd()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Metrics:     true,
		RunIDs:      engine.NewFixedGenerator("run-metrics"),
	}

	require.NoError(t, runSimulation(opts, path, cmd))

	out := buf.String()
	assert.Contains(t, out, "  metrics:\n")
	assert.Contains(t, out, `ionshuttle_gates_fired_total{arity="1"} 2`)
	assert.Contains(t, out, `ionshuttle_gates_fired_total{arity="2"} 1`)
}

func TestRunCommand_QASMProgram(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "bell.qasm", bellQASM)
	path := testutil.WriteFile(t, dir, "bell.yaml", "arch: [3, 3, 1, 1]\nions: 2\nprogram: bell.qasm\n")
	cmd, buf := newCmd()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		RunIDs:      engine.NewFixedGenerator("run-bell"),
	}

	require.NoError(t, runSimulation(opts, path, cmd))

	var summary RunSummary
	decodeData(t, buf.Bytes(), &summary)
	assert.Equal(t, "bell.qasm", summary.Program)
	// h, cx and one measure per qubit
	assert.Equal(t, 4, summary.GatesFired)
}

func TestRunCommand_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "qft.yaml", "arch: [3, 3, 1, 1]\nions: 4\nqft: 4\nseed: 7\n")

	digest := func() string {
		cmd, buf := newCmd()
		opts := &RunOptions{
			RootOptions: &RootOptions{Format: "json"},
			RunIDs:      engine.NewFixedGenerator("run-det"),
		}
		require.NoError(t, runSimulation(opts, path, cmd))
		var summary RunSummary
		decodeData(t, buf.Bytes(), &summary)
		return summary.Digest
	}

	first := digest()
	assert.Len(t, first, 64)
	assert.Equal(t, first, digest())
}

func TestRunCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
		code int
	}{
		{"short arch", "arch: [3, 3, 1]\nions: 2\nqft: 2\n", ExitFailure},
		{"too many ions", "arch: [3, 3, 1, 1]\nions: 20\nqft: 2\n", ExitFailure},
		{"missing program", "arch: [3, 3, 1, 1]\nions: 2\nprogram: nowhere.qasm\n", ExitFailure},
		{"program wider than placement", "arch: [3, 3, 1, 1]\nions: 2\nqft: 3\n", ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, "bad.yaml", tt.body)
			cmd, _ := newCmd()
			err := runSimulation(&RunOptions{RootOptions: &RootOptions{Format: "text"}}, path, cmd)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}

	t.Run("missing config", func(t *testing.T) {
		cmd, _ := newCmd()
		err := runSimulation(&RunOptions{RootOptions: &RootOptions{Format: "text"}}, filepath.Join(dir, "absent.yaml"), cmd)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}
