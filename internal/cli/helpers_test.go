package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mewuto/ion-shuttler/internal/engine"
	"github.com/mewuto/ion-shuttler/internal/testutil"
)

const qft2Config = `
arch: [3, 3, 1, 1]
ions: 2
qft: 2
`

const bellQASM = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
creg c[2];
h q[0];
cx q[0],q[1];
measure q -> c;
`

// newCmd returns a bare command whose output lands in the returned buffer.
func newCmd() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, buf
}

// decodeData unmarshals a JSON response and its data field into v.
func decodeData(t *testing.T, raw []byte, v any) (string, *CLIError) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp.Status, resp.Error
}

// simulate runs the config body against dbPath under the given run id.
func simulate(t *testing.T, dir, dbPath, body, runID string) {
	t.Helper()
	path := testutil.WriteFile(t, dir, "run.yaml", body)
	cmd, _ := newCmd()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		RunIDs:      engine.NewFixedGenerator(runID),
	}
	require.NoError(t, runSimulation(opts, path, cmd))
}
