package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mewuto/ion-shuttler/internal/trace"
)

func intp(v int) *int { return &v }

func pairScenario() *Scenario {
	return &Scenario{
		Name:        "pair",
		Description: "pair meets in parking",
		Config:      map[string]any{"arch": []any{3, 3, 1, 1}, "ions": 2},
		Placement:   map[int]int{0: 9, 1: 12},
		QASM:        "OPENQASM 2.0;\nqreg q[2];\ncx q[0],q[1];\n",
		Assertions:  []Assertion{{Type: AssertConserved}},
	}
}

func TestRun_PersistsSteps(t *testing.T) {
	result, err := Run(pairScenario())
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, DefaultRunID, result.Run.RunID)
	assert.Equal(t, result.Run.Steps, result.Steps)
	assert.Equal(t, map[int]int{0: 14, 1: 14}, result.Final)

	digest, err := trace.Digest(result.Steps)
	require.NoError(t, err)
	assert.Equal(t, result.Run.Digest, digest)
}

func TestRun_FailingAssertions(t *testing.T) {
	s := pairScenario()
	s.RunID = "failing"
	s.Assertions = []Assertion{
		{Type: AssertTimesteps, Value: intp(4)},
		{Type: AssertGatesFired, Value: intp(1)},
		{Type: AssertFinalEdge, Ion: intp(0), Edge: intp(13)},
		{Type: AssertFinalEdge, Ion: intp(7), Edge: intp(0)},
		{Type: AssertFiredOrder, Nodes: []int{1}},
		{Type: AssertEvictions, Value: intp(0)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "failing", result.Run.RunID)
	assert.Equal(t, []string{
		"assertions[0] (timesteps): expected 4 timesteps, got 5",
		"assertions[2] (final_edge): carrier 0: expected edge 13, got 14",
		"assertions[3] (final_edge): carrier 7 has no final placement",
		"assertions[4] (fired_order): expected fired order [1], got [0]",
	}, result.Errors)
}

func TestRun_ConfiguredPlacement(t *testing.T) {
	s := &Scenario{
		Name:        "qft_first_n",
		Description: "first-N placement",
		Config:      map[string]any{"arch": []any{3, 3, 1, 1}, "ions": 1, "qft": 1},
		Assertions: []Assertion{
			{Type: AssertGatesFired, Value: intp(1)},
			{Type: AssertFinalParking, Ions: []int{0}},
			{Type: AssertConserved},
			{Type: AssertExclusiveTraps},
		},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Final, 1)
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Scenario)
	}{
		{"placement count", func(s *Scenario) { s.Placement = map[int]int{0: 9} }},
		{"placement out of range", func(s *Scenario) { s.Placement = map[int]int{0: 9, 1: 99} }},
		{"bad config", func(s *Scenario) { s.Config["ions"] = 0 }},
		{"bad program", func(s *Scenario) { s.QASM = "OPENQASM 2.0;\nqreg q[2];\ncx q[0],q[5];\n" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := pairScenario()
			tt.mut(s)
			_, err := Run(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "scenario pair")
		})
	}
}
