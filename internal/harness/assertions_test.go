package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mewuto/ion-shuttler/internal/engine"
	"github.com/mewuto/ion-shuttler/internal/trace"
)

func TestCheckAssertion(t *testing.T) {
	r := NewResult()
	r.Run = &engine.Result{Timesteps: 6, GatesFired: 2}
	r.Steps = []trace.Step{
		{Seq: 1, Evicted: 3, Fired: &trace.Firing{Node: 1}},
		{Seq: 2, Evicted: -1},
		{Seq: 3, Evicted: -1, Fired: &trace.Firing{Node: 0}},
	}
	r.Final = map[int]int{0: 14, 1: 14, 3: 11}
	r.Violations[AssertConserved] = []string{"step 2: 2 carriers on the lattice, want 3"}

	tests := []struct {
		name    string
		a       Assertion
		wantErr string
	}{
		{"timesteps", Assertion{Type: AssertTimesteps, Value: intp(6)}, ""},
		{"timesteps mismatch", Assertion{Type: AssertTimesteps, Value: intp(5)}, "expected 5 timesteps, got 6"},
		{"iterations", Assertion{Type: AssertIterations, Value: intp(3)}, ""},
		{"gates", Assertion{Type: AssertGatesFired, Value: intp(1)}, "expected 1 gates fired, got 2"},
		{"evictions", Assertion{Type: AssertEvictions, Value: intp(1)}, ""},
		{"parking subset", Assertion{Type: AssertFinalParking, Ions: []int{1}}, ""},
		{"parking missing", Assertion{Type: AssertFinalParking, Ions: []int{0, 3, 9}}, "carriers [3 9] are not on the parking edge"},
		{"edge", Assertion{Type: AssertFinalEdge, Ion: intp(3), Edge: intp(11)}, ""},
		{"fired order", Assertion{Type: AssertFiredOrder, Nodes: []int{1, 0}}, ""},
		{"fired order mismatch", Assertion{Type: AssertFiredOrder, Nodes: []int{0, 1}}, "expected fired order [0 1], got [1 0]"},
		{"principle holds", Assertion{Type: AssertExclusiveTraps}, ""},
		{"principle violated", Assertion{Type: AssertConserved}, "1 violation(s): step 2: 2 carriers"},
		{"unknown", Assertion{Type: "nope"}, "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAssertion(r, tt.a, 14)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
