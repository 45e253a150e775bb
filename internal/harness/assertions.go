package harness

import (
	"fmt"
	"slices"
	"strings"
)

// checkAssertion evaluates one assertion against a finished run. parking
// is the parking edge id.
func checkAssertion(r *Result, a Assertion, parking int) error {
	switch a.Type {
	case AssertTimesteps:
		return expectCount("timesteps", *a.Value, r.Run.Timesteps)
	case AssertIterations:
		return expectCount("iterations", *a.Value, len(r.Steps))
	case AssertGatesFired:
		return expectCount("gates fired", *a.Value, r.Run.GatesFired)
	case AssertEvictions:
		n := 0
		for _, s := range r.Steps {
			if s.Evicted >= 0 {
				n++
			}
		}
		return expectCount("evictions", *a.Value, n)
	case AssertFinalParking:
		var missing []int
		for _, ion := range a.Ions {
			if edge, ok := r.Final[ion]; !ok || edge != parking {
				missing = append(missing, ion)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("carriers %v are not on the parking edge", missing)
		}
	case AssertFinalEdge:
		edge, ok := r.Final[*a.Ion]
		if !ok {
			return fmt.Errorf("carrier %d has no final placement", *a.Ion)
		}
		if edge != *a.Edge {
			return fmt.Errorf("carrier %d: expected edge %d, got %d", *a.Ion, *a.Edge, edge)
		}
	case AssertFiredOrder:
		var fired []int
		for _, s := range r.Steps {
			if s.Fired != nil {
				fired = append(fired, s.Fired.Node)
			}
		}
		if !slices.Equal(fired, a.Nodes) {
			return fmt.Errorf("expected fired order %v, got %v", a.Nodes, fired)
		}
	case AssertExclusiveTraps, AssertConserved:
		if v := r.Violations[a.Type]; len(v) > 0 {
			return fmt.Errorf("%d violation(s): %s", len(v), strings.Join(v, "; "))
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func expectCount(what string, want, got int) error {
	if want != got {
		return fmt.Errorf("expected %d %s, got %d", want, what, got)
	}
	return nil
}
