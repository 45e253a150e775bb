package harness

import (
	"github.com/mewuto/ion-shuttler/internal/engine"
	"github.com/mewuto/ion-shuttler/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors contains one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Run is the engine summary.
	Run *engine.Result `json:"-"`

	// Steps are the timestep records as read back from the run log.
	Steps []trace.Step `json:"steps"`

	// Final maps each carrier to its final edge id.
	Final map[int]int `json:"final"`

	// Violations lists principle violations keyed by principle name.
	Violations map[string][]string `json:"violations,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Errors:     []string{},
		Final:      make(map[int]int),
		Violations: make(map[string][]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
