package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a reproducible simulation run and what must hold after
// it. The config block is a run configuration in the same shape as a
// config file; the program is either inline QASM or the config's qft field.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Config is an inline run configuration. A "program" key is not
	// allowed when QASM is set.
	Config map[string]any `yaml:"config"`

	// QASM is an inline OpenQASM 2.0 program.
	QASM string `yaml:"qasm,omitempty"`

	// Placement pins carriers to edge ids instead of the configured
	// placement. Keys must cover carriers 0..ions-1.
	Placement map[int]int `yaml:"placement,omitempty"`

	// Assertions are checked against the finished run.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id. Defaults to "scenario-run".
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates a finished run.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type"`

	// Value is the expected count for timesteps, iterations, gates_fired
	// and evictions.
	Value *int `yaml:"value,omitempty"`

	// Ions lists carriers that must end on the parking edge.
	Ions []int `yaml:"ions,omitempty"`

	// Ion and Edge pin one carrier's final edge.
	Ion  *int `yaml:"ion,omitempty"`
	Edge *int `yaml:"edge,omitempty"`

	// Nodes is the expected order of fired operation nodes.
	Nodes []int `yaml:"nodes,omitempty"`
}

// Assertion type constants.
const (
	AssertTimesteps      = "timesteps"
	AssertIterations     = "iterations"
	AssertGatesFired     = "gates_fired"
	AssertEvictions      = "evictions"
	AssertFinalParking   = "final_parking"
	AssertFinalEdge      = "final_edge"
	AssertFiredOrder     = "fired_order"
	AssertExclusiveTraps = "exclusive_traps"
	AssertConserved      = "conserved"
)

var countAssertions = []string{AssertTimesteps, AssertIterations, AssertGatesFired, AssertEvictions}

// DefaultRunID is used when a scenario does not set run_id.
const DefaultRunID = "scenario-run"

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so that typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Config) == 0 {
		return fmt.Errorf("config is required")
	}
	if _, ok := s.Config["program"]; ok && s.QASM != "" {
		return fmt.Errorf("config.program and qasm are mutually exclusive")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for ion, edge := range s.Placement {
		if ion < 0 || edge < 0 {
			return fmt.Errorf("placement: ion %d on edge %d must be non-negative", ion, edge)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch {
	case a.Type == "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case slices.Contains(countAssertions, a.Type):
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: %s requires value", index, a.Type)
		}
	case a.Type == AssertFinalParking:
		if len(a.Ions) == 0 {
			return fmt.Errorf("assertions[%d]: final_parking requires ions", index)
		}
	case a.Type == AssertFinalEdge:
		if a.Ion == nil || a.Edge == nil {
			return fmt.Errorf("assertions[%d]: final_edge requires ion and edge", index)
		}
	case a.Type == AssertFiredOrder:
		if a.Nodes == nil {
			return fmt.Errorf("assertions[%d]: fired_order requires nodes", index)
		}
	case a.Type == AssertExclusiveTraps, a.Type == AssertConserved:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
