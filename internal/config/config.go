// Package config loads run configurations from YAML, JSON or CUE files.
//
// Every format is unified with the embedded CUE schema, which fills in
// defaults and enforces bounds, before it is decoded into a Config.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/mewuto/ion-shuttler/internal/circuit"
	"github.com/mewuto/ion-shuttler/internal/lattice"
)

//go:embed schema.cue
var schemaCUE string

// Egress rollback modes.
const (
	EgressHop      = "hop"
	EgressSnapshot = "snapshot"
)

// Config is a validated run configuration.
type Config struct {
	Arch           []int  `json:"arch"`
	Ions           int    `json:"ions"`
	Capacity       int    `json:"capacity"`
	Seed           *int64 `json:"seed,omitempty"`
	Program        string `json:"program,omitempty"`
	QFT            int    `json:"qft,omitempty"`
	MaxTimesteps   int    `json:"max_timesteps"`
	EgressRollback string `json:"egress_rollback"`

	// Dir is the directory relative program paths resolve against.
	Dir string `json:"-"`
}

// fileConfig is the strict YAML/JSON form. Pointers distinguish absent
// fields, which the schema defaults, from explicit zeros, which it rejects.
type fileConfig struct {
	Arch           []int   `yaml:"arch"`
	Ions           *int    `yaml:"ions"`
	Capacity       *int    `yaml:"capacity"`
	Seed           *int64  `yaml:"seed"`
	Program        *string `yaml:"program"`
	QFT            *int    `yaml:"qft"`
	MaxTimesteps   *int    `yaml:"max_timesteps"`
	EgressRollback *string `yaml:"egress_rollback"`
}

func (f fileConfig) fields() map[string]any {
	m := map[string]any{}
	if f.Arch != nil {
		m["arch"] = f.Arch
	}
	if f.Ions != nil {
		m["ions"] = *f.Ions
	}
	if f.Capacity != nil {
		m["capacity"] = *f.Capacity
	}
	if f.Seed != nil {
		m["seed"] = *f.Seed
	}
	if f.Program != nil {
		m["program"] = *f.Program
	}
	if f.QFT != nil {
		m["qft"] = *f.QFT
	}
	if f.MaxTimesteps != nil {
		m["max_timesteps"] = *f.MaxTimesteps
	}
	if f.EgressRollback != nil {
		m["egress_rollback"] = *f.EgressRollback
	}
	return m
}

// Load reads the configuration at path. The format follows the extension:
// .yaml, .yml, .json or .cue.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	cfg, err := Parse(data, format, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration in the given format ("yaml", "yml",
// "json" or "cue"). dir anchors relative program paths.
func Parse(data []byte, format, dir string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	var v cue.Value
	switch format {
	case "yaml", "yml", "json":
		var f fileConfig
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, invalid("parse %s: %v", format, err)
		}
		v = ctx.Encode(f.fields())
	case "cue":
		v = ctx.CompileBytes(data, cue.Filename("config.cue"))
	default:
		return nil, invalid("unsupported config format %q", format)
	}
	if err := v.Err(); err != nil {
		return nil, invalid("%v", err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, invalid("%v", err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, invalid("decode: %v", err)
	}
	cfg.Dir = dir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the rules the schema cannot express and that the lattice
// has room for every carrier.
func (c *Config) Validate() error {
	if len(c.Arch) != 4 {
		return invalid("arch must have 4 entries, got %d", len(c.Arch))
	}
	if (c.Program == "") == (c.QFT == 0) {
		return invalid("exactly one of program and qft must be set")
	}
	if c.EgressRollback != EgressHop && c.EgressRollback != EgressSnapshot {
		return invalid("egress_rollback must be %q or %q", EgressHop, EgressSnapshot)
	}
	topo, err := lattice.Build(c.Params())
	if err != nil {
		return err
	}
	if traps := len(topo.TrapEdges()); c.Ions > traps {
		return &lattice.ConfigError{
			Code:    lattice.ErrCodeTooManyIons,
			Message: fmt.Sprintf("%d ions do not fit on %d trap edges", c.Ions, traps),
			Details: map[string]string{"ions": fmt.Sprint(c.Ions), "traps": fmt.Sprint(traps)},
		}
	}
	return nil
}

// Params returns the lattice parameters.
func (c *Config) Params() lattice.Params {
	return lattice.Params{Rows: c.Arch[0], Cols: c.Arch[1], VChain: c.Arch[2], HChain: c.Arch[3]}
}

// ProgramPath returns the program file resolved against Dir, or "" for a
// generated program.
func (c *Config) ProgramPath() string {
	if c.Program == "" || filepath.IsAbs(c.Program) {
		return c.Program
	}
	return filepath.Join(c.Dir, c.Program)
}

// ProgramName describes the program source for logs and the run log.
func (c *Config) ProgramName() string {
	if c.QFT > 0 {
		return fmt.Sprintf("qft(%d)", c.QFT)
	}
	return c.Program
}

// LoadProgram builds the dependency graph of the configured program.
func (c *Config) LoadProgram() (*circuit.DAG, error) {
	if c.QFT > 0 {
		return circuit.QFT(c.QFT), nil
	}
	return circuit.LoadQASM(c.ProgramPath())
}

// Setup builds the lattice and places the carriers.
func (c *Config) Setup() (*lattice.Topology, *lattice.Occupancy, error) {
	topo, err := lattice.Build(c.Params())
	if err != nil {
		return nil, nil, err
	}
	occ := lattice.NewOccupancy(topo.NumEdges())
	if _, err := lattice.Place(topo, occ, c.Ions, c.Seed); err != nil {
		return nil, nil, err
	}
	return topo, occ, nil
}

func invalid(format string, args ...any) *lattice.ConfigError {
	return &lattice.ConfigError{Code: lattice.ErrCodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}
