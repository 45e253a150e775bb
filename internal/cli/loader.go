package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mewuto/ion-shuttler/internal/circuit"
	"github.com/mewuto/ion-shuttler/internal/config"
	"github.com/mewuto/ion-shuttler/internal/lattice"
	"github.com/mewuto/ion-shuttler/internal/store"
)

// Error codes reported in CLI responses.
const (
	ErrCodeNotFound       = "E_NOT_FOUND"
	ErrCodeInvalidConfig  = "E_INVALID_CONFIG"
	ErrCodeInvalidProgram = "E_INVALID_PROGRAM"
	ErrCodeRunFailed      = "E_RUN_FAILED"
	ErrCodeDigestMismatch = "E_DIGEST_MISMATCH"
	ErrCodeTestFailed     = "E_TEST_FAILED"
)

// Setup is a loaded configuration with its lattice, placement and program.
type Setup struct {
	Config *config.Config
	Topo   *lattice.Topology
	Occ    *lattice.Occupancy
	Graph  *circuit.DAG
}

// LoadError is a configuration or program that could not be loaded.
type LoadError struct {
	Code string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadSetup reads the configuration at path, builds and populates the
// lattice, and loads the program.
func LoadSetup(path string) (*Setup, error) {
	cfg, err := config.Load(path)
	if err != nil {
		code := ErrCodeInvalidConfig
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return nil, &LoadError{Code: code, Path: path, Err: err}
	}
	topo, occ, err := cfg.Setup()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidConfig, Path: path, Err: err}
	}
	graph, err := cfg.LoadProgram()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidProgram, Path: cfg.ProgramPath(), Err: err}
	}
	if n := graph.NumQubits(); n > cfg.Ions {
		return nil, &LoadError{
			Code: ErrCodeInvalidProgram,
			Path: cfg.ProgramPath(),
			Err:  fmt.Errorf("program uses %d carriers but only %d are placed", n, cfg.Ions),
		}
	}
	return &Setup{Config: cfg, Topo: topo, Occ: occ, Graph: graph}, nil
}

// loadExit converts a LoadSetup error into an exit error.
func loadExit(err error) error {
	var le *LoadError
	if errors.As(err, &le) && le.Code == ErrCodeNotFound {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return WrapExitError(ExitFailure, "failed to load config", err)
}

// openExisting opens a run log that must already exist. store.Open alone
// would create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
