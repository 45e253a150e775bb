package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results for one config file.
type ValidationResult struct {
	Path    string `json:"path"`
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Lattice string `json:"lattice,omitempty"`
	Traps   int    `json:"traps,omitempty"`
	Gates   int    `json:"gates,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>...",
		Short: "Validate run configurations without simulating",
		Long: `Validate run configurations without simulating.

Each file is checked against the config schema, its lattice is built and
populated, and its program is parsed.

Exit codes:
  0 - All configs are valid
  1 - One or more configs are invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	results := make([]ValidationResult, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		r := validateOne(path)
		out.VerboseLog("validated %s: valid=%t", path, r.Valid)
		if !r.Valid {
			invalid++
		}
		results = append(results, r)
	}

	if invalid > 0 {
		msg := fmt.Sprintf("%d of %d config(s) invalid", invalid, len(paths))
		if out.JSON() {
			if err := out.Failure(ErrCodeInvalidConfig, msg, results); err != nil {
				return err
			}
		} else {
			writeValidateText(out, results)
		}
		return NewExitError(ExitFailure, msg)
	}

	if out.JSON() {
		return out.Success(results)
	}
	writeValidateText(out, results)
	return nil
}

func validateOne(path string) ValidationResult {
	setup, err := LoadSetup(path)
	if err != nil {
		r := ValidationResult{Path: path, Error: err.Error()}
		var le *LoadError
		if errors.As(err, &le) {
			r.Code = le.Code
			r.Error = le.Err.Error()
		}
		return r
	}
	return ValidationResult{
		Path:    path,
		Valid:   true,
		Lattice: setup.Topo.Params.String(),
		Traps:   len(setup.Topo.TrapEdges()),
		Gates:   setup.Graph.Len(),
	}
}

func writeValidateText(out *OutputFormatter, results []ValidationResult) {
	for _, r := range results {
		if r.Valid {
			out.Printf("ok   %s (%s, %d trap edges, %d operations)\n", r.Path, r.Lattice, r.Traps, r.Gates)
			continue
		}
		out.Printf("FAIL %s\n", r.Path)
		out.Printf("  [%s] %s\n", r.Code, r.Error)
	}
}
