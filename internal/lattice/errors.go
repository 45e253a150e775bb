package lattice

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid lattice configuration.
//
// Configuration errors are fatal and are always reported before a
// simulation starts:
//   - Invalid parameters: rows/cols too small, chain sizes < 1
//   - Too many ions: carrier count exceeds the available trap edges
//   - Invalid site: a site that does not belong to any chain
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeInvalidParams indicates lattice parameters that admit no chain segment.
	ErrCodeInvalidParams ConfigErrorCode = "INVALID_PARAMS"

	// ErrCodeTooManyIons indicates more carriers than trap edges.
	ErrCodeTooManyIons ConfigErrorCode = "TOO_MANY_IONS"

	// ErrCodeInvalidSite indicates a site that is not part of the lattice.
	ErrCodeInvalidSite ConfigErrorCode = "INVALID_SITE"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func newConfigError(code ConfigErrorCode, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Message: fmt.Sprintf(format, args...)}
}
