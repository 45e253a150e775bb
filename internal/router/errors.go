package router

import (
	"errors"
	"fmt"
)

// InvariantError reports a state the scheduler should never reach, such as
// a hop between edges that do not touch or an eviction with nothing to
// evict. It is always fatal.
type InvariantError struct {
	// Op names the operation that detected the violation.
	Op string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Op, e.Message)
}

// IsInvariantError returns true if err is (or wraps) an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

func invariantf(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Message: fmt.Sprintf(format, args...)}
}
