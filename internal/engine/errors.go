package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while setting up or driving a
// run.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, if one was assigned.
	RunID string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnplacedOperand indicates the program uses a carrier that is
	// not on the lattice.
	ErrCodeUnplacedOperand RuntimeErrorCode = "UNPLACED_OPERAND"

	// ErrCodeAlreadyRan indicates Run was called twice on one engine.
	ErrCodeAlreadyRan RuntimeErrorCode = "ALREADY_RAN"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnplacedOperandError returns true if err is (or wraps) an
// ErrCodeUnplacedOperand RuntimeError.
func IsUnplacedOperandError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnplacedOperand
	}
	return false
}

func newUnplacedError(ion int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnplacedOperand,
		Message: fmt.Sprintf("carrier %d is used by the program but not placed", ion),
		Details: map[string]string{"ion": fmt.Sprintf("%d", ion)},
	}
}
