package distance

import (
	"errors"
	"fmt"

	"github.com/mewuto/ion-shuttler/internal/lattice"
)

// ErrNoPath is the sentinel matched by every RoutingError.
var ErrNoPath = errors.New("no path")

// RoutingError reports two lattice nodes that should be connected but are
// not. It indicates a topology defect and is always fatal.
type RoutingError struct {
	From lattice.Coord
	To   lattice.Coord
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no path from %s to %s", e.From, e.To)
}

// Unwrap makes errors.Is(err, ErrNoPath) hold for every RoutingError.
func (e *RoutingError) Unwrap() error {
	return ErrNoPath
}
