package domain

import (
	"errors"
	"fmt"
)

// ErrMissingQuantity is matched by every *MissingQuantityError.
var ErrMissingQuantity = errors.New("missing quantity")

// ErrInvalidRun is returned when run parameters are out of range.
var ErrInvalidRun = errors.New("invalid run parameters")

// ErrNoLifecycle is returned when a system reports itself as process-backed
// but does not provide setup, teardown and cleanup.
var ErrNoLifecycle = errors.New("process-backed system does not implement lifecycle")

// MissingQuantityError reports a watched quantity that a system failed to
// produce. It is a programming error in the system and aborts the run.
type MissingQuantityError struct {
	Quantity string
	State    State
}

func (e *MissingQuantityError) Error() string {
	return fmt.Sprintf("%s: %q not found in state %v", ErrMissingQuantity, e.Quantity, map[string]any(e.State))
}

// Is makes errors.Is(err, ErrMissingQuantity) hold.
func (e *MissingQuantityError) Is(target error) bool {
	return target == ErrMissingQuantity
}
