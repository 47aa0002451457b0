package state

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no state file exists for the requested id.
var ErrNotFound = errors.New("state not found")

// CorruptedStateError is returned when a state file exists but cannot be
// parsed and no usable backup is available. The store never fabricates an
// empty document for a broken file; that would silently lose retry history.
type CorruptedStateError struct {
	Path string
	Err  error
}

func (e *CorruptedStateError) Error() string {
	return fmt.Sprintf("corrupted state file %s: %v", e.Path, e.Err)
}

func (e *CorruptedStateError) Unwrap() error {
	return e.Err
}

// SecurityViolationError is returned when an identifier would escape the
// state directory. It is always fatal for the operation; the store never
// rewrites an id into a safe form.
type SecurityViolationError struct {
	ID     string
	Reason string
}

func (e *SecurityViolationError) Error() string {
	return fmt.Sprintf("refusing unsafe state id %q: %s", e.ID, e.Reason)
}
