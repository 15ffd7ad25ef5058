package view

import (
	"errors"
	"fmt"
)

var (
	// ErrAmbiguousView means the tag is registered but its host cannot be
	// contacted, so the registration can be neither reused nor removed.
	ErrAmbiguousView = errors.New("view registered on an unreachable host")

	// ErrConflictingRegistration means the tag is registered with an
	// incompatible configuration and updating it is disallowed.
	ErrConflictingRegistration = errors.New("view tag registered with a conflicting configuration")
)

// ReconcileError is a fatal reconciliation failure that needs an operator.
type ReconcileError struct {
	Tag    string
	Reason string
	Err    error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("view %s: %s: %v", e.Tag, e.Reason, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}
