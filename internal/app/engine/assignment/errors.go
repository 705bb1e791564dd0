package assignment

import (
	"errors"
	"fmt"
)

// ErrNotFound covers every reference to a tenant or property that the
// requesting user does not own. Not-found and access-denied are deliberately
// indistinguishable so callers cannot probe for other landlords' records.
var ErrNotFound = errors.New("record not found")

// ErrUnitRequired: the property has units, so the caller must name one.
var ErrUnitRequired = errors.New("unit number is required for a multi-unit property")

// ErrUnitNotAllowed: the property has no units, so a unit number is
// structurally wrong.
var ErrUnitNotAllowed = errors.New("unit number supplied for a single-unit property")

// ErrNoActiveLease: unassign was asked for a (tenant, property, unit) slot
// with no active lease. This is an error rather than a no-op so callers can
// detect stale state.
var ErrNoActiveLease = errors.New("no active lease for this property")

// Conflict reasons. Distinct for UI clarity; identical recoverability.
const (
	ReasonDuplicateAssignment = "duplicate assignment"
	ReasonAlreadyOccupied     = "already occupied"
	ReasonNotQualified        = "tenant not qualified"
)

// ConflictError is a domain-state clash: the target slot is taken, or the
// tenant already holds it. Always recoverable by choosing a different target
// or unassigning first.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
