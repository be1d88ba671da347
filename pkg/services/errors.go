// Package services applies party workflow transitions atomically.
package services

import (
	"errors"
	"fmt"

	"github.com/leaseflow/leaseflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// Business Logic Conflicts (409 Conflict).
	ErrSeedNotActiveLease      = errors.New("seed party is not an active lease")
	ErrNotActiveLease          = errors.New("party is not an active lease")
	ErrPartyArchived           = errors.New("party is archived")
	ErrRenewalAlreadyExists    = errors.New("an active renewal already exists for the party group")
	ErrNotMovingOut            = errors.New("active lease is not moving out")
	ErrNoOwnerTeam             = errors.New("no active team can own the party")
	ErrActiveLeaseInGroup      = errors.New("an active lease already exists for the party group")
	ErrUnsupportedSeedWorkflow = errors.New("seed workflow cannot spawn an active lease")
)

// TransitionError reports a failed transition of one party.
type TransitionError struct {
	Op      string
	PartyID string
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s party %s: %v", e.Op, e.PartyID, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSeedNotActiveLease) ||
		errors.Is(err, ErrNotActiveLease) ||
		errors.Is(err, ErrPartyArchived) ||
		errors.Is(err, ErrRenewalAlreadyExists) ||
		errors.Is(err, ErrNotMovingOut) ||
		errors.Is(err, ErrActiveLeaseInGroup) ||
		errors.Is(err, ErrUnsupportedSeedWorkflow) ||
		errors.Is(err, persistence.ErrPartyAlreadyArchived)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err)
}
