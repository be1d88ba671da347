// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPartyNotFound indicates a party was not found by the given identifier.
	ErrPartyNotFound = errors.New("party not found")

	// ErrActiveLeaseNotFound indicates no active lease workflow data exists for the identifier.
	ErrActiveLeaseNotFound = errors.New("active lease workflow data not found")

	// ErrLeaseNotFound indicates a lease was not found by the given identifier.
	ErrLeaseNotFound = errors.New("lease not found")

	// ErrPropertyNotFound indicates a property was not found.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrTenantNotFound indicates a tenant was not found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTeamNotFound indicates a team was not found.
	ErrTeamNotFound = errors.New("team not found")

	// ErrPartyAlreadyArchived indicates an archive was requested for a party that is no longer active.
	ErrPartyAlreadyArchived = errors.New("party already archived")
)

// PartyError wraps party-related errors with additional context.
type PartyError struct {
	Op      string // Operation being performed (e.g., "GetByID", "Archive")
	PartyID string // Party ID if applicable
	Err     error  // Underlying error
}

func (e *PartyError) Error() string {
	return fmt.Sprintf("%s operation failed for party %s: %v", e.Op, e.PartyID, e.Err)
}

func (e *PartyError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for party errors.
func (e *PartyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPartyError creates a new party error with context.
func NewPartyError(op, partyID string, err error) *PartyError {
	return &PartyError{
		Op:      op,
		PartyID: partyID,
		Err:     err,
	}
}

// IsNotFound checks if an error indicates that any looked up record was missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPartyNotFound) ||
		errors.Is(err, ErrActiveLeaseNotFound) ||
		errors.Is(err, ErrLeaseNotFound) ||
		errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrTeamNotFound)
}

// IsPartyNotFound checks if an error indicates a party was not found.
func IsPartyNotFound(err error) bool {
	return errors.Is(err, ErrPartyNotFound)
}

// IsStructural checks if an error means the tenant or property configuration is missing.
func IsStructural(err error) bool {
	return errors.Is(err, ErrPropertyNotFound) || errors.Is(err, ErrTenantNotFound)
}
