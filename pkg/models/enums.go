package models

import (
	"errors"
	"fmt"
)

// ErrUnknownValue is returned when a string does not name a member of a closed enumeration.
var ErrUnknownValue = errors.New("unknown enumeration value")

// WorkflowName identifies the business process a party is currently in.
type WorkflowName string

const (
	WorkflowNameNewLease    WorkflowName = "newLease"
	WorkflowNameActiveLease WorkflowName = "activeLease"
	WorkflowNameRenewal     WorkflowName = "renewal"
)

func (w WorkflowName) IsValid() bool {
	switch w {
	case WorkflowNameNewLease, WorkflowNameActiveLease, WorkflowNameRenewal:
		return true
	}

	return false
}

// ParseWorkflowName converts a stored value into a WorkflowName.
func ParseWorkflowName(value string) (WorkflowName, error) {
	name := WorkflowName(value)
	if !name.IsValid() {
		return "", fmt.Errorf("%w: workflow name %q", ErrUnknownValue, value)
	}

	return name, nil
}

// WorkflowState tells whether a party is the live incarnation of its lineage.
type WorkflowState string

const (
	WorkflowStateActive   WorkflowState = "active"
	WorkflowStateArchived WorkflowState = "archived"
)

func (w WorkflowState) IsValid() bool {
	return w == WorkflowStateActive || w == WorkflowStateArchived
}

// PartyState is the resident-facing state derived from workflow facts.
type PartyState string

const (
	PartyStateProspect       PartyState = "Prospect"
	PartyStateLease          PartyState = "Lease"
	PartyStateFutureResident PartyState = "FutureResident"
	PartyStateResident       PartyState = "Resident"
	PartyStateMovingOut      PartyState = "MovingOut"
)

// ActiveLeaseState tracks move-out progress of an active lease.
type ActiveLeaseState string

const (
	ActiveLeaseStateNone      ActiveLeaseState = "none"
	ActiveLeaseStateMovingOut ActiveLeaseState = "movingOut"
)

func (s ActiveLeaseState) IsValid() bool {
	return s == ActiveLeaseStateNone || s == ActiveLeaseStateMovingOut
}

// RolloverPeriod tells how a lease continues after its term.
type RolloverPeriod string

const (
	RolloverPeriodNone RolloverPeriod = "none"
	RolloverPeriodM2M  RolloverPeriod = "m2m"
)

func (r RolloverPeriod) IsValid() bool {
	return r == RolloverPeriodNone || r == RolloverPeriodM2M
}

// LeaseStatus is the signing status reported by the lease service.
type LeaseStatus string

const (
	LeaseStatusDraft     LeaseStatus = "draft"
	LeaseStatusSubmitted LeaseStatus = "submitted"
	LeaseStatusExecuted  LeaseStatus = "executed"
	LeaseStatusVoided    LeaseStatus = "voided"
)

// MemberType is the role of a person inside a party.
type MemberType string

const (
	MemberTypeResident  MemberType = "Resident"
	MemberTypeOccupant  MemberType = "Occupant"
	MemberTypeGuarantor MemberType = "Guarantor"
)

// AdditionalInfoType names the kinds of additional info copied between parties.
type AdditionalInfoType string

const (
	AdditionalInfoChild   AdditionalInfoType = "child"
	AdditionalInfoPet     AdditionalInfoType = "pet"
	AdditionalInfoVehicle AdditionalInfoType = "vehicle"
)

// ArchiveReason is the enumerated reason recorded when a party is archived.
type ArchiveReason string

const (
	ArchiveReasonResidentsHaveMovedOut            ArchiveReason = "RESIDENTS_HAVE_MOVED_OUT"
	ArchiveReasonCreatedOneMonthLease             ArchiveReason = "CREATED_ONE_MONTH_LEASE"
	ArchiveReasonLeaseInPastNoOneMonthLeaseTerm   ArchiveReason = "CURRENT_LEASE_IN_PAST_AND_NO_ONE_MONTH_LEASE_TERM"
	ArchiveReasonLeaseInPastNoPublishedQuote      ArchiveReason = "CURRENT_LEASE_IN_PAST_AND_NO_PUBLISH_QUOTE_ON_RENEWAL"
	ArchiveReasonNewResidentCreatedSyncNotEnabled ArchiveReason = "NEW_RESIDENT_CREATED_FOR_UNIT_SYNC_NOT_ENABLED"
	ArchiveReasonPartyConvertedToActiveLease      ArchiveReason = "PARTY_CONVERTED_TO_ACTIVE_LEASE"
	ArchiveReasonPreviousActiveLeaseRenewed       ArchiveReason = "PREVIOUS_ACTIVE_LEASE_RENEWED"
	ArchiveReasonActiveLeaseVacateDatePassed      ArchiveReason = "ACTIVE_LEASE_VACATE_DATE_PASSED"
	ArchiveReasonResidentNotPresentInExternalSync ArchiveReason = "RESIDENT_NOT_PRESENT_IN_EXTERNAL_SYNC"
	ArchiveReasonMoveInNotConfirmed               ArchiveReason = "MOVE_IN_NOT_CONFIRMED"
)

// ArchiveReasons lists every archive reason, in declaration order.
func ArchiveReasons() []ArchiveReason {
	return []ArchiveReason{
		ArchiveReasonResidentsHaveMovedOut,
		ArchiveReasonCreatedOneMonthLease,
		ArchiveReasonLeaseInPastNoOneMonthLeaseTerm,
		ArchiveReasonLeaseInPastNoPublishedQuote,
		ArchiveReasonNewResidentCreatedSyncNotEnabled,
		ArchiveReasonPartyConvertedToActiveLease,
		ArchiveReasonPreviousActiveLeaseRenewed,
		ArchiveReasonActiveLeaseVacateDatePassed,
		ArchiveReasonResidentNotPresentInExternalSync,
		ArchiveReasonMoveInNotConfirmed,
	}
}

func (r ArchiveReason) IsValid() bool {
	switch r {
	case ArchiveReasonResidentsHaveMovedOut,
		ArchiveReasonCreatedOneMonthLease,
		ArchiveReasonLeaseInPastNoOneMonthLeaseTerm,
		ArchiveReasonLeaseInPastNoPublishedQuote,
		ArchiveReasonNewResidentCreatedSyncNotEnabled,
		ArchiveReasonPartyConvertedToActiveLease,
		ArchiveReasonPreviousActiveLeaseRenewed,
		ArchiveReasonActiveLeaseVacateDatePassed,
		ArchiveReasonResidentNotPresentInExternalSync,
		ArchiveReasonMoveInNotConfirmed:
		return true
	}

	return false
}

// ParseArchiveReason converts a stored reason id into an ArchiveReason.
func ParseArchiveReason(value string) (ArchiveReason, error) {
	reason := ArchiveReason(value)
	if !reason.IsValid() {
		return "", fmt.Errorf("%w: archive reason %q", ErrUnknownValue, value)
	}

	return reason, nil
}

// ExceptionReportRule classifies an exception report raised for human review.
type ExceptionReportRule string

const (
	ExceptionRuleNoOneMonthLeaseTerm                  ExceptionReportRule = "NO_ONE_MONTH_LEASE_TERM"
	ExceptionRuleActiveLeaseAlreadyExistsForInventory ExceptionReportRule = "ACTIVE_LEASE_ALREADY_EXISTS_FOR_INVENTORY"
)

func (r ExceptionReportRule) IsValid() bool {
	return r == ExceptionRuleNoOneMonthLeaseTerm || r == ExceptionRuleActiveLeaseAlreadyExistsForInventory
}

// SpawnStatus is recorded on activity entries describing a spawn attempt.
type SpawnStatus string

const (
	SpawnStatusSpawned    SpawnStatus = "SPAWNED"
	SpawnStatusNotSpawned SpawnStatus = "NOT_SPAWNED"
)

// ActivityAction names what happened to the entity of an activity entry.
type ActivityAction string

const (
	ActivityActionCreate  ActivityAction = "create"
	ActivityActionUpdate  ActivityAction = "update"
	ActivityActionArchive ActivityAction = "archive"
)
