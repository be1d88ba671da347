// Package web provides HTTP request and response types for the lifecycle API.
package web

import (
	"time"

	"github.com/leaseflow/leaseflow/pkg/cycle"
	"github.com/leaseflow/leaseflow/pkg/models"
)

// RunCycleRequest is the optional body of a cycle run. An empty body runs the
// whole tenant.
type RunCycleRequest struct {
	PropertyIDs  []string `json:"propertyIds,omitempty"  validate:"omitempty,dive,required"`
	PartyGroupID string   `json:"partyGroupId,omitempty" validate:"omitempty,uuid"`
}

// CreateRenewalRequest is the body of a user-triggered renewal.
type CreateRenewalRequest struct {
	AuthUserID string `json:"authUserId,omitempty" validate:"omitempty,uuid"`
}

// MovingOutRequest is the body of a notice to vacate.
type MovingOutRequest struct {
	VacateDate       time.Time  `json:"vacateDate"                validate:"required"`
	DateOfTheNotice  *time.Time `json:"dateOfTheNotice,omitempty"`
	MoveOutConfirmed bool       `json:"moveOutConfirmed"`
	AuthUserID       string     `json:"authUserId,omitempty"      validate:"omitempty,uuid"`
}

// CancelMovingOutRequest is the optional body of a withdrawn notice.
type CancelMovingOutRequest struct {
	AuthUserID string `json:"authUserId,omitempty" validate:"omitempty,uuid"`
}

// RenewalResponse returns the spawned renewal and the reprocessed cycle of its
// party group.
type RenewalResponse struct {
	Party *models.Party `json:"party"`
	Cycle *cycle.Result `json:"cycle,omitempty"`
}

// ActiveLeaseResponse returns the updated workflow data and the reprocessed
// cycle of its party group.
type ActiveLeaseResponse struct {
	ActiveLease *models.ActiveLeaseWorkflowData `json:"activeLease"`
	Cycle       *cycle.Result                   `json:"cycle,omitempty"`
}
