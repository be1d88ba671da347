package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/leaseflow/leaseflow/pkg/events"
	"github.com/leaseflow/leaseflow/pkg/models"
)

const (
	OpCreateRenewal     = "create_renewal"
	OpVoidRenewal       = "void_renewal_vacate_date_passed"
	creationTypeRenewal = "renewal"
)

// CreateRenewalRequest asks for a renewal of an active lease party.
type CreateRenewalRequest struct {
	SeedPartyID string `validate:"required,uuid"`
	// AuthUserID is the user triggering the renewal. Empty for the nightly cycle.
	AuthUserID string `validate:"omitempty,uuid"`
}

// CreateRenewalParty spawns a RENEWAL party from an active lease party. The
// seed is never archived. On failure a NOT_SPAWNED activity entry is written
// and the error is returned.
func (t *Transitions) CreateRenewalParty(ctx context.Context, req CreateRenewalRequest) (*models.Party, error) {
	err := t.validateRequest(req)
	if err != nil {
		return nil, err
	}

	var renewal *models.Party

	err = t.runInteractive(ctx, OpCreateRenewal, req.SeedPartyID, func(ctx context.Context, tx *Tx) error {
		var err error

		renewal, err = t.createRenewal(ctx, tx, req)

		return err
	})
	if err != nil {
		t.logNotSpawned(ctx, req.SeedPartyID, err)

		return nil, err
	}

	return renewal, nil
}

func (t *Transitions) createRenewal(ctx context.Context, tx *Tx, req CreateRenewalRequest) (*models.Party, error) {
	seed, err := t.persistence.Parties().GetByID(ctx, tx, req.SeedPartyID)
	if err != nil {
		return nil, err
	}

	if seed.WorkflowName != models.WorkflowNameActiveLease {
		return nil, ErrSeedNotActiveLease
	}

	if !seed.IsActive() {
		return nil, ErrPartyArchived
	}

	data, err := t.persistence.ActiveLeases().GetByPartyID(ctx, tx, seed.ID)
	if err != nil {
		return nil, err
	}

	existing, err := t.persistence.Parties().GetActiveInGroup(ctx, tx, seed.PartyGroupID, models.WorkflowNameRenewal)
	if err != nil {
		return nil, fmt.Errorf("failed to check active renewal: %w", err)
	}

	if existing != nil {
		return nil, ErrRenewalAlreadyExists
	}

	property, err := t.settings.GetProperty(ctx, tx, seed.AssignedPropertyID)
	if err != nil {
		return nil, err
	}

	owner, err := t.renewalOwner(ctx, tx, seed, req.AuthUserID)
	if err != nil {
		return nil, err
	}

	renewal := &models.Party{
		TenantID:           seed.TenantID,
		WorkflowName:       models.WorkflowNameRenewal,
		WorkflowState:      models.WorkflowStateActive,
		State:              residentState(data),
		SeedPartyID:        &seed.ID,
		PartyGroupID:       seed.PartyGroupID,
		AssignedPropertyID: seed.AssignedPropertyID,
		OwnerTeamID:        seed.OwnerTeamID,
		UserID:             owner,
		Collaborators:      slices.Clone(seed.Collaborators),
		Teams:              slices.Clone(seed.Teams),
		Metadata:           models.PartyMetadata{CreationType: creationTypeRenewal},
	}
	renewal.AddCollaborator(owner)

	err = t.persistence.Parties().Create(ctx, tx, renewal)
	if err != nil {
		return nil, fmt.Errorf("failed to create renewal party: %w", err)
	}

	err = t.copyMembers(ctx, tx, seed, renewal, property.Settings.Renewals.SkipOriginalGuarantors)
	if err != nil {
		return nil, err
	}

	err = t.copyAdditionalInfo(ctx, tx, seed, renewal)
	if err != nil {
		return nil, err
	}

	err = t.logActivity(ctx, tx, renewal, models.ActivityActionCreate, map[string]any{
		"seedPartyId":  seed.ID,
		"workflowName": models.WorkflowNameRenewal,
		"status":       models.SpawnStatusSpawned,
		"createdBy":    req.AuthUserID,
	})
	if err != nil {
		return nil, err
	}

	tx.Emit(renewal.PartyGroupID, events.RenewalCreated{
		BaseEvent:    events.NewBaseEvent(events.RenewalCreatedEvent, renewal.TenantID, renewal.ID),
		SeedPartyID:  seed.ID,
		PartyGroupID: renewal.PartyGroupID,
		PropertyID:   renewal.AssignedPropertyID,
		OwnerUserID:  owner,
	})

	t.logger.InfoContext(ctx, "renewal party created",
		"tenant_id", renewal.TenantID, "party_id", renewal.ID, "seed_party_id", seed.ID, "owner", owner)

	return renewal, nil
}

// logNotSpawned records a failed renewal spawn outside the rolled back transaction.
func (t *Transitions) logNotSpawned(ctx context.Context, seedPartyID string, cause error) {
	seed, err := t.persistence.Parties().GetByID(ctx, t.persistence.DB(), seedPartyID)
	if err != nil {
		t.logger.WarnContext(ctx, "cannot record failed renewal spawn", "seed_party_id", seedPartyID, "error", err)

		return
	}

	err = t.logActivity(ctx, t.persistence.DB(), seed, models.ActivityActionCreate, map[string]any{
		"seedPartyId":  seed.ID,
		"workflowName": models.WorkflowNameRenewal,
		"status":       models.SpawnStatusNotSpawned,
		"error":        cause.Error(),
	})
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to record failed renewal spawn", "seed_party_id", seedPartyID, "error", err)
	}
}

// VoidRenewalWithVacateDatePassed voids the leases of a renewal whose active
// lease already passed its vacate date and archives the renewal.
func (t *Transitions) VoidRenewalWithVacateDatePassed(ctx context.Context, renewalPartyID string) TransitionResult {
	return t.runBatch(ctx, OpVoidRenewal, renewalPartyID, func(ctx context.Context, tx *Tx) (Outcome, string, error) {
		renewal, err := t.persistence.Parties().GetByID(ctx, tx, renewalPartyID)
		if err != nil {
			return "", "", err
		}

		if !renewal.IsActive() || renewal.WorkflowName != models.WorkflowNameRenewal {
			return OutcomeSkipped, "", nil
		}

		leases, err := t.persistence.Leases().GetByPartyID(ctx, tx, renewal.ID)
		if err != nil {
			return "", "", fmt.Errorf("failed to get leases of renewal %s: %w", renewal.ID, err)
		}

		for _, lease := range leases {
			if lease.IsVoided() {
				continue
			}

			err := t.persistence.Leases().Void(ctx, tx, lease.ID)
			if err != nil {
				return "", "", fmt.Errorf("failed to void lease %s: %w", lease.ID, err)
			}
		}

		err = t.archiveParty(ctx, tx, renewal, models.ArchiveReasonActiveLeaseVacateDatePassed)
		if err != nil {
			return "", "", err
		}

		return OutcomeApplied, "", nil
	})
}
