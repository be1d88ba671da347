package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/leaseflow/leaseflow/pkg/events"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	OpStartActiveLease         = "start_active_lease"
	OpCreateOneMonthLease      = "create_one_month_active_lease"
	OpArchiveWithSuccessor     = "archive_party_with_successor"
	creationTypeActiveLease    = "activeLease"
	creationTypeOneMonthLease  = "oneMonthLease"
	exceptionDataInventoryID   = "inventoryId"
	exceptionDataLeaseEndDate  = "leaseEndDate"
	exceptionDataConflictingID = "conflictingPartyIds"
)

// ActiveLeaseOptions tune the party created by CreateActiveLeaseParty.
type ActiveLeaseOptions struct {
	State          models.PartyState
	CreationType   string
	RolloverPeriod models.RolloverPeriod
}

// CreateActiveLeaseParty creates an ACTIVE_LEASE party seeded from a
// NEW_LEASE, RENEWAL or ACTIVE_LEASE party inside tx. The workflow data row
// is written by the caller.
func (t *Transitions) CreateActiveLeaseParty(
	ctx context.Context,
	tx *Tx,
	seedPartyID string,
	leaseID string,
	opts ActiveLeaseOptions,
) (*models.Party, error) {
	seed, err := t.persistence.Parties().GetByID(ctx, tx, seedPartyID)
	if err != nil {
		return nil, err
	}

	team, err := t.activeLeaseTeam(ctx, tx, seed)
	if err != nil {
		return nil, err
	}

	if opts.State == "" {
		opts.State = models.PartyStateResident
	}

	if opts.CreationType == "" {
		opts.CreationType = creationTypeActiveLease
	}

	owner := teamOwner(team, seed.UserID)

	party := &models.Party{
		TenantID:           seed.TenantID,
		WorkflowName:       models.WorkflowNameActiveLease,
		WorkflowState:      models.WorkflowStateActive,
		State:              opts.State,
		SeedPartyID:        &seed.ID,
		PartyGroupID:       seed.PartyGroupID,
		AssignedPropertyID: seed.AssignedPropertyID,
		OwnerTeamID:        team.ID,
		UserID:             owner,
		Collaborators:      slices.Clone(seed.Collaborators),
		Teams:              []string{team.ID},
		Metadata: models.PartyMetadata{
			Eviction:     seed.Metadata.Eviction,
			MoveIn:       seed.Metadata.MoveIn,
			CreationType: opts.CreationType,
		},
	}
	party.AddCollaborator(owner)

	err = t.persistence.Parties().Create(ctx, tx, party)
	if err != nil {
		return nil, fmt.Errorf("failed to create active lease party: %w", err)
	}

	err = t.copyMembers(ctx, tx, seed, party, false)
	if err != nil {
		return nil, err
	}

	err = t.copyAdditionalInfo(ctx, tx, seed, party)
	if err != nil {
		return nil, err
	}

	err = t.logActivity(ctx, tx, party, models.ActivityActionCreate, map[string]any{
		"seedPartyId":  seed.ID,
		"leaseId":      leaseID,
		"workflowName": models.WorkflowNameActiveLease,
		"creationType": opts.CreationType,
		"status":       models.SpawnStatusSpawned,
	})
	if err != nil {
		return nil, err
	}

	tx.Emit(party.PartyGroupID, events.PartyCreated{
		BaseEvent:      events.NewBaseEvent(events.PartyCreatedEvent, party.TenantID, party.ID),
		WorkflowName:   models.WorkflowNameActiveLease,
		SeedPartyID:    seed.ID,
		PartyGroupID:   party.PartyGroupID,
		PropertyID:     party.AssignedPropertyID,
		RolloverPeriod: opts.RolloverPeriod,
	})

	t.logger.InfoContext(ctx, "active lease party created",
		"tenant_id", party.TenantID, "party_id", party.ID, "seed_party_id", seed.ID, "team_id", team.ID)

	return party, nil
}

// StartActiveLeaseRequest describes an executed lease that starts an active lease.
type StartActiveLeaseRequest struct {
	LeaseID          string           `validate:"omitempty,uuid"`
	SeedPartyID      string           `validate:"required,uuid"`
	Baseline         models.LeaseData `validate:"required"`
	RecurringCharges []models.Charge
	Concessions      []models.Charge
	ExternalLeaseID  string
	IsImported       bool
}

// StartActiveLeaseWorkflow spawns the active lease party and its workflow data
// for an executed lease. When another lineage occupies the inventory the
// conflict is either reported for review, when resident data import is
// enabled, or resolved by archiving the conflicting active lease.
func (t *Transitions) StartActiveLeaseWorkflow(ctx context.Context, req StartActiveLeaseRequest) TransitionResult {
	err := t.validateRequest(req)
	if err != nil {
		t.recordTransition(OpStartActiveLease, string(OutcomeFailed))

		return TransitionResult{
			Outcome: OutcomeFailed,
			PartyID: req.SeedPartyID,
			Err:     &TransitionError{Op: OpStartActiveLease, PartyID: req.SeedPartyID, Err: err},
		}
	}

	return t.runBatch(ctx, OpStartActiveLease, req.SeedPartyID, func(ctx context.Context, tx *Tx) (Outcome, string, error) {
		return t.startActiveLease(ctx, tx, req)
	})
}

func (t *Transitions) startActiveLease(ctx context.Context, tx *Tx, req StartActiveLeaseRequest) (Outcome, string, error) {
	seed, err := t.persistence.Parties().GetByID(ctx, tx, req.SeedPartyID)
	if err != nil {
		return "", "", err
	}

	switch seed.WorkflowName {
	case models.WorkflowNameNewLease, models.WorkflowNameRenewal:
	case models.WorkflowNameActiveLease:
		return "", "", ErrUnsupportedSeedWorkflow
	}

	if !seed.IsActive() {
		return OutcomeSkipped, "", nil
	}

	spawned, err := t.persistence.Parties().GetActiveBySeed(ctx, tx, seed.ID, models.WorkflowNameActiveLease)
	if err != nil {
		return "", "", fmt.Errorf("failed to check spawned active lease: %w", err)
	}

	if spawned != nil {
		return OutcomeSkipped, spawned.ID, nil
	}

	current, err := t.persistence.Parties().GetActiveInGroup(ctx, tx, seed.PartyGroupID, models.WorkflowNameActiveLease)
	if err != nil {
		return "", "", fmt.Errorf("failed to check active lease in group: %w", err)
	}

	if current != nil && current.ID != seed.SeedID() {
		return "", "", ErrActiveLeaseInGroup
	}

	if req.Baseline.InventoryID != "" {
		property, err := t.settings.GetPropertyByInventory(ctx, tx, req.Baseline.InventoryID)
		if err != nil {
			return "", "", err
		}

		reported, err := t.resolveInventoryConflicts(ctx, tx, seed, property, req)
		if err != nil {
			return "", "", err
		}

		if reported {
			return OutcomeExceptionReported, "", nil
		}
	}

	// The predecessor goes first so the lineage never holds two active leases.
	if seed.WorkflowName == models.WorkflowNameRenewal && current != nil {
		err := t.archiveParty(ctx, tx, current, models.ArchiveReasonPreviousActiveLeaseRenewed)
		if err != nil {
			return "", "", err
		}
	}

	party, err := t.CreateActiveLeaseParty(ctx, tx, seed.ID, req.LeaseID, ActiveLeaseOptions{State: models.PartyStateResident})
	if err != nil {
		return "", "", err
	}

	data := &models.ActiveLeaseWorkflowData{
		TenantID:         party.TenantID,
		PartyID:          party.ID,
		State:            models.ActiveLeaseStateNone,
		LeaseData:        req.Baseline,
		RecurringCharges: req.RecurringCharges,
		Concessions:      req.Concessions,
		IsImported:       req.IsImported,
		ExternalLeaseID:  req.ExternalLeaseID,
		Metadata: models.ActiveLeaseMetadata{
			MoveInConfirmed: seed.Metadata.MoveIn != nil && seed.Metadata.MoveIn.MoveInConfirmed,
		},
	}

	if req.LeaseID != "" {
		data.LeaseID = &req.LeaseID
	}

	err = t.persistence.ActiveLeases().Save(ctx, tx, data)
	if err != nil {
		return "", "", fmt.Errorf("failed to save active lease workflow data: %w", err)
	}

	return OutcomeApplied, party.ID, nil
}

// resolveInventoryConflicts handles active leases of other lineages on the same
// inventory. It reports true when the spawn must wait for human review.
func (t *Transitions) resolveInventoryConflicts(
	ctx context.Context,
	tx *Tx,
	seed *models.Party,
	property *models.Property,
	req StartActiveLeaseRequest,
) (bool, error) {
	conflicts, err := t.persistence.ActiveLeases().GetActiveByInventory(ctx, tx, seed.TenantID, req.Baseline.InventoryID, seed.PartyGroupID)
	if err != nil {
		return false, fmt.Errorf("failed to check inventory %s: %w", req.Baseline.InventoryID, err)
	}

	if len(conflicts) == 0 {
		return false, nil
	}

	if !property.Settings.Integration.ResidentDataImport {
		for _, conflict := range conflicts {
			err := t.archiveWithRenewal(ctx, tx, conflict.Party, models.ArchiveReasonNewResidentCreatedSyncNotEnabled)
			if err != nil {
				return false, err
			}
		}

		return false, nil
	}

	var conflictingIDs []string

	for _, conflict := range conflicts {
		if conflict.ActiveLease.Metadata.WasAddedToExceptionReport {
			continue
		}

		conflictingIDs = append(conflictingIDs, conflict.Party.ID)
		conflict.ActiveLease.Metadata.WasAddedToExceptionReport = true

		err := t.persistence.ActiveLeases().UpdateStateAndMetadata(ctx, tx, conflict.ActiveLease)
		if err != nil {
			return false, fmt.Errorf("failed to flag conflicting active lease %s: %w", conflict.Party.ID, err)
		}
	}

	if len(conflictingIDs) == 0 {
		return true, nil
	}

	err = t.raiseException(ctx, tx, seed, models.ExceptionRuleActiveLeaseAlreadyExistsForInventory, map[string]any{
		exceptionDataInventoryID:   req.Baseline.InventoryID,
		exceptionDataConflictingID: conflictingIDs,
		"leaseId":                  req.LeaseID,
	})

	return true, err
}

// CreateOneMonthActiveLease rolls an expired active lease whose renewal stalled
// into a month-to-month active lease. Without a one-month lease term the
// renewal is archived and an exception report is raised instead.
func (t *Transitions) CreateOneMonthActiveLease(ctx context.Context, seedPartyID string) TransitionResult {
	return t.runBatch(ctx, OpCreateOneMonthLease, seedPartyID, func(ctx context.Context, tx *Tx) (Outcome, string, error) {
		seed, err := t.persistence.Parties().GetByID(ctx, tx, seedPartyID)
		if err != nil {
			return "", "", err
		}

		if !seed.IsActive() || seed.WorkflowName != models.WorkflowNameActiveLease {
			return OutcomeSkipped, "", nil
		}

		data, err := t.persistence.ActiveLeases().GetByPartyID(ctx, tx, seed.ID)
		if err != nil {
			return "", "", err
		}

		term, err := t.persistence.Settings().GetOneMonthLeaseTerm(ctx, tx, seed.AssignedPropertyID)
		if err != nil {
			return "", "", fmt.Errorf("failed to get one month lease term: %w", err)
		}

		if term == nil {
			return t.reportMissingOneMonthTerm(ctx, tx, seed, data)
		}

		rent, err := t.persistence.Settings().GetMonthToMonthRent(ctx, tx, data.LeaseData.InventoryID)
		if err != nil {
			return "", "", fmt.Errorf("failed to get month to month rent: %w", err)
		}

		err = t.archiveWithRenewal(ctx, tx, seed, models.ArchiveReasonCreatedOneMonthLease)
		if err != nil {
			return "", "", err
		}

		party, err := t.CreateActiveLeaseParty(ctx, tx, seed.ID, "", ActiveLeaseOptions{
			State:          residentState(data),
			CreationType:   creationTypeOneMonthLease,
			RolloverPeriod: models.RolloverPeriodM2M,
		})
		if err != nil {
			return "", "", err
		}

		next := OneMonthLeaseData(data.LeaseData, rent)

		metadata := data.Metadata
		metadata.WasAddedToExceptionReport = false

		err = t.persistence.ActiveLeases().Save(ctx, tx, &models.ActiveLeaseWorkflowData{
			TenantID:         party.TenantID,
			PartyID:          party.ID,
			State:            data.State,
			LeaseData:        next,
			Metadata:         metadata,
			RecurringCharges: data.RecurringCharges,
			Concessions:      data.Concessions,
			IsImported:       data.IsImported,
			ExternalLeaseID:  data.ExternalLeaseID,
		})
		if err != nil {
			return "", "", fmt.Errorf("failed to save one month lease workflow data: %w", err)
		}

		return OutcomeApplied, party.ID, nil
	})
}

// OneMonthLeaseData returns the lease data of the month-to-month lease that
// follows current. Rent falls back to the current rent when no
// month-to-month price is configured.
func OneMonthLeaseData(current models.LeaseData, monthToMonthRent decimal.NullDecimal) models.LeaseData {
	start := current.EffectiveEndDate().AddDate(0, 0, 1)

	rent := current.UnitRent
	if monthToMonthRent.Valid {
		rent = monthToMonthRent.Decimal
	}

	return models.LeaseData{
		LeaseStartDate: start,
		LeaseEndDate:   models.AddMonths(start, 1).AddDate(0, 0, -1),
		InventoryID:    current.InventoryID,
		UnitRent:       rent,
		LeaseTerm:      1,
	}
}

func (t *Transitions) reportMissingOneMonthTerm(
	ctx context.Context,
	tx *Tx,
	seed *models.Party,
	data *models.ActiveLeaseWorkflowData,
) (Outcome, string, error) {
	err := t.raiseException(ctx, tx, seed, models.ExceptionRuleNoOneMonthLeaseTerm, map[string]any{
		exceptionDataInventoryID:  data.LeaseData.InventoryID,
		exceptionDataLeaseEndDate: data.LeaseData.EffectiveEndDate(),
	})
	if err != nil {
		return "", "", err
	}

	err = t.archiveRenewalSibling(ctx, tx, seed, models.ArchiveReasonLeaseInPastNoOneMonthLeaseTerm)
	if err != nil {
		return "", "", err
	}

	data.Metadata.WasAddedToExceptionReport = true

	err = t.persistence.ActiveLeases().UpdateStateAndMetadata(ctx, tx, data)
	if err != nil {
		return "", "", fmt.Errorf("failed to flag active lease %s: %w", seed.ID, err)
	}

	return OutcomeExceptionReported, "", nil
}

// ArchivePartyWithSuccessor archives a NEW_LEASE or RENEWAL party once its
// active lease exists.
func (t *Transitions) ArchivePartyWithSuccessor(ctx context.Context, partyID string) TransitionResult {
	return t.runBatch(ctx, OpArchiveWithSuccessor, partyID, func(ctx context.Context, tx *Tx) (Outcome, string, error) {
		party, err := t.persistence.Parties().GetByID(ctx, tx, partyID)
		if err != nil {
			return "", "", err
		}

		if !party.IsActive() || party.WorkflowName == models.WorkflowNameActiveLease {
			return OutcomeSkipped, "", nil
		}

		successor, err := t.persistence.Parties().GetActiveBySeed(ctx, tx, party.ID, models.WorkflowNameActiveLease)
		if err != nil {
			return "", "", fmt.Errorf("failed to get successor of party %s: %w", party.ID, err)
		}

		if successor == nil {
			return OutcomeSkipped, "", nil
		}

		err = t.archiveParty(ctx, tx, party, models.ArchiveReasonPartyConvertedToActiveLease)
		if err != nil {
			return "", "", err
		}

		return OutcomeApplied, "", nil
	})
}
