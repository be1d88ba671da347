package services

import (
	"context"
	"fmt"
	"time"

	"github.com/leaseflow/leaseflow/pkg/events"
	"github.com/leaseflow/leaseflow/pkg/models"
)

const (
	OpMarkMovingOut        = "mark_moving_out"
	OpCancelMovingOut      = "cancel_moving_out"
	OpArchiveMovedOut      = "archive_moving_out_active_lease"
	OpArchiveMissingSync   = "archive_missing_from_sync"
	OpArchiveMoveInPending = "archive_move_in_not_confirmed"
)

// MovingOutRequest records a notice to vacate on an active lease.
type MovingOutRequest struct {
	PartyID          string    `validate:"required,uuid"`
	VacateDate       time.Time `validate:"required"`
	DateOfTheNotice  *time.Time
	MoveOutConfirmed bool
	AuthUserID       string `validate:"omitempty,uuid"`
}

// CancelMovingOutRequest withdraws a notice to vacate.
type CancelMovingOutRequest struct {
	PartyID    string `validate:"required,uuid"`
	AuthUserID string `validate:"omitempty,uuid"`
}

// MarkActiveLeaseAsMovingOut flags the active lease of partyID as moving out
// and cascades the party state to its renewal sibling.
func (t *Transitions) MarkActiveLeaseAsMovingOut(ctx context.Context, req MovingOutRequest) (*models.ActiveLeaseWorkflowData, error) {
	err := t.validateRequest(req)
	if err != nil {
		return nil, err
	}

	var data *models.ActiveLeaseWorkflowData

	err = t.runInteractive(ctx, OpMarkMovingOut, req.PartyID, func(ctx context.Context, tx *Tx) error {
		party, current, err := t.activeLeaseOf(ctx, tx, req.PartyID)
		if err != nil {
			return err
		}

		notice := req.DateOfTheNotice
		if notice == nil {
			now := t.now()
			notice = &now
		}

		vacate := req.VacateDate
		current.State = models.ActiveLeaseStateMovingOut
		current.Metadata.VacateDate = &vacate
		current.Metadata.DateOfTheNotice = notice
		current.Metadata.MoveOutConfirmed = req.MoveOutConfirmed

		tx.Emit(party.PartyGroupID, events.MovingOut{
			BaseEvent:       events.NewBaseEvent(events.MovingOutEvent, party.TenantID, party.ID),
			VacateDate:      &vacate,
			DateOfTheNotice: notice,
		})

		err = t.applyMovingOutState(ctx, tx, party, current, req.AuthUserID)
		if err != nil {
			return err
		}

		data = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// CancelActiveLeaseAsMovingOut clears the notice to vacate of partyID.
func (t *Transitions) CancelActiveLeaseAsMovingOut(ctx context.Context, req CancelMovingOutRequest) (*models.ActiveLeaseWorkflowData, error) {
	err := t.validateRequest(req)
	if err != nil {
		return nil, err
	}

	var data *models.ActiveLeaseWorkflowData

	err = t.runInteractive(ctx, OpCancelMovingOut, req.PartyID, func(ctx context.Context, tx *Tx) error {
		party, current, err := t.activeLeaseOf(ctx, tx, req.PartyID)
		if err != nil {
			return err
		}

		if !current.IsMovingOut() {
			return ErrNotMovingOut
		}

		current.State = models.ActiveLeaseStateNone
		current.Metadata.VacateDate = nil
		current.Metadata.DateOfTheNotice = nil
		current.Metadata.MoveOutConfirmed = false

		tx.Emit(party.PartyGroupID, events.MovingOutCancelled{
			BaseEvent: events.NewBaseEvent(events.MovingOutCancelledEvent, party.TenantID, party.ID),
		})

		err = t.applyMovingOutState(ctx, tx, party, current, req.AuthUserID)
		if err != nil {
			return err
		}

		data = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (t *Transitions) activeLeaseOf(ctx context.Context, tx *Tx, partyID string) (*models.Party, *models.ActiveLeaseWorkflowData, error) {
	party, err := t.persistence.Parties().GetByID(ctx, tx, partyID)
	if err != nil {
		return nil, nil, err
	}

	if party.WorkflowName != models.WorkflowNameActiveLease {
		return nil, nil, ErrNotActiveLease
	}

	if !party.IsActive() {
		return nil, nil, ErrPartyArchived
	}

	data, err := t.persistence.ActiveLeases().GetByPartyID(ctx, tx, party.ID)
	if err != nil {
		return nil, nil, err
	}

	return party, data, nil
}

// applyMovingOutState persists the workflow data and recomputes the state of
// the party and its renewal sibling.
func (t *Transitions) applyMovingOutState(
	ctx context.Context,
	tx *Tx,
	party *models.Party,
	data *models.ActiveLeaseWorkflowData,
	authUserID string,
) error {
	err := t.persistence.ActiveLeases().UpdateStateAndMetadata(ctx, tx, data)
	if err != nil {
		return fmt.Errorf("failed to update active lease state: %w", err)
	}

	state := residentState(data)
	party.State = state

	err = t.persistence.Parties().Update(ctx, tx, party)
	if err != nil {
		return fmt.Errorf("failed to update party state: %w", err)
	}

	err = t.logActivity(ctx, tx, party, models.ActivityActionUpdate, map[string]any{
		"activeLeaseState": data.State,
		"vacateDate":       data.Metadata.VacateDate,
		"moveOutConfirmed": data.Metadata.MoveOutConfirmed,
		"updatedBy":        authUserID,
	})
	if err != nil {
		return err
	}

	renewal, err := t.persistence.Parties().GetActiveBySeed(ctx, tx, party.ID, models.WorkflowNameRenewal)
	if err != nil {
		return fmt.Errorf("failed to get renewal of party %s: %w", party.ID, err)
	}

	if renewal == nil {
		return nil
	}

	renewal.State = state

	err = t.persistence.Parties().Update(ctx, tx, renewal)
	if err != nil {
		return fmt.Errorf("failed to update renewal state: %w", err)
	}

	tx.Emit(renewal.PartyGroupID, events.PartyUpdated{
		BaseEvent: events.NewBaseEvent(events.PartyUpdatedEvent, renewal.TenantID, renewal.ID),
		State:     state,
		Reason:    string(data.State),
	})

	return nil
}

// ArchiveMovingOutActiveLease archives a moved out active lease and its renewal sibling.
func (t *Transitions) ArchiveMovingOutActiveLease(ctx context.Context, partyID string) TransitionResult {
	return t.archiveActiveLease(ctx, OpArchiveMovedOut, partyID, models.ArchiveReasonResidentsHaveMovedOut)
}

// ArchiveActiveLeaseMissingFromSync archives an active lease absent from the latest external sync.
func (t *Transitions) ArchiveActiveLeaseMissingFromSync(ctx context.Context, partyID string) TransitionResult {
	return t.archiveActiveLease(ctx, OpArchiveMissingSync, partyID, models.ArchiveReasonResidentNotPresentInExternalSync)
}

// ArchiveActiveLeaseMoveInNotConfirmed archives an active lease whose move-in was never confirmed.
func (t *Transitions) ArchiveActiveLeaseMoveInNotConfirmed(ctx context.Context, partyID string) TransitionResult {
	return t.archiveActiveLease(ctx, OpArchiveMoveInPending, partyID, models.ArchiveReasonMoveInNotConfirmed)
}

func (t *Transitions) archiveActiveLease(ctx context.Context, op, partyID string, reason models.ArchiveReason) TransitionResult {
	return t.runBatch(ctx, op, partyID, func(ctx context.Context, tx *Tx) (Outcome, string, error) {
		party, err := t.persistence.Parties().GetByID(ctx, tx, partyID)
		if err != nil {
			return "", "", err
		}

		if !party.IsActive() || party.WorkflowName != models.WorkflowNameActiveLease {
			return OutcomeSkipped, "", nil
		}

		err = t.archiveWithRenewal(ctx, tx, party, reason)
		if err != nil {
			return "", "", err
		}

		return OutcomeApplied, "", nil
	})
}
