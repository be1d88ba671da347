package services

import (
	"context"
	"fmt"

	"github.com/leaseflow/leaseflow/pkg/models"
)

const (
	OpSetExtension           = "set_extension"
	OpUpdateExtensionEndDate = "update_extension_end_date"
)

// SetExtensionOnActiveLease flags an expired active lease as an extension and
// archives its renewal sibling, which never published a quote.
func (t *Transitions) SetExtensionOnActiveLease(ctx context.Context, workflowDataID string) TransitionResult {
	return t.runBatch(ctx, OpSetExtension, workflowDataID, func(ctx context.Context, tx *Tx) (Outcome, string, error) {
		data, err := t.persistence.ActiveLeases().GetByID(ctx, tx, workflowDataID)
		if err != nil {
			return "", "", err
		}

		if data.IsExtension || data.RolloverPeriod == models.RolloverPeriodM2M {
			return OutcomeSkipped, data.PartyID, nil
		}

		party, err := t.persistence.Parties().GetByID(ctx, tx, data.PartyID)
		if err != nil {
			return "", "", err
		}

		if !party.IsActive() {
			return OutcomeSkipped, party.ID, nil
		}

		err = t.persistence.ActiveLeases().SetExtension(ctx, tx, data.ID)
		if err != nil {
			return "", "", fmt.Errorf("failed to set extension: %w", err)
		}

		err = t.logActivity(ctx, tx, party, models.ActivityActionUpdate, map[string]any{
			"isExtension":  true,
			"leaseEndDate": data.LeaseData.LeaseEndDate,
		})
		if err != nil {
			return "", "", err
		}

		err = t.archiveRenewalSibling(ctx, tx, party, models.ArchiveReasonLeaseInPastNoPublishedQuote)
		if err != nil {
			return "", "", err
		}

		t.logger.InfoContext(ctx, "active lease extended", "tenant_id", party.TenantID, "party_id", party.ID)

		return OutcomeApplied, party.ID, nil
	})
}

// UpdateExtensionLeaseEndDate moves the computed end of an extension to the
// first monthly anniversary of its current end that is after now.
func (t *Transitions) UpdateExtensionLeaseEndDate(ctx context.Context, workflowDataID string) TransitionResult {
	return t.runBatch(ctx, OpUpdateExtensionEndDate, workflowDataID, func(ctx context.Context, tx *Tx) (Outcome, string, error) {
		data, err := t.persistence.ActiveLeases().GetByID(ctx, tx, workflowDataID)
		if err != nil {
			return "", "", err
		}

		now := t.now()

		if !data.IsExtension {
			return OutcomeSkipped, data.PartyID, nil
		}

		computed := data.LeaseData.ComputedExtensionEndDate
		if computed != nil && computed.After(now) {
			return OutcomeSkipped, data.PartyID, nil
		}

		next := models.NextExtensionEndDate(data.LeaseData.EffectiveEndDate(), now)

		err = t.persistence.ActiveLeases().UpdateComputedExtensionEndDate(ctx, tx, data.ID, next)
		if err != nil {
			return "", "", fmt.Errorf("failed to update computed extension end date: %w", err)
		}

		t.logger.DebugContext(ctx, "extension end date updated",
			"tenant_id", data.TenantID, "party_id", data.PartyID, "computed_extension_end_date", next)

		return OutcomeApplied, data.PartyID, nil
	})
}
