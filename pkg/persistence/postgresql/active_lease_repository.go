package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
)

// ActiveLeaseRepository handles active lease workflow data and the cycle eligibility scans.
type ActiveLeaseRepository struct {
	logger *slog.Logger
}

// NewActiveLeaseRepository creates a new active lease repository.
func NewActiveLeaseRepository(logger *slog.Logger) *ActiveLeaseRepository {
	return &ActiveLeaseRepository{logger: logger}
}

var _ persistence.ActiveLeaseRepository = (*ActiveLeaseRepository)(nil)

func (r *ActiveLeaseRepository) GetByID(
	ctx context.Context,
	ex persistence.Executor,
	id string,
) (*models.ActiveLeaseWorkflowData, error) {
	query := `
		SELECT
			` + activeLeaseColumns("alwd") + `
		FROM active_lease_workflow_data alwd
		WHERE alwd.id = $1
	`

	return r.getOne(ctx, ex, query, id)
}

func (r *ActiveLeaseRepository) GetByPartyID(
	ctx context.Context,
	ex persistence.Executor,
	partyID string,
) (*models.ActiveLeaseWorkflowData, error) {
	query := `
		SELECT
			` + activeLeaseColumns("alwd") + `
		FROM active_lease_workflow_data alwd
		WHERE alwd.party_id = $1
	`

	return r.getOne(ctx, ex, query, partyID)
}

func (r *ActiveLeaseRepository) getOne(
	ctx context.Context,
	ex persistence.Executor,
	query string,
	key string,
) (*models.ActiveLeaseWorkflowData, error) {
	data, err := scanActiveLease(ex.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrActiveLeaseNotFound, key)
		}

		return nil, fmt.Errorf("failed to get active lease workflow data %s: %w", key, err)
	}

	return data, nil
}

// Save upserts the workflow data keyed by party id. The rollover period is derived from the
// lease term before writing, and the stored row id is copied back into data.
func (r *ActiveLeaseRepository) Save(ctx context.Context, ex persistence.Executor, data *models.ActiveLeaseWorkflowData) error {
	data.NormalizeRollover()

	if data.State == "" {
		data.State = models.ActiveLeaseStateNone
	}

	err := data.Validate()
	if err != nil {
		return fmt.Errorf("invalid active lease workflow data: %w", err)
	}

	if data.ID == "" {
		data.ID = uuid.Must(uuid.NewV7()).String()
	}

	leaseData, err := json.Marshal(data.LeaseData)
	if err != nil {
		return fmt.Errorf("failed to marshal lease data: %w", err)
	}

	metadata, err := json.Marshal(data.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal active lease metadata: %w", err)
	}

	recurringCharges, err := json.Marshal(chargesOrEmpty(data.RecurringCharges))
	if err != nil {
		return fmt.Errorf("failed to marshal recurring charges: %w", err)
	}

	concessions, err := json.Marshal(chargesOrEmpty(data.Concessions))
	if err != nil {
		return fmt.Errorf("failed to marshal concessions: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO active_lease_workflow_data (
			id
		  , tenant_id
		  , party_id
		  , lease_id
		  , state
		  , is_extension
		  , rollover_period
		  , lease_data
		  , metadata
		  , recurring_charges
		  , concessions
		  , is_imported
		  , external_lease_id
		  , created_at
		  , updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $14)
		ON CONFLICT (party_id) DO UPDATE SET
			lease_id = EXCLUDED.lease_id
		  , state = EXCLUDED.state
		  , is_extension = EXCLUDED.is_extension
		  , rollover_period = EXCLUDED.rollover_period
		  , lease_data = EXCLUDED.lease_data
		  , metadata = EXCLUDED.metadata
		  , recurring_charges = EXCLUDED.recurring_charges
		  , concessions = EXCLUDED.concessions
		  , is_imported = EXCLUDED.is_imported
		  , external_lease_id = EXCLUDED.external_lease_id
		  , updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	err = ex.QueryRowContext(ctx, query,
		data.ID,
		data.TenantID,
		data.PartyID,
		data.LeaseID,
		data.State,
		data.IsExtension,
		data.RolloverPeriod,
		leaseData,
		metadata,
		recurringCharges,
		concessions,
		data.IsImported,
		data.ExternalLeaseID,
		now,
	).Scan(&data.ID, &data.CreatedAt, &data.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save active lease workflow data for party %s: %w", data.PartyID, err)
	}

	return nil
}

// SetExtension flags a lease as running past its end date. Month-to-month leases are left untouched.
func (r *ActiveLeaseRepository) SetExtension(ctx context.Context, ex persistence.Executor, id string) error {
	query := `
		UPDATE active_lease_workflow_data SET
			is_extension = TRUE
		  , updated_at = NOW()
		WHERE id = $1 AND rollover_period <> 'm2m'
	`

	result, err := ex.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to set extension on active lease %s: %w", id, err)
	}

	return requireRow(result, fmt.Errorf("%w: %s", persistence.ErrActiveLeaseNotFound, id))
}

func (r *ActiveLeaseRepository) UpdateComputedExtensionEndDate(
	ctx context.Context,
	ex persistence.Executor,
	id string,
	endDate time.Time,
) error {
	query := `
		UPDATE active_lease_workflow_data SET
			lease_data = jsonb_set(lease_data, '{computedExtensionEndDate}', to_jsonb($2::text))
		  , updated_at = NOW()
		WHERE id = $1
	`

	result, err := ex.ExecContext(ctx, query, id, endDate.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to update computed extension end date of active lease %s: %w", id, err)
	}

	return requireRow(result, fmt.Errorf("%w: %s", persistence.ErrActiveLeaseNotFound, id))
}

func (r *ActiveLeaseRepository) UpdateStateAndMetadata(
	ctx context.Context,
	ex persistence.Executor,
	data *models.ActiveLeaseWorkflowData,
) error {
	if !data.State.IsValid() {
		return fmt.Errorf("%w: active lease state %q", models.ErrUnknownValue, data.State)
	}

	metadata, err := json.Marshal(data.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal active lease metadata: %w", err)
	}

	query := `
		UPDATE active_lease_workflow_data SET
			state = $2
		  , metadata = $3
		  , updated_at = NOW()
		WHERE id = $1
	`

	result, err := ex.ExecContext(ctx, query, data.ID, data.State, metadata)
	if err != nil {
		return fmt.Errorf("failed to update state of active lease %s: %w", data.ID, err)
	}

	return requireRow(result, fmt.Errorf("%w: %s", persistence.ErrActiveLeaseNotFound, data.ID))
}

func (r *ActiveLeaseRepository) GetActiveByInventory(
	ctx context.Context,
	ex persistence.Executor,
	tenantID, inventoryID, excludePartyGroupID string,
) ([]*persistence.EligibleActiveLease, error) {
	query := `
		SELECT
			` + partyColumns("p") + `
		  , ` + activeLeaseColumns("alwd") + `
		FROM parties p
		JOIN active_lease_workflow_data alwd ON alwd.party_id = p.id
		WHERE p.tenant_id = $1
		  AND p.workflow_name = 'activeLease'
		  AND p.workflow_state = 'active'
		  AND alwd.lease_data->>'inventoryId' = $2
		  AND p.party_group_id::text <> $3
		ORDER BY p.created_at ASC, p.id ASC
	`

	leases, err := queryAll(ctx, r.logger, ex, scanEligibleActiveLease, query, tenantID, inventoryID, excludePartyGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active leases for inventory %s: %w", inventoryID, err)
	}

	return leases, nil
}

// GetEligibleForRenewal returns leases inside the property's renewal window that have
// not spawned a renewal yet. A renewal voided because the vacate date passed is cycled
// out and does not count.
func (r *ActiveLeaseRepository) GetEligibleForRenewal(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleActiveLease, error) {
	condition := `
		  AND alwd.state = 'none'
		  AND alwd.is_extension = FALSE
		  AND alwd.rollover_period = 'none'
		  AND COALESCE((prop.settings->'renewals'->>'renewalCycleStart')::int, 0) > 0
		  AND ` + leaseDataDate("leaseEndDate") + ` <= ` + propertyToday + ` + COALESCE((prop.settings->'renewals'->>'renewalCycleStart')::int, 0)
		  AND NOT EXISTS (
			SELECT 1 FROM parties rp
			WHERE rp.seed_party_id = p.id AND rp.workflow_name = 'renewal'
			  AND (rp.workflow_state = 'active' OR rp.archive_reason_id IS DISTINCT FROM 'ACTIVE_LEASE_VACATE_DATE_PASSED')
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM leases vl
			WHERE vl.id = alwd.lease_id AND vl.status = 'voided'
		  )`

	return r.scan(ctx, ex, "eligible for renewal", filter, "", condition)
}

// GetEligibleForOneMonthLeaseTerm returns ended leases whose renewal has a published quote
// but no submitted or executed lease.
func (r *ActiveLeaseRepository) GetEligibleForOneMonthLeaseTerm(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleActiveLease, error) {
	condition := `
		  AND alwd.state = 'none'
		  AND alwd.rollover_period = 'none'
		  AND ` + propertyDate("COALESCE(alwd.lease_data->>'computedExtensionEndDate', alwd.lease_data->>'leaseEndDate')") + ` < ` + propertyToday + `
		  AND EXISTS (
			SELECT 1 FROM parties rp
			WHERE rp.seed_party_id = p.id
			  AND rp.workflow_name = 'renewal'
			  AND rp.workflow_state = 'active'
			  AND EXISTS (SELECT 1 FROM quotes q WHERE q.party_id = rp.id AND q.published_at IS NOT NULL)
			  AND NOT EXISTS (
				SELECT 1 FROM leases rl
				WHERE rl.party_id = rp.id AND rl.status IN ('submitted', 'executed')
			  )
		  )`

	return r.scan(ctx, ex, "eligible for one-month lease term", filter, "", condition)
}

// GetEligibleForExtension returns ended fixed-term leases without a renewal quote to roll onto.
func (r *ActiveLeaseRepository) GetEligibleForExtension(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleActiveLease, error) {
	condition := `
		  AND alwd.state = 'none'
		  AND alwd.is_extension = FALSE
		  AND alwd.rollover_period = 'none'
		  AND ` + leaseDataDate("leaseEndDate") + ` < ` + propertyToday + `
		  AND NOT EXISTS (
			SELECT 1 FROM parties rp
			WHERE rp.seed_party_id = p.id
			  AND rp.workflow_name = 'renewal'
			  AND rp.workflow_state = 'active'
			  AND EXISTS (SELECT 1 FROM quotes q WHERE q.party_id = rp.id AND q.published_at IS NOT NULL)
		  )`

	return r.scan(ctx, ex, "eligible for extension", filter, "", condition)
}

// GetEligibleMovingOutForExtension returns ended moving-out leases whose vacate date is after the lease end.
func (r *ActiveLeaseRepository) GetEligibleMovingOutForExtension(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleActiveLease, error) {
	condition := `
		  AND alwd.state = 'movingOut'
		  AND alwd.is_extension = FALSE
		  AND alwd.rollover_period = 'none'
		  AND ` + leaseDataDate("leaseEndDate") + ` < ` + propertyToday + `
		  AND alwd.metadata->>'vacateDate' IS NOT NULL
		  AND (alwd.metadata->>'vacateDate')::timestamptz > (alwd.lease_data->>'leaseEndDate')::timestamptz`

	return r.scan(ctx, ex, "moving out eligible for extension", filter, "", condition)
}

// GetMovingOutActiveLeases returns confirmed move-outs whose vacate date is today or earlier.
func (r *ActiveLeaseRepository) GetMovingOutActiveLeases(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleActiveLease, error) {
	condition := `
		  AND COALESCE((alwd.metadata->>'moveOutConfirmed')::boolean, FALSE) = TRUE
		  AND alwd.metadata->>'vacateDate' IS NOT NULL
		  AND ` + metadataDate("vacateDate") + ` <= ` + propertyToday

	return r.scan(ctx, ex, "moving out", filter, "", condition)
}

// GetExtendedLeasesWithEndDateInPast returns extensions whose computed end date elapsed or was never set.
func (r *ActiveLeaseRepository) GetExtendedLeasesWithEndDateInPast(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleActiveLease, error) {
	condition := `
		  AND alwd.is_extension = TRUE
		  AND (
			alwd.lease_data->>'computedExtensionEndDate' IS NULL
			OR ` + leaseDataDate("computedExtensionEndDate") + ` < ` + propertyToday + `
		  )`

	return r.scan(ctx, ex, "extended with end date in past", filter, "", condition)
}

// GetActiveLeasesMissingFromLatestSync returns imported leases absent from the property's
// latest successful external sync.
func (r *ActiveLeaseRepository) GetActiveLeasesMissingFromLatestSync(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleActiveLease, error) {
	join := `
		JOIN LATERAL (
			SELECT s.id FROM external_sync_runs s
			WHERE s.property_id = prop.id AND s.status = 'succeeded'
			ORDER BY s.completed_at DESC
			LIMIT 1
		) latest ON TRUE`

	condition := `
		  AND alwd.is_imported = TRUE
		  AND alwd.external_lease_id IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM external_sync_records sr
			WHERE sr.sync_run_id = latest.id AND sr.external_primary_id = alwd.external_lease_id
		  )`

	return r.scan(ctx, ex, "missing from latest sync", filter, join, condition)
}

// GetActiveLeasesWithMoveInNotConfirmed returns non-imported leases that started more than the
// property's grace period ago without a move-in confirmation.
func (r *ActiveLeaseRepository) GetActiveLeasesWithMoveInNotConfirmed(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleActiveLease, error) {
	condition := `
		  AND alwd.is_imported = FALSE
		  AND COALESCE((prop.settings->'moveIn'->>'confirmationGraceDays')::int, 0) > 0
		  AND COALESCE((alwd.metadata->>'moveInConfirmed')::boolean, FALSE) = FALSE
		  AND ` + leaseDataDate("leaseStartDate") + ` + COALESCE((prop.settings->'moveIn'->>'confirmationGraceDays')::int, 0) < ` + propertyToday

	return r.scan(ctx, ex, "move-in not confirmed", filter, "", condition)
}

// scan runs an eligibility query over active ACTIVE_LEASE parties joined with their workflow data and
// property. Results are ordered by lease end date, then party id.
func (r *ActiveLeaseRepository) scan(
	ctx context.Context,
	ex persistence.Executor,
	name string,
	filter persistence.Filter,
	join string,
	condition string,
) ([]*persistence.EligibleActiveLease, error) {
	where, args := filterClause("p", filter, nil)

	query := `
		SELECT
			` + partyColumns("p") + `
		  , ` + activeLeaseColumns("alwd") + `
		FROM parties p
		JOIN active_lease_workflow_data alwd ON alwd.party_id = p.id
		JOIN properties prop ON prop.id = p.assigned_property_id` + join + `
		WHERE p.workflow_name = 'activeLease'
		  AND p.workflow_state = 'active'` + condition + where + `
		ORDER BY (alwd.lease_data->>'leaseEndDate')::timestamptz ASC, p.id ASC
	`

	leases, err := queryAll(ctx, r.logger, ex, scanEligibleActiveLease, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get active leases %s: %w", name, err)
	}

	r.logger.DebugContext(ctx, "eligibility scan", "scan", name, "tenant_id", filter.TenantID, "count", len(leases))

	return leases, nil
}

func chargesOrEmpty(charges []models.Charge) []models.Charge {
	if charges == nil {
		return []models.Charge{}
	}

	return charges
}
