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
	"github.com/lib/pq"
)

// PartyRepository handles party-related database operations.
type PartyRepository struct {
	logger *slog.Logger
}

// NewPartyRepository creates a new party repository.
func NewPartyRepository(logger *slog.Logger) *PartyRepository {
	return &PartyRepository{logger: logger}
}

var _ persistence.PartyRepository = (*PartyRepository)(nil)

func (r *PartyRepository) GetByID(ctx context.Context, ex persistence.Executor, id string) (*models.Party, error) {
	query := `
		SELECT
			` + partyColumns("p") + `
		FROM parties p
		WHERE p.id = $1
	`

	party, err := scanParty(ex.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewPartyError("get", id, persistence.ErrPartyNotFound)
		}

		return nil, fmt.Errorf("failed to get party %s: %w", id, err)
	}

	return party, nil
}

// Create inserts a party, assigning an id and timestamps when missing.
func (r *PartyRepository) Create(ctx context.Context, ex persistence.Executor, party *models.Party) error {
	if party.ID == "" {
		party.ID = uuid.Must(uuid.NewV7()).String()
	}

	now := time.Now().UTC()
	party.CreatedAt = now
	party.UpdatedAt = now

	if party.WorkflowState == "" {
		party.WorkflowState = models.WorkflowStateActive
	}

	metadata, err := json.Marshal(party.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal party metadata: %w", err)
	}

	query := `
		INSERT INTO parties (
			id
		  , tenant_id
		  , workflow_name
		  , workflow_state
		  , state
		  , seed_party_id
		  , party_group_id
		  , assigned_property_id
		  , owner_team_id
		  , user_id
		  , collaborators
		  , teams
		  , metadata
		  , created_at
		  , updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid, NULLIF($10, '')::uuid, $11, $12, $13, $14, $15)
	`

	_, err = ex.ExecContext(ctx, query,
		party.ID,
		party.TenantID,
		party.WorkflowName,
		party.WorkflowState,
		party.State,
		party.SeedPartyID,
		party.PartyGroupID,
		party.AssignedPropertyID,
		party.OwnerTeamID,
		party.UserID,
		pq.Array(nonNil(party.Collaborators)),
		pq.Array(nonNil(party.Teams)),
		metadata,
		party.CreatedAt,
		party.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create party: %w", err)
	}

	return nil
}

// Update writes the mutable fields of a party.
func (r *PartyRepository) Update(ctx context.Context, ex persistence.Executor, party *models.Party) error {
	metadata, err := json.Marshal(party.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal party metadata: %w", err)
	}

	party.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE parties SET
			state = $2
		  , owner_team_id = NULLIF($3, '')::uuid
		  , user_id = NULLIF($4, '')::uuid
		  , collaborators = $5
		  , teams = $6
		  , metadata = $7
		  , updated_at = $8
		WHERE id = $1
	`

	result, err := ex.ExecContext(ctx, query,
		party.ID,
		party.State,
		party.OwnerTeamID,
		party.UserID,
		pq.Array(nonNil(party.Collaborators)),
		pq.Array(nonNil(party.Teams)),
		metadata,
		party.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update party %s: %w", party.ID, err)
	}

	return requireRow(result, persistence.NewPartyError("update", party.ID, persistence.ErrPartyNotFound))
}

// Archive moves an active party to the archived workflow state with a reason.
func (r *PartyRepository) Archive(
	ctx context.Context,
	ex persistence.Executor,
	partyID string,
	reason models.ArchiveReason,
) error {
	query := `
		UPDATE parties SET
			workflow_state = 'archived'
		  , archive_date = NOW()
		  , archive_reason_id = $2
		  , updated_at = NOW()
		WHERE id = $1 AND workflow_state = 'active'
	`

	result, err := ex.ExecContext(ctx, query, partyID, reason)
	if err != nil {
		return fmt.Errorf("failed to archive party %s: %w", partyID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		return nil
	}

	_, err = r.GetByID(ctx, ex, partyID)
	if err != nil {
		return err
	}

	return persistence.NewPartyError("archive", partyID, persistence.ErrPartyAlreadyArchived)
}

func (r *PartyRepository) GetActiveBySeed(
	ctx context.Context,
	ex persistence.Executor,
	seedPartyID string,
	workflow models.WorkflowName,
) (*models.Party, error) {
	query := `
		SELECT
			` + partyColumns("p") + `
		FROM parties p
		WHERE p.seed_party_id = $1 AND p.workflow_name = $2 AND p.workflow_state = 'active'
		ORDER BY p.created_at DESC
		LIMIT 1
	`

	return r.optionalParty(ctx, ex, query, seedPartyID, workflow)
}

func (r *PartyRepository) GetActiveInGroup(
	ctx context.Context,
	ex persistence.Executor,
	partyGroupID string,
	workflow models.WorkflowName,
) (*models.Party, error) {
	query := `
		SELECT
			` + partyColumns("p") + `
		FROM parties p
		WHERE p.party_group_id = $1 AND p.workflow_name = $2 AND p.workflow_state = 'active'
		ORDER BY p.created_at DESC
		LIMIT 1
	`

	return r.optionalParty(ctx, ex, query, partyGroupID, workflow)
}

func (r *PartyRepository) optionalParty(
	ctx context.Context,
	ex persistence.Executor,
	query string,
	args ...any,
) (*models.Party, error) {
	party, err := scanParty(ex.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get party: %w", err)
	}

	return party, nil
}

func (r *PartyRepository) GetMembers(ctx context.Context, ex persistence.Executor, partyID string) ([]*models.PartyMember, error) {
	query := `
		SELECT
			id
		  , party_id
		  , person_id
		  , member_type
		  , end_date
		FROM party_members
		WHERE party_id = $1
		ORDER BY id
	`

	members, err := queryAll(ctx, r.logger, ex, func(scanner rowScanner) (*models.PartyMember, error) {
		var member models.PartyMember

		err := scanner.Scan(&member.ID, &member.PartyID, &member.PersonID, &member.MemberType, &member.EndDate)

		return &member, err
	}, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of party %s: %w", partyID, err)
	}

	return members, nil
}

// CreateMember inserts a member; its tenant is taken from the owning party.
func (r *PartyRepository) CreateMember(ctx context.Context, ex persistence.Executor, member *models.PartyMember) error {
	if member.ID == "" {
		member.ID = uuid.Must(uuid.NewV7()).String()
	}

	query := `
		INSERT INTO party_members (id, tenant_id, party_id, person_id, member_type, end_date)
		SELECT $1, p.tenant_id, p.id, $3, $4, $5
		FROM parties p
		WHERE p.id = $2
	`

	result, err := ex.ExecContext(ctx, query, member.ID, member.PartyID, member.PersonID, member.MemberType, member.EndDate)
	if err != nil {
		return fmt.Errorf("failed to create member for party %s: %w", member.PartyID, err)
	}

	return requireRow(result, persistence.NewPartyError("create member", member.PartyID, persistence.ErrPartyNotFound))
}

func (r *PartyRepository) GetAdditionalInfo(
	ctx context.Context,
	ex persistence.Executor,
	partyID string,
) ([]*models.AdditionalInfo, error) {
	query := `
		SELECT
			id
		  , party_id
		  , type
		  , info
		  , end_date
		FROM party_additional_info
		WHERE party_id = $1
		ORDER BY id
	`

	infos, err := queryAll(ctx, r.logger, ex, func(scanner rowScanner) (*models.AdditionalInfo, error) {
		var (
			info models.AdditionalInfo
			raw  []byte
		)

		err := scanner.Scan(&info.ID, &info.PartyID, &info.Type, &raw, &info.EndDate)
		if err != nil {
			return nil, err
		}

		if len(raw) > 0 {
			err = json.Unmarshal(raw, &info.Info)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal additional info %s: %w", info.ID, err)
			}
		}

		return &info, nil
	}, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get additional info of party %s: %w", partyID, err)
	}

	return infos, nil
}

func (r *PartyRepository) CreateAdditionalInfo(ctx context.Context, ex persistence.Executor, info *models.AdditionalInfo) error {
	if info.ID == "" {
		info.ID = uuid.Must(uuid.NewV7()).String()
	}

	payload, err := json.Marshal(info.Info)
	if err != nil {
		return fmt.Errorf("failed to marshal additional info: %w", err)
	}

	query := `
		INSERT INTO party_additional_info (id, tenant_id, party_id, type, info, end_date)
		SELECT $1, p.tenant_id, p.id, $3, $4, $5
		FROM parties p
		WHERE p.id = $2
	`

	result, err := ex.ExecContext(ctx, query, info.ID, info.PartyID, info.Type, payload, info.EndDate)
	if err != nil {
		return fmt.Errorf("failed to create additional info for party %s: %w", info.PartyID, err)
	}

	return requireRow(result, persistence.NewPartyError("create additional info", info.PartyID, persistence.ErrPartyNotFound))
}

// GetRenewalsWithVacateDatePassed returns active renewals whose seed active lease is moving out
// with a vacate date before today. Confirmed move-outs are left to the moved-out archive, which
// archives the renewal together with its active lease.
func (r *PartyRepository) GetRenewalsWithVacateDatePassed(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*models.Party, error) {
	where, args := filterClause("p", filter, nil)

	query := `
		SELECT
			` + partyColumns("p") + `
		FROM parties p
		JOIN active_lease_workflow_data alwd ON alwd.party_id = p.seed_party_id
		JOIN properties prop ON prop.id = p.assigned_property_id
		WHERE p.workflow_name = 'renewal'
		  AND p.workflow_state = 'active'
		  AND alwd.state = 'movingOut'
		  AND COALESCE((alwd.metadata->>'moveOutConfirmed')::boolean, FALSE) = FALSE
		  AND alwd.metadata->>'vacateDate' IS NOT NULL
		  AND ` + metadataDate("vacateDate") + ` < ` + propertyToday + where + `
		ORDER BY ` + metadataDate("vacateDate") + ` ASC, p.id ASC
	`

	parties, err := queryAll(ctx, r.logger, ex, scanParty, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get renewals with vacate date passed: %w", err)
	}

	return parties, nil
}

func (r *PartyRepository) GetNewLeasesEligibleForActiveLease(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleSpawn, error) {
	return r.eligibleSpawns(ctx, ex, filter, models.WorkflowNameNewLease)
}

func (r *PartyRepository) GetRenewalsEligibleForActiveLease(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
) ([]*persistence.EligibleSpawn, error) {
	return r.eligibleSpawns(ctx, ex, filter, models.WorkflowNameRenewal)
}

// eligibleSpawns selects active parties of a workflow holding an executed lease that has
// started and has not yet produced an active lease.
func (r *PartyRepository) eligibleSpawns(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
	workflow models.WorkflowName,
) ([]*persistence.EligibleSpawn, error) {
	where, args := filterClause("p", filter, []any{workflow})
	startDate := propertyDate("l.baseline_data->>'leaseStartDate'")

	query := `
		SELECT
			` + partyColumns("p") + `
		  , ` + leaseColumns("l") + `
		FROM parties p
		JOIN leases l ON l.party_id = p.id AND l.status = 'executed'
		JOIN properties prop ON prop.id = p.assigned_property_id
		WHERE p.workflow_name = $1
		  AND p.workflow_state = 'active'
		  AND l.baseline_data->>'leaseStartDate' IS NOT NULL
		  AND ` + startDate + ` <= ` + propertyToday + `
		  AND NOT EXISTS (
			SELECT 1 FROM parties a
			WHERE a.seed_party_id = p.id AND a.workflow_name = 'activeLease'
		  )` + where + `
		ORDER BY ` + startDate + ` ASC, p.id ASC
	`

	spawns, err := queryAll(ctx, r.logger, ex, scanEligibleSpawn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s parties eligible for active lease: %w", workflow, err)
	}

	return spawns, nil
}

// GetPartiesWithActiveLeaseSuccessor returns still-active parties of a workflow that already
// spawned an active lease.
func (r *PartyRepository) GetPartiesWithActiveLeaseSuccessor(
	ctx context.Context,
	ex persistence.Executor,
	filter persistence.Filter,
	workflow models.WorkflowName,
) ([]*models.Party, error) {
	where, args := filterClause("p", filter, []any{workflow})

	query := `
		SELECT
			` + partyColumns("p") + `
		FROM parties p
		WHERE p.workflow_name = $1
		  AND p.workflow_state = 'active'
		  AND EXISTS (
			SELECT 1 FROM parties a
			WHERE a.seed_party_id = p.id AND a.workflow_name = 'activeLease'
		  )` + where + `
		ORDER BY p.created_at ASC, p.id ASC
	`

	parties, err := queryAll(ctx, r.logger, ex, scanParty, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s parties with active lease successor: %w", workflow, err)
	}

	return parties, nil
}

func requireRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
