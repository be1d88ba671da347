package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/lib/pq"
)

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func partyColumns(alias string) string {
	columns := []string{
		"id", "tenant_id", "workflow_name", "workflow_state", "state", "seed_party_id", "party_group_id",
		"assigned_property_id", "COALESCE(%s.owner_team_id::text, '')", "COALESCE(%s.user_id::text, '')",
		"collaborators", "teams", "metadata", "archive_date", "archive_reason_id", "created_at", "updated_at",
	}

	return qualify(alias, columns)
}

func activeLeaseColumns(alias string) string {
	columns := []string{
		"id", "tenant_id", "party_id", "lease_id", "state", "is_extension", "rollover_period", "lease_data",
		"metadata", "recurring_charges", "concessions", "is_imported",
		"COALESCE(%s.external_lease_id, '')", "created_at", "updated_at",
	}

	return qualify(alias, columns)
}

func leaseColumns(alias string) string {
	columns := []string{
		"id", "tenant_id", "party_id", "status", "baseline_data", "COALESCE(%s.external_lease_id, '')",
		"sign_date", "created_at", "updated_at",
	}

	return qualify(alias, columns)
}

func qualify(alias string, columns []string) string {
	qualified := make([]string, len(columns))

	for i, column := range columns {
		if strings.Contains(column, "%s") {
			qualified[i] = fmt.Sprintf(column, alias)

			continue
		}

		qualified[i] = alias + "." + column
	}

	return strings.Join(qualified, "\n\t\t  , ")
}

type partyRow struct {
	party         models.Party
	collaborators pq.StringArray
	teams         pq.StringArray
	metadata      []byte
	archiveReason sql.NullString
}

func (r *partyRow) dest() []any {
	return []any{
		&r.party.ID, &r.party.TenantID, &r.party.WorkflowName, &r.party.WorkflowState, &r.party.State,
		&r.party.SeedPartyID, &r.party.PartyGroupID, &r.party.AssignedPropertyID, &r.party.OwnerTeamID,
		&r.party.UserID, &r.collaborators, &r.teams, &r.metadata, &r.party.ArchiveDate, &r.archiveReason,
		&r.party.CreatedAt, &r.party.UpdatedAt,
	}
}

func (r *partyRow) finish() (*models.Party, error) {
	party := r.party
	party.Collaborators = []string(r.collaborators)
	party.Teams = []string(r.teams)

	if len(r.metadata) > 0 {
		err := json.Unmarshal(r.metadata, &party.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata of party %s: %w", party.ID, err)
		}
	}

	if r.archiveReason.Valid {
		reason := models.ArchiveReason(r.archiveReason.String)
		party.ArchiveReasonID = &reason
	}

	return &party, nil
}

type activeLeaseRow struct {
	data             models.ActiveLeaseWorkflowData
	leaseData        []byte
	metadata         []byte
	recurringCharges []byte
	concessions      []byte
}

func (r *activeLeaseRow) dest() []any {
	return []any{
		&r.data.ID, &r.data.TenantID, &r.data.PartyID, &r.data.LeaseID, &r.data.State, &r.data.IsExtension,
		&r.data.RolloverPeriod, &r.leaseData, &r.metadata, &r.recurringCharges, &r.concessions,
		&r.data.IsImported, &r.data.ExternalLeaseID, &r.data.CreatedAt, &r.data.UpdatedAt,
	}
}

func (r *activeLeaseRow) finish() (*models.ActiveLeaseWorkflowData, error) {
	data := r.data

	documents := []struct {
		name   string
		raw    []byte
		target any
	}{
		{"lease_data", r.leaseData, &data.LeaseData},
		{"metadata", r.metadata, &data.Metadata},
		{"recurring_charges", r.recurringCharges, &data.RecurringCharges},
		{"concessions", r.concessions, &data.Concessions},
	}

	for _, document := range documents {
		if len(document.raw) == 0 {
			continue
		}

		err := json.Unmarshal(document.raw, document.target)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s of active lease %s: %w", document.name, data.ID, err)
		}
	}

	return &data, nil
}

type leaseRow struct {
	lease    models.Lease
	baseline []byte
}

func (r *leaseRow) dest() []any {
	return []any{
		&r.lease.ID, &r.lease.TenantID, &r.lease.PartyID, &r.lease.Status, &r.baseline,
		&r.lease.ExternalLeaseID, &r.lease.SignDate, &r.lease.CreatedAt, &r.lease.UpdatedAt,
	}
}

func (r *leaseRow) finish() (*models.Lease, error) {
	lease := r.lease

	if len(r.baseline) > 0 {
		err := json.Unmarshal(r.baseline, &lease.BaselineData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal baseline data of lease %s: %w", lease.ID, err)
		}
	}

	return &lease, nil
}

func scanParty(scanner rowScanner) (*models.Party, error) {
	var row partyRow

	err := scanner.Scan(row.dest()...)
	if err != nil {
		return nil, err
	}

	return row.finish()
}

func scanActiveLease(scanner rowScanner) (*models.ActiveLeaseWorkflowData, error) {
	var row activeLeaseRow

	err := scanner.Scan(row.dest()...)
	if err != nil {
		return nil, err
	}

	return row.finish()
}

func scanLease(scanner rowScanner) (*models.Lease, error) {
	var row leaseRow

	err := scanner.Scan(row.dest()...)
	if err != nil {
		return nil, err
	}

	return row.finish()
}

// scanEligibleActiveLease reads a row selected with partyColumns followed by activeLeaseColumns.
func scanEligibleActiveLease(scanner rowScanner) (*persistence.EligibleActiveLease, error) {
	var (
		party  partyRow
		active activeLeaseRow
	)

	err := scanner.Scan(append(party.dest(), active.dest()...)...)
	if err != nil {
		return nil, err
	}

	p, err := party.finish()
	if err != nil {
		return nil, err
	}

	a, err := active.finish()
	if err != nil {
		return nil, err
	}

	return &persistence.EligibleActiveLease{Party: p, ActiveLease: a}, nil
}

// scanEligibleSpawn reads a row selected with partyColumns followed by leaseColumns.
func scanEligibleSpawn(scanner rowScanner) (*persistence.EligibleSpawn, error) {
	var (
		party partyRow
		lease leaseRow
	)

	err := scanner.Scan(append(party.dest(), lease.dest()...)...)
	if err != nil {
		return nil, err
	}

	p, err := party.finish()
	if err != nil {
		return nil, err
	}

	l, err := lease.finish()
	if err != nil {
		return nil, err
	}

	return &persistence.EligibleSpawn{Party: p, Lease: l}, nil
}

// queryAll runs query and collects every row through scan.
func queryAll[T any](
	ctx context.Context,
	logger *slog.Logger,
	ex persistence.Executor,
	scan func(rowScanner) (T, error),
	query string,
	args ...any,
) ([]T, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	results := make([]T, 0)

	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}

		results = append(results, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return results, nil
}

// filterClause renders the tenant, property and party group restrictions of a scan
// against the parties alias, numbering placeholders from the next free argument.
func filterClause(alias string, filter persistence.Filter, args []any) (string, []any) {
	var clause strings.Builder

	args = append(args, filter.TenantID)
	clause.WriteString(fmt.Sprintf(" AND %s.tenant_id = $%d", alias, len(args)))

	if len(filter.PropertyIDs) > 0 {
		args = append(args, pq.Array(filter.PropertyIDs))
		clause.WriteString(fmt.Sprintf(" AND %s.assigned_property_id::text = ANY($%d)", alias, len(args)))
	}

	if filter.PartyGroupID != "" {
		args = append(args, filter.PartyGroupID)
		clause.WriteString(fmt.Sprintf(" AND %s.party_group_id = $%d", alias, len(args)))
	}

	return clause.String(), args
}

// Dates stored in JSON documents are compared as calendar days in the property's timezone.
const propertyToday = `(NOW() AT TIME ZONE prop.timezone)::date`

func propertyDate(expression string) string {
	return "((" + expression + ")::timestamptz AT TIME ZONE prop.timezone)::date"
}

func leaseDataDate(field string) string {
	return propertyDate("alwd.lease_data->>'" + field + "'")
}

func metadataDate(field string) string {
	return propertyDate("alwd.metadata->>'" + field + "'")
}
