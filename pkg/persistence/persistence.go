// Package persistence provides the data access contracts of the party workflow lifecycle.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/shopspring/decimal"
)

// Executor is the unit of work handle every repository call runs on.
// It is satisfied by *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc runs inside a transaction. Returning an error rolls the transaction back.
type TxFunc func(ctx context.Context, tx Executor) error

// Filter scopes an eligibility scan to a tenant and optionally to properties or a party group.
type Filter struct {
	TenantID     string
	PropertyIDs  []string
	PartyGroupID string
}

// Scoped reports whether the filter narrows the tenant population.
func (f Filter) Scoped() bool {
	return len(f.PropertyIDs) > 0 || f.PartyGroupID != ""
}

// EligibleActiveLease is a row returned by active lease eligibility scans.
type EligibleActiveLease struct {
	Party       *models.Party
	ActiveLease *models.ActiveLeaseWorkflowData
}

// EligibleSpawn is a NEW_LEASE or RENEWAL party whose executed lease should start an active lease.
type EligibleSpawn struct {
	Party *models.Party
	Lease *models.Lease
}

type Persistence interface {
	DB() Executor
	InTx(ctx context.Context, fn TxFunc) error

	Parties() PartyRepository
	ActiveLeases() ActiveLeaseRepository
	Leases() LeaseRepository
	Settings() SettingsRepository
	Reports() ReportRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// PartyRepository persists parties and the records copied between incarnations.
type PartyRepository interface {
	GetByID(ctx context.Context, ex Executor, id string) (*models.Party, error)
	Create(ctx context.Context, ex Executor, party *models.Party) error
	Update(ctx context.Context, ex Executor, party *models.Party) error
	Archive(ctx context.Context, ex Executor, partyID string, reason models.ArchiveReason) error

	// GetActiveBySeed returns the active party of the given workflow spawned from seedPartyID, or nil.
	GetActiveBySeed(ctx context.Context, ex Executor, seedPartyID string, workflow models.WorkflowName) (*models.Party, error)
	// GetActiveInGroup returns the active party of the given workflow in a party group, or nil.
	GetActiveInGroup(ctx context.Context, ex Executor, partyGroupID string, workflow models.WorkflowName) (*models.Party, error)

	GetMembers(ctx context.Context, ex Executor, partyID string) ([]*models.PartyMember, error)
	CreateMember(ctx context.Context, ex Executor, member *models.PartyMember) error
	GetAdditionalInfo(ctx context.Context, ex Executor, partyID string) ([]*models.AdditionalInfo, error)
	CreateAdditionalInfo(ctx context.Context, ex Executor, info *models.AdditionalInfo) error

	GetRenewalsWithVacateDatePassed(ctx context.Context, ex Executor, filter Filter) ([]*models.Party, error)
	GetNewLeasesEligibleForActiveLease(ctx context.Context, ex Executor, filter Filter) ([]*EligibleSpawn, error)
	GetRenewalsEligibleForActiveLease(ctx context.Context, ex Executor, filter Filter) ([]*EligibleSpawn, error)
	GetPartiesWithActiveLeaseSuccessor(ctx context.Context, ex Executor, filter Filter, workflow models.WorkflowName) ([]*models.Party, error)
}

// ActiveLeaseRepository persists active lease workflow data and runs the cycle eligibility scans.
type ActiveLeaseRepository interface {
	GetByID(ctx context.Context, ex Executor, id string) (*models.ActiveLeaseWorkflowData, error)
	GetByPartyID(ctx context.Context, ex Executor, partyID string) (*models.ActiveLeaseWorkflowData, error)
	Save(ctx context.Context, ex Executor, data *models.ActiveLeaseWorkflowData) error
	SetExtension(ctx context.Context, ex Executor, id string) error
	UpdateComputedExtensionEndDate(ctx context.Context, ex Executor, id string, endDate time.Time) error
	UpdateStateAndMetadata(ctx context.Context, ex Executor, data *models.ActiveLeaseWorkflowData) error

	// GetActiveByInventory returns active leases occupying an inventory outside the given party group.
	GetActiveByInventory(ctx context.Context, ex Executor, tenantID, inventoryID, excludePartyGroupID string) ([]*EligibleActiveLease, error)

	GetEligibleForRenewal(ctx context.Context, ex Executor, filter Filter) ([]*EligibleActiveLease, error)
	GetEligibleForOneMonthLeaseTerm(ctx context.Context, ex Executor, filter Filter) ([]*EligibleActiveLease, error)
	GetEligibleForExtension(ctx context.Context, ex Executor, filter Filter) ([]*EligibleActiveLease, error)
	GetEligibleMovingOutForExtension(ctx context.Context, ex Executor, filter Filter) ([]*EligibleActiveLease, error)
	GetMovingOutActiveLeases(ctx context.Context, ex Executor, filter Filter) ([]*EligibleActiveLease, error)
	GetExtendedLeasesWithEndDateInPast(ctx context.Context, ex Executor, filter Filter) ([]*EligibleActiveLease, error)
	GetActiveLeasesMissingFromLatestSync(ctx context.Context, ex Executor, filter Filter) ([]*EligibleActiveLease, error)
	GetActiveLeasesWithMoveInNotConfirmed(ctx context.Context, ex Executor, filter Filter) ([]*EligibleActiveLease, error)
}

// LeaseRepository reads lease status and voids leases.
type LeaseRepository interface {
	GetByID(ctx context.Context, ex Executor, id string) (*models.Lease, error)
	GetByPartyID(ctx context.Context, ex Executor, partyID string) ([]*models.Lease, error)
	HasPublishedQuote(ctx context.Context, ex Executor, partyID string) (bool, error)
	Void(ctx context.Context, ex Executor, leaseID string) error
}

// SettingsRepository reads tenants, properties, teams and pricing.
type SettingsRepository interface {
	GetTenant(ctx context.Context, ex Executor, tenantID string) (*models.Tenant, error)
	GetProperty(ctx context.Context, ex Executor, propertyID string) (*models.Property, error)
	GetPropertyByInventory(ctx context.Context, ex Executor, inventoryID string) (*models.Property, error)
	ListProperties(ctx context.Context, ex Executor, tenantID string) ([]*models.Property, error)
	ListTenants(ctx context.Context, ex Executor) ([]*models.Tenant, error)
	UpdatePropertySettings(ctx context.Context, ex Executor, propertyID string, settings models.PropertySettings) error
	GetTeams(ctx context.Context, ex Executor, propertyID string) ([]*models.Team, error)
	GetTeam(ctx context.Context, ex Executor, teamID string) (*models.Team, error)
	// GetOneMonthLeaseTerm returns nil when the property offers no active one-month term.
	GetOneMonthLeaseTerm(ctx context.Context, ex Executor, propertyID string) (*models.LeaseTerm, error)
	GetMonthToMonthRent(ctx context.Context, ex Executor, inventoryID string) (decimal.NullDecimal, error)
}

// ReportRepository is the activity log and exception report sink.
type ReportRepository interface {
	CreateExceptionReport(ctx context.Context, ex Executor, report *models.ExceptionReport) error
	LogActivity(ctx context.Context, ex Executor, entry *models.ActivityLogEntry) error
}
