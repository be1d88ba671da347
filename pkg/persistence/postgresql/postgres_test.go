package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/leaseflow/leaseflow/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = testcontainers.TerminateContainer(postgresContainer)
	}

	os.Exit(code)
}

var tables = []string{
	"activity_logs", "exception_reports", "external_sync_records", "external_sync_runs",
	"active_lease_workflow_data", "leases", "quotes", "party_additional_info", "party_members", "parties",
	"lease_terms", "inventories", "teams", "properties", "tenants", "schema_migrations",
}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range tables {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("leaseflow_test"),
			postgres.WithUsername("leaseflow"),
			postgres.WithPassword("leaseflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

type fixture struct {
	t          *testing.T
	ctx        context.Context
	p          *postgresql.Persistence
	tenantID   string
	propertyID string
	today      time.Time
}

const defaultPropertySettings = `{"renewals": {"renewalCycleStart": 60}, "moveIn": {"confirmationGraceDays": 5}}`

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p, ctx, _ := setupTestDB(t)

	f := &fixture{
		t:        t,
		ctx:      ctx,
		p:        p,
		tenantID: uuid.NewString(),
		today:    time.Now().UTC().Truncate(24 * time.Hour),
	}

	f.exec(`INSERT INTO tenants (id, name, settings) VALUES ($1, 'acme', '{"features": {"enableRenewals": true}}')`, f.tenantID)
	f.propertyID = f.addProperty(defaultPropertySettings)

	return f
}

func (f *fixture) exec(query string, args ...any) {
	f.t.Helper()

	_, err := f.p.DB().ExecContext(f.ctx, query, args...)
	require.NoError(f.t, err)
}

func (f *fixture) addProperty(settings string) string {
	f.t.Helper()

	id := uuid.NewString()
	f.exec(`INSERT INTO properties (id, tenant_id, name, timezone, settings) VALUES ($1, $2, $3, 'UTC', $4)`,
		id, f.tenantID, "property-"+id[:8], settings)

	return id
}

func (f *fixture) createParty(workflow models.WorkflowName, propertyID string, seed *models.Party) *models.Party {
	f.t.Helper()

	party := &models.Party{
		TenantID:           f.tenantID,
		WorkflowName:       workflow,
		WorkflowState:      models.WorkflowStateActive,
		State:              models.PartyStateResident,
		PartyGroupID:       uuid.NewString(),
		AssignedPropertyID: propertyID,
	}

	if seed != nil {
		party.SeedPartyID = &seed.ID
		party.PartyGroupID = seed.PartyGroupID
	}

	require.NoError(f.t, f.p.Parties().Create(f.ctx, f.p.DB(), party))

	return party
}

func (f *fixture) createActiveLease(propertyID string, start, end time.Time, term int) (*models.Party, *models.ActiveLeaseWorkflowData) {
	f.t.Helper()

	party := f.createParty(models.WorkflowNameActiveLease, propertyID, nil)
	data := &models.ActiveLeaseWorkflowData{
		TenantID: f.tenantID,
		PartyID:  party.ID,
		State:    models.ActiveLeaseStateNone,
		LeaseData: models.LeaseData{
			LeaseStartDate: start,
			LeaseEndDate:   end,
			InventoryID:    uuid.NewString(),
			UnitRent:       decimal.NewFromInt(1500),
			LeaseTerm:      term,
		},
	}

	require.NoError(f.t, f.p.ActiveLeases().Save(f.ctx, f.p.DB(), data))

	return party, data
}

func (f *fixture) filter() persistence.Filter {
	return persistence.Filter{TenantID: f.tenantID}
}

func partyIDs(leases []*persistence.EligibleActiveLease) []string {
	ids := make([]string, 0, len(leases))
	for _, lease := range leases {
		ids = append(ids, lease.Party.ID)
	}

	return ids
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range tables {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestPersistence_InTxRollsBackOnError(t *testing.T) {
	f := newFixture(t)

	var created *models.Party

	err := f.p.InTx(f.ctx, func(ctx context.Context, tx persistence.Executor) error {
		created = &models.Party{
			TenantID:           f.tenantID,
			WorkflowName:       models.WorkflowNameNewLease,
			State:              models.PartyStateProspect,
			PartyGroupID:       uuid.NewString(),
			AssignedPropertyID: f.propertyID,
		}

		require.NoError(t, f.p.Parties().Create(ctx, tx, created))

		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = f.p.Parties().GetByID(f.ctx, f.p.DB(), created.ID)
	assert.True(t, persistence.IsPartyNotFound(err))
}

func TestPartyRepository_CreateGetArchive(t *testing.T) {
	f := newFixture(t)

	party := f.createParty(models.WorkflowNameNewLease, f.propertyID, nil)
	party.AddCollaborator(uuid.NewString())
	party.Metadata = models.PartyMetadata{
		Eviction: &models.EvictionInfo{IsUnderEviction: true},
		Extra:    map[string]any{"source": "import"},
	}

	require.NoError(t, f.p.Parties().Update(f.ctx, f.p.DB(), party))

	got, err := f.p.Parties().GetByID(f.ctx, f.p.DB(), party.ID)
	require.NoError(t, err)
	assert.Equal(t, party.Collaborators, got.Collaborators)
	require.NotNil(t, got.Metadata.Eviction)
	assert.True(t, got.Metadata.Eviction.IsUnderEviction)
	assert.Equal(t, "import", got.Metadata.Extra["source"])
	assert.Empty(t, got.OwnerTeamID)

	err = f.p.Parties().Archive(f.ctx, f.p.DB(), party.ID, models.ArchiveReasonResidentsHaveMovedOut)
	require.NoError(t, err)

	got, err = f.p.Parties().GetByID(f.ctx, f.p.DB(), party.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStateArchived, got.WorkflowState)
	require.NotNil(t, got.ArchiveReasonID)
	assert.Equal(t, models.ArchiveReasonResidentsHaveMovedOut, *got.ArchiveReasonID)
	assert.NotNil(t, got.ArchiveDate)

	err = f.p.Parties().Archive(f.ctx, f.p.DB(), party.ID, models.ArchiveReasonResidentsHaveMovedOut)
	require.ErrorIs(t, err, persistence.ErrPartyAlreadyArchived)

	err = f.p.Parties().Archive(f.ctx, f.p.DB(), uuid.NewString(), models.ArchiveReasonResidentsHaveMovedOut)
	require.ErrorIs(t, err, persistence.ErrPartyNotFound)
}

func TestPartyRepository_MembersAndAdditionalInfo(t *testing.T) {
	f := newFixture(t)

	party := f.createParty(models.WorkflowNameActiveLease, f.propertyID, nil)

	member := &models.PartyMember{PartyID: party.ID, PersonID: uuid.NewString(), MemberType: models.MemberTypeResident}
	require.NoError(t, f.p.Parties().CreateMember(f.ctx, f.p.DB(), member))

	info := &models.AdditionalInfo{PartyID: party.ID, Type: models.AdditionalInfoPet, Info: map[string]any{"name": "Rex"}}
	require.NoError(t, f.p.Parties().CreateAdditionalInfo(f.ctx, f.p.DB(), info))

	members, err := f.p.Parties().GetMembers(f.ctx, f.p.DB(), party.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, member.PersonID, members[0].PersonID)

	infos, err := f.p.Parties().GetAdditionalInfo(f.ctx, f.p.DB(), party.ID)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Rex", infos[0].Info["name"])

	err = f.p.Parties().CreateMember(f.ctx, f.p.DB(), &models.PartyMember{
		PartyID: uuid.NewString(), PersonID: uuid.NewString(), MemberType: models.MemberTypeResident,
	})
	require.ErrorIs(t, err, persistence.ErrPartyNotFound)
}

func TestPartyRepository_GetActiveBySeed(t *testing.T) {
	f := newFixture(t)

	seed := f.createParty(models.WorkflowNameActiveLease, f.propertyID, nil)

	none, err := f.p.Parties().GetActiveBySeed(f.ctx, f.p.DB(), seed.ID, models.WorkflowNameRenewal)
	require.NoError(t, err)
	assert.Nil(t, none)

	renewal := f.createParty(models.WorkflowNameRenewal, f.propertyID, seed)

	got, err := f.p.Parties().GetActiveBySeed(f.ctx, f.p.DB(), seed.ID, models.WorkflowNameRenewal)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, renewal.ID, got.ID)

	inGroup, err := f.p.Parties().GetActiveInGroup(f.ctx, f.p.DB(), seed.PartyGroupID, models.WorkflowNameRenewal)
	require.NoError(t, err)
	require.NotNil(t, inGroup)
	assert.Equal(t, renewal.ID, inGroup.ID)
}

func TestPartyRepository_SingleActiveWorkflowPerGroup(t *testing.T) {
	f := newFixture(t)

	seed := f.createParty(models.WorkflowNameActiveLease, f.propertyID, nil)
	f.createParty(models.WorkflowNameRenewal, f.propertyID, seed)

	duplicate := &models.Party{
		TenantID:           f.tenantID,
		WorkflowName:       models.WorkflowNameRenewal,
		SeedPartyID:        &seed.ID,
		PartyGroupID:       seed.PartyGroupID,
		AssignedPropertyID: f.propertyID,
	}
	err := f.p.Parties().Create(f.ctx, f.p.DB(), duplicate)
	require.Error(t, err)
}

func TestActiveLeaseRepository_SaveIsIdempotentUpsert(t *testing.T) {
	f := newFixture(t)

	party, data := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, 0), f.today.AddDate(0, 3, 0), 12)
	firstID := data.ID

	again := &models.ActiveLeaseWorkflowData{
		TenantID:  f.tenantID,
		PartyID:   party.ID,
		State:     models.ActiveLeaseStateNone,
		LeaseData: data.LeaseData,
	}
	again.LeaseData.LeaseTerm = 1
	again.IsExtension = true

	require.NoError(t, f.p.ActiveLeases().Save(f.ctx, f.p.DB(), again))
	assert.Equal(t, firstID, again.ID)

	var count int

	err := f.p.DB().QueryRowContext(f.ctx, `SELECT COUNT(*) FROM active_lease_workflow_data WHERE party_id = $1`, party.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := f.p.ActiveLeases().GetByPartyID(f.ctx, f.p.DB(), party.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RolloverPeriodM2M, stored.RolloverPeriod)
	assert.False(t, stored.IsExtension)
	assert.True(t, decimal.NewFromInt(1500).Equal(stored.LeaseData.UnitRent))
}

func TestActiveLeaseRepository_ExtensionLifecycle(t *testing.T) {
	f := newFixture(t)

	ended, data := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, -2), f.today.AddDate(0, 0, -2), 12)
	f.createActiveLease(f.propertyID, f.today.AddDate(0, -6, 0), f.today.AddDate(0, 6, 0), 12)
	f.createActiveLease(f.propertyID, f.today.AddDate(0, -2, 0), f.today.AddDate(0, 0, -2), 1)

	eligible, err := f.p.ActiveLeases().GetEligibleForExtension(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{ended.ID}, partyIDs(eligible))

	require.NoError(t, f.p.ActiveLeases().SetExtension(f.ctx, f.p.DB(), data.ID))

	eligible, err = f.p.ActiveLeases().GetEligibleForExtension(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, eligible)

	elapsed, err := f.p.ActiveLeases().GetExtendedLeasesWithEndDateInPast(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{ended.ID}, partyIDs(elapsed))

	next := models.NextExtensionEndDate(data.LeaseData.LeaseEndDate, time.Now().UTC())
	require.NoError(t, f.p.ActiveLeases().UpdateComputedExtensionEndDate(f.ctx, f.p.DB(), data.ID, next))

	elapsed, err = f.p.ActiveLeases().GetExtendedLeasesWithEndDateInPast(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, elapsed)

	stored, err := f.p.ActiveLeases().GetByID(f.ctx, f.p.DB(), data.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LeaseData.ComputedExtensionEndDate)
	assert.True(t, next.Equal(*stored.LeaseData.ComputedExtensionEndDate))
}

func TestActiveLeaseRepository_GetEligibleForRenewal(t *testing.T) {
	f := newFixture(t)

	inWindow, _ := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, 0), f.today.AddDate(0, 0, 30), 12)
	f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, 0), f.today.AddDate(0, 0, 90), 12)

	noRenewals := f.addProperty(`{"renewals": {"renewalCycleStart": 0}}`)
	f.createActiveLease(noRenewals, f.today.AddDate(-1, 0, 0), f.today.AddDate(0, 0, 10), 12)

	eligible, err := f.p.ActiveLeases().GetEligibleForRenewal(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{inWindow.ID}, partyIDs(eligible))

	renewal := f.createParty(models.WorkflowNameRenewal, f.propertyID, inWindow)

	eligible, err = f.p.ActiveLeases().GetEligibleForRenewal(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, eligible)

	require.NoError(t, f.p.Parties().Archive(f.ctx, f.p.DB(), renewal.ID, models.ArchiveReasonActiveLeaseVacateDatePassed))

	eligible, err = f.p.ActiveLeases().GetEligibleForRenewal(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{inWindow.ID}, partyIDs(eligible), "voided renewal is cycled out")

	second := f.createParty(models.WorkflowNameRenewal, f.propertyID, inWindow)
	require.NoError(t, f.p.Parties().Archive(f.ctx, f.p.DB(), second.ID, models.ArchiveReasonLeaseInPastNoPublishedQuote))

	eligible, err = f.p.ActiveLeases().GetEligibleForRenewal(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, eligible, "renewal archived for any other reason still counts")
}

func TestActiveLeaseRepository_OneMonthAndExtensionAreExclusive(t *testing.T) {
	f := newFixture(t)

	seed, _ := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, -1), f.today.AddDate(0, 0, -1), 12)
	renewal := f.createParty(models.WorkflowNameRenewal, f.propertyID, seed)

	oneMonth, err := f.p.ActiveLeases().GetEligibleForOneMonthLeaseTerm(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, oneMonth, "renewal without a published quote is not eligible")

	f.exec(`INSERT INTO quotes (id, tenant_id, party_id, published_at) VALUES ($1, $2, $3, NOW())`,
		uuid.NewString(), f.tenantID, renewal.ID)

	oneMonth, err = f.p.ActiveLeases().GetEligibleForOneMonthLeaseTerm(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{seed.ID}, partyIDs(oneMonth))

	extension, err := f.p.ActiveLeases().GetEligibleForExtension(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, extension)
}

func TestActiveLeaseRepository_MovingOutScans(t *testing.T) {
	f := newFixture(t)

	party, data := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, -5), f.today.AddDate(0, 0, -5), 12)
	renewal := f.createParty(models.WorkflowNameRenewal, f.propertyID, party)

	vacate := f.today.AddDate(0, 0, -1)
	data.State = models.ActiveLeaseStateMovingOut
	data.Metadata.VacateDate = &vacate
	require.NoError(t, f.p.ActiveLeases().UpdateStateAndMetadata(f.ctx, f.p.DB(), data))

	extension, err := f.p.ActiveLeases().GetEligibleMovingOutForExtension(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{party.ID}, partyIDs(extension))

	renewals, err := f.p.Parties().GetRenewalsWithVacateDatePassed(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	require.Len(t, renewals, 1)
	assert.Equal(t, renewal.ID, renewals[0].ID)

	movingOut, err := f.p.ActiveLeases().GetMovingOutActiveLeases(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, movingOut)

	data.Metadata.MoveOutConfirmed = true
	require.NoError(t, f.p.ActiveLeases().UpdateStateAndMetadata(f.ctx, f.p.DB(), data))

	movingOut, err = f.p.ActiveLeases().GetMovingOutActiveLeases(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{party.ID}, partyIDs(movingOut))

	renewals, err = f.p.Parties().GetRenewalsWithVacateDatePassed(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, renewals, "confirmed move-outs archive the renewal with the active lease")
}

func TestActiveLeaseRepository_MovingOutWithFutureVacateDate(t *testing.T) {
	f := newFixture(t)

	party, data := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, 0), f.today.AddDate(0, 1, 0), 12)

	vacate := f.today.AddDate(0, 1, 0)
	data.State = models.ActiveLeaseStateMovingOut
	data.Metadata.VacateDate = &vacate
	data.Metadata.MoveOutConfirmed = true
	require.NoError(t, f.p.ActiveLeases().UpdateStateAndMetadata(f.ctx, f.p.DB(), data))

	movingOut, err := f.p.ActiveLeases().GetMovingOutActiveLeases(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, movingOut, "vacate date next month")

	vacate = f.today
	data.Metadata.VacateDate = &vacate
	require.NoError(t, f.p.ActiveLeases().UpdateStateAndMetadata(f.ctx, f.p.DB(), data))

	movingOut, err = f.p.ActiveLeases().GetMovingOutActiveLeases(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{party.ID}, partyIDs(movingOut), "vacate date today")
}

func TestActiveLeaseRepository_SyncAndMoveInScans(t *testing.T) {
	f := newFixture(t)

	imported, data := f.createActiveLease(f.propertyID, f.today.AddDate(0, -2, 0), f.today.AddDate(0, 10, 0), 12)
	data.IsImported = true
	data.ExternalLeaseID = "EXT-1"
	require.NoError(t, f.p.ActiveLeases().Save(f.ctx, f.p.DB(), data))

	unconfirmed, _ := f.createActiveLease(f.propertyID, f.today.AddDate(0, 0, -10), f.today.AddDate(1, 0, 0), 12)
	f.createActiveLease(f.propertyID, f.today.AddDate(0, 0, -2), f.today.AddDate(1, 0, 0), 12)

	missing, err := f.p.ActiveLeases().GetActiveLeasesMissingFromLatestSync(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, missing, "no sync has run yet")

	runID := uuid.NewString()
	f.exec(`INSERT INTO external_sync_runs (id, tenant_id, property_id, status, completed_at) VALUES ($1, $2, $3, 'succeeded', NOW())`,
		runID, f.tenantID, f.propertyID)

	missing, err = f.p.ActiveLeases().GetActiveLeasesMissingFromLatestSync(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{imported.ID}, partyIDs(missing))

	f.exec(`INSERT INTO external_sync_records (sync_run_id, external_primary_id) VALUES ($1, 'EXT-1')`, runID)

	missing, err = f.p.ActiveLeases().GetActiveLeasesMissingFromLatestSync(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, missing)

	moveIn, err := f.p.ActiveLeases().GetActiveLeasesWithMoveInNotConfirmed(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{unconfirmed.ID}, partyIDs(moveIn))
}

func TestActiveLeaseRepository_ScansHonorFilter(t *testing.T) {
	f := newFixture(t)

	other := f.addProperty(defaultPropertySettings)

	first, _ := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, -3), f.today.AddDate(0, 0, -3), 12)
	second, _ := f.createActiveLease(other, f.today.AddDate(-1, 0, -9), f.today.AddDate(0, 0, -9), 12)

	all, err := f.p.ActiveLeases().GetEligibleForExtension(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, partyIDs(all), "ordered by lease end date")

	scoped, err := f.p.ActiveLeases().GetEligibleForExtension(f.ctx, f.p.DB(),
		persistence.Filter{TenantID: f.tenantID, PropertyIDs: []string{f.propertyID}})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, partyIDs(scoped))

	grouped, err := f.p.ActiveLeases().GetEligibleForExtension(f.ctx, f.p.DB(),
		persistence.Filter{TenantID: f.tenantID, PartyGroupID: second.PartyGroupID})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, partyIDs(grouped))

	otherTenant, err := f.p.ActiveLeases().GetEligibleForExtension(f.ctx, f.p.DB(), persistence.Filter{TenantID: uuid.NewString()})
	require.NoError(t, err)
	assert.Empty(t, otherTenant)
}

func TestPartyRepository_SpawnScans(t *testing.T) {
	f := newFixture(t)

	newLease := f.createParty(models.WorkflowNameNewLease, f.propertyID, nil)
	leaseID := uuid.NewString()
	f.exec(`INSERT INTO leases (id, tenant_id, party_id, status, baseline_data) VALUES ($1, $2, $3, 'executed', $4)`,
		leaseID, f.tenantID, newLease.ID,
		`{"leaseStartDate": "`+f.today.AddDate(0, 0, -1).Format(time.RFC3339)+`", "leaseEndDate": "`+
			f.today.AddDate(1, 0, -1).Format(time.RFC3339)+`", "leaseTerm": 12, "unitRent": "1200"}`)

	spawns, err := f.p.Parties().GetNewLeasesEligibleForActiveLease(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	require.Len(t, spawns, 1)
	assert.Equal(t, newLease.ID, spawns[0].Party.ID)
	assert.Equal(t, leaseID, spawns[0].Lease.ID)
	assert.Equal(t, 12, spawns[0].Lease.BaselineData.LeaseTerm)

	renewals, err := f.p.Parties().GetRenewalsEligibleForActiveLease(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, renewals)

	f.createParty(models.WorkflowNameActiveLease, f.propertyID, newLease)

	spawns, err = f.p.Parties().GetNewLeasesEligibleForActiveLease(f.ctx, f.p.DB(), f.filter())
	require.NoError(t, err)
	assert.Empty(t, spawns)

	successors, err := f.p.Parties().GetPartiesWithActiveLeaseSuccessor(f.ctx, f.p.DB(), f.filter(), models.WorkflowNameNewLease)
	require.NoError(t, err)
	require.Len(t, successors, 1)
	assert.Equal(t, newLease.ID, successors[0].ID)

	leases, err := f.p.Leases().GetByPartyID(f.ctx, f.p.DB(), newLease.ID)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, models.LeaseStatusExecuted, leases[0].Status)

	require.NoError(t, f.p.Leases().Void(f.ctx, f.p.DB(), leaseID))

	lease, err := f.p.Leases().GetByID(f.ctx, f.p.DB(), leaseID)
	require.NoError(t, err)
	assert.True(t, lease.IsVoided())
}

func TestSettingsRepository(t *testing.T) {
	f := newFixture(t)

	tenant, err := f.p.Settings().GetTenant(f.ctx, f.p.DB(), f.tenantID)
	require.NoError(t, err)
	assert.True(t, tenant.Settings.Features.EnableRenewals)

	property, err := f.p.Settings().GetProperty(f.ctx, f.p.DB(), f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 60, property.Settings.Renewals.RenewalCycleStart)
	assert.Equal(t, 5, property.Settings.MoveIn.ConfirmationGraceDays)

	_, err = f.p.Settings().GetProperty(f.ctx, f.p.DB(), uuid.NewString())
	require.ErrorIs(t, err, persistence.ErrPropertyNotFound)

	term, err := f.p.Settings().GetOneMonthLeaseTerm(f.ctx, f.p.DB(), f.propertyID)
	require.NoError(t, err)
	assert.Nil(t, term)

	f.exec(`INSERT INTO lease_terms (id, tenant_id, property_id, term_length, period) VALUES ($1, $2, $3, 1, 'month')`,
		uuid.NewString(), f.tenantID, f.propertyID)

	term, err = f.p.Settings().GetOneMonthLeaseTerm(f.ctx, f.p.DB(), f.propertyID)
	require.NoError(t, err)
	require.NotNil(t, term)
	assert.Equal(t, 1, term.TermLength)

	inventoryID := uuid.NewString()
	f.exec(`INSERT INTO inventories (id, tenant_id, property_id, name, month_to_month_rent) VALUES ($1, $2, $3, '101', 1750.50)`,
		inventoryID, f.tenantID, f.propertyID)

	rent, err := f.p.Settings().GetMonthToMonthRent(f.ctx, f.p.DB(), inventoryID)
	require.NoError(t, err)
	require.True(t, rent.Valid)
	assert.True(t, decimal.RequireFromString("1750.50").Equal(rent.Decimal))

	byInventory, err := f.p.Settings().GetPropertyByInventory(f.ctx, f.p.DB(), inventoryID)
	require.NoError(t, err)
	assert.Equal(t, f.propertyID, byInventory.ID)

	teamID := uuid.NewString()
	designate := uuid.NewString()
	f.exec(`INSERT INTO teams (id, tenant_id, name, module, property_ids, lease_designate_user_id, agents)
		VALUES ($1, $2, 'Residents', 'residentServices', ARRAY[$3::text], $4, ARRAY[$5::text])`,
		teamID, f.tenantID, f.propertyID, designate, designate)

	teams, err := f.p.Settings().GetTeams(f.ctx, f.p.DB(), f.propertyID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, models.TeamModuleResidentServices, teams[0].Module)
	assert.True(t, teams[0].HasAgent(designate))

	settings := property.Settings
	settings.Integration.ResidentDataImport = true
	require.NoError(t, f.p.Settings().UpdatePropertySettings(f.ctx, f.p.DB(), f.propertyID, settings))

	property, err = f.p.Settings().GetProperty(f.ctx, f.p.DB(), f.propertyID)
	require.NoError(t, err)
	assert.True(t, property.Settings.Integration.ResidentDataImport)
}

func TestReportRepository(t *testing.T) {
	f := newFixture(t)

	party := f.createParty(models.WorkflowNameActiveLease, f.propertyID, nil)

	report := &models.ExceptionReport{
		TenantID:   f.tenantID,
		RuleID:     models.ExceptionRuleNoOneMonthLeaseTerm,
		PartyID:    party.ID,
		PropertyID: f.propertyID,
	}
	require.NoError(t, f.p.Reports().CreateExceptionReport(f.ctx, f.p.DB(), report))
	assert.NotEmpty(t, report.ID)

	entry := &models.ActivityLogEntry{
		TenantID:   f.tenantID,
		PartyID:    party.ID,
		EntityType: "party",
		Action:     models.ActivityActionUpdate,
		Component:  "renewal",
		Details:    map[string]any{"spawnStatus": string(models.SpawnStatusNotSpawned)},
	}
	require.NoError(t, f.p.Reports().LogActivity(f.ctx, f.p.DB(), entry))

	var count int

	err := f.p.DB().QueryRowContext(f.ctx, `SELECT COUNT(*) FROM activity_logs WHERE party_id = $1`, party.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
