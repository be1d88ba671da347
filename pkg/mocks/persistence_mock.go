package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPartyRepository is a mock implementation of persistence.PartyRepository.
type MockPartyRepository struct {
	mock.Mock
}

func (m *MockPartyRepository) GetByID(ctx context.Context, ex persistence.Executor, id string) (*models.Party, error) {
	args := m.Called(ctx, ex, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Party), args.Error(1)
}

func (m *MockPartyRepository) Create(ctx context.Context, ex persistence.Executor, party *models.Party) error {
	args := m.Called(ctx, ex, party)

	return args.Error(0)
}

func (m *MockPartyRepository) Update(ctx context.Context, ex persistence.Executor, party *models.Party) error {
	args := m.Called(ctx, ex, party)

	return args.Error(0)
}

func (m *MockPartyRepository) Archive(ctx context.Context, ex persistence.Executor, partyID string, reason models.ArchiveReason) error {
	args := m.Called(ctx, ex, partyID, reason)

	return args.Error(0)
}

func (m *MockPartyRepository) GetActiveBySeed(ctx context.Context, ex persistence.Executor, seedPartyID string, workflow models.WorkflowName) (*models.Party, error) {
	args := m.Called(ctx, ex, seedPartyID, workflow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Party), args.Error(1)
}

func (m *MockPartyRepository) GetActiveInGroup(ctx context.Context, ex persistence.Executor, partyGroupID string, workflow models.WorkflowName) (*models.Party, error) {
	args := m.Called(ctx, ex, partyGroupID, workflow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Party), args.Error(1)
}

func (m *MockPartyRepository) GetMembers(ctx context.Context, ex persistence.Executor, partyID string) ([]*models.PartyMember, error) {
	args := m.Called(ctx, ex, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.PartyMember), args.Error(1)
}

func (m *MockPartyRepository) CreateMember(ctx context.Context, ex persistence.Executor, member *models.PartyMember) error {
	args := m.Called(ctx, ex, member)

	return args.Error(0)
}

func (m *MockPartyRepository) GetAdditionalInfo(ctx context.Context, ex persistence.Executor, partyID string) ([]*models.AdditionalInfo, error) {
	args := m.Called(ctx, ex, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.AdditionalInfo), args.Error(1)
}

func (m *MockPartyRepository) CreateAdditionalInfo(ctx context.Context, ex persistence.Executor, info *models.AdditionalInfo) error {
	args := m.Called(ctx, ex, info)

	return args.Error(0)
}

func (m *MockPartyRepository) GetRenewalsWithVacateDatePassed(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*models.Party, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Party), args.Error(1)
}

func (m *MockPartyRepository) GetNewLeasesEligibleForActiveLease(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleSpawn, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleSpawn), args.Error(1)
}

func (m *MockPartyRepository) GetRenewalsEligibleForActiveLease(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleSpawn, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleSpawn), args.Error(1)
}

func (m *MockPartyRepository) GetPartiesWithActiveLeaseSuccessor(ctx context.Context, ex persistence.Executor, filter persistence.Filter, workflow models.WorkflowName) ([]*models.Party, error) {
	args := m.Called(ctx, ex, filter, workflow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Party), args.Error(1)
}

// MockActiveLeaseRepository is a mock implementation of persistence.ActiveLeaseRepository.
type MockActiveLeaseRepository struct {
	mock.Mock
}

func (m *MockActiveLeaseRepository) GetByID(ctx context.Context, ex persistence.Executor, id string) (*models.ActiveLeaseWorkflowData, error) {
	args := m.Called(ctx, ex, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ActiveLeaseWorkflowData), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetByPartyID(ctx context.Context, ex persistence.Executor, partyID string) (*models.ActiveLeaseWorkflowData, error) {
	args := m.Called(ctx, ex, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ActiveLeaseWorkflowData), args.Error(1)
}

func (m *MockActiveLeaseRepository) Save(ctx context.Context, ex persistence.Executor, data *models.ActiveLeaseWorkflowData) error {
	args := m.Called(ctx, ex, data)

	return args.Error(0)
}

func (m *MockActiveLeaseRepository) SetExtension(ctx context.Context, ex persistence.Executor, id string) error {
	args := m.Called(ctx, ex, id)

	return args.Error(0)
}

func (m *MockActiveLeaseRepository) UpdateComputedExtensionEndDate(ctx context.Context, ex persistence.Executor, id string, endDate time.Time) error {
	args := m.Called(ctx, ex, id, endDate)

	return args.Error(0)
}

func (m *MockActiveLeaseRepository) UpdateStateAndMetadata(ctx context.Context, ex persistence.Executor, data *models.ActiveLeaseWorkflowData) error {
	args := m.Called(ctx, ex, data)

	return args.Error(0)
}

func (m *MockActiveLeaseRepository) GetActiveByInventory(ctx context.Context, ex persistence.Executor, tenantID string, inventoryID string, excludePartyGroupID string) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, tenantID, inventoryID, excludePartyGroupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetEligibleForRenewal(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetEligibleForOneMonthLeaseTerm(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetEligibleForExtension(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetEligibleMovingOutForExtension(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetMovingOutActiveLeases(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetExtendedLeasesWithEndDateInPast(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetActiveLeasesMissingFromLatestSync(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

func (m *MockActiveLeaseRepository) GetActiveLeasesWithMoveInNotConfirmed(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]*persistence.EligibleActiveLease, error) {
	args := m.Called(ctx, ex, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.EligibleActiveLease), args.Error(1)
}

type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) GetByID(ctx context.Context, ex persistence.Executor, id string) (*models.Lease, error) {
	args := m.Called(ctx, ex, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseRepository) GetByPartyID(ctx context.Context, ex persistence.Executor, partyID string) ([]*models.Lease, error) {
	args := m.Called(ctx, ex, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Lease), args.Error(1)
}

func (m *MockLeaseRepository) HasPublishedQuote(ctx context.Context, ex persistence.Executor, partyID string) (bool, error) {
	args := m.Called(ctx, ex, partyID)

	return args.Bool(0), args.Error(1)
}

func (m *MockLeaseRepository) Void(ctx context.Context, ex persistence.Executor, leaseID string) error {
	args := m.Called(ctx, ex, leaseID)

	return args.Error(0)
}

// MockSettingsRepository is a mock implementation of persistence.SettingsRepository.
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetTenant(ctx context.Context, ex persistence.Executor, tenantID string) (*models.Tenant, error) {
	args := m.Called(ctx, ex, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockSettingsRepository) GetProperty(ctx context.Context, ex persistence.Executor, propertyID string) (*models.Property, error) {
	args := m.Called(ctx, ex, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockSettingsRepository) GetPropertyByInventory(ctx context.Context, ex persistence.Executor, inventoryID string) (*models.Property, error) {
	args := m.Called(ctx, ex, inventoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockSettingsRepository) ListProperties(ctx context.Context, ex persistence.Executor, tenantID string) ([]*models.Property, error) {
	args := m.Called(ctx, ex, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Property), args.Error(1)
}

func (m *MockSettingsRepository) ListTenants(ctx context.Context, ex persistence.Executor) ([]*models.Tenant, error) {
	args := m.Called(ctx, ex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func (m *MockSettingsRepository) UpdatePropertySettings(ctx context.Context, ex persistence.Executor, propertyID string, settings models.PropertySettings) error {
	args := m.Called(ctx, ex, propertyID, settings)

	return args.Error(0)
}

func (m *MockSettingsRepository) GetTeams(ctx context.Context, ex persistence.Executor, propertyID string) ([]*models.Team, error) {
	args := m.Called(ctx, ex, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Team), args.Error(1)
}

func (m *MockSettingsRepository) GetTeam(ctx context.Context, ex persistence.Executor, teamID string) (*models.Team, error) {
	args := m.Called(ctx, ex, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockSettingsRepository) GetOneMonthLeaseTerm(ctx context.Context, ex persistence.Executor, propertyID string) (*models.LeaseTerm, error) {
	args := m.Called(ctx, ex, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.LeaseTerm), args.Error(1)
}

func (m *MockSettingsRepository) GetMonthToMonthRent(ctx context.Context, ex persistence.Executor, inventoryID string) (decimal.NullDecimal, error) {
	args := m.Called(ctx, ex, inventoryID)

	return args.Get(0).(decimal.NullDecimal), args.Error(1)
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) CreateExceptionReport(ctx context.Context, ex persistence.Executor, report *models.ExceptionReport) error {
	args := m.Called(ctx, ex, report)

	return args.Error(0)
}

func (m *MockReportRepository) LogActivity(ctx context.Context, ex persistence.Executor, entry *models.ActivityLogEntry) error {
	args := m.Called(ctx, ex, entry)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence.
// InTx runs the function directly and counts commits and rollbacks.
type MockPersistence struct {
	mock.Mock

	partyRepo       *MockPartyRepository
	activeLeaseRepo *MockActiveLeaseRepository
	leaseRepo       *MockLeaseRepository
	settingsRepo    *MockSettingsRepository
	reportRepo      *MockReportRepository

	mu        sync.Mutex
	commits   int
	rollbacks int
	beginErr  error
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		partyRepo:       &MockPartyRepository{},
		activeLeaseRepo: &MockActiveLeaseRepository{},
		leaseRepo:       &MockLeaseRepository{},
		settingsRepo:    &MockSettingsRepository{},
		reportRepo:      &MockReportRepository{},
	}
}

func (m *MockPersistence) MockParties() *MockPartyRepository {
	return m.partyRepo
}

func (m *MockPersistence) MockActiveLeases() *MockActiveLeaseRepository {
	return m.activeLeaseRepo
}

func (m *MockPersistence) MockLeases() *MockLeaseRepository {
	return m.leaseRepo
}

func (m *MockPersistence) MockSettings() *MockSettingsRepository {
	return m.settingsRepo
}

func (m *MockPersistence) MockReports() *MockReportRepository {
	return m.reportRepo
}

// FailBegin makes every following InTx fail before running its function.
func (m *MockPersistence) FailBegin(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.beginErr = err
}

func (m *MockPersistence) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.commits
}

func (m *MockPersistence) Rollbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rollbacks
}

func (m *MockPersistence) DB() persistence.Executor {
	return nil
}

func (m *MockPersistence) InTx(ctx context.Context, fn persistence.TxFunc) error {
	m.mu.Lock()
	beginErr := m.beginErr
	m.mu.Unlock()

	if beginErr != nil {
		return beginErr
	}

	err := fn(ctx, nil)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.rollbacks++

		return err
	}

	m.commits++

	return nil
}

func (m *MockPersistence) Parties() persistence.PartyRepository {
	return m.partyRepo
}

func (m *MockPersistence) ActiveLeases() persistence.ActiveLeaseRepository {
	return m.activeLeaseRepo
}

func (m *MockPersistence) Leases() persistence.LeaseRepository {
	return m.leaseRepo
}

func (m *MockPersistence) Settings() persistence.SettingsRepository {
	return m.settingsRepo
}

func (m *MockPersistence) Reports() persistence.ReportRepository {
	return m.reportRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// AssertAllExpectations asserts the expectations of every repository.
func (m *MockPersistence) AssertAllExpectations(t mock.TestingT) bool {
	return m.partyRepo.AssertExpectations(t) &&
		m.activeLeaseRepo.AssertExpectations(t) &&
		m.leaseRepo.AssertExpectations(t) &&
		m.settingsRepo.AssertExpectations(t) &&
		m.reportRepo.AssertExpectations(t)
}

var _ persistence.Persistence = (*MockPersistence)(nil)
