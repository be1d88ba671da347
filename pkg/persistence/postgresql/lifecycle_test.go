package postgresql_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/leaseflow/leaseflow/pkg/cycle"
	"github.com/leaseflow/leaseflow/pkg/mocks"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/services"
	"github.com/leaseflow/leaseflow/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) processor() *cycle.Processor {
	f.t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := settings.NewStore(logger, f.p.Settings(), settings.Options{})
	require.NoError(f.t, err)

	transitions := services.NewTransitions(logger, f.p, store, mocks.NewPermissiveEventBus())

	return cycle.NewProcessor(logger, f.p, store, transitions, nil, cycle.WithClock(transitions.Now))
}

func (f *fixture) markMovingOut(data *models.ActiveLeaseWorkflowData, confirmed bool) {
	f.t.Helper()

	vacate := f.today.AddDate(0, 0, -2)
	data.State = models.ActiveLeaseStateMovingOut
	data.Metadata.VacateDate = &vacate
	data.Metadata.MoveOutConfirmed = confirmed
	data.Metadata.MoveInConfirmed = true
	require.NoError(f.t, f.p.ActiveLeases().UpdateStateAndMetadata(f.ctx, f.p.DB(), data))
}

func (f *fixture) assertArchived(party *models.Party, reason models.ArchiveReason) {
	f.t.Helper()

	got, err := f.p.Parties().GetByID(f.ctx, f.p.DB(), party.ID)
	require.NoError(f.t, err)
	assert.Equal(f.t, models.WorkflowStateArchived, got.WorkflowState, "party %s", party.WorkflowName)
	require.NotNil(f.t, got.ArchiveReasonID)
	assert.Equal(f.t, reason, *got.ArchiveReasonID, "party %s", party.WorkflowName)
}

func TestProcess_ConfirmedMoveOutArchivesLineageAsMovedOut(t *testing.T) {
	f := newFixture(t)

	party, data := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, 0), f.today.AddDate(0, 1, 0), 12)
	renewal := f.createParty(models.WorkflowNameRenewal, f.propertyID, party)
	f.markMovingOut(data, true)

	result, err := f.processor().Process(f.ctx, cycle.Request{TenantID: f.tenantID, PartyGroupID: party.PartyGroupID})
	require.NoError(t, err)
	require.NoError(t, result.Err)

	for _, report := range result.Steps {
		switch report.Step {
		case cycle.StepVoidRenewalsVacateDatePassed:
			assert.Zero(t, report.Items, "renewal left for the moved-out archive")
		case cycle.StepArchiveMovedOut:
			assert.Equal(t, 1, report.Applied)
		}
	}

	f.assertArchived(party, models.ArchiveReasonResidentsHaveMovedOut)
	f.assertArchived(renewal, models.ArchiveReasonResidentsHaveMovedOut)
}

func TestProcess_UnconfirmedMoveOutVoidsRenewalOnly(t *testing.T) {
	f := newFixture(t)

	party, data := f.createActiveLease(f.propertyID, f.today.AddDate(-1, 0, 0), f.today.AddDate(0, 1, 0), 12)
	renewal := f.createParty(models.WorkflowNameRenewal, f.propertyID, party)
	f.markMovingOut(data, false)

	result, err := f.processor().Process(f.ctx, cycle.Request{TenantID: f.tenantID, PartyGroupID: party.PartyGroupID})
	require.NoError(t, err)
	require.NoError(t, result.Err)

	f.assertArchived(renewal, models.ArchiveReasonActiveLeaseVacateDatePassed)

	got, err := f.p.Parties().GetByID(f.ctx, f.p.DB(), party.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive(), "unconfirmed move-out keeps the active lease")
}
