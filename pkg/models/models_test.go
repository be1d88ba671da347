package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestParseWorkflowName(t *testing.T) {
	tests := []struct {
		value   string
		want    WorkflowName
		wantErr bool
	}{
		{value: "newLease", want: WorkflowNameNewLease},
		{value: "activeLease", want: WorkflowNameActiveLease},
		{value: "renewal", want: WorkflowNameRenewal},
		{value: "ActiveLease", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseWorkflowName(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownValue)
				assert.Empty(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArchiveReason(t *testing.T) {
	for _, reason := range ArchiveReasons() {
		got, err := ParseArchiveReason(string(reason))
		require.NoError(t, err)
		assert.Equal(t, reason, got)
	}

	_, err := ParseArchiveReason("MOVED_TO_MARS")
	require.ErrorIs(t, err, ErrUnknownValue)
	assert.Contains(t, err.Error(), "MOVED_TO_MARS")
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, WorkflowStateActive.IsValid())
	assert.True(t, WorkflowStateArchived.IsValid())
	assert.False(t, WorkflowState("closed").IsValid())

	assert.True(t, ActiveLeaseStateMovingOut.IsValid())
	assert.False(t, ActiveLeaseState("evicted").IsValid())

	assert.True(t, RolloverPeriodM2M.IsValid())
	assert.False(t, RolloverPeriod("weekly").IsValid())

	assert.True(t, ExceptionRuleNoOneMonthLeaseTerm.IsValid())
	assert.False(t, ExceptionReportRule("OTHER").IsValid())
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		months int
		want   time.Time
	}{
		{name: "plain", from: date(2026, time.March, 15), months: 1, want: date(2026, time.April, 15)},
		{name: "clamps to short month", from: date(2026, time.January, 31), months: 1, want: date(2026, time.February, 28)},
		{name: "leap year", from: date(2024, time.January, 31), months: 1, want: date(2024, time.February, 29)},
		{name: "crosses year", from: date(2026, time.November, 15), months: 3, want: date(2027, time.February, 15)},
		{name: "backwards", from: date(2026, time.March, 31), months: -1, want: date(2026, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.from, tt.months))
		})
	}
}

func TestNextExtensionEndDate(t *testing.T) {
	tests := []struct {
		name string
		base time.Time
		now  time.Time
		want time.Time
	}{
		{
			name: "first month already in the future",
			base: date(2026, time.October, 10),
			now:  date(2026, time.October, 17),
			want: date(2026, time.November, 10),
		},
		{
			name: "skips elapsed months and keeps month end",
			base: date(2026, time.August, 31),
			now:  date(2026, time.October, 17),
			want: date(2026, time.October, 31),
		},
		{
			name: "result must be strictly after now",
			base: date(2026, time.September, 17),
			now:  date(2026, time.October, 17),
			want: date(2026, time.November, 17),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextExtensionEndDate(tt.base, tt.now))
		})
	}
}

func TestLeaseData_EffectiveEndDate(t *testing.T) {
	data := LeaseData{LeaseEndDate: date(2026, time.June, 30)}
	assert.Equal(t, date(2026, time.June, 30), data.EffectiveEndDate())

	extended := date(2026, time.November, 30)
	data.ComputedExtensionEndDate = &extended
	assert.Equal(t, extended, data.EffectiveEndDate())
}

func TestActiveLeaseWorkflowData_NormalizeRollover(t *testing.T) {
	data := &ActiveLeaseWorkflowData{
		PartyID:     "party-1",
		IsExtension: true,
		LeaseData:   LeaseData{LeaseTerm: 1},
	}

	data.NormalizeRollover()

	assert.Equal(t, RolloverPeriodM2M, data.RolloverPeriod)
	assert.False(t, data.IsExtension)
	require.NoError(t, data.Validate())

	data.LeaseData.LeaseTerm = 12
	data.NormalizeRollover()
	assert.Equal(t, RolloverPeriodNone, data.RolloverPeriod)
}

func TestActiveLeaseWorkflowData_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    ActiveLeaseWorkflowData
		wantErr error
	}{
		{
			name:    "missing party",
			data:    ActiveLeaseWorkflowData{},
			wantErr: ErrMissingPartyID,
		},
		{
			name:    "extension on month-to-month",
			data:    ActiveLeaseWorkflowData{PartyID: "p", IsExtension: true, RolloverPeriod: RolloverPeriodM2M},
			wantErr: ErrExtensionWithRollover,
		},
		{
			name:    "unknown state",
			data:    ActiveLeaseWorkflowData{PartyID: "p", State: "evicted"},
			wantErr: ErrUnknownValue,
		},
		{
			name: "moving out extension",
			data: ActiveLeaseWorkflowData{PartyID: "p", IsExtension: true, State: ActiveLeaseStateMovingOut},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestActiveLeaseMetadata_PreservesUnknownKeys(t *testing.T) {
	vacate := date(2026, time.December, 1)
	meta := ActiveLeaseMetadata{
		VacateDate:       &vacate,
		MoveOutConfirmed: true,
		Extra:            map[string]any{"moveOutReason": "relocation"},
	}

	encoded, err := json.Marshal(meta)
	require.NoError(t, err)

	raw := map[string]any{}
	require.NoError(t, json.Unmarshal(encoded, &raw))
	assert.Equal(t, "relocation", raw["moveOutReason"])
	assert.Equal(t, true, raw["moveOutConfirmed"])
	assert.NotContains(t, raw, "dateOfTheNotice")

	var decoded ActiveLeaseMetadata
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	require.NotNil(t, decoded.VacateDate)
	assert.True(t, vacate.Equal(*decoded.VacateDate))
	assert.True(t, decoded.MoveOutConfirmed)
	assert.Nil(t, decoded.DateOfTheNotice)
	assert.Equal(t, map[string]any{"moveOutReason": "relocation"}, decoded.Extra)
}

func TestActiveLeaseWorkflowData_JSON(t *testing.T) {
	data := ActiveLeaseWorkflowData{
		ID:      "al-1",
		PartyID: "party-1",
		State:   ActiveLeaseStateMovingOut,
		LeaseData: LeaseData{
			InventoryID: "unit-101",
			UnitRent:    decimal.RequireFromString("1450.50"),
			LeaseTerm:   12,
		},
	}

	encoded, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded ActiveLeaseWorkflowData
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.True(t, decoded.IsMovingOut())
	assert.Equal(t, "unit-101", decoded.LeaseData.InventoryID)
	assert.True(t, decoded.LeaseData.UnitRent.Equal(decimal.RequireFromString("1450.5")))
	assert.Nil(t, decoded.Metadata.Extra)
}

func TestPartyMetadata_JSON(t *testing.T) {
	var meta PartyMetadata
	err := json.Unmarshal([]byte(`{"isUnderEviction":true,"creationType":"import","source":"crm"}`), &meta)
	require.NoError(t, err)

	require.NotNil(t, meta.Eviction)
	assert.True(t, meta.Eviction.IsUnderEviction)
	assert.Nil(t, meta.MoveIn)
	assert.Equal(t, "import", meta.CreationType)
	assert.Equal(t, map[string]any{"source": "crm"}, meta.Extra)

	meta.MoveIn = &MoveInInfo{MoveInConfirmed: false}

	encoded, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"isUnderEviction":true,"moveInConfirmed":false,"creationType":"import","source":"crm"}`,
		string(encoded))
}

func TestPartyMetadata_InvalidJSON(t *testing.T) {
	var meta PartyMetadata
	err := json.Unmarshal([]byte(`["not","an","object"]`), &meta)
	require.Error(t, err)
}

func TestParty_Helpers(t *testing.T) {
	party := &Party{WorkflowState: WorkflowStateActive}

	assert.True(t, party.IsActive())
	assert.Empty(t, party.SeedID())

	seed := "seed-1"
	party.SeedPartyID = &seed
	assert.Equal(t, "seed-1", party.SeedID())

	party.AddCollaborator("user-1")
	party.AddCollaborator("user-1")
	party.AddCollaborator("")
	party.AddCollaborator("user-2")
	assert.Equal(t, []string{"user-1", "user-2"}, party.Collaborators)
}

func TestLease_Status(t *testing.T) {
	lease := &Lease{Status: LeaseStatusDraft}
	assert.False(t, lease.IsVoided())
	assert.False(t, lease.IsSubmittedOrExecuted())

	lease.Status = LeaseStatusSubmitted
	assert.True(t, lease.IsSubmittedOrExecuted())

	lease.Status = LeaseStatusExecuted
	assert.True(t, lease.IsSubmittedOrExecuted())

	lease.Status = LeaseStatusVoided
	assert.True(t, lease.IsVoided())
	assert.False(t, lease.IsSubmittedOrExecuted())
}

func TestProperty_Location(t *testing.T) {
	property := &Property{ID: "p-1"}

	loc, err := property.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	property.Timezone = "America/Chicago"
	loc, err = property.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", loc.String())

	property.Timezone = "Mars/Olympus_Mons"
	_, err = property.Location()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p-1")
}

func TestTeam_HasAgent(t *testing.T) {
	team := &Team{Agents: []string{"agent-1", "agent-2"}}

	assert.True(t, team.HasAgent("agent-2"))
	assert.False(t, team.HasAgent("agent-3"))
}
