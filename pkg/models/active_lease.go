package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrExtensionWithRollover is returned when a lease is flagged both as an extension and as month-to-month.
	ErrExtensionWithRollover = errors.New("extension and month-to-month rollover are mutually exclusive")

	// ErrMissingPartyID is returned when workflow data is not attached to a party.
	ErrMissingPartyID = errors.New("active lease workflow data requires a party id")
)

// LeaseData is the snapshot of lease terms an active lease runs on.
type LeaseData struct {
	LeaseStartDate           time.Time       `json:"leaseStartDate"`
	LeaseEndDate             time.Time       `json:"leaseEndDate"`
	ComputedExtensionEndDate *time.Time      `json:"computedExtensionEndDate,omitempty"`
	InventoryID              string          `json:"inventoryId"`
	UnitRent                 decimal.Decimal `json:"unitRent"`
	LeaseTerm                int             `json:"leaseTerm"`
}

// EffectiveEndDate is the extension end when one was computed, else the lease end.
func (d LeaseData) EffectiveEndDate() time.Time {
	if d.ComputedExtensionEndDate != nil {
		return *d.ComputedExtensionEndDate
	}

	return d.LeaseEndDate
}

// ActiveLeaseMetadata keeps the move-in/move-out facts this engine reads, plus unknown keys.
type ActiveLeaseMetadata struct {
	VacateDate                *time.Time
	DateOfTheNotice           *time.Time
	MoveOutConfirmed          bool
	MoveInConfirmed           bool
	WasAddedToExceptionReport bool
	Extra                     map[string]any
}

type activeLeaseMetadataJSON struct {
	VacateDate                *time.Time `json:"vacateDate,omitempty"`
	DateOfTheNotice           *time.Time `json:"dateOfTheNotice,omitempty"`
	MoveOutConfirmed          bool       `json:"moveOutConfirmed"`
	MoveInConfirmed           bool       `json:"moveInConfirmed"`
	WasAddedToExceptionReport bool       `json:"wasAddedToExceptionReport"`
}

var activeLeaseMetadataKeys = []string{
	"vacateDate", "dateOfTheNotice", "moveOutConfirmed", "moveInConfirmed", "wasAddedToExceptionReport",
}

func (m ActiveLeaseMetadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(activeLeaseMetadataJSON{
		VacateDate:                m.VacateDate,
		DateOfTheNotice:           m.DateOfTheNotice,
		MoveOutConfirmed:          m.MoveOutConfirmed,
		MoveInConfirmed:           m.MoveInConfirmed,
		WasAddedToExceptionReport: m.WasAddedToExceptionReport,
	})
	if err != nil {
		return nil, err
	}

	if len(m.Extra) == 0 {
		return known, nil
	}

	out := make(map[string]any, len(m.Extra)+len(activeLeaseMetadataKeys))
	for k, v := range m.Extra {
		out[k] = v
	}

	if err := json.Unmarshal(known, &out); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

func (m *ActiveLeaseMetadata) UnmarshalJSON(data []byte) error {
	var known activeLeaseMetadataJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return fmt.Errorf("failed to unmarshal active lease metadata: %w", err)
	}

	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal active lease metadata: %w", err)
	}

	for _, key := range activeLeaseMetadataKeys {
		delete(raw, key)
	}

	*m = ActiveLeaseMetadata{
		VacateDate:                known.VacateDate,
		DateOfTheNotice:           known.DateOfTheNotice,
		MoveOutConfirmed:          known.MoveOutConfirmed,
		MoveInConfirmed:           known.MoveInConfirmed,
		WasAddedToExceptionReport: known.WasAddedToExceptionReport,
	}

	if len(raw) > 0 {
		m.Extra = raw
	}

	return nil
}

// Charge is a recurring fee or concession snapshot taken from the lease.
type Charge struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ActiveLeaseWorkflowData is the one-to-one companion row of an ACTIVE_LEASE party.
type ActiveLeaseWorkflowData struct {
	ID               string              `json:"id"`
	TenantID         string              `json:"tenant_id"`
	PartyID          string              `json:"party_id"`
	LeaseID          *string             `json:"lease_id,omitempty"`
	State            ActiveLeaseState    `json:"state"`
	IsExtension      bool                `json:"is_extension"`
	RolloverPeriod   RolloverPeriod      `json:"rollover_period"`
	LeaseData        LeaseData           `json:"lease_data"`
	Metadata         ActiveLeaseMetadata `json:"metadata"`
	RecurringCharges []Charge            `json:"recurring_charges"`
	Concessions      []Charge            `json:"concessions"`
	IsImported       bool                `json:"is_imported"`
	ExternalLeaseID  string              `json:"external_lease_id,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NormalizeRollover derives the rollover period from the lease term; one-month terms are month-to-month.
func (a *ActiveLeaseWorkflowData) NormalizeRollover() {
	if a.LeaseData.LeaseTerm == 1 {
		a.RolloverPeriod = RolloverPeriodM2M
		a.IsExtension = false

		return
	}

	a.RolloverPeriod = RolloverPeriodNone
}

// Validate checks the invariants a row must hold before it is persisted.
func (a *ActiveLeaseWorkflowData) Validate() error {
	if a.PartyID == "" {
		return ErrMissingPartyID
	}

	if a.IsExtension && a.RolloverPeriod == RolloverPeriodM2M {
		return ErrExtensionWithRollover
	}

	if a.State != "" && !a.State.IsValid() {
		return fmt.Errorf("%w: active lease state %q", ErrUnknownValue, a.State)
	}

	return nil
}

func (a *ActiveLeaseWorkflowData) IsMovingOut() bool {
	return a.State == ActiveLeaseStateMovingOut
}

// NextExtensionEndDate returns the smallest base + n months (n >= 1) strictly after now.
func NextExtensionEndDate(base, now time.Time) time.Time {
	months := 1
	next := AddMonths(base, months)

	for !next.After(now) {
		months++
		next = AddMonths(base, months)
	}

	return next
}

// AddMonths adds calendar months and clamps to the last day of the target month.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()

	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
