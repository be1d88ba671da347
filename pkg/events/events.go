// Package events defines the notifications emitted when party workflows change.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/leaseflow/leaseflow/pkg/models"
)

type EventType string

// Kafka topic carrying every lifecycle event.
const Topic = "leaseflow.party.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Party lifecycle events.
	PartyCreatedEvent   EventType = "party.created"
	RenewalCreatedEvent EventType = "party.renewal_created"
	PartyArchivedEvent  EventType = "party.archived"
	PartyUpdatedEvent   EventType = "party.updated"

	// Active lease events.
	MovingOutEvent          EventType = "active_lease.moving_out"
	MovingOutCancelledEvent EventType = "active_lease.moving_out_cancelled"

	ExceptionReportedEvent EventType = "exception_report.created"
	CycleCompletedEvent    EventType = "cycle.completed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id"`
	PartyID   string         `json:"party_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, tenantID, partyID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		PartyID:   partyID,
		Metadata:  make(map[string]any),
	}
}

// PartyCreated is emitted when an ACTIVE_LEASE party is spawned.
type PartyCreated struct {
	BaseEvent

	WorkflowName   models.WorkflowName   `json:"workflow_name"`
	SeedPartyID    string                `json:"seed_party_id"`
	PartyGroupID   string                `json:"party_group_id"`
	PropertyID     string                `json:"property_id"`
	RolloverPeriod models.RolloverPeriod `json:"rollover_period,omitempty"`
}

func (e PartyCreated) GetType() EventType {
	return PartyCreatedEvent
}

type RenewalCreated struct {
	BaseEvent

	SeedPartyID  string `json:"seed_party_id"`
	PartyGroupID string `json:"party_group_id"`
	PropertyID   string `json:"property_id"`
	OwnerUserID  string `json:"owner_user_id"`
}

func (e RenewalCreated) GetType() EventType {
	return RenewalCreatedEvent
}

type PartyArchived struct {
	BaseEvent

	WorkflowName models.WorkflowName  `json:"workflow_name"`
	Reason       models.ArchiveReason `json:"reason"`
}

func (e PartyArchived) GetType() EventType {
	return PartyArchivedEvent
}

// PartyUpdated notifies that derived party state changed, e.g. on a renewal sibling.
type PartyUpdated struct {
	BaseEvent

	State  models.PartyState `json:"state"`
	Reason string            `json:"reason"`
}

func (e PartyUpdated) GetType() EventType {
	return PartyUpdatedEvent
}

type MovingOut struct {
	BaseEvent

	VacateDate      *time.Time `json:"vacate_date,omitempty"`
	DateOfTheNotice *time.Time `json:"date_of_the_notice,omitempty"`
}

func (e MovingOut) GetType() EventType {
	return MovingOutEvent
}

type MovingOutCancelled struct {
	BaseEvent
}

func (e MovingOutCancelled) GetType() EventType {
	return MovingOutCancelledEvent
}

type ExceptionReported struct {
	BaseEvent

	RuleID     models.ExceptionReportRule `json:"rule_id"`
	PropertyID string                     `json:"property_id"`
}

func (e ExceptionReported) GetType() EventType {
	return ExceptionReportedEvent
}

// CycleCompleted summarizes one cycle run for a tenant.
type CycleCompleted struct {
	BaseEvent

	Processed bool           `json:"processed"`
	Scoped    bool           `json:"scoped"`
	Steps     map[string]int `json:"steps"`
	Duration  time.Duration  `json:"duration"`
}

func (e CycleCompleted) GetType() EventType {
	return CycleCompletedEvent
}
