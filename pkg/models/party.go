// Package models defines the domain records of the party workflow lifecycle.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Party is one workflow incarnation of a tenancy lineage.
type Party struct {
	ID                 string         `json:"id"`
	TenantID           string         `json:"tenant_id"            validate:"required"`
	WorkflowName       WorkflowName   `json:"workflow_name"        validate:"required"`
	WorkflowState      WorkflowState  `json:"workflow_state"       validate:"required"`
	State              PartyState     `json:"state"`
	SeedPartyID        *string        `json:"seed_party_id,omitempty"`
	PartyGroupID       string         `json:"party_group_id"       validate:"required"`
	AssignedPropertyID string         `json:"assigned_property_id" validate:"required"`
	OwnerTeamID        string         `json:"owner_team_id"`
	UserID             string         `json:"user_id"`
	Collaborators      []string       `json:"collaborators"`
	Teams              []string       `json:"teams"`
	Metadata           PartyMetadata  `json:"metadata"`
	ArchiveDate        *time.Time     `json:"archive_date,omitempty"`
	ArchiveReasonID    *ArchiveReason `json:"archive_reason_id,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (p *Party) IsActive() bool {
	return p.WorkflowState == WorkflowStateActive
}

// SeedID returns the seed party id or an empty string for root parties.
func (p *Party) SeedID() string {
	if p.SeedPartyID == nil {
		return ""
	}

	return *p.SeedPartyID
}

// AddCollaborator adds a user to the collaborator set once.
func (p *Party) AddCollaborator(userID string) {
	if userID == "" {
		return
	}

	for _, existing := range p.Collaborators {
		if existing == userID {
			return
		}
	}

	p.Collaborators = append(p.Collaborators, userID)
}

// EvictionInfo is the eviction flag set by the collections flow.
type EvictionInfo struct {
	IsUnderEviction bool `json:"isUnderEviction"`
}

// MoveInInfo records whether the residents confirmed their move-in.
type MoveInInfo struct {
	MoveInConfirmed bool `json:"moveInConfirmed"`
}

// PartyMetadata keeps the keys this engine interprets typed and round-trips the rest.
type PartyMetadata struct {
	Eviction     *EvictionInfo
	MoveIn       *MoveInInfo
	CreationType string
	Extra        map[string]any
}

const (
	partyMetaEviction     = "isUnderEviction"
	partyMetaMoveIn       = "moveInConfirmed"
	partyMetaCreationType = "creationType"
)

func (m PartyMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}

	if m.Eviction != nil {
		out[partyMetaEviction] = m.Eviction.IsUnderEviction
	}

	if m.MoveIn != nil {
		out[partyMetaMoveIn] = m.MoveIn.MoveInConfirmed
	}

	if m.CreationType != "" {
		out[partyMetaCreationType] = m.CreationType
	}

	return json.Marshal(out)
}

func (m *PartyMetadata) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal party metadata: %w", err)
	}

	*m = PartyMetadata{}

	if v, ok := raw[partyMetaEviction].(bool); ok {
		m.Eviction = &EvictionInfo{IsUnderEviction: v}
		delete(raw, partyMetaEviction)
	}

	if v, ok := raw[partyMetaMoveIn].(bool); ok {
		m.MoveIn = &MoveInInfo{MoveInConfirmed: v}
		delete(raw, partyMetaMoveIn)
	}

	if v, ok := raw[partyMetaCreationType].(string); ok {
		m.CreationType = v
		delete(raw, partyMetaCreationType)
	}

	if len(raw) > 0 {
		m.Extra = raw
	}

	return nil
}

// PartyMember is a person taking part in a party.
type PartyMember struct {
	ID         string     `json:"id"`
	PartyID    string     `json:"party_id"`
	PersonID   string     `json:"person_id"`
	MemberType MemberType `json:"member_type"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// AdditionalInfo holds children, pets and vehicles attached to a party.
type AdditionalInfo struct {
	ID      string             `json:"id"`
	PartyID string             `json:"party_id"`
	Type    AdditionalInfoType `json:"type"`
	Info    map[string]any     `json:"info"`
	EndDate *time.Time         `json:"end_date,omitempty"`
}
