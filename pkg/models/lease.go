package models

import "time"

// Lease is the signed (or in-progress) lease document attached to a party.
type Lease struct {
	ID              string      `json:"id"`
	TenantID        string      `json:"tenant_id"`
	PartyID         string      `json:"party_id"`
	Status          LeaseStatus `json:"status"`
	BaselineData    LeaseData   `json:"baseline_data"`
	ExternalLeaseID string      `json:"external_lease_id,omitempty"`
	SignDate        *time.Time  `json:"sign_date,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (l *Lease) IsVoided() bool {
	return l.Status == LeaseStatusVoided
}

// IsSubmittedOrExecuted tells whether a renewal already moved past quoting.
func (l *Lease) IsSubmittedOrExecuted() bool {
	return l.Status == LeaseStatusSubmitted || l.Status == LeaseStatusExecuted
}

// LeaseTerm is a lease length offered by a property.
type LeaseTerm struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	TermLength int    `json:"term_length"`
	Period     string `json:"period"`
	Inactive   bool   `json:"inactive"`
}

// ExceptionReport is a durable record raised when an automated transition cannot safely proceed.
type ExceptionReport struct {
	ID         string              `json:"id"`
	TenantID   string              `json:"tenant_id"`
	RuleID     ExceptionReportRule `json:"rule_id"`
	PartyID    string              `json:"party_id"`
	PropertyID string              `json:"property_id"`
	Data       map[string]any      `json:"data"`
	CreatedAt  time.Time           `json:"created_at"`
}

// ActivityLogEntry is an audit record written alongside a transition.
type ActivityLogEntry struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	PartyID    string         `json:"party_id"`
	EntityType string         `json:"entity_type"`
	Action     ActivityAction `json:"action"`
	Component  string         `json:"component"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
