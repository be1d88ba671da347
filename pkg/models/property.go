package models

import (
	"fmt"
	"time"
)

// RenewalSettings are the renewal keys of a property settings document.
type RenewalSettings struct {
	RenewalCycleStart      int  `json:"renewalCycleStart"`
	SkipOriginalGuarantors bool `json:"skipOriginalGuarantors"`
}

// IntegrationSettings configure how a property syncs with external systems.
type IntegrationSettings struct {
	ResidentDataImport bool `json:"residentDataImport"`
}

// MoveInSettings configure move-in confirmation.
type MoveInSettings struct {
	ConfirmationGraceDays int `json:"confirmationGraceDays"`
}

// PropertySettings is the settings document stored per property.
type PropertySettings struct {
	Renewals    RenewalSettings     `json:"renewals"`
	Integration IntegrationSettings `json:"integration"`
	MoveIn      MoveInSettings      `json:"moveIn"`
}

// Property is a managed building with its timezone and settings.
type Property struct {
	ID       string           `json:"id"`
	TenantID string           `json:"tenant_id"`
	Name     string           `json:"name"`
	Timezone string           `json:"timezone"`
	Settings PropertySettings `json:"settings"`
}

// Location loads the property timezone, defaulting to UTC.
func (p *Property) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q for property %s: %w", p.Timezone, p.ID, err)
	}

	return loc, nil
}

// TenantFeatures are the feature flags of a tenant.
type TenantFeatures struct {
	EnableRenewals bool `json:"enableRenewals"`
}

// TenantSettings is the settings document stored per tenant.
type TenantSettings struct {
	Features TenantFeatures `json:"features"`
}

// Tenant is a customer of the platform.
type Tenant struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Settings TenantSettings `json:"settings"`
}

// TeamModule tells what a team works on.
type TeamModule string

const (
	TeamModuleLeasing          TeamModule = "leasing"
	TeamModuleResidentServices TeamModule = "residentServices"
)

// Team groups agents working on a set of properties.
type Team struct {
	ID                   string     `json:"id"`
	TenantID             string     `json:"tenant_id"`
	Name                 string     `json:"name"`
	Module               TeamModule `json:"module"`
	PropertyIDs          []string   `json:"property_ids"`
	Inactive             bool       `json:"inactive"`
	LeaseDesignateUserID string     `json:"lease_designate_user_id"`
	Agents               []string   `json:"agents"`
}

func (t *Team) HasAgent(userID string) bool {
	for _, agent := range t.Agents {
		if agent == userID {
			return true
		}
	}

	return false
}
