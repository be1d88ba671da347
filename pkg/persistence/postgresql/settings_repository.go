package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// SettingsRepository reads tenant, property, team and pricing configuration.
type SettingsRepository struct {
	logger *slog.Logger
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(logger *slog.Logger) *SettingsRepository {
	return &SettingsRepository{logger: logger}
}

var _ persistence.SettingsRepository = (*SettingsRepository)(nil)

const propertySelect = `
		SELECT
			prop.id
		  , prop.tenant_id
		  , prop.name
		  , prop.timezone
		  , prop.settings
		FROM properties prop
`

func scanProperty(scanner rowScanner) (*models.Property, error) {
	var (
		property models.Property
		settings []byte
	)

	err := scanner.Scan(&property.ID, &property.TenantID, &property.Name, &property.Timezone, &settings)
	if err != nil {
		return nil, err
	}

	if len(settings) > 0 {
		err = json.Unmarshal(settings, &property.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings of property %s: %w", property.ID, err)
		}
	}

	return &property, nil
}

func scanTenant(scanner rowScanner) (*models.Tenant, error) {
	var (
		tenant   models.Tenant
		settings []byte
	)

	err := scanner.Scan(&tenant.ID, &tenant.Name, &settings)
	if err != nil {
		return nil, err
	}

	if len(settings) > 0 {
		err = json.Unmarshal(settings, &tenant.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings of tenant %s: %w", tenant.ID, err)
		}
	}

	return &tenant, nil
}

func scanTeam(scanner rowScanner) (*models.Team, error) {
	var (
		team        models.Team
		propertyIDs pq.StringArray
		agents      pq.StringArray
	)

	err := scanner.Scan(
		&team.ID, &team.TenantID, &team.Name, &team.Module, &propertyIDs, &team.Inactive,
		&team.LeaseDesignateUserID, &agents,
	)
	if err != nil {
		return nil, err
	}

	team.PropertyIDs = []string(propertyIDs)
	team.Agents = []string(agents)

	return &team, nil
}

func (r *SettingsRepository) GetTenant(ctx context.Context, ex persistence.Executor, tenantID string) (*models.Tenant, error) {
	query := `SELECT id, name, settings FROM tenants WHERE id = $1`

	tenant, err := scanTenant(ex.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrTenantNotFound, tenantID)
		}

		return nil, fmt.Errorf("failed to get tenant %s: %w", tenantID, err)
	}

	return tenant, nil
}

func (r *SettingsRepository) ListTenants(ctx context.Context, ex persistence.Executor) ([]*models.Tenant, error) {
	query := `SELECT id, name, settings FROM tenants ORDER BY name, id`

	tenants, err := queryAll(ctx, r.logger, ex, scanTenant, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	return tenants, nil
}

func (r *SettingsRepository) GetProperty(ctx context.Context, ex persistence.Executor, propertyID string) (*models.Property, error) {
	return r.getProperty(ctx, ex, propertySelect+`WHERE prop.id = $1`, propertyID)
}

func (r *SettingsRepository) GetPropertyByInventory(
	ctx context.Context,
	ex persistence.Executor,
	inventoryID string,
) (*models.Property, error) {
	query := propertySelect + `JOIN inventories i ON i.property_id = prop.id WHERE i.id = $1`

	return r.getProperty(ctx, ex, query, inventoryID)
}

func (r *SettingsRepository) getProperty(ctx context.Context, ex persistence.Executor, query, key string) (*models.Property, error) {
	property, err := scanProperty(ex.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrPropertyNotFound, key)
		}

		return nil, fmt.Errorf("failed to get property %s: %w", key, err)
	}

	return property, nil
}

func (r *SettingsRepository) ListProperties(ctx context.Context, ex persistence.Executor, tenantID string) ([]*models.Property, error) {
	query := propertySelect + `WHERE prop.tenant_id = $1 ORDER BY prop.name, prop.id`

	properties, err := queryAll(ctx, r.logger, ex, scanProperty, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties of tenant %s: %w", tenantID, err)
	}

	return properties, nil
}

func (r *SettingsRepository) UpdatePropertySettings(
	ctx context.Context,
	ex persistence.Executor,
	propertyID string,
	settings models.PropertySettings,
) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal property settings: %w", err)
	}

	query := `UPDATE properties SET settings = $2, updated_at = NOW() WHERE id = $1`

	result, err := ex.ExecContext(ctx, query, propertyID, payload)
	if err != nil {
		return fmt.Errorf("failed to update settings of property %s: %w", propertyID, err)
	}

	return requireRow(result, fmt.Errorf("%w: %s", persistence.ErrPropertyNotFound, propertyID))
}

const teamSelect = `
		SELECT
			id
		  , tenant_id
		  , name
		  , module
		  , property_ids
		  , inactive
		  , COALESCE(lease_designate_user_id::text, '')
		  , agents
		FROM teams
`

// GetTeams returns every team, active or not, serving a property.
func (r *SettingsRepository) GetTeams(ctx context.Context, ex persistence.Executor, propertyID string) ([]*models.Team, error) {
	query := teamSelect + `WHERE $1 = ANY(property_ids) ORDER BY name, id`

	teams, err := queryAll(ctx, r.logger, ex, scanTeam, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams of property %s: %w", propertyID, err)
	}

	return teams, nil
}

func (r *SettingsRepository) GetTeam(ctx context.Context, ex persistence.Executor, teamID string) (*models.Team, error) {
	team, err := scanTeam(ex.QueryRowContext(ctx, teamSelect+`WHERE id = $1`, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrTeamNotFound, teamID)
		}

		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}

	return team, nil
}

func (r *SettingsRepository) GetOneMonthLeaseTerm(
	ctx context.Context,
	ex persistence.Executor,
	propertyID string,
) (*models.LeaseTerm, error) {
	query := `
		SELECT
			id
		  , property_id
		  , term_length
		  , period
		  , inactive
		FROM lease_terms
		WHERE property_id = $1 AND term_length = 1 AND period = 'month' AND inactive = FALSE
		ORDER BY id
		LIMIT 1
	`

	var term models.LeaseTerm

	err := ex.QueryRowContext(ctx, query, propertyID).Scan(&term.ID, &term.PropertyID, &term.TermLength, &term.Period, &term.Inactive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get one-month lease term of property %s: %w", propertyID, err)
	}

	return &term, nil
}

// GetMonthToMonthRent returns the configured month-to-month rent of an inventory, if any.
func (r *SettingsRepository) GetMonthToMonthRent(
	ctx context.Context,
	ex persistence.Executor,
	inventoryID string,
) (decimal.NullDecimal, error) {
	var rent decimal.NullDecimal

	err := ex.QueryRowContext(ctx, `SELECT month_to_month_rent FROM inventories WHERE id = $1`, inventoryID).Scan(&rent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.NullDecimal{}, nil
		}

		return decimal.NullDecimal{}, fmt.Errorf("failed to get month-to-month rent of inventory %s: %w", inventoryID, err)
	}

	return rent, nil
}
