// Package settings provides cached access to tenant and property settings.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/xeipuuv/gojsonschema"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 5 * time.Minute
)

// ErrInvalidSettings is returned when a settings document does not match its schema.
var ErrInvalidSettings = errors.New("invalid property settings")

// Options configure the store caches.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// Store reads tenants and properties through bounded LRU caches.
type Store struct {
	repo   persistence.SettingsRepository
	logger *slog.Logger
	schema *gojsonschema.Schema

	tenants     *expirable.LRU[string, *models.Tenant]
	properties  *expirable.LRU[string, *models.Property]
	inventories *expirable.LRU[string, string]
}

// NewStore creates a settings store backed by repo.
func NewStore(logger *slog.Logger, repo persistence.SettingsRepository, opts Options) (*Store, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(propertySettingsSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile property settings schema: %w", err)
	}

	return &Store{
		repo:        repo,
		logger:      logger.With("module", "settings"),
		schema:      schema,
		tenants:     expirable.NewLRU[string, *models.Tenant](opts.CacheSize, nil, opts.CacheTTL),
		properties:  expirable.NewLRU[string, *models.Property](opts.CacheSize, nil, opts.CacheTTL),
		inventories: expirable.NewLRU[string, string](opts.CacheSize, nil, opts.CacheTTL),
	}, nil
}

// GetTenant returns the tenant, loading it through ex on a cache miss.
func (s *Store) GetTenant(ctx context.Context, ex persistence.Executor, tenantID string) (*models.Tenant, error) {
	if tenant, ok := s.tenants.Get(tenantID); ok {
		return tenant, nil
	}

	tenant, err := s.repo.GetTenant(ctx, ex, tenantID)
	if err != nil {
		return nil, err
	}

	s.tenants.Add(tenantID, tenant)

	return tenant, nil
}

// RenewalsEnabled reports the tenant's enableRenewals feature flag.
func (s *Store) RenewalsEnabled(ctx context.Context, ex persistence.Executor, tenantID string) (bool, error) {
	tenant, err := s.GetTenant(ctx, ex, tenantID)
	if err != nil {
		return false, err
	}

	return tenant.Settings.Features.EnableRenewals, nil
}

func (s *Store) GetProperty(ctx context.Context, ex persistence.Executor, propertyID string) (*models.Property, error) {
	if property, ok := s.properties.Get(propertyID); ok {
		return property, nil
	}

	property, err := s.repo.GetProperty(ctx, ex, propertyID)
	if err != nil {
		return nil, err
	}

	s.properties.Add(propertyID, property)

	return property, nil
}

// GetPropertyByInventory resolves the property that owns an inventory item.
func (s *Store) GetPropertyByInventory(ctx context.Context, ex persistence.Executor, inventoryID string) (*models.Property, error) {
	if propertyID, ok := s.inventories.Get(inventoryID); ok {
		return s.GetProperty(ctx, ex, propertyID)
	}

	property, err := s.repo.GetPropertyByInventory(ctx, ex, inventoryID)
	if err != nil {
		return nil, err
	}

	s.inventories.Add(inventoryID, property.ID)
	s.properties.Add(property.ID, property)

	return property, nil
}

// ValidatePropertySettings checks a settings document against the property settings schema.
func (s *Store) ValidatePropertySettings(settings models.PropertySettings) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(settings))
	if err != nil {
		return fmt.Errorf("failed to validate property settings: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, problem := range result.Errors() {
			problems = append(problems, problem.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}

	return nil
}

// UpdatePropertySettings validates and persists settings, then drops the cached property.
func (s *Store) UpdatePropertySettings(
	ctx context.Context,
	ex persistence.Executor,
	propertyID string,
	settings models.PropertySettings,
) error {
	err := s.ValidatePropertySettings(settings)
	if err != nil {
		return err
	}

	err = s.repo.UpdatePropertySettings(ctx, ex, propertyID, settings)
	if err != nil {
		return err
	}

	s.InvalidateProperty(propertyID)
	s.logger.InfoContext(ctx, "property settings updated", "property_id", propertyID)

	return nil
}

func (s *Store) InvalidateProperty(propertyID string) {
	s.properties.Remove(propertyID)
}

func (s *Store) InvalidateTenant(tenantID string) {
	s.tenants.Remove(tenantID)
}
