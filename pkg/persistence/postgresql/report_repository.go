package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
)

// ReportRepository writes exception reports and activity log entries.
type ReportRepository struct {
	logger *slog.Logger
}

// NewReportRepository creates a new report repository.
func NewReportRepository(logger *slog.Logger) *ReportRepository {
	return &ReportRepository{logger: logger}
}

var _ persistence.ReportRepository = (*ReportRepository)(nil)

func (r *ReportRepository) CreateExceptionReport(ctx context.Context, ex persistence.Executor, report *models.ExceptionReport) error {
	if report.ID == "" {
		report.ID = uuid.Must(uuid.NewV7()).String()
	}

	report.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(mapOrEmpty(report.Data))
	if err != nil {
		return fmt.Errorf("failed to marshal exception report data: %w", err)
	}

	query := `
		INSERT INTO exception_reports (id, tenant_id, rule_id, party_id, property_id, data, created_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6, $7)
	`

	_, err = ex.ExecContext(ctx, query,
		report.ID, report.TenantID, report.RuleID, report.PartyID, report.PropertyID, data, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create exception report %s: %w", report.RuleID, err)
	}

	r.logger.InfoContext(ctx, "exception report created", "rule_id", report.RuleID, "party_id", report.PartyID)

	return nil
}

func (r *ReportRepository) LogActivity(ctx context.Context, ex persistence.Executor, entry *models.ActivityLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV7()).String()
	}

	entry.CreatedAt = time.Now().UTC()

	details, err := json.Marshal(mapOrEmpty(entry.Details))
	if err != nil {
		return fmt.Errorf("failed to marshal activity details: %w", err)
	}

	query := `
		INSERT INTO activity_logs (id, tenant_id, party_id, entity_type, action, component, details, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8)
	`

	_, err = ex.ExecContext(ctx, query,
		entry.ID, entry.TenantID, entry.PartyID, entry.EntityType, entry.Action, entry.Component, details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log activity for party %s: %w", entry.PartyID, err)
	}

	return nil
}

func mapOrEmpty(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}

	return values
}
