package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
)

// LeaseRepository reads leases and their quotes.
type LeaseRepository struct {
	logger *slog.Logger
}

// NewLeaseRepository creates a new lease repository.
func NewLeaseRepository(logger *slog.Logger) *LeaseRepository {
	return &LeaseRepository{logger: logger}
}

var _ persistence.LeaseRepository = (*LeaseRepository)(nil)

func (r *LeaseRepository) GetByID(ctx context.Context, ex persistence.Executor, id string) (*models.Lease, error) {
	query := `
		SELECT
			` + leaseColumns("l") + `
		FROM leases l
		WHERE l.id = $1
	`

	lease, err := scanLease(ex.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrLeaseNotFound, id)
		}

		return nil, fmt.Errorf("failed to get lease %s: %w", id, err)
	}

	return lease, nil
}

// GetByPartyID returns the leases of a party, newest first.
func (r *LeaseRepository) GetByPartyID(ctx context.Context, ex persistence.Executor, partyID string) ([]*models.Lease, error) {
	query := `
		SELECT
			` + leaseColumns("l") + `
		FROM leases l
		WHERE l.party_id = $1
		ORDER BY l.created_at DESC, l.id DESC
	`

	leases, err := queryAll(ctx, r.logger, ex, scanLease, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get leases of party %s: %w", partyID, err)
	}

	return leases, nil
}

func (r *LeaseRepository) HasPublishedQuote(ctx context.Context, ex persistence.Executor, partyID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM quotes WHERE party_id = $1 AND published_at IS NOT NULL)`

	var exists bool

	err := ex.QueryRowContext(ctx, query, partyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check published quotes of party %s: %w", partyID, err)
	}

	return exists, nil
}

func (r *LeaseRepository) Void(ctx context.Context, ex persistence.Executor, leaseID string) error {
	query := `
		UPDATE leases SET
			status = 'voided'
		  , updated_at = NOW()
		WHERE id = $1
	`

	result, err := ex.ExecContext(ctx, query, leaseID)
	if err != nil {
		return fmt.Errorf("failed to void lease %s: %w", leaseID, err)
	}

	return requireRow(result, fmt.Errorf("%w: %s", persistence.ErrLeaseNotFound, leaseID))
}
