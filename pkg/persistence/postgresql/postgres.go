// Package postgresql provides the PostgreSQL implementation of the lifecycle persistence layer.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/leaseflow/leaseflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	parties      *PartyRepository
	activeLeases *ActiveLeaseRepository
	leases       *LeaseRepository
	settings     *SettingsRepository
	reports      *ReportRepository
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		parties:      NewPartyRepository(logger),
		activeLeases: NewActiveLeaseRepository(logger),
		leases:       NewLeaseRepository(logger),
		settings:     NewSettingsRepository(logger),
		reports:      NewReportRepository(logger),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// DB returns the connection pool as an executor for non-transactional reads.
func (p *Persistence) DB() persistence.Executor {
	return p.db
}

// InTx runs fn inside a transaction, committing when fn returns nil and rolling back otherwise.
func (p *Persistence) InTx(ctx context.Context, fn persistence.TxFunc) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			_ = tx.Rollback()

			panic(recovered)
		}
	}()

	err = fn(ctx, tx)
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			p.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (p *Persistence) Parties() persistence.PartyRepository {
	return p.parties
}

func (p *Persistence) ActiveLeases() persistence.ActiveLeaseRepository {
	return p.activeLeases
}

func (p *Persistence) Leases() persistence.LeaseRepository {
	return p.leases
}

func (p *Persistence) Settings() persistence.SettingsRepository {
	return p.settings
}

func (p *Persistence) Reports() persistence.ReportRepository {
	return p.reports
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
