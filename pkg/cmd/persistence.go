package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/leaseflow/leaseflow/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"postgres", "postgresql"}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}

		return p, nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider %q, expected one of %v", provider, supportedPersistenceProviders)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return provider
}
