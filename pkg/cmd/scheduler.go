package cmd

import (
	"context"
	"log/slog"

	"github.com/leaseflow/leaseflow/pkg/scheduler"
)

// NewLocker returns a redis-backed tenant lock when redisURL is set and a
// no-op lock otherwise. The returned close function is never nil.
func NewLocker(ctx context.Context, logger *slog.Logger, redisURL string) (scheduler.Locker, func() error, error) {
	if redisURL == "" {
		logger.InfoContext(ctx, "no redis configured, tenant cycles are not locked across replicas")

		return scheduler.NoopLocker{}, func() error { return nil }, nil
	}

	client, err := scheduler.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}

	return scheduler.NewRedisLocker(client, ""), client.Close, nil
}
