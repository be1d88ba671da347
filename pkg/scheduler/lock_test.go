package scheduler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leaseflow/leaseflow/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisLocker(t *testing.T) {
	url := setupRedis(t)
	ctx := context.Background()

	client, err := scheduler.NewRedisClient(ctx, url)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	first := scheduler.NewRedisLocker(client, "")
	second := scheduler.NewRedisLocker(client, "")

	release, err := first.Acquire(ctx, "tenant-1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, release)

	blocked, err := second.Acquire(ctx, "tenant-1", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, blocked)

	other, err := second.Acquire(ctx, "tenant-2", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, other)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.ErrorIs(t, release(ctx), scheduler.ErrLockNotReleased)

	again, err := second.Acquire(ctx, "tenant-1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, again)
	require.NoError(t, again(ctx))
}

func TestRedisLocker_Expires(t *testing.T) {
	url := setupRedis(t)
	ctx := context.Background()

	client, err := scheduler.NewRedisClient(ctx, url)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	locker := scheduler.NewRedisLocker(client, "test:")

	release, err := locker.Acquire(ctx, "tenant-1", 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, release)

	assert.Eventually(t, func() bool {
		next, err := locker.Acquire(ctx, "tenant-1", time.Minute)

		return err == nil && next != nil
	}, 2*time.Second, 50*time.Millisecond)

	require.ErrorIs(t, release(ctx), scheduler.ErrLockNotReleased)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := scheduler.NewRedisClient(context.Background(), "not-a-url")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}
