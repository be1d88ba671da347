package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/leaseflow/leaseflow/pkg/cycle"
	"github.com/leaseflow/leaseflow/pkg/metrics"
	"github.com/leaseflow/leaseflow/pkg/mocks"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu       sync.Mutex
	requests []cycle.Request
	results  map[string]cycle.Result
}

func (r *recordingRunner) Process(_ context.Context, req cycle.Request) (cycle.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, req)

	if result, ok := r.results[req.TenantID]; ok {
		return result, nil
	}

	return cycle.Result{Processed: true}, nil
}

func (r *recordingRunner) tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.requests))
	for _, req := range r.requests {
		ids = append(ids, req.TenantID)
	}

	return ids
}

type heldLocker struct {
	held     map[string]bool
	released []string
}

func (l *heldLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	if l.held[key] {
		return nil, nil
	}

	return func(context.Context) error {
		l.released = append(l.released, key)

		return nil
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withTenants(p *mocks.MockPersistence, ids ...string) {
	tenants := make([]*models.Tenant, 0, len(ids))
	for _, id := range ids {
		tenants = append(tenants, &models.Tenant{ID: id})
	}

	p.MockSettings().On("ListTenants", mock.Anything, mock.Anything).Return(tenants, nil)
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := scheduler.New(discardLogger(), "not a schedule", mocks.NewMockPersistence(), &recordingRunner{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cycle schedule")
}

func TestRunOnce_ProcessesEveryTenantInSeries(t *testing.T) {
	p := mocks.NewMockPersistence()
	withTenants(p, "tenant-a", "tenant-b", "tenant-c")

	runner := &recordingRunner{results: map[string]cycle.Result{
		"tenant-b": {Processed: false, Err: errors.New("tenant settings missing")},
	}}

	s, err := scheduler.New(discardLogger(), "", p, runner)
	require.NoError(t, err)

	results := s.RunOnce(context.Background())

	assert.Equal(t, []string{"tenant-a", "tenant-b", "tenant-c"}, runner.tenants())
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.False(t, results[1].Result.Processed)
	assert.True(t, results[2].Result.Processed)
}

func TestRunOnce_SkipsLockedTenants(t *testing.T) {
	p := mocks.NewMockPersistence()
	withTenants(p, "tenant-a", "tenant-b")

	runner := &recordingRunner{}
	locker := &heldLocker{held: map[string]bool{"tenant-a": true}}
	m := metrics.New()

	s, err := scheduler.New(discardLogger(), "", p, runner, scheduler.WithLocker(locker), scheduler.WithMetrics(m))
	require.NoError(t, err)

	results := s.RunOnce(context.Background())

	require.Len(t, results, 2)
	assert.True(t, results[0].Locked)
	assert.Equal(t, []string{"tenant-b"}, runner.tenants())
	assert.Equal(t, []string{"tenant-b"}, locker.released)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SchedulerLockMisses), 0)
}

func TestRunOnce_TenantListFailure(t *testing.T) {
	p := mocks.NewMockPersistence()
	p.MockSettings().On("ListTenants", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	runner := &recordingRunner{}

	s, err := scheduler.New(discardLogger(), "", p, runner)
	require.NoError(t, err)

	assert.Empty(t, s.RunOnce(context.Background()))
	assert.Empty(t, runner.tenants())
}

func TestStartStop(t *testing.T) {
	p := mocks.NewMockPersistence()
	withTenants(p, "tenant-a")

	runner := &recordingRunner{}

	s, err := scheduler.New(discardLogger(), "@every 1s", p, runner)
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.ErrorIs(t, s.Start(ctx), scheduler.ErrAlreadyStarted)

	assert.Eventually(t, func() bool {
		return len(runner.tenants()) > 0
	}, 3*time.Second, 50*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}
