// Package scheduler runs the nightly lifecycle cycle for every tenant.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leaseflow/leaseflow/pkg/cycle"
	"github.com/leaseflow/leaseflow/pkg/metrics"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "0 3 * * *"
	DefaultLockTTL  = time.Hour
)

var ErrAlreadyStarted = errors.New("scheduler already started")

// CycleRunner runs one cycle.
type CycleRunner interface {
	Process(ctx context.Context, req cycle.Request) (cycle.Result, error)
}

// TenantResult is the outcome of one tenant's scheduled cycle.
type TenantResult struct {
	TenantID string
	Locked   bool
	Result   cycle.Result
	Err      error
}

type Option func(*Scheduler)

func WithLocker(locker Locker) Option {
	return func(s *Scheduler) {
		s.locker = locker
	}
}

func WithLockTTL(ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.lockTTL = ttl
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// Scheduler triggers a cycle per tenant on a cron schedule. Tenants run one
// after the other.
type Scheduler struct {
	schedule    string
	persistence persistence.Persistence
	runner      CycleRunner
	locker      Locker
	lockTTL     time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu   sync.Mutex
	cron *cron.Cron
}

func New(logger *slog.Logger, schedule string, p persistence.Persistence, runner CycleRunner, opts ...Option) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	_, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cycle schedule %q: %w", schedule, err)
	}

	s := &Scheduler{
		schedule:    schedule,
		persistence: p,
		runner:      runner,
		locker:      NoopLocker{},
		lockTTL:     DefaultLockTTL,
		logger:      logger.With("module", "scheduler", "schedule", schedule),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Start registers the cycle job and starts the cron runner. Runs never
// overlap; a run still going when the next one is due is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}

	logger := cronLogger{logger: s.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	_, err := c.AddFunc(s.schedule, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add cycle job: %w", err)
	}

	c.Start()
	s.cron = c

	s.logger.InfoContext(ctx, "scheduler started")

	return nil
}

// Stop stops the cron runner and waits for a running cycle until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.logger.InfoContext(ctx, "scheduler stopped")

		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunOnce runs the cycle for every tenant now.
func (s *Scheduler) RunOnce(ctx context.Context) []TenantResult {
	tenants, err := s.persistence.Settings().ListTenants(ctx, s.persistence.DB())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list tenants", "error", err)

		return nil
	}

	results := make([]TenantResult, 0, len(tenants))

	for _, tenant := range tenants {
		results = append(results, s.runTenant(ctx, tenant.ID))
	}

	return results
}

func (s *Scheduler) runTenant(ctx context.Context, tenantID string) TenantResult {
	logger := s.logger.With("tenant_id", tenantID)

	release, err := s.locker.Acquire(ctx, tenantID, s.lockTTL)
	if err != nil {
		logger.ErrorContext(ctx, "failed to acquire tenant lock", "error", err)

		return TenantResult{TenantID: tenantID, Err: err}
	}

	if release == nil {
		logger.InfoContext(ctx, "tenant cycle already running elsewhere")

		if s.metrics != nil {
			s.metrics.SchedulerLockMisses.Inc()
		}

		return TenantResult{TenantID: tenantID, Locked: true}
	}

	defer func() {
		err := release(context.WithoutCancel(ctx))
		if err != nil {
			logger.WarnContext(ctx, "failed to release tenant lock", "error", err)
		}
	}()

	result, err := s.runner.Process(ctx, cycle.Request{TenantID: tenantID})
	if err != nil {
		logger.ErrorContext(ctx, "tenant cycle rejected", "error", err)

		return TenantResult{TenantID: tenantID, Err: err}
	}

	return TenantResult{TenantID: tenantID, Result: result, Err: result.Err}
}

// cronLogger routes cron's logs to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
