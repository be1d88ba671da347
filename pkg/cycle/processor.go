// Package cycle drives the party workflow lifecycle: one cycle runs every
// transition step, in a fixed order, over the parties of a tenant.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/leaseflow/leaseflow/pkg/eventbus"
	"github.com/leaseflow/leaseflow/pkg/events"
	"github.com/leaseflow/leaseflow/pkg/metrics"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/otelhelper"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/leaseflow/leaseflow/pkg/services"
	"github.com/leaseflow/leaseflow/pkg/settings"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidRequest is returned when a cycle request fails validation.
var ErrInvalidRequest = errors.New("invalid cycle request")

// Transitions is the set of party transitions a cycle applies.
type Transitions interface {
	VoidRenewalWithVacateDatePassed(ctx context.Context, renewalPartyID string) services.TransitionResult
	CreateOneMonthActiveLease(ctx context.Context, seedPartyID string) services.TransitionResult
	SetExtensionOnActiveLease(ctx context.Context, workflowDataID string) services.TransitionResult
	ArchiveMovingOutActiveLease(ctx context.Context, partyID string) services.TransitionResult
	UpdateExtensionLeaseEndDate(ctx context.Context, workflowDataID string) services.TransitionResult
	StartActiveLeaseWorkflow(ctx context.Context, req services.StartActiveLeaseRequest) services.TransitionResult
	CreateRenewalParty(ctx context.Context, req services.CreateRenewalRequest) (*models.Party, error)
	ArchivePartyWithSuccessor(ctx context.Context, partyID string) services.TransitionResult
	ArchiveActiveLeaseMissingFromSync(ctx context.Context, partyID string) services.TransitionResult
	ArchiveActiveLeaseMoveInNotConfirmed(ctx context.Context, partyID string) services.TransitionResult
}

// Request selects the population of one cycle. PropertyIDs and PartyGroupID
// scope the cycle to a single user action.
type Request struct {
	TenantID     string   `json:"tenantId"               validate:"required"`
	PropertyIDs  []string `json:"propertyIds,omitempty"  validate:"omitempty,dive,required"`
	PartyGroupID string   `json:"partyGroupId,omitempty" validate:"omitempty,uuid"`
}

func (r Request) filter() persistence.Filter {
	return persistence.Filter{
		TenantID:     r.TenantID,
		PropertyIDs:  r.PropertyIDs,
		PartyGroupID: r.PartyGroupID,
	}
}

// StepReport counts what one step did with its items.
type StepReport struct {
	Step              Step   `json:"step"`
	Skipped           bool   `json:"skipped,omitempty"`
	SkipReason        string `json:"skipReason,omitempty"`
	Items             int    `json:"items"`
	Applied           int    `json:"applied"`
	ExceptionReported int    `json:"exceptionReported"`
	Unchanged         int    `json:"unchanged"`
	Failed            int    `json:"failed"`
}

func (r *StepReport) add(result services.TransitionResult) {
	switch result.Outcome {
	case services.OutcomeApplied:
		r.Applied++
	case services.OutcomeExceptionReported:
		r.ExceptionReported++
	case services.OutcomeSkipped:
		r.Unchanged++
	case services.OutcomeFailed:
		r.Failed++
	}
}

// Result is the outcome of one cycle. Processed is false only when a step
// could not select its items; item failures never clear it.
type Result struct {
	Processed  bool         `json:"processed"`
	Steps      []StepReport `json:"steps"`
	FailedStep Step         `json:"failedStep,omitempty"`
	Err        error        `json:"-"`
}

// Options tune a processor.
type Options struct {
	// Concurrency bounds the items of a step processed at once. Items run in
	// series unless it is above 1.
	Concurrency int
}

type Option func(*Processor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) {
		p.tracer = tracer
	}
}

// WithClock overrides the time source used for cycle timing.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

func WithOptions(opts Options) Option {
	return func(p *Processor) {
		p.opts = opts
	}
}

// Processor runs lifecycle cycles.
type Processor struct {
	persistence persistence.Persistence
	settings    *settings.Store
	transitions Transitions
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	validate    *validator.Validate
	opts        Options
	now         func() time.Time
	steps       []step
}

func NewProcessor(
	logger *slog.Logger,
	p persistence.Persistence,
	store *settings.Store,
	transitions Transitions,
	publisher eventbus.EventPublisher,
	opts ...Option,
) *Processor {
	processor := &Processor{
		persistence: p,
		settings:    store,
		transitions: transitions,
		publisher:   publisher,
		logger:      logger.With("module", "cycle"),
		tracer:      otelhelper.NoopTracer(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(processor)
	}

	processor.steps = processor.buildSteps()

	return processor
}

// Process runs every step for the tenant of req. Only an invalid request is
// returned as an error; everything else is reported in the Result.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	err := p.validate.Struct(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	filter := req.filter()
	scoped := filter.Scoped()
	startTime := p.now()

	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "cycle.process",
		attribute.String(otelhelper.TenantIDKey, req.TenantID),
		attribute.Bool(otelhelper.CycleScopedKey, scoped),
	)
	defer span.End()

	logger := p.logger.With("tenant_id", req.TenantID, "scoped", scoped)
	if req.PartyGroupID != "" {
		logger = logger.With("party_group_id", req.PartyGroupID)
	}

	logger.InfoContext(ctx, "cycle started")

	result := p.run(ctx, logger, filter)
	duration := p.now().Sub(startTime)

	if result.Err != nil {
		otelhelper.SetError(span, result.Err, attribute.String(otelhelper.CycleStepKey, string(result.FailedStep)))
		logger.ErrorContext(ctx, "cycle aborted", "step", result.FailedStep, "error", result.Err)
	} else {
		logger.InfoContext(ctx, "cycle completed", "duration", duration)
	}

	if p.metrics != nil {
		p.metrics.TrackCycle(scoped)(duration, result.Processed)
	}

	p.publishCompleted(ctx, req, result, duration)

	return result, nil
}

func (p *Processor) run(ctx context.Context, logger *slog.Logger, filter persistence.Filter) Result {
	// A full tenant run reads tenant features fresh.
	if !filter.Scoped() {
		p.settings.InvalidateTenant(filter.TenantID)
	}

	renewalsEnabled, err := p.settings.RenewalsEnabled(ctx, p.persistence.DB(), filter.TenantID)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to read tenant features: %w", err)}
	}

	result := Result{Processed: true}

	for _, s := range p.steps {
		report := StepReport{Step: s.name}

		switch {
		case s.requiresRenewals && !renewalsEnabled:
			report.Skipped = true
			report.SkipReason = "renewals disabled"
		case s.unscopedOnly && filter.Scoped():
			report.Skipped = true
			report.SkipReason = "scoped cycle"
		default:
			err := p.runStep(ctx, logger, s, filter, &report)
			if err != nil {
				result.Steps = append(result.Steps, report)

				return Result{
					Processed:  false,
					Steps:      result.Steps,
					FailedStep: s.name,
					Err:        fmt.Errorf("step %s: %w", s.name, err),
				}
			}
		}

		if report.Skipped {
			logger.DebugContext(ctx, "step skipped", "step", s.name, "reason", report.SkipReason)
		}

		result.Steps = append(result.Steps, report)
	}

	return result
}

func (p *Processor) runStep(ctx context.Context, logger *slog.Logger, s step, filter persistence.Filter, report *StepReport) error {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "cycle."+string(s.name),
		attribute.String(otelhelper.CycleStepKey, string(s.name)),
	)
	defer span.End()

	items, err := s.selectItems(ctx, p.persistence.DB(), filter)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	span.SetAttributes(attribute.Int(otelhelper.ItemCountKey, len(items)))
	report.Items = len(items)

	results := ForEachBounded(ctx, p.opts.Concurrency, items, s.apply)

	for _, result := range results {
		report.add(result)

		if p.metrics != nil {
			p.metrics.RecordStepItem(string(s.name), string(result.Outcome))
		}

		if result.Failed() {
			logger.WarnContext(ctx, "cycle item failed", "step", s.name, "party_id", result.PartyID, "error", result.Err)
		}
	}

	if report.Items > 0 {
		logger.InfoContext(ctx, "step processed",
			"step", s.name,
			"items", report.Items,
			"applied", report.Applied,
			"exception_reported", report.ExceptionReported,
			"failed", report.Failed,
		)
	}

	return nil
}

func (p *Processor) publishCompleted(ctx context.Context, req Request, result Result, duration time.Duration) {
	if p.publisher == nil {
		return
	}

	steps := make(map[string]int, len(result.Steps))
	for _, report := range result.Steps {
		steps[string(report.Step)] = report.Items
	}

	key := req.TenantID
	if req.PartyGroupID != "" {
		key = req.PartyGroupID
	}

	err := p.publisher.Publish(ctx, key, events.CycleCompleted{
		BaseEvent: events.NewBaseEvent(events.CycleCompletedEvent, req.TenantID, ""),
		Processed: result.Processed,
		Scoped:    req.filter().Scoped(),
		Steps:     steps,
		Duration:  duration,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to publish cycle completed event", "tenant_id", req.TenantID, "error", err)
	}
}
