package services

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
	"github.com/leaseflow/leaseflow/pkg/settings"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const activityComponent = "workflowTransitions"

// Outcome classifies what a batch-safe transition did.
type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeExceptionReported Outcome = "exceptionReported"
	OutcomeSkipped           Outcome = "skipped"
	OutcomeFailed            Outcome = "failed"
)

// TransitionResult is returned by transitions that run inside the batch cycle.
// A failed result carries the error that was already logged.
type TransitionResult struct {
	Outcome Outcome
	PartyID string
	Err     error
}

func (r TransitionResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Tx is the unit of work a transition runs in. Events emitted on it are
// published once the transaction commits.
type Tx struct {
	persistence.Executor

	pending []eventbus.Keyed
}

// Emit queues an event keyed by party group.
func (tx *Tx) Emit(key string, event eventbus.Event) {
	tx.pending = append(tx.pending, eventbus.Keyed{Key: key, Event: event})
}

type Option func(*Transitions)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Transitions) {
		t.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transitions) {
		t.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(t *Transitions) {
		t.tracer = tracer
	}
}

// Transitions applies one party transition per call.
type Transitions struct {
	persistence persistence.Persistence
	settings    *settings.Store
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	validate    *validator.Validate
	now         func() time.Time
}

// NewTransitions creates the transition service.
func NewTransitions(
	logger *slog.Logger,
	p persistence.Persistence,
	store *settings.Store,
	publisher eventbus.EventPublisher,
	opts ...Option,
) *Transitions {
	t := &Transitions{
		persistence: p,
		settings:    store,
		publisher:   publisher,
		logger:      logger.With("module", "transitions"),
		tracer:      otelhelper.NoopTracer(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Now returns the current time of the service clock.
func (t *Transitions) Now() time.Time {
	return t.now()
}

// HealthCheck checks the health of the persistence layer.
func (t *Transitions) HealthCheck(ctx context.Context) (string, bool) {
	if t.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := t.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// GetParty loads a party outside of any transition.
func (t *Transitions) GetParty(ctx context.Context, partyID string) (*models.Party, error) {
	party, err := t.persistence.Parties().GetByID(ctx, t.persistence.DB(), partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load party %s: %w", partyID, err)
	}

	return party, nil
}

// UpdatePropertySettings validates and stores the settings of a property.
func (t *Transitions) UpdatePropertySettings(ctx context.Context, propertyID string, settings models.PropertySettings) error {
	err := t.settings.UpdatePropertySettings(ctx, t.persistence.DB(), propertyID, settings)
	if err != nil {
		return fmt.Errorf("failed to update settings of property %s: %w", propertyID, err)
	}

	return nil
}

// InTx runs fn in one transaction and publishes its events after commit.
func (t *Transitions) InTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	var pending []eventbus.Keyed

	err := t.persistence.InTx(ctx, func(ctx context.Context, ex persistence.Executor) error {
		tx := &Tx{Executor: ex}

		err := fn(ctx, tx)
		if err != nil {
			return err
		}

		pending = tx.pending

		return nil
	})
	if err != nil {
		return err
	}

	t.publish(ctx, pending)

	return nil
}

// publish runs after commit, so a bus failure is logged and not returned.
func (t *Transitions) publish(ctx context.Context, pending []eventbus.Keyed) {
	if t.publisher == nil || len(pending) == 0 {
		return
	}

	err := eventbus.PublishAll(ctx, t.publisher, pending)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to publish events", "count", len(pending), "error", err)
	}
}

// runBatch wraps a batch-safe transition: failures are logged and reported in the result.
func (t *Transitions) runBatch(
	ctx context.Context,
	op string,
	partyID string,
	fn func(ctx context.Context, tx *Tx) (Outcome, string, error),
) TransitionResult {
	ctx, span := otelhelper.StartSpan(ctx, t.tracer, "transitions."+op,
		attribute.String(otelhelper.OperationKey, op),
		attribute.String(otelhelper.PartyIDKey, partyID),
	)
	defer span.End()

	result := TransitionResult{PartyID: partyID}

	err := t.InTx(ctx, func(ctx context.Context, tx *Tx) error {
		outcome, resultPartyID, err := fn(ctx, tx)
		if err != nil {
			return err
		}

		result.Outcome = outcome
		if resultPartyID != "" {
			result.PartyID = resultPartyID
		}

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.PartyIDKey, partyID))
		t.logger.ErrorContext(ctx, "transition failed", "operation", op, "party_id", partyID, "error", err)

		result = TransitionResult{
			Outcome: OutcomeFailed,
			PartyID: partyID,
			Err:     &TransitionError{Op: op, PartyID: partyID, Err: err},
		}
	}

	t.recordTransition(op, string(result.Outcome))

	return result
}

// runInteractive wraps a user-triggered transition: errors are returned.
func (t *Transitions) runInteractive(ctx context.Context, op, partyID string, fn func(ctx context.Context, tx *Tx) error) error {
	ctx, span := otelhelper.StartSpan(ctx, t.tracer, "transitions."+op,
		attribute.String(otelhelper.OperationKey, op),
		attribute.String(otelhelper.PartyIDKey, partyID),
	)
	defer span.End()

	err := t.InTx(ctx, fn)
	if err != nil {
		otelhelper.SetError(span, err)
		t.logger.ErrorContext(ctx, "transition failed", "operation", op, "party_id", partyID, "error", err)
		t.recordTransition(op, string(OutcomeFailed))

		return &TransitionError{Op: op, PartyID: partyID, Err: err}
	}

	t.recordTransition(op, string(OutcomeApplied))

	return nil
}

func (t *Transitions) recordTransition(op, outcome string) {
	if t.metrics != nil {
		t.metrics.RecordTransition(op, outcome)
	}
}

func (t *Transitions) validateRequest(req any) error {
	err := t.validate.Struct(req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, validationErrors.Error())
		}

		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return nil
}

// archiveParty archives one active party and records the activity and event.
func (t *Transitions) archiveParty(ctx context.Context, tx *Tx, party *models.Party, reason models.ArchiveReason) error {
	err := t.persistence.Parties().Archive(ctx, tx, party.ID, reason)
	if err != nil {
		return fmt.Errorf("failed to archive party %s: %w", party.ID, err)
	}

	now := t.now()
	party.WorkflowState = models.WorkflowStateArchived
	party.ArchiveDate = &now
	party.ArchiveReasonID = &reason

	err = t.logActivity(ctx, tx, party, models.ActivityActionArchive, map[string]any{
		"archiveReasonId": reason,
		"workflowName":    party.WorkflowName,
		"trigger":         archiveTrigger(reason),
	})
	if err != nil {
		return err
	}

	archived := events.PartyArchived{
		BaseEvent:    events.NewBaseEvent(events.PartyArchivedEvent, party.TenantID, party.ID),
		WorkflowName: party.WorkflowName,
		Reason:       reason,
	}
	tx.Emit(party.PartyGroupID, archived)

	t.logger.InfoContext(ctx, "party archived",
		"tenant_id", party.TenantID, "party_id", party.ID, "workflow", party.WorkflowName, "reason", reason)

	return nil
}

// archiveWithRenewal archives an active lease party and its active renewal sibling.
func (t *Transitions) archiveWithRenewal(ctx context.Context, tx *Tx, party *models.Party, reason models.ArchiveReason) error {
	err := t.archiveParty(ctx, tx, party, reason)
	if err != nil {
		return err
	}

	return t.archiveRenewalSibling(ctx, tx, party, reason)
}

func (t *Transitions) archiveRenewalSibling(ctx context.Context, tx *Tx, activeLease *models.Party, reason models.ArchiveReason) error {
	renewal, err := t.persistence.Parties().GetActiveBySeed(ctx, tx, activeLease.ID, models.WorkflowNameRenewal)
	if err != nil {
		return fmt.Errorf("failed to get renewal of party %s: %w", activeLease.ID, err)
	}

	if renewal == nil {
		return nil
	}

	return t.archiveParty(ctx, tx, renewal, reason)
}

// archiveTrigger names the lifecycle event that archives a party for the given reason.
func archiveTrigger(reason models.ArchiveReason) string {
	switch reason {
	case models.ArchiveReasonResidentsHaveMovedOut:
		return "movedOut"
	case models.ArchiveReasonCreatedOneMonthLease,
		models.ArchiveReasonLeaseInPastNoOneMonthLeaseTerm:
		return "oneMonthLease"
	case models.ArchiveReasonLeaseInPastNoPublishedQuote:
		return "extension"
	case models.ArchiveReasonNewResidentCreatedSyncNotEnabled:
		return "inventoryConflict"
	case models.ArchiveReasonPartyConvertedToActiveLease,
		models.ArchiveReasonPreviousActiveLeaseRenewed:
		return "activeLeaseSpawned"
	case models.ArchiveReasonActiveLeaseVacateDatePassed:
		return "vacateDatePassed"
	case models.ArchiveReasonResidentNotPresentInExternalSync:
		return "externalSync"
	case models.ArchiveReasonMoveInNotConfirmed:
		return "moveInNotConfirmed"
	}

	return "unknown"
}

func (t *Transitions) logActivity(
	ctx context.Context,
	ex persistence.Executor,
	party *models.Party,
	action models.ActivityAction,
	details map[string]any,
) error {
	entry := &models.ActivityLogEntry{
		TenantID:   party.TenantID,
		PartyID:    party.ID,
		EntityType: "party",
		Action:     action,
		Component:  activityComponent,
		Details:    details,
	}

	err := t.persistence.Reports().LogActivity(ctx, ex, entry)
	if err != nil {
		return fmt.Errorf("failed to log activity for party %s: %w", party.ID, err)
	}

	return nil
}

func (t *Transitions) raiseException(
	ctx context.Context,
	tx *Tx,
	party *models.Party,
	rule models.ExceptionReportRule,
	data map[string]any,
) error {
	report := &models.ExceptionReport{
		TenantID:   party.TenantID,
		RuleID:     rule,
		PartyID:    party.ID,
		PropertyID: party.AssignedPropertyID,
		Data:       data,
	}

	err := t.persistence.Reports().CreateExceptionReport(ctx, tx, report)
	if err != nil {
		return fmt.Errorf("failed to create exception report %s: %w", rule, err)
	}

	if t.metrics != nil {
		t.metrics.RecordExceptionReport(string(rule))
	}

	tx.Emit(party.PartyGroupID, events.ExceptionReported{
		BaseEvent:  events.NewBaseEvent(events.ExceptionReportedEvent, party.TenantID, party.ID),
		RuleID:     rule,
		PropertyID: party.AssignedPropertyID,
	})

	t.logger.WarnContext(ctx, "exception report raised",
		"tenant_id", party.TenantID, "party_id", party.ID, "rule", rule)

	return nil
}

// residentState derives the party state of an active lease lineage.
func residentState(data *models.ActiveLeaseWorkflowData) models.PartyState {
	if data != nil && data.IsMovingOut() {
		return models.PartyStateMovingOut
	}

	return models.PartyStateResident
}
