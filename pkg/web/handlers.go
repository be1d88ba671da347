// Package web provides HTTP handlers for user-triggered lifecycle actions.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/leaseflow/leaseflow/pkg/cycle"
	"github.com/leaseflow/leaseflow/pkg/metrics"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CycleProcessor runs one lifecycle cycle.
type CycleProcessor interface {
	Process(ctx context.Context, req cycle.Request) (cycle.Result, error)
}

// Actions are the transitions and settings changes a user can trigger.
type Actions interface {
	GetParty(ctx context.Context, partyID string) (*models.Party, error)
	CreateRenewalParty(ctx context.Context, req services.CreateRenewalRequest) (*models.Party, error)
	MarkActiveLeaseAsMovingOut(ctx context.Context, req services.MovingOutRequest) (*models.ActiveLeaseWorkflowData, error)
	CancelActiveLeaseAsMovingOut(ctx context.Context, req services.CancelMovingOutRequest) (*models.ActiveLeaseWorkflowData, error)
	UpdatePropertySettings(ctx context.Context, propertyID string, settings models.PropertySettings) error
	HealthCheck(ctx context.Context) (string, bool)
}

type APIHandlers struct {
	actions   Actions
	cycles    CycleProcessor
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(
	logger *slog.Logger,
	actions Actions,
	cycles CycleProcessor,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		actions:   actions,
		cycles:    cycles,
		validator: validator,
		logger:    logger.With("module", "web"),
	}
}

// RunCycle runs the cycle of a tenant, optionally scoped by the body.
func (h *APIHandlers) RunCycle(c fiber.Ctx) error {
	tenantID := c.Params("tenantId")
	if tenantID == "" {
		return badRequest(c, "Tenant ID is required")
	}

	var req RunCycleRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.cycles.Process(c.Context(), cycle.Request{
		TenantID:     tenantID,
		PropertyIDs:  req.PropertyIDs,
		PartyGroupID: req.PartyGroupID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	if !result.Processed {
		if services.IsNotFoundError(result.Err) {
			return handleServiceError(c, result.Err)
		}

		return cycleAborted(c, result)
	}

	return c.JSON(result)
}

func (h *APIHandlers) CreateRenewal(c fiber.Ctx) error {
	partyID := c.Params("partyId")
	if partyID == "" {
		return badRequest(c, "Party ID is required")
	}

	var req CreateRenewalRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	renewal, err := h.actions.CreateRenewalParty(c.Context(), services.CreateRenewalRequest{
		SeedPartyID: partyID,
		AuthUserID:  req.AuthUserID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(RenewalResponse{
		Party: renewal,
		Cycle: h.reprocess(c.Context(), renewal),
	})
}

func (h *APIHandlers) MarkMovingOut(c fiber.Ctx) error {
	partyID := c.Params("partyId")
	if partyID == "" {
		return badRequest(c, "Party ID is required")
	}

	var req MovingOutRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	data, err := h.actions.MarkActiveLeaseAsMovingOut(c.Context(), services.MovingOutRequest{
		PartyID:          partyID,
		VacateDate:       req.VacateDate,
		DateOfTheNotice:  req.DateOfTheNotice,
		MoveOutConfirmed: req.MoveOutConfirmed,
		AuthUserID:       req.AuthUserID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ActiveLeaseResponse{
		ActiveLease: data,
		Cycle:       h.reprocessParty(c.Context(), data.PartyID),
	})
}

func (h *APIHandlers) CancelMovingOut(c fiber.Ctx) error {
	partyID := c.Params("partyId")
	if partyID == "" {
		return badRequest(c, "Party ID is required")
	}

	var req CancelMovingOutRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	data, err := h.actions.CancelActiveLeaseAsMovingOut(c.Context(), services.CancelMovingOutRequest{
		PartyID:    partyID,
		AuthUserID: req.AuthUserID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ActiveLeaseResponse{
		ActiveLease: data,
		Cycle:       h.reprocessParty(c.Context(), data.PartyID),
	})
}

// UpdatePropertySettings replaces the settings document of a property.
func (h *APIHandlers) UpdatePropertySettings(c fiber.Ctx) error {
	propertyID := c.Params("propertyId")
	if propertyID == "" {
		return badRequest(c, "Property ID is required")
	}

	var req models.PropertySettings
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err := h.actions.UpdatePropertySettings(c.Context(), propertyID, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.actions.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Leaseflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Leaseflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// reprocess runs the cycle scoped to the party group of party. The user
// action already committed, so a cycle failure is logged and not returned.
func (h *APIHandlers) reprocess(ctx context.Context, party *models.Party) *cycle.Result {
	if party == nil || party.PartyGroupID == "" {
		return nil
	}

	result, err := h.cycles.Process(ctx, cycle.Request{
		TenantID:     party.TenantID,
		PartyGroupID: party.PartyGroupID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to reprocess party group",
			"tenant_id", party.TenantID, "party_group_id", party.PartyGroupID, "error", err)

		return nil
	}

	if !result.Processed {
		h.logger.WarnContext(ctx, "party group cycle aborted",
			"tenant_id", party.TenantID, "party_group_id", party.PartyGroupID, "step", result.FailedStep, "error", result.Err)
	}

	return &result
}

func (h *APIHandlers) reprocessParty(ctx context.Context, partyID string) *cycle.Result {
	party, err := h.actions.GetParty(ctx, partyID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to load party for reprocessing", "party_id", partyID, "error", err)

		return nil
	}

	return h.reprocess(ctx, party)
}

// MetricsHandler serves the Prometheus registry of m.
func MetricsHandler(m *metrics.Metrics) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
}

// MetricsMiddleware records one sample per request, labelled by route pattern.
func MetricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
		}

		m.RecordHTTPRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))

		return err
	}
}
