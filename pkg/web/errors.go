package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/leaseflow/leaseflow/pkg/cycle"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/leaseflow/leaseflow/pkg/services"
	"github.com/leaseflow/leaseflow/pkg/settings"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

func cycleAborted(c fiber.Ctx, result cycle.Result) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("cycle_aborted").
		WithDetail(string(result.FailedStep))

	if result.Err != nil {
		problem = problem.WithError(result.Err)
	}

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service and persistence errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err),
		errors.Is(err, cycle.ErrInvalidRequest),
		errors.Is(err, settings.ErrInvalidSettings):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case errors.Is(err, persistence.ErrPartyNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("party_not_found").
			WithDetail("party not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, persistence.ErrTenantNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("tenant_not_found").
			WithDetail("tenant not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsNotFoundError(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("not_found").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		return internalError(c, err)
	}
}
