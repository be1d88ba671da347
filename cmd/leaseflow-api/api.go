// Package main provides the leaseflow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/leaseflow/leaseflow/pkg/metrics"
	"github.com/leaseflow/leaseflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	actions  web.Actions
	cycles   web.CycleProcessor
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	actions web.Actions,
	cycles web.CycleProcessor,
	m *metrics.Metrics,
) *API {
	return &API{
		logger:   logger,
		actions:  actions,
		cycles:   cycles,
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.logger, a.actions, a.cycles, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))
	app.Use(web.MetricsMiddleware(a.metrics))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Leaseflow API")
	})

	app.Post("/tenants/:tenantId/cycles", handlers.RunCycle)
	app.Post("/parties/:partyId/renewals", handlers.CreateRenewal)

	al := app.Group("/active-leases")
	al.Post("/:partyId/moving-out", handlers.MarkMovingOut)
	al.Delete("/:partyId/moving-out", handlers.CancelMovingOut)

	app.Put("/properties/:propertyId/settings", handlers.UpdatePropertySettings)

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", web.MetricsHandler(a.metrics))

	return app
}

// Start serves until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	})
}
