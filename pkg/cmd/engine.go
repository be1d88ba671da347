package cmd

import (
	"fmt"
	"log/slog"

	"github.com/leaseflow/leaseflow/pkg/cycle"
	"github.com/leaseflow/leaseflow/pkg/eventbus"
	"github.com/leaseflow/leaseflow/pkg/metrics"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/leaseflow/leaseflow/pkg/services"
	"github.com/leaseflow/leaseflow/pkg/settings"
	"go.opentelemetry.io/otel/trace"
)

// EngineConfig carries the knobs shared by the worker and the API.
type EngineConfig struct {
	Concurrency int
	Settings    settings.Options
}

// Engine is the wired transition service and cycle processor.
type Engine struct {
	Settings    *settings.Store
	Transitions *services.Transitions
	Processor   *cycle.Processor
	Metrics     *metrics.Metrics
}

func NewEngine(
	logger *slog.Logger,
	p persistence.Persistence,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	config EngineConfig,
) (*Engine, error) {
	store, err := settings.NewStore(logger, p.Settings(), config.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings store: %w", err)
	}

	m := metrics.New()

	transitions := services.NewTransitions(logger, p, store, publisher,
		services.WithMetrics(m),
		services.WithTracer(tracer),
	)

	processor := cycle.NewProcessor(logger, p, store, transitions, publisher,
		cycle.WithMetrics(m),
		cycle.WithTracer(tracer),
		cycle.WithClock(transitions.Now),
		cycle.WithOptions(cycle.Options{Concurrency: config.Concurrency}),
	)

	return &Engine{
		Settings:    store,
		Transitions: transitions,
		Processor:   processor,
		Metrics:     m,
	}, nil
}
