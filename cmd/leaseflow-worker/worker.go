package main

import (
	"context"
	"log/slog"

	"github.com/leaseflow/leaseflow/pkg/cmd"
	"github.com/leaseflow/leaseflow/pkg/eventbus"
	"github.com/leaseflow/leaseflow/pkg/log"
	"github.com/leaseflow/leaseflow/pkg/otelhelper"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/urfave/cli/v3"
)

// worker holds the dependencies every subcommand opens and closes.
type worker struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	engine      *cmd.Engine
	closers     []func(ctx context.Context)
}

func newWorker(ctx context.Context, command *cli.Command) (*worker, error) {
	log.Setup(command.String("log-level"), command.String("log-format"))

	w := &worker{logger: log.WithModule(serviceName).With("command", command.Name)}

	w.logger.InfoContext(ctx, "Initializing Leaseflow worker")

	tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, serviceName, command.Bool("tracing"))
	if err != nil {
		return nil, err
	}

	w.onClose(func(ctx context.Context) {
		err := shutdownTracer(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
		}
	})

	w.persistence, err = cmd.NewPersistence(ctx, w.logger, command.String("database-url"))
	if err != nil {
		w.Close(ctx)

		return nil, err
	}

	w.onClose(func(ctx context.Context) {
		err := w.persistence.Close(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	})

	w.eventBus, err = cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, w.logger)
	if err != nil {
		w.Close(ctx)

		return nil, err
	}

	w.onClose(func(ctx context.Context) {
		err := w.eventBus.Close()
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	})

	w.engine, err = cmd.NewEngine(w.logger, w.persistence, w.eventBus, tracer, cmd.EngineConfig{
		Concurrency: command.Int("concurrency"),
	})
	if err != nil {
		w.Close(ctx)

		return nil, err
	}

	return w, nil
}

func (w *worker) onClose(fn func(ctx context.Context)) {
	w.closers = append(w.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (w *worker) Close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i](ctx)
	}

	w.closers = nil
}

// validateSettings checks the stored settings of every property and returns
// how many failed.
func (w *worker) validateSettings(ctx context.Context) (int, error) {
	repo := w.persistence.Settings()

	tenants, err := repo.ListTenants(ctx, w.persistence.DB())
	if err != nil {
		return 0, err
	}

	invalid := 0

	for _, tenant := range tenants {
		properties, err := repo.ListProperties(ctx, w.persistence.DB(), tenant.ID)
		if err != nil {
			return invalid, err
		}

		for _, property := range properties {
			err := w.engine.Settings.ValidatePropertySettings(property.Settings)
			if err != nil {
				invalid++

				w.logger.WarnContext(ctx, "Invalid property settings",
					"tenant_id", tenant.ID, "property_id", property.ID, "error", err)
			}
		}
	}

	return invalid, nil
}
