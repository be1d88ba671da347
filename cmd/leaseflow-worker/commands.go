package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/leaseflow/leaseflow/pkg/cmd"
	"github.com/leaseflow/leaseflow/pkg/cycle"
	"github.com/leaseflow/leaseflow/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

var errCycleAborted = errors.New("cycle aborted")

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Schedule the lifecycle cycle of every tenant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression of the nightly cycle",
				Value:   scheduler.DefaultSchedule,
				Sources: cli.EnvVars("CYCLE_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for tenant locks across replicas",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "lock-ttl",
				Usage:   "Expiry of a tenant lock",
				Value:   scheduler.DefaultLockTTL,
				Sources: cli.EnvVars("CYCLE_LOCK_TTL"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port serving /metrics",
				Value:   9092,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.BoolFlag{
				Name:  "run-now",
				Usage: "Run a cycle for every tenant before waiting for the schedule",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			w, err := newWorker(ctx, command)
			if err != nil {
				return err
			}
			defer w.Close(ctx)

			locker, closeLocker, err := cmd.NewLocker(ctx, w.logger, command.String("redis-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := closeLocker()
				if err != nil {
					w.logger.ErrorContext(ctx, "Failed to close redis client", "error", err)
				}
			}()

			s, err := scheduler.New(w.logger, command.String("schedule"), w.persistence, w.engine.Processor,
				scheduler.WithLocker(locker),
				scheduler.WithLockTTL(command.Duration("lock-ttl")),
				scheduler.WithMetrics(w.engine.Metrics),
			)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              ":" + strconv.Itoa(command.Int("port")),
				Handler:           promhttp.HandlerFor(w.engine.Metrics.Registry(), promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				err := server.ListenAndServe()
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					w.logger.ErrorContext(ctx, "Metrics server failed", "error", err)
				}
			}()

			if command.Bool("run-now") {
				s.RunOnce(ctx)
			}

			err = s.Start(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()

			w.logger.InfoContext(ctx, "Shutting down worker")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()

			err = server.Shutdown(shutdownCtx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to stop metrics server", "error", err)
			}

			return s.Stop(shutdownCtx)
		},
	}
}

func ProcessCommand() *cli.Command {
	return &cli.Command{
		Name:    "process",
		Aliases: []string{"p"},
		Usage:   "Run one cycle for one tenant now",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "tenant-id",
				Usage:    "Tenant to process",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "property-id",
				Usage: "Restrict the cycle to a property (repeatable)",
			},
			&cli.StringFlag{
				Name:  "party-group-id",
				Usage: "Restrict the cycle to a party group",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			w, err := newWorker(ctx, command)
			if err != nil {
				return err
			}
			defer w.Close(ctx)

			result, err := w.engine.Processor.Process(ctx, cycle.Request{
				TenantID:     command.String("tenant-id"),
				PropertyIDs:  command.StringSlice("property-id"),
				PartyGroupID: command.String("party-group-id"),
			})
			if err != nil {
				return err
			}

			for _, step := range result.Steps {
				w.logger.InfoContext(ctx, "step",
					"step", step.Step,
					"skipped", step.Skipped,
					"items", step.Items,
					"applied", step.Applied,
					"exception_reported", step.ExceptionReported,
					"failed", step.Failed,
				)
			}

			if !result.Processed {
				return fmt.Errorf("%w at step %s: %w", errCycleAborted, result.FailedStep, result.Err)
			}

			return nil
		},
	}
}

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the settings document of every property",
		Action: func(ctx context.Context, command *cli.Command) error {
			w, err := newWorker(ctx, command)
			if err != nil {
				return err
			}
			defer w.Close(ctx)

			invalid, err := w.validateSettings(ctx)
			if err != nil {
				return err
			}

			if invalid > 0 {
				return fmt.Errorf("%d properties have invalid settings", invalid)
			}

			w.logger.InfoContext(ctx, "All property settings are valid")

			return nil
		},
	}
}
