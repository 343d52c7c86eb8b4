package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/snodas-swe-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/snodas-swe-etl/internal/adapter/kafka"
	s3adapter "github.com/couchcryptid/snodas-swe-etl/internal/adapter/s3"
	"github.com/couchcryptid/snodas-swe-etl/internal/adapter/snodas"
	"github.com/couchcryptid/snodas-swe-etl/internal/basin"
	"github.com/couchcryptid/snodas-swe-etl/internal/config"
	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
	"github.com/couchcryptid/snodas-swe-etl/internal/graphs"
	"github.com/couchcryptid/snodas-swe-etl/internal/observability"
	"github.com/couchcryptid/snodas-swe-etl/internal/pipeline"
	"github.com/couchcryptid/snodas-swe-etl/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:           "etl",
		Short:         "SNODAS snow water equivalent basin statistics pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), dateCmd(), serveCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// service holds everything a command needs after wiring.
type service struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	runner  *pipeline.Runner
	closers []func() error
}

func (s *service) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.logger.Error("close error", "error", err)
		}
	}
}

// wire builds the full pipeline from environment configuration.
func wire() (*service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry, err := basin.Load(cfg.BasinShapefile, cfg.BasinIDField, cfg.BasinNameField)
	if err != nil {
		return nil, fmt.Errorf("loading basin layer: %w", err)
	}
	logger.Info("basin layer loaded", "path", cfg.BasinShapefile, "basins", registry.Len())

	st, err := store.New(cfg.OutputDir, store.Schema{
		IDField:   cfg.BasinIDField,
		NameField: cfg.BasinNameField,
		Optional: domain.OptionalStats{
			Max:    cfg.IncludeMax,
			Min:    cfg.IncludeMin,
			StdDev: cfg.IncludeStdDev,
		},
	})
	if err != nil {
		return nil, err
	}

	fetcher, err := snodas.NewClient(cfg, registry.SR(), logger, metrics)
	if err != nil {
		return nil, err
	}

	svc := &service{cfg: cfg, logger: logger, metrics: metrics}

	var publishers []pipeline.Publisher
	if cfg.S3Enabled {
		pub, err := s3adapter.NewPublisher(cfg, cfg.OutputDir, logger)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, pub)
		logger.Info("s3 publishing enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	}
	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		publishers = append(publishers, w)
		svc.closers = append(svc.closers, w.Close)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}

	var renderer pipeline.GraphRenderer
	if cfg.GraphCommand != "" {
		renderer = graphs.New(cfg.GraphCommand, cfg.OutputDir, cfg.GraphTimeout, logger)
	}

	orch := pipeline.NewOrchestrator(fetcher, registry, domain.NewStatsEngine(registry.SR()),
		st, logger, metrics, domain.OptionalStats{
			Max:    cfg.IncludeMax,
			Min:    cfg.IncludeMin,
			StdDev: cfg.IncludeStdDev,
		})
	svc.runner = pipeline.NewRunner(orch, st, publishers, renderer, logger, metrics)
	return svc, nil
}

// runCmd drains the trailing-week backlog once and exits.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process all pending dates in the trailing week, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := wire()
			if err != nil {
				return err
			}
			defer svc.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return svc.runner.RunBacklog(ctx, time.Now().UTC())
		},
	}
}

// dateCmd reprocesses one explicit date.
func dateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date YYYYMMDD",
		Short: "Process or reprocess a single observation date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse(domain.DateLayout, args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q: want YYYYMMDD", args[0])
			}

			svc, err := wire()
			if err != nil {
				return err
			}
			defer svc.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return svc.runner.RunDate(ctx, date)
		},
	}
}

// serveCmd runs the backlog on a cron schedule and serves the operational
// HTTP endpoints until signalled.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on a schedule with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := wire()
			if err != nil {
				return err
			}
			defer svc.close()

			schedule, err := cron.ParseStandard(svc.cfg.RunSchedule)
			if err != nil {
				return fmt.Errorf("invalid RUN_SCHEDULE %q: %w", svc.cfg.RunSchedule, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := httpadapter.NewServer(svc.cfg.HTTPAddr, svc.runner, svc.logger)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					svc.logger.Error("http server error", "error", err)
				}
			}()

			// Catch up immediately, then follow the schedule.
			runOnce(ctx, svc)
			go scheduleLoop(ctx, svc, schedule)

			<-ctx.Done()
			svc.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), svc.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				svc.logger.Error("http server shutdown error", "error", err)
			}
			svc.logger.Info("shutdown complete")
			return nil
		},
	}
}

func runOnce(ctx context.Context, svc *service) {
	if err := svc.runner.RunBacklog(ctx, time.Now().UTC()); err != nil {
		svc.logger.Error("run failed", "error", err)
	}
}

func scheduleLoop(ctx context.Context, svc *service, schedule cron.Schedule) {
	for {
		next := schedule.Next(time.Now())
		svc.logger.Info("next run scheduled", "at", next)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			runOnce(ctx, svc)
		}
	}
}
