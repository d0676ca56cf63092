package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"research/internal/api"
	"research/internal/api/handler/v1handler"
	"research/internal/config"
	"research/internal/research"
	"research/internal/worker"
	"research/pkg/logger"
	"research/pkg/storage/postgres"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// setupMeter wires OpenTelemetry metrics into the default Prometheus
// registry, which the API server exposes at the metrics path.
func setupMeter(ctx context.Context) *sdkmetric.MeterProvider {
	exp, err := otelprom.New(otelprom.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		logger.Fatal(ctx, "could not create otel exporter", zap.Error(err))
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
}

func setupServer(ctx context.Context, cfg *config.Config, svc research.Service) func(ctx context.Context) {
	server, err := api.NewServer(api.Deps{
		Deps: v1handler.Deps{Research: svc},
	}, api.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...")
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func setupWorker(ctx context.Context,
	cfg *config.Config,
	strg *postgres.PgSQL,
	svc research.Service) func(ctx context.Context) {
	riverClient, err := worker.Start(ctx, strg.Pool, svc, cfg.Worker.Count)
	if err != nil {
		logger.Fatal(ctx, "could not start worker", zap.Error(err))
	}

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping worker...")
		if err := riverClient.Stop(ctx); err != nil {
			logger.Error(ctx, "could not stop worker", zap.Error(err))
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and background workers",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			options := research.NewOptions(cfg)
			options.Meter = setupMeter(ctx).Meter("research")
			svc := research.New(strg, options)

			stopWorker := setupWorker(ctx, cfg, strg, svc)
			stopWebserver := setupServer(ctx, cfg, svc)

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)
			stopWorker(shutdownCtx)
		},
	}

	return cmd
}
