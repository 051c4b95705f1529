package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/claims-processor/internal/bootstrap"
	"github.com/kirillkom/claims-processor/internal/config"
	"github.com/kirillkom/claims-processor/internal/observability/logging"
	"github.com/kirillkom/claims-processor/internal/observability/metrics"
)

const service = "claims-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, service, workerMetrics.Registry())
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeClaimSubmitted(ctx, func(handlerCtx context.Context, claimID string) error {
		if job, err := app.Claims.GetByID(handlerCtx, claimID); err == nil {
			workerMetrics.ObserveQueueLag(service, time.Since(job.CreatedAt))
		}

		workerMetrics.StartClaim()
		start := time.Now()
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerProcessTimeout())
		defer cancel()

		err := app.JobProcessor.ProcessByID(processCtx, claimID)
		workerMetrics.FinishClaim(service, time.Since(start), err)
		if err == nil {
			slog.Info("claim_job_completed", "claim_id", claimID, "duration_ms", time.Since(start).Milliseconds())
		}
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
