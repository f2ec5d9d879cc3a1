package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/app"
	"campaignhub/internal/config"
	"campaignhub/internal/logging"
	"campaignhub/internal/queue"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "production").WithError(err).Fatal("failed to load config")
	}

	logger := logging.New(cfg.Log.Level, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialise")
	}
	defer a.Close()

	if a.Queue == nil {
		logger.Fatal("worker requires rabbitmq")
	}

	consumer, err := queue.NewConsumer(a.Queue, cfg.RabbitMQ.QueueName, app.JobHandler(a.Dispatcher, logger), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create consumer")
	}

	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start consumer")
	}
	logger.WithField("queue", cfg.RabbitMQ.QueueName).Info("worker started")

	metricsServer := serveMetrics(a, os.Getenv("WORKER_METRICS_PORT"), logger)

	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	case <-consumer.Done():
		// Broker went away; exit so the supervisor restarts us
		logger.Error("consumer stopped unexpectedly, shutting down")
	}

	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Error("error stopping consumer")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	logger.Info("worker stopped")
}

// serveMetrics exposes /metrics for the worker when a port is set
func serveMetrics(a *app.App, port string, logger logrus.FieldLogger) *http.Server {
	if port == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server failed")
		}
	}()
	return server
}
