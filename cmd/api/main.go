package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/app"
	"campaignhub/internal/config"
	"campaignhub/internal/handler"
	"campaignhub/internal/logging"
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

	router := handler.NewRouter(handler.RouterDeps{
		Dispatcher: a.Dispatcher,
		Campaigns:  a.Campaigns,
		Health:     a.Health,
		Metrics:    a.Metrics,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port": cfg.Server.Port,
			"env":  cfg.Env,
		}).Info("api server starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	// In-flight dispatches keep running past cancellation; give them time
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}

	logger.Info("api server stopped")
}
