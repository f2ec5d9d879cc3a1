// Package app assembles the dispatcher and its dependencies from config.
// Both binaries build the same graph; only the entry surface differs.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/config"
	"campaignhub/internal/lock"
	"campaignhub/internal/logging"
	"campaignhub/internal/metrics"
	"campaignhub/internal/queue"
	"campaignhub/internal/repository"
	"campaignhub/internal/service"
	"campaignhub/internal/transport"
)

// Version is reported by the health endpoint
var Version = "dev"

const startupTimeout = 10 * time.Second

// App holds the wired dependency graph
type App struct {
	Config     *config.Config
	Logger     *logrus.Logger
	DB         *sql.DB
	Redis      *redis.Client
	Queue      *queue.Connection
	Publisher  *queue.Publisher
	Metrics    *metrics.Metrics
	Dispatcher *service.Dispatcher
	Campaigns  *service.CampaignService
	Health     *service.HealthChecker
}

// New connects to PostgreSQL (required), Redis and RabbitMQ (both
// optional) and builds the services on top of them.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	a.DB = db
	logger.Info("connected to database")

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			db.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.Redis = client
		logger.WithField("addr", cfg.Redis.Addr).Info("connected to redis")
	}

	transports, err := transport.FromConfig(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	locker := lock.New(a.Redis, db, cfg.Dispatch.LockTTL)
	logger.WithField("backend", lock.Backend(locker)).Info("dispatch lock configured")

	campaignRepo := repository.NewCampaignRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	templates := service.NewTemplateService(logger)

	a.Dispatcher = service.NewDispatcher(
		campaignRepo,
		customerRepo,
		transports,
		service.CredentialsFromConfig(cfg),
		service.SetLogger(logger),
		service.SetMetrics(a.Metrics),
		service.SetLocker(locker),
		service.SetConcurrency(cfg.Dispatch.Concurrency),
		service.SetSendTimeout(cfg.Dispatch.SendTimeout),
		service.SetSegments(service.NewSegmentRegistry(cfg.Dispatch.VIPMinOrders)),
		service.SetTemplates(templates),
		service.SetRedactor(logging.Redactor{Enabled: cfg.Log.RedactPII}),
	)

	var publisher service.JobPublisher
	if pub, err := a.connectQueue(); err != nil {
		logger.WithError(err).Warn("rabbitmq unavailable, async dispatch disabled")
	} else {
		publisher = pub
	}

	a.Campaigns = service.NewCampaignService(campaignRepo, templates, publisher, logger)

	var probe service.QueueProbe
	if a.Queue != nil {
		probe = a.Queue
	}
	a.Health = service.NewHealthService(db, probe, a.Redis, Version)

	return a, nil
}

func (a *App) connectQueue() (*queue.Publisher, error) {
	conn, err := queue.NewConnection(a.Config.GetRabbitMQURL(), a.Logger)
	if err != nil {
		return nil, err
	}
	publisher, err := queue.NewPublisher(conn, a.Config.RabbitMQ.QueueName)
	if err != nil {
		conn.Close()
		return nil, err
	}
	a.Queue = conn
	a.Publisher = publisher
	return publisher, nil
}

// Close releases every connection the App opened
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
