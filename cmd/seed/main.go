package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/config"
	"campaignhub/internal/logging"
	"campaignhub/internal/migrate"
)

var (
	customersCount = flag.Int("customers", 12, "Number of customers to create")
	campaignsCount = flag.Int("campaigns", 3, "Number of campaigns to create")
	clearData      = flag.Bool("clear", false, "Clear existing seed data before inserting")
)

func main() {
	flag.Parse()

	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Env)

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		logger.WithError(err).Fatal("failed to open database connection")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Fatal("failed to ping database")
	}

	seeder := migrate.NewSeeder(db)

	if *clearData {
		if err := seeder.Clear(ctx); err != nil {
			logger.WithError(err).Fatal("failed to clear seed data")
		}
		logger.Info("seed data cleared")
	}

	customers, err := seeder.Customers(ctx, *customersCount)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed customers")
	}

	campaigns, err := seeder.Campaigns(ctx, *campaignsCount)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed campaigns")
	}

	for _, c := range campaigns {
		logger.WithFields(logrus.Fields{
			"id":      c.ID,
			"name":    c.Name,
			"channel": c.Channel,
			"segment": c.TargetSegment,
		}).Info("campaign created")
	}

	logger.WithFields(logrus.Fields{
		"customers": customers,
		"campaigns": len(campaigns),
	}).Info("seeding completed")
}
