package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"campaignhub/internal/config"
	"campaignhub/internal/logging"
	"campaignhub/internal/migrate"
)

func main() {
	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	command := "help"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up", "down", "status", "reset", "seed":
	case "help":
		printUsage()
		return
	default:
		printUsage()
		os.Exit(1)
	}

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

	migrator := migrate.New(db, getDir(), logger)
	if err := migrator.Init(ctx); err != nil {
		logger.WithError(err).Fatal("failed to prepare migrations")
	}

	switch command {
	case "up":
		n, err := migrator.Up(ctx)
		if err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
		logger.WithField("applied", n).Info("migrations up to date")
	case "down":
		rolledBack, err := migrator.Down(ctx)
		if err != nil {
			logger.WithError(err).Fatal("rollback failed")
		}
		if !rolledBack {
			logger.Warn("no migrations to roll back")
		}
	case "status":
		migrations, err := migrator.Status(ctx)
		if err != nil {
			logger.WithError(err).Fatal("failed to read status")
		}
		fmt.Print(migrate.FormatStatus(migrations))
	case "reset":
		n, err := migrator.Reset(ctx)
		if err != nil {
			logger.WithError(err).Fatal("reset failed")
		}
		logger.WithField("applied", n).Info("database reset")
	case "seed":
		n, err := migrator.Seed(ctx)
		if err != nil {
			logger.WithError(err).Fatal("seed failed")
		}
		logger.WithField("seeds", n).Info("seed data applied")
	}
}

func getDir() string {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return "migrations"
}

func printUsage() {
	fmt.Println("Usage: go run ./cmd/migrate [command]")
	fmt.Println("\nCommands:")
	fmt.Println("  up       - Apply all pending migrations")
	fmt.Println("  down     - Rollback the last applied migration")
	fmt.Println("  status   - Show current migration status")
	fmt.Println("  reset    - Rollback all migrations and reapply them")
	fmt.Println("  seed     - Run seed data files from migrations/seed")
	fmt.Println("  help     - Show this help message")
	fmt.Println("\nMigration files are migrations/NNN_name.sql, rolled back by NNN_name.down.sql.")
	fmt.Println("Set MIGRATIONS_DIR to read them from elsewhere.")
}
