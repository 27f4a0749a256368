package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/finvault/transaction-service/internal/repository"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s up|down|status\n", os.Args[0])
	os.Exit(2)
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if len(os.Args) != 2 {
		usage()
	}

	// Only the database is needed here; skip full config validation.
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "file:transactions.db"
	}

	repo, err := repository.Open(dsn)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.Ping(ctx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	switch os.Args[1] {
	case "up":
		if err := repo.Migrate(ctx); err != nil {
			logger.Fatalf("Migration failed: %v", err)
		}
		logger.Info("Migrations applied")
	case "down":
		if err := repo.MigrateDown(ctx); err != nil {
			logger.Fatalf("Rollback failed: %v", err)
		}
		logger.Info("Rolled back latest migration")
	case "status":
		if err := repo.MigrationStatus(ctx); err != nil {
			logger.Fatalf("Status failed: %v", err)
		}
	default:
		usage()
	}
}
