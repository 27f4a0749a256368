package repository

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func (r *Repository) gooseSetup() error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(r.dialect); err != nil {
		return fmt.Errorf("failed to configure goose: %w", err)
	}
	return nil
}

// Migrate applies all pending migrations.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.gooseSetup(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := goose.UpContext(runCtx, r.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (r *Repository) MigrateDown(ctx context.Context) error {
	if err := r.gooseSetup(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := goose.DownContext(runCtx, r.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// MigrationStatus prints applied and pending migrations.
func (r *Repository) MigrationStatus(ctx context.Context) error {
	if err := r.gooseSetup(); err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, r.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to report migration status: %w", err)
	}
	return nil
}
