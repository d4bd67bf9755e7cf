package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"

	"github.com/draup/assetexplorer/warehouse"
)

const migrationsDir = "db/clickhouse/migrations"

// slogGooseLogger adapts slog.Logger to goose.Logger.
type slogGooseLogger struct {
	log *slog.Logger
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, log *slog.Logger, cfg ConnConfig) error {
	log.Info("clickhouse: running migrations")

	db, err := newSQLDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database connection for migrations: %w", err)
	}
	defer db.Close()

	if err := setupGoose(log); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("clickhouse: migrations completed")
	return nil
}

// MigrationStatus logs the state of every migration.
func MigrationStatus(ctx context.Context, log *slog.Logger, cfg ConnConfig) error {
	db, err := newSQLDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	defer db.Close()

	if err := setupGoose(log); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, migrationsDir)
}

func setupGoose(log *slog.Logger) error {
	goose.SetLogger(&slogGooseLogger{log: log})
	goose.SetBaseFS(warehouse.ClickHouseMigrationsFS)
	if err := goose.SetDialect("clickhouse"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

func newSQLDB(cfg ConnConfig) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return clickhouse.OpenDB(cfg.options()), nil
}
