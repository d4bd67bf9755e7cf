package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/draup/assetexplorer/utils/pkg/logger"
	"github.com/draup/assetexplorer/warehouse/pkg/clickhouse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// ClickHouse configuration
	clickhouseAddrFlag := flag.String("clickhouse-addr", "", "ClickHouse address (host:port) (or set CLICKHOUSE_ADDR_TCP env var)")
	clickhouseDatabaseFlag := flag.String("clickhouse-database", "default", "ClickHouse database name (or set CLICKHOUSE_DATABASE env var)")
	clickhouseUsernameFlag := flag.String("clickhouse-username", "default", "ClickHouse username (or set CLICKHOUSE_USERNAME env var)")
	clickhousePasswordFlag := flag.String("clickhouse-password", "", "ClickHouse password (or set CLICKHOUSE_PASSWORD env var)")
	clickhouseSecureFlag := flag.Bool("clickhouse-secure", false, "Enable TLS for ClickHouse Cloud (or set CLICKHOUSE_SECURE=true env var)")

	// Commands
	createDatabaseFlag := flag.Bool("create-database", false, "Create the ClickHouse database if it does not exist")
	clickhouseMigrateFlag := flag.Bool("clickhouse-migrate", false, "Run warehouse database migrations using goose")
	clickhouseMigrateStatusFlag := flag.Bool("clickhouse-migrate-status", false, "Show warehouse database migration status")
	resetDBFlag := flag.Bool("reset-db", false, "Drop the warehouse transfer tables and migration history")
	dryRunFlag := flag.Bool("dry-run", false, "Dry run mode - show what would be done without actually executing")
	yesFlag := flag.Bool("yes", false, "Skip confirmation prompt (use with caution)")

	flag.Parse()

	log := logger.New(*verboseFlag)

	// Override ClickHouse flags with environment variables if set
	if envClickhouseAddr := os.Getenv("CLICKHOUSE_ADDR_TCP"); envClickhouseAddr != "" {
		*clickhouseAddrFlag = envClickhouseAddr
	}
	if envClickhouseDatabase := os.Getenv("CLICKHOUSE_DATABASE"); envClickhouseDatabase != "" {
		*clickhouseDatabaseFlag = envClickhouseDatabase
	}
	if envClickhouseUsername := os.Getenv("CLICKHOUSE_USERNAME"); envClickhouseUsername != "" {
		*clickhouseUsernameFlag = envClickhouseUsername
	}
	if envClickhousePassword := os.Getenv("CLICKHOUSE_PASSWORD"); envClickhousePassword != "" {
		*clickhousePasswordFlag = envClickhousePassword
	}
	if os.Getenv("CLICKHOUSE_SECURE") == "true" {
		*clickhouseSecureFlag = true
	}

	cfg := clickhouse.ConnConfig{
		Addr:     *clickhouseAddrFlag,
		Database: *clickhouseDatabaseFlag,
		Username: *clickhouseUsernameFlag,
		Password: *clickhousePasswordFlag,
		Secure:   *clickhouseSecureFlag,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *createDatabaseFlag {
		if cfg.Addr == "" {
			return fmt.Errorf("--clickhouse-addr is required for --create-database")
		}
		// The target database may not exist yet, so connect to the default one.
		bootstrap := cfg
		bootstrap.Database = "default"
		conn, err := clickhouse.Open(ctx, log, bootstrap)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := clickhouse.CreateDatabase(ctx, log, conn, cfg.Database); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	if *resetDBFlag {
		if cfg.Addr == "" {
			return fmt.Errorf("--clickhouse-addr is required for --reset-db")
		}
		if !*dryRunFlag && !*yesFlag && !confirm(fmt.Sprintf("Drop all warehouse tables in %s/%s?", cfg.Addr, cfg.Database)) {
			log.Info("admin: reset cancelled")
			return nil
		}
		conn, err := clickhouse.Open(ctx, log, cfg)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := clickhouse.ResetTables(ctx, log, conn, *dryRunFlag); err != nil {
			return err
		}
	}

	if *clickhouseMigrateFlag {
		if cfg.Addr == "" {
			return fmt.Errorf("--clickhouse-addr is required for --clickhouse-migrate")
		}
		if *dryRunFlag {
			return clickhouse.MigrationStatus(ctx, log, cfg)
		}
		return clickhouse.RunMigrations(ctx, log, cfg)
	}

	if *clickhouseMigrateStatusFlag {
		if cfg.Addr == "" {
			return fmt.Errorf("--clickhouse-addr is required for --clickhouse-migrate-status")
		}
		return clickhouse.MigrationStatus(ctx, log, cfg)
	}

	return nil
}

func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
