package clickhouse

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const pingAttempts = 3

// ConnConfig holds the ClickHouse connection settings.
type ConnConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Secure   bool
}

func (cfg *ConnConfig) Validate() error {
	if cfg.Addr == "" {
		return errors.New("addr is required")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	return nil
}

func (cfg ConnConfig) options() *clickhouse.Options {
	opts := &clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout:     5 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
	// ClickHouse Cloud serves TLS on 9440.
	if cfg.Secure {
		opts.TLS = &tls.Config{}
	}
	return opts
}

// Open connects to ClickHouse and pings it, retrying briefly.
func Open(ctx context.Context, log *slog.Logger, cfg ConnConfig) (driver.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info("clickhouse: connecting", "addr", cfg.Addr, "database", cfg.Database, "username", cfg.Username, "secure", cfg.Secure)

	conn, err := clickhouse.Open(cfg.options())
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err := conn.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == pingAttempts {
			conn.Close()
			return nil, fmt.Errorf("failed to ping clickhouse after retries: %w", err)
		}
		select {
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	log.Info("clickhouse: connected")
	return conn, nil
}

// CreateDatabase creates a database if it does not exist.
func CreateDatabase(ctx context.Context, log *slog.Logger, conn driver.Conn, database string) error {
	log.Info("clickhouse: creating database", "database", database)
	return conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database))
}
