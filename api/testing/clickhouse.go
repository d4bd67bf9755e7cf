package apitesting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tcch "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"github.com/draup/assetexplorer/warehouse/pkg/clickhouse"
)

const containerStartAttempts = 3

// ClickHouseDBConfig holds the ClickHouse test container configuration.
type ClickHouseDBConfig struct {
	Database       string
	Username       string
	Password       string
	Port           string
	ContainerImage string
}

func (cfg *ClickHouseDBConfig) Validate() error {
	if cfg.Database == "" {
		cfg.Database = "test"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Password == "" {
		cfg.Password = "password"
	}
	if cfg.Port == "" {
		cfg.Port = "9000"
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = "clickhouse/clickhouse-server:latest"
	}
	return nil
}

// ClickHouseDB is a ClickHouse server running in a test container.
type ClickHouseDB struct {
	log       *slog.Logger
	cfg       *ClickHouseDBConfig
	addr      string
	container *tcch.ClickHouseContainer
}

// Addr returns the native protocol address (host:port).
func (db *ClickHouseDB) Addr() string {
	return db.addr
}

// Close terminates the container.
func (db *ClickHouseDB) Close() {
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.container.Terminate(terminateCtx); err != nil {
		db.log.Error("failed to terminate ClickHouse container", "error", err)
	}
}

// ConnConfig returns connection settings for a database on the container.
func (db *ClickHouseDB) ConnConfig(database string) clickhouse.ConnConfig {
	return clickhouse.ConnConfig{
		Addr:     db.addr,
		Database: database,
		Username: db.cfg.Username,
		Password: db.cfg.Password,
	}
}

// NewClickHouseDB starts a ClickHouse container.
func NewClickHouseDB(ctx context.Context, log *slog.Logger, cfg *ClickHouseDBConfig) (*ClickHouseDB, error) {
	if cfg == nil {
		cfg = &ClickHouseDBConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate ClickHouse DB config: %w", err)
	}

	var container *tcch.ClickHouseContainer
	var lastErr error
	for attempt := 1; attempt <= containerStartAttempts; attempt++ {
		var err error
		container, err = tcch.Run(ctx,
			cfg.ContainerImage,
			tcch.WithDatabase(cfg.Database),
			tcch.WithUsername(cfg.Username),
			tcch.WithPassword(cfg.Password),
		)
		if err == nil {
			break
		}
		lastErr = err
		if !isRetryableContainerStartErr(err) || attempt == containerStartAttempts {
			return nil, fmt.Errorf("failed to start ClickHouse container after retries: %w", lastErr)
		}
		time.Sleep(time.Duration(attempt) * 750 * time.Millisecond)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get ClickHouse container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, nat.Port(cfg.Port+"/tcp"))
	if err != nil {
		return nil, fmt.Errorf("failed to get ClickHouse container mapped port: %w", err)
	}

	return &ClickHouseDB{
		log:       log,
		cfg:       cfg,
		addr:      fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		container: container,
	}, nil
}

// NewTestWarehouse creates a uniquely named database on the container, runs
// the warehouse migrations into it and returns a connection. The database is
// dropped when the test finishes.
func NewTestWarehouse(t *testing.T, log *slog.Logger, db *ClickHouseDB) driver.Conn {
	t.Helper()
	ctx := t.Context()

	databaseName := "test_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	adminConn, err := clickhouse.Open(ctx, log, db.ConnConfig(db.cfg.Database))
	require.NoError(t, err, "failed to create ClickHouse admin connection")
	require.NoError(t, clickhouse.CreateDatabase(ctx, log, adminConn, databaseName))

	cfg := db.ConnConfig(databaseName)
	require.NoError(t, clickhouse.RunMigrations(ctx, log, cfg))

	conn, err := clickhouse.Open(ctx, log, cfg)
	require.NoError(t, err, "failed to create ClickHouse test connection")

	t.Cleanup(func() {
		conn.Close()
		_ = adminConn.Exec(context.Background(), fmt.Sprintf("DROP DATABASE IF EXISTS %s", databaseName))
		adminConn.Close()
	})
	return conn
}

func isRetryableContainerStartErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "wait until ready") ||
		strings.Contains(s, "mapped port") ||
		strings.Contains(s, "timeout") ||
		strings.Contains(s, "context deadline exceeded") ||
		strings.Contains(s, "/containers/") && strings.Contains(s, "json") ||
		strings.Contains(s, "Get \"http://%2Fvar%2Frun%2Fdocker.sock")
}
