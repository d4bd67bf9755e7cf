// Package backend opens the configured transfer query backend.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draup/assetexplorer/api/config"
	"github.com/draup/assetexplorer/nft/pkg/flipside"
	"github.com/draup/assetexplorer/nft/pkg/query"
	"github.com/draup/assetexplorer/nft/pkg/transfers"
	"github.com/draup/assetexplorer/warehouse/pkg/clickhouse"
)

// Backend is a query runner with the tables it serves. Ping and Close are
// nil for backends without a connection to check or release.
type Backend struct {
	Runner transfers.Runner
	Tables query.Tables
	Ping   func(ctx context.Context) error
	Close  func() error
}

// Open connects the backend named by cfg.QueryBackend.
func Open(ctx context.Context, log *slog.Logger, cfg config.Config) (*Backend, error) {
	switch cfg.QueryBackend {
	case config.BackendClickHouse:
		conn, err := clickhouse.Open(ctx, log, cfg.ClickHouse.ConnConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to open warehouse: %w", err)
		}
		runner, err := clickhouse.NewRunner(clickhouse.RunnerConfig{Logger: log, Conn: conn})
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &Backend{
			Runner: runner,
			Tables: query.WarehouseTables,
			Ping:   conn.Ping,
			Close:  conn.Close,
		}, nil
	case config.BackendFlipside:
		if cfg.FlipsideAPIKey == "" {
			log.Warn("backend: FLIPSIDE_API_KEY is not set, transfer queries will fail")
		}
		client, err := flipside.New(flipside.Config{
			Logger:     log,
			APIKey:     cfg.FlipsideAPIKey,
			BaseURL:    cfg.FlipsideBaseURL,
			HTTPClient: flipside.NewHTTPClient(log),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create query client: %w", err)
		}
		return &Backend{Runner: client, Tables: query.FlipsideTables}, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.QueryBackend)
}

// Fetcher wraps the backend's runner in a transfers fetcher.
func (b *Backend) Fetcher(log *slog.Logger) (*transfers.Fetcher, error) {
	return transfers.NewFetcher(transfers.Config{
		Logger: log,
		Runner: b.Runner,
		Tables: b.Tables,
	})
}
