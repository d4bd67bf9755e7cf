package transfers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/draup/assetexplorer/nft/pkg/metrics"
	"github.com/draup/assetexplorer/nft/pkg/query"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidWallet = errors.New("wallet is not a valid address")

// Runner executes query text against a backend.
type Runner interface {
	Run(ctx context.Context, req query.Request) ([]transfer.Row, error)
	Backend() string
}

type Config struct {
	Logger *slog.Logger
	Runner Runner
	Tables query.Tables
	// Timeout, TTL and PageSize override the request defaults when set.
	Timeout  time.Duration
	TTL      time.Duration
	PageSize int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Runner == nil {
		return errors.New("runner is required")
	}
	if cfg.Tables.Transfers == "" || cfg.Tables.Mints == "" {
		cfg.Tables = query.FlipsideTables
	}
	return nil
}

// Fetcher loads the transfer history of a wallet.
type Fetcher struct {
	log   *slog.Logger
	cfg   Config
	group singleflight.Group
}

func NewFetcher(cfg Config) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Fetcher{log: cfg.Logger, cfg: cfg}, nil
}

// Fetch validates the wallet, runs the transfers query and parses the rows.
// Concurrent fetches for the same wallet share one backend query.
func (f *Fetcher) Fetch(ctx context.Context, wallet string) ([]transfer.Record, error) {
	wallet = strings.TrimSpace(wallet)
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWallet, wallet)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.ToLower(wallet)

	// The shared query outlives any single caller; each caller stops waiting
	// on its own context below.
	flightCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		return f.fetch(flightCtx, wallet)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.FetchCoalescedTotal.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]transfer.Record), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, wallet string) ([]transfer.Record, error) {
	backend := f.cfg.Runner.Backend()
	req := query.Request{
		SQL:      query.NFTTransfers(wallet, f.cfg.Tables),
		TTL:      f.cfg.TTL,
		Timeout:  f.cfg.Timeout,
		PageSize: f.cfg.PageSize,
	}.WithDefaults()

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	start := time.Now()
	rows, err := f.cfg.Runner.Run(ctx, req)
	metrics.QueryDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QueryTotal.WithLabelValues(backend, "error").Inc()
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	metrics.QueryTotal.WithLabelValues(backend, "success").Inc()
	metrics.QueryRows.WithLabelValues(backend).Observe(float64(len(rows)))

	f.log.Debug("transfers: fetched", "wallet", wallet, "backend", backend, "rows", len(rows), "duration", time.Since(start))
	return transfer.FromRows(rows), nil
}
