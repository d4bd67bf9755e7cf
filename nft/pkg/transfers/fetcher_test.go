package transfers_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/draup/assetexplorer/nft/pkg/query"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
	"github.com/draup/assetexplorer/nft/pkg/transfers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakeRunner struct {
	calls   atomic.Int32
	release chan struct{}
	rows    []transfer.Row
	err     error

	mu   sync.Mutex
	reqs []query.Request
}

func (f *fakeRunner) Backend() string { return "fake" }

func (f *fakeRunner) Run(ctx context.Context, req query.Request) ([]transfer.Row, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.rows, f.err
}

func newFetcher(t *testing.T, runner transfers.Runner) *transfers.Fetcher {
	t.Helper()
	f, err := transfers.NewFetcher(transfers.Config{Logger: testLogger(), Runner: runner})
	require.NoError(t, err)
	return f
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("parses rows and builds request", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{rows: []transfer.Row{
			{"projectname": "Azuki", "tokenid": "1", "transfertotimestamp": "2022-01-01 00:00:00.000"},
			{"projectname": "Doodles", "tokenid": "2", "transfertotimestamp": "2021-12-01 00:00:00.000"},
		}}
		f := newFetcher(t, runner)

		records, err := f.Fetch(context.Background(), wallet)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Azuki", records[0].ProjectName)
		assert.Equal(t, "Doodles", records[1].ProjectName)

		require.Len(t, runner.reqs, 1)
		req := runner.reqs[0]
		assert.Equal(t, query.NFTTransfers(wallet, query.FlipsideTables), req.SQL)
		assert.Equal(t, query.DefaultTimeout, req.Timeout)
		assert.Equal(t, query.DefaultTTL, req.TTL)
		assert.Equal(t, query.DefaultPageSize, req.PageSize)
	})

	t.Run("rejects non-address wallets before querying", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{}
		f := newFetcher(t, runner)

		for _, w := range []string{"", "draup.eth", "0x123", "x' OR 1=1 --"} {
			_, err := f.Fetch(context.Background(), w)
			assert.ErrorIs(t, err, transfers.ErrInvalidWallet, w)
		}
		assert.Zero(t, runner.calls.Load())
	})

	t.Run("wraps runner errors", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		f := newFetcher(t, &fakeRunner{err: boom})

		_, err := f.Fetch(context.Background(), wallet)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("coalesces identical concurrent fetches", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{
			release: make(chan struct{}),
			rows:    []transfer.Row{{"projectname": "Azuki"}},
		}
		f := newFetcher(t, runner)

		var wg sync.WaitGroup
		results := make([][]transfer.Record, 3)
		errs := make([]error, 3)
		for i := range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				// Differing case still identifies the same wallet.
				w := wallet
				if i == 1 {
					w = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
				}
				results[i], errs[i] = f.Fetch(context.Background(), w)
			}()
		}

		require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)
		// Give the remaining callers time to join the in-flight fetch.
		time.Sleep(20 * time.Millisecond)
		close(runner.release)
		wg.Wait()

		assert.Equal(t, int32(1), runner.calls.Load())
		for i := range 3 {
			require.NoError(t, errs[i])
			require.Len(t, results[i], 1)
			assert.Equal(t, "Azuki", results[i][0].ProjectName)
		}
	})

	t.Run("first caller leaving does not cancel the shared fetch", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{
			release: make(chan struct{}),
			rows:    []transfer.Row{{"projectname": "Azuki"}},
		}
		f := newFetcher(t, runner)

		ctx, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := f.Fetch(ctx, wallet)
			firstErr <- err
		}()
		require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)

		type result struct {
			records []transfer.Record
			err     error
		}
		second := make(chan result, 1)
		go func() {
			records, err := f.Fetch(context.Background(), wallet)
			second <- result{records, err}
		}()
		// Give the second caller time to join the in-flight fetch.
		time.Sleep(20 * time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(runner.release)
		res := <-second
		require.NoError(t, res.err)
		require.Len(t, res.records, 1)
		assert.Equal(t, "Azuki", res.records[0].ProjectName)
		assert.Equal(t, int32(1), runner.calls.Load())
	})

	t.Run("caller cancellation", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{release: make(chan struct{})}
		f := newFetcher(t, runner)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.Fetch(ctx, wallet)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, runner.calls.Load())
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := transfers.Config{}
	assert.EqualError(t, cfg.Validate(), "logger is required")

	cfg = transfers.Config{Logger: testLogger()}
	assert.EqualError(t, cfg.Validate(), "runner is required")

	cfg = transfers.Config{Logger: testLogger(), Runner: &fakeRunner{}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, query.FlipsideTables, cfg.Tables)
}
