package flipside_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/draup/assetexplorer/nft/pkg/flipside"
	"github.com/draup/assetexplorer/nft/pkg/query"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func noRetryClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.Logger = nil
	return c
}

type fakeAPI struct {
	polls      atomic.Int32
	runningFor int32
	status     string
	message    string
	gotSQL     atomic.Value
	gotTTL     atomic.Int32
	gotKey     atomic.Value
	gotPage    atomic.Value
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /queries", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SQL        string `json:"sql"`
			TTLMinutes int32  `json:"ttlMinutes"`
			Cached     bool   `json:"cached"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.gotSQL.Store(body.SQL)
		f.gotTTL.Store(body.TTLMinutes)
		f.gotKey.Store(r.Header.Get("x-api-key"))
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-1"})
	})
	mux.HandleFunc("GET /queries/{token}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.PathValue("token"))
		f.gotPage.Store(r.URL.Query().Get("pageSize"))
		n := f.polls.Add(1)
		if n <= f.runningFor {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "running"})
			return
		}
		status := f.status
		if status == "" {
			status = "finished"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       status,
			"message":      f.message,
			"columnLabels": []string{"PROJECTNAME", "TokenId", "mint_price_eth"},
			"results": [][]any{
				{"Azuki", "42", 1.5},
				{"Doodles", "7", nil},
			},
		})
	})
	return mux
}

func newClient(t *testing.T, baseURL string, clock clockwork.Clock, apiKey string) *flipside.Client {
	t.Helper()
	c, err := flipside.New(flipside.Config{
		Logger:       testLogger(),
		Clock:        clock,
		APIKey:       apiKey,
		BaseURL:      baseURL,
		PollInterval: 5 * time.Millisecond,
		HTTPClient:   noRetryClient(),
	})
	require.NoError(t, err)
	return c
}

func TestClient_Run(t *testing.T) {
	t.Parallel()

	t.Run("polls until finished and lower-cases columns", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{runningFor: 2}
		srv := httptest.NewServer(api.handler(t))
		defer srv.Close()

		c := newClient(t, srv.URL, clockwork.NewRealClock(), "secret")
		rows, err := c.Run(context.Background(), query.NewRequest("SELECT 1"))
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "Azuki", rows[0]["projectname"])
		assert.Equal(t, "42", rows[0]["tokenid"])
		assert.Equal(t, "1.5", rows[0].Decimal("mint_price_eth").Decimal.String())
		assert.Nil(t, rows[1]["mint_price_eth"])
		assert.Equal(t, int32(3), api.polls.Load())

		assert.Equal(t, "SELECT 1", api.gotSQL.Load())
		assert.Equal(t, int32(10), api.gotTTL.Load())
		assert.Equal(t, "secret", api.gotKey.Load())
		assert.Equal(t, "10000", api.gotPage.Load())
	})

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, "http://127.0.0.1:1", clockwork.NewRealClock(), "")
		_, err := c.Run(context.Background(), query.NewRequest("SELECT 1"))
		assert.ErrorIs(t, err, flipside.ErrMissingAPIKey)
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{status: "error", message: "syntax error"}
		srv := httptest.NewServer(api.handler(t))
		defer srv.Close()

		c := newClient(t, srv.URL, clockwork.NewRealClock(), "secret")
		_, err := c.Run(context.Background(), query.NewRequest("SELEC 1"))
		require.ErrorIs(t, err, flipside.ErrQueryFailed)
		assert.Contains(t, err.Error(), "syntax error")
	})

	t.Run("http failure", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := newClient(t, srv.URL, clockwork.NewRealClock(), "bad")
		_, err := c.Run(context.Background(), query.NewRequest("SELECT 1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 401")
	})

	t.Run("times out while running", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{runningFor: 1 << 30}
		srv := httptest.NewServer(api.handler(t))
		defer srv.Close()

		clock := clockwork.NewFakeClock()
		c := newClient(t, srv.URL, clock, "secret")

		errCh := make(chan error, 1)
		go func() {
			_, err := c.Run(context.Background(), query.Request{SQL: "SELECT 1", Timeout: time.Minute})
			errCh <- err
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, clock.BlockUntilContext(ctx, 2))
		clock.Advance(2 * time.Minute)

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, flipside.ErrQueryTimeout)
		case <-ctx.Done():
			t.Fatal("timed out waiting for Run to return")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{runningFor: 1 << 30}
		srv := httptest.NewServer(api.handler(t))
		defer srv.Close()

		clock := clockwork.NewFakeClock()
		c := newClient(t, srv.URL, clock, "secret")

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			_, err := c.Run(ctx, query.NewRequest("SELECT 1"))
			errCh <- err
		}()

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer waitCancel()
		require.NoError(t, clock.BlockUntilContext(waitCtx, 2))
		cancel()

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-waitCtx.Done():
			t.Fatal("timed out waiting for Run to return")
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("requires logger", func(t *testing.T) {
		t.Parallel()
		cfg := flipside.Config{}
		assert.EqualError(t, cfg.Validate(), "logger is required")
	})

	t.Run("fills defaults", func(t *testing.T) {
		t.Parallel()
		cfg := flipside.Config{Logger: testLogger()}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, flipside.DefaultBaseURL, cfg.BaseURL)
		assert.Equal(t, flipside.DefaultPollInterval, cfg.PollInterval)
		assert.NotNil(t, cfg.Clock)
		assert.NotNil(t, cfg.HTTPClient)
	})
}
