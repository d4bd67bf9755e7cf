package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/draup/assetexplorer/api/handlers"
	"github.com/draup/assetexplorer/explorer/pkg/session"
	"github.com/draup/assetexplorer/nft/pkg/ens"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
	"github.com/draup/assetexplorer/utils/pkg/logger"
)

const (
	mine   = "0x1111111111111111111111111111111111111111"
	theirs = "0x2222222222222222222222222222222222222222"
)

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, input string) (ens.Resolution, error) {
	switch {
	case ens.IsAddress(input):
		return ens.Resolution{Input: input, Address: input, Kind: ens.KindAddress}, nil
	case input == "vitalik.eth":
		return ens.Resolution{Input: input, Address: theirs, Kind: ens.KindName}, nil
	case strings.HasSuffix(input, ens.NameSuffix):
		return ens.Resolution{}, ens.ErrNameNotFound
	}
	return ens.Resolution{}, ens.ErrInvalidInput
}

type fakeFetcher struct {
	mu      sync.Mutex
	records map[string][]transfer.Record
	err     error
}

func (f *fakeFetcher) set(wallet string, records []transfer.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[wallet] = records
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFetcher) Fetch(_ context.Context, wallet string) ([]transfer.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.records[wallet], nil
}

func testRecords() []transfer.Record {
	return []transfer.Record{
		{
			ContractAddress: "0xaaaa", TokenID: "1", ProjectName: "azuki",
			SourceAddress: theirs, InboundAt: "2022-01-10 12:00:00.000", InboundTxHash: "0xin1",
			OutboundAt: "2022-01-20 08:00:00.000", OutboundType: transfer.OutboundTransferred,
			OutboundTxHash: "0xout1", TargetAddress: theirs, InboundType: transfer.InboundReceived,
		},
		{
			ContractAddress: "0xbbbb", TokenID: "2", ProjectName: "doodles",
			SourceAddress: theirs, InboundAt: "2022-01-05 12:00:00.000", InboundTxHash: "0xin2",
			OutboundType: transfer.OutboundHeld, InboundType: transfer.InboundReceived,
		},
		{
			ContractAddress: "0xcccc", TokenID: "3", ProjectName: "moonbirds",
			SourceAddress: "0x0000000000000000000000000000000000000000", InboundAt: "2022-01-04 12:00:00.000",
			OutboundAt: "2022-01-08 00:00:00.000", OutboundType: transfer.OutboundBurned, InboundType: transfer.InboundMinted,
			TargetAddress: "0x000000000000000000000000000000000000dEaD", OutboundTxHash: "0xout3",
		},
	}
}

type testServer struct {
	*httptest.Server
	api     *handlers.API
	store   *session.Store
	fetcher *fakeFetcher
	clock   *clockwork.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.New(false)
	clock := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{records: map[string][]transfer.Record{}}
	fetcher.set(mine, testRecords())

	store, err := session.NewStore(session.StoreConfig{
		Logger: log,
		Clock:  clock,
		Session: session.Config{
			Resolver:      fakeResolver{},
			Fetcher:       fetcher,
			NaiveLocation: time.UTC,
		},
	})
	require.NoError(t, err)

	api, err := handlers.New(handlers.Config{
		Logger:      log,
		Clock:       clock,
		Store:       store,
		Resolver:    fakeResolver{},
		Public:      handlers.PublicConfig{AppName: "Draup Asset Explorer", QueryBackend: "flipside"},
		CheckOrigin: func(*http.Request) bool { return true },
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	api.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		api.Close()
		srv.Close()
		store.Stop()
	})
	return &testServer{Server: srv, api: api, store: store, fetcher: fetcher, clock: clock}
}

// do sends a request with an optional JSON body and returns the status and
// response body.
func (ts *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, ts.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

// newLoadedSession creates a session connected to mine with its transfers loaded.
func (ts *testServer) newLoadedSession(t *testing.T) string {
	t.Helper()
	code, body := ts.do(t, http.MethodPost, "/api/sessions?connected="+mine+"&locale=en-US&timezone=UTC", nil)
	require.Equal(t, http.StatusCreated, code, string(body))
	st := decode[session.State](t, body)

	code, body = ts.do(t, http.MethodPost, "/api/sessions/"+st.ID+"/load?wait=true", map[string]string{"trigger": "mine"})
	require.Equal(t, http.StatusOK, code, string(body))
	require.Equal(t, 3, decode[session.State](t, body).RecordCount)
	return st.ID
}
