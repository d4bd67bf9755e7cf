package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draup/assetexplorer/api/handlers"
	"github.com/draup/assetexplorer/explorer/pkg/session"
	"github.com/draup/assetexplorer/nft/pkg/ens"
)

func TestGetConfigAndVersion(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, code)
	cfg := decode[handlers.PublicConfig](t, body)
	assert.Equal(t, "Draup Asset Explorer", cfg.AppName)
	assert.Equal(t, "America/New_York", cfg.DefaultTimezone)
	assert.Equal(t, int64(500), cfg.FilterDebounceMs)
	assert.Equal(t, []int{10, 20, 30, 40, 50}, cfg.PageSizes)
	assert.Contains(t, cfg.Locales, "en-US")
	assert.Len(t, cfg.Layouts, 2)

	code, body = ts.do(t, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dev", decode[handlers.VersionResponse](t, body).Version)
}

func TestResolve(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tests := []struct {
		name  string
		query string
		code  int
		want  string
	}{
		{"missing input", "", http.StatusBadRequest, "input is required\n"},
		{"ens name", "?input=vitalik.eth", http.StatusOK, ""},
		{"unknown name", "?input=nobody.eth", http.StatusNotFound, "No ENS name found for this address\n"},
		{"garbage", "?input=hello", http.StatusBadRequest, "Please use a valid eth address or ens\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, body := ts.do(t, http.MethodGet, "/api/resolve"+tt.query, nil)
			require.Equal(t, tt.code, code)
			if tt.want != "" {
				assert.Equal(t, tt.want, string(body))
				return
			}
			res := decode[ens.Resolution](t, body)
			assert.Equal(t, theirs, res.Address)
			assert.Equal(t, ens.KindName, res.Kind)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, ts.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, ts.store.Len())

	var st session.State
	code, body := ts.do(t, http.MethodGet, "/api/sessions/missing", nil)
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Session not found\n", string(body))

	s, err := ts.store.Create()
	require.NoError(t, err)
	id := s.ID()

	code, body = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/connected", map[string]string{"address": mine})
	require.Equal(t, http.StatusOK, code)
	st = decode[session.State](t, body)
	assert.Equal(t, mine, st.ConnectedAddress)
	assert.Equal(t, mine, st.SearchAddress)

	code, body = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/address", map[string]string{"input": "nobody.eth"})
	require.Equal(t, http.StatusOK, code)
	st = decode[session.State](t, body)
	assert.Empty(t, st.SearchAddress)
	assert.Equal(t, "No ENS name found for this address", st.AddressError)

	code, body = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/address", map[string]string{"input": "vitalik.eth"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, theirs, decode[session.State](t, body).SearchAddress)

	code, _ = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/view", map[string]string{"view": "explorer"})
	require.Equal(t, http.StatusConflict, code, "explorer needs data")

	code, body = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/load?wait=true", map[string]string{"trigger": "mine"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, decode[session.State](t, body).RecordCount)

	code, body = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/view", map[string]string{"view": "explorer"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.ViewExplorer, decode[session.State](t, body).View)

	code, body = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/preferences", map[string]string{"locale": "ja", "timezone": "Asia/Tokyo"})
	require.Equal(t, http.StatusOK, code)
	st = decode[session.State](t, body)
	assert.Equal(t, "ja", st.Locale)
	assert.Equal(t, "Asia/Tokyo", st.Timezone)

	code, _ = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/preferences", map[string]string{"timezone": "Mars/Olympus"})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, code)
	code, _ = ts.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestCreateSession_Query(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodPost, "/api/sessions?connected="+mine+"&locale=en-GB&timezone=Europe/London", nil)
	require.Equal(t, http.StatusCreated, code)
	st := decode[session.State](t, body)
	assert.Equal(t, "en-GB", st.Locale)
	assert.Equal(t, "Europe/London", st.Timezone)
	assert.Equal(t, mine, st.ConnectedAddress)

	code, _ = ts.do(t, http.MethodPost, "/api/sessions?timezone=Nowhere/Land", nil)
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.do(t, http.MethodPost, "/api/sessions?connected=nope", nil)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 1, ts.store.Len(), "rejected sessions are discarded")
}

func TestPostLoad(t *testing.T) {
	t.Parallel()

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		s, err := ts.store.Create()
		require.NoError(t, err)
		base := "/api/sessions/" + s.ID() + "/load"

		code, _ := ts.do(t, http.MethodPost, base, map[string]string{"trigger": "mine"})
		assert.Equal(t, http.StatusBadRequest, code, "no connected wallet")
		code, _ = ts.do(t, http.MethodPost, base, map[string]string{"trigger": "yours"})
		assert.Equal(t, http.StatusBadRequest, code)
		code, _ = ts.do(t, http.MethodPost, base, map[string]string{"wallet": mine})
		assert.Equal(t, http.StatusBadRequest, code, "unknown fields are rejected")
	})

	t.Run("background load", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		code, body := ts.do(t, http.MethodPost, "/api/sessions?connected="+mine, nil)
		require.Equal(t, http.StatusCreated, code)
		id := decode[session.State](t, body).ID

		code, _ = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/load", map[string]string{"trigger": "mine"})
		require.Equal(t, http.StatusAccepted, code)

		s, err := ts.store.Get(id)
		require.NoError(t, err)
		s.Wait()
		code, body = ts.do(t, http.MethodGet, "/api/sessions/"+id, nil)
		require.Equal(t, http.StatusOK, code)
		st := decode[session.State](t, body)
		assert.Equal(t, 3, st.RecordCount)
		assert.False(t, st.Loading[session.TriggerMine])
	})

	t.Run("query failures are not surfaced", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.fetcher.fail(errors.New("flipside: https://node-api.flipsidecrypto.com?key=secret exploded"))
		code, body := ts.do(t, http.MethodPost, "/api/sessions?connected="+mine, nil)
		require.Equal(t, http.StatusCreated, code)
		id := decode[session.State](t, body).ID

		code, body = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/load?wait=true", map[string]string{"trigger": "mine"})
		require.Equal(t, http.StatusOK, code)
		assert.NotContains(t, string(body), "secret")
		st := decode[session.State](t, body)
		assert.False(t, st.HasData)
	})
}

func TestGetRecords(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	id := ts.newLoadedSession(t)

	code, body := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/records?limit=2&offset=1", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[handlers.PaginatedResponse[handlers.RecordItem]](t, body)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Items[0].Index)
	assert.Equal(t, "doodles", page.Items[0].Summary.ProjectName)
	assert.Equal(t, "0xcccc", page.Items[1].ContractAddress)

	code, body = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/records?offset=10", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[handlers.PaginatedResponse[handlers.RecordItem]](t, body).Items)
}
