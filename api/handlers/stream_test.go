package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draup/assetexplorer/api/handlers"
	"github.com/draup/assetexplorer/explorer/pkg/scene"
)

func dialStream(t *testing.T, ts *testServer, id string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + id + "/explorer/stream"
	return websocket.DefaultDialer.DialContext(t.Context(), url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) handlers.StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg handlers.StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStreamExplorer(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	id := ts.newLoadedSession(t)

	conn, resp, err := dialStream(t, ts, id)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	msg := readMessage(t, conn)
	require.Equal(t, handlers.StreamMessageExplorer, msg.Type)
	require.NotNil(t, msg.Explorer)
	assert.Len(t, msg.Explorer.Points, 3)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.clock.BlockUntilContext(ctx, 1))

	// Loading changed the data, so the first tick pushes a frame.
	ts.clock.Advance(handlers.DefaultFrameInterval)
	msg = readMessage(t, conn)
	require.Equal(t, handlers.StreamMessageFrame, msg.Type)
	require.NotNil(t, msg.Frame)
	assert.Equal(t, scene.LayoutGrid, msg.Frame.Layout)
	assert.Len(t, msg.Frame.Positions, 3)

	code, _ := ts.do(t, http.MethodPut, "/api/sessions/"+id+"/explorer/layout", map[string]string{"layout": "spiral"})
	require.Equal(t, http.StatusOK, code)
	msg = readMessage(t, conn)
	require.Equal(t, handlers.StreamMessageExplorer, msg.Type)
	assert.Equal(t, scene.LayoutSpiral, msg.Explorer.Layout)
	assert.True(t, msg.Explorer.Animating)

	ts.clock.Advance(handlers.DefaultFrameInterval)
	msg = readMessage(t, conn)
	require.Equal(t, handlers.StreamMessageFrame, msg.Type)
	assert.True(t, msg.Frame.Animating)
	assert.Greater(t, msg.Frame.Progress, 0.0)
}

func TestStreamExplorer_UnknownSession(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	_, resp, err := dialStream(t, ts, "missing")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
