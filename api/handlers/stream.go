package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/draup/assetexplorer/api/metrics"
	"github.com/draup/assetexplorer/explorer/pkg/scene"
	"github.com/draup/assetexplorer/explorer/pkg/session"
)

const streamWriteTimeout = 5 * time.Second

const (
	StreamMessageExplorer = "explorer"
	StreamMessageFrame    = "frame"
)

// StreamMessage is one websocket message. Explorer is set on "explorer"
// messages and Frame on "frame" messages.
type StreamMessage struct {
	Type     string            `json:"type"`
	Explorer *session.Explorer `json:"explorer,omitempty"`
	Frame    *scene.Frame      `json:"frame,omitempty"`
}

// StreamExplorer drives the session's scene over a websocket. The scene is
// ticked every frame interval and each pushed frame is sent; explorer
// snapshots are sent on connect and whenever the session changes.
func (a *API) StreamExplorer(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		a.log.Debug("api: websocket upgrade failed", "session", s.ID(), "error", err)
		return
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()
	a.log.Debug("api: explorer stream opened", "session", s.ID())

	// The client only sends control frames; reading surfaces its close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg StreamMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			a.log.Debug("api: explorer stream write failed", "session", s.ID(), "error", err)
			return false
		}
		return true
	}

	changed := s.Changed()
	ex := s.Explorer()
	if !send(StreamMessage{Type: StreamMessageExplorer, Explorer: &ex}) {
		return
	}

	ticker := a.cfg.Clock.NewTicker(a.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-r.Context().Done():
			return
		case <-closed:
			a.log.Debug("api: explorer stream closed", "session", s.ID())
			return
		case <-changed:
			changed = s.Changed()
			s.Touch()
			ex := s.Explorer()
			if !send(StreamMessage{Type: StreamMessageExplorer, Explorer: &ex}) {
				return
			}
		case <-ticker.Chan():
			if !s.Tick(a.cfg.FrameInterval) {
				continue
			}
			frame := s.Frame()
			if !send(StreamMessage{Type: StreamMessageFrame, Frame: &frame}) {
				return
			}
		}
	}
}
