package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/draup/assetexplorer/api/metrics"
	"github.com/draup/assetexplorer/explorer/pkg/session"
)

const (
	DefaultFrameInterval  = 16 * time.Millisecond
	DefaultResolveTimeout = 15 * time.Second
)

type Config struct {
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Store    *session.Store
	Resolver session.Resolver
	Public   PublicConfig

	// FrameInterval paces explorer stream frames.
	FrameInterval  time.Duration
	ResolveTimeout time.Duration
	// CheckOrigin vets websocket origins. Nil accepts same-origin requests
	// only.
	CheckOrigin func(r *http.Request) bool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Resolver == nil {
		return errors.New("resolver is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultResolveTimeout
	}
	return nil
}

// API serves the explorer sessions over HTTP.
type API struct {
	log      *slog.Logger
	cfg      Config
	store    *session.Store
	upgrader websocket.Upgrader

	// ctx outlives requests so background loads survive the request that
	// started them; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &API{
		log:   cfg.Logger,
		cfg:   cfg,
		store: cfg.Store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Close cancels background loads and open streams.
func (a *API) Close() {
	a.cancel()
}

// Routes registers every API route on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/api/config", a.GetConfig)
	r.Get("/api/version", GetVersion)
	r.Get("/api/resolve", a.Resolve)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", a.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(a.sessionContext)
			r.Get("/", a.GetSession)
			r.Delete("/", a.DeleteSession)
			r.Put("/connected", a.PutConnected)
			r.Put("/address", a.PutAddress)
			r.Post("/load", a.PostLoad)
			r.Put("/view", a.PutView)
			r.Put("/preferences", a.PutPreferences)
			r.Get("/records", a.GetRecords)

			r.Get("/table", a.GetTable)
			r.Put("/table/filter", a.PutTableFilter)
			r.Post("/table/sort", a.PostTableSort)
			r.Post("/table/page", a.PostTablePage)
			r.Put("/table/page-size", a.PutTablePageSize)

			r.Get("/explorer", a.GetExplorer)
			r.Put("/explorer/cursor", a.PutExplorerCursor)
			r.Put("/explorer/layout", a.PutExplorerLayout)
			r.Post("/explorer/pointer", a.PostExplorerPointer)
			r.Get("/explorer/stream", a.StreamExplorer)
		})
	})
}

type sessionKey struct{}

// sessionContext loads the {id} session or answers 404.
func (a *API) sessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := a.store.Get(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return s
}

func (a *API) syncSessionGauge() {
	metrics.ActiveSessions.Set(float64(a.store.Len()))
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("api: failed to encode response", "error", err)
	}
}
