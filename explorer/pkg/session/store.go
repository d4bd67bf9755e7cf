package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	storeStopTimeout   = 5 * time.Second
)

type StoreConfig struct {
	Logger      *slog.Logger
	Clock       clockwork.Clock
	IdleTimeout time.Duration
	// SweepInterval defaults to a quarter of IdleTimeout.
	SweepInterval time.Duration

	// Session is the template every new session is built from.
	Session Config
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.IdleTimeout / 4
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = cfg.Logger
	}
	if cfg.Session.Clock == nil {
		cfg.Session.Clock = cfg.Clock
	}
	return cfg.Session.Validate()
}

// Store holds live sessions and expires idle ones in the background.
type Store struct {
	log *slog.Logger
	cfg StoreConfig

	mu       sync.RWMutex
	sessions map[string]*Session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		log:      cfg.Logger,
		cfg:      cfg,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Create starts a new session.
func (st *Store) Create() (*Session, error) {
	s, err := New(uuid.NewString(), st.cfg.Session)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	st.sessions[s.ID()] = s
	n := len(st.sessions)
	st.mu.Unlock()
	st.log.Debug("session: created", "session", s.ID(), "sessions", n)
	return s, nil
}

// Get returns a live session and marks it used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the idle timeout and returns
// how many were removed.
func (st *Store) Sweep() int {
	cutoff := st.cfg.Clock.Now().Add(-st.cfg.IdleTimeout)
	var expired []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()
	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		st.log.Info("session: expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Start begins the background sweeper.
func (st *Store) Start() {
	st.log.Info("session: starting store", "idleTimeout", st.cfg.IdleTimeout, "sweepInterval", st.cfg.SweepInterval)
	st.wg.Add(1)
	go st.sweepLoop()
}

func (st *Store) sweepLoop() {
	defer st.wg.Done()
	ticker := st.cfg.Clock.NewTicker(st.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-st.ctx.Done():
			return
		case <-ticker.Chan():
			st.Sweep()
		}
	}
}

// Stop halts the sweeper and closes every session.
func (st *Store) Stop() {
	st.log.Info("session: stopping store")
	st.cancel()

	done := make(chan struct{})
	go func() {
		st.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(storeStopTimeout):
		st.log.Warn("session: store stop timed out, continuing shutdown")
	}

	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
