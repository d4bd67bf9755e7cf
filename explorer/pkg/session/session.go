package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/draup/assetexplorer/explorer/pkg/debounce"
	"github.com/draup/assetexplorer/explorer/pkg/scene"
	"github.com/draup/assetexplorer/explorer/pkg/table"
	"github.com/draup/assetexplorer/explorer/pkg/timefmt"
	"github.com/draup/assetexplorer/explorer/pkg/timerange"
	"github.com/draup/assetexplorer/nft/pkg/ens"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
	"github.com/jonboulle/clockwork"
)

var (
	ErrLoadInProgress    = errors.New("a load from this trigger is already in progress")
	ErrNoAddress         = errors.New("no address to load")
	ErrNoData            = errors.New("no records loaded")
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTrigger    = errors.New("invalid load trigger")
	ErrInvalidView       = errors.New("invalid view mode")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrInvalidPoint      = errors.New("point index out of range")
	ErrInvalidPageAction = errors.New("invalid page action")
)

// Trigger identifies which control started a load.
type Trigger string

const (
	TriggerMine   Trigger = "mine"
	TriggerTheirs Trigger = "theirs"
)

func ParseTrigger(s string) (Trigger, error) {
	switch Trigger(s) {
	case TriggerMine, TriggerTheirs:
		return Trigger(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, s)
}

type ViewMode string

const (
	ViewTable    ViewMode = "table"
	ViewExplorer ViewMode = "explorer"
)

type Resolver interface {
	Resolve(ctx context.Context, input string) (ens.Resolution, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, wallet string) ([]transfer.Record, error)
}

type Config struct {
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Resolver Resolver
	Fetcher  Fetcher

	FilterDelay     time.Duration
	Transition      time.Duration
	NaiveLocation   *time.Location
	DefaultTimezone string

	// OnLoadError observes failed loads. Failures are otherwise only logged.
	OnLoadError func(err error, trigger Trigger, wallet string)
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Resolver == nil {
		return errors.New("resolver is required")
	}
	if cfg.Fetcher == nil {
		return errors.New("fetcher is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.FilterDelay <= 0 {
		cfg.FilterDelay = debounce.DefaultDelay
	}
	if cfg.Transition <= 0 {
		cfg.Transition = scene.DefaultTransition
	}
	if cfg.NaiveLocation == nil {
		cfg.NaiveLocation = time.Local
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = timefmt.DefaultTimezone
	}
	return nil
}

// Session is one visitor's page state: the address being searched, the loaded
// records, and the table and explorer views over them.
type Session struct {
	id  string
	log *slog.Logger
	cfg Config
	fmt timefmt.Formatter

	mu       sync.Mutex
	lastSeen time.Time
	changed  chan struct{}
	wg       sync.WaitGroup

	connected     string
	input         string
	searchAddress string
	inputError    string
	inputGen      uint64

	records []transfer.Record
	loading map[Trigger]bool
	loadGen uint64

	view     ViewMode
	locale   string
	timezone string

	table       *table.Model
	filterInput string
	filter      *debounce.Debouncer

	rng      timerange.Range
	cursor   int64
	selected int
	pointer  scene.PointerTracker
	scene    *scene.Scene
}

func New(id string, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := timerange.Fallback()
	s := &Session{
		id:       id,
		log:      cfg.Logger.With("session", id),
		cfg:      cfg,
		fmt:      timefmt.Formatter{NaiveLocation: cfg.NaiveLocation},
		lastSeen: cfg.Clock.Now(),
		changed:  make(chan struct{}),
		loading:  map[Trigger]bool{},
		view:     ViewTable,
		locale:   timefmt.DefaultLocale(),
		timezone: cfg.DefaultTimezone,
		table:    table.NewModel(),
		filter:   debounce.New(cfg.Clock, cfg.FilterDelay),
		rng:      rng,
		cursor:   rng.MaxDay,
		selected: scene.NoSelection,
		scene:    scene.New(scene.LayoutGrid, cfg.Transition),
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.cfg.Clock.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Changed returns a channel closed on the next state change.
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// notifyLocked wakes Changed waiters. Callers hold mu.
func (s *Session) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Close cancels the pending filter and waits for background loads.
func (s *Session) Close() {
	s.filter.Stop()
	s.wg.Wait()
}

// Wait blocks until background loads finish.
func (s *Session) Wait() {
	s.wg.Wait()
}

// State is the page shell snapshot.
type State struct {
	ID               string           `json:"id"`
	ConnectedAddress string           `json:"connectedAddress,omitempty"`
	AddressInput     string           `json:"addressInput"`
	SearchAddress    string           `json:"searchAddress,omitempty"`
	AddressError     string           `json:"addressError,omitempty"`
	Loading          map[Trigger]bool `json:"loading"`
	HasData          bool             `json:"hasData"`
	RecordCount      int              `json:"recordCount"`
	View             ViewMode         `json:"view"`
	Locale           string           `json:"locale"`
	Timezone         string           `json:"timezone"`
	FilterInput      string           `json:"filterInput"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	loading := map[Trigger]bool{
		TriggerMine:   s.loading[TriggerMine],
		TriggerTheirs: s.loading[TriggerTheirs],
	}
	return State{
		ID:               s.id,
		ConnectedAddress: s.connected,
		AddressInput:     s.input,
		SearchAddress:    s.searchAddress,
		AddressError:     s.inputError,
		Loading:          loading,
		HasData:          s.records != nil,
		RecordCount:      len(s.records),
		View:             s.view,
		Locale:           s.locale,
		Timezone:         s.timezone,
		FilterInput:      s.filterInput,
	}
}

// SetConnected records the connected wallet. An empty search input defaults
// to it.
func (s *Session) SetConnected(address string) (State, error) {
	if address != "" && !ens.IsAddress(address) {
		return s.State(), ens.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = address
	if s.input == "" && address != "" {
		s.input = address
		s.searchAddress = address
		s.inputError = ""
		s.inputGen++
	}
	s.notifyLocked()
	return s.stateLocked(), nil
}

// SetAddressInput resolves a new search input. Every change resolves
// immediately; a newer input supersedes an older one still resolving.
// Resolution failures are reported in the state, and only context errors
// are returned.
func (s *Session) SetAddressInput(ctx context.Context, input string) (State, error) {
	s.mu.Lock()
	s.inputGen++
	gen := s.inputGen
	s.input = input
	s.notifyLocked()
	s.mu.Unlock()

	res, err := s.cfg.Resolver.Resolve(ctx, input)
	if err != nil && ctx.Err() != nil {
		return s.State(), ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.inputGen {
		return s.stateLocked(), nil
	}
	if err != nil {
		s.searchAddress = ""
		s.inputError = userMessage(err)
		s.log.Debug("session: address rejected", "input", input, "error", err)
	} else {
		s.searchAddress = res.Address
		s.inputError = ""
	}
	s.notifyLocked()
	return s.stateLocked(), nil
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ens.ErrNameNotFound):
		return ens.ErrNameNotFound.Error()
	default:
		return ens.ErrInvalidInput.Error()
	}
}

// beginLoad claims the trigger's loading slot and returns the wallet and
// generation for the new load.
func (s *Session) beginLoad(trigger Trigger) (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var wallet string
	switch trigger {
	case TriggerMine:
		wallet = s.connected
	case TriggerTheirs:
		wallet = s.searchAddress
	default:
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidTrigger, trigger)
	}
	if wallet == "" {
		return "", 0, ErrNoAddress
	}
	if s.loading[trigger] {
		return "", 0, ErrLoadInProgress
	}
	s.loading[trigger] = true
	s.loadGen++
	s.notifyLocked()
	return wallet, s.loadGen, nil
}

// Load fetches the trigger's wallet and replaces the records. Loads from
// different triggers may overlap; only the most recently started one is
// applied. Failures are logged and leave the current records in place.
func (s *Session) Load(ctx context.Context, trigger Trigger) error {
	wallet, gen, err := s.beginLoad(trigger)
	if err != nil {
		return err
	}
	return s.runLoad(ctx, trigger, wallet, gen)
}

// StartLoad is Load in the background. Guard errors are returned
// synchronously.
func (s *Session) StartLoad(ctx context.Context, trigger Trigger) error {
	wallet, gen, err := s.beginLoad(trigger)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.runLoad(ctx, trigger, wallet, gen)
	}()
	return nil
}

func (s *Session) runLoad(ctx context.Context, trigger Trigger, wallet string, gen uint64) error {
	s.log.Info("session: loading transfers", "trigger", trigger, "wallet", wallet)
	start := s.cfg.Clock.Now()
	records, err := s.cfg.Fetcher.Fetch(ctx, wallet)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[trigger] = false
	defer s.notifyLocked()

	if err != nil {
		s.log.Error("session: load failed", "trigger", trigger, "wallet", wallet, "error", err)
		if s.cfg.OnLoadError != nil {
			s.cfg.OnLoadError(err, trigger, wallet)
		}
		return err
	}
	if gen != s.loadGen {
		s.log.Debug("session: dropping superseded load", "trigger", trigger, "wallet", wallet)
		return nil
	}
	if records == nil {
		records = []transfer.Record{}
	}
	s.applyRecordsLocked(records)
	s.log.Info("session: loaded transfers", "trigger", trigger, "wallet", wallet, "records", len(records), "duration", s.cfg.Clock.Since(start))
	return nil
}

func (s *Session) applyRecordsLocked(records []transfer.Record) {
	s.records = records
	s.table.SetRecords(records)
	s.selected = scene.NoSelection
	s.rng = timerange.Derive(records, s.cfg.NaiveLocation)
	s.cursor = s.rng.MaxDay
	s.scene.SetData(len(records))
}

// Records returns the loaded records. The slice must not be modified.
func (s *Session) Records() []transfer.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// SetView switches between table and explorer. The explorer needs records.
func (s *Session) SetView(mode ViewMode) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mode {
	case ViewTable:
	case ViewExplorer:
		if s.records == nil {
			return s.stateLocked(), ErrNoData
		}
	default:
		return s.stateLocked(), fmt.Errorf("%w: %q", ErrInvalidView, mode)
	}
	s.view = mode
	s.notifyLocked()
	return s.stateLocked(), nil
}

// SetPreferences sets display locale and timezone. Empty values are left
// unchanged.
func (s *Session) SetPreferences(locale, timezone string) (State, error) {
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return s.State(), fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if locale != "" {
		s.locale = timefmt.MatchLocale(locale)
	}
	if timezone != "" {
		s.timezone = timezone
	}
	s.notifyLocked()
	return s.stateLocked(), nil
}
