package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/draup/assetexplorer/warehouse/pkg/clickhouse"
)

// Backend selects where transfer queries run.
type Backend string

const (
	BackendFlipside   Backend = "flipside"
	BackendClickHouse Backend = "clickhouse"
)

var ErrUnknownBackend = errors.New("unknown query backend")

// ClickHouseConfig holds the warehouse connection settings.
type ClickHouseConfig struct {
	Addr     string `env:"ADDR_TCP" envDefault:"localhost:9000"`
	Database string `env:"DATABASE" envDefault:"default"`
	Username string `env:"USERNAME" envDefault:"default"`
	Password string `env:"PASSWORD"`
	// Secure enables TLS for ClickHouse Cloud (port 9440).
	Secure bool `env:"SECURE"`
}

func (c ClickHouseConfig) ConnConfig() clickhouse.ConnConfig {
	return clickhouse.ConnConfig{
		Addr:     c.Addr,
		Database: c.Database,
		Username: c.Username,
		Password: c.Password,
		Secure:   c.Secure,
	}
}

// Config is the API server configuration, read from the environment.
type Config struct {
	AppName     string   `env:"APP_NAME" envDefault:"Draup Asset Explorer"`
	Port        string   `env:"PORT" envDefault:"8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// FlipsideAPIKey may be empty; queries then fail instead of the server
	// refusing to start.
	FlipsideAPIKey  string `env:"FLIPSIDE_API_KEY"`
	FlipsideBaseURL string `env:"FLIPSIDE_BASE_URL" envDefault:"https://node-api.flipsidecrypto.com"`
	EthRPCURL       string `env:"ETH_RPC_URL" envDefault:"https://rpc.ankr.com/eth"`

	QueryBackend Backend          `env:"QUERY_BACKEND" envDefault:"flipside"`
	ClickHouse   ClickHouseConfig `envPrefix:"CLICKHOUSE_"`

	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	FilterDebounce     time.Duration `env:"FILTER_DEBOUNCE" envDefault:"500ms"`
	DefaultTimezone    string        `env:"DEFAULT_TIMEZONE" envDefault:"America/New_York"`

	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"development"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.QueryBackend {
	case BackendFlipside, BackendClickHouse:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.QueryBackend)
	}
	if c.SessionIdleTimeout <= 0 {
		return errors.New("session idle timeout must be positive")
	}
	if c.FilterDebounce < 0 {
		return errors.New("filter debounce must not be negative")
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", c.DefaultTimezone, err)
	}
	return nil
}
