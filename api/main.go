package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/draup/assetexplorer/api/backend"
	"github.com/draup/assetexplorer/api/config"
	"github.com/draup/assetexplorer/api/handlers"
	"github.com/draup/assetexplorer/api/metrics"
	"github.com/draup/assetexplorer/explorer/pkg/session"
	"github.com/draup/assetexplorer/nft/pkg/ens"
	"github.com/draup/assetexplorer/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// shuttingDown is set to true when shutdown signal is received.
	// Readiness probe checks this to immediately return 503.
	shuttingDown atomic.Bool
)

const (
	defaultMetricsAddr = "0.0.0.0:0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initSentry(log *slog.Logger, cfg config.Config) bool {
	if cfg.SentryDSN == "" {
		return false
	}
	release := version
	if commit != "none" {
		release = version + "-" + commit
	}
	// TracesSampleRate: 1.0 for development, 0.1 (10%) otherwise
	tracesSampleRate := 0.1
	if cfg.SentryEnvironment == "development" {
		tracesSampleRate = 1.0
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		Release:          release,
		EnableTracing:    true,
		TracesSampleRate: tracesSampleRate,
	})
	if err != nil {
		log.Warn("api: sentry initialization failed", "error", err)
		return false
	}
	log.Info("api: sentry initialized", "env", cfg.SentryEnvironment, "release", release)
	return true
}

// reportLoadError forwards failed transfer loads to Sentry.
func reportLoadError(err error, trigger session.Trigger, wallet string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("trigger", string(trigger))
		scope.SetExtra("wallet", wallet)
		sentry.CaptureException(err)
	})
}

// originChecker accepts websocket upgrades from the configured CORS origins.
func originChecker(origins []string) func(r *http.Request) bool {
	if slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	listenAddrFlag := flag.String("listen-addr", "", "Address to listen on (default :$PORT)")
	flag.Parse()

	log := logger.New(*verboseFlag)
	log.Info("api: starting", "version", version, "commit", commit, "date", date)
	handlers.SetBuildInfo(version, commit, date)

	// Load .env files if they exist
	// godotenv doesn't override existing env vars, so later files don't overwrite earlier ones
	_ = godotenv.Load()           // .env in current working directory
	_ = godotenv.Load("api/.env") // api/.env when running from repo root

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sentryEnabled := initSentry(log, cfg)
	if sentryEnabled {
		defer sentry.Flush(2 * time.Second)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	be, err := backend.Open(startCtx, log, cfg)
	if err != nil {
		return err
	}
	if be.Close != nil {
		defer func() { _ = be.Close() }()
	}

	fetcher, err := be.Fetcher(log)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	eth, err := ethclient.DialContext(startCtx, cfg.EthRPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial ethereum rpc: %w", err)
	}
	defer eth.Close()
	resolver, err := ens.NewResolver(ens.Config{Logger: log, Caller: eth})
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	sessionCfg := session.Config{
		Resolver:        resolver,
		Fetcher:         fetcher,
		FilterDelay:     cfg.FilterDebounce,
		DefaultTimezone: cfg.DefaultTimezone,
	}
	if sentryEnabled {
		sessionCfg.OnLoadError = reportLoadError
	}
	store, err := session.NewStore(session.StoreConfig{
		Logger:      log,
		IdleTimeout: cfg.SessionIdleTimeout,
		Session:     sessionCfg,
	})
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}
	store.Start()

	api, err := handlers.New(handlers.Config{
		Logger:   log,
		Store:    store,
		Resolver: resolver,
		Public: handlers.PublicConfig{
			AppName:           cfg.AppName,
			SentryDSN:         cfg.SentryDSN,
			SentryEnvironment: cfg.SentryEnvironment,
			QueryBackend:      string(cfg.QueryBackend),
			DefaultTimezone:   cfg.DefaultTimezone,
			FilterDebounceMs:  cfg.FilterDebounce.Milliseconds(),
		},
		CheckOrigin: originChecker(cfg.CORSOrigins),
	})
	if err != nil {
		store.Stop()
		return fmt.Errorf("failed to create api: %w", err)
	}

	// Start metrics server
	var metricsServer *http.Server
	if *metricsAddrFlag != "" {
		listener, err := net.Listen("tcp", *metricsAddrFlag)
		if err != nil {
			log.Warn("api: failed to start prometheus metrics server listener", "error", err)
		} else {
			log.Info("api: prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("api: metrics server error", "error", err)
				}
			}()
		}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)

	// Sentry middleware for error and performance monitoring (before Recoverer to capture panics)
	if sentryEnabled {
		sentryHandler := sentryhttp.New(sentryhttp.Options{
			Repanic: true, // Re-panic after capturing so Recoverer can handle it
		})
		r.Use(sentryHandler.Handle)
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if txn := sentry.TransactionFromContext(r.Context()); txn != nil {
					txn.Name = r.Method + " " + r.URL.Path
				}
				next.ServeHTTP(w, r)
			})
		})
	}

	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept-Language"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// Health check endpoints
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// Immediately fail if shutting down
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("shutting down"))
			return
		}
		if be.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := be.Ping(ctx); err != nil {
				log.Warn("api: readiness check failed", "error", handlers.SanitizeError(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("warehouse connection failed"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	api.Routes(r)

	addr := *listenAddrFlag
	if addr == "" {
		addr = ":" + cfg.Port
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // Disabled for websocket streams
		IdleTimeout:       60 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("api: server starting", "address", addr, "backend", cfg.QueryBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case sig := <-shutdown:
		log.Info("api: received signal, shutting down gracefully", "signal", sig.String())
	case err := <-serveErr:
		store.Stop()
		api.Close()
		return fmt.Errorf("server error: %w", err)
	}

	// Immediately mark as shutting down so readiness probe returns 503
	shuttingDown.Store(true)

	// Cancel background loads and close explorer streams; http.Server.Shutdown
	// does not wait for hijacked connections.
	api.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("api: graceful shutdown error", "error", err)
	} else {
		log.Info("api: server stopped gracefully")
	}
	store.Stop()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Warn("api: metrics server shutdown error", "error", err)
		}
	}
	return nil
}
