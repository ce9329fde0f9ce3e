package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	web "routines/internal/adapters/http"
	"routines/internal/adapters/http/perf"
	"routines/internal/adapters/storage"
	routineStore "routines/internal/adapters/storage/routine"
	"routines/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configFile := flag.String("config", "", "config file (default .routines.yaml)")
	flag.Parse()

	if err := config.Init(*configFile); err != nil {
		fatal("failed to read config", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}
	setupLogging(cfg)

	// WAL mode, foreign keys, and busy timeout on every pooled connection
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		fatal("failed to open database", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		fatal("database unreachable", err)
	}
	if err := storage.InitDB(db); err != nil {
		fatal("failed to migrate database", err)
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(cfg.PerfRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	stores := &web.Stores{
		RoutineStore: routineStore.NewSQLiteStore(timedDB),
	}

	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		fatal("invalid csrf key", err)
	}
	if csrfKey == nil {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			fatal("failed to generate CSRF key", err)
		}
		slog.Warn("config_event", "event", "random_csrf_key", "hint", "set ROUTINES_CSRF_KEY for production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := web.NewMux(ctx, stores, collector, web.Options{
		CSRFKey:            csrfKey,
		CSRFSecure:         cfg.IsProduction(),
		TrustedOrigins:     cfg.TrustedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequestMs:      cfg.SlowRequestMs,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server_event", "event", "shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_event", "event", "starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "schema", storage.LatestSchemaVersion())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("server failed", err)
	}
	slog.Info("server_event", "event", "stopped")
}

// setupLogging installs the default slog handler: JSON in production, text otherwise.
func setupLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
