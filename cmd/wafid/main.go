package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/api"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/config"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/events"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/matcher"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/proxy"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/session"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("wafid starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"bookingURL", cfg.Booking.URL,
	)

	// ── 3. Open proxy persistence and build the pool ────────────────
	var store *proxy.Store
	if cfg.Proxy.DataDir != "" {
		store, err = proxy.OpenStore(cfg.Proxy.DataDir)
		if err != nil {
			slog.Error("failed to open proxy store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	sources := make(proxy.MultiSource, 0, len(cfg.Proxy.Sources))
	for _, u := range cfg.Proxy.Sources {
		sources = append(sources, proxy.NewSource(u))
	}

	pool := proxy.NewPool(sources, &proxy.HTTPProber{TargetURL: cfg.Proxy.ProbeURL}, store, proxy.PoolConfig{
		ProbeTimeout:     cfg.Proxy.ProbeTimeout,
		ProbeConcurrency: cfg.Proxy.ProbeConcurrency,
	})
	if err := pool.Restore(context.Background()); err != nil {
		slog.Warn("could not restore persisted proxies", "error", err)
	}
	slog.Info("proxy pool ready", "restored", pool.Count())

	// ── 4. Launch the browser session runner ────────────────────────
	runner, err := session.NewRodRunner(cfg.Browser, cfg.Booking)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer runner.Shutdown()

	// ── 5. Event sink + matcher ─────────────────────────────────────
	sink := events.NewSink(1000)
	m := matcher.New(cfg.Booking.CaptureFragment, cfg.Booking.CenterKeys)

	// ── 6. Setup router and HTTP server ─────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(pool, runner, m, sink, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// runner.Shutdown() runs via defer — closes pages and kills Chrome.
	slog.Info("wafid stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
