package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/brunobiangulo/orggraph"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	cfg := orggraph.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = orggraph.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}

	// Override from environment variables.
	if v := os.Getenv("ORGGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ORGGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ORGGRAPH_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Error("parsing ORGGRAPH_PAGE_SIZE", "value", v, "error", err)
			os.Exit(1)
		}
		cfg.PageSize = n
	}

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))

	apiKey := os.Getenv("ORGGRAPH_API_KEY")
	corsOrigins := os.Getenv("ORGGRAPH_CORS_ORIGINS")

	engine, err := orggraph.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine, cfg.MaxImportBytes)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      withMiddleware(newMux(h), apiKey, corsOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

func newMux(h *handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /organizations", h.handleForest)
	mux.HandleFunc("POST /organizations", h.handleStore)
	mux.HandleFunc("GET /organizations/{name}", h.handleShow)
	mux.HandleFunc("PUT /organizations/{name}", h.handleNotImplemented)
	mux.HandleFunc("PATCH /organizations/{name}", h.handleNotImplemented)
	mux.HandleFunc("DELETE /organizations/{name}", h.handleNotImplemented)
	mux.HandleFunc("POST /import", h.handleImport)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", metricsHandler())

	return mux
}

// withMiddleware wraps next in the chain: recovery -> cors -> auth -> request id -> logging -> mux
func withMiddleware(next http.Handler, apiKey, corsOrigins string) http.Handler {
	handler := logMiddleware(next)
	handler = requestIDMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
