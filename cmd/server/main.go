// UAVLogViewer chat backend - conversational analytics over flight telemetry.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/pimwelt1/UAVLogViewer/internal/agent"
	"github.com/pimwelt1/UAVLogViewer/internal/api"
	"github.com/pimwelt1/UAVLogViewer/internal/config"
	"github.com/pimwelt1/UAVLogViewer/internal/middleware"
	"github.com/pimwelt1/UAVLogViewer/internal/session"
	"github.com/pimwelt1/UAVLogViewer/internal/store"
	"github.com/pimwelt1/UAVLogViewer/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "model", cfg.OpenAI.Model, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	docs, err := telemetry.LoadDocs(cfg.DocPath)
	if err != nil {
		slog.Warn("Documentation unavailable, sessions will use stubs", "path", cfg.DocPath, "error", err)
		docs = telemetry.NewDocs(nil)
	} else {
		slog.Info("Documentation loaded", "path", cfg.DocPath)
	}

	generator := agent.NewOpenAIClient(agent.OpenAIConfig{
		APIKey:     cfg.OpenAI.APIKey,
		Model:      cfg.OpenAI.Model,
		Timeout:    cfg.OpenAI.Timeout,
		MaxRetries: cfg.OpenAI.MaxRetries,
	})

	registry := session.NewRegistry(session.RegistryConfig{
		TTL:      cfg.SessionTTL,
		Capacity: uint64(cfg.SessionCapacity),
		Limits: session.Limits{
			QueryAttempts:   cfg.MaxQueryAttempts,
			TurnTransitions: cfg.MaxTurnTransitions,
		},
		Docs:      docs,
		Generator: generator,
		Repo:      repo,
	})
	registry.Start()
	defer registry.Stop()
	slog.Info("Session registry ready", "ttl", cfg.SessionTTL, "capacity", cfg.SessionCapacity)

	// Initialize handlers.
	handler := api.NewHandler(registry, cfg.RateLimit)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	corsOrigins := []string{}
	if cfg.FrontendURL != "" {
		corsOrigins = append(corsOrigins, cfg.FrontendURL)
	}
	r.Use(middleware.CORS(corsOrigins))

	handler.RegisterRoutes(r)

	// Create server.
	// Note: SSE responses require long write timeouts.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout for SSE support
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
