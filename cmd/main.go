package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"musicshop-service/internal/api"
	"musicshop-service/internal/auth"
	"musicshop-service/internal/config"
	"musicshop-service/internal/store"
)

const serviceName = "musicshop-service"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg(".env file not found, relying on system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	logger.Info().Str("app_env", cfg.AppEnv).Msg("starting service")

	if cfg.Migrations.Enabled {
		if err := runMigrations(cfg, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database connection")
	}
	if err := db.PingContext(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping database")
	}
	logger.Info().Msg("database connection established")
	dbStore := store.NewPostgresStore(db)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token manager")
	}

	handler := api.NewHTTPHandler(dbStore, dbStore, dbStore, dbStore, tokens, logger)
	metrics := api.NewServerMetrics("api")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(handler.RequestLogger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(metrics.Middleware)

	registerHealthCheck(router, logger, db)
	router.Method(http.MethodGet, "/metrics", api.MetricsHandler())
	handler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutRead,
		WriteTimeout: cfg.HTTPServer.TimeoutWrite,
		IdleTimeout:  cfg.HTTPServer.TimeoutIdle,
	}

	go func() {
		logger.Info().Str("port", cfg.HTTPServer.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, dbStore, shutdownComplete)

	<-shutdownComplete
	logger.Info().Msg("service shutdown complete")
}

func runMigrations(cfg *config.Config, logger zerolog.Logger) error {
	m, err := migrate.New("file://"+cfg.Migrations.Path, cfg.Postgres.URL())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	logger.Info().Msg("database schema is up to date")
	return nil
}

func registerHealthCheck(router *chi.Mux, logger zerolog.Logger, db *sql.DB) {
	router.Get("/api/v1/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "healthy"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
			logger.Warn().Err(err).Msg("health check DB ping failed")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": serviceName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		})
	})
}

func waitForShutdown(
	logger zerolog.Logger,
	httpServer *http.Server,
	dbStore *store.PostgresStore,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Info().Str("signal", receivedSignal.String()).Msg("starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server graceful shutdown failed")
	} else {
		logger.Info().Msg("HTTP server gracefully shut down")
	}

	if dbStore != nil {
		if err := dbStore.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing database connection")
		}
	}
}
