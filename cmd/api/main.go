package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/lorrc/fieldservice-realtime/internal/adapters/primary/http"
	mw "github.com/lorrc/fieldservice-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/fieldservice-realtime/internal/adapters/primary/websocket"
	"github.com/lorrc/fieldservice-realtime/internal/adapters/secondary/breaker"
	"github.com/lorrc/fieldservice-realtime/internal/adapters/secondary/email"
	"github.com/lorrc/fieldservice-realtime/internal/adapters/secondary/postgres"
	"github.com/lorrc/fieldservice-realtime/internal/auth"
	"github.com/lorrc/fieldservice-realtime/internal/config"
	"github.com/lorrc/fieldservice-realtime/internal/core/services"
	"github.com/lorrc/fieldservice-realtime/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security Components
	cookieSigner, err := auth.NewCookieSigner(cfg.Session.Secrets...)
	if err != nil {
		logger.Error("invalid session secrets", "error", err)
		os.Exit(1)
	}
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, internalRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalConfig := mw.DefaultRateLimiterConfig()
		generalConfig.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		generalConfig.BurstSize = cfg.RateLimit.BurstSize
		generalRateLimiter = mw.NewRateLimiter(generalConfig)

		internalRateLimiter = mw.NewRateLimiter(mw.InternalRateLimiterConfig(
			cfg.RateLimit.InternalRPS,
			cfg.RateLimit.InternalBurst,
		))
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters), guarded by circuit breakers
	userRepo := breaker.NewUserRepository(postgres.NewUserRepository(pool), cfg.Breaker, logger)
	memberRepo := breaker.NewTeamMemberRepository(postgres.NewTeamMemberRepository(pool), cfg.Breaker, logger)
	sessionStore := breaker.NewSessionStore(postgres.NewSessionStore(pool), cfg.Breaker, logger)

	// Connection registry
	hub := websocket.NewHub(logger)

	// Services (Core)
	sessionResolver := services.NewSessionResolver(
		cookieSigner,
		sessionStore,
		cfg.Session.CookieName,
		cfg.Session.LookupTimeout,
		logger,
	)
	accessService := services.NewAccessService(memberRepo, logger)

	var publisherOpts []services.PublisherOption
	if cfg.Notify.EmailFallback {
		notifier := email.NewMockSMTPNotifier(userRepo, cfg.Notify.SenderAddress, logger)
		publisherOpts = append(publisherOpts, services.WithOfflineNotifier(hub, notifier))
	}
	publisher := services.NewPublisher(hub, logger, publisherOpts...)

	// Handlers (Primary Adapters)
	frameRouter := websocket.NewRouter(hub, publisher, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, frameRouter, sessionResolver, accessService, cfg, logger)
	presenceHandler := httpAdapter.NewPresenceHandler(hub, accessService, errorHandler, logger)
	eventsHandler := httpAdapter.NewEventsHandler(publisher, errorHandler, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, hub, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))

	// Health check and metrics endpoints (standard probe paths)
	healthHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket route (authentication is handled inside the handler)
	r.Group(func(r chi.Router) {
		if generalRateLimiter != nil {
			r.Use(generalRateLimiter.Middleware)
		}
		r.Get(cfg.WebSocket.Path, wsHandler.ServeHTTP)
	})

	// Browser API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.CORSOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		if generalRateLimiter != nil {
			r.Use(generalRateLimiter.Middleware)
		}
		r.Use(mw.SessionAuth(sessionResolver))
		presenceHandler.RegisterRoutes(r)
	})

	// Internal publish API for other backend processes
	r.Route("/internal/v1", func(r chi.Router) {
		if internalRateLimiter != nil {
			r.Use(internalRateLimiter.Middleware)
		}
		r.Use(mw.ServiceAuth(tokenManager))
		eventsHandler.RegisterRoutes(r)
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "ws_path", cfg.WebSocket.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown. Hijacked websocket connections are not tracked by
	// the server, so the hub closes them after the listener stops.
	exitCode := 0
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		exitCode = 1
	}

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Error("websocket hub shutdown error", "error", err)
		exitCode = 1
	}

	publisher.Shutdown()

	logger.Info("server shutdown complete")
	if exitCode != 0 {
		pool.Close()
		os.Exit(exitCode)
	}
}
