package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solitaire-cipher/backend/internal/config"
	"solitaire-cipher/backend/internal/database"
	"solitaire-cipher/backend/internal/handlers"
	"solitaire-cipher/backend/internal/logging"
	"solitaire-cipher/backend/internal/middleware"
	"solitaire-cipher/backend/internal/tracing"
	"solitaire-cipher/backend/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	janitorInterval   = time.Minute
	hubRestartBackoff = time.Second
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With().Str("service", tracing.DefaultServiceName).Logger()
	handlers.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName: tracing.DefaultServiceName,
		Environment: cfg.AppEnv,
		PrettyPrint: cfg.IsDevelopment(),
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing init")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, err := database.Open(ctx, database.Options{Path: cfg.DatabasePath, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("db open/migrate")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("db close")
		}
	}()

	hubRef := websocket.NewHubRef(websocket.NewHub(logger), logger)
	go hubRef.Supervise(func() *websocket.Hub { return websocket.NewHub(logger) }, hubRestartBackoff)

	sessions := handlers.NewSessionManager(cfg.SessionIdleTTL, cfg.KeystreamMaxRetries)
	go sessions.RunJanitor(ctx, janitorInterval)

	handlers.SetWebSocketOriginPolicy(cfg.IsDevelopment(), cfg.DevWebSocketsAllowAll, cfg.WSAllowedOrigins)
	handlers.SetHubProvider(hubRef.Get)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(tracing.DefaultServiceName))
	r.Use(logging.GinMiddleware(logger))
	r.Use(middleware.CORS(cfg))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api")
	handlers.RegisterAuthRoutes(api, db, cfg)
	handlers.RegisterCipherRoutes(api, db, cfg)

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(cfg))
	handlers.RegisterDeckRoutes(protected, db, cfg)
	handlers.RegisterSessionRoutes(protected, db, sessions, cfg)

	// WebSocket endpoint is auth-gated via cookie, Authorization header, or
	// (when enabled) the token query param.
	r.GET("/ws", handlers.WebSocketHandler(hubRef.Get, db, sessions, cfg))

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("env", cfg.AppEnv).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
	}

	if h, ok := hubRef.Get(); ok && h != nil {
		h.Stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}
