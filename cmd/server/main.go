package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/config"
	"github.com/stemsi/curricuforge/internal/generation"
	"github.com/stemsi/curricuforge/internal/handler"
	"github.com/stemsi/curricuforge/internal/logger"
	"github.com/stemsi/curricuforge/internal/middleware"
	"github.com/stemsi/curricuforge/internal/router"
	"github.com/stemsi/curricuforge/internal/service"
	"github.com/stemsi/curricuforge/internal/session"
	"github.com/stemsi/curricuforge/internal/validator"
	"github.com/stemsi/curricuforge/internal/worker"
	"github.com/stemsi/curricuforge/web"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("model", cfg.GeminiModel).
		Str("session_store", cfg.SessionStore).
		Msg("Starting CurricuForge")

	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; every generation will fail")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Session Backend ───────────────────────────────────────────────
	var (
		rdb    *redis.Client
		store  session.Store
		broker session.Broker
	)
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		var err error
		rdb, err = session.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb, cfg.SessionTTL)
		broker = session.NewRedisBroker(rdb, log)
	case config.SessionStoreMemory:
		memStore := session.NewMemoryStore(cfg.SessionTTL)
		go memStore.Run(ctx, time.Minute)
		store = memStore
		broker = session.NewMemoryBroker()
	default:
		log.Fatal().Str("session_store", cfg.SessionStore).Msg("Unknown SESSION_STORE")
	}

	// ─── Generation ────────────────────────────────────────────────────
	gemini := generation.NewGeminiModel(generation.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	}, log)
	genClient := generation.NewClient(gemini, log)
	genWorker := worker.NewGenerationWorker(cfg.GenerationWorkers, cfg.GenerationQueueSize, log)

	// ─── Initialize Services ──────────────────────────────────────────
	sessionService := service.NewSessionService(cfg)
	forgeService := service.NewForgeService(store, broker, genClient, genWorker, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Page:   handler.NewPageHandler(forgeService, log),
		Forge:  handler.NewForgeHandler(forgeService, log),
		Stream: handler.NewStreamHandler(forgeService, log, cfg.AllowedOrigins),
		Health: handler.NewHealthHandler(rdb, genWorker, cfg.SessionStore, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		genWorker.Start(workerCtx, forgeService)
		close(workerDone)
	}()

	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, time.Minute)
	go submitLimiter.Run(ctx)

	// ─── Setup Router ──────────────────────────────────────────────────
	templates, err := web.Templates()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}
	r := router.SetupRouter(sessionService, submitLimiter, handlers, templates, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Let in-flight generations settle; queued ones are failed by the worker.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(cfg.ShutdownGrace):
		log.Warn().Dur("grace", cfg.ShutdownGrace).Msg("Generations still running at shutdown")
		abandonCtx, abandonCancel := context.WithTimeout(context.Background(), 5*time.Second)
		genWorker.AbandonRunning(abandonCtx, forgeService)
		abandonCancel()
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
