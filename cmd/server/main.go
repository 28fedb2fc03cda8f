// Package main is the entrypoint for the VoiceBrief API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/voicebrief/voicebrief/internal/api"
	"github.com/voicebrief/voicebrief/internal/api/handler"
	mw "github.com/voicebrief/voicebrief/internal/api/middleware"
	"github.com/voicebrief/voicebrief/internal/asr/assemblyai"
	"github.com/voicebrief/voicebrief/internal/blob"
	"github.com/voicebrief/voicebrief/internal/cache"
	"github.com/voicebrief/voicebrief/internal/config"
	"github.com/voicebrief/voicebrief/internal/llm"
	"github.com/voicebrief/voicebrief/internal/pipeline"
	"github.com/voicebrief/voicebrief/internal/store"
	"github.com/voicebrief/voicebrief/internal/summarize"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "llm_provider", cfg.LLM.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	blobs, err := blob.NewLocalStore(cfg.Media.Dir, cfg.Media.BaseURL)
	if err != nil {
		return fmt.Errorf("create media store: %w", err)
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}
	slog.Info("llm client initialized", "provider", llmClient.Name())

	transcriber := assemblyai.NewClient(cfg.ASR)
	summarizer := summarize.New(llmClient, summarize.WithCallTimeout(cfg.Pipeline.CallTimeout))

	pgStore := store.NewPostgresStore(pool)

	orch := pipeline.New(pgStore, redisCache, blobs, transcriber, summarizer, cfg.Pipeline)
	orch.Start()
	defer orch.Stop()

	auth := mw.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: mw.NewRateLimit(redisCache, 60),
		MediaDir:  blobs.Dir(),

		HealthHandler:   handler.NewHealthHandler(pgStore, redisCache),
		RegisterHandler: handler.NewRegisterHandler(pgStore, auth),
		LoginHandler:    handler.NewLoginHandler(pgStore, auth),
		UploadHandler:   handler.NewUploadHandler(pgStore, orch, cfg.Media.MaxUploadMB),
		ListJobsHandler: handler.NewListJobsHandler(pgStore),
		PollJobHandler:  handler.NewPollJobHandler(pgStore, redisCache),
		JobResult:       handler.NewJobResultHandler(pgStore),
		DeleteJob:       handler.NewDeleteJobHandler(pgStore, blobs, redisCache),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// In-flight jobs finish via the deferred orch.Stop().
	slog.Info("server stopped gracefully")
	return nil
}
