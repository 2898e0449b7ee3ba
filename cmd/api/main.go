package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"luma/internal/artifacts"
	"luma/internal/httpapi"
	"luma/internal/pipeline"
	"luma/internal/pkg/logger"
	"luma/internal/pkg/shutdown"
	"luma/internal/providers/avatar"
	"luma/internal/providers/speech"
	"luma/internal/repositories"
	"luma/internal/storage"
)

func main() {
	// Initialize logger
	log := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		ServiceName: "luma-api",
		AddSource:   getEnv("LOG_SOURCE", "false") == "true",
	})

	log.Info("starting LUMA API",
		"version", "0.1.0",
	)

	// Load configuration
	httpPort := getEnv("HTTP_PORT", "8080")
	dbURL := mustEnv(log, "DATABASE_URL")
	redisAddr := mustEnv(log, "REDIS_ADDR")

	ctx := context.Background()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Connect to PostgreSQL
	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	// Verify PostgreSQL connection
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	// Connect to Redis
	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	// Verify Redis connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	// Initialize storage provider
	log.Info("initializing storage provider")
	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	// External providers. "fake" keeps local development independent of
	// real accounts.
	speechClient := newSpeechClient(log)
	avatarClient := newAvatarClient(log)

	// Video generation pipeline
	orch := pipeline.New(pipeline.Deps{
		Store:     repositories.NewVideoJobRepository(pool),
		Lessons:   repositories.NewLessonRepository(pool),
		Assets:    repositories.NewAssetRepository(pool, sp),
		Speech:    speechClient,
		Avatar:    avatarClient,
		SP:        sp,
		Artifacts: artifacts.NewRegistry(rdb),
		Log:       log,
	})

	// Create HTTP router
	router := httpapi.NewRouter(httpapi.Deps{
		Pool:   pool,
		RDB:    rdb,
		SP:     sp,
		Videos: orch,
		Log:    log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         "0.0.0.0:" + httpPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Register server shutdown
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", httpPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	// Wait for shutdown signal
	shutdownMgr.Wait()
}

func newSpeechClient(log *logger.Logger) speech.Client {
	switch getEnv("SPEECH_PROVIDER", "fake") {
	case "http":
		return speech.NewHTTPClient(
			mustEnv(log, "SPEECH_BASE_URL"),
			mustEnv(log, "SPEECH_API_KEY"),
			log,
		)
	default:
		log.Info("using fake speech provider")
		return speech.NewFakeClient()
	}
}

func newAvatarClient(log *logger.Logger) avatar.Client {
	switch getEnv("AVATAR_PROVIDER", "fake") {
	case "http":
		return avatar.NewHTTPClient(
			mustEnv(log, "AVATAR_BASE_URL"),
			mustEnv(log, "AVATAR_API_KEY"),
			log,
		)
	default:
		log.Info("using fake avatar provider")
		return avatar.NewFakeClient()
	}
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v
}

// mustEnv gets a required environment variable or exits.
func mustEnv(log *logger.Logger, key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Error("missing required environment variable", "key", key)
		os.Exit(1)
	}
	return v
}
