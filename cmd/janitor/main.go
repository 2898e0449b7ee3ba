package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"luma/internal/artifacts"
	"luma/internal/httpapi/util"
	"luma/internal/janitor"
	"luma/internal/pkg/logger"
	"luma/internal/storage"
)

func main() {
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "luma-janitor",
	})

	redisAddr := util.MustEnv("REDIS_ADDR")

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}

	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	janitor.Run(runCtx, janitor.Deps{
		Registry: artifacts.NewRegistry(rdb),
		SP:       sp,
		Log:      log,
	})
}
