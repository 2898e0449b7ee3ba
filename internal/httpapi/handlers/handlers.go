package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"luma/internal/pipeline"
	"luma/internal/pkg/logger"
	"luma/internal/ports"
	"luma/internal/repositories"
)

type Deps struct {
	Pool   *pgxpool.Pool
	RDB    *redis.Client
	SP     ports.StorageProvider
	Videos *pipeline.Orchestrator
	Log    *logger.Logger
}

type Handler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	sp      ports.StorageProvider
	videos  *pipeline.Orchestrator
	assets  *repositories.AssetRepository
	lessons *repositories.LessonRepository
	jobs    *repositories.VideoJobRepository
	log     *logger.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		pool:    d.Pool,
		rdb:     d.RDB,
		sp:      d.SP,
		videos:  d.Videos,
		assets:  repositories.NewAssetRepository(d.Pool, d.SP),
		lessons: repositories.NewLessonRepository(d.Pool),
		jobs:    repositories.NewVideoJobRepository(d.Pool),
		log:     d.Log,
	}
}
