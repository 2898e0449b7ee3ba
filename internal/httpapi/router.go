package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"luma/internal/httpapi/handlers"
	"luma/internal/httpapi/util"
	"luma/internal/httpkit"
	"luma/internal/pipeline"
	"luma/internal/pkg/logger"
	"luma/internal/pkg/middleware"
	"luma/internal/ports"
)

type Deps struct {
	Pool   *pgxpool.Pool
	RDB    *redis.Client
	SP     ports.StorageProvider
	Videos *pipeline.Orchestrator
	Log    *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.Timeout(60 * time.Second))

	cors := httpkit.DefaultCORSOptions()
	cors.AllowedOrigins = util.EnvCSV("CORS_ALLOWED_ORIGINS", cors.AllowedOrigins)
	r.Use(httpkit.CORS(cors))

	h := handlers.New(handlers.Deps{
		Pool:   d.Pool,
		RDB:    d.RDB,
		SP:     d.SP,
		Videos: d.Videos,
		Log:    d.Log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- ASSETS ----
	r.Post("/assets", h.PostAsset)
	r.Get("/assets", h.ListAssets)
	r.Get("/assets/{assetId}", h.GetAsset)
	r.Get("/assets/{assetId}/url", h.GetAssetURL)
	r.Get("/assets/{assetId}/content", h.StreamAsset)
	r.Delete("/assets/{assetId}", h.DeleteAsset)

	// ---- LESSONS ----
	r.Post("/lessons", h.PostLesson)
	r.Get("/lessons", h.ListLessons)
	r.Get("/lessons/{lessonId}", h.GetLesson)
	r.Delete("/lessons/{lessonId}", h.DeleteLesson)

	// ---- VIDEOS ----
	r.Post("/lessons/{lessonId}/video", h.PostLessonVideo)
	r.Get("/lessons/{lessonId}/videos", h.ListLessonVideos)
	r.Get("/videos/{videoId}", h.GetVideo)
	r.Post("/videos/{videoId}/regenerate", h.RegenerateVideo)
	r.Post("/videos/cleanup", h.CleanupVideos)

	return r
}
