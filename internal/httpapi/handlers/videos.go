package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"luma/internal/httpkit"
	"luma/internal/models"
	"luma/internal/pipeline"
	"luma/internal/pkg/errors"
)

type CreateVideoRequest struct {
	AvatarAssetID string `json:"avatar_asset_id"`
	VoiceAssetID  string `json:"voice_asset_id,omitempty"`
	Voice         string `json:"voice,omitempty"`
	OwnerID       string `json:"owner_id,omitempty"`
}

// PostLessonVideo starts asynchronous video generation for a lesson.
// The response is the job record in "generating"; clients poll
// GET /videos/{videoId} for the result.
func (h *Handler) PostLessonVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lessonID := chi.URLParam(r, "lessonId")

	var req CreateVideoRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	req.AvatarAssetID = strings.TrimSpace(req.AvatarAssetID)
	if req.AvatarAssetID == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "avatar_asset_id is required", map[string]any{"field": "avatar_asset_id"})
		return
	}

	job, err := h.videos.Start(ctx, pipeline.StartParams{
		LessonID:      lessonID,
		OwnerID:       strings.TrimSpace(req.OwnerID),
		AvatarAssetID: req.AvatarAssetID,
		VoiceAssetID:  strings.TrimSpace(req.VoiceAssetID),
		Voice:         strings.TrimSpace(req.Voice),
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	httpkit.WriteJSON(w, 202, map[string]any{"video": job})
}

func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID := chi.URLParam(r, "videoId")

	job, err := h.videos.GetStatus(ctx, videoID)
	if err != nil {
		httpkit.WriteErr(w, 404, "VIDEO_NOT_FOUND", "video not found", map[string]any{"video_id": videoID})
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"video": job})
}

func (h *Handler) ListLessonVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lessonID := chi.URLParam(r, "lessonId")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := h.jobs.ListByLesson(ctx, lessonID, limit)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	if jobs == nil {
		jobs = []models.VideoJob{}
	}
	httpkit.WriteJSON(w, 200, map[string]any{"videos": jobs})
}

// RegenerateVideo re-runs a job with its stored lesson and asset
// references.
func (h *Handler) RegenerateVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID := chi.URLParam(r, "videoId")

	job, err := h.videos.Regenerate(ctx, videoID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httpkit.WriteJSON(w, 202, map[string]any{"video": job})
}

// CleanupVideos deletes orphaned temporary artifacts left by failed
// jobs and reports how many were removed.
func (h *Handler) CleanupVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deleted, err := h.videos.CleanupTempArtifacts(ctx)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "artifact cleanup failed", nil)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"deleted": deleted})
}

// writeDomainErr maps pipeline errors onto the HTTP envelope using
// their typed code.
func writeDomainErr(w http.ResponseWriter, err error) {
	status := errors.GetHTTPStatus(err)
	code := string(errors.GetCode(err))
	httpkit.WriteErr(w, status, code, err.Error(), errors.GetFields(err))
}
