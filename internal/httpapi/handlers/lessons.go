package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"luma/internal/httpkit"
	"luma/internal/models"
	"luma/internal/pkg/ids"
)

type CreateLessonRequest struct {
	Title  string `json:"title"`
	Script string `json:"script"`
}

func (h *Handler) PostLesson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateLessonRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Script = strings.TrimSpace(req.Script)

	if req.Title == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "title is required", map[string]any{"field": "title"})
		return
	}
	if req.Script == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "script is required", map[string]any{"field": "script"})
		return
	}

	lesson := &models.Lesson{
		ID:     ids.New("les"),
		Title:  req.Title,
		Script: req.Script,
	}
	if err := h.lessons.Create(ctx, lesson); err != nil {
		if httpkit.IsUniqueViolation(err) {
			httpkit.WriteErr(w, 409, "LESSON_EXISTS", "lesson already exists", nil)
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert lesson failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{"lesson": lesson})
}

func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	lessons, err := h.lessons.List(ctx, limit)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	httpkit.WriteJSON(w, 200, map[string]any{"lessons": lessons})
}

func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lessonID := chi.URLParam(r, "lessonId")

	lesson, err := h.lessons.Get(ctx, lessonID)
	if err != nil {
		httpkit.WriteErr(w, 404, "LESSON_NOT_FOUND", "lesson not found", map[string]any{"lesson_id": lessonID})
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"lesson": lesson})
}

func (h *Handler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lessonID := chi.URLParam(r, "lessonId")

	if err := h.lessons.SoftDelete(ctx, lessonID); err != nil {
		httpkit.WriteErr(w, 404, "LESSON_NOT_FOUND", "lesson not found", map[string]any{"lesson_id": lessonID})
		return
	}
	w.WriteHeader(204)
}
