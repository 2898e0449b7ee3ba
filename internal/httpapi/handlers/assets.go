package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"luma/internal/httpkit"
	"luma/internal/models"
	"luma/internal/pkg/ids"
	"luma/internal/ports"
)

func (h *Handler) PostAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(512 << 20); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	kind := strings.TrimSpace(r.FormValue("kind"))
	if kind == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "kind is required", map[string]any{"field": "kind"})
		return
	}
	label := strings.TrimSpace(r.FormValue("label"))

	file, header, err := r.FormFile("file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "file is required", map[string]any{"field": "file"})
		return
	}
	defer file.Close()

	assetID := ids.New("ast")
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = guessExt(header.Header.Get("Content-Type"))
		if ext == "" {
			ext = ".bin"
		}
	}

	objectKey := fmt.Sprintf("assets/%s/original%s", assetID, ext)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Reader:      file,
		Size:        header.Size,
	})
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage put failed", nil)
		return
	}

	asset := &models.Asset{
		ID:        assetID,
		Kind:      kind,
		Provider:  h.sp.Provider(),
		ObjectKey: out.ObjectKey,
		Mime:      contentType,
		SizeBytes: out.Size,
		Label:     label,
	}
	if err := h.assets.Create(ctx, asset); err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert asset failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{"asset": asset})
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	assets, err := h.assets.List(ctx, strings.TrimSpace(r.URL.Query().Get("kind")), limit)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	httpkit.WriteJSON(w, 200, map[string]any{"assets": assets})
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID := chi.URLParam(r, "assetId")

	asset, err := h.assets.Get(ctx, assetID)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"asset_id": assetID})
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"asset": asset})
}

func (h *Handler) GetAssetURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID := chi.URLParam(r, "assetId")

	url, err := h.assets.ResolveURL(ctx, assetID)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"asset_id": assetID})
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{
		"asset_id": assetID,
		"url":      url,
	})
}

func (h *Handler) StreamAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID := chi.URLParam(r, "assetId")

	asset, err := h.assets.Get(ctx, assetID)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"asset_id": assetID})
		return
	}

	rc, ct, _, err := h.sp.GetObject(ctx, asset.ObjectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_FILE_MISSING", "asset file missing", map[string]any{"object_key": asset.ObjectKey})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = asset.Mime
	}
	w.Header().Set("Content-Type", ct)
	if asset.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.SizeBytes, 10))
	}
	_, _ = io.Copy(w, rc)
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID := chi.URLParam(r, "assetId")

	asset, err := h.assets.Get(ctx, assetID)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"asset_id": assetID})
		return
	}

	inUse, err := h.assets.Referenced(ctx, assetID)
	if err != nil {
		// Tolerate a missing video_jobs table on a fresh database.
		if !httpkit.IsUndefinedTable(err) {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
			return
		}
		inUse = false
	}
	if inUse {
		httpkit.WriteErr(w, 409, "ASSET_IN_USE", "asset is referenced by video jobs", map[string]any{"asset_id": assetID})
		return
	}

	if err := h.sp.DeleteObject(ctx, asset.ObjectKey); err != nil && !errors.Is(err, os.ErrNotExist) {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage delete failed", map[string]any{"object_key": asset.ObjectKey})
		return
	}

	if err := h.assets.Delete(ctx, assetID); err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db delete failed", nil)
		return
	}

	w.WriteHeader(204)
}

func guessExt(contentType string) string {
	if contentType == "" {
		return ""
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
