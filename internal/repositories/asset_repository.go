package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"luma/internal/models"
	"luma/internal/pkg/errors"
	"luma/internal/storage"
)

// AssetRepository tracks uploaded binaries and resolves their public
// URLs through the configured storage provider.
type AssetRepository struct {
	db *pgxpool.Pool
	sp storage.Provider
}

func NewAssetRepository(db *pgxpool.Pool, sp storage.Provider) *AssetRepository {
	return &AssetRepository{db: db, sp: sp}
}

func (r *AssetRepository) Create(ctx context.Context, a *models.Asset) error {
	a.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO assets (id, kind, provider, object_key, mime, size_bytes, label, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, a.Kind, a.Provider, a.ObjectKey, a.Mime, a.SizeBytes, a.Label, a.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "assets.create", "db insert failed")
	}
	return nil
}

func (r *AssetRepository) Get(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	err := r.db.QueryRow(ctx, `
		SELECT id, kind, provider, object_key, mime, size_bytes, label, created_at
		FROM assets WHERE id=$1
	`, id).Scan(&a.ID, &a.Kind, &a.Provider, &a.ObjectKey, &a.Mime, &a.SizeBytes, &a.Label, &a.CreatedAt)
	if err != nil {
		return nil, errors.NotFound("asset", id)
	}
	return &a, nil
}

func (r *AssetRepository) List(ctx context.Context, kind string, limit int) ([]models.Asset, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, kind, provider, object_key, mime, size_bytes, label, created_at
		FROM assets
		WHERE ($1 = '' OR kind = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, kind, limit)
	if err != nil {
		return nil, errors.Wrap(err, "assets.list", "db query failed")
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.Kind, &a.Provider, &a.ObjectKey, &a.Mime, &a.SizeBytes, &a.Label, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "assets.list", "row scan failed")
		}
		out = append(out, a)
	}
	return out, nil
}

// Referenced reports whether any video job points at the asset, either
// as its avatar image or its voice sample.
func (r *AssetRepository) Referenced(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(1) FROM video_jobs
		WHERE avatar_asset_id=$1 OR voice_asset_id=$1
	`, id).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "assets.referenced", "db query failed")
	}
	return n > 0, nil
}

func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM assets WHERE id=$1`, id)
	if err != nil {
		return errors.Wrap(err, "assets.delete", "db delete failed")
	}
	if cmd.RowsAffected() == 0 {
		return errors.NotFound("asset", id)
	}
	return nil
}

// ResolveURL returns the public URL for the asset's stored object.
func (r *AssetRepository) ResolveURL(ctx context.Context, id string) (string, error) {
	a, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return r.sp.PublicURL(a.ObjectKey), nil
}
