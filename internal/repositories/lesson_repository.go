package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"luma/internal/models"
	"luma/internal/pkg/errors"
)

// LessonRepository stores lesson scripts. Deletes are soft so video
// jobs keep a resolvable lesson reference.
type LessonRepository struct {
	db *pgxpool.Pool
}

func NewLessonRepository(db *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{db: db}
}

func (r *LessonRepository) Create(ctx context.Context, l *models.Lesson) error {
	l.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO lessons (id, title, script, created_at)
		VALUES ($1,$2,$3,$4)
	`, l.ID, l.Title, l.Script, l.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "lessons.create", "db insert failed")
	}
	return nil
}

func (r *LessonRepository) Get(ctx context.Context, id string) (*models.Lesson, error) {
	var l models.Lesson
	err := r.db.QueryRow(ctx, `
		SELECT id, title, script, created_at, deleted_at
		FROM lessons WHERE id=$1 AND deleted_at IS NULL
	`, id).Scan(&l.ID, &l.Title, &l.Script, &l.CreatedAt, &l.DeletedAt)
	if err != nil {
		return nil, errors.NotFound("lesson", id)
	}
	return &l, nil
}

func (r *LessonRepository) List(ctx context.Context, limit int) ([]models.Lesson, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, title, script, created_at, deleted_at
		FROM lessons
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "lessons.list", "db query failed")
	}
	defer rows.Close()

	var out []models.Lesson
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.Script, &l.CreatedAt, &l.DeletedAt); err != nil {
			return nil, errors.Wrap(err, "lessons.list", "row scan failed")
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *LessonRepository) SoftDelete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE lessons SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return errors.Wrap(err, "lessons.delete", "db update failed")
	}
	if cmd.RowsAffected() == 0 {
		return errors.NotFound("lesson", id)
	}
	return nil
}
