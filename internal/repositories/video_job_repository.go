package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"luma/internal/models"
	"luma/internal/pkg/errors"
)

// VideoJobRepository is the durable job record store. It is the only
// writer of video job rows; all updates are last-write-wins by job id.
type VideoJobRepository struct {
	db *pgxpool.Pool
}

func NewVideoJobRepository(db *pgxpool.Pool) *VideoJobRepository {
	return &VideoJobRepository{db: db}
}

func (r *VideoJobRepository) Create(ctx context.Context, j *models.VideoJob) error {
	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO video_jobs
			(id, lesson_id, owner_id, avatar_asset_id, voice_asset_id, voice,
			 video_url, audio_url, duration_seconds, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, j.ID, j.LessonID, j.OwnerID, j.AvatarAssetID, nullIfEmpty(j.VoiceAssetID), j.Voice,
		j.VideoURL, j.AudioURL, j.DurationSeconds, j.Status, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "video_jobs.create", "db insert failed")
	}
	return nil
}

func (r *VideoJobRepository) Get(ctx context.Context, id string) (*models.VideoJob, error) {
	var (
		j       models.VideoJob
		voiceID *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, lesson_id, owner_id, avatar_asset_id, voice_asset_id, voice,
		       video_url, audio_url, duration_seconds, status, created_at, updated_at
		FROM video_jobs WHERE id=$1
	`, id).Scan(
		&j.ID, &j.LessonID, &j.OwnerID, &j.AvatarAssetID, &voiceID, &j.Voice,
		&j.VideoURL, &j.AudioURL, &j.DurationSeconds, &j.Status, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, errors.NotFound("video job", id)
	}
	if voiceID != nil {
		j.VoiceAssetID = *voiceID
	}
	return &j, nil
}

// SetCompleted finalizes a successful job with its result URLs and
// duration.
func (r *VideoJobRepository) SetCompleted(ctx context.Context, id, videoURL, audioURL string, durationSeconds int) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE video_jobs
		SET status=$2, video_url=$3, audio_url=$4, duration_seconds=$5, updated_at=NOW()
		WHERE id=$1
	`, id, models.VideoStatusCompleted, videoURL, audioURL, durationSeconds)
	if err != nil {
		return errors.Wrap(err, "video_jobs.complete", "db update failed")
	}
	if cmd.RowsAffected() == 0 {
		return errors.NotFound("video job", id)
	}
	return nil
}

// SetFailed marks the job failed and clears any result fields so no
// partial URLs are ever exposed.
func (r *VideoJobRepository) SetFailed(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE video_jobs
		SET status=$2, video_url='', audio_url='', duration_seconds=0, updated_at=NOW()
		WHERE id=$1
	`, id, models.VideoStatusFailed)
	if err != nil {
		return errors.Wrap(err, "video_jobs.fail", "db update failed")
	}
	if cmd.RowsAffected() == 0 {
		return errors.NotFound("video job", id)
	}
	return nil
}

// ResetGenerating puts a job back into the generating state for a
// regenerate, clearing previous results.
func (r *VideoJobRepository) ResetGenerating(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE video_jobs
		SET status=$2, video_url='', audio_url='', duration_seconds=0, updated_at=NOW()
		WHERE id=$1
	`, id, models.VideoStatusGenerating)
	if err != nil {
		return errors.Wrap(err, "video_jobs.reset", "db update failed")
	}
	if cmd.RowsAffected() == 0 {
		return errors.NotFound("video job", id)
	}
	return nil
}

// ListByLesson returns jobs for a lesson, newest first.
func (r *VideoJobRepository) ListByLesson(ctx context.Context, lessonID string, limit int) ([]models.VideoJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, lesson_id, owner_id, avatar_asset_id, voice_asset_id, voice,
		       video_url, audio_url, duration_seconds, status, created_at, updated_at
		FROM video_jobs
		WHERE lesson_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, lessonID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "video_jobs.list", "db query failed")
	}
	defer rows.Close()

	var out []models.VideoJob
	for rows.Next() {
		var (
			j       models.VideoJob
			voiceID *string
		)
		if err := rows.Scan(
			&j.ID, &j.LessonID, &j.OwnerID, &j.AvatarAssetID, &voiceID, &j.Voice,
			&j.VideoURL, &j.AudioURL, &j.DurationSeconds, &j.Status, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "video_jobs.list", "row scan failed")
		}
		if voiceID != nil {
			j.VoiceAssetID = *voiceID
		}
		out = append(out, j)
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
