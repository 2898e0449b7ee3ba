package pipeline

import (
	"context"

	"luma/internal/models"
)

// JobStore persists video job records.
type JobStore interface {
	Create(ctx context.Context, j *models.VideoJob) error
	Get(ctx context.Context, id string) (*models.VideoJob, error)
	SetCompleted(ctx context.Context, id, videoURL, audioURL string, durationSeconds int) error
	SetFailed(ctx context.Context, id string) error
	ResetGenerating(ctx context.Context, id string) error
}

// LessonSource provides lesson scripts.
type LessonSource interface {
	Get(ctx context.Context, id string) (*models.Lesson, error)
}

// AssetResolver turns asset ids into fetchable URLs.
type AssetResolver interface {
	ResolveURL(ctx context.Context, id string) (string, error)
}

// ArtifactRegistry records temporary objects orphaned by failed jobs.
type ArtifactRegistry interface {
	Track(ctx context.Context, objectKey string) error
	Drain(ctx context.Context) ([]string, error)
}
