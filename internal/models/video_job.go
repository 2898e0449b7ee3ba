package models

import "time"

// Video job statuses. Transitions are monotonic: a job in "generating"
// moves to "completed" or "failed" and stays there; only an explicit
// regenerate resets a terminal job back to "generating".
const (
	VideoStatusGenerating = "generating"
	VideoStatusCompleted  = "completed"
	VideoStatusFailed     = "failed"
)

// VideoJob is the durable record of one lesson-video generation request.
// Input references (lesson, avatar, voice) are immutable once the job
// starts so a regenerate reproduces the original narration. Result
// fields (VideoURL, AudioURL, DurationSeconds) are populated only on
// success; a failed job never carries partial URLs.
type VideoJob struct {
	ID              string    `json:"id"`
	LessonID        string    `json:"lesson_id"`
	OwnerID         string    `json:"owner_id"`
	AvatarAssetID   string    `json:"avatar_asset_id"`
	VoiceAssetID    string    `json:"voice_asset_id,omitempty"`
	Voice           string    `json:"voice,omitempty"`
	VideoURL        string    `json:"video_url,omitempty"`
	AudioURL        string    `json:"audio_url,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *VideoJob) Terminal() bool {
	return j.Status == VideoStatusCompleted || j.Status == VideoStatusFailed
}
