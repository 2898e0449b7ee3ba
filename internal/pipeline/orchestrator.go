// Package pipeline turns a lesson script into a narrated, lip-synced
// avatar video through the speech and avatar providers.
package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"luma/internal/models"
	"luma/internal/pkg/errors"
	"luma/internal/pkg/ids"
	"luma/internal/pkg/logger"
	"luma/internal/ports"
	"luma/internal/providers/avatar"
	"luma/internal/providers/speech"
)

// DefaultDurationSeconds is reported when neither the narration nor
// the render provider yields a usable duration.
const DefaultDurationSeconds = 60

// Deps are the orchestrator's collaborators. Sync makes Start run the
// workflow inline instead of in a goroutine; tests use it to observe
// terminal states without polling.
type Deps struct {
	Store     JobStore
	Lessons   LessonSource
	Assets    AssetResolver
	Speech    speech.Client
	Avatar    avatar.Client
	SP        ports.StorageProvider
	Artifacts ArtifactRegistry
	Log       *logger.Logger
	Poll      avatar.PollConfig
	Sleep     avatar.SleepFunc
	Sync      bool
}

// Orchestrator owns the video generation workflow. Job state moves
// generating -> completed | failed; callers observe progress by
// polling the job record.
type Orchestrator struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps) *Orchestrator {
	if deps.Poll.MaxAttempts == 0 {
		deps.Poll = avatar.DefaultPollConfig()
	}
	if deps.Sleep == nil {
		deps.Sleep = avatar.SleepContext
	}
	return &Orchestrator{
		deps: deps,
		log:  deps.Log.WithComponent("pipeline"),
	}
}

// StartParams identify what to generate and with which assets.
type StartParams struct {
	LessonID      string
	OwnerID       string
	AvatarAssetID string
	VoiceAssetID  string
	// Voice is an optional provider voice selector for narration.
	Voice string
}

// Start validates the request, creates a job record in "generating"
// and kicks off the workflow. It returns as soon as the record exists;
// the video arrives asynchronously.
func (o *Orchestrator) Start(ctx context.Context, p StartParams) (*models.VideoJob, error) {
	lesson, err := o.deps.Lessons.Get(ctx, p.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Script == "" {
		return nil, errors.Validation("lesson has no script to narrate")
	}
	if p.AvatarAssetID == "" {
		return nil, errors.Validation("avatar_asset_id is required")
	}

	avatarURL, err := o.deps.Assets.ResolveURL(ctx, p.AvatarAssetID)
	if err != nil {
		return nil, err
	}

	// The voice selector is persisted on the job so a regenerate
	// narrates with the same voice. A voice asset reference doubles as
	// a selector: the speech client resolves it against the provider's
	// catalog and falls back to the default voice if unknown.
	voice := p.Voice
	if voice == "" {
		voice = p.VoiceAssetID
	}

	job := &models.VideoJob{
		ID:            ids.New("vid"),
		LessonID:      lesson.ID,
		OwnerID:       p.OwnerID,
		AvatarAssetID: p.AvatarAssetID,
		VoiceAssetID:  p.VoiceAssetID,
		Voice:         voice,
		Status:        models.VideoStatusGenerating,
	}
	if err := o.deps.Store.Create(ctx, job); err != nil {
		return nil, err
	}

	o.dispatch(job.ID, lesson.ID, lesson.Script, avatarURL, voice)
	return job, nil
}

// Regenerate re-runs a finished (or stuck) job with its stored lesson
// and asset references, clearing previous results first. Concurrent
// regenerates of the same job are last-write-wins on the job record.
func (o *Orchestrator) Regenerate(ctx context.Context, videoID string) (*models.VideoJob, error) {
	job, err := o.deps.Store.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !job.Terminal() {
		// Known race: the in-flight workflow is not cancelled, updates
		// are last-write-wins on the record.
		o.log.WithJobID(job.ID).Warn("regenerating a job that is still generating")
	}
	lesson, err := o.deps.Lessons.Get(ctx, job.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Script == "" {
		return nil, errors.Validation("lesson has no script to narrate")
	}
	avatarURL, err := o.deps.Assets.ResolveURL(ctx, job.AvatarAssetID)
	if err != nil {
		return nil, err
	}

	if err := o.deps.Store.ResetGenerating(ctx, job.ID); err != nil {
		return nil, err
	}
	job.Status = models.VideoStatusGenerating
	job.VideoURL = ""
	job.AudioURL = ""
	job.DurationSeconds = 0

	o.dispatch(job.ID, lesson.ID, lesson.Script, avatarURL, job.Voice)
	return job, nil
}

// GetStatus returns the current job record.
func (o *Orchestrator) GetStatus(ctx context.Context, videoID string) (*models.VideoJob, error) {
	return o.deps.Store.Get(ctx, videoID)
}

// CheckProviderHealth reports whether the avatar provider is reachable
// and accepting our credentials.
func (o *Orchestrator) CheckProviderHealth(ctx context.Context) bool {
	if err := o.deps.Avatar.Health(ctx); err != nil {
		o.log.Warn("avatar provider health check failed", "error", err.Error())
		return false
	}
	return true
}

// CleanupTempArtifacts synchronously deletes every tracked orphaned
// object and returns how many were removed.
func (o *Orchestrator) CleanupTempArtifacts(ctx context.Context) (int, error) {
	keys, err := o.deps.Artifacts.Drain(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, key := range keys {
		if err := o.deps.SP.DeleteObject(ctx, key); err != nil {
			o.log.Warn("artifact delete failed, re-queueing",
				"object_key", key,
				"error", err.Error(),
			)
			if trackErr := o.deps.Artifacts.Track(ctx, key); trackErr != nil {
				o.log.Error("artifact re-queue failed, key lost",
					"object_key", key,
					"error", trackErr.Error(),
				)
			}
			continue
		}
		deleted++
	}
	return deleted, nil
}

// dispatch runs the workflow inline in Sync mode, otherwise in a
// goroutine detached from the request context.
func (o *Orchestrator) dispatch(jobID, lessonID, script, avatarURL, voice string) {
	if o.deps.Sync {
		o.runWorkflow(jobID, lessonID, script, avatarURL, voice)
		return
	}
	go o.runWorkflow(jobID, lessonID, script, avatarURL, voice)
}

// runWorkflow drives one job to a terminal state. It uses a fresh
// context so an aborted HTTP request does not kill a render in flight,
// and it never lets a panic leave the job stuck in "generating".
func (o *Orchestrator) runWorkflow(jobID, lessonID, script, avatarURL, voice string) {
	ctx := context.Background()
	log := o.log.WithJobID(jobID).WithLessonID(lessonID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("workflow panicked", "panic", fmt.Sprint(r))
			o.markFailed(ctx, jobID, "")
		}
	}()

	res, narrationKey, err := o.generate(ctx, jobID, script, avatarURL, voice, log)
	if err != nil {
		log.WithError(err).Error("video generation failed")
		o.markFailed(ctx, jobID, narrationKey)
		return
	}

	if err := o.deps.Store.SetCompleted(ctx, jobID, res.videoURL, res.audioURL, res.durationSeconds); err != nil {
		log.WithError(err).Error("failed to persist completed job")
		return
	}
	log.Info("video generated",
		"video_url", res.videoURL,
		"duration_seconds", res.durationSeconds,
	)
}

type result struct {
	videoURL        string
	audioURL        string
	durationSeconds int
}

// generate produces the video: narrate the script, upload the
// narration, render the avatar against it, and wait for the result.
// When narration cannot be produced or stored it degrades to a
// text-driven render so the provider narrates itself.
func (o *Orchestrator) generate(ctx context.Context, jobID, script, avatarURL, voice string, log *logger.Logger) (*result, string, error) {
	var (
		renderScript  = avatar.TextScript(script, voice)
		narrationKey  string
		narrationURL  string
		narrationSecs int
	)

	syn, err := o.deps.Speech.Synthesize(ctx, &speech.Request{Text: script, Voice: voice})
	if err != nil {
		log.WithError(err).Warn("narration synthesis failed, falling back to text script")
	} else {
		key := "videos/" + jobID + "/narration.wav"
		out, putErr := o.deps.SP.PutObject(ctx, ports.PutObjectInput{
			ObjectKey:   key,
			ContentType: syn.ContentType,
			Reader:      bytes.NewReader(syn.Audio),
			Size:        int64(len(syn.Audio)),
		})
		if putErr != nil {
			log.WithError(putErr).Warn("narration upload failed, falling back to text script")
		} else {
			narrationKey = out.ObjectKey
			narrationURL = out.URL
			narrationSecs = syn.DurationSeconds
			renderScript = avatar.AudioScript(narrationURL)
		}
	}

	req := &avatar.RenderRequest{
		SourceImageURL: avatarURL,
		Script:         renderScript,
		Options:        &avatar.Options{ResultFormat: "mp4"},
	}
	renderID, err := avatar.SubmitWithFallback(ctx, o.deps.Avatar, req, log, o.deps.Sleep)
	if err != nil {
		return nil, narrationKey, err
	}
	log.Info("render submitted", "render_id", renderID)

	st, err := avatar.WaitForRender(ctx, o.deps.Avatar, renderID, o.deps.Poll, log)
	if err != nil {
		return nil, narrationKey, err
	}
	if st.State != avatar.StateDone {
		return nil, narrationKey, errors.Newf(errors.CodeInternal,
			"render finished in state %s: %s", st.State, st.ErrorDetail)
	}
	if st.ResultURL == "" {
		return nil, narrationKey, errors.Internal("render finished without a result URL")
	}

	res := &result{videoURL: st.ResultURL}

	// Audio URL: the standalone narration when one exists, otherwise
	// the video itself carries the only audio track.
	if narrationURL != "" {
		res.audioURL = narrationURL
	} else {
		res.audioURL = st.ResultURL
	}

	// Duration: narration length when known, then the provider's
	// figure, then a fixed fallback.
	switch {
	case narrationSecs > 0:
		res.durationSeconds = narrationSecs
	case st.Duration > 0:
		res.durationSeconds = int(st.Duration + 0.5)
	default:
		res.durationSeconds = DefaultDurationSeconds
	}
	return res, narrationKey, nil
}

// markFailed finalizes a failed job and queues its orphaned narration
// for cleanup.
func (o *Orchestrator) markFailed(ctx context.Context, jobID, narrationKey string) {
	log := o.log.WithJobID(jobID)
	if err := o.deps.Store.SetFailed(ctx, jobID); err != nil {
		log.WithError(err).Error("failed to persist failed job")
	}
	if narrationKey != "" {
		if err := o.deps.Artifacts.Track(ctx, narrationKey); err != nil {
			log.WithError(err).Warn("failed to track orphaned narration")
		}
	}
}
