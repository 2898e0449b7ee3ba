package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"luma/internal/models"
	"luma/internal/pkg/errors"
	"luma/internal/pkg/logger"
	"luma/internal/ports"
	"luma/internal/providers/avatar"
	"luma/internal/providers/speech"
)

// ---- in-memory fakes ----

type memStore struct {
	mu   sync.Mutex
	jobs map[string]*models.VideoJob
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*models.VideoJob)}
}

func (s *memStore) Create(_ context.Context, j *models.VideoJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.VideoJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("video job", id)
	}
	cp := *j
	return &cp, nil
}

func (s *memStore) SetCompleted(_ context.Context, id, videoURL, audioURL string, durationSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return errors.NotFound("video job", id)
	}
	j.Status = models.VideoStatusCompleted
	j.VideoURL = videoURL
	j.AudioURL = audioURL
	j.DurationSeconds = durationSeconds
	return nil
}

func (s *memStore) SetFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return errors.NotFound("video job", id)
	}
	j.Status = models.VideoStatusFailed
	j.VideoURL = ""
	j.AudioURL = ""
	j.DurationSeconds = 0
	return nil
}

func (s *memStore) ResetGenerating(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return errors.NotFound("video job", id)
	}
	j.Status = models.VideoStatusGenerating
	j.VideoURL = ""
	j.AudioURL = ""
	j.DurationSeconds = 0
	return nil
}

type memLessons struct {
	lessons map[string]*models.Lesson
}

func (m *memLessons) Get(_ context.Context, id string) (*models.Lesson, error) {
	l, ok := m.lessons[id]
	if !ok {
		return nil, errors.NotFound("lesson", id)
	}
	return l, nil
}

type memAssets struct {
	urls map[string]string
}

func (m *memAssets) ResolveURL(_ context.Context, id string) (string, error) {
	url, ok := m.urls[id]
	if !ok {
		return "", errors.NotFound("asset", id)
	}
	return url, nil
}

type memRegistry struct {
	mu   sync.Mutex
	keys []string
}

func (r *memRegistry) Track(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func (r *memRegistry) Drain(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.keys
	r.keys = nil
	return out, nil
}

type memStorage struct {
	mu      sync.Mutex
	puts    []string
	deletes []string
	putErr  error
}

func (m *memStorage) Provider() string { return "mem" }

func (m *memStorage) PutObject(_ context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return ports.PutObjectOutput{}, m.putErr
	}
	m.puts = append(m.puts, in.ObjectKey)
	return ports.PutObjectOutput{
		ObjectKey: in.ObjectKey,
		Size:      in.Size,
		URL:       "https://cdn.example.com/" + in.ObjectKey,
	}, nil
}

func (m *memStorage) GetObject(context.Context, string) (io.ReadCloser, string, int64, error) {
	return nil, "", 0, errors.Internal("not implemented")
}

func (m *memStorage) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	return nil
}

func (m *memStorage) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (m *memStorage) GetSignedURL(_ context.Context, key string, _ time.Duration) (ports.SignedURLOutput, error) {
	return ports.SignedURLOutput{URL: m.PublicURL(key)}, nil
}

// recordingSpeech delegates to the fake speech client and remembers the
// voice of every synthesis request.
type recordingSpeech struct {
	speech.Client
	mu     sync.Mutex
	voices []string
}

func (r *recordingSpeech) Synthesize(ctx context.Context, req *speech.Request) (*speech.Synthesis, error) {
	r.mu.Lock()
	r.voices = append(r.voices, req.Voice)
	r.mu.Unlock()
	return r.Client.Synthesize(ctx, req)
}

// failingSpeech always refuses to synthesize.
type failingSpeech struct{}

func (failingSpeech) Synthesize(context.Context, *speech.Request) (*speech.Synthesis, error) {
	return nil, errors.Unavailable("speech provider")
}

func (failingSpeech) Voices(context.Context) ([]speech.Voice, error) {
	return nil, errors.Unavailable("speech provider")
}

// recordingAvatar wraps the fake avatar client and remembers the last
// submitted request.
type recordingAvatar struct {
	*avatar.FakeClient
	mu   sync.Mutex
	last *avatar.RenderRequest
}

func (r *recordingAvatar) CreateRender(ctx context.Context, req *avatar.RenderRequest) (string, error) {
	r.mu.Lock()
	cp := *req
	r.last = &cp
	r.mu.Unlock()
	return r.FakeClient.CreateRender(ctx, req)
}

// rejectingAvatar accepts the submission but finishes every render in
// the rejected state.
type rejectingAvatar struct{}

func (rejectingAvatar) CreateRender(context.Context, *avatar.RenderRequest) (string, error) {
	return "render-rejected", nil
}

func (rejectingAvatar) GetRender(context.Context, string) (*avatar.RenderStatus, error) {
	return &avatar.RenderStatus{
		ID:          "render-rejected",
		State:       avatar.StateRejected,
		ErrorDetail: "face not detected",
	}, nil
}

func (rejectingAvatar) Health(context.Context) error { return nil }

// ---- fixtures ----

const lessonScript = "Welcome to the course. Today we cover the basics of photosynthesis in some detail."

type fixture struct {
	store    *memStore
	storage  *memStorage
	registry *memRegistry
	orch     *Orchestrator
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		storage:  &memStorage{},
		registry: &memRegistry{},
	}
	deps := Deps{
		Store: f.store,
		Lessons: &memLessons{lessons: map[string]*models.Lesson{
			"les_1": {ID: "les_1", Title: "Photosynthesis", Script: lessonScript},
			"les_2": {ID: "les_2", Title: "Empty"},
		}},
		Assets: &memAssets{urls: map[string]string{
			"ast_avatar": "https://cdn.example.com/assets/avatar.png",
		}},
		Speech:    speech.NewFakeClient(),
		Avatar:    avatar.NewFakeClient(),
		SP:        f.storage,
		Artifacts: f.registry,
		Log:       logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard, ServiceName: "test"}),
		Poll:      avatar.PollConfig{MaxAttempts: 5, Interval: 1, Sleep: func(context.Context, time.Duration) {}},
		Sleep:     func(context.Context, time.Duration) {},
		Sync:      true,
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.orch = New(deps)
	return f
}

func startParams() StartParams {
	return StartParams{LessonID: "les_1", OwnerID: "usr_1", AvatarAssetID: "ast_avatar"}
}

// ---- tests ----

func TestStartCompletesJob(t *testing.T) {
	f := newFixture(t, nil)

	job, err := f.orch.Start(context.Background(), startParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job record missing: %v", err)
	}
	if got.Status != models.VideoStatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.VideoURL == "" || got.AudioURL == "" {
		t.Errorf("completed job missing URLs: %+v", got)
	}
	if got.DurationSeconds <= 0 {
		t.Errorf("completed job has no duration: %d", got.DurationSeconds)
	}
	// Narration was uploaded under the job's prefix.
	if len(f.storage.puts) != 1 || !strings.HasPrefix(f.storage.puts[0], "videos/"+job.ID+"/") {
		t.Errorf("unexpected storage writes: %v", f.storage.puts)
	}
	// The narration is the audio URL, distinct from the video.
	if got.AudioURL == got.VideoURL {
		t.Error("audio URL should point at the uploaded narration")
	}
}

func TestStartDurationComesFromNarrationEstimate(t *testing.T) {
	f := newFixture(t, nil)

	job, err := f.orch.Start(context.Background(), startParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := f.store.Get(context.Background(), job.ID)
	want := speech.EstimateDuration(lessonScript)
	if got.DurationSeconds != want {
		t.Errorf("expected narration estimate %d, got %d", want, got.DurationSeconds)
	}
}

func TestStartUnknownLesson(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.Start(context.Background(), StartParams{LessonID: "les_missing", AvatarAssetID: "ast_avatar"})
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.store.jobs) != 0 {
		t.Error("no job record should exist for a rejected start")
	}
}

func TestStartUnknownAvatarAsset(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.Start(context.Background(), StartParams{LessonID: "les_1", AvatarAssetID: "ast_missing"})
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.store.jobs) != 0 {
		t.Error("no job record should exist for a rejected start")
	}
}

func TestStartEmptyScript(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.Start(context.Background(), StartParams{LessonID: "les_2", AvatarAssetID: "ast_avatar"})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSpeechFailureFallsBackToTextScript(t *testing.T) {
	rec := &recordingAvatar{FakeClient: avatar.NewFakeClient()}
	f := newFixture(t, func(d *Deps) {
		d.Speech = failingSpeech{}
		d.Avatar = rec
	})

	job, err := f.orch.Start(context.Background(), startParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := f.store.Get(context.Background(), job.ID)
	if got.Status != models.VideoStatusCompleted {
		t.Fatalf("expected completed despite speech failure, got %s", got.Status)
	}
	if rec.last == nil || rec.last.Script.Type != avatar.ScriptText {
		t.Error("render should have used a text script when narration failed")
	}
	if len(f.storage.puts) != 0 {
		t.Errorf("no narration should be uploaded, got %v", f.storage.puts)
	}
	// With no narration, the video carries the only audio.
	if got.AudioURL != got.VideoURL {
		t.Errorf("audio URL should equal video URL, got %s vs %s", got.AudioURL, got.VideoURL)
	}
}

func TestNarrationUploadFailureFallsBackToTextScript(t *testing.T) {
	rec := &recordingAvatar{FakeClient: avatar.NewFakeClient()}
	f := newFixture(t, func(d *Deps) {
		d.Avatar = rec
	})
	f.storage.putErr = errors.Unavailable("object store")

	job, err := f.orch.Start(context.Background(), startParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := f.store.Get(context.Background(), job.ID)
	if got.Status != models.VideoStatusCompleted {
		t.Fatalf("expected completed despite upload failure, got %s", got.Status)
	}
	if rec.last == nil || rec.last.Script.Type != avatar.ScriptText {
		t.Error("render should have used a text script when upload failed")
	}
}

func TestRejectedRenderFailsJob(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Avatar = rejectingAvatar{}
	})

	job, err := f.orch.Start(context.Background(), startParams())
	if err != nil {
		t.Fatalf("start itself should succeed: %v", err)
	}

	got, _ := f.store.Get(context.Background(), job.ID)
	if got.Status != models.VideoStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.VideoURL != "" || got.AudioURL != "" || got.DurationSeconds != 0 {
		t.Errorf("failed job must carry no results: %+v", got)
	}
	// The uploaded narration is now orphaned and tracked for cleanup.
	if len(f.registry.keys) != 1 || !strings.HasPrefix(f.registry.keys[0], "videos/"+job.ID+"/") {
		t.Errorf("orphaned narration not tracked: %v", f.registry.keys)
	}
}

func TestRegenerate(t *testing.T) {
	f := newFixture(t, nil)

	job, err := f.orch.Start(context.Background(), startParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	re, err := f.orch.Regenerate(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if re.ID != job.ID {
		t.Errorf("regenerate must reuse the job record, got %s", re.ID)
	}

	got, _ := f.store.Get(context.Background(), job.ID)
	if got.Status != models.VideoStatusCompleted {
		t.Fatalf("expected completed after regenerate, got %s", got.Status)
	}
	if got.VideoURL == "" {
		t.Error("regenerated job has no video URL")
	}
	if len(f.storage.puts) != 2 {
		t.Errorf("expected a fresh narration upload per run, got %v", f.storage.puts)
	}
}

func TestRegenerateKeepsVoice(t *testing.T) {
	rec := &recordingSpeech{Client: speech.NewFakeClient()}
	f := newFixture(t, func(d *Deps) {
		d.Speech = rec
	})

	p := startParams()
	p.Voice = "en-GB-warm-2"
	job, err := f.orch.Start(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Voice != "en-GB-warm-2" {
		t.Fatalf("voice selector not stored on the job: %q", job.Voice)
	}

	got, _ := f.store.Get(context.Background(), job.ID)
	if got.Voice != "en-GB-warm-2" {
		t.Fatalf("voice selector not persisted: %q", got.Voice)
	}

	if _, err := f.orch.Regenerate(context.Background(), job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"en-GB-warm-2", "en-GB-warm-2"}
	if len(rec.voices) != len(want) {
		t.Fatalf("expected %d synthesis calls, got %v", len(want), rec.voices)
	}
	for i, v := range want {
		if rec.voices[i] != v {
			t.Errorf("synthesis %d used voice %q, want %q", i, rec.voices[i], v)
		}
	}
}

func TestStartVoiceAssetActsAsSelector(t *testing.T) {
	rec := &recordingSpeech{Client: speech.NewFakeClient()}
	f := newFixture(t, func(d *Deps) {
		d.Speech = rec
	})

	p := startParams()
	p.VoiceAssetID = "ast_voice"
	job, err := f.orch.Start(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Voice != "ast_voice" {
		t.Fatalf("voice asset should back the selector, got %q", job.Voice)
	}
	if len(rec.voices) != 1 || rec.voices[0] != "ast_voice" {
		t.Errorf("synthesis did not see the voice asset selector: %v", rec.voices)
	}
}

func TestRegenerateUnknownJob(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.Regenerate(context.Background(), "vid_missing")
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCleanupTempArtifacts(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Avatar = rejectingAvatar{}
	})

	if _, err := f.orch.Start(context.Background(), startParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := f.orch.CleanupTempArtifacts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted artifact, got %d", n)
	}
	if len(f.storage.deletes) != 1 {
		t.Errorf("storage delete not issued: %v", f.storage.deletes)
	}

	// Second cleanup finds nothing.
	n, err = f.orch.CleanupTempArtifacts(context.Background())
	if err != nil || n != 0 {
		t.Errorf("expected empty cleanup, got n=%d err=%v", n, err)
	}
}

func TestCheckProviderHealth(t *testing.T) {
	f := newFixture(t, nil)
	if !f.orch.CheckProviderHealth(context.Background()) {
		t.Error("fake provider should be healthy")
	}

	f = newFixture(t, func(d *Deps) {
		d.Avatar = unhealthyAvatar{}
	})
	if f.orch.CheckProviderHealth(context.Background()) {
		t.Error("unreachable provider should report unhealthy")
	}
}

type unhealthyAvatar struct{}

func (unhealthyAvatar) CreateRender(context.Context, *avatar.RenderRequest) (string, error) {
	return "", errors.Unavailable("avatar provider")
}

func (unhealthyAvatar) GetRender(context.Context, string) (*avatar.RenderStatus, error) {
	return nil, errors.Unavailable("avatar provider")
}

func (unhealthyAvatar) Health(context.Context) error {
	return errors.Unavailable("avatar provider")
}
