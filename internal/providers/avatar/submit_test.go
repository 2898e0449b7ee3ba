package avatar

import (
	"context"
	"io"
	"testing"
	"time"

	"luma/internal/pkg/errors"
	"luma/internal/pkg/logger"
)

// scriptedClient returns one canned response per CreateRender call and
// records the requests it saw.
type scriptedClient struct {
	responses []error
	ids       []string
	seen      []*RenderRequest
}

func (s *scriptedClient) CreateRender(_ context.Context, req *RenderRequest) (string, error) {
	cp := *req
	s.seen = append(s.seen, &cp)
	i := len(s.seen) - 1
	if i < len(s.responses) && s.responses[i] != nil {
		return "", s.responses[i]
	}
	if i < len(s.ids) {
		return s.ids[i], nil
	}
	return "render-ok", nil
}

func (s *scriptedClient) GetRender(context.Context, string) (*RenderStatus, error) {
	return nil, errors.Internal("not scripted")
}

func (s *scriptedClient) Health(context.Context) error { return nil }

func noSleep(context.Context, time.Duration) {}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard, ServiceName: "test"})
}

func audioRequest() *RenderRequest {
	pad := 0.5
	return &RenderRequest{
		SourceImageURL: "https://cdn.example.com/avatar.png",
		Script:         AudioScript("https://cdn.example.com/narration.wav"),
		Options:        &Options{ResultFormat: "mp4", PadAudio: &pad},
	}
}

func TestSubmitFirstAttemptSucceeds(t *testing.T) {
	client := &scriptedClient{ids: []string{"render-1"}}

	id, err := SubmitWithFallback(context.Background(), client, audioRequest(), testLogger(), noSleep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "render-1" {
		t.Errorf("expected render-1, got %s", id)
	}
	if len(client.seen) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(client.seen))
	}
	if client.seen[0].Options == nil || client.seen[0].Options.PadAudio == nil {
		t.Error("first attempt should carry the full options")
	}
}

func TestSubmitDegradesOptionsThenScript(t *testing.T) {
	client := &scriptedClient{
		responses: []error{
			errors.Unavailable("avatar provider"),
			errors.Unavailable("avatar provider"),
			errors.Unavailable("avatar provider"),
			nil,
		},
		ids: []string{"", "", "", "render-4"},
	}

	id, err := SubmitWithFallback(context.Background(), client, audioRequest(), testLogger(), noSleep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "render-4" {
		t.Errorf("expected render-4, got %s", id)
	}
	if len(client.seen) != 4 {
		t.Fatalf("expected 4 submissions, got %d", len(client.seen))
	}

	// Step 2 keeps only the result format.
	if client.seen[1].Options == nil || client.seen[1].Options.PadAudio != nil {
		t.Error("second attempt should reduce options to result format")
	}
	if client.seen[1].Options.ResultFormat != "mp4" {
		t.Errorf("second attempt lost result format: %+v", client.seen[1].Options)
	}
	// Step 3 drops options entirely.
	if client.seen[2].Options != nil {
		t.Error("third attempt should carry no options")
	}
	if client.seen[2].Script.Type != ScriptAudio {
		t.Error("third attempt should still use the audio script")
	}
	// Step 4 falls back to a text placeholder.
	if client.seen[3].Script.Type != ScriptText {
		t.Error("fourth attempt should use a text script")
	}
	if client.seen[3].Script.Input == "" {
		t.Error("fourth attempt text script has no input")
	}
}

func TestSubmitTextScriptHasNoPlaceholderStep(t *testing.T) {
	client := &scriptedClient{
		responses: []error{
			errors.Unavailable("avatar provider"),
			errors.Unavailable("avatar provider"),
			errors.Unavailable("avatar provider"),
		},
	}
	req := &RenderRequest{
		SourceImageURL: "https://cdn.example.com/avatar.png",
		Script:         TextScript("Welcome to the lesson.", ""),
		Options:        &Options{ResultFormat: "mp4"},
	}

	_, err := SubmitWithFallback(context.Background(), client, req, testLogger(), noSleep)
	if err == nil {
		t.Fatal("expected error after exhausting the ladder")
	}
	if len(client.seen) != 3 {
		t.Errorf("text scripts get 3 attempts, got %d", len(client.seen))
	}
}

func TestSubmitStopsOnAuthError(t *testing.T) {
	client := &scriptedClient{
		responses: []error{errors.Unauthorized("provider status 401")},
	}

	_, err := SubmitWithFallback(context.Background(), client, audioRequest(), testLogger(), noSleep)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.GetCode(err) != errors.CodeUnauthorized {
		t.Errorf("expected unauthorized code, got %s", errors.GetCode(err))
	}
	if len(client.seen) != 1 {
		t.Errorf("auth errors must not be retried, got %d attempts", len(client.seen))
	}
}

func TestSubmitStopsOnQuotaError(t *testing.T) {
	client := &scriptedClient{
		responses: []error{errors.ResourceExhausted("provider status 402")},
	}

	_, err := SubmitWithFallback(context.Background(), client, audioRequest(), testLogger(), noSleep)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.GetCode(err) != errors.CodeResourceExhaust {
		t.Errorf("expected resource exhausted code, got %s", errors.GetCode(err))
	}
	if len(client.seen) != 1 {
		t.Errorf("quota errors must not be retried, got %d attempts", len(client.seen))
	}
}

func TestSubmitStopsOnProviderValidationError(t *testing.T) {
	client := &scriptedClient{
		responses: []error{errors.Validation("provider status 400: bad payload")},
	}

	_, err := SubmitWithFallback(context.Background(), client, audioRequest(), testLogger(), noSleep)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsValidation(err) {
		t.Errorf("expected validation code, got %s", errors.GetCode(err))
	}
	if len(client.seen) != 1 {
		t.Errorf("rejected payloads must not be degraded, got %d attempts", len(client.seen))
	}
}

func TestSubmitInvalidRequestSkipsNetwork(t *testing.T) {
	client := &scriptedClient{}
	req := &RenderRequest{Script: AudioScript("https://cdn.example.com/narration.wav")}

	_, err := SubmitWithFallback(context.Background(), client, req, testLogger(), noSleep)
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(client.seen) != 0 {
		t.Errorf("invalid requests must not reach the provider, got %d calls", len(client.seen))
	}
}

func TestSubmitDoesNotMutateRequest(t *testing.T) {
	client := &scriptedClient{
		responses: []error{
			errors.Unavailable("avatar provider"),
			errors.Unavailable("avatar provider"),
			errors.Unavailable("avatar provider"),
			nil,
		},
	}
	req := audioRequest()

	if _, err := SubmitWithFallback(context.Background(), client, req, testLogger(), noSleep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Script.Type != ScriptAudio {
		t.Error("caller's script was mutated")
	}
	if req.Options == nil || req.Options.PadAudio == nil {
		t.Error("caller's options were mutated")
	}
}
