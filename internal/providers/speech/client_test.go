package speech

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"luma/internal/pkg/errors"
)

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t ", 0},
		{"single word rounds up to a second", "hello", 1},
		{"exactly one minute of words", strings.Repeat("word ", 150), 60},
		{"partial minute rounds up", strings.Repeat("word ", 151), 61},
		{"half minute", strings.Repeat("word ", 75), 30},
		{"two and a half words per second", strings.Repeat("word ", 5), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateDuration(tt.text); got != tt.want {
				t.Errorf("EstimateDuration(%d words) = %d, want %d",
					len(strings.Fields(tt.text)), got, tt.want)
			}
		})
	}
}

func TestFakeClientSynthesize(t *testing.T) {
	client := NewFakeClient()
	text := strings.Repeat("word ", 150) // one minute

	syn, err := client.Synthesize(context.Background(), &Request{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if syn.ContentType != "audio/wav" {
		t.Errorf("expected audio/wav, got %s", syn.ContentType)
	}
	if syn.DurationSeconds != 60 {
		t.Errorf("expected 60s duration, got %d", syn.DurationSeconds)
	}
	if !syn.Estimated {
		t.Error("fake synthesis should report an estimated duration")
	}
	if !bytes.HasPrefix(syn.Audio, []byte("RIFF")) {
		t.Error("audio is not a WAV file")
	}
	wantLen := 44 + 60*fakeSampleRate
	if len(syn.Audio) != wantLen {
		t.Errorf("expected %d bytes of audio, got %d", wantLen, len(syn.Audio))
	}
}

func TestFakeClientRejectsEmptyText(t *testing.T) {
	client := NewFakeClient()

	_, err := client.Synthesize(context.Background(), &Request{Text: "  "})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFakeClientVoices(t *testing.T) {
	client := NewFakeClient()

	voices, err := client.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != DefaultVoiceID {
		t.Errorf("expected the default voice, got %+v", voices)
	}
}

func TestDurationFromHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		text      string
		want      int
		estimated bool
	}{
		{"provider reported", "42.3", "a few words here", 42, false},
		{"provider reported rounds", "41.7", "a few words here", 42, false},
		{"missing header estimates", "", strings.Repeat("word ", 150), 60, true},
		{"garbage header estimates", "n/a", strings.Repeat("word ", 150), 60, true},
		{"zero header estimates", "0", "hello there", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, estimated := durationFromHeader(tt.header, tt.text)
			if got != tt.want || estimated != tt.estimated {
				t.Errorf("durationFromHeader(%q) = (%d, %v), want (%d, %v)",
					tt.header, got, estimated, tt.want, tt.estimated)
			}
		})
	}
}
