// Package avatar talks to the talking-head render provider: submit a
// render of a source image driven by an audio or text script, then poll
// until the render reaches a terminal state.
package avatar

import (
	"strings"

	"luma/internal/pkg/errors"
)

// ScriptType selects which script variant drives the render.
type ScriptType string

const (
	ScriptAudio ScriptType = "audio"
	ScriptText  ScriptType = "text"
)

// Script drives the avatar's lip movement. Exactly one variant is
// populated: an audio script carries a narration URL, a text script
// carries the raw text plus an optional provider voice id.
type Script struct {
	Type     ScriptType `json:"type"`
	AudioURL string     `json:"audio_url,omitempty"`
	Input    string     `json:"input,omitempty"`
	VoiceID  string     `json:"voice_id,omitempty"`
}

// AudioScript builds a script driven by a pre-rendered narration file.
func AudioScript(audioURL string) Script {
	return Script{Type: ScriptAudio, AudioURL: audioURL}
}

// TextScript builds a script the provider narrates itself.
func TextScript(input, voiceID string) Script {
	return Script{Type: ScriptText, Input: input, VoiceID: voiceID}
}

// Options are optional render tuning knobs. Some provider plans reject
// some of them, which is why submission strips them progressively.
type Options struct {
	ResultFormat string   `json:"result_format,omitempty"`
	PadAudio     *float64 `json:"pad_audio,omitempty"`
	Fluent       *bool    `json:"fluent,omitempty"`
}

// RenderRequest is one submission to the provider.
type RenderRequest struct {
	SourceImageURL string   `json:"source_url"`
	Script         Script   `json:"script"`
	Options        *Options `json:"config,omitempty"`
}

// Validate rejects structurally invalid requests before any network
// call is made.
func (r *RenderRequest) Validate() error {
	if strings.TrimSpace(r.SourceImageURL) == "" {
		return errors.Validation("source image URL is required")
	}
	switch r.Script.Type {
	case ScriptAudio:
		if strings.TrimSpace(r.Script.AudioURL) == "" {
			return errors.Validation("audio script requires an audio URL")
		}
	case ScriptText:
		if strings.TrimSpace(r.Script.Input) == "" {
			return errors.Validation("text script requires input text")
		}
	default:
		return errors.Validation("script type must be audio or text")
	}
	return nil
}

// Render states reported by the provider.
const (
	StateCreated  = "created"
	StateStarted  = "started"
	StateDone     = "done"
	StateError    = "error"
	StateRejected = "rejected"
)

// RenderStatus is the provider's view of a render in flight.
type RenderStatus struct {
	ID          string  `json:"id"`
	State       string  `json:"status"`
	ResultURL   string  `json:"result_url,omitempty"`
	ErrorDetail string  `json:"error,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// Terminal reports whether the render has finished, successfully or not.
func (s *RenderStatus) Terminal() bool {
	return s.State == StateDone || s.State == StateError || s.State == StateRejected
}
