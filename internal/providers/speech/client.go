// Package speech synthesizes lesson narration through the
// text-to-speech provider.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"luma/internal/pkg/errors"
	"luma/internal/pkg/logger"
)

// DefaultVoiceID is used when a request names no voice or names one
// the provider does not know.
const DefaultVoiceID = "en-US-standard-1"

// Request is one synthesis job.
type Request struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// Synthesis is the produced narration. DurationSeconds is the
// provider-reported length when available, otherwise an estimate from
// the text (Estimated is then true).
type Synthesis struct {
	Audio           []byte
	ContentType     string
	DurationSeconds int
	Estimated       bool
}

// Voice is one entry from the provider's voice catalog.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is the text-to-speech surface the pipeline depends on.
type Client interface {
	Synthesize(ctx context.Context, req *Request) (*Synthesis, error)
	Voices(ctx context.Context) ([]Voice, error)
}

const wordsPerMinute = 150

// EstimateDuration approximates narration length from word count at a
// typical narration pace. Non-empty text never estimates to zero.
func EstimateDuration(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	secs := (words*60 + wordsPerMinute - 1) / wordsPerMinute
	if secs < 1 {
		secs = 1
	}
	return secs
}

// HTTPClient calls the provider's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Logger
}

func NewHTTPClient(baseURL, apiKey string, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log.WithComponent("speech_client"),
	}
}

// Synthesize renders narration audio for the request. Unknown voice
// selectors are replaced with the default voice rather than failing
// the whole job.
func (c *HTTPClient) Synthesize(ctx context.Context, req *Request) (*Synthesis, error) {
	const op = "speech.synthesize"

	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.Validation("synthesis text is required")
	}

	send := *req
	send.Voice = c.resolveVoice(ctx, req.Voice)

	body, err := json.Marshal(&send)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, op, "marshal synthesis request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, op, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, op, "provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, c.classify(op, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, op, "read audio stream")
	}
	if len(audio) == 0 {
		return nil, errors.Internal("provider returned empty audio")
	}

	out := &Synthesis{
		Audio:       audio,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if out.ContentType == "" {
		out.ContentType = "audio/wav"
	}
	out.DurationSeconds, out.Estimated = durationFromHeader(resp.Header.Get("X-Audio-Duration"), req.Text)
	return out, nil
}

// Voices lists the provider's voice catalog.
func (c *HTTPClient) Voices(ctx context.Context) ([]Voice, error) {
	const op = "speech.voices"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, op, "build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, op, "provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, c.classify(op, resp)
	}

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, op, "decode voice list")
	}
	return voices, nil
}

// resolveVoice maps a voice selector to one the provider accepts. A
// missing or unknown selector falls back to the default voice; catalog
// lookup failures do too, since a default-voice narration beats a
// failed job.
func (c *HTTPClient) resolveVoice(ctx context.Context, selector string) string {
	if selector == "" {
		return DefaultVoiceID
	}

	voices, err := c.Voices(ctx)
	if err != nil {
		c.log.Warn("voice catalog unavailable, using default voice",
			"selector", selector,
			"error", err.Error(),
		)
		return DefaultVoiceID
	}
	for _, v := range voices {
		if v.ID == selector {
			return selector
		}
	}
	c.log.Warn("unknown voice selector, using default voice", "selector", selector)
	return DefaultVoiceID
}

func (c *HTTPClient) classify(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	c.log.Warn("provider returned error status",
		"op", op,
		"status", resp.StatusCode,
		"body", strings.TrimSpace(string(b)),
	)

	msg := fmt.Sprintf("provider status %d", resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Unauthorized(msg)
	case resp.StatusCode == http.StatusPaymentRequired:
		return errors.ResourceExhausted(msg)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return errors.Validation(msg)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return errors.Unavailable("speech provider")
	default:
		return errors.Internal(msg)
	}
}

// durationFromHeader parses the provider-reported duration, falling
// back to a word-count estimate.
func durationFromHeader(header, text string) (int, bool) {
	if header != "" {
		var secs float64
		if _, err := fmt.Sscanf(header, "%f", &secs); err == nil && secs > 0 {
			return int(secs + 0.5), false
		}
	}
	return EstimateDuration(text), true
}
