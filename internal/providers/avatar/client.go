package avatar

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

// Client is the talking-head provider surface the pipeline depends on.
type Client interface {
	CreateRender(ctx context.Context, req *RenderRequest) (string, error)
	GetRender(ctx context.Context, renderID string) (*RenderStatus, error)
	Health(ctx context.Context) error
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
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.WithComponent("avatar_client"),
	}
}

// CreateRender submits one render request and returns the provider's
// render id. Plan or payload rejections surface as typed errors so the
// caller can decide whether a reduced retry makes sense.
func (c *HTTPClient) CreateRender(ctx context.Context, req *RenderRequest) (string, error) {
	const op = "avatar.create_render"

	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeInternal, op, "marshal render request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/renders", bytes.NewReader(body))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeInternal, op, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, op, "provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", c.classify(op, resp)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.WrapWithCode(err, errors.CodeInternal, op, "decode render response")
	}
	if out.ID == "" {
		return "", errors.Internal("provider returned no render id")
	}
	return out.ID, nil
}

// GetRender fetches the current status of a render.
func (c *HTTPClient) GetRender(ctx context.Context, renderID string) (*RenderStatus, error) {
	const op = "avatar.get_render"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/renders/"+renderID, nil)
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

	var st RenderStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, op, "decode status response")
	}
	return &st, nil
}

// Health probes the provider's credits endpoint, which exercises both
// reachability and authentication.
func (c *HTTPClient) Health(ctx context.Context) error {
	const op = "avatar.health"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/credits", nil)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, op, "build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, op, "provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.classify(op, resp)
	}
	return nil
}

// classify maps a non-2xx provider response to a typed error and logs a
// sanitized diagnostic snippet of the body.
func (c *HTTPClient) classify(op string, resp *http.Response) error {
	snippet := readSnippet(resp.Body)
	c.log.Warn("provider returned error status",
		"op", op,
		"status", resp.StatusCode,
		"body", snippet,
	)

	msg := fmt.Sprintf("provider status %d", resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Unauthorized(msg)
	case resp.StatusCode == http.StatusPaymentRequired:
		return errors.ResourceExhausted(msg)
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFound("render", "")
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return errors.Validation(msg + ": " + snippet)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return errors.Unavailable("avatar provider")
	default:
		return errors.Internal(msg)
	}
}

const maxSnippet = 512

// readSnippet captures a bounded, credential-free slice of a response
// body for diagnostics.
func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxSnippet))
	s := string(b)
	for _, word := range []string{"authorization", "api_key", "apikey", "bearer"} {
		if idx := strings.Index(strings.ToLower(s), word); idx >= 0 {
			s = s[:idx] + "[redacted]"
			break
		}
	}
	return strings.TrimSpace(s)
}
