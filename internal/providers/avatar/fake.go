package avatar

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is an in-process provider for local development and
// tests. Renders complete immediately.
type FakeClient struct {
	// ResultURL is returned for every finished render. Defaults to a
	// placeholder clip URL.
	ResultURL string
	// Duration reported for finished renders, in seconds.
	Duration float64

	mu      sync.Mutex
	nextID  int
	renders map[string]*RenderRequest
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		ResultURL: "https://example.com/fake-render.mp4",
		Duration:  12,
		renders:   make(map[string]*RenderRequest),
	}
}

func (f *FakeClient) CreateRender(_ context.Context, req *RenderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("fake-render-%d", f.nextID)
	cp := *req
	f.renders[id] = &cp
	return id, nil
}

func (f *FakeClient) GetRender(_ context.Context, renderID string) (*RenderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.renders[renderID]; !ok {
		return &RenderStatus{ID: renderID, State: StateError, ErrorDetail: "unknown render"}, nil
	}
	return &RenderStatus{
		ID:        renderID,
		State:     StateDone,
		ResultURL: f.ResultURL,
		Duration:  f.Duration,
	}, nil
}

func (f *FakeClient) Health(context.Context) error { return nil }
