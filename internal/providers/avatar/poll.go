package avatar

import (
	"context"
	"time"

	"luma/internal/pkg/errors"
	"luma/internal/pkg/logger"
)

// PollConfig bounds how long WaitForRender watches a render.
type PollConfig struct {
	// WarmUp is slept once before the first poll; renders are never
	// ready instantly.
	WarmUp time.Duration
	// Interval separates consecutive polls.
	Interval time.Duration
	// MaxAttempts caps the number of polls before giving up.
	MaxAttempts int
	// Sleep overrides real waiting in tests.
	Sleep SleepFunc
}

// DefaultPollConfig bounds a render watch at five minutes.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		WarmUp:      3 * time.Second,
		Interval:    5 * time.Second,
		MaxAttempts: 60,
	}
}

// WaitForRender polls until the render reaches a terminal state or the
// attempt budget runs out. Individual poll errors are logged and
// consume an attempt but do not abort the wait; the provider often
// returns spurious errors while a render is queued.
func WaitForRender(ctx context.Context, c Client, renderID string, cfg PollConfig, log *logger.Logger) (*RenderStatus, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 60
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	if cfg.WarmUp > 0 {
		sleep(ctx, cfg.WarmUp)
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, errors.Timeout("render wait")
		}

		st, err := c.GetRender(ctx, renderID)
		switch {
		case err != nil:
			log.Warn("render poll failed",
				"render_id", renderID,
				"attempt", attempt,
				"error", err.Error(),
			)
		case st.Terminal():
			return st, nil
		default:
			log.Debug("render in progress",
				"render_id", renderID,
				"state", st.State,
				"attempt", attempt,
			)
		}

		if attempt < cfg.MaxAttempts {
			sleep(ctx, cfg.Interval)
		}
	}
	return nil, errors.Timeout("render " + renderID)
}
