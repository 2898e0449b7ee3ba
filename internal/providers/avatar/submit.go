package avatar

import (
	"context"
	"time"

	"luma/internal/pkg/errors"
	"luma/internal/pkg/logger"
)

// SleepFunc lets tests replace real waiting.
type SleepFunc func(ctx context.Context, d time.Duration)

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

const backoffUnit = 2 * time.Second

// SubmitWithFallback submits a render, degrading the request step by
// step when the provider rejects it:
//
//  1. the request as given
//  2. options reduced to the result format only
//  3. no options at all
//  4. for audio scripts only, a plain text script so at least a
//     placeholder render goes through
//
// Only transient provider failures move down the ladder, after an
// increasing backoff. Auth, quota and validation errors stop
// immediately since no reduced payload can fix them.
func SubmitWithFallback(ctx context.Context, c Client, req *RenderRequest, log *logger.Logger, sleep SleepFunc) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if sleep == nil {
		sleep = SleepContext
	}

	attempts := buildAttempts(req)

	var lastErr error
	for i, attempt := range attempts {
		id, err := c.CreateRender(ctx, attempt)
		if err == nil {
			if i > 0 {
				log.Warn("render accepted after fallback",
					"step", i+1,
					"script_type", string(attempt.Script.Type),
				)
			}
			return id, nil
		}
		if !errors.IsRetryable(err) {
			return "", err
		}
		lastErr = err
		if i < len(attempts)-1 {
			log.Warn("render submission rejected, degrading request",
				"step", i+1,
				"error", err.Error(),
			)
			sleep(ctx, time.Duration(i+1)*backoffUnit)
			if ctx.Err() != nil {
				return "", errors.Timeout("render submission")
			}
		}
	}
	return "", lastErr
}

// buildAttempts returns the degradation ladder for a request. The
// original request is never mutated.
func buildAttempts(req *RenderRequest) []*RenderRequest {
	full := *req

	reduced := *req
	if req.Options != nil {
		reduced.Options = &Options{ResultFormat: req.Options.ResultFormat}
	}

	bare := *req
	bare.Options = nil

	attempts := []*RenderRequest{&full, &reduced, &bare}

	if req.Script.Type == ScriptAudio {
		placeholder := *req
		placeholder.Options = nil
		placeholder.Script = TextScript("This lesson's narration is being prepared.", "")
		attempts = append(attempts, &placeholder)
	}
	return attempts
}
