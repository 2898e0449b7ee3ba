// Package artifacts tracks temporary storage objects left behind by
// failed video jobs so they can be deleted later.
package artifacts

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"luma/internal/pkg/errors"
)

const listKey = "luma:temp_artifacts"

// Registry is a redis-backed list of orphaned object keys. Producers
// push keys when a job fails after uploading narration; the janitor
// and the cleanup endpoint drain them.
type Registry struct {
	rdb *redis.Client
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

// Track records an orphaned object key for later deletion.
func (r *Registry) Track(ctx context.Context, objectKey string) error {
	if objectKey == "" {
		return nil
	}
	if err := r.rdb.LPush(ctx, listKey, objectKey).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "artifacts.track", "redis push failed")
	}
	return nil
}

// Drain pops every pending key. An empty list returns an empty slice.
func (r *Registry) Drain(ctx context.Context) ([]string, error) {
	var keys []string
	for {
		key, err := r.rdb.RPop(ctx, listKey).Result()
		if stderrors.Is(err, redis.Nil) {
			return keys, nil
		}
		if err != nil {
			return keys, errors.WrapWithCode(err, errors.CodeUnavailable, "artifacts.drain", "redis pop failed")
		}
		keys = append(keys, key)
	}
}

// Next blocks up to timeout waiting for one pending key. It returns
// ("", nil) when the wait times out with nothing queued.
func (r *Registry) Next(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := r.rdb.BRPop(ctx, timeout, listKey).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, "artifacts.next", "redis blocking pop failed")
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return "", errors.Internal("unexpected BRPOP reply shape")
	}
	return res[1], nil
}
