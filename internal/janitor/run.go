// Package janitor deletes orphaned temporary artifacts recorded by
// failed video jobs.
package janitor

import (
	"context"
	"time"

	"luma/internal/artifacts"
	"luma/internal/pkg/logger"
	"luma/internal/ports"
)

// Deps are the janitor's collaborators.
type Deps struct {
	Registry *artifacts.Registry
	SP       ports.StorageProvider
	Log      *logger.Logger
}

const waitTimeout = 5 * time.Second

// Run blocks on the artifact registry and deletes each key as it
// arrives, until ctx is cancelled. Deletion failures are re-queued so
// a flaky storage backend does not lose keys.
func Run(ctx context.Context, deps Deps) {
	log := deps.Log.WithComponent("janitor")
	log.Info("janitor started")

	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stopped")
			return
		default:
		}

		key, err := deps.Registry.Next(ctx, waitTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("janitor stopped")
				return
			}
			log.Warn("artifact wait failed", "error", err.Error())
			time.Sleep(waitTimeout)
			continue
		}
		if key == "" {
			continue
		}

		if err := deps.SP.DeleteObject(ctx, key); err != nil {
			log.Warn("artifact delete failed, re-queueing",
				"object_key", key,
				"error", err.Error(),
			)
			if trackErr := deps.Registry.Track(ctx, key); trackErr != nil {
				log.Error("artifact re-queue failed, key lost",
					"object_key", key,
					"error", trackErr.Error(),
				)
			}
			time.Sleep(waitTimeout)
			continue
		}
		log.Info("orphaned artifact deleted", "object_key", key)
	}
}
