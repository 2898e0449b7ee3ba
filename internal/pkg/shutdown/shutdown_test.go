package shutdown

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"luma/internal/pkg/logger"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:  "error",
		Format: "json",
		Output: io.Discard,
	})
}

func TestNewManager(t *testing.T) {
	log := quietLogger()

	t.Run("zero timeout uses default", func(t *testing.T) {
		mgr := NewManager(log, 0)
		if mgr == nil {
			t.Fatal("expected manager to be non-nil")
		}
		if mgr.timeout != 30*time.Second {
			t.Errorf("expected 30s default timeout, got %v", mgr.timeout)
		}
	})

	t.Run("custom timeout", func(t *testing.T) {
		mgr := NewManager(log, 10*time.Second)
		if mgr.timeout != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", mgr.timeout)
		}
	})
}

func TestRegister(t *testing.T) {
	mgr := NewManager(quietLogger(), 5*time.Second)

	mgr.Register("postgres-pool", func(ctx context.Context) error { return nil })
	mgr.Register("redis", func(ctx context.Context) error { return nil })

	if len(mgr.handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(mgr.handlers))
	}
	if mgr.handlers[0].Name != "postgres-pool" {
		t.Errorf("expected handler name 'postgres-pool', got %s", mgr.handlers[0].Name)
	}
}

func TestRegisterSimple(t *testing.T) {
	mgr := NewManager(quietLogger(), 5*time.Second)

	var closed atomic.Bool
	mgr.RegisterSimple("redis", func() {
		closed.Store(true)
	})

	mgr.Shutdown()

	if !closed.Load() {
		t.Error("expected redis close to run on shutdown")
	}
}

func TestShutdownRunsEveryHandler(t *testing.T) {
	mgr := NewManager(quietLogger(), 5*time.Second)

	var (
		mu      sync.Mutex
		cleaned []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			cleaned = append(cleaned, name)
			mu.Unlock()
			return nil
		}
	}

	// Registered in startup order; shutdown starts them in reverse so the
	// HTTP server drains before its stores go away.
	mgr.Register("postgres-pool", record("postgres-pool"))
	mgr.Register("redis", record("redis"))
	mgr.Register("http-server", record("http-server"))

	mgr.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	if len(cleaned) != 3 {
		t.Errorf("expected all 3 cleanups to run, got %v", cleaned)
	}
}

func TestShutdownSurvivesHandlerError(t *testing.T) {
	mgr := NewManager(quietLogger(), 5*time.Second)

	var after atomic.Bool
	mgr.Register("http-server", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})
	mgr.Register("postgres-pool", func(ctx context.Context) error {
		return context.DeadlineExceeded
	})

	mgr.Shutdown()

	if !after.Load() {
		t.Error("a failing cleanup must not prevent the others from running")
	}
	select {
	case <-mgr.Done():
	case <-time.After(time.Second):
		t.Error("expected done channel to close despite handler error")
	}
}

func TestDone(t *testing.T) {
	mgr := NewManager(quietLogger(), 5*time.Second)

	select {
	case <-mgr.Done():
		t.Error("done channel must stay open until shutdown")
	default:
	}

	mgr.Shutdown()

	select {
	case <-mgr.Done():
	case <-time.After(time.Second):
		t.Error("expected done channel to close after shutdown")
	}
}

func TestContext(t *testing.T) {
	mgr := NewManager(quietLogger(), 5*time.Second)

	ctx := mgr.Context()
	select {
	case <-ctx.Done():
		t.Error("context must stay live until shutdown")
	default:
	}

	mgr.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("expected context to cancel after shutdown")
	}
}

func TestShutdownTimeout(t *testing.T) {
	mgr := NewManager(quietLogger(), 100*time.Millisecond)

	// A cleanup that never finishes on its own, like an HTTP server with
	// a wedged connection.
	mgr.Register("http-server", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	mgr.Shutdown()
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Errorf("shutdown took too long: %v", elapsed)
	}
}

func TestConcurrentHandlers(t *testing.T) {
	mgr := NewManager(quietLogger(), 5*time.Second)

	var counter atomic.Int32
	for i := 0; i < 10; i++ {
		mgr.Register("worker", func(ctx context.Context) error {
			counter.Add(1)
			time.Sleep(10 * time.Millisecond)
			return nil
		})
	}

	mgr.Shutdown()
	<-mgr.Done()

	// Shutdown waits for the group before closing done, so every handler
	// has run by now.
	if counter.Load() != 10 {
		t.Errorf("expected 10 handlers to run, got %d", counter.Load())
	}
}
