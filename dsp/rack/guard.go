package rack

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// acquireRetry is the polling interval of [Guard.Acquire] when the caller's
// context can end.
const acquireRetry = 50 * time.Microsecond

// Guard protects the slot bindings. It has two acquisition modes with
// different blocking semantics: shared and non-blocking for the audio
// goroutine, exclusive and blocking for the control plane.
//
// When [Guard.Acquire] is called with a context that cannot end, shared
// attempts fail while it waits, so the audio goroutine cannot starve the
// writer. With a cancellable context Acquire polls instead and a pending
// writer does not block shared attempts.
type Guard struct {
	mu sync.RWMutex
}

// TryAcquireShared attempts a shared acquisition and never waits. It reports
// whether the guard was acquired; on success the caller must call
// [Guard.ReleaseShared].
func (g *Guard) TryAcquireShared() bool {
	return g.mu.TryRLock()
}

// ReleaseShared releases a shared acquisition.
func (g *Guard) ReleaseShared() {
	g.mu.RUnlock()
}

// Acquire takes the guard exclusively, waiting for the audio goroutine to
// finish its current block if needed. If ctx can be cancelled Acquire polls
// and returns [ErrFailedToAcquireLock] once ctx is done.
func (g *Guard) Acquire(ctx context.Context) error {
	if ctx.Done() == nil {
		g.mu.Lock()
		return nil
	}

	if g.mu.TryLock() {
		return nil
	}

	tick := time.NewTicker(acquireRetry)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrFailedToAcquireLock, ctx.Err())
		case <-tick.C:
			if g.mu.TryLock() {
				return nil
			}
		}
	}
}

// Release releases an exclusive acquisition.
func (g *Guard) Release() {
	g.mu.Unlock()
}
