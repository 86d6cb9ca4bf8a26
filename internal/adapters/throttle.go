package adapters

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Throttle enforces a per-provider minimum inter-call spacing and a
// concurrency cap, per spec.md §4.1/§5: "at most N concurrent calls, no two
// less than D apart." Callers that would exceed either bound wait; they
// never drop work.
type Throttle struct {
	mu       sync.Mutex
	minGap   time.Duration
	lastCall time.Time
	sem      chan struct{}
	now      func() time.Time
	sleep    func(time.Duration)
}

// NewThrottle builds a Throttle allowing at most maxConcurrent in-flight
// calls, with at least minGap between any two call starts.
func NewThrottle(maxConcurrent int, minGap time.Duration) *Throttle {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Throttle{
		minGap: minGap,
		sem:    make(chan struct{}, maxConcurrent),
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Acquire blocks until a concurrency slot and the spacing requirement are
// both satisfied, or ctx is done. The returned func must be called to
// release the slot once the call completes.
func (t *Throttle) Acquire(ctx context.Context) (func(), error) {
	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t.mu.Lock()
	wait := t.minGap - t.now().Sub(t.lastCall)
	if wait < 0 {
		wait = 0
	}
	t.lastCall = t.now().Add(wait)
	t.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			<-t.sem
			return nil, ctx.Err()
		}
	}

	return func() { <-t.sem }, nil
}

// Backoff computes capped exponential backoff with jitter for retry attempt
// (0-indexed): a delay in [d/2, d) where d = base<<attempt, capped at cap.
// It does not count or limit attempts; MaxAttempts is the separate bound.
func Backoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base << attempt // exponential
	if d > cap || d <= 0 {
		d = cap
	}
	half := int64(d) / 2
	var jitter time.Duration
	if half > 0 {
		jitter = time.Duration(rand.Int63n(half)) //nolint:gosec // jitter only, not security-sensitive
	}
	return d/2 + jitter
}

// MaxAttempts is the retry bound named in spec.md §4.1.
const MaxAttempts = 3
