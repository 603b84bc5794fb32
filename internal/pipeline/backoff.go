package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Delay is a randomized wait bounded by [Min, Max].
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// Backoff groups the pipeline's randomized delays so every sleep duration
// is defined in one place. Sleep and Rand can be swapped out for tests.
type Backoff struct {
	// PreRequest is slept before each attempt round to pace requests.
	PreRequest Delay
	// Blocked is slept after a 403 before the next round.
	Blocked Delay
	// Round is slept when a whole round fails without being blocked.
	Round Delay
	// Sleep waits out a duration; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration)
	// Rand picks durations; nil uses a time-seeded source.
	Rand *rand.Rand

	mu sync.Mutex
}

// DefaultBackoff returns the stock pacing profile for sequential runs.
func DefaultBackoff() *Backoff {
	return &Backoff{
		PreRequest: Delay{2 * time.Second, 6 * time.Second},
		Blocked:    Delay{5 * time.Second, 10 * time.Second},
		Round:      Delay{3 * time.Second, 7 * time.Second},
	}
}

// ConcurrentBackoff returns the pacing profile for worker-pool runs: the
// pre-request window shrinks to 1-3s because the per-host semaphore and
// rate limiter already space requests out.
func ConcurrentBackoff() *Backoff {
	return &Backoff{
		PreRequest: Delay{1 * time.Second, 3 * time.Second},
		Blocked:    Delay{5 * time.Second, 10 * time.Second},
		Round:      Delay{3 * time.Second, 7 * time.Second},
	}
}

func (b *Backoff) wait(ctx context.Context, d Delay) {
	if d.Max <= 0 {
		return
	}
	b.mu.Lock()
	if b.Rand == nil {
		b.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	dur := d.Min
	if span := d.Max - d.Min; span > 0 {
		dur += time.Duration(b.Rand.Int63n(int64(span)))
	}
	sleep := b.Sleep
	b.mu.Unlock()

	if sleep != nil {
		sleep(ctx, dur)
		return
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (b *Backoff) waitPreRequest(ctx context.Context) { b.wait(ctx, b.PreRequest) }
func (b *Backoff) waitBlocked(ctx context.Context)    { b.wait(ctx, b.Blocked) }
func (b *Backoff) waitRound(ctx context.Context)      { b.wait(ctx, b.Round) }
