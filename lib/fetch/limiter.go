package fetch

import (
	"sync"
	"time"
)

const (
	// minimum spacing between two requests to the same destination
	minSpacing = 500 * time.Millisecond
	// spacing never grows past this, so bursts slow down but a long
	// session does not accumulate unbounded delay
	maxSpacing = 3500 * time.Millisecond
	// waits shorter than this are not worth a sleep
	slack = 100 * time.Millisecond
)

// limiter tracks, per destination (scheme+host+port), the earliest time
// the next request may be sent. Each reservation pushes that time further
// out by an additive backoff: the longer the current queue, the wider the
// spacing, clamped to maxSpacing.
type limiter struct {
	now   func() time.Time
	sleep func(time.Duration)

	mu   sync.Mutex
	next map[string]time.Time
}

func newLimiter() *limiter {
	return &limiter{
		now:   time.Now,
		sleep: time.Sleep,
		next:  make(map[string]time.Time),
	}
}

// reserve atomically claims the next send slot for dest and schedules the
// one after it. The read-modify-write of the schedule has to happen under
// the lock, otherwise two goroutines could claim the same slot and
// under-space their requests.
func (l *limiter) reserve(dest string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	y := l.next[dest]
	if y.Before(now) {
		y = now
	}

	backoff := minSpacing + y.Sub(now)
	if backoff > maxSpacing {
		backoff = maxSpacing
	}
	l.next[dest] = y.Add(backoff)

	return y
}

// wait blocks until the reserved slot for dest arrives. Isolated requests
// see near-zero delay; only waits beyond the slack actually sleep.
func (l *limiter) wait(dest string) {
	y := l.reserve(dest)
	if d := y.Sub(l.now()); d > slack {
		l.sleep(d)
	}
}
