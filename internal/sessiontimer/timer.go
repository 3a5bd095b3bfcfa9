// Package sessiontimer tracks how long a session has been active.
//
// Elapsed time is always resampled as now minus the fixed start instant, so a
// process that is suspended and resumed reports the real wall-clock duration
// instead of the number of ticks it happened to observe.
package sessiontimer

import (
	"context"
	"sync"
	"time"

	"otp-session-auth/internal/duration"
)

// DefaultInterval is how often a running Timer resamples the clock.
const DefaultInterval = time.Second

// Snapshot is the elapsed-time view published by a Timer.
type Snapshot struct {
	ElapsedSeconds    int64
	FormattedDuration string
}

// Elapsed returns whole seconds between start and now, clamped to zero when
// the clock reads earlier than start.
func Elapsed(start, now time.Time) int64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Compute returns the snapshot for start observed at now.
func Compute(start, now time.Time) Snapshot {
	s := Elapsed(start, now)
	return Snapshot{ElapsedSeconds: s, FormattedDuration: duration.Format(s)}
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now as the timer's clock.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithInterval sets the resample interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// Timer periodically publishes the elapsed time since a fixed start instant.
// It runs until Stop is called or the context passed to Start is done.
type Timer struct {
	start    time.Time
	now      func() time.Time
	interval time.Duration

	mu      sync.RWMutex
	current Snapshot

	updates  chan Snapshot
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start computes the first snapshot immediately and then resamples every
// interval in a background goroutine.
func Start(ctx context.Context, start time.Time, opts ...Option) *Timer {
	t := &Timer{
		start:    start,
		now:      time.Now,
		interval: DefaultInterval,
		updates:  make(chan Snapshot, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.publish(Compute(t.start, t.now()))
	go t.run(ctx)
	return t
}

// StartedAt returns the instant the timer measures from.
func (t *Timer) StartedAt() time.Time {
	return t.start
}

// Snapshot returns the most recently computed elapsed time.
func (t *Timer) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Updates delivers snapshots as they are computed. Only the latest pending
// snapshot is kept when the reader falls behind. The channel is closed once
// the timer has stopped.
func (t *Timer) Updates() <-chan Snapshot {
	return t.updates
}

// Done is closed after the timer's goroutine has exited.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

// Stop cancels the periodic work and waits for it to exit. Safe to call more
// than once and from multiple goroutines.
func (t *Timer) Stop() {
	t.stopOnce.Do(t.cancel)
	<-t.done
}

func (t *Timer) run(ctx context.Context) {
	defer close(t.done)
	defer close(t.updates)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.publish(Compute(t.start, t.now()))
		}
	}
}

// publish is only called from Start and the run goroutine, which never overlap
// on the updates channel, so drain-then-send cannot block.
func (t *Timer) publish(s Snapshot) {
	t.mu.Lock()
	t.current = s
	t.mu.Unlock()

	select {
	case t.updates <- s:
	default:
		select {
		case <-t.updates:
		default:
		}
		t.updates <- s
	}
}
