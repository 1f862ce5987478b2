// Package frame coalesces redraw requests onto a fixed frame clock.
// Any number of requests between two frames collapse into one callback,
// which reads whatever the inputs are when it runs.
package frame

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is roughly one 60 Hz display frame.
const DefaultInterval = 16 * time.Millisecond

// Loop runs its callback at most once per frame, and only when requested.
// Create one with NewLoop.
type Loop struct {
	interval time.Duration
	onFrame  func()

	mu      sync.Mutex
	pending bool
	frames  uint64
	running bool
	stop    chan struct{}
}

// NewLoop creates a loop. A non-positive interval means DefaultInterval.
func NewLoop(interval time.Duration, onFrame func()) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		interval: interval,
		onFrame:  onFrame,
		stop:     make(chan struct{}),
	}
}

// Interval returns the frame period.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Request schedules a callback for the next frame. It reports whether this
// call scheduled it; false means one was already pending.
func (l *Loop) Request() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending {
		return false
	}
	l.pending = true
	return true
}

// Pending reports whether a callback is scheduled.
func (l *Loop) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Frames returns how many callbacks have run.
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Step is one frame tick: if a callback is pending it is cleared and run.
// Reports whether the callback ran.
func (l *Loop) Step() bool {
	l.mu.Lock()
	if !l.pending {
		l.mu.Unlock()
		return false
	}
	l.pending = false
	l.frames++
	l.mu.Unlock()

	// Run outside the lock so the callback may call Request.
	if l.onFrame != nil {
		l.onFrame()
	}
	return true
}

// Flush runs the callback now, for committed changes that should not wait
// for the next frame. Any pending request is absorbed.
func (l *Loop) Flush() {
	l.mu.Lock()
	l.pending = false
	l.frames++
	l.mu.Unlock()

	if l.onFrame != nil {
		l.onFrame()
	}
}

// Run drives Step on the frame clock. Blocks until ctx is done or Stop is
// called.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
	slog.Debug("frame loop started", "interval", l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.finish()
			return
		case <-l.stop:
			l.finish()
			return
		case <-ticker.C:
			l.Step()
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) finish() {
	l.mu.Lock()
	l.running = false
	frames := l.frames
	l.mu.Unlock()
	slog.Debug("frame loop stopped", "frames", frames)
}
