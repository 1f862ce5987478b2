package frame

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestsCoalesceIntoOneFrame(t *testing.T) {
	var calls int
	l := NewLoop(0, func() { calls++ })
	if l.Interval() != DefaultInterval {
		t.Fatalf("interval %v", l.Interval())
	}

	if !l.Request() {
		t.Fatalf("first request should schedule")
	}
	for i := 0; i < 5; i++ {
		if l.Request() {
			t.Fatalf("request %d should coalesce", i)
		}
	}
	if !l.Pending() {
		t.Fatalf("expected pending")
	}
	if !l.Step() {
		t.Fatalf("step should run the pending callback")
	}
	if calls != 1 || l.Frames() != 1 {
		t.Fatalf("calls=%d frames=%d", calls, l.Frames())
	}
	if l.Step() {
		t.Fatalf("nothing pending, step must not run")
	}
	if l.Pending() || calls != 1 {
		t.Fatalf("state after idle step: pending=%v calls=%d", l.Pending(), calls)
	}
}

func TestCallbackSeesLatestInput(t *testing.T) {
	var input, seen int
	l := NewLoop(time.Millisecond, func() { seen = input })
	for i := 1; i <= 10; i++ {
		input = i
		l.Request()
	}
	l.Step()
	if seen != 10 {
		t.Fatalf("callback saw %d, want latest 10", seen)
	}
}

func TestRequestFromCallbackSchedulesNextFrame(t *testing.T) {
	var l *Loop
	var calls int
	l = NewLoop(time.Millisecond, func() {
		calls++
		if calls == 1 {
			l.Request()
		}
	})
	l.Request()
	l.Step()
	if !l.Pending() {
		t.Fatalf("request made during a frame should stay pending")
	}
	l.Step()
	if calls != 2 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestFlushAbsorbsPending(t *testing.T) {
	var calls int
	l := NewLoop(time.Millisecond, func() { calls++ })
	l.Request()
	l.Flush()
	if calls != 1 || l.Pending() {
		t.Fatalf("calls=%d pending=%v", calls, l.Pending())
	}
	if l.Step() {
		t.Fatalf("flushed request must not run again")
	}
}

func TestRunStepsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	l := NewLoop(time.Millisecond, func() { calls.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	l.Request()
	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("frame never ran")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if l.Running() {
		t.Fatalf("loop still marked running")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("one request should run once, got %d", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewLoop(time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	l.Stop()
	l.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Stop")
	}
}
