package room

import (
	"sync"
	"time"
)

// fakeClock gives tests full control over when scheduled timeouts fire,
// so protocol tests never need a real sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    int64
	timers []*fakeTimer
}

type fakeTimer struct {
	deadlineMs int64
	f          func()
	fired      bool
	stopped    bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: 1000}
}

func (c *fakeClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadlineMs: c.now + d.Milliseconds(), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer now due, in the
// order they were scheduled.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d.Milliseconds()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.deadlineMs <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// pump drains every message currently queued on r's mailbox, handling
// each synchronously. Tests never call r.Start, so nothing else is
// draining the mailbox concurrently.
func pump(r *Room) {
	for {
		select {
		case msg := <-r.mailbox:
			r.handle(msg)
		default:
			return
		}
	}
}
