package flurry

import (
	"container/heap"
	"time"
)

// FrameClock is a virtual clock that only moves when a frame advances it.
// Timers scheduled on it fire synchronously inside Advance, on the frame
// thread, in deadline order. There are no goroutines involved.
type FrameClock struct {
	now    time.Duration
	timers timerHeap
	seq    uint64
}

// Timer is a callback scheduled on a FrameClock.
type Timer struct {
	clock *FrameClock
	at    time.Duration
	seq   uint64
	fn    func()
	index int // position in the heap, -1 when not pending
}

// Now returns the clock's current time since it was created.
func (c *FrameClock) Now() time.Duration {
	return c.now
}

// AfterFunc schedules fn to run once d has elapsed on the clock.
func (c *FrameClock) AfterFunc(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	c.seq++
	t := &Timer{clock: c, at: c.now + d, seq: c.seq, fn: fn}
	heap.Push(&c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer whose deadline is
// reached. Callbacks may schedule new timers; those fire in the same call when
// they fall due within d.
func (c *FrameClock) Advance(d time.Duration) {
	target := c.now + d
	for len(c.timers) > 0 && c.timers[0].at <= target {
		t := heap.Pop(&c.timers).(*Timer)
		c.now = t.at
		t.fn()
	}
	c.now = target
}

// Pending returns the number of timers waiting to fire.
func (c *FrameClock) Pending() int {
	return len(c.timers)
}

// StopAll cancels every pending timer.
func (c *FrameClock) StopAll() {
	for _, t := range c.timers {
		t.index = -1
	}
	c.timers = c.timers[:0]
}

// Stop cancels the timer. It reports whether the call stopped a pending
// timer; false means it already fired or was already stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.index < 0 {
		return false
	}
	heap.Remove(&t.clock.timers, t.index)
	return true
}

// Pending reports whether the timer is still waiting to fire.
func (t *Timer) Pending() bool {
	return t != nil && t.index >= 0
}

// timerHeap orders timers by deadline, then by scheduling order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
