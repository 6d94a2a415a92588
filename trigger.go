package flurry

import (
	"math"
	"time"
)

// TriggerEvent is an external activity signal an Emitter reacts to. The
// concrete types are TickEvent, ActivityEvent and WindowEvent.
type TriggerEvent interface {
	trigger() TriggerSet
}

// TickEvent is a periodic heartbeat for timer-driven emission.
type TickEvent struct {
	DT time.Duration
}

// ActivityEvent is a discrete interaction at a point, such as a click.
type ActivityEvent struct {
	X, Y float64
}

// WindowEvent opens or closes a transient activity window, such as sustained
// scrolling. Intensity scales velocity-scaled emission.
type WindowEvent struct {
	Active    bool
	Intensity float64
}

func (TickEvent) trigger() TriggerSet     { return ListenTick }
func (ActivityEvent) trigger() TriggerSet { return ListenActivity }
func (WindowEvent) trigger() TriggerSet   { return ListenWindow }

// TriggerSet selects which trigger kinds an emitter reacts to.
type TriggerSet uint8

const (
	ListenTick TriggerSet = 1 << iota
	ListenActivity
	ListenWindow

	ListenAll = ListenTick | ListenActivity | ListenWindow
)

// ScrollTracker turns raw scroll positions into activity windows. A position
// qualifies when it moved more than Threshold from the last qualifying one.
type ScrollTracker struct {
	Threshold float64
	last      float64
}

// NewScrollTracker creates a tracker starting at position start.
func NewScrollTracker(threshold, start float64) *ScrollTracker {
	return &ScrollTracker{Threshold: threshold, last: start}
}

// Observe reports a WindowEvent when pos qualifies. The intensity is the
// distance travelled since the last qualifying position.
func (t *ScrollTracker) Observe(pos float64) (WindowEvent, bool) {
	delta := math.Abs(pos - t.last)
	if delta <= t.Threshold {
		return WindowEvent{}, false
	}
	t.last = pos
	return WindowEvent{Active: true, Intensity: delta}, true
}

// Ticker counts heartbeats on a fixed interval.
type Ticker struct {
	Interval time.Duration
	acc      time.Duration
}

// Advance accumulates elapsed time and returns how many heartbeats fell due.
func (t *Ticker) Advance(elapsed time.Duration) int {
	if t.Interval <= 0 {
		return 0
	}
	t.acc += elapsed
	n := int(t.acc / t.Interval)
	t.acc -= time.Duration(n) * t.Interval
	return n
}

// CapacityForViewport derives a capacity from the viewport area: one
// particle per density square units, never less than one.
func CapacityForViewport(width, height, density float64) int {
	if density <= 0 || width <= 0 || height <= 0 {
		return 1
	}
	n := int(math.Floor(width * height / density))
	if n < 1 {
		return 1
	}
	return n
}

// TriggerTarget receives high-level input gestures. Router implements it;
// scripts and host input loops drive it.
type TriggerTarget interface {
	Click(x, y float64)
	ScrollBy(delta float64)
	ScrollTo(pos float64)
	Heartbeat()
	Resize(width, height float64)
}

// Router fans input gestures out to a set of emitters, translating raw
// scroll offsets into activity windows on the way.
type Router struct {
	emitters []*Emitter
	scroll   *ScrollTracker
	pos      float64
}

// NewRouter creates a Router whose scroll gestures qualify past threshold.
func NewRouter(threshold float64) *Router {
	return &Router{scroll: NewScrollTracker(threshold, 0)}
}

// Add subscribes e to routed triggers.
func (r *Router) Add(e *Emitter) {
	for _, x := range r.emitters {
		if x == e {
			return
		}
	}
	r.emitters = append(r.emitters, e)
}

// Remove unsubscribes e.
func (r *Router) Remove(e *Emitter) {
	for i, x := range r.emitters {
		if x == e {
			r.emitters = append(r.emitters[:i], r.emitters[i+1:]...)
			return
		}
	}
}

// Send delivers ev to every subscribed emitter.
func (r *Router) Send(ev TriggerEvent) {
	for _, e := range r.emitters {
		e.OnTrigger(ev)
	}
}

// Click sends an ActivityEvent at (x, y).
func (r *Router) Click(x, y float64) {
	r.Send(ActivityEvent{X: x, Y: y})
}

// ScrollBy moves the virtual scroll position and opens an activity window
// when the movement qualifies.
func (r *Router) ScrollBy(delta float64) {
	r.ScrollTo(r.pos + delta)
}

// ScrollTo sets the virtual scroll position.
func (r *Router) ScrollTo(pos float64) {
	r.pos = pos
	if ev, ok := r.scroll.Observe(pos); ok {
		r.Send(ev)
	}
}

// Heartbeat sends a TickEvent.
func (r *Router) Heartbeat() {
	r.Send(TickEvent{})
}

// Resize updates every emitter's bounds.
func (r *Router) Resize(width, height float64) {
	for _, e := range r.emitters {
		e.Resize(width, height)
	}
}
