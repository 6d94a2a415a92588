package flurry

import (
	"errors"
	"fmt"
)

// Handle identifies a particle's visual inside a RenderSink.
type Handle uint64

// VisualState is everything a sink needs to draw one particle.
type VisualState struct {
	X, Y     float64
	Size     float64
	Opacity  float64
	Rotation float64 // degrees
	Color    Color
	Shape    string
}

// RenderSink reflects particle state on a host surface. The engine calls
// Attach once when a particle spawns, Update after each step, and Detach
// exactly once when it dies. Detach must tolerate handles it no longer knows.
type RenderSink interface {
	Attach(id uint64, state VisualState) (Handle, error)
	Update(h Handle, state VisualState)
	Detach(h Handle) error
}

// ErrUnknownHandle may be returned by sinks that choose to report a Detach of
// a handle they do not hold. The engine treats it like any detach failure.
var ErrUnknownHandle = errors.New("flurry: unknown render handle")

// guardedSink wraps a RenderSink at the emitter boundary. Errors and panics
// from the sink are logged and the particle is treated as already gone, so a
// single bad visual never stalls a tick.
type guardedSink struct {
	sink     RenderSink
	name     string
	logf     func(format string, args ...any)
	failures uint64
}

func (g *guardedSink) attach(p *Particle) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.fail("attach", p.ID, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	h, err := g.sink.Attach(p.ID, p.Visual())
	if err != nil {
		g.fail("attach", p.ID, err)
		return false
	}
	p.handle = h
	p.attached = true
	return true
}

func (g *guardedSink) update(p *Particle) {
	if !p.attached {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.fail("update", p.ID, fmt.Errorf("panic: %v", r))
		}
	}()
	g.sink.Update(p.handle, p.Visual())
}

func (g *guardedSink) detach(p *Particle) {
	if !p.attached {
		return
	}
	p.attached = false
	defer func() {
		if r := recover(); r != nil {
			g.fail("detach", p.ID, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := g.sink.Detach(p.handle); err != nil {
		g.fail("detach", p.ID, err)
	}
}

func (g *guardedSink) fail(op string, id uint64, err error) {
	g.failures++
	if g.logf != nil {
		g.logf("[flurry] %s: render sink %s failed for particle %d: %v", g.name, op, id, err)
	}
}

// nopSink discards every visual. Used when an emitter is built without a sink.
type nopSink struct {
	next Handle
}

func (s *nopSink) Attach(uint64, VisualState) (Handle, error) {
	s.next++
	return s.next, nil
}

func (s *nopSink) Update(Handle, VisualState) {}

func (s *nopSink) Detach(Handle) error { return nil }

// MemorySink keeps visuals in memory. It is useful for headless runs and for
// inspecting what a surface would show.
type MemorySink struct {
	visuals map[Handle]VisualState
	ids     map[Handle]uint64
	next    Handle

	// Attached and Detached count successful calls. Duplicate detaches are
	// ignored and not counted.
	Attached int
	Detached int
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		visuals: make(map[Handle]VisualState),
		ids:     make(map[Handle]uint64),
	}
}

// Attach stores the initial visual and returns a fresh handle.
func (s *MemorySink) Attach(id uint64, state VisualState) (Handle, error) {
	s.next++
	s.visuals[s.next] = state
	s.ids[s.next] = id
	s.Attached++
	return s.next, nil
}

// Update replaces the stored visual. Unknown handles are ignored.
func (s *MemorySink) Update(h Handle, state VisualState) {
	if _, ok := s.visuals[h]; ok {
		s.visuals[h] = state
	}
}

// Detach forgets the visual. Detaching an unknown handle is a no-op.
func (s *MemorySink) Detach(h Handle) error {
	if _, ok := s.visuals[h]; !ok {
		return nil
	}
	delete(s.visuals, h)
	delete(s.ids, h)
	s.Detached++
	return nil
}

// Len returns the number of attached visuals.
func (s *MemorySink) Len() int {
	return len(s.visuals)
}

// Visual returns the stored visual for h.
func (s *MemorySink) Visual(h Handle) (VisualState, bool) {
	v, ok := s.visuals[h]
	return v, ok
}

// Each calls fn for every attached visual in unspecified order.
func (s *MemorySink) Each(fn func(id uint64, v VisualState)) {
	for h, v := range s.visuals {
		fn(s.ids[h], v)
	}
}
