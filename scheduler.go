package flurry

import (
	"log"
	"time"
)

// SchedulerMode selects when the scheduler stops requesting frames.
type SchedulerMode uint8

const (
	// Persistent schedulers run until Stop. Used by continuous ambient effects.
	Persistent SchedulerMode = iota
	// SelfTerminating schedulers stop requesting frames once no emitter has
	// work left, and wake again on the next trigger. Used by finite bursts.
	SelfTerminating
)

// DefaultMaintenance is the interval of the bounds-culling safety pass.
const DefaultMaintenance = time.Second

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Mode SchedulerMode
	// Maintenance is the interval between Sweep passes over every emitter.
	// Zero means DefaultMaintenance; negative disables the pass.
	Maintenance time.Duration
	// Logf receives warnings and debug stats. Nil means log.Printf.
	Logf func(format string, args ...any)
}

// Scheduler is the frame-synchronized loop driver shared by all emitters.
// The host calls Frame once per display frame; Frame ticks every registered
// emitter exactly once and never overlaps with itself.
type Scheduler struct {
	cfg      SchedulerConfig
	emitters []*Emitter
	doomed   []*Emitter
	clock    FrameClock
	sweep    *Timer

	started bool
	running bool
	ticking bool
	debug   bool
	frames  uint64
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Maintenance == 0 {
		cfg.Maintenance = DefaultMaintenance
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Scheduler{cfg: cfg}
}

// Register adds e to the set ticked every frame. Registering the same
// emitter twice is a no-op.
func (s *Scheduler) Register(e *Emitter) {
	for _, x := range s.emitters {
		if x == e {
			return
		}
	}
	e.wake = s.wake
	s.emitters = append(s.emitters, e)
	s.wake()
}

// Unregister removes e and closes it, cancelling its timers and detaching its
// particles. It reports whether e was registered.
func (s *Scheduler) Unregister(e *Emitter) bool {
	idx := -1
	for i, x := range s.emitters {
		if x == e {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	e.Close()
	if s.ticking {
		s.doomed = append(s.doomed, e)
		return true
	}
	s.emitters = append(s.emitters[:idx], s.emitters[idx+1:]...)
	return true
}

// Emitters returns the registered emitters. The returned slice MUST NOT be mutated.
func (s *Scheduler) Emitters() []*Emitter {
	return s.emitters
}

// Emitter returns the registered emitter with the given name.
func (s *Scheduler) Emitter(name string) (*Emitter, bool) {
	for _, e := range s.emitters {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Start begins accepting frames and arms the maintenance pass.
func (s *Scheduler) Start() {
	if s.started {
		return
	}
	s.started = true
	s.running = true
	s.armMaintenance()
}

// Stop tears the scheduler down: the maintenance timer is cancelled, every
// emitter is closed and unregistered, and no further frames are requested.
func (s *Scheduler) Stop() {
	s.started = false
	s.running = false
	if s.sweep != nil {
		s.sweep.Stop()
		s.sweep = nil
	}
	s.clock.StopAll()
	for _, e := range s.emitters {
		e.Close()
	}
	s.emitters = nil
	s.doomed = nil
}

// Running reports whether the scheduler wants frames.
func (s *Scheduler) Running() bool {
	return s.running
}

// Frames returns the number of frames processed.
func (s *Scheduler) Frames() uint64 {
	return s.frames
}

// SetDebugMode enables or disables per-frame stats logging.
func (s *Scheduler) SetDebugMode(enabled bool) {
	s.debug = enabled
}

// wake resumes frame requests after a self-terminating scheduler went quiet.
func (s *Scheduler) wake() {
	if s.started {
		s.running = true
	}
}

func (s *Scheduler) armMaintenance() {
	if s.cfg.Maintenance < 0 {
		return
	}
	s.sweep = s.clock.AfterFunc(s.cfg.Maintenance, func() {
		s.maintain()
		s.armMaintenance()
	})
}

func (s *Scheduler) maintain() {
	for _, e := range s.emitters {
		if n := e.Sweep(); n > 0 && s.debug {
			s.cfg.Logf("[flurry] maintenance: %s swept %d particles", e.Name(), n)
		}
	}
}

// Frame advances every registered emitter by elapsed and reports whether the
// scheduler wants another frame. Calls while a frame is in progress are
// refused.
func (s *Scheduler) Frame(elapsed time.Duration) bool {
	if !s.running {
		return false
	}
	if s.ticking {
		s.cfg.Logf("[flurry] warning: reentrant Frame call ignored")
		return s.running
	}
	s.ticking = true

	var stats frameStats
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
		stats = s.snapshot()
	}

	s.clock.Advance(elapsed)
	for _, e := range s.emitters {
		e.Tick(elapsed)
	}
	s.ticking = false
	s.flushDoomed()
	s.frames++

	if s.cfg.Mode == SelfTerminating && !s.hasWork() {
		s.running = false
	}

	if s.debug {
		stats.tickTime = time.Since(t0)
		s.debugLog(stats.delta(s.snapshot()))
	}
	return s.running
}

func (s *Scheduler) hasWork() bool {
	for _, e := range s.emitters {
		if e.HasWork() {
			return true
		}
	}
	return false
}

func (s *Scheduler) flushDoomed() {
	for _, d := range s.doomed {
		for i, x := range s.emitters {
			if x == d {
				s.emitters = append(s.emitters[:i], s.emitters[i+1:]...)
				break
			}
		}
	}
	s.doomed = s.doomed[:0]
}

// ParticleCount returns the total live particles across emitters.
func (s *Scheduler) ParticleCount() int {
	n := 0
	for _, e := range s.emitters {
		n += e.ActiveCount()
	}
	return n
}
