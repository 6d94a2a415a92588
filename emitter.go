package flurry

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"
)

// ErrInvalidConfig is returned by NewEmitter for emitter settings that cannot
// be honored (negative capacity, baseline above capacity, ...).
var ErrInvalidConfig = errors.New("flurry: invalid emitter config")

// Defaults applied by NewEmitter to unset fields.
const (
	DefaultCapacity = 50
	DefaultDebounce = time.Second
)

// SpawnPolicy selects how an emitter decides when to spawn.
type SpawnPolicy uint8

const (
	PolicyFill     SpawnPolicy = iota // keep the population topped up toward Baseline
	PolicyBurst                       // spawn bursts on ActivityEvents only
	PolicyVelocity                    // spawn in proportion to window intensity
)

var spawnPolicyNames = []string{"fill", "burst", "velocity"}

func (p SpawnPolicy) String() string {
	if int(p) < len(spawnPolicyNames) {
		return spawnPolicyNames[p]
	}
	return fmt.Sprintf("SpawnPolicy(%d)", p)
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (p *SpawnPolicy) UnmarshalText(text []byte) error {
	i, err := lookupName("spawn policy", spawnPolicyNames, string(text))
	*p = SpawnPolicy(i)
	return err
}

// MotionGate selects whether particles move while the emitter is Idle.
type MotionGate uint8

const (
	MotionAlways        MotionGate = iota // particles keep moving while Idle
	MotionWhileEmitting                   // particles freeze while Idle
)

var motionGateNames = []string{"always", "while-emitting"}

func (g MotionGate) String() string {
	if int(g) < len(motionGateNames) {
		return motionGateNames[g]
	}
	return fmt.Sprintf("MotionGate(%d)", g)
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (g *MotionGate) UnmarshalText(text []byte) error {
	i, err := lookupName("motion gate", motionGateNames, string(text))
	*g = MotionGate(i)
	return err
}

// EmitterState is the emitter's activity state.
type EmitterState uint8

const (
	Idle EmitterState = iota
	Emitting
)

func (s EmitterState) String() string {
	if s == Emitting {
		return "emitting"
	}
	return "idle"
}

// EmitterConfig controls how an emitter spawns and manages its particles.
type EmitterConfig struct {
	Name    string
	Profile MotionProfile

	// Capacity is the hard bound on live particles. Spawns past it are
	// silently dropped. Zero means DefaultCapacity unless Density is set.
	Capacity int
	// Density, when positive, derives capacity from the bounds area
	// (see CapacityForViewport) and recomputes it on Resize.
	Density float64
	// Baseline is the population continuous fill aims for. Zero means Capacity.
	Baseline int
	Policy   SpawnPolicy
	// FillRate caps how many particles one fill pass adds. Zero is unlimited.
	FillRate int
	// AutoReplenish replaces culled particles, up to Baseline, while Emitting.
	AutoReplenish bool
	// BurstSize is the particle count range for each ActivityEvent. A zero
	// Max disables bursts.
	BurstSize IntRange
	// RateScale converts window intensity into particles per step for
	// PolicyVelocity.
	RateScale float64
	Motion    MotionGate
	// Debounce is the quiet period after the last qualifying trigger before
	// the emitter returns to Idle. Zero means DefaultDebounce.
	Debounce time.Duration
	// Latched emitters start Emitting and never debounce back to Idle.
	Latched bool
	// Listen filters trigger kinds. Zero means ListenAll.
	Listen TriggerSet
	// Bounds is the visible region particles are culled against.
	Bounds Rect
	// Seed seeds the emitter's random source. Equal seeds and equal trigger
	// sequences produce identical trajectories.
	Seed uint64
	// Logf receives sink failures and state transitions. Nil means log.Printf.
	Logf func(format string, args ...any)
}

// EmitterStats holds running totals for an emitter.
type EmitterStats struct {
	Spawned      uint64
	Culled       uint64
	Dropped      uint64 // spawn requests refused for lack of capacity
	SinkFailures uint64
}

type burstIntent struct {
	x, y  float64
	count int
}

// Emitter owns a bounded population of particles of one kind, applies its
// spawn policy, and runs the per-frame update/cull pass. An Emitter is not
// safe for concurrent use; triggers and ticks must come from one goroutine.
type Emitter struct {
	cfg     EmitterConfig
	profile MotionProfile
	sink    guardedSink
	rng     *rand.Rand
	clock   FrameClock

	particles []*Particle
	capacity  int
	baseline  int
	nextID    uint64

	state    EmitterState
	latched  bool
	debounce *Timer

	intensity float64
	emitAccum float64
	bursts    []burstIntent
	fills     int

	closed bool
	wake   func()
	stats  EmitterStats
}

// NewEmitter validates cfg and creates an emitter drawing through sink. A nil
// sink discards visuals. Invalid profiles fail with ErrInvalidProfile.
func NewEmitter(cfg EmitterConfig, sink RenderSink) (*Emitter, error) {
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Listen == 0 {
		cfg.Listen = ListenAll
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	if sink == nil {
		sink = &nopSink{}
	}

	e := &Emitter{
		cfg:     cfg,
		profile: cfg.Profile.withDefaults(),
		sink:    guardedSink{sink: sink, name: cfg.Name, logf: cfg.Logf},
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		latched: cfg.Latched,
	}
	e.capacity = e.computeCapacity()
	e.baseline = e.computeBaseline()
	e.particles = make([]*Particle, 0, e.capacity)
	if e.latched {
		e.state = Emitting
	}
	return e, nil
}

func (c *EmitterConfig) validate() error {
	switch {
	case c.Capacity < 0:
		return fmt.Errorf("%w: %q capacity must be >= 0, got %d", ErrInvalidConfig, c.Name, c.Capacity)
	case c.Baseline < 0:
		return fmt.Errorf("%w: %q baseline must be >= 0, got %d", ErrInvalidConfig, c.Name, c.Baseline)
	case c.Capacity > 0 && c.Density == 0 && c.Baseline > c.Capacity:
		return fmt.Errorf("%w: %q baseline %d exceeds capacity %d", ErrInvalidConfig, c.Name, c.Baseline, c.Capacity)
	case c.FillRate < 0:
		return fmt.Errorf("%w: %q fill rate must be >= 0", ErrInvalidConfig, c.Name)
	case c.BurstSize.Min < 0 || c.BurstSize.Min > c.BurstSize.Max:
		return fmt.Errorf("%w: %q burst size invalid: min(%d) > max(%d)", ErrInvalidConfig, c.Name, c.BurstSize.Min, c.BurstSize.Max)
	case !finite(c.RateScale) || c.RateScale < 0:
		return fmt.Errorf("%w: %q rate scale must be finite and >= 0", ErrInvalidConfig, c.Name)
	case !finite(c.Density) || c.Density < 0:
		return fmt.Errorf("%w: %q density must be finite and >= 0", ErrInvalidConfig, c.Name)
	case c.Debounce < 0:
		return fmt.Errorf("%w: %q debounce must be >= 0", ErrInvalidConfig, c.Name)
	case c.Policy > PolicyVelocity:
		return fmt.Errorf("%w: %q unknown spawn policy %d", ErrInvalidConfig, c.Name, c.Policy)
	case c.Motion > MotionWhileEmitting:
		return fmt.Errorf("%w: %q unknown motion gate %d", ErrInvalidConfig, c.Name, c.Motion)
	}
	return nil
}

func (e *Emitter) computeCapacity() int {
	if e.cfg.Density > 0 && !e.cfg.Bounds.Empty() {
		return CapacityForViewport(e.cfg.Bounds.Width, e.cfg.Bounds.Height, e.cfg.Density)
	}
	if e.cfg.Capacity > 0 {
		return e.cfg.Capacity
	}
	return DefaultCapacity
}

func (e *Emitter) computeBaseline() int {
	if e.cfg.Baseline == 0 || e.cfg.Baseline > e.capacity {
		return e.capacity
	}
	return e.cfg.Baseline
}

// Name returns the emitter's configured name.
func (e *Emitter) Name() string { return e.cfg.Name }

// State returns Idle or Emitting.
func (e *Emitter) State() EmitterState { return e.state }

// ActiveCount returns the number of live particles.
func (e *Emitter) ActiveCount() int { return len(e.particles) }

// Capacity returns the current hard bound on live particles.
func (e *Emitter) Capacity() int { return e.capacity }

// Baseline returns the population continuous fill aims for.
func (e *Emitter) Baseline() int { return e.baseline }

// Bounds returns the region particles are culled against.
func (e *Emitter) Bounds() Rect { return e.cfg.Bounds }

// Profile returns the emitter's effective motion profile.
func (e *Emitter) Profile() MotionProfile { return e.profile }

// Stats returns running totals.
func (e *Emitter) Stats() EmitterStats {
	s := e.stats
	s.SinkFailures = e.sink.failures
	return s
}

// Particles returns the live particles. The returned slice MUST NOT be mutated.
func (e *Emitter) Particles() []*Particle {
	return e.particles
}

// Clock returns the emitter's frame clock. It advances only in Tick.
func (e *Emitter) Clock() *FrameClock {
	return &e.clock
}

// Closed reports whether Close has been called.
func (e *Emitter) Closed() bool { return e.closed }

// HasWork reports whether the emitter still needs frames: live particles,
// queued spawn intents, or an open activity window.
func (e *Emitter) HasWork() bool {
	if e.closed {
		return false
	}
	return len(e.particles) > 0 || len(e.bursts) > 0 || e.fills > 0 || e.state == Emitting
}

// OnTrigger reacts to an external signal. It only records intent; spawning,
// motion and rendering happen in the next Tick.
func (e *Emitter) OnTrigger(ev TriggerEvent) {
	if e.closed || ev == nil || e.cfg.Listen&ev.trigger() == 0 {
		return
	}
	switch ev := ev.(type) {
	case TickEvent:
		if e.cfg.Policy == PolicyFill && e.fills < e.capacity {
			e.fills++
		}
	case ActivityEvent:
		if e.cfg.BurstSize.Max <= 0 {
			return
		}
		if len(e.bursts) >= e.capacity {
			e.stats.Dropped++
			return
		}
		e.bursts = append(e.bursts, burstIntent{x: ev.X, y: ev.Y, count: e.cfg.BurstSize.Random(e.rng)})
	case WindowEvent:
		if ev.Active {
			e.activate(ev.Intensity)
		} else {
			e.quiet()
		}
	}
	if e.wake != nil {
		e.wake()
	}
}

// Start latches the emitter into Emitting until Stop.
func (e *Emitter) Start() {
	if e.closed {
		return
	}
	e.cancelDebounce()
	e.latched = true
	e.setState(Emitting)
	if e.wake != nil {
		e.wake()
	}
}

// Stop returns the emitter to Idle. Live particles are kept.
func (e *Emitter) Stop() {
	e.latched = false
	e.quiet()
}

// activate enters Emitting and restarts the debounce window.
func (e *Emitter) activate(intensity float64) {
	e.intensity = intensity
	e.setState(Emitting)
	if e.latched {
		return
	}
	e.cancelDebounce()
	e.debounce = e.clock.AfterFunc(e.cfg.Debounce, e.debounced)
}

func (e *Emitter) debounced() {
	e.debounce = nil
	e.quiet()
}

// quiet leaves Emitting unless the emitter is latched.
func (e *Emitter) quiet() {
	if e.latched {
		return
	}
	e.cancelDebounce()
	e.intensity = 0
	e.emitAccum = 0
	e.setState(Idle)
}

func (e *Emitter) cancelDebounce() {
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
}

func (e *Emitter) setState(s EmitterState) {
	e.state = s
}

// Tick advances the emitter by one frame: due timers fire, every live
// particle steps exactly once (unless frozen while Idle), dead particles are
// detached, and queued spawn intents are honored up to capacity.
func (e *Emitter) Tick(elapsed time.Duration) {
	if e.closed {
		return
	}
	e.clock.Advance(elapsed)
	dt := Steps(elapsed)

	culled := 0
	if e.moving() {
		i := 0
		for i < len(e.particles) {
			p := e.particles[i]
			if p.Step(dt, e.cfg.Bounds) {
				e.sink.update(p)
				i++
				continue
			}
			e.release(i)
			culled++
		}
	}
	e.spawnPending(dt, culled)
}

func (e *Emitter) moving() bool {
	return e.cfg.Motion == MotionAlways || e.state == Emitting
}

// release swap-removes particle i and detaches its visual.
func (e *Emitter) release(i int) {
	p := e.particles[i]
	p.Alive = false
	e.sink.detach(p)
	last := len(e.particles) - 1
	e.particles[i] = e.particles[last]
	e.particles[last] = nil
	e.particles = e.particles[:last]
	e.stats.Culled++
}

func (e *Emitter) spawnPending(dt float64, culled int) {
	for _, b := range e.bursts {
		for k := 0; k < b.count; k++ {
			e.spawn(Vec2{b.x, b.y}, true)
		}
	}
	e.bursts = e.bursts[:0]

	switch e.cfg.Policy {
	case PolicyFill:
		passes := e.fills
		e.fills = 0
		if e.state == Emitting {
			passes++
		}
		for ; passes > 0; passes-- {
			e.fillPass()
		}
		if e.cfg.AutoReplenish && e.state == Emitting {
			n := min(culled, e.baseline-len(e.particles))
			for ; n > 0; n-- {
				e.spawn(Vec2{}, false)
			}
		}
	case PolicyVelocity:
		if e.state != Emitting {
			return
		}
		e.emitAccum += e.intensity * e.cfg.RateScale * dt
		if room := float64(e.capacity - len(e.particles)); e.emitAccum > room {
			e.emitAccum = room
		}
		for e.emitAccum >= 1 {
			e.emitAccum--
			e.spawn(Vec2{}, false)
		}
	}
}

// fillPass tops the population up toward baseline, at most FillRate at once.
func (e *Emitter) fillPass() {
	n := e.baseline - len(e.particles)
	if e.cfg.FillRate > 0 && n > e.cfg.FillRate {
		n = e.cfg.FillRate
	}
	for ; n > 0; n-- {
		e.spawn(Vec2{}, false)
	}
}

// spawn creates one particle. Requests past capacity are dropped; a particle
// whose visual cannot be attached is discarded as already gone.
func (e *Emitter) spawn(origin Vec2, explicit bool) bool {
	if len(e.particles) >= e.capacity {
		e.stats.Dropped++
		return false
	}
	e.nextID++
	p := spawnParticle(&e.profile, e.nextID, origin, explicit, e.cfg.Bounds, e.rng)
	if !e.sink.attach(p) {
		return false
	}
	e.particles = append(e.particles, p)
	e.stats.Spawned++
	return true
}

// Sweep culls particles that sit outside the bounds without stepping them.
// It is the maintenance safety net for particles frozen while Idle or
// stranded by a resize. It returns the number of particles removed.
func (e *Emitter) Sweep() int {
	removed := 0
	i := 0
	for i < len(e.particles) {
		p := e.particles[i]
		if p.Alive && p.inBounds(e.cfg.Bounds) {
			i++
			continue
		}
		e.release(i)
		removed++
	}
	return removed
}

// Resize updates the bounds to a width x height viewport anchored at the
// current origin. With Density set, capacity is recomputed and any excess
// particles are detached immediately.
func (e *Emitter) Resize(width, height float64) {
	if e.closed {
		return
	}
	e.cfg.Bounds.Width = width
	e.cfg.Bounds.Height = height
	if e.cfg.Density <= 0 {
		return
	}
	e.capacity = e.computeCapacity()
	e.baseline = e.computeBaseline()
	for len(e.particles) > e.capacity {
		e.release(len(e.particles) - 1)
	}
}

// Close cancels the debounce timer and detaches every particle. A closed
// emitter ignores triggers and ticks. Close is idempotent.
func (e *Emitter) Close() {
	if e.closed {
		return
	}
	e.cancelDebounce()
	e.clock.StopAll()
	for len(e.particles) > 0 {
		e.release(len(e.particles) - 1)
	}
	e.bursts = nil
	e.fills = 0
	e.latched = false
	e.state = Idle
	e.closed = true
	e.wake = nil
}
