package flurry

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// --- Helpers ---

func sparkProfile() MotionProfile {
	return MotionProfile{
		Name:            "spark",
		Region:          RegionPoint,
		AngleMode:       AngleUniform,
		Speed:           Range{2, 6},
		Gravity:         0.12,
		Drag:            0.96,
		DecayRate:       0.015,
		WobbleAmplitude: 4,
		WobbleFrequency: Range{0.05, 0.1},
		Size:            Range{2, 4},
		Palette:         []Color{{1, 0.8, 0.4, 1}, {1, 0.4, 0.2, 1}},
	}
}

// stillProfile spawns motionless particles anywhere in the bounds.
func stillProfile() MotionProfile {
	return MotionProfile{Region: RegionArea}
}

type logRecorder struct {
	lines []string
}

func (r *logRecorder) logf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *logRecorder) count(substr string) int {
	n := 0
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func newTestEmitter(t *testing.T, cfg EmitterConfig, sink RenderSink) *Emitter {
	t.Helper()
	if cfg.Bounds.Empty() {
		cfg.Bounds = Rect{Width: 800, Height: 600}
	}
	if cfg.Logf == nil {
		cfg.Logf = t.Logf
	}
	e, err := NewEmitter(cfg, sink)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	return e
}

func ids(e *Emitter) map[uint64]bool {
	m := make(map[uint64]bool, e.ActiveCount())
	for _, p := range e.Particles() {
		m[p.ID] = true
	}
	return m
}

// --- Construction ---

func TestNewEmitterDefaults(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{Profile: stillProfile()}, nil)
	if e.Capacity() != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", e.Capacity(), DefaultCapacity)
	}
	if e.Baseline() != DefaultCapacity {
		t.Errorf("Baseline = %d, want capacity", e.Baseline())
	}
	if e.State() != Idle {
		t.Errorf("State = %v, want idle", e.State())
	}
	if e.HasWork() {
		t.Error("fresh idle emitter should have no work")
	}
	assertNear(t, "default drag", e.Profile().Drag, 1)
	assertNear(t, "default margin", e.Profile().Margin, DefaultMargin)
}

func TestNewEmitterValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  EmitterConfig
		want error
	}{
		{"inverted size", EmitterConfig{Profile: MotionProfile{Size: Range{5, 1}}}, ErrInvalidProfile},
		{"negative decay", EmitterConfig{Profile: MotionProfile{DecayRate: -0.1}}, ErrInvalidProfile},
		{"drag above one", EmitterConfig{Profile: MotionProfile{Drag: 1.5}}, ErrInvalidProfile},
		{"opacity above one", EmitterConfig{Profile: MotionProfile{Opacity: Range{0.5, 1.5}}}, ErrInvalidProfile},
		{"offset past margin", EmitterConfig{Profile: MotionProfile{Region: RegionTop, Offset: -80}}, ErrInvalidProfile},
		{"cycle without min", EmitterConfig{Profile: MotionProfile{ColorCycle: Range{0, 2}}}, ErrInvalidProfile},
		{"negative capacity", EmitterConfig{Capacity: -1}, ErrInvalidConfig},
		{"baseline over capacity", EmitterConfig{Capacity: 5, Baseline: 6}, ErrInvalidConfig},
		{"inverted burst", EmitterConfig{BurstSize: IntRange{4, 2}}, ErrInvalidConfig},
		{"negative debounce", EmitterConfig{Debounce: -time.Second}, ErrInvalidConfig},
		{"negative rate", EmitterConfig{RateScale: -1}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmitter(tt.cfg, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProfileErrorNamesProfile(t *testing.T) {
	_, err := NewEmitter(EmitterConfig{Profile: MotionProfile{Name: "bad", Speed: Range{3, 1}}}, nil)
	if err == nil || !strings.Contains(err.Error(), `"bad"`) {
		t.Errorf("err = %v, want it to name the profile", err)
	}
}

// --- Bursts ---

func TestEmitterBurstSpawnsAtPoint(t *testing.T) {
	sink := NewMemorySink()
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyBurst,
		Capacity:  100,
		BurstSize: IntRange{5, 9},
		Profile:   sparkProfile(),
		Seed:      11,
	}, sink)

	e.OnTrigger(ActivityEvent{X: 40, Y: 60})
	if e.ActiveCount() != 0 {
		t.Fatal("OnTrigger must not spawn synchronously")
	}
	if !e.HasWork() {
		t.Error("queued burst should count as work")
	}

	e.Tick(FrameDuration)
	n := e.ActiveCount()
	if n < 5 || n > 9 {
		t.Fatalf("burst spawned %d particles, want 5..9", n)
	}
	for _, p := range e.Particles() {
		if p.X != 40 || p.Y != 60 {
			t.Errorf("particle %d spawned at (%v, %v), want (40, 60)", p.ID, p.X, p.Y)
		}
	}
	if sink.Len() != n {
		t.Errorf("sink holds %d visuals, want %d", sink.Len(), n)
	}
}

func TestEmitterBurstDropsPastCapacity(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyBurst,
		Capacity:  5,
		BurstSize: IntRange{8, 8},
		Profile:   stillProfile(),
	}, nil)

	e.OnTrigger(ActivityEvent{X: 10, Y: 10})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 5 {
		t.Fatalf("ActiveCount = %d, want 5", e.ActiveCount())
	}
	if e.Stats().Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", e.Stats().Dropped)
	}

	e.OnTrigger(ActivityEvent{X: 10, Y: 10})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 5 || e.Stats().Dropped != 11 {
		t.Errorf("after full burst: count %d dropped %d, want 5 and 11", e.ActiveCount(), e.Stats().Dropped)
	}
}

func TestEmitterBurstDisabledWithoutSize(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{Policy: PolicyBurst, Profile: stillProfile()}, nil)
	e.OnTrigger(ActivityEvent{X: 1, Y: 1})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0 with zero burst size", e.ActiveCount())
	}
}

func TestEmitterCapacityInvariantUnderLoad(t *testing.T) {
	sink := NewMemorySink()
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyFill,
		Capacity:  30,
		Latched:   true,
		BurstSize: IntRange{10, 20},
		Profile:   sparkProfile(),
		Seed:      3,
	}, sink)

	for frame := 0; frame < 200; frame++ {
		e.OnTrigger(ActivityEvent{X: 400, Y: 300})
		e.OnTrigger(TickEvent{})
		e.Tick(FrameDuration)
		if e.ActiveCount() > e.Capacity() {
			t.Fatalf("frame %d: %d live particles exceed capacity %d", frame, e.ActiveCount(), e.Capacity())
		}
		if sink.Len() != e.ActiveCount() {
			t.Fatalf("frame %d: sink holds %d visuals for %d particles", frame, sink.Len(), e.ActiveCount())
		}
	}
	st := e.Stats()
	if st.Spawned != uint64(sink.Attached) || st.Culled != uint64(sink.Detached) {
		t.Errorf("stats %+v disagree with sink attached %d detached %d", st, sink.Attached, sink.Detached)
	}
}

// --- Fill ---

func TestEmitterFillScenario(t *testing.T) {
	// Capacity 50, baseline 20, gravity 0.12, decay 0.015, one heartbeat per
	// frame for 100 frames.
	e := newTestEmitter(t, EmitterConfig{
		Policy:   PolicyFill,
		Capacity: 50,
		Baseline: 20,
		Profile: MotionProfile{
			Region:    RegionTop,
			Gravity:   0.12,
			DecayRate: 0.015,
		},
		Seed: 5,
	}, NewMemorySink())

	var first map[uint64]bool
	for frame := 1; frame <= 100; frame++ {
		e.OnTrigger(TickEvent{DT: FrameDuration})
		e.Tick(FrameDuration)
		if e.ActiveCount() != 20 {
			t.Fatalf("frame %d: population %d, want 20", frame, e.ActiveCount())
		}
		live := ids(e)
		switch frame {
		case 1:
			first = live
		case 67:
			// 66 steps: opacity 0.01, still alive.
			for id := range first {
				if !live[id] {
					t.Errorf("frame 67: particle %d died early", id)
				}
			}
		case 68:
			for id := range first {
				if live[id] {
					t.Errorf("frame 68: particle %d outlived its decay budget", id)
				}
			}
		}
	}
	if got := e.Stats().Spawned; got < 40 {
		t.Errorf("Spawned = %d, want the first generation replaced", got)
	}
}

func TestEmitterTickEventFillsWhileIdle(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{
		Policy:   PolicyFill,
		Capacity: 10,
		FillRate: 2,
		Profile:  stillProfile(),
	}, nil)

	e.Tick(FrameDuration)
	if e.ActiveCount() != 0 {
		t.Fatalf("idle fill emitter spawned %d without a heartbeat", e.ActiveCount())
	}
	e.OnTrigger(TickEvent{})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 2 {
		t.Errorf("ActiveCount = %d after one heartbeat, want FillRate 2", e.ActiveCount())
	}
	if e.State() != Idle {
		t.Errorf("heartbeat changed state to %v", e.State())
	}
}

func TestEmitterLatchedFillsEveryTick(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{
		Policy:   PolicyFill,
		Capacity: 50,
		FillRate: 1,
		Latched:  true,
		Profile:  stillProfile(),
	}, nil)

	for i := 0; i < 60; i++ {
		e.Tick(FrameDuration)
	}
	if e.ActiveCount() != 50 {
		t.Errorf("ActiveCount = %d after 60 latched ticks, want 50", e.ActiveCount())
	}
}

func TestEmitterAutoReplenish(t *testing.T) {
	run := func(replenish bool) int {
		e := newTestEmitter(t, EmitterConfig{
			Policy:        PolicyFill,
			Capacity:      10,
			FillRate:      1,
			Latched:       true,
			AutoReplenish: replenish,
			Profile:       MotionProfile{Region: RegionArea, DecayRate: 0.5},
		}, nil)
		for i := 0; i < 3; i++ {
			e.Tick(FrameDuration)
		}
		return e.ActiveCount()
	}
	// The first particle dies on tick 3; replenishment replaces it in the
	// same tick on top of the rate-limited fill.
	if got := run(false); got != 2 {
		t.Errorf("without replenish: %d, want 2", got)
	}
	if got := run(true); got != 3 {
		t.Errorf("with replenish: %d, want 3", got)
	}
}

// --- Activity windows ---

func scrollSnowConfig() EmitterConfig {
	return EmitterConfig{
		Policy:   PolicyFill,
		Capacity: 50,
		FillRate: 1,
		Motion:   MotionWhileEmitting,
		Debounce: time.Second,
		Listen:   ListenWindow,
		Profile: MotionProfile{
			Region:    RegionTop,
			AngleMode: AngleFixed,
			Direction: 1.5707963267948966,
			Speed:     Range{1, 1},
		},
	}
}

func TestEmitterDebounceWindow(t *testing.T) {
	e := newTestEmitter(t, scrollSnowConfig(), NewMemorySink())

	e.OnTrigger(WindowEvent{Active: true, Intensity: 60})
	if e.State() != Emitting {
		t.Fatalf("State = %v after window opened, want emitting", e.State())
	}
	for i := 1; i <= 9; i++ {
		e.Tick(100 * time.Millisecond)
		if e.State() != Emitting {
			t.Fatalf("left Emitting after %dms", i*100)
		}
	}
	if e.ActiveCount() != 9 {
		t.Errorf("ActiveCount = %d after 9 emitting ticks, want 9", e.ActiveCount())
	}

	e.Tick(100 * time.Millisecond)
	if e.State() != Idle {
		t.Fatalf("State = %v after 1s of quiet, want idle", e.State())
	}

	before := make(map[uint64]Vec2)
	for _, p := range e.Particles() {
		before[p.ID] = Vec2{p.X, p.Y}
	}
	for i := 0; i < 5; i++ {
		e.Tick(100 * time.Millisecond)
		if e.State() != Idle {
			t.Fatalf("State = %v on idle tick %d without a trigger, want idle", e.State(), i+1)
		}
	}
	if e.ActiveCount() != len(before) {
		t.Fatalf("population changed while idle: %d -> %d", len(before), e.ActiveCount())
	}
	for _, p := range e.Particles() {
		if before[p.ID] != (Vec2{p.X, p.Y}) {
			t.Errorf("particle %d moved while idle", p.ID)
		}
	}
}

func TestEmitterDebounceRestarts(t *testing.T) {
	e := newTestEmitter(t, scrollSnowConfig(), nil)

	e.OnTrigger(WindowEvent{Active: true})
	for i := 0; i < 5; i++ {
		e.Tick(100 * time.Millisecond)
	}
	e.OnTrigger(WindowEvent{Active: true})
	for i := 0; i < 9; i++ {
		e.Tick(100 * time.Millisecond)
	}
	if e.State() != Emitting {
		t.Fatal("second trigger should have extended the window to 1.5s")
	}
	e.Tick(100 * time.Millisecond)
	if e.State() != Idle {
		t.Errorf("State = %v at 1.5s, want idle", e.State())
	}
}

func TestEmitterWindowClosedGoesIdle(t *testing.T) {
	e := newTestEmitter(t, scrollSnowConfig(), nil)
	e.OnTrigger(WindowEvent{Active: true})
	e.OnTrigger(WindowEvent{Active: false})
	if e.State() != Idle {
		t.Errorf("State = %v after window closed, want idle", e.State())
	}
	if e.Clock().Pending() != 0 {
		t.Errorf("debounce timer still pending after close")
	}
}

func TestEmitterStartStop(t *testing.T) {
	e := newTestEmitter(t, scrollSnowConfig(), nil)

	e.Start()
	e.OnTrigger(WindowEvent{Active: true})
	for i := 0; i < 30; i++ {
		e.Tick(100 * time.Millisecond)
	}
	if e.State() != Emitting {
		t.Fatal("latched emitter debounced back to idle")
	}
	e.OnTrigger(WindowEvent{Active: false})
	if e.State() != Emitting {
		t.Fatal("latched emitter left Emitting on a closed window")
	}

	e.Stop()
	if e.State() != Idle {
		t.Errorf("State = %v after Stop, want idle", e.State())
	}
	if e.ActiveCount() == 0 {
		t.Error("Stop should keep live particles")
	}
}

func TestEmitterListenFilter(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyFill,
		Capacity:  10,
		BurstSize: IntRange{2, 2},
		Listen:    ListenActivity,
		Profile:   stillProfile(),
	}, nil)

	e.OnTrigger(WindowEvent{Active: true})
	e.OnTrigger(TickEvent{})
	if e.State() != Idle {
		t.Error("filtered WindowEvent changed state")
	}
	e.Tick(FrameDuration)
	if e.ActiveCount() != 0 {
		t.Fatalf("filtered TickEvent spawned %d", e.ActiveCount())
	}
	e.OnTrigger(ActivityEvent{X: 5, Y: 5})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 2 {
		t.Errorf("ActiveCount = %d after accepted burst, want 2", e.ActiveCount())
	}
}

func TestEmitterMotionGateFreezesIdle(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyBurst,
		Capacity:  10,
		BurstSize: IntRange{3, 3},
		Motion:    MotionWhileEmitting,
		Profile:   MotionProfile{Region: RegionPoint, AngleMode: AngleFixed, Speed: Range{1, 1}},
	}, nil)

	e.OnTrigger(ActivityEvent{X: 100, Y: 100})
	e.Tick(FrameDuration)
	for i := 0; i < 10; i++ {
		e.Tick(FrameDuration)
	}
	for _, p := range e.Particles() {
		if p.X != 100 || p.Age() != 0 {
			t.Fatalf("idle particle %d moved: x=%v age=%v", p.ID, p.X, p.Age())
		}
	}

	e.Start()
	e.Tick(FrameDuration)
	for _, p := range e.Particles() {
		assertNear(t, "x after one emitting step", p.X, 101)
	}
}

// --- Velocity ---

func TestEmitterVelocityPolicy(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyVelocity,
		Capacity:  100,
		RateScale: 0.5,
		Listen:    ListenWindow,
		Profile:   stillProfile(),
	}, nil)

	e.Tick(FrameDuration)
	if e.ActiveCount() != 0 {
		t.Fatal("idle velocity emitter spawned")
	}

	e.OnTrigger(WindowEvent{Active: true, Intensity: 2})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d after one step at rate 1, want 1", e.ActiveCount())
	}
	e.Tick(100 * time.Millisecond)
	if e.ActiveCount() != 7 {
		t.Fatalf("ActiveCount = %d after six more steps, want 7", e.ActiveCount())
	}

	e.OnTrigger(WindowEvent{Active: false})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 7 {
		t.Errorf("ActiveCount = %d after window closed, want 7", e.ActiveCount())
	}
}

func TestEmitterVelocityCappedAtCapacity(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyVelocity,
		Capacity:  20,
		RateScale: 1,
		Profile:   stillProfile(),
	}, nil)

	e.OnTrigger(WindowEvent{Active: true, Intensity: 1000})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 20 {
		t.Fatalf("ActiveCount = %d, want capacity 20", e.ActiveCount())
	}
	if e.Stats().Dropped != 0 {
		t.Errorf("Dropped = %d, the accumulator should be capped at the free room", e.Stats().Dropped)
	}
}

// --- Determinism ---

func runScripted(t *testing.T, seed uint64) *Emitter {
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyBurst,
		Capacity:  200,
		BurstSize: IntRange{12, 20},
		Profile:   sparkProfile(),
		Seed:      seed,
	}, nil)
	for frame := 0; frame < 120; frame++ {
		if frame%15 == 0 {
			e.OnTrigger(ActivityEvent{X: float64(100 + frame), Y: 200})
		}
		e.Tick(FrameDuration)
	}
	return e
}

func TestEmitterDeterministicForSeed(t *testing.T) {
	a := runScripted(t, 99)
	b := runScripted(t, 99)

	if a.ActiveCount() != b.ActiveCount() {
		t.Fatalf("populations differ: %d vs %d", a.ActiveCount(), b.ActiveCount())
	}
	for i, pa := range a.Particles() {
		pb := b.Particles()[i]
		if pa.ID != pb.ID || pa.X != pb.X || pa.Y != pb.Y || pa.VX != pb.VX ||
			pa.VY != pb.VY || pa.Opacity != pb.Opacity || pa.Color != pb.Color {
			t.Fatalf("particle %d differs:\n%+v\n%+v", i, pa.Visual(), pb.Visual())
		}
	}
	if a.Stats() != b.Stats() {
		t.Errorf("stats differ: %+v vs %+v", a.Stats(), b.Stats())
	}
}

func TestEmitterSeedsDiverge(t *testing.T) {
	a := runScripted(t, 1)
	b := runScripted(t, 2)
	same := a.ActiveCount() == b.ActiveCount()
	if same {
		for i, pa := range a.Particles() {
			if pa.X != b.Particles()[i].X {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("different seeds produced identical trajectories")
	}
}

// --- Sink failures ---

type flakySink struct {
	*MemorySink
	failAttach func(id uint64) bool
	panicOn    string
	detachErr  error
}

func (s *flakySink) Attach(id uint64, v VisualState) (Handle, error) {
	if s.panicOn == "attach" {
		panic("attach exploded")
	}
	if s.failAttach != nil && s.failAttach(id) {
		return 0, errors.New("no room")
	}
	return s.MemorySink.Attach(id, v)
}

func (s *flakySink) Update(h Handle, v VisualState) {
	if s.panicOn == "update" {
		panic("update exploded")
	}
	s.MemorySink.Update(h, v)
}

func (s *flakySink) Detach(h Handle) error {
	if s.detachErr != nil {
		_ = s.MemorySink.Detach(h)
		return s.detachErr
	}
	return s.MemorySink.Detach(h)
}

func burstConfig(n int, logf func(string, ...any)) EmitterConfig {
	return EmitterConfig{
		Name:      "test",
		Policy:    PolicyBurst,
		Capacity:  50,
		BurstSize: IntRange{n, n},
		Profile:   MotionProfile{Region: RegionPoint, DecayRate: 0.5},
		Logf:      logf,
	}
}

func TestEmitterAttachFailureDiscardsParticle(t *testing.T) {
	var rec logRecorder
	sink := &flakySink{MemorySink: NewMemorySink(), failAttach: func(id uint64) bool { return id%2 == 1 }}
	e := newTestEmitter(t, burstConfig(4, rec.logf), sink)

	e.OnTrigger(ActivityEvent{X: 10, Y: 10})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 2 {
		t.Errorf("ActiveCount = %d, want 2 surviving attaches", e.ActiveCount())
	}
	st := e.Stats()
	if st.SinkFailures != 2 || st.Spawned != 2 {
		t.Errorf("stats = %+v, want 2 failures and 2 spawned", st)
	}
	if rec.count("render sink attach failed") != 2 {
		t.Errorf("log = %q", rec.lines)
	}
}

func TestEmitterAttachPanicRecovered(t *testing.T) {
	var rec logRecorder
	sink := &flakySink{MemorySink: NewMemorySink(), panicOn: "attach"}
	e := newTestEmitter(t, burstConfig(3, rec.logf), sink)

	e.OnTrigger(ActivityEvent{X: 10, Y: 10})
	e.Tick(FrameDuration)
	if e.ActiveCount() != 0 || e.Stats().SinkFailures != 3 {
		t.Errorf("count %d failures %d, want 0 and 3", e.ActiveCount(), e.Stats().SinkFailures)
	}
}

func TestEmitterUpdatePanicKeepsParticle(t *testing.T) {
	var rec logRecorder
	sink := &flakySink{MemorySink: NewMemorySink()}
	e := newTestEmitter(t, burstConfig(3, rec.logf), sink)

	e.OnTrigger(ActivityEvent{X: 10, Y: 10})
	e.Tick(FrameDuration)
	sink.panicOn = "update"
	e.Tick(FrameDuration)

	if e.ActiveCount() != 3 {
		t.Errorf("ActiveCount = %d, want 3", e.ActiveCount())
	}
	if e.Stats().SinkFailures != 3 {
		t.Errorf("SinkFailures = %d, want 3", e.Stats().SinkFailures)
	}
	if rec.count("panic: update exploded") != 3 {
		t.Errorf("log = %q", rec.lines)
	}
}

func TestEmitterDetachErrorStillRemoves(t *testing.T) {
	var rec logRecorder
	sink := &flakySink{MemorySink: NewMemorySink(), detachErr: ErrUnknownHandle}
	e := newTestEmitter(t, burstConfig(2, rec.logf), sink)

	e.OnTrigger(ActivityEvent{X: 10, Y: 10})
	e.Tick(FrameDuration)
	e.Tick(FrameDuration)
	e.Tick(FrameDuration) // decay 0.5: dead on the second step

	if e.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", e.ActiveCount())
	}
	if e.Stats().SinkFailures != 2 || e.Stats().Culled != 2 {
		t.Errorf("stats = %+v, want 2 failures and 2 culled", e.Stats())
	}
}

// --- Sweep, Resize, Close ---

func TestEmitterSweepCullsOutOfBounds(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{
		Policy:    PolicyBurst,
		Capacity:  10,
		BurstSize: IntRange{4, 4},
		Motion:    MotionWhileEmitting,
		Bounds:    Rect{Width: 300, Height: 300},
		Profile:   MotionProfile{Region: RegionPoint},
	}, nil)

	e.OnTrigger(ActivityEvent{X: 200, Y: 200})
	e.Tick(FrameDuration)
	if n := e.Sweep(); n != 0 {
		t.Fatalf("Sweep removed %d in-bounds particles", n)
	}

	e.Resize(10, 10)
	if n := e.Sweep(); n != 4 {
		t.Errorf("Sweep removed %d, want 4 stranded particles", n)
	}
	if e.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d after sweep", e.ActiveCount())
	}
}

func TestEmitterResizeWithDensity(t *testing.T) {
	sink := NewMemorySink()
	e := newTestEmitter(t, EmitterConfig{
		Policy:  PolicyFill,
		Density: 100,
		Latched: true,
		Bounds:  Rect{Width: 100, Height: 100},
		Profile: stillProfile(),
	}, sink)

	if e.Capacity() != 100 {
		t.Fatalf("Capacity = %d, want 100", e.Capacity())
	}
	e.Tick(FrameDuration)
	if e.ActiveCount() != 100 {
		t.Fatalf("ActiveCount = %d, want 100", e.ActiveCount())
	}

	e.Resize(50, 50)
	if e.Capacity() != 25 || e.Baseline() != 25 {
		t.Errorf("capacity %d baseline %d after resize, want 25", e.Capacity(), e.Baseline())
	}
	if e.ActiveCount() != 25 || sink.Len() != 25 {
		t.Errorf("count %d sink %d after resize, want 25", e.ActiveCount(), sink.Len())
	}
	if e.Bounds().Width != 50 {
		t.Errorf("Bounds = %+v", e.Bounds())
	}
}

func TestEmitterResizeWithoutDensityKeepsCapacity(t *testing.T) {
	e := newTestEmitter(t, EmitterConfig{Capacity: 12, Profile: stillProfile()}, nil)
	e.Resize(10, 10)
	if e.Capacity() != 12 {
		t.Errorf("Capacity = %d, want 12", e.Capacity())
	}
}

func TestEmitterClose(t *testing.T) {
	sink := NewMemorySink()
	e := newTestEmitter(t, scrollSnowConfig(), sink)
	e.OnTrigger(WindowEvent{Active: true})
	e.Tick(FrameDuration)
	e.Tick(FrameDuration)

	e.Close()
	if !e.Closed() || e.HasWork() {
		t.Fatal("closed emitter should report Closed and no work")
	}
	if sink.Len() != 0 || e.ActiveCount() != 0 {
		t.Errorf("sink %d count %d after Close, want 0", sink.Len(), e.ActiveCount())
	}
	if e.Clock().Pending() != 0 {
		t.Error("debounce timer survived Close")
	}

	e.OnTrigger(WindowEvent{Active: true})
	e.Tick(FrameDuration)
	e.Start()
	if e.ActiveCount() != 0 || e.State() != Idle {
		t.Error("closed emitter reacted to triggers")
	}
	e.Close()
}
