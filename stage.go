package flurry

import (
	"fmt"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Defaults for StageConfig fields left at zero.
const (
	DefaultScrollThreshold = 50.0
	DefaultWheelScale      = 40.0
)

// StageConfig configures a Stage.
type StageConfig struct {
	Width, Height int
	Background    Color
	// Surface gates emitter registration. Nil means the surface is ready on
	// the first frame.
	Surface Surface
	// Retry bounds the surface poll. The poll runs on frame time, so it
	// never blocks Update.
	Retry RetryConfig
	Mode  SchedulerMode
	// ScrollThreshold is the scroll distance that opens an activity window.
	ScrollThreshold float64
	// WheelScale converts mouse wheel notches to scroll units.
	WheelScale float64
	ShowFPS    bool
	Debug      bool
	Logf       func(format string, args ...any)
}

// stageEffect is a registered effect and its heartbeat.
type stageEffect struct {
	emitter *Emitter
	ticker  Ticker
}

type injectedGesture struct {
	click  bool
	x, y   float64
	scroll float64
}

// Stage hosts a Scheduler and a Canvas as an ebiten.Game. Mouse and touch
// presses become bursts, the wheel drives the scroll tracker and window size
// changes resize every emitter.
type Stage struct {
	cfg       StageConfig
	scheduler *Scheduler
	canvas    *Canvas
	router    *Router
	clock     FrameClock
	effects   []*stageEffect
	pending   []*stageEffect

	ready     bool
	abandoned bool
	attempts  int
	poll      *Timer

	width, height    int
	layoutW, layoutH int
	layoutDirty      bool
	script           *Script
	injectQueue      []injectedGesture
	touchBuf         []ebiten.TouchID
	debug            bool
}

// NewStage creates a Stage and starts its scheduler. Emitters added before
// the surface is ready are registered once it is.
func NewStage(cfg StageConfig) *Stage {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	if cfg.ScrollThreshold <= 0 {
		cfg.ScrollThreshold = DefaultScrollThreshold
	}
	if cfg.WheelScale <= 0 {
		cfg.WheelScale = DefaultWheelScale
	}
	if cfg.Retry.Interval <= 0 {
		cfg.Retry.Interval = DefaultRetry.Interval
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = DefaultRetry.MaxAttempts
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	s := &Stage{
		cfg:       cfg,
		scheduler: NewScheduler(SchedulerConfig{Mode: cfg.Mode, Logf: cfg.Logf}),
		canvas:    NewCanvas(),
		router:    NewRouter(cfg.ScrollThreshold),
		width:     cfg.Width,
		height:    cfg.Height,
		layoutW:   cfg.Width,
		layoutH:   cfg.Height,
	}
	s.SetDebugMode(cfg.Debug)
	s.scheduler.Start()
	s.pollSurface()
	return s
}

// Scheduler returns the stage's scheduler.
func (s *Stage) Scheduler() *Scheduler { return s.scheduler }

// Canvas returns the stage's canvas.
func (s *Stage) Canvas() *Canvas { return s.canvas }

// Ready reports whether the surface became ready.
func (s *Stage) Ready() bool { return s.ready }

// Abandoned reports whether the surface never became ready within the retry
// ceiling. An abandoned stage draws nothing.
func (s *Stage) Abandoned() bool { return s.abandoned }

// Size returns the current viewport size.
func (s *Stage) Size() (int, int) { return s.width, s.height }

// SetDebugMode enables debug logging in the stage and its scheduler.
func (s *Stage) SetDebugMode(enabled bool) {
	s.debug = enabled
	s.scheduler.SetDebugMode(enabled)
}

// SetScript attaches a trigger script, stepped once per frame before input.
func (s *Stage) SetScript(sc *Script) {
	s.script = sc
}

// pollSurface checks readiness and reschedules itself on the stage clock
// until the surface is ready or the attempt ceiling is reached.
func (s *Stage) pollSurface() {
	s.poll = nil
	if s.cfg.Surface == nil || s.cfg.Surface.IsReady() {
		s.ready = true
		for _, fx := range s.pending {
			s.register(fx)
		}
		s.pending = nil
		return
	}
	s.attempts++
	if s.attempts >= s.cfg.Retry.MaxAttempts {
		s.abandoned = true
		s.cfg.Logf("[flurry] stage: %v after %d attempts, effects disabled", ErrSurfaceUnavailable, s.attempts)
		for _, fx := range s.pending {
			fx.emitter.Close()
		}
		s.pending = nil
		return
	}
	s.poll = s.clock.AfterFunc(s.cfg.Retry.Interval, s.pollSurface)
}

// AddEffect creates an emitter for fx on its own canvas layer. An effect
// already registered under the same name is closed and replaced.
func (s *Stage) AddEffect(fx Effect, seed uint64) (*Emitter, error) {
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	if s.abandoned {
		return nil, ErrSurfaceUnavailable
	}
	s.RemoveEffect(fx.Name)

	layer := s.canvas.Layer(fx.Name)
	layer.Blend = fx.Blend
	cfg := fx.EmitterConfig(s.bounds(), seed)
	cfg.Logf = s.cfg.Logf
	e, err := NewEmitter(cfg, layer)
	if err != nil {
		s.canvas.RemoveLayer(fx.Name)
		return nil, fmt.Errorf("add effect %q: %w", fx.Name, err)
	}
	se := &stageEffect{emitter: e, ticker: Ticker{Interval: fx.Heartbeat}}
	if s.ready {
		s.register(se)
	} else {
		s.pending = append(s.pending, se)
	}
	return e, nil
}

func (s *Stage) register(se *stageEffect) {
	s.effects = append(s.effects, se)
	s.scheduler.Register(se.emitter)
	s.router.Add(se.emitter)
	if s.debug {
		s.cfg.Logf("[flurry] stage: registered %s (capacity %d)", se.emitter.Name(), se.emitter.Capacity())
	}
}

// RemoveEffect closes and removes the named effect and its layer.
func (s *Stage) RemoveEffect(name string) bool {
	removed := false
	for i, se := range s.effects {
		if se.emitter.Name() == name {
			s.router.Remove(se.emitter)
			s.scheduler.Unregister(se.emitter)
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			removed = true
			break
		}
	}
	for i, se := range s.pending {
		if se.emitter.Name() == name {
			se.emitter.Close()
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		s.canvas.RemoveLayer(name)
	}
	return removed
}

// Effect returns the emitter registered under name.
func (s *Stage) Effect(name string) (*Emitter, bool) {
	return s.scheduler.Emitter(name)
}

func (s *Stage) bounds() Rect {
	return Rect{Width: float64(s.width), Height: float64(s.height)}
}

// Click bursts every effect at (x, y).
func (s *Stage) Click(x, y float64) { s.router.Click(x, y) }

// ScrollBy moves the virtual scroll position by delta.
func (s *Stage) ScrollBy(delta float64) { s.router.ScrollBy(delta) }

// ScrollTo sets the virtual scroll position.
func (s *Stage) ScrollTo(pos float64) { s.router.ScrollTo(pos) }

// Heartbeat sends a TickEvent to every effect.
func (s *Stage) Heartbeat() { s.router.Heartbeat() }

// Resize changes the viewport. Density-scaled effects recompute capacity.
func (s *Stage) Resize(width, height float64) {
	s.width, s.height = int(width), int(height)
	s.router.Resize(width, height)
	for _, se := range s.pending {
		se.emitter.Resize(width, height)
	}
}

// InjectClick queues a synthetic click, applied on the next Update.
func (s *Stage) InjectClick(x, y float64) {
	s.injectQueue = append(s.injectQueue, injectedGesture{click: true, x: x, y: y})
}

// InjectScroll queues a synthetic scroll of delta units.
func (s *Stage) InjectScroll(delta float64) {
	s.injectQueue = append(s.injectQueue, injectedGesture{scroll: delta})
}

// Update implements ebiten.Game.
func (s *Stage) Update() error {
	elapsed := time.Second / time.Duration(ebiten.TPS())
	if s.ready {
		s.readInput()
	}
	s.Advance(elapsed)
	return nil
}

// Advance runs one frame of elapsed time without reading real input. Update
// calls it; headless hosts call it directly.
func (s *Stage) Advance(elapsed time.Duration) {
	s.clock.Advance(elapsed)
	if !s.ready {
		return
	}
	if s.layoutDirty {
		s.layoutDirty = false
		s.Resize(float64(s.layoutW), float64(s.layoutH))
	}
	if s.script != nil {
		s.script.Step(s)
	}
	for _, g := range s.injectQueue {
		if g.click {
			s.Click(g.x, g.y)
		} else {
			s.ScrollBy(g.scroll)
		}
	}
	s.injectQueue = s.injectQueue[:0]

	for _, se := range s.effects {
		for n := se.ticker.Advance(elapsed); n > 0; n-- {
			se.emitter.OnTrigger(TickEvent{DT: se.ticker.Interval})
		}
	}
	s.scheduler.Frame(elapsed)
}

// readInput turns mouse, touch and wheel input into gestures.
func (s *Stage) readInput() {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		s.Click(float64(x), float64(y))
	}
	s.touchBuf = inpututil.AppendJustPressedTouchIDs(s.touchBuf[:0])
	for _, id := range s.touchBuf {
		x, y := ebiten.TouchPosition(id)
		s.Click(float64(x), float64(y))
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		s.ScrollBy(-dy * s.cfg.WheelScale)
	}
}

// Draw implements ebiten.Game.
func (s *Stage) Draw(screen *ebiten.Image) {
	if !s.cfg.Background.IsZero() {
		screen.Fill(s.cfg.Background.toRGBA())
	}
	if !s.ready {
		return
	}
	s.canvas.Draw(screen)
	if s.cfg.ShowFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f\nParticles: %d",
			ebiten.ActualFPS(), ebiten.ActualTPS(), s.scheduler.ParticleCount()))
	}
}

// Layout implements ebiten.Game. Size changes are applied on the next Update.
func (s *Stage) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != s.layoutW || outsideHeight != s.layoutH {
		s.layoutW, s.layoutH = outsideWidth, outsideHeight
		s.layoutDirty = true
	}
	return outsideWidth, outsideHeight
}

// Close stops the scheduler, closing every emitter.
func (s *Stage) Close() {
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
	for _, se := range s.pending {
		se.emitter.Close()
	}
	s.pending = nil
	s.effects = nil
	s.scheduler.Stop()
}

// RunConfig holds optional parameters for Run.
type RunConfig struct {
	Title string
	// Width and Height set the window size. Zero uses the stage size.
	Width, Height int
	Resizable     bool
}

// Run opens a window and runs the stage until it is closed.
func Run(s *Stage, cfg RunConfig) error {
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = s.Size()
	}
	ebiten.SetWindowSize(w, h)
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	defer s.Close()
	return ebiten.RunGame(s)
}

// toRGBA converts to 8-bit non-premultiplied RGBA.
func (c Color) toRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c.R)*255 + 0.5),
		G: uint8(clamp01(c.G)*255 + 0.5),
		B: uint8(clamp01(c.B)*255 + 0.5),
		A: uint8(clamp01(c.A)*255 + 0.5),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
