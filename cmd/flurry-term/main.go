// Flurry-term runs the built-in particle effects in a terminal. Click to
// burst, use the mouse wheel (or j/k) to scroll, space sends a heartbeat and
// q or Esc quits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/phanxgames/flurry"
	"github.com/phanxgames/flurry/internal/config"
	"github.com/phanxgames/flurry/term"
)

const (
	frameInterval = 16 * time.Millisecond // ~60 FPS
	maxElapsed    = 100 * time.Millisecond
	scrollStep    = 60.0
)

type effect struct {
	emitter *flurry.Emitter
	sink    *term.Sink
	ticker  flurry.Ticker
}

type app struct {
	screen    tcell.Screen
	scheduler *flurry.Scheduler
	router    *flurry.Router
	effects   []*effect
	grid      *term.Sink // cell geometry shared by every sink
	chime     *chime
	pressed   bool
	cols      int
	rows      int
	status    bool
}

func main() {
	cfg, err := config.LoadDemo()
	if err != nil {
		config.Exitf("flurry-term: %v", err)
	}
	effects := flag.String("effects", strings.Join(cfg.Effects, ","), "comma-separated effects to run")
	effectsFile := flag.String("effects-file", cfg.EffectsFile, "YAML effects file replacing the built-in set")
	seed := flag.Uint64("seed", cfg.Seed, "random seed; 0 uses the clock")
	sound := flag.Bool("sound", cfg.Sound, "chime on bursts")
	status := flag.Bool("status", cfg.FPS, "show a status line")
	flag.Parse()

	set := flurry.DefaultEffects()
	if *effectsFile != "" {
		if set, err = flurry.LoadEffectsFile(*effectsFile); err != nil {
			config.Exitf("flurry-term: %v", err)
		}
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		config.Exitf("flurry-term: %v", err)
	}
	if err := screen.Init(); err != nil {
		config.Exitf("flurry-term: %v", err)
	}
	screen.EnableMouse()
	screen.HideCursor()

	a := &app{
		screen:    screen,
		scheduler: flurry.NewScheduler(flurry.SchedulerConfig{Mode: flurry.Persistent, Logf: discardf}),
		router:    flurry.NewRouter(flurry.DefaultScrollThreshold),
		grid:      term.NewSink(""),
		status:    *status,
	}
	defer a.close()

	// The terminal may report a zero size until the first resize arrives.
	err = flurry.AwaitSurface(context.Background(), term.ScreenSurface(screen), flurry.DefaultRetry, nil)
	if errors.Is(err, flurry.ErrSurfaceUnavailable) {
		return
	}
	a.cols, a.rows = screen.Size()

	if *sound {
		if a.chime, err = newChime(); err != nil {
			log.Printf("[flurry] audio initialization failed: %v", err)
		}
	}

	for i, name := range strings.Split(*effects, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fx, ok := set.Lookup(name)
		if !ok {
			screen.Fini()
			config.Exitf("flurry-term: unknown effect %q", name)
		}
		if err := a.add(fx, *seed+uint64(i)); err != nil {
			screen.Fini()
			config.Exitf("flurry-term: %v", err)
		}
	}
	a.scheduler.Start()
	a.run()
}

func discardf(string, ...any) {}

func (a *app) add(fx flurry.Effect, seed uint64) error {
	sink := term.NewSink(fx.Name)
	cfg := fx.EmitterConfig(sink.Bounds(a.cols, a.rows), seed)
	cfg.Logf = discardf
	em, err := flurry.NewEmitter(cfg, sink)
	if err != nil {
		return fmt.Errorf("effect %q: %w", fx.Name, err)
	}
	a.effects = append(a.effects, &effect{emitter: em, sink: sink, ticker: flurry.Ticker{Interval: fx.Heartbeat}})
	a.scheduler.Register(em)
	a.router.Add(em)
	return nil
}

func (a *app) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(eventChan)
				return
			}
			eventChan <- ev
		}
	}()

	last := time.Now()
	for {
		select {
		case ev, ok := <-eventChan:
			if !ok || !a.handle(ev) {
				return
			}

		case now := <-ticker.C:
			elapsed := min(now.Sub(last), maxElapsed)
			last = now
			for _, fx := range a.effects {
				for n := fx.ticker.Advance(elapsed); n > 0; n-- {
					fx.emitter.OnTrigger(flurry.TickEvent{DT: fx.ticker.Interval})
				}
			}
			a.scheduler.Frame(elapsed)
			a.draw()
		}
	}
}

// handle applies one terminal event and reports whether to keep running.
func (a *app) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				a.router.Heartbeat()
			case 'j':
				a.router.ScrollBy(scrollStep)
			case 'k':
				a.router.ScrollBy(-scrollStep)
			}
		}

	case *tcell.EventMouse:
		buttons := ev.Buttons()
		if buttons&tcell.Button1 != 0 && !a.pressed {
			col, row := ev.Position()
			x, y := a.grid.World(col, row)
			a.router.Click(x, y)
			a.chime.play(x, float64(a.cols)*a.grid.CellWidth)
		}
		a.pressed = buttons&tcell.Button1 != 0
		if buttons&tcell.WheelDown != 0 {
			a.router.ScrollBy(scrollStep)
		}
		if buttons&tcell.WheelUp != 0 {
			a.router.ScrollBy(-scrollStep)
		}

	case *tcell.EventResize:
		a.screen.Sync()
		a.cols, a.rows = a.screen.Size()
		b := a.grid.Bounds(a.cols, a.rows)
		a.router.Resize(b.Width, b.Height)
	}
	return true
}

func (a *app) draw() {
	a.screen.Clear()
	for _, fx := range a.effects {
		fx.sink.Draw(a.screen)
	}
	if a.status {
		msg := fmt.Sprintf(" particles: %d  frames: %d ", a.scheduler.ParticleCount(), a.scheduler.Frames())
		style := tcell.StyleDefault.Reverse(true)
		for i, r := range msg {
			a.screen.SetContent(i, a.rows-1, r, nil, style)
		}
	}
	a.screen.Show()
}

func (a *app) close() {
	a.scheduler.Stop()
	a.chime.close()
	a.screen.Fini()
}
