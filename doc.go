// Package flurry is a particle lifecycle and animation loop engine for
// decorative effects: snowfall, click sparks, floating hearts, drifting petals.
//
// Each particle kind is data. A [MotionProfile] describes the physics and
// appearance of one kind, and an [Emitter] owns a bounded population of it,
// spawning on [TriggerEvent]s and drawing through a [RenderSink]. A
// [Scheduler] advances every registered emitter once per display frame.
//
// # Quick start
//
// The simplest way to get started is [Stage], an [ebiten.Game] hosting a
// scheduler and a [Canvas]:
//
//	stage := flurry.NewStage(flurry.StageConfig{Width: 800, Height: 600})
//	fx, _ := flurry.DefaultEffects().Lookup("snow")
//	stage.AddEffect(fx, 1)
//	flurry.Run(stage, flurry.RunConfig{Title: "Snow"})
//
// For full control, build emitters yourself and call [Scheduler.Frame] from
// your own loop:
//
//	sched := flurry.NewScheduler(flurry.SchedulerConfig{})
//	em, err := flurry.NewEmitter(flurry.EmitterConfig{
//		Name:    "sparks",
//		Profile: profile,
//		Policy:  flurry.PolicyBurst,
//		Bounds:  flurry.Rect{Width: w, Height: h},
//	}, sink)
//	sched.Register(em)
//	sched.Start()
//	// each frame:
//	em.OnTrigger(flurry.ActivityEvent{X: x, Y: y})
//	sched.Frame(elapsed)
//
// # Time
//
// Motion is integrated in steps of 1/[NominalFPS] seconds, so per-step values
// such as Gravity and DecayRate keep their meaning at any frame rate. Timers
// (debounce, maintenance) run on a [FrameClock] that only advances inside a
// frame; nothing in the engine starts a goroutine.
//
// # Effects files
//
// Effects are YAML documents loaded with [LoadEffects] or [LoadEffectsFile].
// [DefaultEffects] returns the built-in set.
//
// Terminal and ECS sinks live in the term and ecs subpackages.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package flurry
