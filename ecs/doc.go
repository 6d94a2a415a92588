// Package ecs provides an ECS render sink for flurry.
//
// [Sink] mirrors every live particle as a [Donburi] entity carrying a
// [Particle] component, so game systems can query particles alongside their
// own entities. Attach and detach are also published as typed events.
//
// Usage:
//
//	world := donburi.NewWorld()
//	em, _ := flurry.NewEmitter(cfg, ecs.NewSink(world, "sparks"))
//	ecs.AttachedEventType.Subscribe(world, onSpark)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
