package ecs

import (
	"github.com/phanxgames/flurry"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// ParticleData is the component stored on every particle entity.
type ParticleData struct {
	// Effect is the name of the sink the particle was attached through.
	Effect string
	ID     uint64
	Visual flurry.VisualState
}

// Particle is the Donburi component type holding ParticleData.
var Particle = donburi.NewComponentType[ParticleData]()

// ParticleEvent reports a particle entering or leaving the world.
type ParticleEvent struct {
	Effect string
	ID     uint64
	Entity donburi.Entity
	Visual flurry.VisualState
}

// AttachedEventType is published when a particle entity is created.
var AttachedEventType = events.NewEventType[ParticleEvent]()

// DetachedEventType is published just before a particle entity is removed.
var DetachedEventType = events.NewEventType[ParticleEvent]()

var particleQuery = donburi.NewQuery(filter.Contains(Particle))

// Sink is a flurry.RenderSink that mirrors particles as Donburi entities.
type Sink struct {
	world    donburi.World
	name     string
	entities map[flurry.Handle]donburi.Entity
	next     flurry.Handle
}

// NewSink creates a Sink that creates entities in world. name tags every
// entity so systems can tell effects apart.
func NewSink(world donburi.World, name string) *Sink {
	return &Sink{
		world:    world,
		name:     name,
		entities: make(map[flurry.Handle]donburi.Entity),
	}
}

// Attach creates an entity for the particle.
func (s *Sink) Attach(id uint64, state flurry.VisualState) (flurry.Handle, error) {
	entity := s.world.Create(Particle)
	Particle.SetValue(s.world.Entry(entity), ParticleData{Effect: s.name, ID: id, Visual: state})

	s.next++
	s.entities[s.next] = entity
	AttachedEventType.Publish(s.world, ParticleEvent{Effect: s.name, ID: id, Entity: entity, Visual: state})
	return s.next, nil
}

// Update writes the new visual into the entity's component.
func (s *Sink) Update(h flurry.Handle, state flurry.VisualState) {
	entity, ok := s.entities[h]
	if !ok || !s.world.Valid(entity) {
		return
	}
	Particle.Get(s.world.Entry(entity)).Visual = state
}

// Detach removes the entity. Unknown handles are ignored.
func (s *Sink) Detach(h flurry.Handle) error {
	entity, ok := s.entities[h]
	if !ok {
		return nil
	}
	delete(s.entities, h)
	if !s.world.Valid(entity) {
		return nil
	}
	data := Particle.Get(s.world.Entry(entity))
	DetachedEventType.Publish(s.world, ParticleEvent{Effect: s.name, ID: data.ID, Entity: entity, Visual: data.Visual})
	s.world.Remove(entity)
	return nil
}

// Len returns the number of entities this sink owns.
func (s *Sink) Len() int {
	return len(s.entities)
}

// Count returns the number of particle entities in world, across all sinks.
func Count(world donburi.World) int {
	return particleQuery.Count(world)
}

// Each calls fn for every particle entity in world.
func Each(world donburi.World, fn func(*ParticleData)) {
	particleQuery.Each(world, func(entry *donburi.Entry) {
		fn(Particle.Get(entry))
	})
}
