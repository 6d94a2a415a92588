package flurry

import (
	"math"
	"math/rand/v2"
	"time"
)

// NominalFPS is the display rate a single simulation step corresponds to.
// A frame of 1/NominalFPS seconds advances particles by dt = 1.
const NominalFPS = 60

// FrameDuration is the elapsed time of one nominal frame.
const FrameDuration = time.Second / NominalFPS

// Steps converts elapsed wall time to simulation steps. Whole frame counts
// are snapped so that FrameDuration, which is not exact in nanoseconds,
// advances exactly one step.
func Steps(elapsed time.Duration) float64 {
	dt := elapsed.Seconds() * NominalFPS
	if r := math.Round(dt); math.Abs(dt-r) < 1e-6 {
		return r
	}
	return dt
}

// opacityEpsilon absorbs the rounding left over by repeated subtraction so
// that a particle dies on the step its decay budget is exhausted.
const opacityEpsilon = 1e-9

// Particle is a single simulated entity. Particles are owned by their Emitter;
// the exported fields are a read-only view for sinks and tests.
type Particle struct {
	ID uint64
	// X and Y are the rendered position, wobble offset included.
	X, Y     float64
	VX, VY   float64
	Size     float64
	Opacity  float64
	Rotation float64 // degrees
	Color    Color
	Alive    bool

	profile *MotionProfile
	rng     *rand.Rand

	cx          float64 // integrated x without wobble
	wobblePhase float64
	wobbleFreq  float64

	cycleAt      float64 // seconds between palette picks
	cycleElapsed float64
	fadeFrom     Color
	fadeTo       Color
	fadeElapsed  float64
	fading       bool

	age      float64 // steps lived
	duration float64 // seconds, 0 when no budget
	path     *pathTween

	handle   Handle
	attached bool
}

// spawnParticle initializes a particle from profile. When explicit is false the
// origin is drawn from the profile's spawn region and the given origin is
// ignored. Draw order is fixed so a seeded rng reproduces the same particle.
func spawnParticle(profile *MotionProfile, id uint64, origin Vec2, explicit bool, bounds Rect, rng *rand.Rand) *Particle {
	if !explicit {
		origin = profile.spawnOrigin(bounds, rng)
	}
	p := &Particle{
		ID:      id,
		X:       origin.X,
		Y:       origin.Y,
		Alive:   true,
		profile: profile,
		rng:     rng,
	}

	p.Size = profile.Size.Random(rng)
	p.Opacity = profile.Opacity.Random(rng)

	angle := profile.launchAngle(rng)
	speed := profile.Speed.Random(rng)
	p.VX = math.Cos(angle) * speed
	p.VY = math.Sin(angle) * speed

	p.Color = profile.pickColor(rng)

	p.wobblePhase = rng.Float64() * 2 * math.Pi
	p.wobbleFreq = profile.WobbleFrequency.Random(rng)
	// Shift the wobble center so the first rendered position is the origin.
	p.cx = origin.X - math.Sin(p.wobblePhase)*profile.WobbleAmplitude

	if profile.ColorCycle.Max > 0 {
		p.cycleAt = profile.ColorCycle.Random(rng)
	}
	if profile.durationMode() {
		p.duration = profile.Duration.Random(rng)
		p.path = newPathTween(origin.Y, bounds.Bottom()+profile.Travel, profile.Spin, p.duration)
	}
	return p
}

// Step advances the particle by dt steps and reports whether it is still
// alive. It touches nothing but the particle's own state.
func (p *Particle) Step(dt float64, bounds Rect) bool {
	if !p.Alive {
		return false
	}
	m := p.profile
	seconds := dt / NominalFPS

	// Drag, then gravity.
	if m.Drag != 1 {
		k := math.Pow(m.Drag, dt)
		p.VX *= k
		p.VY *= k
	}
	p.VY += m.Gravity * dt

	// Integrate.
	p.cx += p.VX * dt
	expired := false
	if p.path != nil {
		y, rot, done := p.path.update(seconds)
		p.Y = y
		p.Rotation = rot
		expired = done
	} else {
		p.Y += p.VY * dt
		p.Rotation = math.Mod(p.Rotation+m.Spin*dt, 360)
	}

	// Wobble.
	p.X = p.cx + math.Sin(p.wobblePhase)*m.WobbleAmplitude
	p.wobblePhase += p.wobbleFreq * dt

	// Fade.
	if m.DecayRate > 0 {
		p.Opacity -= m.DecayRate * dt
		if p.Opacity < opacityEpsilon {
			p.Opacity = 0
		}
	}

	p.cycleColor(seconds)
	p.age += dt

	if expired || p.Opacity <= 0 || !p.inBounds(bounds) {
		p.Alive = false
	}
	return p.Alive
}

// Age returns the number of steps the particle has lived.
func (p *Particle) Age() float64 {
	return p.age
}

// Visual returns the state a RenderSink needs to draw the particle.
func (p *Particle) Visual() VisualState {
	return VisualState{
		X:        p.X,
		Y:        p.Y,
		Size:     p.Size,
		Opacity:  p.Opacity,
		Rotation: p.Rotation,
		Color:    p.Color,
		Shape:    p.profile.Shape,
	}
}

// inBounds reports whether the rendered position lies within bounds grown by
// the profile margin.
func (p *Particle) inBounds(bounds Rect) bool {
	return bounds.Inset(p.profile.Margin).Contains(p.X, p.Y)
}

// cycleColor advances an in-progress fade and re-picks a palette color when
// the cycle interval elapses.
func (p *Particle) cycleColor(seconds float64) {
	m := p.profile
	if p.fading {
		p.fadeElapsed += seconds
		t := p.fadeElapsed / m.ColorFade
		if t >= 1 {
			t = 1
			p.fading = false
		}
		p.Color = p.fadeFrom.Blend(p.fadeTo, t)
	}
	if p.cycleAt <= 0 || len(m.Palette) == 0 {
		return
	}
	p.cycleElapsed += seconds
	if p.cycleElapsed < p.cycleAt {
		return
	}
	p.cycleElapsed = 0
	p.cycleAt = m.ColorCycle.Random(p.rng)
	next := m.Palette[p.rng.IntN(len(m.Palette))]
	if m.ColorFade > 0 {
		p.fadeFrom = p.Color
		p.fadeTo = next
		p.fadeElapsed = 0
		p.fading = true
		return
	}
	p.Color = next
}
