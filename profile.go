package flurry

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrInvalidProfile is returned when a MotionProfile or effect definition
// violates its construction contract (degenerate range, negative rate, ...).
// Such profiles are rejected, never clamped.
var ErrInvalidProfile = errors.New("flurry: invalid motion profile")

// DefaultMargin is the cull margin used when a profile leaves Margin unset.
const DefaultMargin = 50.0

// AngleMode selects how a particle's launch direction is drawn.
type AngleMode uint8

const (
	AngleFixed   AngleMode = iota // Direction ± Jitter
	AngleUniform                  // any direction
	AngleUpward                   // straight up ± Jitter
)

var angleModeNames = []string{"fixed", "uniform", "upward"}

func (m AngleMode) String() string {
	if int(m) < len(angleModeNames) {
		return angleModeNames[m]
	}
	return fmt.Sprintf("AngleMode(%d)", m)
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (m *AngleMode) UnmarshalText(text []byte) error {
	i, err := lookupName("angle mode", angleModeNames, string(text))
	*m = AngleMode(i)
	return err
}

// SpawnRegion selects where ambient (non-interaction) particles appear.
type SpawnRegion uint8

const (
	RegionTop    SpawnRegion = iota // random x along the top edge
	RegionBottom                    // random x along the bottom edge
	RegionArea                      // anywhere inside the bounds
	RegionPoint                     // bounds center; bursts supply their own point
)

var spawnRegionNames = []string{"top", "bottom", "area", "point"}

func (r SpawnRegion) String() string {
	if int(r) < len(spawnRegionNames) {
		return spawnRegionNames[r]
	}
	return fmt.Sprintf("SpawnRegion(%d)", r)
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (r *SpawnRegion) UnmarshalText(text []byte) error {
	i, err := lookupName("spawn region", spawnRegionNames, string(text))
	*r = SpawnRegion(i)
	return err
}

// MotionProfile parametrizes one particle kind's physics and appearance.
// It is pure data: every particle of a kind shares the same profile, and the
// per-particle variation comes from uniform draws within its ranges.
//
// Per-step quantities (Speed, Gravity, WobbleFrequency, DecayRate, Spin outside
// duration mode) are expressed in steps of 1/NominalFPS seconds.
type MotionProfile struct {
	Name string `yaml:"name"`

	// Speed is the initial speed range in units per step.
	Speed     Range     `yaml:"speed"`
	AngleMode AngleMode `yaml:"angleMode"`
	// Direction is the launch angle in radians for AngleFixed (0 = right,
	// π/2 = down).
	Direction float64 `yaml:"direction"`
	// Jitter is the half-width of the random spread around the launch angle.
	Jitter float64 `yaml:"jitter"`

	// Gravity is added to the vertical velocity every step.
	Gravity float64 `yaml:"gravity"`
	// Drag multiplies velocity every step. 1 means no drag; 0 is treated as
	// unset and also means no drag.
	Drag float64 `yaml:"drag"`

	WobbleAmplitude float64 `yaml:"wobbleAmplitude"`
	// WobbleFrequency is the wobble phase advance per step, in radians.
	WobbleFrequency Range `yaml:"wobbleFrequency"`

	// DecayRate is the opacity lost per step.
	DecayRate float64 `yaml:"decayRate"`

	// Duration, when its Max is positive, switches the kind to fixed-duration
	// animation: the particle follows a linear path from its spawn row to
	// Travel units below the bottom edge, rotating through Spin degrees, and
	// dies when the drawn duration (seconds) elapses.
	Duration Range   `yaml:"duration"`
	Travel   float64 `yaml:"travel"`
	// Spin is total degrees over the path in duration mode, degrees per step
	// otherwise.
	Spin float64 `yaml:"spin"`

	Size    Range `yaml:"size"`
	Opacity Range `yaml:"opacity"`

	// Palette lists candidate colors; empty means every particle uses Color.
	Palette []Color `yaml:"palette"`
	Color   Color   `yaml:"color"`
	// ColorCycle is the interval range, in seconds, between random palette
	// re-picks. Zero disables cycling.
	ColorCycle Range `yaml:"colorCycle"`
	// ColorFade is how long, in seconds, a re-picked color takes to blend in.
	ColorFade float64 `yaml:"colorFade"`

	Region SpawnRegion `yaml:"region"`
	// Offset is the signed distance from the spawn edge. Negative values
	// place particles outside the visible region.
	Offset float64 `yaml:"offset"`
	// Margin is how far past the bounds a particle may travel before it is
	// culled.
	Margin float64 `yaml:"margin"`

	// Shape names the visual used by sinks that draw glyphs or sprites
	// ("dot", "flake", "heart", "petal", "spark").
	Shape string `yaml:"shape"`
}

// Validate reports the first contract violation in the profile. Errors wrap
// ErrInvalidProfile.
func (m *MotionProfile) Validate() error {
	ranges := []struct {
		name string
		r    Range
	}{
		{"speed", m.Speed},
		{"wobbleFrequency", m.WobbleFrequency},
		{"duration", m.Duration},
		{"size", m.Size},
		{"opacity", m.Opacity},
		{"colorCycle", m.ColorCycle},
	}
	for _, rr := range ranges {
		if err := rr.r.validate(rr.name); err != nil {
			return m.wrap(err)
		}
	}

	scalars := []struct {
		name string
		v    float64
	}{
		{"gravity", m.Gravity},
		{"drag", m.Drag},
		{"decayRate", m.DecayRate},
		{"wobbleAmplitude", m.WobbleAmplitude},
		{"margin", m.Margin},
		{"travel", m.Travel},
		{"colorFade", m.ColorFade},
		{"jitter", m.Jitter},
	}
	for _, s := range scalars {
		if !finite(s.v) || s.v < 0 {
			return m.wrap(fmt.Errorf("%w: %s must be finite and >= 0, got %v", ErrInvalidProfile, s.name, s.v))
		}
	}
	if !finite(m.Direction) || !finite(m.Spin) || !finite(m.Offset) {
		return m.wrap(fmt.Errorf("%w: direction, spin and offset must be finite", ErrInvalidProfile))
	}
	if m.Drag > 1 {
		return m.wrap(fmt.Errorf("%w: drag must be <= 1, got %v", ErrInvalidProfile, m.Drag))
	}
	if m.Opacity.Min < 0 || m.Opacity.Max > 1 {
		return m.wrap(fmt.Errorf("%w: opacity must lie within [0, 1], got [%v, %v]", ErrInvalidProfile, m.Opacity.Min, m.Opacity.Max))
	}
	if m.Speed.Min < 0 || m.Size.Min < 0 || m.Duration.Min < 0 || m.ColorCycle.Min < 0 {
		return m.wrap(fmt.Errorf("%w: speed, size, duration and colorCycle must be >= 0", ErrInvalidProfile))
	}
	if m.ColorCycle.Max > 0 && m.ColorCycle.Min == 0 {
		return m.wrap(fmt.Errorf("%w: colorCycle min must be > 0 when cycling is enabled", ErrInvalidProfile))
	}
	if m.AngleMode > AngleUpward {
		return m.wrap(fmt.Errorf("%w: unknown angle mode %d", ErrInvalidProfile, m.AngleMode))
	}
	if m.Region > RegionPoint {
		return m.wrap(fmt.Errorf("%w: unknown spawn region %d", ErrInvalidProfile, m.Region))
	}
	margin := m.Margin
	if margin == 0 {
		margin = DefaultMargin
	}
	if (m.Region == RegionTop || m.Region == RegionBottom) && m.Offset < -margin {
		return m.wrap(fmt.Errorf("%w: offset %.1f lies beyond the cull margin %.1f", ErrInvalidProfile, m.Offset, margin))
	}
	return nil
}

func (m *MotionProfile) wrap(err error) error {
	if m.Name == "" {
		return err
	}
	return fmt.Errorf("profile %q: %w", m.Name, err)
}

// withDefaults returns a copy with unset fields filled in.
func (m MotionProfile) withDefaults() MotionProfile {
	if m.Drag == 0 {
		m.Drag = 1
	}
	if m.Margin == 0 {
		m.Margin = DefaultMargin
	}
	if m.Opacity.IsZero() {
		m.Opacity = Range{1, 1}
	}
	if m.Color.IsZero() {
		m.Color = ColorWhite
	}
	if m.Shape == "" {
		m.Shape = "dot"
	}
	return m
}

// durationMode reports whether particles follow a fixed-duration path.
func (m *MotionProfile) durationMode() bool {
	return m.Duration.Max > 0
}

// launchAngle draws a launch direction in radians.
func (m *MotionProfile) launchAngle(rng *rand.Rand) float64 {
	switch m.AngleMode {
	case AngleUniform:
		return rng.Float64() * 2 * math.Pi
	case AngleUpward:
		return -math.Pi/2 + (rng.Float64()*2-1)*m.Jitter
	default:
		return m.Direction + (rng.Float64()*2-1)*m.Jitter
	}
}

// spawnOrigin draws an ambient spawn point within bounds.
func (m *MotionProfile) spawnOrigin(bounds Rect, rng *rand.Rand) Vec2 {
	switch m.Region {
	case RegionTop:
		return Vec2{bounds.X + rng.Float64()*bounds.Width, bounds.Y + m.Offset}
	case RegionBottom:
		return Vec2{bounds.X + rng.Float64()*bounds.Width, bounds.Bottom() - m.Offset}
	case RegionArea:
		x := bounds.X + rng.Float64()*bounds.Width
		y := bounds.Y + rng.Float64()*bounds.Height
		return Vec2{x, y}
	default:
		return Vec2{bounds.X + bounds.Width/2, bounds.Y + bounds.Height/2}
	}
}

// pickColor draws a palette entry, or returns the fixed color.
func (m *MotionProfile) pickColor(rng *rand.Rand) Color {
	if len(m.Palette) == 0 {
		return m.Color
	}
	return m.Palette[rng.IntN(len(m.Palette))]
}

func lookupName(kind string, names []string, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}
