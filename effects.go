package flurry

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed effects.yaml
var defaultEffectsYAML []byte

// Effect is one named particle effect as written in an effects file: a motion
// profile plus the emitter policy that drives it.
//
// Effects file location: effects.yaml (embedded defaults) or any path passed
// to LoadEffectsFile.
type Effect struct {
	Name          string        `yaml:"name"`
	Policy        SpawnPolicy   `yaml:"policy"`
	Capacity      int           `yaml:"capacity"`
	Density       float64       `yaml:"density"`
	Baseline      int           `yaml:"baseline"`
	FillRate      int           `yaml:"fillRate"`
	AutoReplenish bool          `yaml:"autoReplenish"`
	Burst         IntRange      `yaml:"burst"`
	RateScale     float64       `yaml:"rateScale"`
	Motion        MotionGate    `yaml:"motion"`
	Debounce      time.Duration `yaml:"debounce"`
	Latched       bool          `yaml:"latched"`
	// Heartbeat is the interval of TickEvents a host should send. Zero means
	// the effect does not need a heartbeat.
	Heartbeat time.Duration `yaml:"heartbeat"`
	// Listen names the trigger kinds the effect reacts to ("tick",
	// "activity", "window"). Empty means all.
	Listen  []string      `yaml:"listen"`
	Blend   BlendMode     `yaml:"blend"`
	Profile MotionProfile `yaml:"profile"`
}

// EffectSet is the top-level structure of an effects file.
type EffectSet struct {
	Effects []Effect `yaml:"effects"`
}

// EmitterConfig builds the emitter configuration for this effect inside bounds.
func (fx *Effect) EmitterConfig(bounds Rect, seed uint64) EmitterConfig {
	profile := fx.Profile
	if profile.Name == "" {
		profile.Name = fx.Name
	}
	return EmitterConfig{
		Name:          fx.Name,
		Profile:       profile,
		Capacity:      fx.Capacity,
		Density:       fx.Density,
		Baseline:      fx.Baseline,
		Policy:        fx.Policy,
		FillRate:      fx.FillRate,
		AutoReplenish: fx.AutoReplenish,
		BurstSize:     fx.Burst,
		RateScale:     fx.RateScale,
		Motion:        fx.Motion,
		Debounce:      fx.Debounce,
		Latched:       fx.Latched,
		Listen:        fx.listenSet(),
		Bounds:        bounds,
		Seed:          seed,
	}
}

func (fx *Effect) listenSet() TriggerSet {
	var set TriggerSet
	for _, name := range fx.Listen {
		switch name {
		case "tick":
			set |= ListenTick
		case "activity":
			set |= ListenActivity
		case "window":
			set |= ListenWindow
		}
	}
	return set
}

// Validate checks the effect's policy settings and its profile.
func (fx *Effect) Validate() error {
	if fx.Name == "" {
		return fmt.Errorf("%w: effect name is required", ErrInvalidConfig)
	}
	for _, name := range fx.Listen {
		switch name {
		case "tick", "activity", "window":
		default:
			return fmt.Errorf("%w: effect %q: unknown trigger kind %q", ErrInvalidConfig, fx.Name, name)
		}
	}
	if fx.Heartbeat < 0 {
		return fmt.Errorf("%w: effect %q: heartbeat must be >= 0", ErrInvalidConfig, fx.Name)
	}
	cfg := fx.EmitterConfig(Rect{}, 0)
	if err := cfg.Profile.Validate(); err != nil {
		return err
	}
	return cfg.validate()
}

// Validate checks every effect and rejects duplicate names.
func (s *EffectSet) Validate() error {
	seen := make(map[string]bool, len(s.Effects))
	for i := range s.Effects {
		fx := &s.Effects[i]
		if err := fx.Validate(); err != nil {
			return err
		}
		if seen[fx.Name] {
			return fmt.Errorf("%w: duplicate effect %q", ErrInvalidConfig, fx.Name)
		}
		seen[fx.Name] = true
	}
	return nil
}

// Lookup returns the effect with the given name.
func (s *EffectSet) Lookup(name string) (Effect, bool) {
	for _, fx := range s.Effects {
		if fx.Name == name {
			return fx, true
		}
	}
	return Effect{}, false
}

// Names returns the effect names in file order.
func (s *EffectSet) Names() []string {
	names := make([]string, len(s.Effects))
	for i, fx := range s.Effects {
		names[i] = fx.Name
	}
	return names
}

// LoadEffects parses and validates an effects document.
func LoadEffects(data []byte) (*EffectSet, error) {
	var set EffectSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse effects: %w", err)
	}
	if len(set.Effects) == 0 {
		return nil, fmt.Errorf("%w: no effects defined", ErrInvalidConfig)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid effects: %w", err)
	}
	return &set, nil
}

// LoadEffectsFile reads and parses an effects file from path.
func LoadEffectsFile(path string) (*EffectSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read effects file: %w", err)
	}
	return LoadEffects(data)
}

// DefaultEffects returns the built-in effects: snow, color-snow, scroll-snow,
// scroll-flurry, sparks, hearts and petals.
func DefaultEffects() *EffectSet {
	set, err := LoadEffects(defaultEffectsYAML)
	if err != nil {
		panic(fmt.Sprintf("flurry: embedded effects are invalid: %v", err))
	}
	return set
}

// UnmarshalText parses "#rgb", "#rrggbb" or "#rrggbbaa" hex colors.
func (c *Color) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) == 9 && s[0] == '#' {
		col, err := ParseHexColor(s[:7])
		if err != nil {
			return err
		}
		var a uint8
		if _, err := fmt.Sscanf(s[7:], "%02x", &a); err != nil {
			return fmt.Errorf("parse color %q: %w", s, err)
		}
		col.A = float64(a) / 255
		*c = col
		return nil
	}
	col, err := ParseHexColor(s)
	if err != nil {
		return err
	}
	*c = col
	return nil
}

// MarshalText writes the color as "#rrggbb", or "#rrggbbaa" when translucent.
func (c Color) MarshalText() ([]byte, error) {
	if c.A >= 1 {
		return []byte(c.Hex()), nil
	}
	return []byte(fmt.Sprintf("%s%02x", c.Hex(), uint8(c.A*255+0.5))), nil
}

var blendModeNames = []string{"normal", "add", "screen"}

func (b BlendMode) String() string {
	if int(b) < len(blendModeNames) {
		return blendModeNames[b]
	}
	return fmt.Sprintf("BlendMode(%d)", b)
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (b *BlendMode) UnmarshalText(text []byte) error {
	i, err := lookupName("blend mode", blendModeNames, string(text))
	*b = BlendMode(i)
	return err
}

// UnmarshalYAML accepts a range as a mapping ({min: 1, max: 2}), a two
// element sequence ([1, 2]) or a single number (3, meaning [3, 3]).
func (r *Range) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := n.Decode(&v); err != nil {
			return err
		}
		*r = Range{v, v}
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := n.Decode(&vs); err != nil {
			return err
		}
		if len(vs) != 2 {
			return fmt.Errorf("line %d: range needs exactly two values, got %d", n.Line, len(vs))
		}
		*r = Range{vs[0], vs[1]}
		return nil
	}
	var m struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	*r = Range{m.Min, m.Max}
	return nil
}

// UnmarshalYAML accepts an integer range in the same forms as Range and
// rejects fractional bounds.
func (r *IntRange) UnmarshalYAML(n *yaml.Node) error {
	var fr Range
	if err := fr.UnmarshalYAML(n); err != nil {
		return err
	}
	for _, v := range []float64{fr.Min, fr.Max} {
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return fmt.Errorf("line %d: integer range bound must be a whole number, got %v", n.Line, v)
		}
	}
	*r = IntRange{int(fr.Min), int(fr.Max)}
	return nil
}
