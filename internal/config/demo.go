// Package config holds process configuration shared by the demo commands.
package config

import (
	"fmt"
	"strings"
)

// Demo is the environment configuration of cmd/flurry and cmd/flurry-term.
// Command-line flags override it.
type Demo struct {
	// Effects lists effect names to run, in draw order.
	Effects []string `env:"FLURRY_EFFECTS" envDefault:"snow,sparks"`
	// EffectsFile replaces the built-in effects with a YAML file.
	EffectsFile string `env:"FLURRY_EFFECTS_FILE"`
	// Seed seeds every emitter. Zero picks a seed from the clock.
	Seed   uint64 `env:"FLURRY_SEED"`
	Width  int    `env:"FLURRY_WIDTH" envDefault:"800"`
	Height int    `env:"FLURRY_HEIGHT" envDefault:"600"`
	// Mode is "persistent" or "self-terminating".
	Mode   string `env:"FLURRY_MODE" envDefault:"persistent"`
	Script string `env:"FLURRY_SCRIPT"`
	Debug  bool   `env:"FLURRY_DEBUG"`
	FPS    bool   `env:"FLURRY_FPS"`
	Sound  bool   `env:"FLURRY_SOUND"`
}

// LoadDemo reads Demo from the environment and validates it.
func LoadDemo() (Demo, error) {
	var cfg Demo
	if err := ParseEnv(&cfg); err != nil {
		return Demo{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Demo{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Demo) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", c.Width, c.Height)
	}
	switch c.Mode {
	case "persistent", "self-terminating":
	default:
		return fmt.Errorf("invalid mode %q: want persistent or self-terminating", c.Mode)
	}
	for i, name := range c.Effects {
		c.Effects[i] = strings.TrimSpace(name)
	}
	return nil
}
