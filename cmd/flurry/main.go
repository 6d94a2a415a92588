// Flurry runs the built-in particle effects in a window. Ambient effects
// (snow, petals) run on their own; click to burst sparks or hearts and scroll
// the mouse wheel to set off scroll-triggered snow.
//
// Configuration comes from FLURRY_* environment variables (see
// internal/config) and can be overridden with flags.
package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/phanxgames/flurry"
	"github.com/phanxgames/flurry/internal/config"
)

const windowTitle = "Flurry"

func main() {
	cfg, err := config.LoadDemo()
	if err != nil {
		config.Exitf("flurry: %v", err)
	}

	effects := flag.String("effects", strings.Join(cfg.Effects, ","), "comma-separated effects to run")
	effectsFile := flag.String("effects-file", cfg.EffectsFile, "YAML effects file replacing the built-in set")
	seed := flag.Uint64("seed", cfg.Seed, "random seed; 0 uses the clock")
	script := flag.String("script", cfg.Script, "JSON trigger script to replay")
	mode := flag.String("mode", cfg.Mode, "scheduler mode: persistent or self-terminating")
	debug := flag.Bool("debug", cfg.Debug, "log per-frame stats")
	fps := flag.Bool("fps", cfg.FPS, "show FPS and particle count")
	list := flag.Bool("list", false, "list available effects and exit")
	flag.Parse()

	set := flurry.DefaultEffects()
	if *effectsFile != "" {
		set, err = flurry.LoadEffectsFile(*effectsFile)
		if err != nil {
			config.Exitf("flurry: %v", err)
		}
	}
	if *list {
		for _, name := range set.Names() {
			os.Stdout.WriteString(name + "\n")
		}
		return
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	stageMode := flurry.Persistent
	if *mode == "self-terminating" {
		stageMode = flurry.SelfTerminating
	}

	stage := flurry.NewStage(flurry.StageConfig{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Background: flurry.Color{R: 0.04, G: 0.05, B: 0.09, A: 1},
		Mode:       stageMode,
		ShowFPS:    *fps,
		Debug:      *debug,
	})

	for i, name := range strings.Split(*effects, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fx, ok := set.Lookup(name)
		if !ok {
			config.Exitf("flurry: unknown effect %q (have %s)", name, strings.Join(set.Names(), ", "))
		}
		// Each effect gets its own stream so adding one does not reshuffle the others.
		if _, err := stage.AddEffect(fx, *seed+uint64(i)); err != nil {
			config.Exitf("flurry: %v", err)
		}
	}

	if *script != "" {
		data, err := os.ReadFile(*script)
		if err != nil {
			config.Exitf("flurry: read script: %v", err)
		}
		sc, err := flurry.LoadScript(data)
		if err != nil {
			config.Exitf("flurry: %v", err)
		}
		stage.SetScript(sc)
	}

	if err := flurry.Run(stage, flurry.RunConfig{
		Title:     windowTitle,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Resizable: true,
	}); err != nil {
		log.Fatal(err)
	}
}
