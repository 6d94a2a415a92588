package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// chime plays a short tone on bursts. A chime whose speaker failed to
// initialize stays silent.
type chime struct {
	ready bool
}

func newChime() (*chime, error) {
	c := &chime{}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return c, err
	}
	c.ready = true
	return c, nil
}

// play sounds a tone whose pitch rises with the burst's horizontal position.
func (c *chime) play(x, width float64) {
	if c == nil || !c.ready {
		return
	}
	freq := 440.0
	if width > 0 {
		freq += 440 * x / width
	}
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(60*time.Millisecond), sine))
}

func (c *chime) close() {
	if c != nil && c.ready {
		speaker.Close()
		c.ready = false
	}
}
