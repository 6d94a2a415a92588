package flurry

import (
	"encoding/json"
	"fmt"
)

// scriptStep represents a single action in a trigger script.
type scriptStep struct {
	Action string   `json:"action"`
	X      float64  `json:"x,omitempty"`
	Y      float64  `json:"y,omitempty"`
	Pos    *float64 `json:"pos,omitempty"`
	Delta  float64  `json:"delta,omitempty"`
	Width  float64  `json:"width,omitempty"`
	Height float64  `json:"height,omitempty"`
	Frames int      `json:"frames,omitempty"`
}

// scriptFile is the top-level JSON structure for a trigger script.
type scriptFile struct {
	Steps []scriptStep `json:"steps"`
}

var scriptActions = map[string]bool{
	"click": true, "scroll": true, "tick": true,
	"resize": true, "wait": true, "stop": true,
}

// Script replays a recorded sequence of gestures, one step per frame.
// Demos use it for unattended runs and tests use it to drive emitters
// without a window.
type Script struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON trigger script:
//
//	{"steps": [
//	  {"action": "click", "x": 320, "y": 240},
//	  {"action": "scroll", "pos": 120},
//	  {"action": "scroll", "delta": -60},
//	  {"action": "tick"},
//	  {"action": "resize", "width": 800, "height": 600},
//	  {"action": "wait", "frames": 30},
//	  {"action": "stop"}
//	]}
func LoadScript(jsonData []byte) (*Script, error) {
	var f scriptFile
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range f.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
		if st.Action == "resize" && (st.Width <= 0 || st.Height <= 0) {
			return nil, fmt.Errorf("parse script: step %d: resize needs positive width and height", i)
		}
	}
	return &Script{steps: f.Steps}, nil
}

// Done reports whether every step has been executed or a stop step was hit.
func (s *Script) Done() bool {
	return s.done
}

// Step executes at most one action against t. Call it once per frame.
func (s *Script) Step(t TriggerTarget) {
	if s.done {
		return
	}
	if s.waitCount > 0 {
		s.waitCount--
		return
	}
	if s.cursor >= len(s.steps) {
		s.done = true
		return
	}

	st := s.steps[s.cursor]
	s.cursor++

	switch st.Action {
	case "click":
		t.Click(st.X, st.Y)
	case "scroll":
		if st.Pos != nil {
			t.ScrollTo(*st.Pos)
		} else {
			t.ScrollBy(st.Delta)
		}
	case "tick":
		t.Heartbeat()
	case "resize":
		t.Resize(st.Width, st.Height)
	case "wait":
		if st.Frames > 0 {
			s.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "stop":
		s.done = true
		return
	}

	if s.cursor >= len(s.steps) && s.waitCount == 0 {
		s.done = true
	}
}
