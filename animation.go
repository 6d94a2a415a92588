package flurry

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// pathTween drives a duration-mode particle: its vertical position and its
// rotation both run linearly from their start to end values over the
// particle's duration. Horizontal motion and wobble still come from Step.
type pathTween struct {
	y    *gween.Tween
	rot  *gween.Tween
	done bool
}

// newPathTween creates a tween moving from fromY to toY while rotating from
// 0 to spin degrees over seconds.
func newPathTween(fromY, toY, spin, seconds float64) *pathTween {
	return &pathTween{
		y:   gween.New(float32(fromY), float32(toY), float32(seconds), ease.Linear),
		rot: gween.New(0, float32(spin), float32(seconds), ease.Linear),
	}
}

// update advances both tweens by seconds and returns the current values.
// done is true once the duration has fully elapsed.
func (t *pathTween) update(seconds float64) (y, rot float64, done bool) {
	yv, yDone := t.y.Update(float32(seconds))
	rv, _ := t.rot.Update(float32(seconds))
	t.done = yDone
	return float64(yv), float64(rv), t.done
}
