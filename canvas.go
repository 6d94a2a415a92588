package flurry

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// spriteRes is the edge length, in pixels, of generated particle sprites.
// Particles are scaled from this size to their drawn Size.
const spriteRes = 32

// Canvas is an Ebitengine render target for particles. It owns one Layer per
// emitter; each Layer is the RenderSink that emitter draws through. Layers are
// drawn in creation order.
type Canvas struct {
	layers  []*Layer
	sprites map[string]*ebiten.Image
	op      ebiten.DrawImageOptions
}

// NewCanvas creates an empty Canvas.
func NewCanvas() *Canvas {
	return &Canvas{sprites: make(map[string]*ebiten.Image)}
}

// Layer returns the layer with the given name, creating it on first use.
func (c *Canvas) Layer(name string) *Layer {
	for _, l := range c.layers {
		if l.Name == name {
			return l
		}
	}
	l := NewLayer(name)
	c.layers = append(c.layers, l)
	return l
}

// RemoveLayer drops the named layer and everything on it.
func (c *Canvas) RemoveLayer(name string) bool {
	for i, l := range c.layers {
		if l.Name == name {
			c.layers = append(c.layers[:i], c.layers[i+1:]...)
			return true
		}
	}
	return false
}

// Layers returns the layers in draw order. The returned slice MUST NOT be mutated.
func (c *Canvas) Layers() []*Layer {
	return c.layers
}

// Draw renders every visible layer onto dst.
func (c *Canvas) Draw(dst *ebiten.Image) {
	op := &c.op
	for _, l := range c.layers {
		if !l.Visible {
			continue
		}
		op.Blend = l.Blend.EbitenBlend()
		for i := range l.slots {
			v := &l.slots[i].visual
			if v.Opacity <= 0 || v.Size <= 0 {
				continue
			}
			img := c.sprite(v.Shape)

			op.GeoM.Reset()
			op.GeoM.Translate(-spriteRes/2, -spriteRes/2)
			s := v.Size / spriteRes
			op.GeoM.Scale(s, s)
			op.GeoM.Rotate(v.Rotation * math.Pi / 180)
			op.GeoM.Translate(v.X, v.Y)

			// Premultiplied tint.
			a := float32(v.Color.A * v.Opacity)
			op.ColorScale.Reset()
			op.ColorScale.Scale(float32(v.Color.R)*a, float32(v.Color.G)*a, float32(v.Color.B)*a, a)

			dst.DrawImage(img, op)
		}
	}
}

// sprite returns the cached sprite for shape, generating it on first use.
func (c *Canvas) sprite(shape string) *ebiten.Image {
	if img, ok := c.sprites[shape]; ok {
		return img
	}
	img := ebiten.NewImageFromImage(ShapeImage(shape, spriteRes))
	c.sprites[shape] = img
	return img
}

// layerSlot is one particle visual held by a Layer.
type layerSlot struct {
	handle Handle
	id     uint64
	visual VisualState
}

// Layer holds the visuals of one emitter and implements RenderSink.
// Slots are kept dense; Detach swap-removes.
type Layer struct {
	Name    string
	Blend   BlendMode
	Visible bool

	slots []layerSlot
	index map[Handle]int
	next  Handle
}

// NewLayer creates an empty, visible layer. Layers not owned by a Canvas
// serve as plain visual stores for other hosts.
func NewLayer(name string) *Layer {
	return &Layer{Name: name, Visible: true, index: make(map[Handle]int)}
}

// Attach adds a visual and returns its handle.
func (l *Layer) Attach(id uint64, state VisualState) (Handle, error) {
	l.next++
	h := l.next
	l.index[h] = len(l.slots)
	l.slots = append(l.slots, layerSlot{handle: h, id: id, visual: state})
	return h, nil
}

// Update replaces the visual for h. Unknown handles are ignored.
func (l *Layer) Update(h Handle, state VisualState) {
	if i, ok := l.index[h]; ok {
		l.slots[i].visual = state
	}
}

// Detach removes the visual for h. Detaching an unknown handle is a no-op.
func (l *Layer) Detach(h Handle) error {
	i, ok := l.index[h]
	if !ok {
		return nil
	}
	last := len(l.slots) - 1
	if i != last {
		l.slots[i] = l.slots[last]
		l.index[l.slots[i].handle] = i
	}
	l.slots[last] = layerSlot{}
	l.slots = l.slots[:last]
	delete(l.index, h)
	return nil
}

// Len returns the number of visuals on the layer.
func (l *Layer) Len() int {
	return len(l.slots)
}

// Each calls fn for every visual in draw order.
func (l *Layer) Each(fn func(id uint64, v VisualState)) {
	for i := range l.slots {
		fn(l.slots[i].id, l.slots[i].visual)
	}
}

// Clear drops every visual.
func (l *Layer) Clear() {
	l.slots = l.slots[:0]
	clear(l.index)
}

// ShapeImage rasterizes a white particle sprite of the given shape into a
// res x res image. Unknown shapes render as "dot". Tinting happens at draw
// time through the color scale.
func ShapeImage(shape string, res int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, res, res))
	cover := shapeCoverage(shape)
	r := float64(res)
	for py := 0; py < res; py++ {
		for px := 0; px < res; px++ {
			// Normalized coordinates in [-1, 1], y down.
			x := (float64(px)+0.5)/r*2 - 1
			y := (float64(py)+0.5)/r*2 - 1
			a := cover(x, y)
			if a <= 0 {
				continue
			}
			if a > 1 {
				a = 1
			}
			v := uint8(a*255 + 0.5)
			img.SetRGBA(px, py, color.RGBA{v, v, v, v})
		}
	}
	return img
}

// shapeCoverage returns the coverage function for a shape: 1 inside, 0
// outside, with a short linear falloff at the edge for antialiasing.
func shapeCoverage(shape string) func(x, y float64) float64 {
	const feather = 0.08
	edge := func(d float64) float64 { return 0.5 - d/feather }
	switch shape {
	case "flake":
		return func(x, y float64) float64 {
			// Six arms plus a small hub.
			d := math.Hypot(x, y) - 0.22
			if d > 0.8 {
				return 0
			}
			a := math.Atan2(y, x)
			sector := math.Pi / 3
			a = math.Mod(a+2*math.Pi, sector) - sector/2
			rr := math.Hypot(x, y)
			armDist := math.Abs(math.Sin(a)) * rr
			arm := edge(armDist - 0.07)
			if rr > 0.95 {
				arm = 0
			}
			return math.Max(edge(d), arm)
		}
	case "heart":
		return func(x, y float64) float64 {
			// (x² + y² - 1)³ - x²y³ <= 0, scaled and flipped so the point is down.
			hx, hy := x*1.25, -y*1.25+0.2
			f := math.Pow(hx*hx+hy*hy-1, 3) - hx*hx*hy*hy*hy
			return edge(f * 2)
		}
	case "petal":
		return func(x, y float64) float64 {
			// Ellipse narrowed toward one end.
			w := 0.45 * (1 - 0.35*y)
			d := math.Hypot(x/w, y/0.9) - 1
			return edge(d * 0.5)
		}
	case "spark":
		return func(x, y float64) float64 {
			rr := math.Hypot(x, y)
			return math.Max(0, 1-rr*rr) * 1.2
		}
	default:
		return func(x, y float64) float64 {
			return edge(math.Hypot(x, y) - 0.9)
		}
	}
}
