// Package term draws flurry particles into a tcell terminal screen.
//
// Particles live in world units; each terminal cell covers CellWidth x
// CellHeight world units, so profiles tuned for pixels keep their feel on a
// character grid.
package term

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/phanxgames/flurry"
)

// Default world units per cell. Terminal cells are roughly twice as tall as
// they are wide.
const (
	DefaultCellWidth  = 8.0
	DefaultCellHeight = 16.0
)

// Sink is a flurry.RenderSink backed by a tcell screen. Visuals are stored on
// Attach/Update and painted by Draw.
type Sink struct {
	*flurry.Layer

	CellWidth  float64
	CellHeight float64
	// Background is blended toward as opacity falls.
	Background flurry.Color
}

// NewSink creates a terminal sink named name.
func NewSink(name string) *Sink {
	return &Sink{
		Layer:      flurry.NewLayer(name),
		CellWidth:  DefaultCellWidth,
		CellHeight: DefaultCellHeight,
	}
}

// Draw paints every visual into screen. It neither clears nor shows the
// screen so several sinks can share one frame.
func (s *Sink) Draw(screen tcell.Screen) {
	if !s.Visible {
		return
	}
	cols, rows := screen.Size()
	s.Each(func(_ uint64, v flurry.VisualState) {
		if v.Opacity <= 0 {
			return
		}
		col, row := s.Cell(v.X, v.Y)
		if col < 0 || row < 0 || col >= cols || row >= rows {
			return
		}
		screen.SetContent(col, row, Glyph(v.Shape, v.Size, s.CellWidth), nil, s.Style(v))
	})
}

// Cell maps a world position to a terminal cell.
func (s *Sink) Cell(x, y float64) (col, row int) {
	return int(math.Floor(x / s.CellWidth)), int(math.Floor(y / s.CellHeight))
}

// World maps the center of a terminal cell to world units.
func (s *Sink) World(col, row int) (x, y float64) {
	return (float64(col) + 0.5) * s.CellWidth, (float64(row) + 0.5) * s.CellHeight
}

// Bounds returns the world-space rectangle covered by a cols x rows screen.
func (s *Sink) Bounds(cols, rows int) flurry.Rect {
	return flurry.Rect{Width: float64(cols) * s.CellWidth, Height: float64(rows) * s.CellHeight}
}

// Style returns the cell style for v: the particle color faded toward the
// background by its opacity.
func (s *Sink) Style(v flurry.VisualState) tcell.Style {
	c := s.Background.Blend(v.Color, v.Opacity*v.Color.A)
	r, g, b := int32(c.R*255+0.5), int32(c.G*255+0.5), int32(c.B*255+0.5)
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(r, g, b))
}

// Glyph picks the rune for a shape. Particles smaller than half a cell fall
// back to a dot.
func Glyph(shape string, size, cellWidth float64) rune {
	if size < cellWidth/2 {
		return '·'
	}
	switch shape {
	case "flake":
		return '❄'
	case "heart":
		return '♥'
	case "petal":
		return '✿'
	case "spark":
		return '*'
	default:
		return '•'
	}
}

// ScreenSurface reports a screen as ready once it has a usable size.
func ScreenSurface(screen tcell.Screen) flurry.Surface {
	return flurry.SurfaceFunc(func() bool {
		cols, rows := screen.Size()
		return cols > 0 && rows > 0
	})
}
