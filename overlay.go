package glowmap

import (
	"math"

	"github.com/gogpu/gg"
)

// Selection overlay constants.
const (
	// RippleRings is the number of concurrent ripple rings.
	RippleRings = 3

	rippleMaxWidth  = 3.0
	rippleMinWidth  = 0.5
	epicenterRadius = 3.5
	hoverLineWidth  = 1.5
)

// Ring is one ripple ring around the active cell.
type Ring struct {
	Radius float64
	Alpha  float64
	Width  float64
}

// Ripple computes the rings at the given phase. maxDistance is the
// distance from the ripple center to the farthest grid corner, so rings
// always travel to the far edge.
func Ripple(phase, maxDistance float64) []Ring {
	rings := make([]Ring, 0, RippleRings)
	for i := 0; i < RippleRings; i++ {
		p := math.Mod(phase+float64(i)*RipplePeriod/RippleRings, RipplePeriod)
		f := p / RipplePeriod
		rings = append(rings, Ring{
			Radius: f * maxDistance,
			Alpha:  (1 - f) * (1 - f),
			Width:  rippleMaxWidth - (rippleMaxWidth-rippleMinWidth)*f,
		})
	}
	return rings
}

// PulseAlpha returns the epicenter dot alpha at phase. It pulses faster
// than the ripple and independently of ring phase.
func PulseAlpha(phase float64) float64 {
	return 0.6 + 0.4*math.Sin(2*math.Pi*phase/PulsePeriod)
}

// farthestCorner returns the distance from (x, y) to the farthest corner
// of r.
func farthestCorner(r Rect, x, y float64) float64 {
	dx := math.Max(math.Abs(x-r.X), math.Abs(x-(r.X+r.W)))
	dy := math.Max(math.Abs(y-r.Y), math.Abs(y-(r.Y+r.H)))
	return math.Hypot(dx, dy)
}

// SelectionOverlay draws the ripple and epicenter of the active cell and
// the outline of the hovered cell.
type SelectionOverlay struct {
	palette Palette
}

// NewSelectionOverlay returns an overlay drawing with palette.
func NewSelectionOverlay(palette Palette) *SelectionOverlay {
	return &SelectionOverlay{palette: palette}
}

// Draw renders the overlay. active and hover may be nil.
func (o *SelectionOverlay) Draw(dc *gg.Context, l Layout, active, hover *CellKey, phase float64) {
	if !l.Valid() {
		return
	}
	if active != nil {
		o.drawRipple(dc, l, *active, phase)
	}
	if hover != nil && (active == nil || *hover != *active) {
		o.drawHover(dc, l, *hover)
	}
}

func (o *SelectionOverlay) drawRipple(dc *gg.Context, l Layout, k CellKey, phase float64) {
	cx, cy := l.CellCenter(k)
	c := o.palette.Ripple

	dc.Push()
	dc.ClipRect(l.Grid.X, l.Grid.Y, l.Grid.W, l.Grid.H)
	for _, ring := range Ripple(phase, farthestCorner(l.Grid, cx, cy)) {
		if ring.Radius <= 0 || ring.Alpha <= 0 {
			continue
		}
		dc.SetRGBA(c.R, c.G, c.B, c.A*ring.Alpha)
		dc.SetLineWidth(ring.Width)
		dc.DrawCircle(cx, cy, ring.Radius)
		_ = dc.Stroke()
	}

	dc.SetRGBA(c.R, c.G, c.B, c.A*PulseAlpha(phase))
	dc.DrawCircle(cx, cy, epicenterRadius)
	_ = dc.Fill()
	dc.Pop()
}

func (o *SelectionOverlay) drawHover(dc *gg.Context, l Layout, k CellKey) {
	r := l.CellRect(k)
	c := o.palette.Hover
	dc.SetRGBA(c.R, c.G, c.B, c.A)
	dc.SetLineWidth(hoverLineWidth)
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	_ = dc.Stroke()
}
