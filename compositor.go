package glowmap

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/glowmap/internal/filter"
	"github.com/gogpu/glowmap/internal/glow"
)

// Blob geometry and visibility constants.
const (
	// BlobRadiusFactor scales max(cellW, cellH) into the blob radius.
	BlobRadiusFactor = 1.6

	// BlurSigmaFactor scales max(cellW, cellH) into the blur sigma.
	BlurSigmaFactor = 0.5

	// MinIntensity is the visibility floor; dimmer cells are not drawn.
	MinIntensity = 0.01

	// PhantomReach is how many grid steps from an edge a blob gets
	// mirrored copies past that edge.
	PhantomReach = 2
)

// blobStops is the radial falloff of a blob: opacity by normalized
// distance. Centers stay solid and blend smoothly into neighbors.
var blobStops = [...]struct{ offset, alpha float64 }{
	{0, 1.0},
	{0.5, 0.7},
	{0.85, 0.2},
	{1, 0},
}

// Blob is one radial glyph to be stamped into the glow buffer.
type Blob struct {
	Key       CellKey
	X, Y      float64 // center in surface pixels
	Radius    float64
	Intensity float64
	Color     gg.RGBA
	Phantom   bool // mirrored copy past a grid edge
}

// brush returns the radial gradient of the blob, with alpha and color
// scaled by its intensity.
func (b Blob) brush() *gg.RadialGradientBrush {
	g := gg.NewRadialGradientBrush(b.X, b.Y, 0, b.Radius)
	for _, s := range blobStops {
		k := s.alpha * b.Intensity
		g.AddColorStop(s.offset, gg.RGBA{
			R: b.Color.R * b.Intensity,
			G: b.Color.G * b.Intensity,
			B: b.Color.B * b.Intensity,
			A: k,
		})
	}
	return g
}

// FadeFunc reports the fade progress of a cell at render time.
type FadeFunc func(CellKey) (progress float64, fading bool)

// Compositor renders the glow field. It owns the off-screen buffer,
// which is reused across frames while its size stays the same.
type Compositor struct {
	palette   Palette
	maxPixels int

	buf    *glow.Buffer
	origin image.Point // surface position of buf's (0, 0)
}

// NewCompositor returns a compositor using palette. maxPixels bounds the
// off-screen buffer (<= 0 selects glow.DefaultMaxPixels).
func NewCompositor(palette Palette, maxPixels int) *Compositor {
	return &Compositor{palette: palette, maxPixels: maxPixels}
}

// Blobs returns the blobs for every visible cell of g: one per non-empty
// cell at or above MinIntensity, followed by its phantom copies.
func (c *Compositor) Blobs(g *Grid, l Layout, fade FadeFunc) []Blob {
	if !g.Ready() || !l.Valid() {
		return nil
	}
	radius := BlobRadiusFactor * l.CellSize()

	var blobs []Blob
	for _, cell := range g.Cells() {
		if cell.Empty() {
			continue
		}
		intensity := g.Intensity(cell)
		if intensity < MinIntensity {
			continue
		}

		var progress float64
		var fading bool
		if fade != nil {
			progress, fading = fade(cell.Key())
		}

		x, y := l.CellCenter(cell.Key())
		b := Blob{
			Key:       cell.Key(),
			X:         x,
			Y:         y,
			Radius:    radius,
			Intensity: intensity,
			Color:     c.palette.BlobColor(progress, fading),
		}
		blobs = append(blobs, b)
		blobs = appendPhantoms(blobs, b, l)
	}
	return blobs
}

// appendPhantoms mirrors b past every grid edge it is within
// PhantomReach steps of, and diagonally past both edges of a corner.
// The blur otherwise samples empty space beyond the grid and dims edge
// cells relative to equally intense interior ones.
func appendPhantoms(blobs []Blob, b Blob, l Layout) []Blob {
	col, row := l.Column(b.Key.Period), l.Row(b.Key.Tier)

	var xs, ys []float64
	if col < PhantomReach {
		xs = append(xs, 2*l.Grid.X-b.X)
	}
	if col >= l.Columns-PhantomReach {
		xs = append(xs, 2*(l.Grid.X+l.Grid.W)-b.X)
	}
	if row < PhantomReach {
		ys = append(ys, 2*l.Grid.Y-b.Y)
	}
	if row >= l.Rows-PhantomReach {
		ys = append(ys, 2*(l.Grid.Y+l.Grid.H)-b.Y)
	}

	mirror := func(x, y float64) {
		p := b
		p.X, p.Y, p.Phantom = x, y, true
		blobs = append(blobs, p)
	}
	for _, x := range xs {
		mirror(x, b.Y)
	}
	for _, y := range ys {
		mirror(b.X, y)
	}
	for _, x := range xs {
		for _, y := range ys {
			mirror(x, y)
		}
	}
	return blobs
}

// bufferRect returns the surface rectangle covered by the off-screen
// buffer: the grid inflated far enough to hold phantoms and the blur's
// support.
func bufferRect(l Layout) image.Rectangle {
	size := l.CellSize()
	pad := int(math.Ceil(PhantomReach*math.Max(l.StepX, l.StepY) +
		BlobRadiusFactor*size + float64(filter.Support(BlurSigmaFactor*size))))
	g := gridBounds(l)
	return image.Rect(g.Min.X-pad, g.Min.Y-pad, g.Max.X+pad, g.Max.Y+pad)
}

// gridBounds returns the grid rectangle in whole pixels.
func gridBounds(l Layout) image.Rectangle {
	x0, y0 := int(l.Grid.X), int(l.Grid.Y)
	return image.Rect(x0, y0, x0+int(l.Grid.W), y0+int(l.Grid.H))
}

// buffer returns a cleared off-screen buffer covering r, reusing the
// previous one when the size matches.
func (c *Compositor) buffer(r image.Rectangle) (*glow.Buffer, error) {
	c.origin = r.Min
	if c.buf.SameSize(r.Dx(), r.Dy()) {
		c.buf.Clear()
		return c.buf, nil
	}
	c.buf = nil
	buf, err := glow.New(r.Dx(), r.Dy(), c.maxPixels)
	if err != nil {
		return nil, fmt.Errorf("glowmap: allocating blob buffer: %w", err)
	}
	Logger().Debug("glowmap: blob buffer allocated", "width", r.Dx(), "height", r.Dy())
	c.buf = buf
	return buf, nil
}

// Render draws blobs onto dc: stamp into the off-screen buffer with
// screen blending, blur once, then composite onto dc clipped to the
// grid rectangle. On allocation failure it returns the error without
// drawing anything.
func (c *Compositor) Render(dc *gg.Context, blobs []Blob, l Layout) error {
	if !l.Valid() || len(blobs) == 0 {
		return nil
	}
	buf, err := c.buffer(bufferRect(l))
	if err != nil {
		return err
	}

	ox, oy := float64(c.origin.X), float64(c.origin.Y)
	for _, b := range blobs {
		p := glow.NewProfile(b.brush(), glow.DefaultProfileSamples)
		buf.StampScreen(b.X-ox, b.Y-oy, b.Radius, p)
	}

	filter.Blur(buf, BlurSigmaFactor*l.CellSize())

	grid := gridBounds(l)
	img := buf.NRGBA(grid.Sub(c.origin))
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:         float64(grid.Min.X),
		Y:         float64(grid.Min.Y),
		Opacity:   1,
		BlendMode: gg.BlendScreen,
	})
	return nil
}

// fadeAt adapts an AnimationClock to a FadeFunc evaluated at now.
func fadeAt(clock *AnimationClock, now time.Time) FadeFunc {
	return func(k CellKey) (float64, bool) {
		return clock.FadeProgress(k, now)
	}
}
